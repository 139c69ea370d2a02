package handler

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"ai-lessongen-be/internal/dto"
	"ai-lessongen-be/internal/model"
	"ai-lessongen-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }

// slowChatService streams each answer as per-word tokens with a small delay
// between them, so overlapping answers would be easy to spot.
type slowChatService struct {
	delay time.Duration
}

func (s *slowChatService) Respond(ctx context.Context, session *model.ChatSession, msg *dto.ChatInbound, token string, onToken llm.TokenHandler) (*dto.SendChatResponse, bool, error) {
	answer := "answer to " + msg.Content
	if onToken != nil {
		for i := 0; i < 3; i++ {
			onToken(fmt.Sprintf("%s#%d", msg.Content, i))
			time.Sleep(s.delay)
		}
		return &dto.SendChatResponse{Content: answer}, true, nil
	}
	return &dto.SendChatResponse{Content: answer}, false, nil
}

func (s *slowChatService) Send(ctx context.Context, req *dto.SendChatRequest, token string) (*dto.SendChatResponse, error) {
	return nil, nil
}

func (s *slowChatService) ContextInfo(ctx context.Context, lessonId, token string) (*dto.ChatContextResponse, error) {
	return nil, nil
}

func (s *slowChatService) Related(ctx context.Context, lessonId, token string) ([]dto.RelatedLesson, error) {
	return nil, nil
}

func (s *slowChatService) Health() *dto.ChatHealthResponse   { return nil }
func (s *slowChatService) Cleanup() *dto.ChatCleanupResponse { return nil }

func (s *slowChatService) Session(sessionId string) *model.ChatSession {
	return model.NewChatSession(sessionId)
}

type frameRecorder struct {
	mu     sync.Mutex
	frames []dto.ChatOutbound
}

func (r *frameRecorder) write(frame dto.ChatOutbound) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, frame)
}

func (r *frameRecorder) all() []dto.ChatOutbound {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]dto.ChatOutbound(nil), r.frames...)
}

func TestResponderSerializesQueuedMessages(t *testing.T) {
	svc := &slowChatService{delay: 20 * time.Millisecond}
	h := NewChatHandler(svc, nopLogger{})

	session := model.NewChatSession("chat-1")
	queue := make(chan dto.ChatInbound, chatQueueSize)
	rec := &frameRecorder{}

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.respondLoop(session, queue, "", rec.write)
	}()

	// Both messages land before the first answer finishes streaming.
	queue <- dto.ChatInbound{Type: dto.ChatInboundMessage, Content: "first", LessonId: "lesson-1"}
	queue <- dto.ChatInbound{Type: dto.ChatInboundMessage, Content: "second", LessonId: "lesson-1"}
	close(queue)
	<-done

	frames := rec.all()
	require.Len(t, frames, 10)

	want := []dto.ChatOutbound{
		{Type: dto.ChatOutboundTyping},
		{Type: dto.ChatOutboundToken, Content: "first#0"},
		{Type: dto.ChatOutboundToken, Content: "first#1"},
		{Type: dto.ChatOutboundToken, Content: "first#2"},
		{Type: dto.ChatOutboundComplete, Content: "answer to first"},
		{Type: dto.ChatOutboundTyping},
		{Type: dto.ChatOutboundToken, Content: "second#0"},
		{Type: dto.ChatOutboundToken, Content: "second#1"},
		{Type: dto.ChatOutboundToken, Content: "second#2"},
		{Type: dto.ChatOutboundComplete, Content: "answer to second"},
	}
	assert.Equal(t, want, frames)
}

func TestCompleteFrameCarriesFullContent(t *testing.T) {
	svc := &slowChatService{}
	h := NewChatHandler(svc, nopLogger{})

	session := model.NewChatSession("chat-1")
	rec := &frameRecorder{}
	msg := dto.ChatInbound{Type: dto.ChatInboundMessage, Content: "hello", LessonId: "lesson-1"}

	h.respond(session, msg, "", rec.write)

	frames := rec.all()
	require.NotEmpty(t, frames)
	final := frames[len(frames)-1]
	assert.Equal(t, dto.ChatOutboundComplete, final.Type)
	assert.Equal(t, "answer to hello", final.Content)
}
