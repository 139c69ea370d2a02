package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ai-lessongen-be/internal/constant"
	"ai-lessongen-be/internal/dto"
	"ai-lessongen-be/internal/repository/memory"
	"ai-lessongen-be/pkg/cms"
	"ai-lessongen-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// streamingStub answers from a script and records every history it saw.
type streamingStub struct {
	answer    string
	chunks    []string
	histories [][]llm.Message
	err       error
}

func (p *streamingStub) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	p.histories = append(p.histories, history)
	return p.answer, p.err
}

func (p *streamingStub) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return p.answer, p.err
}

func (p *streamingStub) StreamChat(ctx context.Context, history []llm.Message, onToken llm.TokenHandler, options ...llm.Option) (string, error) {
	p.histories = append(p.histories, history)
	if p.err != nil {
		return "", p.err
	}
	var sb strings.Builder
	for _, chunk := range p.chunks {
		onToken(chunk)
		sb.WriteString(chunk)
	}
	return sb.String(), nil
}

// chatOnlyStub has no streaming support.
type chatOnlyStub struct {
	answer string
}

func (p *chatOnlyStub) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return p.answer, nil
}

func (p *chatOnlyStub) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return p.answer, nil
}

const lessonDocument = `{
	"root": {
		"type": "root",
		"children": [
			{"type": "heading", "tag": "h2", "children": [{"type": "text", "text": "Photosynthesis", "format": 0}]},
			{"type": "paragraph", "children": [{"type": "text", "text": "Photosynthesis converts light energy into chemical energy inside chloroplasts.", "format": 0}]}
		]
	}
}`

func newChatFixture(t *testing.T, provider llm.LLMProvider) (IChatService, *httptest.Server) {
	t.Helper()

	cmsSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/lessons/lesson-1":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"id":      "lesson-1",
				"title":   "Photosynthesis Basics",
				"content": json.RawMessage(lessonDocument),
			})
		case r.URL.Path == "/api/lessons":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"docs": []map[string]string{
					{"id": "lesson-2", "title": "Photosynthesis Advanced"},
					{"id": "lesson-1", "title": "Photosynthesis Basics"},
				},
			})
		default:
			http.Error(w, "not found", http.StatusNotFound)
		}
	}))
	t.Cleanup(cmsSrv.Close)

	store := memory.NewChatStore(time.Hour)
	return NewChatService(provider, cms.NewClient(cmsSrv.URL), store, nopLogger{}), cmsSrv
}

func TestRespondStreamsTokensAndBuildsContext(t *testing.T) {
	provider := &streamingStub{chunks: []string{"Light ", "becomes ", "sugar."}}
	svc, _ := newChatFixture(t, provider)

	session := svc.Session("chat-1")

	var tokens []string
	resp, streamed, err := svc.Respond(context.Background(), session, &dto.ChatInbound{
		Type:     dto.ChatInboundMessage,
		Content:  "How does photosynthesis work?",
		LessonId: "lesson-1",
		Mode:     constant.ChatModeDefault,
	}, "tok", func(fragment string) { tokens = append(tokens, fragment) })

	require.NoError(t, err)
	assert.True(t, streamed)
	assert.Equal(t, []string{"Light ", "becomes ", "sugar."}, tokens)
	assert.Equal(t, "Light becomes sugar.", resp.Content)

	// Self is excluded from related lessons.
	require.Len(t, resp.RelatedLessons, 1)
	assert.Equal(t, "lesson-2", resp.RelatedLessons[0].Id)
	assert.Equal(t, constant.SuggestionsForMode(constant.ChatModeDefault), resp.Suggestions)

	// The prompt carries the mode system prompt and the lesson digest.
	require.Len(t, provider.histories, 1)
	history := provider.histories[0]
	assert.Equal(t, constant.ChatMessageRoleSystem, history[0].Role)
	assert.Equal(t, constant.SystemPromptForMode(constant.ChatModeDefault), history[0].Content)
	assert.Contains(t, history[1].Content, "Photosynthesis Basics")
	assert.Contains(t, history[1].Content, "chloroplasts")
	assert.Equal(t, "How does photosynthesis work?", history[len(history)-1].Content)

	// Both turns landed in the session history.
	turns := session.History()
	require.Len(t, turns, 2)
	assert.Equal(t, constant.ChatMessageRoleUser, turns[0].Role)
	assert.Equal(t, constant.ChatMessageRoleAssistant, turns[1].Role)
}

func TestRespondFallsBackWhenProviderCannotStream(t *testing.T) {
	svc, _ := newChatFixture(t, &chatOnlyStub{answer: "One-shot answer."})

	session := svc.Session("chat-2")

	onTokenCalled := false
	resp, streamed, err := svc.Respond(context.Background(), session, &dto.ChatInbound{
		Type:     dto.ChatInboundMessage,
		Content:  "Summarize the lesson.",
		LessonId: "lesson-1",
	}, "tok", func(string) { onTokenCalled = true })

	require.NoError(t, err)
	assert.False(t, streamed)
	assert.False(t, onTokenCalled)
	assert.Equal(t, "One-shot answer.", resp.Content)
}

func TestRespondCachesLessonContextPerSession(t *testing.T) {
	provider := &streamingStub{answer: "ok"}
	svc, cmsSrv := newChatFixture(t, provider)

	session := svc.Session("chat-3")

	_, _, err := svc.Respond(context.Background(), session, &dto.ChatInbound{
		Content: "first", LessonId: "lesson-1",
	}, "tok", nil)
	require.NoError(t, err)

	// A dead CMS no longer matters once the digest is cached; only the
	// related-lessons lookup degrades.
	cmsSrv.Close()

	resp, _, err := svc.Respond(context.Background(), session, &dto.ChatInbound{
		Content: "second", LessonId: "lesson-1",
	}, "tok", nil)
	require.NoError(t, err)
	assert.Empty(t, resp.RelatedLessons)
}

func TestRespondModeTravelsWithTheMessage(t *testing.T) {
	provider := &streamingStub{answer: "quiz time"}
	svc, _ := newChatFixture(t, provider)
	session := svc.Session("chat-4")

	_, _, err := svc.Respond(context.Background(), session, &dto.ChatInbound{
		Content: "quiz me", LessonId: "lesson-1", Mode: constant.ChatModeQuiz,
	}, "tok", nil)
	require.NoError(t, err)

	_, _, err = svc.Respond(context.Background(), session, &dto.ChatInbound{
		Content: "explain instead", LessonId: "lesson-1", Mode: constant.ChatModeExplanation,
	}, "tok", nil)
	require.NoError(t, err)

	require.Len(t, provider.histories, 2)
	assert.Equal(t, constant.SystemPromptForMode(constant.ChatModeQuiz), provider.histories[0][0].Content)
	assert.Equal(t, constant.SystemPromptForMode(constant.ChatModeExplanation), provider.histories[1][0].Content)
}

func TestRespondValidatesInput(t *testing.T) {
	svc, _ := newChatFixture(t, &streamingStub{answer: "x"})
	session := svc.Session("chat-5")

	_, _, err := svc.Respond(context.Background(), session, &dto.ChatInbound{
		Content: "  ", LessonId: "lesson-1",
	}, "tok", nil)
	require.Error(t, err)

	_, _, err = svc.Respond(context.Background(), session, &dto.ChatInbound{
		Content: "hello",
	}, "tok", nil)
	require.Error(t, err)
}

func TestRespondSurfacesProviderFailure(t *testing.T) {
	svc, _ := newChatFixture(t, &streamingStub{err: errors.New("model offline")})
	session := svc.Session("chat-6")

	_, _, err := svc.Respond(context.Background(), session, &dto.ChatInbound{
		Content: "hi", LessonId: "lesson-1",
	}, "tok", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model offline")

	// A failed exchange leaves no partial turns behind.
	assert.Empty(t, session.History())
}

func TestHealthAndCleanup(t *testing.T) {
	svc, _ := newChatFixture(t, &streamingStub{answer: "x"})

	svc.Session("live-1")
	svc.Session("live-2")

	health := svc.Health()
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 2, health.LiveSessions)

	// Nothing is idle yet.
	cleaned := svc.Cleanup()
	assert.Equal(t, 0, cleaned.RemovedSessions)
}

func TestExtractKeywords(t *testing.T) {
	keywords := extractKeywords("Photosynthesis converts light. Photosynthesis needs light and water.", 3)
	assert.Equal(t, []string{"light", "photosynthesis", "converts"}, keywords)
}

func TestTruncateCutsOnWordBoundary(t *testing.T) {
	out := truncate("alpha beta gamma", 10)
	assert.Equal(t, "alpha...", out)
	assert.Equal(t, "short", truncate("short", 10))
}
