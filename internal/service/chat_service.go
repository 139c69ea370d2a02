package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"ai-lessongen-be/internal/constant"
	"ai-lessongen-be/internal/dto"
	"ai-lessongen-be/internal/model"
	"ai-lessongen-be/internal/pkg/apperrors"
	"ai-lessongen-be/internal/pkg/logger"
	"ai-lessongen-be/internal/repository/memory"
	"ai-lessongen-be/pkg/cms"
	"ai-lessongen-be/pkg/lexical"
	"ai-lessongen-be/pkg/llm"
)

const (
	chatSummaryLimit = 1200
	chatKeywordLimit = 8
)

type IChatService interface {
	// Respond handles one user message end to end. When onToken is non-nil
	// and the provider supports streaming, tokens are forwarded as they
	// arrive and streamed is true; otherwise the full answer comes back in
	// one piece.
	Respond(ctx context.Context, session *model.ChatSession, msg *dto.ChatInbound, token string, onToken llm.TokenHandler) (resp *dto.SendChatResponse, streamed bool, err error)
	Send(ctx context.Context, req *dto.SendChatRequest, token string) (*dto.SendChatResponse, error)
	ContextInfo(ctx context.Context, lessonId, token string) (*dto.ChatContextResponse, error)
	Related(ctx context.Context, lessonId, token string) ([]dto.RelatedLesson, error)
	Health() *dto.ChatHealthResponse
	Cleanup() *dto.ChatCleanupResponse
	Session(sessionId string) *model.ChatSession
}

type chatService struct {
	provider  llm.LLMProvider
	cmsClient *cms.Client
	store     *memory.ChatStore
	logger    logger.ILogger
}

func NewChatService(provider llm.LLMProvider, cmsClient *cms.Client, store *memory.ChatStore, log logger.ILogger) IChatService {
	return &chatService{
		provider:  provider,
		cmsClient: cmsClient,
		store:     store,
		logger:    log,
	}
}

func (s *chatService) Session(sessionId string) *model.ChatSession {
	return s.store.GetOrCreate(sessionId)
}

func (s *chatService) Respond(ctx context.Context, session *model.ChatSession, msg *dto.ChatInbound, token string, onToken llm.TokenHandler) (*dto.SendChatResponse, bool, error) {
	if strings.TrimSpace(msg.Content) == "" {
		return nil, false, apperrors.NewValidationError("message content is required")
	}
	if msg.LessonId == "" {
		return nil, false, apperrors.NewValidationError("lesson_id is required")
	}

	lessonCtx, err := s.lessonContext(ctx, session, msg.LessonId, token)
	if err != nil {
		return nil, false, err
	}

	history := s.buildHistory(session, lessonCtx, msg.Mode, msg.Content)

	var answer string
	streamed := false
	if streamer, ok := s.provider.(llm.StreamingProvider); ok && onToken != nil {
		answer, err = streamer.StreamChat(ctx, history, onToken)
		streamed = true
	} else {
		answer, err = s.provider.Chat(ctx, history)
	}
	if err != nil {
		return nil, false, apperrors.NewServiceError("llm", err)
	}

	session.Append(constant.ChatMessageRoleUser, msg.Content)
	session.Append(constant.ChatMessageRoleAssistant, answer)

	related, err := s.Related(ctx, msg.LessonId, token)
	if err != nil {
		s.logger.Warn("ChatService", "Related lesson lookup failed", map[string]interface{}{
			"lesson_id": msg.LessonId,
			"error":     err.Error(),
		})
		related = nil
	}

	return &dto.SendChatResponse{
		Content:        answer,
		RelatedLessons: related,
		Suggestions:    constant.SuggestionsForMode(msg.Mode),
	}, streamed, nil
}

// Send is the REST variant: same pipeline, never streams.
func (s *chatService) Send(ctx context.Context, req *dto.SendChatRequest, token string) (*dto.SendChatResponse, error) {
	session := s.store.GetOrCreate(req.SessionId)
	resp, _, err := s.Respond(ctx, session, &dto.ChatInbound{
		Type:     dto.ChatInboundMessage,
		Content:  req.Content,
		LessonId: req.LessonId,
		Mode:     req.Mode,
	}, token, nil)
	return resp, err
}

func (s *chatService) ContextInfo(ctx context.Context, lessonId, token string) (*dto.ChatContextResponse, error) {
	lessonCtx, err := s.fetchContext(ctx, lessonId, token)
	if err != nil {
		return nil, err
	}
	return &dto.ChatContextResponse{
		LessonId: lessonCtx.LessonId,
		Title:    lessonCtx.Title,
		Summary:  lessonCtx.Summary,
		Keywords: lessonCtx.Keywords,
	}, nil
}

func (s *chatService) Related(ctx context.Context, lessonId, token string) ([]dto.RelatedLesson, error) {
	lesson, err := s.cmsClient.FetchLesson(ctx, lessonId, token)
	if err != nil {
		return nil, apperrors.NewServiceError("cms", err)
	}

	summaries, err := s.cmsClient.SearchLessons(ctx, firstWords(lesson.Title, 3), lessonId, token)
	if err != nil {
		return nil, apperrors.NewServiceError("cms", err)
	}

	related := make([]dto.RelatedLesson, 0, len(summaries))
	for _, summary := range summaries {
		related = append(related, dto.RelatedLesson{Id: summary.Id, Title: summary.Title})
	}
	return related, nil
}

func (s *chatService) Health() *dto.ChatHealthResponse {
	return &dto.ChatHealthResponse{
		Status:       "ok",
		LiveSessions: s.store.Count(),
	}
}

func (s *chatService) Cleanup() *dto.ChatCleanupResponse {
	removed := s.store.Cleanup()
	if removed > 0 {
		s.logger.Info("ChatService", "Removed idle chat sessions", map[string]interface{}{"count": removed})
	}
	return &dto.ChatCleanupResponse{RemovedSessions: removed}
}

// lessonContext returns the session's cached digest for the lesson, fetching
// and caching it on first use.
func (s *chatService) lessonContext(ctx context.Context, session *model.ChatSession, lessonId, token string) (*model.LessonContext, error) {
	if cached, ok := session.Context(lessonId); ok {
		return cached, nil
	}
	lessonCtx, err := s.fetchContext(ctx, lessonId, token)
	if err != nil {
		return nil, err
	}
	session.SetContext(lessonCtx)
	return lessonCtx, nil
}

func (s *chatService) fetchContext(ctx context.Context, lessonId, token string) (*model.LessonContext, error) {
	lesson, err := s.cmsClient.FetchLesson(ctx, lessonId, token)
	if err != nil {
		return nil, apperrors.NewServiceError("cms", err)
	}

	var plain string
	if root, decodeErr := lexical.DecodeDocument(lesson.Content); decodeErr == nil {
		plain = lexical.PlainText(root)
	} else {
		s.logger.Warn("ChatService", "Lesson content is not a parsable document", map[string]interface{}{
			"lesson_id": lessonId,
			"error":     decodeErr.Error(),
		})
	}

	return &model.LessonContext{
		LessonId:  lessonId,
		Title:     lesson.Title,
		Summary:   truncate(plain, chatSummaryLimit),
		Keywords:  extractKeywords(lesson.Title+" "+plain, chatKeywordLimit),
		FetchedAt: time.Now(),
	}, nil
}

// buildHistory assembles the prompt: mode system prompt, lesson digest,
// prior turns, then the new user message.
func (s *chatService) buildHistory(session *model.ChatSession, lessonCtx *model.LessonContext, mode, content string) []llm.Message {
	past := session.History()
	history := make([]llm.Message, 0, len(past)+3)

	history = append(history, llm.Message{
		Role:    constant.ChatMessageRoleSystem,
		Content: constant.SystemPromptForMode(mode),
	})
	history = append(history, llm.Message{
		Role: constant.ChatMessageRoleSystem,
		Content: fmt.Sprintf("The student is studying the lesson %q. Lesson summary:\n%s",
			lessonCtx.Title, lessonCtx.Summary),
	})
	for _, turn := range past {
		history = append(history, llm.Message{Role: turn.Role, Content: turn.Content})
	}
	history = append(history, llm.Message{Role: constant.ChatMessageRoleUser, Content: content})
	return history
}

// --- text helpers ---

var keywordStopwords = map[string]struct{}{
	"about": {}, "after": {}, "also": {}, "because": {}, "been": {},
	"before": {}, "between": {}, "could": {}, "each": {}, "from": {},
	"have": {}, "into": {}, "more": {}, "other": {}, "should": {},
	"that": {}, "their": {}, "there": {}, "these": {}, "they": {},
	"this": {}, "those": {}, "what": {}, "when": {}, "where": {},
	"which": {}, "while": {}, "will": {}, "with": {}, "would": {},
}

func extractKeywords(text string, limit int) []string {
	freq := make(map[string]int)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,;:!?()[]\"'")
		if len(word) < 4 {
			continue
		}
		if _, stop := keywordStopwords[word]; stop {
			continue
		}
		freq[word]++
	}

	words := make([]string, 0, len(freq))
	for word := range freq {
		words = append(words, word)
	}
	sort.Slice(words, func(i, j int) bool {
		if freq[words[i]] != freq[words[j]] {
			return freq[words[i]] > freq[words[j]]
		}
		return words[i] < words[j]
	})

	if len(words) > limit {
		words = words[:limit]
	}
	return words
}

func truncate(text string, limit int) string {
	text = strings.TrimSpace(text)
	if len(text) <= limit {
		return text
	}
	cut := text[:limit]
	if idx := strings.LastIndexByte(cut, ' '); idx > 0 {
		cut = cut[:idx]
	}
	return cut + "..."
}

func firstWords(text string, n int) string {
	fields := strings.Fields(text)
	if len(fields) > n {
		fields = fields[:n]
	}
	return strings.Join(fields, " ")
}
