package model

import (
	"sync"
	"time"
)

// historyLimit caps per-session chat history; older entries are dropped.
const historyLimit = 20

// ChatMessage is one turn in a chat session's history.
type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// LessonContext is the cached, chat-ready digest of one lesson.
type LessonContext struct {
	LessonId  string    `json:"lesson_id"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	Keywords  []string  `json:"keywords"`
	FetchedAt time.Time `json:"fetched_at"`
}

// ChatSession holds a conversation's history and cached lesson contexts.
// The response loop serializes message handling per session; this struct only
// guards its own fields.
type ChatSession struct {
	Id        string
	CreatedAt time.Time

	mu           sync.Mutex
	history      []ChatMessage
	contexts     map[string]*LessonContext
	lastActivity time.Time
}

func NewChatSession(id string) *ChatSession {
	now := time.Now()
	return &ChatSession{
		Id:           id,
		CreatedAt:    now,
		contexts:     make(map[string]*LessonContext),
		lastActivity: now,
	}
}

// Append records a turn, trimming history beyond the cap.
func (s *ChatSession) Append(role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, ChatMessage{Role: role, Content: content, Timestamp: time.Now()})
	if len(s.history) > historyLimit {
		s.history = s.history[len(s.history)-historyLimit:]
	}
	s.lastActivity = time.Now()
}

// History returns a copy of the current history.
func (s *ChatSession) History() []ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ChatMessage, len(s.history))
	copy(out, s.history)
	return out
}

// Context returns the cached context for a lesson, if any.
func (s *ChatSession) Context(lessonId string) (*LessonContext, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, ok := s.contexts[lessonId]
	return ctx, ok
}

// SetContext caches a lesson context.
func (s *ChatSession) SetContext(ctx *LessonContext) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contexts[ctx.LessonId] = ctx
	s.lastActivity = time.Now()
}

// Touch bumps the activity timestamp.
func (s *ChatSession) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = time.Now()
}

// IdleSince reports whether the session saw no activity for the duration.
func (s *ChatSession) IdleSince(d time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastActivity) > d
}
