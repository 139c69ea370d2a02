package memory

import (
	"time"

	"ai-lessongen-be/internal/model"

	"github.com/patrickmn/go-cache"
)

// ChatStore holds chat sessions keyed by session id. Sessions expire after
// the idle window; Cleanup sweeps eagerly for the maintenance endpoint.
type ChatStore struct {
	cache *cache.Cache
	idle  time.Duration
}

func NewChatStore(idle time.Duration) *ChatStore {
	if idle <= 0 {
		idle = 24 * time.Hour
	}
	return &ChatStore{
		cache: cache.New(idle, 30*time.Minute),
		idle:  idle,
	}
}

// GetOrCreate returns the session for the id, allocating on first use.
func (s *ChatStore) GetOrCreate(sessionId string) *model.ChatSession {
	if x, found := s.cache.Get(sessionId); found {
		session := x.(*model.ChatSession)
		// Rearm the TTL; activity keeps a session alive.
		s.cache.Set(sessionId, session, cache.DefaultExpiration)
		return session
	}
	session := model.NewChatSession(sessionId)
	s.cache.Set(sessionId, session, cache.DefaultExpiration)
	return session
}

func (s *ChatStore) Get(sessionId string) (*model.ChatSession, bool) {
	if x, found := s.cache.Get(sessionId); found {
		return x.(*model.ChatSession), true
	}
	return nil, false
}

func (s *ChatStore) Delete(sessionId string) {
	s.cache.Delete(sessionId)
}

// Count returns the number of live sessions.
func (s *ChatStore) Count() int {
	return s.cache.ItemCount()
}

// Cleanup drops sessions idle past the window and returns how many went.
func (s *ChatStore) Cleanup() int {
	removed := 0
	for id, item := range s.cache.Items() {
		session, ok := item.Object.(*model.ChatSession)
		if !ok {
			continue
		}
		if session.IdleSince(s.idle) {
			s.cache.Delete(id)
			removed++
		}
	}
	return removed
}
