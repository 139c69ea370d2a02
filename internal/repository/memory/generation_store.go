package memory

import (
	"time"

	"ai-lessongen-be/internal/model"

	"github.com/patrickmn/go-cache"
)

// GenerationStore holds live generation sessions. Active sessions never
// expire; terminal sessions get the retention TTL and are purged by the
// cache janitor.
type GenerationStore struct {
	cache     *cache.Cache
	retention time.Duration
}

func NewGenerationStore(retention time.Duration) *GenerationStore {
	if retention <= 0 {
		retention = time.Hour
	}
	return &GenerationStore{
		cache:     cache.New(cache.NoExpiration, 10*time.Minute),
		retention: retention,
	}
}

func (s *GenerationStore) Save(session *model.GenerationSession) {
	s.cache.Set(session.Id, session, cache.NoExpiration)
}

func (s *GenerationStore) Get(sessionId string) (*model.GenerationSession, bool) {
	if x, found := s.cache.Get(sessionId); found {
		return x.(*model.GenerationSession), true
	}
	return nil, false
}

// MarkTerminal rearms the entry with the retention TTL so a finished
// session stays pollable for a while and then vanishes.
func (s *GenerationStore) MarkTerminal(session *model.GenerationSession) {
	s.cache.Set(session.Id, session, s.retention)
}

func (s *GenerationStore) Delete(sessionId string) {
	s.cache.Delete(sessionId)
}
