package model

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Stage is a generation session's lifecycle stage.
type Stage string

const (
	StageUpload        Stage = "upload"
	StageProcessing    Stage = "processing"
	StageMediaCuration Stage = "media-curation"
	StageSelection     Stage = "selection"
	StageFinalize      Stage = "finalize"
	StageCancelled     Stage = "cancelled"
	StageError         Stage = "error"
)

var stageRank = map[Stage]int{
	StageUpload:        0,
	StageProcessing:    1,
	StageMediaCuration: 2,
	StageSelection:     3,
	StageFinalize:      4,
}

// Terminal reports whether no further transition is possible.
func (s Stage) Terminal() bool {
	return s == StageCancelled || s == StageError
}

// Before reports whether s comes strictly earlier than other in the forward
// stage order. Terminal stages have no position in that order.
func (s Stage) Before(other Stage) bool {
	a, okA := stageRank[s]
	b, okB := stageRank[other]
	return okA && okB && a < b
}

// ProgressEvent is the wire shape published to the progress channel.
type ProgressEvent struct {
	SessionId string    `json:"session_id"`
	Stage     Stage     `json:"stage"`
	Progress  int       `json:"progress"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// GenerationResult is the artifact a finished pipeline run leaves behind.
// LessonData is the serialized document tree exactly as the generator
// returned it, narration node included.
type GenerationResult struct {
	LessonData      json.RawMessage `json:"lesson_data"`
	NarrationScript string          `json:"narration_script,omitempty"`
	MediaCandidates []MediaItem     `json:"media_candidates"`
}

// GenerationSession tracks one lesson generation run. The worker goroutine is
// the sole mutator after creation; readers take snapshots. Stages never
// regress and progress is monotonic within a stage.
type GenerationSession struct {
	Id        string
	Title     string
	CourseId  string
	Prompt    string
	UploadDir string
	Filename  string
	CreatedAt time.Time

	mu        sync.Mutex
	stage     Stage
	progress  int
	message   string
	cancelled bool
	result    *GenerationResult
	updatedAt time.Time
}

// NewGenerationSession starts a session at the upload stage.
func NewGenerationSession(id, title, courseId, prompt string) *GenerationSession {
	now := time.Now()
	return &GenerationSession{
		Id:        id,
		Title:     title,
		CourseId:  courseId,
		Prompt:    prompt,
		CreatedAt: now,
		stage:     StageUpload,
		message:   "Upload received",
		updatedAt: now,
	}
}

// AdvanceTo moves the session forward to the next pipeline stage. Progress
// resets for the new stage. Regression and transitions out of a terminal
// stage are errors.
func (s *GenerationSession) AdvanceTo(next Stage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stage.Terminal() {
		return fmt.Errorf("session %s is already terminal (%s)", s.Id, s.stage)
	}
	if next.Terminal() {
		return fmt.Errorf("use Fail or MarkCancelled for terminal stage %s", next)
	}
	if stageRank[next] <= stageRank[s.stage] {
		return fmt.Errorf("session %s: stage cannot move from %s to %s", s.Id, s.stage, next)
	}

	s.stage = next
	s.progress = 0
	s.message = ""
	s.updatedAt = time.Now()
	return nil
}

// SetProgress updates progress within the current stage. Progress only moves
// forward and stays in [0,100].
func (s *GenerationSession) SetProgress(progress int, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stage.Terminal() {
		return fmt.Errorf("session %s is already terminal (%s)", s.Id, s.stage)
	}
	if progress < s.progress {
		return fmt.Errorf("session %s: progress cannot move from %d to %d within stage %s",
			s.Id, s.progress, progress, s.stage)
	}
	if progress > 100 {
		return fmt.Errorf("session %s: progress %d out of range", s.Id, progress)
	}

	s.progress = progress
	s.message = message
	s.updatedAt = time.Now()
	return nil
}

// Fail transitions to the error stage with the given message.
func (s *GenerationSession) Fail(message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stage.Terminal() {
		return fmt.Errorf("session %s is already terminal (%s)", s.Id, s.stage)
	}
	s.stage = StageError
	s.message = message
	s.updatedAt = time.Now()
	return nil
}

// MarkCancelled sets the cancel flag and transitions to the cancelled stage.
// The flag is what the worker polls between stages; the transition is what
// observers see.
func (s *GenerationSession) MarkCancelled() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stage.Terminal() {
		return fmt.Errorf("session %s is already terminal (%s)", s.Id, s.stage)
	}
	s.cancelled = true
	s.stage = StageCancelled
	s.message = "Generation cancelled"
	s.updatedAt = time.Now()
	return nil
}

// Cancelled reports whether a cancel was requested.
func (s *GenerationSession) Cancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

// Terminal reports whether the session reached a terminal stage.
func (s *GenerationSession) Terminal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage.Terminal()
}

// Stage returns the current stage.
func (s *GenerationSession) Stage() Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage
}

// SetResult stores the finished pipeline artifact.
func (s *GenerationSession) SetResult(result *GenerationResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = result
	s.updatedAt = time.Now()
}

// Result returns the stored artifact, nil while the pipeline is running.
// Callers get their own copy; the candidate slice is never shared with a
// concurrent AppendCandidate.
func (s *GenerationSession) Result() *GenerationResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return nil
	}
	cp := *s.result
	cp.MediaCandidates = append([]MediaItem(nil), s.result.MediaCandidates...)
	return &cp
}

// AppendCandidate adds a manually picked media candidate to the stored
// result. Duplicates by video id return the existing entry unchanged.
func (s *GenerationSession) AppendCandidate(item MediaItem) (MediaItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return MediaItem{}, fmt.Errorf("session %s has no result yet", s.Id)
	}
	for _, c := range s.result.MediaCandidates {
		if c.VideoId == item.VideoId {
			return c, nil
		}
	}
	s.result.MediaCandidates = append(s.result.MediaCandidates, item)
	s.updatedAt = time.Now()
	return item, nil
}

// Snapshot captures the current state as a progress event.
func (s *GenerationSession) Snapshot() ProgressEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ProgressEvent{
		SessionId: s.Id,
		Stage:     s.stage,
		Progress:  s.progress,
		Message:   s.message,
		Timestamp: s.updatedAt,
	}
}
