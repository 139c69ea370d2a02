package model

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvanceToFollowsStageOrder(t *testing.T) {
	s := NewGenerationSession("s1", "Biology 101", "course-1", "")

	require.NoError(t, s.AdvanceTo(StageProcessing))
	require.NoError(t, s.AdvanceTo(StageMediaCuration))
	require.NoError(t, s.AdvanceTo(StageSelection))
	assert.Equal(t, StageSelection, s.Stage())
}

func TestAdvanceToRejectsRegression(t *testing.T) {
	s := NewGenerationSession("s1", "Biology 101", "course-1", "")
	require.NoError(t, s.AdvanceTo(StageMediaCuration))

	err := s.AdvanceTo(StageProcessing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot move")
	assert.Equal(t, StageMediaCuration, s.Stage())
}

func TestAdvanceToRejectsSameStage(t *testing.T) {
	s := NewGenerationSession("s1", "Biology 101", "course-1", "")
	require.NoError(t, s.AdvanceTo(StageProcessing))
	assert.Error(t, s.AdvanceTo(StageProcessing))
}

func TestProgressMonotonicWithinStage(t *testing.T) {
	s := NewGenerationSession("s1", "Biology 101", "course-1", "")
	require.NoError(t, s.AdvanceTo(StageProcessing))

	require.NoError(t, s.SetProgress(30, "Extracting text"))
	require.NoError(t, s.SetProgress(30, "Extracting text"))
	require.NoError(t, s.SetProgress(70, "Generating content"))

	err := s.SetProgress(50, "rewind")
	require.Error(t, err)

	snap := s.Snapshot()
	assert.Equal(t, 70, snap.Progress)
	assert.Equal(t, "Generating content", snap.Message)
}

func TestProgressResetsOnNewStage(t *testing.T) {
	s := NewGenerationSession("s1", "Biology 101", "course-1", "")
	require.NoError(t, s.AdvanceTo(StageProcessing))
	require.NoError(t, s.SetProgress(90, "almost"))

	require.NoError(t, s.AdvanceTo(StageMediaCuration))
	assert.Equal(t, 0, s.Snapshot().Progress)
	require.NoError(t, s.SetProgress(10, "Searching videos"))
}

func TestTerminalStagesAreFinal(t *testing.T) {
	tests := []struct {
		name string
		end  func(*GenerationSession) error
	}{
		{"cancelled", (*GenerationSession).MarkCancelled},
		{"error", func(s *GenerationSession) error { return s.Fail("Generation failed: upstream timeout") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewGenerationSession("s1", "Biology 101", "course-1", "")
			require.NoError(t, s.AdvanceTo(StageProcessing))
			require.NoError(t, tt.end(s))

			assert.True(t, s.Terminal())
			assert.Error(t, s.AdvanceTo(StageSelection))
			assert.Error(t, s.SetProgress(100, "done"))
			assert.Error(t, s.Fail("again"))
			assert.Error(t, s.MarkCancelled())
		})
	}
}

func TestMarkCancelledSetsFlag(t *testing.T) {
	s := NewGenerationSession("s1", "Biology 101", "course-1", "")
	assert.False(t, s.Cancelled())

	require.NoError(t, s.MarkCancelled())
	assert.True(t, s.Cancelled())
	assert.Equal(t, StageCancelled, s.Snapshot().Stage)
	assert.Equal(t, "Generation cancelled", s.Snapshot().Message)
}

func TestAppendCandidateRequiresResult(t *testing.T) {
	s := NewGenerationSession("s1", "Biology 101", "course-1", "")

	_, err := s.AppendCandidate(MediaItem{VideoId: "dQw4w9WgXcQ"})
	assert.Error(t, err)
}

func TestAppendCandidateSkipsDuplicates(t *testing.T) {
	s := NewGenerationSession("s1", "Biology 101", "course-1", "")
	s.SetResult(&GenerationResult{MediaCandidates: []MediaItem{
		{VideoId: "dQw4w9WgXcQ", Title: "Original"},
	}})

	got, err := s.AppendCandidate(MediaItem{VideoId: "dQw4w9WgXcQ", Title: "Replacement"})
	require.NoError(t, err)
	assert.Equal(t, "Original", got.Title)
	assert.Len(t, s.Result().MediaCandidates, 1)
}

func TestAppendCandidateSafeWithConcurrentReaders(t *testing.T) {
	s := NewGenerationSession("s1", "Biology 101", "course-1", "")
	s.SetResult(&GenerationResult{})

	const n = 50
	var wg sync.WaitGroup
	wg.Add(2 * n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			_, err := s.AppendCandidate(MediaItem{VideoId: fmt.Sprintf("video%07d", i)})
			assert.NoError(t, err)
		}(i)
		go func() {
			defer wg.Done()
			if r := s.Result(); r != nil {
				_ = len(r.MediaCandidates)
			}
		}()
	}
	wg.Wait()

	assert.Len(t, s.Result().MediaCandidates, n)
}

func TestChatHistoryCap(t *testing.T) {
	s := NewChatSession("c1")
	for i := 0; i < 25; i++ {
		s.Append("user", "question")
		s.Append("assistant", "answer")
	}

	history := s.History()
	assert.Len(t, history, 20)
	assert.Equal(t, "assistant", history[len(history)-1].Role)
}

func TestChatContextCache(t *testing.T) {
	s := NewChatSession("c1")

	_, ok := s.Context("lesson-1")
	assert.False(t, ok)

	s.SetContext(&LessonContext{LessonId: "lesson-1", Title: "Photosynthesis"})
	ctx, ok := s.Context("lesson-1")
	require.True(t, ok)
	assert.Equal(t, "Photosynthesis", ctx.Title)
}
