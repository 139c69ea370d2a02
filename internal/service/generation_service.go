package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"ai-lessongen-be/internal/dto"
	"ai-lessongen-be/internal/model"
	"ai-lessongen-be/internal/pkg/apperrors"
	"ai-lessongen-be/internal/pkg/logger"
	"ai-lessongen-be/internal/repository/archive"
	"ai-lessongen-be/internal/repository/memory"
	"ai-lessongen-be/pkg/cms"
	"ai-lessongen-be/pkg/events"
	"ai-lessongen-be/pkg/generator"
	"ai-lessongen-be/pkg/lexical"
	"ai-lessongen-be/pkg/mediasearch"
	"ai-lessongen-be/pkg/nats"

	"github.com/google/uuid"
)

const mediaSearchTimeout = 30 * time.Second

// defaultFoundationPrompt is used when the prompt file is missing or
// unreadable.
const defaultFoundationPrompt = `You are generating a structured lesson from a course document.
Produce clear sections with headings, short paragraphs and lists where they
help, plus a narration script suitable for text-to-speech and a handful of
search keywords for supporting videos.`

// UploadedDocument is the file part of a submit request.
type UploadedDocument struct {
	Filename string
	Size     int64
	Content  io.Reader
}

type IGenerationService interface {
	Submit(ctx context.Context, req *dto.SubmitLessonRequest, upload *UploadedDocument) (*dto.SubmitLessonResponse, error)
	Result(ctx context.Context, sessionId string) (*dto.LessonResultResponse, error)
	Cancel(ctx context.Context, sessionId string) error
	Cleanup(ctx context.Context, sessionId string) error
	Finalize(ctx context.Context, req *dto.FinalizeLessonRequest, token string) (*dto.FinalizeLessonResponse, error)
	FoundationPrompt() *dto.FoundationPromptResponse
}

type GenerationConfig struct {
	UploadDir            string
	MaxUploadSizeMB      int
	MaxMediaResults      int
	FoundationPromptPath string
}

type generationService struct {
	cfg         GenerationConfig
	store       *memory.GenerationStore
	archiveRepo archive.ISessionArchiveRepository
	generator   *generator.Client
	media       *mediasearch.Client
	cmsClient   *cms.Client
	progress    IProgressPublisher
	eventBus    *nats.Publisher
	logger      logger.ILogger

	promptOnce sync.Once
	prompt     string
}

func NewGenerationService(
	cfg GenerationConfig,
	store *memory.GenerationStore,
	archiveRepo archive.ISessionArchiveRepository,
	generatorClient *generator.Client,
	mediaClient *mediasearch.Client,
	cmsClient *cms.Client,
	progress IProgressPublisher,
	eventBus *nats.Publisher,
	log logger.ILogger,
) IGenerationService {
	return &generationService{
		cfg:         cfg,
		store:       store,
		archiveRepo: archiveRepo,
		generator:   generatorClient,
		media:       mediaClient,
		cmsClient:   cmsClient,
		progress:    progress,
		eventBus:    eventBus,
		logger:      log,
	}
}

// Submit validates the request, allocates a session and spawns the single
// pipeline worker. Validation failures never allocate a session.
func (s *generationService) Submit(ctx context.Context, req *dto.SubmitLessonRequest, upload *UploadedDocument) (*dto.SubmitLessonResponse, error) {
	if upload == nil || upload.Filename == "" {
		return nil, apperrors.NewValidationError("document file is required")
	}
	if ext := strings.ToLower(filepath.Ext(upload.Filename)); ext != ".pdf" {
		return nil, apperrors.NewValidationError("unsupported document type %q, only .pdf is accepted", ext)
	}
	maxBytes := int64(s.cfg.MaxUploadSizeMB) * 1024 * 1024
	if maxBytes > 0 && upload.Size > maxBytes {
		return nil, apperrors.NewValidationError("document exceeds the %dMB upload limit", s.cfg.MaxUploadSizeMB)
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.CourseId) == "" {
		return nil, apperrors.NewValidationError("title and course_id are required")
	}

	session := model.NewGenerationSession(uuid.New().String(), req.Title, req.CourseId, req.Prompt)
	session.UploadDir = filepath.Join(s.cfg.UploadDir, session.Id)
	session.Filename = filepath.Base(upload.Filename)

	if err := s.saveUpload(session, upload); err != nil {
		s.releaseTemp(session)
		return nil, apperrors.NewServiceError("upload storage", err)
	}

	s.store.Save(session)
	s.publishSnapshot(session)
	s.publishLifecycle(events.TypeSessionStarted, session)

	go s.run(session)

	return &dto.SubmitLessonResponse{SessionId: session.Id}, nil
}

func (s *generationService) saveUpload(session *model.GenerationSession, upload *UploadedDocument) error {
	if err := os.MkdirAll(session.UploadDir, 0o755); err != nil {
		return err
	}
	dst, err := os.Create(filepath.Join(session.UploadDir, session.Filename))
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, upload.Content)
	return err
}

// run is the sole mutator of the session after Submit returns. The cancel
// flag is observed between stages only; once observed, nothing further is
// published.
func (s *generationService) run(session *model.GenerationSession) {
	if s.stoppedByCancel(session) {
		return
	}

	if !s.advance(session, model.StageProcessing) {
		return
	}
	s.setProgress(session, 10, "Analyzing document")

	result, err := s.generateContent(session)
	if err != nil {
		s.failSession(session, fmt.Sprintf("Generation failed: %v", err))
		return
	}
	s.setProgress(session, 90, "Content generated")

	keywords := result.Keywords
	if len(keywords) == 0 {
		keywords = fallbackKeywords(session.Title)
		s.logger.Warn("GenerationService", "Generator returned no keywords, using fallback", map[string]interface{}{
			"session_id": session.Id,
			"keywords":   keywords,
		})
	}

	if s.stoppedByCancel(session) {
		return
	}

	if !s.advance(session, model.StageMediaCuration) {
		return
	}
	s.setProgress(session, 20, "Searching for related videos")
	candidates := s.searchMedia(session, keywords)
	s.setProgress(session, 100, "Video candidates ready")

	if s.stoppedByCancel(session) {
		return
	}

	session.SetResult(&model.GenerationResult{
		LessonData:      result.Content,
		NarrationScript: result.NarrationScript,
		MediaCandidates: candidates,
	})

	if !s.advance(session, model.StageSelection) {
		return
	}
	s.setProgress(session, 100, "Generation complete")

	s.store.MarkTerminal(session)
	s.archiveSession(session)
	s.publishLifecycle(events.TypeSessionCompleted, session)
}

func (s *generationService) generateContent(session *model.GenerationSession) (*generator.Result, error) {
	file, err := os.Open(filepath.Join(session.UploadDir, session.Filename))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	// The client carries the bounded timeout; no retry by design of the
	// submit contract.
	return s.generator.Generate(context.Background(), generator.Request{
		Document: file,
		Filename: session.Filename,
		Title:    session.Title,
		CourseId: session.CourseId,
		Prompt:   s.combinedPrompt(session.Prompt),
	})
}

// searchMedia tolerates failure: a lesson without video candidates is still
// a lesson.
func (s *generationService) searchMedia(session *model.GenerationSession, keywords []string) []model.MediaItem {
	ctx, cancel := context.WithTimeout(context.Background(), mediaSearchTimeout)
	defer cancel()

	videos, err := s.media.Search(ctx, keywords, s.cfg.MaxMediaResults)
	if err != nil {
		s.logger.Warn("GenerationService", "Media search failed, continuing without candidates", map[string]interface{}{
			"session_id": session.Id,
			"error":      err.Error(),
		})
		return nil
	}

	items := make([]model.MediaItem, 0, len(videos))
	for _, v := range videos {
		items = append(items, model.MediaItem(v))
	}
	return items
}

// Result is an idempotent pull: repeatable after completion until the
// retention window evicts the session.
func (s *generationService) Result(ctx context.Context, sessionId string) (*dto.LessonResultResponse, error) {
	session, ok := s.store.Get(sessionId)
	if !ok {
		return nil, fmt.Errorf("session %s: %w", sessionId, apperrors.ErrNotFound)
	}

	snap := session.Snapshot()
	switch snap.Stage {
	case model.StageCancelled:
		return nil, fmt.Errorf("session %s: %w", sessionId, apperrors.ErrCancelled)
	case model.StageError:
		return nil, apperrors.NewServiceError("lesson generation", errors.New(snap.Message))
	}

	result := session.Result()
	if result == nil {
		return nil, fmt.Errorf("session %s: %w", sessionId, apperrors.ErrNotReady)
	}

	return &dto.LessonResultResponse{
		SessionId:       sessionId,
		LessonData:      result.LessonData,
		MediaCandidates: result.MediaCandidates,
	}, nil
}

// Cancel transitions the session to cancelled and emits the single terminal
// event. The worker observes the flag between stages and goes quiet.
func (s *generationService) Cancel(ctx context.Context, sessionId string) error {
	session, ok := s.store.Get(sessionId)
	if !ok {
		return fmt.Errorf("session %s: %w", sessionId, apperrors.ErrNotFound)
	}

	if err := session.MarkCancelled(); err != nil {
		return apperrors.NewValidationError("session %s cannot be cancelled: %v", sessionId, err)
	}

	s.publishSnapshot(session)
	s.store.MarkTerminal(session)
	s.archiveSession(session)
	s.publishLifecycle(events.TypeSessionCancelled, session)

	// If the worker already finished there is nobody left to release the
	// temp dir.
	if session.Result() != nil {
		s.releaseTemp(session)
	}
	return nil
}

// Cleanup drops the session's temp dir and stored artifacts.
func (s *generationService) Cleanup(ctx context.Context, sessionId string) error {
	session, ok := s.store.Get(sessionId)
	if !ok {
		return fmt.Errorf("session %s: %w", sessionId, apperrors.ErrNotFound)
	}

	s.releaseTemp(session)
	s.store.Delete(sessionId)
	return nil
}

// Finalize publishes the edited lesson: narration node first and verbatim,
// then the content, then one media node per selected video.
func (s *generationService) Finalize(ctx context.Context, req *dto.FinalizeLessonRequest, token string) (*dto.FinalizeLessonResponse, error) {
	session, ok := s.store.Get(req.SessionId)
	if !ok {
		return nil, fmt.Errorf("session %s: %w", req.SessionId, apperrors.ErrNotFound)
	}
	result := session.Result()
	if result == nil {
		return nil, fmt.Errorf("session %s: %w", req.SessionId, apperrors.ErrNotReady)
	}

	edited, err := lexical.DecodeDocument(req.LessonData)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid lesson document: %v", err)
	}

	children := make([]lexical.Node, 0, len(edited.Children)+len(req.SelectedMedia)+1)

	// The editor may or may not have kept the narration node in place.
	if len(edited.Children) == 0 || !isMediaNode(edited.Children[0]) {
		if narration := firstMediaNode(result.LessonData); narration != nil {
			children = append(children, *narration)
		}
	}
	children = append(children, edited.Children...)

	videoNodes, err := s.uploadSelectedMedia(ctx, result, req.SelectedMedia, token)
	if err != nil {
		return nil, err
	}
	children = append(children, videoNodes...)

	content, err := lexical.EncodeDocument(lexical.Root{Children: children})
	if err != nil {
		return nil, apperrors.NewServiceError("document assembly", err)
	}

	if err := session.AdvanceTo(model.StageFinalize); err != nil {
		return nil, apperrors.NewValidationError("session %s cannot finalize: %v", req.SessionId, err)
	}
	s.setProgress(session, 50, "Publishing lesson")

	lessonId, err := s.cmsClient.CreateLesson(ctx, cms.CreateLessonRequest{
		Title:    req.Title,
		CourseId: req.CourseId,
		Content:  content,
	}, token)
	if err != nil {
		return nil, apperrors.NewServiceError("cms", err)
	}

	s.setProgress(session, 100, "Lesson published")
	s.store.MarkTerminal(session)
	s.archiveSession(session)
	s.releaseTemp(session)

	if s.eventBus != nil {
		if err := s.eventBus.Publish(ctx, events.NewLessonPublished(session.Id, lessonId)); err != nil {
			s.logger.Warn("GenerationService", "Failed to publish lesson event", map[string]interface{}{"error": err.Error()})
		}
	}

	return &dto.FinalizeLessonResponse{LessonId: lessonId}, nil
}

func (s *generationService) uploadSelectedMedia(ctx context.Context, result *model.GenerationResult, selected []string, token string) ([]lexical.Node, error) {
	nodes := make([]lexical.Node, 0, len(selected))
	for _, videoId := range selected {
		candidate, ok := findCandidate(result.MediaCandidates, videoId)
		if !ok {
			return nil, apperrors.NewValidationError("video %s is not among the session's candidates", videoId)
		}

		mediaDocId, err := s.cmsClient.UploadMediaByReference(ctx, candidate.VideoId, candidate.Title, token)
		if err != nil {
			return nil, apperrors.NewServiceError("cms media upload", err)
		}

		node, err := newUploadNode(mediaDocId)
		if err != nil {
			return nil, apperrors.NewServiceError("document assembly", err)
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// FoundationPrompt exposes the base prompt combined with every submission.
func (s *generationService) FoundationPrompt() *dto.FoundationPromptResponse {
	return &dto.FoundationPromptResponse{Prompt: s.foundationPrompt()}
}

func (s *generationService) foundationPrompt() string {
	s.promptOnce.Do(func() {
		s.prompt = defaultFoundationPrompt

		data, err := os.ReadFile(s.cfg.FoundationPromptPath)
		if err != nil {
			s.logger.Warn("GenerationService", "Foundation prompt file unavailable, using default", map[string]interface{}{
				"path":  s.cfg.FoundationPromptPath,
				"error": err.Error(),
			})
			return
		}

		var parsed struct {
			FoundationPrompt string `json:"foundation_prompt"`
		}
		if err := json.Unmarshal(data, &parsed); err != nil || parsed.FoundationPrompt == "" {
			s.logger.Warn("GenerationService", "Foundation prompt file malformed, using default", map[string]interface{}{
				"path": s.cfg.FoundationPromptPath,
			})
			return
		}
		s.prompt = parsed.FoundationPrompt
	})
	return s.prompt
}

func (s *generationService) combinedPrompt(userPrompt string) string {
	base := s.foundationPrompt()
	if strings.TrimSpace(userPrompt) == "" {
		return base
	}
	return base + "\n\n" + userPrompt
}

// --- worker helpers ---

func (s *generationService) advance(session *model.GenerationSession, stage model.Stage) bool {
	if err := session.AdvanceTo(stage); err != nil {
		// Lost the race with Cancel; the terminal event already went out.
		return false
	}
	s.publishSnapshot(session)
	return true
}

func (s *generationService) setProgress(session *model.GenerationSession, progress int, message string) {
	if err := session.SetProgress(progress, message); err != nil {
		return
	}
	s.publishSnapshot(session)
}

func (s *generationService) stoppedByCancel(session *model.GenerationSession) bool {
	if !session.Cancelled() {
		return false
	}
	s.releaseTemp(session)
	return true
}

func (s *generationService) failSession(session *model.GenerationSession, message string) {
	if err := session.Fail(message); err != nil {
		// Already cancelled; stay quiet.
		s.releaseTemp(session)
		return
	}
	s.publishSnapshot(session)
	s.store.MarkTerminal(session)
	s.archiveSession(session)
	s.publishLifecycle(events.TypeSessionFailed, session)
	s.releaseTemp(session)
}

func (s *generationService) publishSnapshot(session *model.GenerationSession) {
	if err := s.progress.Publish(context.Background(), session.Snapshot()); err != nil {
		s.logger.Error("GenerationService", "Failed to publish progress event", map[string]interface{}{
			"session_id": session.Id,
			"error":      err.Error(),
		})
	}
}

func (s *generationService) publishLifecycle(eventType string, session *model.GenerationSession) {
	if s.eventBus == nil {
		return
	}
	snap := session.Snapshot()
	evt := events.NewSessionEvent(eventType, session.Id, string(snap.Stage), snap.Message)
	if err := s.eventBus.Publish(context.Background(), evt); err != nil {
		s.logger.Warn("GenerationService", "Failed to publish lifecycle event", map[string]interface{}{
			"session_id": session.Id,
			"type":       eventType,
			"error":      err.Error(),
		})
	}
}

func (s *generationService) archiveSession(session *model.GenerationSession) {
	if err := s.archiveRepo.Save(context.Background(), session); err != nil {
		s.logger.Error("GenerationService", "Failed to archive session", map[string]interface{}{
			"session_id": session.Id,
			"error":      err.Error(),
		})
	}
}

func (s *generationService) releaseTemp(session *model.GenerationSession) {
	if session.UploadDir == "" {
		return
	}
	if err := os.RemoveAll(session.UploadDir); err != nil {
		s.logger.Warn("GenerationService", "Failed to remove session upload dir", map[string]interface{}{
			"session_id": session.Id,
			"error":      err.Error(),
		})
	}
}

// --- small pure helpers ---

func fallbackKeywords(title string) []string {
	var keywords []string
	for _, word := range strings.Fields(strings.ToLower(title)) {
		if len(word) > 3 {
			keywords = append(keywords, word)
		}
	}
	if len(keywords) == 0 {
		keywords = []string{"education"}
	}
	return keywords
}

func findCandidate(candidates []model.MediaItem, videoId string) (model.MediaItem, bool) {
	for _, c := range candidates {
		if c.VideoId == videoId {
			return c, true
		}
	}
	return model.MediaItem{}, false
}

func isMediaNode(n lexical.Node) bool {
	_, ok := n.(lexical.Media)
	return ok
}

// firstMediaNode pulls the narration node out of the stored generator
// output without touching its bytes.
func firstMediaNode(lessonData json.RawMessage) *lexical.Media {
	root, err := lexical.DecodeDocument(lessonData)
	if err != nil {
		return nil
	}
	for _, child := range root.Children {
		if media, ok := child.(lexical.Media); ok {
			return &media
		}
	}
	return nil
}

func newUploadNode(mediaDocId string) (lexical.Node, error) {
	// Numeric ids stay numbers on the wire, anything else gets quoted.
	value := json.RawMessage(mediaDocId)
	if !json.Valid(value) {
		quoted, err := json.Marshal(mediaDocId)
		if err != nil {
			return nil, err
		}
		value = quoted
	}
	raw, err := json.Marshal(map[string]interface{}{
		"type":       "upload",
		"version":    3,
		"format":     "",
		"id":         "media_" + mediaDocId,
		"fields":     nil,
		"relationTo": "media",
		"value":      value,
	})
	if err != nil {
		return nil, err
	}
	return lexical.Media{Raw: raw}, nil
}
