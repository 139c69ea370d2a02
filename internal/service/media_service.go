package service

import (
	"context"
	"fmt"

	"ai-lessongen-be/internal/dto"
	"ai-lessongen-be/internal/model"
	"ai-lessongen-be/internal/pkg/apperrors"
	"ai-lessongen-be/internal/pkg/logger"
	"ai-lessongen-be/internal/repository/memory"
	"ai-lessongen-be/pkg/mediasearch"
)

type IMediaService interface {
	Search(ctx context.Context, req *dto.MediaSearchRequest) (*dto.MediaSearchResponse, error)
	Add(ctx context.Context, req *dto.AddMediaRequest) (*dto.AddMediaResponse, error)
}

type mediaService struct {
	client     *mediasearch.Client
	store      *memory.GenerationStore
	maxResults int
	logger     logger.ILogger
}

func NewMediaService(client *mediasearch.Client, store *memory.GenerationStore, maxResults int, log logger.ILogger) IMediaService {
	return &mediaService{
		client:     client,
		store:      store,
		maxResults: maxResults,
		logger:     log,
	}
}

func (s *mediaService) Search(ctx context.Context, req *dto.MediaSearchRequest) (*dto.MediaSearchResponse, error) {
	videos, err := s.client.Search(ctx, req.Keywords, s.maxResults)
	if err != nil {
		return nil, apperrors.NewServiceError("media search", err)
	}

	items := make([]model.MediaItem, 0, len(videos))
	for _, v := range videos {
		items = append(items, model.MediaItem(v))
	}
	return &dto.MediaSearchResponse{Videos: items}, nil
}

// Add resolves a pasted video link and appends it to the session's candidate
// list so it becomes selectable during finalize.
func (s *mediaService) Add(ctx context.Context, req *dto.AddMediaRequest) (*dto.AddMediaResponse, error) {
	videoId := mediasearch.ExtractVideoId(req.Link)
	if videoId == "" {
		return nil, apperrors.NewValidationError("link %q does not contain a recognizable video id", req.Link)
	}

	session, ok := s.store.Get(req.SessionId)
	if !ok {
		return nil, fmt.Errorf("session %s: %w", req.SessionId, apperrors.ErrNotFound)
	}
	result := session.Result()
	if result == nil {
		return nil, fmt.Errorf("session %s: %w", req.SessionId, apperrors.ErrNotReady)
	}

	if existing, found := findCandidate(result.MediaCandidates, videoId); found {
		return &dto.AddMediaResponse{Video: existing}, nil
	}

	video, err := s.client.Lookup(ctx, videoId)
	if err != nil {
		return nil, apperrors.NewServiceError("media lookup", err)
	}

	// The append runs under the session lock; a concurrent add of the same
	// video resolves to whichever entry landed first.
	item, err := session.AppendCandidate(model.MediaItem(*video))
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", req.SessionId, apperrors.ErrNotReady)
	}

	s.logger.Info("MediaService", "Manually added video candidate", map[string]interface{}{
		"session_id": req.SessionId,
		"video_id":   videoId,
	})

	return &dto.AddMediaResponse{Video: item}, nil
}
