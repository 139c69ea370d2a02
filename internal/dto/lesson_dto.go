package dto

import (
	"encoding/json"

	"ai-lessongen-be/internal/model"
)

// SubmitLessonRequest is the validated multipart payload of the process
// endpoint. The document itself travels separately as the uploaded file.
type SubmitLessonRequest struct {
	Title    string `json:"title" validate:"required,max=255"`
	CourseId string `json:"course_id" validate:"required"`
	Prompt   string `json:"prompt"`
}

type SubmitLessonResponse struct {
	SessionId string `json:"session_id"`
}

type LessonResultResponse struct {
	SessionId       string            `json:"session_id"`
	LessonData      json.RawMessage   `json:"lesson_data"`
	MediaCandidates []model.MediaItem `json:"media_candidates"`
}

// FinalizeLessonRequest carries the edited document, the chosen media and
// the metadata needed to publish.
type FinalizeLessonRequest struct {
	SessionId     string          `json:"session_id" validate:"required"`
	Title         string          `json:"title" validate:"required,max=255"`
	CourseId      string          `json:"course_id" validate:"required"`
	LessonData    json.RawMessage `json:"lesson_data" validate:"required"`
	SelectedMedia []string        `json:"selected_media"`
}

type FinalizeLessonResponse struct {
	LessonId string `json:"lesson_id"`
}

type FoundationPromptResponse struct {
	Prompt string `json:"prompt"`
}

type MediaSearchRequest struct {
	Keywords []string `json:"keywords" validate:"required,min=1,dive,required"`
}

type MediaSearchResponse struct {
	Videos []model.MediaItem `json:"videos"`
}

type AddMediaRequest struct {
	SessionId string `json:"session_id" validate:"required"`
	Link      string `json:"link" validate:"required,url"`
}

type AddMediaResponse struct {
	Video model.MediaItem `json:"video"`
}
