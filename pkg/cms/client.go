// Package cms wraps the headless CMS that stores finished lessons. The CMS
// expects its own "JWT <token>" authorization scheme; user credentials pass
// through verbatim and are never stored here.
package cms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

type Client struct {
	baseURL string
	client  *http.Client
}

// Lesson is a stored lesson document. Content is the serialized editor state.
type Lesson struct {
	Id      string          `json:"id"`
	Title   string          `json:"title"`
	Content json.RawMessage `json:"content"`
}

// LessonSummary is the lightweight shape returned by search.
type LessonSummary struct {
	Id    string `json:"id"`
	Title string `json:"title"`
}

// CreateLessonRequest is the payload for publishing a finished lesson.
type CreateLessonRequest struct {
	Title    string          `json:"title"`
	CourseId string          `json:"course"`
	Content  json.RawMessage `json:"content"`
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// FetchLesson loads one lesson by id.
func (c *Client) FetchLesson(ctx context.Context, lessonId, token string) (*Lesson, error) {
	respBytes, err := c.do(ctx, "GET", "/api/lessons/"+lessonId, nil, token)
	if err != nil {
		return nil, err
	}

	var lesson Lesson
	if err := json.Unmarshal(respBytes, &lesson); err != nil {
		return nil, fmt.Errorf("unmarshal lesson: %w", err)
	}
	return &lesson, nil
}

type searchEnvelope struct {
	Docs []LessonSummary `json:"docs"`
}

// SearchLessons finds lessons whose title contains the keyword, excluding the
// lesson the search originates from.
func (c *Client) SearchLessons(ctx context.Context, keyword, excludeId, token string) ([]LessonSummary, error) {
	q := url.Values{}
	q.Set("where[title][contains]", keyword)
	if excludeId != "" {
		q.Set("where[id][not_equals]", excludeId)
	}

	respBytes, err := c.do(ctx, "GET", "/api/lessons?"+q.Encode(), nil, token)
	if err != nil {
		return nil, err
	}

	var env searchEnvelope
	if err := json.Unmarshal(respBytes, &env); err != nil {
		return nil, fmt.Errorf("unmarshal search result: %w", err)
	}

	// The exclusion also runs client side; not every CMS filter honors
	// not_equals on the id column.
	out := env.Docs[:0]
	for _, doc := range env.Docs {
		if doc.Id != excludeId {
			out = append(out, doc)
		}
	}
	return out, nil
}

type uploadByReferenceRequest struct {
	ExternalRef string `json:"external_ref"`
	Title       string `json:"title"`
}

type uploadResponse struct {
	Doc struct {
		Id json.Number `json:"id"`
	} `json:"doc"`
}

// UploadMediaByReference registers an external media reference with the CMS
// and returns the created media document id.
func (c *Client) UploadMediaByReference(ctx context.Context, externalRef, title, token string) (string, error) {
	body, err := json.Marshal(uploadByReferenceRequest{ExternalRef: externalRef, Title: title})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	respBytes, err := c.do(ctx, "POST", "/api/media", bytes.NewBuffer(body), token)
	if err != nil {
		return "", err
	}

	var parsed uploadResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return "", fmt.Errorf("unmarshal upload result: %w", err)
	}
	if parsed.Doc.Id == "" {
		return "", fmt.Errorf("cms error: upload returned no media id")
	}
	return parsed.Doc.Id.String(), nil
}

type createResponse struct {
	Doc struct {
		Id string `json:"id"`
	} `json:"doc"`
}

// CreateLesson publishes a lesson and returns the created id.
func (c *Client) CreateLesson(ctx context.Context, lesson CreateLessonRequest, token string) (string, error) {
	body, err := json.Marshal(lesson)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	respBytes, err := c.do(ctx, "POST", "/api/lessons", bytes.NewBuffer(body), token)
	if err != nil {
		return "", err
	}

	var parsed createResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return "", fmt.Errorf("unmarshal create result: %w", err)
	}
	if parsed.Doc.Id == "" {
		return "", fmt.Errorf("cms error: create returned no lesson id")
	}
	return parsed.Doc.Id, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, token string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "JWT "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cms request failed: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("cms error: status %d, body: %s", resp.StatusCode, string(respBytes))
	}
	return respBytes, nil
}
