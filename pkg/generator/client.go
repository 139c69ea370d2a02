// Package generator wraps the lesson content generator service. The service
// is a black box: a document plus prompt goes in, a document tree with
// narration script and search keywords comes out.
package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

type Client struct {
	baseURL string
	client  *http.Client
}

// Request carries one generation job. Document is consumed fully.
type Request struct {
	Document io.Reader
	Filename string
	Title    string
	CourseId string
	Prompt   string
}

// Result is the generator's response. Content is the serialized document
// tree exactly as produced, narration node included.
type Result struct {
	Content         json.RawMessage `json:"content"`
	NarrationScript string          `json:"narration_script"`
	Keywords        []string        `json:"keywords"`
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Generate submits the document and blocks until the generator responds or
// the client timeout fires. There is no retry; the caller owns recovery.
func (c *Client) Generate(ctx context.Context, job Request) (*Result, error) {
	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)

	go func() {
		err := writeForm(form, job)
		if cerr := form.Close(); err == nil {
			err = cerr
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/generate", pr)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generator request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("generator error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var result Result
	if err := json.Unmarshal(bodyBytes, &result); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(result.Content) == 0 {
		return nil, fmt.Errorf("generator error: empty content")
	}
	return &result, nil
}

func writeForm(form *multipart.Writer, job Request) error {
	part, err := form.CreateFormFile("file", job.Filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, job.Document); err != nil {
		return err
	}
	fields := map[string]string{
		"title":     job.Title,
		"course_id": job.CourseId,
		"prompt":    job.Prompt,
	}
	for name, value := range fields {
		if err := form.WriteField(name, value); err != nil {
			return err
		}
	}
	return nil
}
