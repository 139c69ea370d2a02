// Package mediasearch wraps the video search service used for lesson media
// curation.
package mediasearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"
)

// videoIdPattern matches the 11-character id in watch and short-link URLs.
var videoIdPattern = regexp.MustCompile(`(?:v=|youtu\.be/)([A-Za-z0-9_-]{11})`)

// Video is one search result.
type Video struct {
	VideoId   string `json:"video_id"`
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail"`
	Channel   string `json:"channel"`
	Url       string `json:"url"`
}

type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type searchRequest struct {
	Keywords   []string `json:"keywords"`
	MaxResults int      `json:"max_results"`
}

type searchResponse struct {
	Videos []Video `json:"videos"`
}

// Search returns candidate videos for the given keywords, at most maxResults.
func (c *Client) Search(ctx context.Context, keywords []string, maxResults int) ([]Video, error) {
	body, err := json.Marshal(searchRequest{Keywords: keywords, MaxResults: maxResults})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	respBytes, err := c.do(ctx, "POST", "/search", bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}

	var parsed searchResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return parsed.Videos, nil
}

// Lookup resolves a single video by id, for add-by-link.
func (c *Client) Lookup(ctx context.Context, videoId string) (*Video, error) {
	respBytes, err := c.do(ctx, "GET", "/videos/"+videoId, nil)
	if err != nil {
		return nil, err
	}

	var video Video
	if err := json.Unmarshal(respBytes, &video); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if video.VideoId == "" {
		return nil, fmt.Errorf("media search error: video %s not found", videoId)
	}
	return &video, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("media search request failed: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("media search error: status %d, body: %s", resp.StatusCode, string(respBytes))
	}
	return respBytes, nil
}

// ExtractVideoId pulls the 11-character video id out of a watch or share
// link. Empty result means the link is not recognized.
func ExtractVideoId(link string) string {
	m := videoIdPattern.FindStringSubmatch(link)
	if m == nil {
		return ""
	}
	return m[1]
}
