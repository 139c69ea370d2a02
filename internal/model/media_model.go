package model

// MediaItem is one curated video candidate.
type MediaItem struct {
	VideoId   string `json:"video_id"`
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail"`
	Channel   string `json:"channel"`
	Url       string `json:"url"`
}
