package dto

// Inbound websocket message types.
const (
	ChatInboundMessage = "message"
	ChatInboundPing    = "ping"
)

// Outbound websocket message types.
const (
	ChatOutboundTyping   = "typing"
	ChatOutboundToken    = "token"
	ChatOutboundComplete = "complete"
	ChatOutboundResponse = "response"
	ChatOutboundError    = "error"
	ChatOutboundPong     = "pong"
)

// ChatInbound is one frame from the client.
type ChatInbound struct {
	Type     string `json:"type"`
	Content  string `json:"content,omitempty"`
	LessonId string `json:"lesson_id,omitempty"`
	Mode     string `json:"mode,omitempty"`
}

// ChatOutbound is one frame to the client.
type ChatOutbound struct {
	Type           string          `json:"type"`
	Content        string          `json:"content,omitempty"`
	RelatedLessons []RelatedLesson `json:"related_lessons,omitempty"`
	Suggestions    []string        `json:"suggestions,omitempty"`
	Message        string          `json:"message,omitempty"`
}

type RelatedLesson struct {
	Id    string `json:"id"`
	Title string `json:"title"`
}

// SendChatRequest is the non-streaming REST variant of the chat channel.
type SendChatRequest struct {
	SessionId string `json:"session_id" validate:"required"`
	LessonId  string `json:"lesson_id" validate:"required"`
	Content   string `json:"content" validate:"required"`
	Mode      string `json:"mode"`
}

type SendChatResponse struct {
	Content        string          `json:"content"`
	RelatedLessons []RelatedLesson `json:"related_lessons"`
	Suggestions    []string        `json:"suggestions"`
}

type ChatContextResponse struct {
	LessonId string   `json:"lesson_id"`
	Title    string   `json:"title"`
	Summary  string   `json:"summary"`
	Keywords []string `json:"keywords"`
}

type ChatHealthResponse struct {
	Status       string `json:"status"`
	LiveSessions int    `json:"live_sessions"`
}

type ChatCleanupResponse struct {
	RemovedSessions int `json:"removed_sessions"`
}
