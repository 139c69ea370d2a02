package handler

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"ai-lessongen-be/internal/dto"
	"ai-lessongen-be/internal/model"
	"ai-lessongen-be/internal/pkg/logger"
	"ai-lessongen-be/internal/pkg/serverutils"
	"ai-lessongen-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const (
	chatWriteWait    = 10 * time.Second
	chatResponseWait = 2 * time.Minute
	chatQueueSize    = 16
)

// ChatHandler runs the lesson chat websocket. Messages on one connection are
// answered strictly in order by a single responder goroutine; pings are
// answered immediately on the read loop.
type ChatHandler struct {
	service service.IChatService
	logger  logger.ILogger
}

func NewChatHandler(chatService service.IChatService, log logger.ILogger) *ChatHandler {
	return &ChatHandler{
		service: chatService,
		logger:  log,
	}
}

// ServeWs handles websocket requests from the peer. The token query param is
// optional; when present it must parse, and it is forwarded to the CMS for
// lesson lookups.
func (h *ChatHandler) ServeWs(c *fiber.Ctx) error {
	sessionId := c.Params("sessionId")
	tokenStr := c.Query("token")

	tokenValid := true
	if tokenStr != "" {
		if _, err := serverutils.ParseToken(tokenStr); err != nil {
			h.logger.Warn("ChatHandler", "Invalid token in chat handshake", map[string]interface{}{"error": err.Error()})
			tokenValid = false
		}
	}

	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(conn *websocket.Conn) {
			if !tokenValid {
				// Policy violation close after the upgrade so browser
				// clients see the reason.
				deadline := time.Now().Add(chatWriteWait)
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "invalid token"), deadline)
				_ = conn.Close()
				return
			}
			h.runSession(conn, sessionId, tokenStr)
		})(c)
	}
	return fiber.ErrUpgradeRequired
}

func (h *ChatHandler) runSession(conn *websocket.Conn, sessionId, token string) {
	h.logger.Info("ChatHandler", "Starting chat WebSocket session", map[string]interface{}{"session_id": sessionId})
	defer h.logger.Info("ChatHandler", "Chat WebSocket session ended", map[string]interface{}{"session_id": sessionId})

	session := h.service.Session(sessionId)

	var writeMu sync.Mutex
	write := func(frame dto.ChatOutbound) {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(chatWriteWait))
		if err := conn.WriteJSON(frame); err != nil {
			h.logger.Warn("ChatHandler", "Chat write failed", map[string]interface{}{
				"session_id": sessionId,
				"error":      err.Error(),
			})
		}
	}

	queue := make(chan dto.ChatInbound, chatQueueSize)
	done := make(chan struct{})

	// Responder: one message at a time, in arrival order.
	go func() {
		defer close(done)
		h.respondLoop(session, queue, token, write)
	}()

	for {
		var inbound dto.ChatInbound
		if err := conn.ReadJSON(&inbound); err != nil {
			if _, ok := err.(*json.SyntaxError); ok {
				write(dto.ChatOutbound{Type: dto.ChatOutboundError, Message: "malformed message"})
				continue
			}
			if _, ok := err.(*json.UnmarshalTypeError); ok {
				write(dto.ChatOutbound{Type: dto.ChatOutboundError, Message: "malformed message"})
				continue
			}
			break
		}

		switch inbound.Type {
		case dto.ChatInboundPing:
			write(dto.ChatOutbound{Type: dto.ChatOutboundPong})
		case dto.ChatInboundMessage:
			select {
			case queue <- inbound:
			default:
				write(dto.ChatOutbound{Type: dto.ChatOutboundError, Message: "too many pending messages"})
			}
		default:
			write(dto.ChatOutbound{Type: dto.ChatOutboundError, Message: "unknown message type"})
		}
	}

	close(queue)
	<-done
}

// RegisterRoutes registers the chat websocket route.
func (h *ChatHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/ws/chat/:sessionId", h.ServeWs)
}

// respondLoop drains the inbound queue one message at a time, so the frames
// of one answer never interleave with another's.
func (h *ChatHandler) respondLoop(session *model.ChatSession, queue <-chan dto.ChatInbound, token string, write func(dto.ChatOutbound)) {
	for msg := range queue {
		session.Touch()
		h.respond(session, msg, token, write)
	}
}

// respond answers one user message: typing, then tokens (or a single
// response frame when the provider can't stream), then complete.
func (h *ChatHandler) respond(session *model.ChatSession, msg dto.ChatInbound, token string, write func(dto.ChatOutbound)) {
	write(dto.ChatOutbound{Type: dto.ChatOutboundTyping})

	ctx, cancel := context.WithTimeout(context.Background(), chatResponseWait)
	defer cancel()

	onToken := func(fragment string) {
		write(dto.ChatOutbound{Type: dto.ChatOutboundToken, Content: fragment})
	}

	resp, streamed, err := h.service.Respond(ctx, session, &msg, token, onToken)
	if err != nil {
		write(dto.ChatOutbound{Type: dto.ChatOutboundError, Message: err.Error()})
		return
	}

	if !streamed {
		write(dto.ChatOutbound{
			Type:           dto.ChatOutboundResponse,
			Content:        resp.Content,
			RelatedLessons: resp.RelatedLessons,
			Suggestions:    resp.Suggestions,
		})
		return
	}

	write(dto.ChatOutbound{
		Type:           dto.ChatOutboundComplete,
		Content:        resp.Content,
		RelatedLessons: resp.RelatedLessons,
		Suggestions:    resp.Suggestions,
	})
}
