package handler

import (
	"encoding/json"

	"ai-lessongen-be/internal/pkg/logger"
	"ai-lessongen-be/internal/repository/memory"
	internalWS "ai-lessongen-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// ProgressHandler exposes the generation progress channel. Each connection
// gets a snapshot of the session's current state before live events.
type ProgressHandler struct {
	hub    *internalWS.Hub
	store  *memory.GenerationStore
	logger logger.ILogger
}

func NewProgressHandler(hub *internalWS.Hub, store *memory.GenerationStore, log logger.ILogger) *ProgressHandler {
	return &ProgressHandler{
		hub:    hub,
		store:  store,
		logger: log,
	}
}

// ServeWs handles websocket requests from the peer.
func (h *ProgressHandler) ServeWs(c *fiber.Ctx) error {
	sessionId := c.Params("sessionId")

	session, ok := h.store.Get(sessionId)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Unknown session"})
	}

	snapshot, err := json.Marshal(session.Snapshot())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to build snapshot"})
	}

	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(conn *websocket.Conn) {
			h.logger.Info("ProgressHandler", "Starting progress WebSocket session", map[string]interface{}{"session_id": sessionId})
			internalWS.ServeWs(h.hub, conn, sessionId, snapshot)
			h.logger.Info("ProgressHandler", "Progress WebSocket session ended", map[string]interface{}{"session_id": sessionId})
		})(c)
	}
	return fiber.ErrUpgradeRequired
}

// RegisterRoutes registers the progress websocket route.
func (h *ProgressHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/ws/progress/:sessionId", h.ServeWs)
}
