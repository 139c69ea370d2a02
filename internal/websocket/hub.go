package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"ai-lessongen-be/internal/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// clusterChannel carries progress events between instances; a session's
// websocket may be connected to a different instance than its worker.
const clusterChannel = "cluster_events"

type Hub struct {
	// Registered clients map: session id -> list of connections (multi-tab)
	clients map[string][]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Lock for safe map access
	mu sync.RWMutex

	// Redis connection for cross-instance communication
	rdb *redis.Client

	// Dedicated Logger
	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[string][]*Client),
		rdb:        rdb,
		logger:     log,
	}
}

func (h *Hub) Run() {
	if h.rdb != nil {
		go h.subscribeToRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.SessionId] = append(h.clients[client.SessionId], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"session_id": client.SessionId})

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.SessionId]; ok {
				for i, c := range clients {
					if c == client {
						h.clients[client.SessionId] = append(clients[:i], clients[i+1:]...)
						close(client.Send)
						break
					}
				}
				if len(h.clients[client.SessionId]) == 0 {
					delete(h.clients, client.SessionId)
					h.logger.Info("Hub", "Session fully disconnected", map[string]interface{}{"session_id": client.SessionId})
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish fans a progress event out to every connection watching the
// session. With redis configured the event goes through the cluster channel
// so every instance, this one included, delivers exactly once.
func (h *Hub) Publish(sessionId string, message []byte) {
	if h.rdb != nil {
		payload, _ := json.Marshal(clusterPayload{
			TargetSessionId: sessionId,
			Message:         message,
		})
		h.rdb.Publish(context.Background(), clusterChannel, payload)
		return
	}

	h.deliverLocal(sessionId, message)
}

// CloseSession drops every connection for the session. Called after the
// terminal event went out; nothing further will be delivered for the id.
func (h *Hub) CloseSession(sessionId string) {
	if h.rdb != nil {
		payload, _ := json.Marshal(clusterPayload{
			TargetSessionId: sessionId,
			Close:           true,
		})
		h.rdb.Publish(context.Background(), clusterChannel, payload)
		return
	}

	h.dropLocal(sessionId)
}

func (h *Hub) dropLocal(sessionId string) {
	h.mu.RLock()
	clients := append([]*Client(nil), h.clients[sessionId]...)
	h.mu.RUnlock()

	for _, client := range clients {
		h.unregister <- client
	}
}

func (h *Hub) deliverLocal(sessionId string, message []byte) {
	h.mu.RLock()
	clients := h.clients[sessionId]
	for _, client := range clients {
		select {
		case client.Send <- message:
		default:
			h.logger.Warn("Hub", "Client Send buffer full, dropping connection", map[string]interface{}{"session_id": sessionId})
			go func(c *Client) { h.unregister <- c }(client)
		}
	}
	h.mu.RUnlock()
}

type clusterPayload struct {
	TargetSessionId string          `json:"target_session_id"`
	Message         json.RawMessage `json:"message,omitempty"`
	Close           bool            `json:"close,omitempty"`
}

func (h *Hub) subscribeToRedis() {
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var payload clusterPayload
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			log.Printf("Redis msg parse error: %v", err)
			continue
		}

		if payload.Close {
			h.dropLocal(payload.TargetSessionId)
			continue
		}

		h.deliverLocal(payload.TargetSessionId, payload.Message)
	}
}
