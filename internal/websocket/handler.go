package websocket

import (
	"github.com/gofiber/websocket/v2"
)

// ServeWs attaches a connection to the hub for one session. The snapshot, if
// any, is queued before registration completes so a reconnecting client sees
// the current state before any live event.
func ServeWs(hub *Hub, c *websocket.Conn, sessionId string, snapshot []byte) {
	client := &Client{Hub: hub, Conn: c, SessionId: sessionId, Send: make(chan []byte, 256)}
	if snapshot != nil {
		client.Send <- snapshot
	}
	client.Hub.register <- client

	go client.writePump()
	client.readPump() // Run readPump in current goroutine (handler)
}
