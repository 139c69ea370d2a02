// Package wsclient holds the consumer side of the progress and chat
// websocket channels, with bounded reconnection.
package wsclient

import (
	"context"

	"github.com/fasthttp/websocket"
)

// Conn is the slice of a websocket connection the clients need.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Dialer opens websocket connections. Tests substitute fakes.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// DefaultDialer dials over the network.
func DefaultDialer() Dialer {
	return &netDialer{dialer: websocket.DefaultDialer}
}

type netDialer struct {
	dialer *websocket.Dialer
}

func (d *netDialer) Dial(ctx context.Context, url string) (Conn, error) {
	conn, resp, err := d.dialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return conn, nil
}
