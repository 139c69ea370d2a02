package wsclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"ai-lessongen-be/internal/dto"
	"ai-lessongen-be/pkg/retry"

	"github.com/fasthttp/websocket"
)

// ChatResponse is one assembled assistant answer.
type ChatResponse struct {
	Content        string
	RelatedLessons []dto.RelatedLesson
	Suggestions    []string
}

// ChatClient drives the lesson chat channel. Responses arrive serialized, so
// one token buffer for the single in-flight answer is enough.
type ChatClient struct {
	url    string
	dialer Dialer
	policy retry.Policy

	// OnToken fires per streamed fragment.
	OnToken func(fragment string)
	// OnResponse fires once per answered message, streamed or not.
	OnResponse func(ChatResponse)
	// OnError fires for server error frames.
	OnError func(message string)
	// OnFatal fires once when reconnection is exhausted.
	OnFatal func(error)

	mu       sync.Mutex
	conn     Conn
	inflight strings.Builder
}

func NewChatClient(url string, dialer Dialer, policy retry.Policy) *ChatClient {
	return &ChatClient{
		url:    url,
		dialer: dialer,
		policy: policy,
	}
}

// Send submits one user message. Mode travels with the message, so switching
// modes applies from the next answer on.
func (c *ChatClient) Send(content, lessonId, mode string) error {
	frame, err := json.Marshal(dto.ChatInbound{
		Type:     dto.ChatInboundMessage,
		Content:  content,
		LessonId: lessonId,
		Mode:     mode,
	})
	if err != nil {
		return err
	}
	return c.write(frame)
}

// Ping checks channel liveness.
func (c *ChatClient) Ping() error {
	frame, err := json.Marshal(dto.ChatInbound{Type: dto.ChatInboundPing})
	if err != nil {
		return err
	}
	return c.write(frame)
}

func (c *ChatClient) write(frame []byte) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("chat channel is not connected")
	}
	return conn.WriteMessage(websocket.TextMessage, frame)
}

// Run keeps the channel open until the context ends or the reconnection
// budget is spent.
func (c *ChatClient) Run(ctx context.Context) error {
	failed := 0
	for {
		conn, err := c.dialer.Dial(ctx, c.url)
		if err != nil {
			failed++
			if c.policy.Exhausted(failed) {
				return c.fatal(fmt.Errorf("chat channel: %d connection attempts failed, last: %w", failed, err))
			}
			if err := c.wait(ctx, c.policy.Delay(failed)); err != nil {
				return err
			}
			continue
		}

		c.setConn(conn)
		c.consume(conn)
		c.setConn(nil)
		conn.Close()

		if ctx.Err() != nil {
			return ctx.Err()
		}

		failed++
		if c.policy.Exhausted(failed) {
			return c.fatal(fmt.Errorf("chat channel: reconnection budget spent after %d attempts", failed))
		}
		if err := c.wait(ctx, c.policy.Delay(failed)); err != nil {
			return err
		}
	}
}

func (c *ChatClient) consume(conn Conn) error {
	for {
		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var frame dto.ChatOutbound
		if err := json.Unmarshal(payload, &frame); err != nil {
			continue
		}
		c.handle(frame)
	}
}

// handle assembles the single in-flight answer in arrival order.
func (c *ChatClient) handle(frame dto.ChatOutbound) {
	switch frame.Type {
	case dto.ChatOutboundTyping:
		c.mu.Lock()
		c.inflight.Reset()
		c.mu.Unlock()

	case dto.ChatOutboundToken:
		c.mu.Lock()
		c.inflight.WriteString(frame.Content)
		c.mu.Unlock()
		if c.OnToken != nil {
			c.OnToken(frame.Content)
		}

	case dto.ChatOutboundComplete:
		c.mu.Lock()
		content := c.inflight.String()
		c.inflight.Reset()
		c.mu.Unlock()
		if c.OnResponse != nil {
			c.OnResponse(ChatResponse{
				Content:        content,
				RelatedLessons: frame.RelatedLessons,
				Suggestions:    frame.Suggestions,
			})
		}

	case dto.ChatOutboundResponse:
		c.mu.Lock()
		c.inflight.Reset()
		c.mu.Unlock()
		if c.OnResponse != nil {
			c.OnResponse(ChatResponse{
				Content:        frame.Content,
				RelatedLessons: frame.RelatedLessons,
				Suggestions:    frame.Suggestions,
			})
		}

	case dto.ChatOutboundError:
		if c.OnError != nil {
			c.OnError(frame.Message)
		}
	}
}

func (c *ChatClient) setConn(conn Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

func (c *ChatClient) fatal(err error) error {
	if c.OnFatal != nil {
		c.OnFatal(err)
	}
	return err
}

func (c *ChatClient) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
