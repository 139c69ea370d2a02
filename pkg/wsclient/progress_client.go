package wsclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"ai-lessongen-be/internal/model"
	"ai-lessongen-be/internal/pkg/apperrors"
	"ai-lessongen-be/pkg/retry"

	"github.com/fasthttp/websocket"
)

// ProgressClient follows one generation session's progress channel. The
// server sends a snapshot on connect and live events after it; the client
// holds only the latest event, so a reconnect (which replays a snapshot)
// replaces rather than appends.
type ProgressClient struct {
	url    string
	dialer Dialer
	policy retry.Policy

	// OnEvent fires for every accepted event, snapshot replays included.
	OnEvent func(model.ProgressEvent)
	// OnFatal fires once when the client gives up: protocol violation or
	// reconnection budget spent.
	OnFatal func(error)

	mu      sync.Mutex
	last    model.ProgressEvent
	hasLast bool
}

func NewProgressClient(url string, dialer Dialer, policy retry.Policy) *ProgressClient {
	return &ProgressClient{
		url:    url,
		dialer: dialer,
		policy: policy,
	}
}

// Run drives the channel until the session reaches a terminal stage or a
// success end-state, the context ends, or the client gives up. The error it
// returns is the one OnFatal saw, nil on a clean finish.
func (c *ProgressClient) Run(ctx context.Context) error {
	failed := 0
	for {
		conn, err := c.dialer.Dial(ctx, c.url)
		if err != nil {
			failed++
			if c.policy.Exhausted(failed) {
				return c.fatal(fmt.Errorf("progress channel: %d connection attempts failed, last: %w", failed, err))
			}
			if err := c.wait(ctx, c.policy.Delay(failed)); err != nil {
				return err
			}
			continue
		}

		finished, err := c.consume(ctx, conn)
		conn.Close()
		if finished {
			return nil
		}
		if err != nil {
			var protoErr *apperrors.ProtocolError
			if errors.As(err, &protoErr) {
				return c.fatal(err)
			}
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		failed++
		if c.policy.Exhausted(failed) {
			return c.fatal(fmt.Errorf("progress channel: reconnection budget spent after %d attempts", failed))
		}
		if err := c.wait(ctx, c.policy.Delay(failed)); err != nil {
			return err
		}
	}
}

// consume reads events until the channel closes. finished is true when the
// session needs no further watching.
func (c *ProgressClient) consume(ctx context.Context, conn Conn) (bool, error) {
	for {
		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			return false, err
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var event model.ProgressEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return false, apperrors.NewProtocolError("progress channel sent a malformed event: %v", err)
		}

		if err := c.apply(event); err != nil {
			return false, err
		}

		if event.Stage.Terminal() || (event.Stage == model.StageSelection && event.Progress >= 100) {
			return true, nil
		}
	}
}

// apply replaces the held event, rejecting stage regressions. Within a stage
// a lower progress value from a reconnect snapshot is accepted as the
// server's authoritative state.
func (c *ProgressClient) apply(event model.ProgressEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.hasLast && event.Stage.Before(c.last.Stage) {
		return apperrors.NewProtocolError("progress channel regressed from stage %s to %s", c.last.Stage, event.Stage)
	}

	c.last = event
	c.hasLast = true
	if c.OnEvent != nil {
		c.OnEvent(event)
	}
	return nil
}

// Snapshot serializes the latest event so a reloaded consumer can resume
// with its regression guard intact.
func (c *ProgressClient) Snapshot() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasLast {
		return nil, fmt.Errorf("no progress observed yet")
	}
	return json.Marshal(c.last)
}

// Restore primes the client from a serialized snapshot.
func (c *ProgressClient) Restore(data []byte) error {
	var event model.ProgressEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("invalid progress snapshot: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = event
	c.hasLast = true
	return nil
}

// Last returns the latest accepted event.
func (c *ProgressClient) Last() (model.ProgressEvent, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last, c.hasLast
}

func (c *ProgressClient) fatal(err error) error {
	if c.OnFatal != nil {
		c.OnFatal(err)
	}
	return err
}

func (c *ProgressClient) wait(ctx context.Context, d time.Duration) error {
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
