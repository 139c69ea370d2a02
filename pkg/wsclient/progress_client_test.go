package wsclient

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"ai-lessongen-be/internal/model"
	"ai-lessongen-be/internal/pkg/apperrors"
	"ai-lessongen-be/pkg/retry"

	"github.com/fasthttp/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu     sync.Mutex
	frames [][]byte
	writes [][]byte
	closed bool
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.frames) == 0 {
		return 0, nil, errors.New("connection dropped")
	}
	frame := c.frames[0]
	c.frames = c.frames[1:]
	return websocket.TextMessage, frame, nil
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("write on closed connection")
	}
	c.writes = append(c.writes, data)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// fakeDialer hands out scripted connections in order, then fails.
type fakeDialer struct {
	mu    sync.Mutex
	conns []*fakeConn
	dials int
}

func (d *fakeDialer) Dial(ctx context.Context, url string) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if len(d.conns) == 0 {
		return nil, errors.New("dial refused")
	}
	conn := d.conns[0]
	d.conns = d.conns[1:]
	return conn, nil
}

func progressFrame(t *testing.T, stage model.Stage, progress int, message string) []byte {
	t.Helper()
	data, err := json.Marshal(model.ProgressEvent{
		SessionId: "sess-1",
		Stage:     stage,
		Progress:  progress,
		Message:   message,
		Timestamp: time.Now(),
	})
	require.NoError(t, err)
	return data
}

func TestProgressClientFollowsSessionToCompletion(t *testing.T) {
	dialer := &fakeDialer{conns: []*fakeConn{{frames: [][]byte{
		progressFrame(t, model.StageUpload, 0, "Upload received"),
		progressFrame(t, model.StageProcessing, 40, "Analyzing document"),
		progressFrame(t, model.StageMediaCuration, 100, "Video candidates ready"),
		progressFrame(t, model.StageSelection, 100, "Generation complete"),
	}}}}

	client := NewProgressClient("ws://test/ws/progress/sess-1", dialer, retry.Policy{MaxAttempts: 3, Interval: time.Millisecond})

	var stages []model.Stage
	client.OnEvent = func(e model.ProgressEvent) {
		stages = append(stages, e.Stage)
	}

	err := client.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.Stage{
		model.StageUpload,
		model.StageProcessing,
		model.StageMediaCuration,
		model.StageSelection,
	}, stages)

	last, ok := client.Last()
	require.True(t, ok)
	assert.Equal(t, model.StageSelection, last.Stage)
	assert.Equal(t, 100, last.Progress)
}

func TestProgressClientStopsOnTerminalStage(t *testing.T) {
	dialer := &fakeDialer{conns: []*fakeConn{{frames: [][]byte{
		progressFrame(t, model.StageProcessing, 10, "Analyzing document"),
		progressFrame(t, model.StageCancelled, 10, "Generation cancelled"),
	}}}}

	client := NewProgressClient("ws://test", dialer, retry.Policy{MaxAttempts: 3, Interval: time.Millisecond})

	err := client.Run(context.Background())
	require.NoError(t, err)

	last, ok := client.Last()
	require.True(t, ok)
	assert.Equal(t, model.StageCancelled, last.Stage)
	assert.Equal(t, 1, dialer.dials, "terminal stage must not trigger a reconnect")
}

func TestProgressClientRejectsStageRegression(t *testing.T) {
	dialer := &fakeDialer{conns: []*fakeConn{{frames: [][]byte{
		progressFrame(t, model.StageMediaCuration, 50, "Searching for related videos"),
		progressFrame(t, model.StageProcessing, 10, "Analyzing document"),
	}}}}

	client := NewProgressClient("ws://test", dialer, retry.Policy{MaxAttempts: 3, Interval: time.Millisecond})

	var fatal error
	client.OnFatal = func(err error) { fatal = err }

	err := client.Run(context.Background())
	require.Error(t, err)

	var protoErr *apperrors.ProtocolError
	require.ErrorAs(t, err, &protoErr)
	assert.Equal(t, err, fatal)
}

func TestProgressClientReconnectsWithinBudget(t *testing.T) {
	// First connection drops mid-session, second carries it to the end.
	dialer := &fakeDialer{conns: []*fakeConn{
		{frames: [][]byte{
			progressFrame(t, model.StageUpload, 0, "Upload received"),
		}},
		{frames: [][]byte{
			progressFrame(t, model.StageProcessing, 20, "Analyzing document"),
			progressFrame(t, model.StageSelection, 100, "Generation complete"),
		}},
	}}

	client := NewProgressClient("ws://test", dialer, retry.Policy{MaxAttempts: 3, Interval: time.Millisecond})

	err := client.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, dialer.dials)
}

func TestProgressClientGivesUpAfterBudget(t *testing.T) {
	dialer := &fakeDialer{} // every dial refused

	client := NewProgressClient("ws://test", dialer, retry.Policy{MaxAttempts: 2, Interval: time.Millisecond})

	fatalCalls := 0
	client.OnFatal = func(err error) { fatalCalls++ }

	err := client.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, fatalCalls, "fatal notice fires exactly once")
	assert.Equal(t, 2, dialer.dials, "no retries past the budget")
}

func TestProgressClientSnapshotRoundTrip(t *testing.T) {
	dialer := &fakeDialer{conns: []*fakeConn{{frames: [][]byte{
		progressFrame(t, model.StageSelection, 100, "Generation complete"),
	}}}}

	client := NewProgressClient("ws://test", dialer, retry.Policy{MaxAttempts: 1, Interval: time.Millisecond})
	require.NoError(t, client.Run(context.Background()))

	snapshot, err := client.Snapshot()
	require.NoError(t, err)

	restored := NewProgressClient("ws://test", dialer, retry.Policy{MaxAttempts: 1, Interval: time.Millisecond})
	require.NoError(t, restored.Restore(snapshot))

	last, ok := restored.Last()
	require.True(t, ok)
	assert.Equal(t, model.StageSelection, last.Stage)
	assert.Equal(t, "Generation complete", last.Message)

	// The regression guard survives the reload.
	err = restored.apply(model.ProgressEvent{SessionId: "sess-1", Stage: model.StageUpload})
	var protoErr *apperrors.ProtocolError
	require.ErrorAs(t, err, &protoErr)
}

func TestProgressClientSnapshotBeforeAnyEvent(t *testing.T) {
	client := NewProgressClient("ws://test", &fakeDialer{}, retry.Policy{})
	_, err := client.Snapshot()
	require.Error(t, err)
}

func TestProgressClientHonorsContextCancel(t *testing.T) {
	dialer := &fakeDialer{} // dials always fail, forcing waits
	client := NewProgressClient("ws://test", dialer, retry.Policy{MaxAttempts: 100, Interval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := client.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
