package wsclient

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"ai-lessongen-be/internal/dto"
	"ai-lessongen-be/pkg/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatFrame(t *testing.T, frame dto.ChatOutbound) []byte {
	t.Helper()
	data, err := json.Marshal(frame)
	require.NoError(t, err)
	return data
}

func TestChatClientAssemblesStreamedResponse(t *testing.T) {
	dialer := &fakeDialer{conns: []*fakeConn{{frames: [][]byte{
		chatFrame(t, dto.ChatOutbound{Type: dto.ChatOutboundTyping}),
		chatFrame(t, dto.ChatOutbound{Type: dto.ChatOutboundToken, Content: "Photosynthesis "}),
		chatFrame(t, dto.ChatOutbound{Type: dto.ChatOutboundToken, Content: "converts "}),
		chatFrame(t, dto.ChatOutbound{Type: dto.ChatOutboundToken, Content: "light energy."}),
		chatFrame(t, dto.ChatOutbound{Type: dto.ChatOutboundComplete, Suggestions: []string{"Quiz me"}}),
	}}}}

	client := NewChatClient("ws://test/ws/chat/sess-1", dialer, retry.Policy{MaxAttempts: 1, Interval: time.Millisecond})

	var tokens []string
	var responses []ChatResponse
	client.OnToken = func(fragment string) { tokens = append(tokens, fragment) }
	client.OnResponse = func(r ChatResponse) { responses = append(responses, r) }

	err := client.Run(context.Background())
	require.Error(t, err) // channel closed with the budget spent

	assert.Equal(t, []string{"Photosynthesis ", "converts ", "light energy."}, tokens)
	require.Len(t, responses, 1)
	assert.Equal(t, "Photosynthesis converts light energy.", responses[0].Content)
	assert.Equal(t, []string{"Quiz me"}, responses[0].Suggestions)
}

func TestChatClientHandlesUnstreamedResponse(t *testing.T) {
	dialer := &fakeDialer{conns: []*fakeConn{{frames: [][]byte{
		chatFrame(t, dto.ChatOutbound{Type: dto.ChatOutboundTyping}),
		chatFrame(t, dto.ChatOutbound{
			Type:        dto.ChatOutboundResponse,
			Content:     "Full answer in one piece.",
			Suggestions: []string{"Explain further"},
		}),
	}}}}

	client := NewChatClient("ws://test", dialer, retry.Policy{MaxAttempts: 1, Interval: time.Millisecond})

	var responses []ChatResponse
	client.OnResponse = func(r ChatResponse) { responses = append(responses, r) }

	_ = client.Run(context.Background())

	require.Len(t, responses, 1)
	assert.Equal(t, "Full answer in one piece.", responses[0].Content)
}

func TestChatClientSurfacesErrorFrames(t *testing.T) {
	dialer := &fakeDialer{conns: []*fakeConn{{frames: [][]byte{
		chatFrame(t, dto.ChatOutbound{Type: dto.ChatOutboundError, Message: "malformed message"}),
	}}}}

	client := NewChatClient("ws://test", dialer, retry.Policy{MaxAttempts: 1, Interval: time.Millisecond})

	var errMessages []string
	client.OnError = func(msg string) { errMessages = append(errMessages, msg) }

	_ = client.Run(context.Background())

	assert.Equal(t, []string{"malformed message"}, errMessages)
}

func TestChatClientSendBeforeConnectFails(t *testing.T) {
	client := NewChatClient("ws://test", &fakeDialer{}, retry.Policy{})
	err := client.Send("hello", "lesson-1", "default")
	require.Error(t, err)
}

func TestChatClientGivesUpAfterBudget(t *testing.T) {
	dialer := &fakeDialer{} // every dial refused

	client := NewChatClient("ws://test", dialer, retry.Policy{MaxAttempts: 3, Interval: time.Millisecond})

	fatalCalls := 0
	client.OnFatal = func(err error) { fatalCalls++ }

	err := client.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, fatalCalls)
	assert.Equal(t, 3, dialer.dials)
}
