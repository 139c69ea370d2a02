package service

import (
	"context"
	"encoding/json"

	"ai-lessongen-be/internal/model"
	"ai-lessongen-be/internal/pkg/logger"
	"ai-lessongen-be/internal/websocket"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// IProgressRelayService moves progress events from the internal bus to the
// websocket hub.
type IProgressRelayService interface {
	Consume(ctx context.Context) error
}

type progressRelayService struct {
	pubSub *gochannel.GoChannel
	topic  string
	hub    *websocket.Hub
	logger logger.ILogger
}

func NewProgressRelayService(
	pubSub *gochannel.GoChannel,
	topic string,
	hub *websocket.Hub,
	log logger.ILogger,
) IProgressRelayService {
	return &progressRelayService{
		pubSub: pubSub,
		topic:  topic,
		hub:    hub,
		logger: log,
	}
}

func (rs *progressRelayService) Consume(ctx context.Context) error {
	messages, err := rs.pubSub.Subscribe(ctx, rs.topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			rs.processMessage(msg)
		}
	}()

	return nil
}

func (rs *progressRelayService) processMessage(msg *message.Message) {
	var event model.ProgressEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		// Ack malformed payloads to prevent infinite retry.
		rs.logger.Error("ProgressRelay", "Failed to unmarshal progress event", map[string]interface{}{"error": err.Error()})
		msg.Ack()
		return
	}

	rs.hub.Publish(event.SessionId, msg.Payload)

	// A terminal event is the last thing a watcher sees for the id.
	if event.Stage.Terminal() {
		rs.hub.CloseSession(event.SessionId)
	}

	msg.Ack()
}
