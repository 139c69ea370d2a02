package service

import (
	"context"
	"encoding/json"

	"ai-lessongen-be/internal/model"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// ProgressTopic is the in-process channel between the pipeline workers and
// the websocket relay.
const ProgressTopic = "lesson_progress"

type IProgressPublisher interface {
	Publish(ctx context.Context, event model.ProgressEvent) error
}

type progressPublisher struct {
	pubSub *gochannel.GoChannel
	topic  string
}

func NewProgressPublisher(pubSub *gochannel.GoChannel, topic string) IProgressPublisher {
	return &progressPublisher{
		pubSub: pubSub,
		topic:  topic,
	}
}

func (p *progressPublisher) Publish(ctx context.Context, event model.ProgressEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	return p.pubSub.Publish(p.topic, msg)
}
