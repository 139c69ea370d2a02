package service

import (
	"context"

	"ai-lessongen-be/internal/pkg/logger"
	"ai-lessongen-be/pkg/events"
	"ai-lessongen-be/pkg/nats"
)

const lifecycleDurableName = "lesson-lifecycle-audit"

// ILifecycleAuditService consumes session lifecycle events off NATS and
// writes them to the audit log. Other deployments hang their own consumers
// off the same stream.
type ILifecycleAuditService interface {
	Start() error
}

type lifecycleAuditService struct {
	subscriber *nats.Subscriber
	logger     logger.ILogger
}

func NewLifecycleAuditService(subscriber *nats.Subscriber, log logger.ILogger) ILifecycleAuditService {
	return &lifecycleAuditService{
		subscriber: subscriber,
		logger:     log,
	}
}

func (s *lifecycleAuditService) Start() error {
	if s.subscriber == nil {
		return nil
	}
	return s.subscriber.Subscribe("lessons.>", lifecycleDurableName, s.handle)
}

func (s *lifecycleAuditService) handle(ctx context.Context, event events.Event) error {
	s.logger.Info("LifecycleAudit", event.EventType(), event.Payload())
	return nil
}
