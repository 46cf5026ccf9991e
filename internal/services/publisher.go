package services

import (
	"context"

	"bilancio/internal/amqp"
	"bilancio/internal/log"
)

// EventPublisher announces committed writes. *amqp.Client satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, ev amqp.Event) error
}

// publish sends ev when a publisher is configured. Failures are logged and
// swallowed: the record is already committed.
func publish(ctx context.Context, p EventPublisher, ev amqp.Event, logger *log.Logger) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, ev); err != nil {
		logger.WarnContext(ctx, "Failed to publish finance event",
			log.FieldEventType, ev.Type,
			log.FieldError, err)
	}
}
