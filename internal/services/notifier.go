package services

import (
	"context"

	"spry/internal/amqp"
	"spry/internal/log"
)

// EventPublisher is satisfied by *amqp.Client.
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev *amqp.ChangeEvent) error
}

// Invalidator drops cached read models for a user.
type Invalidator interface {
	Invalidate(userID int64)
}

// Notifier fans a committed change out to caches and the event bus. A nil
// Notifier does nothing.
type Notifier struct {
	publisher    EventPublisher
	invalidators []Invalidator
	logger       *log.Logger
}

func NewNotifier(publisher EventPublisher, invalidators ...Invalidator) *Notifier {
	return &Notifier{
		publisher:    publisher,
		invalidators: invalidators,
		logger:       log.Default().WithComponent(log.ComponentAMQP),
	}
}

// Changed runs after commit. Publishing is best-effort: the change is
// already durable, so a failed publish is logged and swallowed.
func (n *Notifier) Changed(ctx context.Context, kind amqp.EventKind, userID, subjectID int64) {
	if n == nil {
		return
	}
	for _, inv := range n.invalidators {
		inv.Invalidate(userID)
	}

	if n.publisher == nil {
		n.logger.DebugContext(ctx, "AMQP publisher not available, skipping change event",
			log.FieldEventKind, kind)
		return
	}

	ev := amqp.NewChangeEvent(kind, userID, subjectID)
	if err := n.publisher.PublishEvent(ctx, ev); err != nil {
		n.logger.ErrorContext(ctx, "Failed to publish change event",
			log.FieldEventID, ev.ID,
			log.FieldEventKind, kind,
			log.FieldUserID, userID,
			log.FieldError, err)
	}
}
