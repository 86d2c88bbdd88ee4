package services

import (
	"context"
	"log/slog"

	"kas/internal/amqp"
)

// EventPublisher is the slice of the AMQP client the services need. Nil is a
// valid publisher: events are then skipped with a warning.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, event *amqp.LedgerEvent) error
}

// publishEvent announces a committed mutation. Publish failures are logged
// and swallowed: the write already committed and the reconciler heals any
// downstream lag.
func publishEvent(ctx context.Context, events EventPublisher, entity, action string, id int64) {
	if events == nil {
		slog.WarnContext(ctx, "Event publisher not available, skipping event",
			"entity", entity, "action", action, "id", id)
		return
	}

	if err := events.PublishLedgerEvent(ctx, amqp.NewLedgerEvent(entity, action, id)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"entity", entity, "action", action, "id", id, "error", err)
	}
}
