// Package events fans reconciliation results out as session change events.
package events

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/tutorlink/pkg/kafka"
	"github.com/Ramsey-B/tutorlink/pkg/reconcile"
)

// SessionPublisher is the producer surface the emitter needs.
type SessionPublisher interface {
	PublishSessionEvent(ctx context.Context, event *kafka.SessionEvent) error
}

// Emitter publishes one event per session touched by a reconciliation run.
// Emission is best effort: the reconciliation already committed, so publish
// failures are logged and do not fail the import.
type Emitter struct {
	publisher SessionPublisher
	logger    ectologger.Logger
}

// NewEmitter creates a new emitter. A nil publisher disables emission.
func NewEmitter(publisher SessionPublisher, logger ectologger.Logger) *Emitter {
	return &Emitter{publisher: publisher, logger: logger}
}

// EmitResult publishes created/updated/deleted events for the run.
func (e *Emitter) EmitResult(ctx context.Context, result *reconcile.Result) {
	if e.publisher == nil {
		return
	}

	e.emit(ctx, "created", result.AddedIDs)
	e.emit(ctx, "updated", result.UpdatedIDs)
	e.emit(ctx, "deleted", result.DeletedIDs)
}

func (e *Emitter) emit(ctx context.Context, eventType string, ids []int64) {
	for _, id := range ids {
		event := &kafka.SessionEvent{
			EventType: eventType,
			SessionID: id,
		}
		if err := e.publisher.PublishSessionEvent(ctx, event); err != nil {
			e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"event_type": eventType,
				"session_id": id,
			}).Error("Failed to emit session event")
		}
	}
}
