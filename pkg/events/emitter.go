package events

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/adpulse/adsync/pkg/tracing"
)

// Event types emitted around sync runs
const (
	EventAccountSynced = "account.synced"
	EventEntitySynced  = "entity.synced"
	EventSyncCompleted = "sync.completed"
)

// Publisher is the subset of Producer the emitter needs
type Publisher interface {
	Publish(ctx context.Context, event *SyncEvent) error
}

// Emitter emits sync lifecycle events. A nil publisher turns every emit into
// a no-op, so Kafka stays optional.
type Emitter struct {
	publisher Publisher
	logger    ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(publisher Publisher, logger ectologger.Logger) *Emitter {
	return &Emitter{
		publisher: publisher,
		logger:    logger,
	}
}

// EmitAccountSynced emits an account.synced event after one account's data
// lands in the store
func (e *Emitter) EmitAccountSynced(ctx context.Context, accountID, entityType string, processed, errors int) {
	if e == nil || e.publisher == nil {
		return
	}
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitAccountSynced")
	defer span.End()

	event := &SyncEvent{
		EventType:  EventAccountSynced,
		AccountID:  accountID,
		EntityType: entityType,
		Processed:  processed,
		Errors:     errors,
	}

	if err := e.publisher.Publish(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit account.synced event")
	}
}

// EmitSyncCompleted emits a sync.completed event when a whole job run ends
func (e *Emitter) EmitSyncCompleted(ctx context.Context, job string, processed, errors int, duration time.Duration) {
	if e == nil || e.publisher == nil {
		return
	}
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitSyncCompleted")
	defer span.End()

	event := &SyncEvent{
		EventType:  EventSyncCompleted,
		Job:        job,
		Processed:  processed,
		Errors:     errors,
		DurationMs: duration.Milliseconds(),
	}

	if err := e.publisher.Publish(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit sync.completed event")
	}
}
