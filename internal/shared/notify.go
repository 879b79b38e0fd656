package shared

import (
	"context"
	"log/slog"
	"time"
)

// Invalidator drops cached reads for the named resources.
type Invalidator interface {
	Invalidate(ctx context.Context, resources ...string) error
}

// Event is a domain event emitted after a committed write.
type Event struct {
	Type    string    `json:"type"`
	Key     string    `json:"key"`
	ActorID int64     `json:"actor_id,omitempty"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload,omitempty"`
}

// Publisher ships domain events to interested consumers.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Notifier bundles the post-commit side effects every service performs.
// Failures are logged and never surface to the caller: the write is already
// durable at this point.
type Notifier struct {
	Cache     Invalidator
	Publisher Publisher
	Audit     AuditRecorder
	Logger    *slog.Logger
}

// Changed invalidates the given resources.
func (n Notifier) Changed(ctx context.Context, resources ...string) {
	if n.Cache == nil || len(resources) == 0 {
		return
	}
	if err := n.Cache.Invalidate(ctx, resources...); err != nil {
		n.logger().Warn("cache invalidation failed", slog.Any("resources", resources), slog.Any("error", err))
	}
}

// Emit publishes a domain event stamped with the acting user.
func (n Notifier) Emit(ctx context.Context, eventType, key string, payload any) {
	if n.Publisher == nil {
		return
	}
	evt := Event{Type: eventType, Key: key, ActorID: ActorFromContext(ctx), At: time.Now().UTC(), Payload: payload}
	if err := n.Publisher.Publish(ctx, evt); err != nil {
		n.logger().Warn("event publish failed", slog.String("type", eventType), slog.Any("error", err))
	}
}

// Record appends an audit row for the acting user.
func (n Notifier) Record(ctx context.Context, action, entity, entityID string, meta map[string]any) {
	n.RecordTo(ctx, n.Audit, AuditLog{Action: action, Entity: entity, EntityID: entityID, Meta: meta})
}

// RecordTo writes entry to rec, which may be nil. A failed write is logged.
func (n Notifier) RecordTo(ctx context.Context, rec AuditRecorder, entry AuditLog) {
	if rec == nil {
		return
	}
	if err := rec.Record(ctx, entry); err != nil {
		n.logger().Warn("audit record failed",
			slog.String("action", entry.Action),
			slog.String("entity_id", entry.EntityID),
			slog.Any("error", err))
	}
}

func (n Notifier) logger() *slog.Logger {
	if n.Logger != nil {
		return n.Logger
	}
	return slog.Default()
}
