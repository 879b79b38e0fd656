package shared

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingInvalidator struct {
	calls [][]string
	err   error
}

func (r *recordingInvalidator) Invalidate(_ context.Context, resources ...string) error {
	r.calls = append(r.calls, resources)
	return r.err
}

type recordingPublisher struct {
	events []Event
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, event Event) error {
	r.events = append(r.events, event)
	return r.err
}

func TestNotifierSwallowsFailures(t *testing.T) {
	inv := &recordingInvalidator{err: errors.New("redis down")}
	pub := &recordingPublisher{err: errors.New("kafka down")}
	n := Notifier{Cache: inv, Publisher: pub}

	ctx := ContextWithActor(context.Background(), 7)
	n.Changed(ctx, "sales", "commissions")
	n.Emit(ctx, "sale.created", "INV-1", map[string]any{"id": 1})

	require.Len(t, inv.calls, 1)
	assert.Equal(t, []string{"sales", "commissions"}, inv.calls[0])
	require.Len(t, pub.events, 1)
	assert.Equal(t, int64(7), pub.events[0].ActorID)
	assert.False(t, pub.events[0].At.IsZero())
}

type recordingAudit struct {
	logs []AuditLog
	err  error
}

func (r *recordingAudit) Record(_ context.Context, log AuditLog) error {
	r.logs = append(r.logs, log)
	return r.err
}

func TestNotifierRecordsAudit(t *testing.T) {
	rec := &recordingAudit{err: errors.New("pg down")}
	n := Notifier{Audit: rec}
	n.Record(context.Background(), "sale.delete", "sale", "12", map[string]any{"invoice": "INV-1"})

	require.Len(t, rec.logs, 1)
	assert.Equal(t, "sale.delete", rec.logs[0].Action)
	assert.Equal(t, "sale", rec.logs[0].Entity)
	assert.Equal(t, "12", rec.logs[0].EntityID)
	assert.Equal(t, "INV-1", rec.logs[0].Meta["invoice"])
}

func TestRecordToLogsFailedWrites(t *testing.T) {
	var buf bytes.Buffer
	n := Notifier{Logger: slog.New(slog.NewTextHandler(&buf, nil))}
	rec := &recordingAudit{err: errors.New("pg down")}

	n.RecordTo(context.Background(), rec, AuditLog{Action: "inventory.restock", EntityID: "4"})
	require.Len(t, rec.logs, 1)
	assert.Contains(t, buf.String(), "audit record failed")
	assert.Contains(t, buf.String(), "action=inventory.restock")
	assert.Contains(t, buf.String(), "pg down")

	buf.Reset()
	n.RecordTo(context.Background(), nil, AuditLog{Action: "user.create"})
	assert.Empty(t, buf.String())
}

func TestZeroNotifierIsNoop(t *testing.T) {
	var n Notifier
	n.Changed(context.Background(), "users")
	n.Emit(context.Background(), "user.created", "1", nil)
	n.Record(context.Background(), "user.create", "user", "1", nil)
}
