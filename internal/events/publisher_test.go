package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopdesk/shopdesk/internal/shared"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

type observed struct {
	types []string
	errs  []error
}

func (o *observed) ObserveEvent(eventType string, err error) {
	o.types = append(o.types, eventType)
	o.errs = append(o.errs, err)
}

func TestKafkaPublisherWritesKeyedJSON(t *testing.T) {
	w := &fakeWriter{}
	obs := &observed{}
	p := newKafkaPublisher(w, obs, nil)
	at := time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC)

	err := p.Publish(context.Background(), shared.Event{Type: "sale.created", Key: "INV-20240401-ABCDEF", ActorID: 3, At: at, Payload: map[string]any{"sale_id": 9}})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "INV-20240401-ABCDEF", string(msg.Key))
	assert.Equal(t, at, msg.Time)
	assert.Equal(t, "event-type", msg.Headers[0].Key)
	assert.Equal(t, "sale.created", string(msg.Headers[0].Value))

	var decoded shared.Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, int64(3), decoded.ActorID)
	assert.Equal(t, []string{"sale.created"}, obs.types)
	assert.Nil(t, obs.errs[0])

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisherReportsFailures(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker unavailable")}
	obs := &observed{}
	p := newKafkaPublisher(w, obs, nil)

	err := p.Publish(context.Background(), shared.Event{Type: "commission.paid", Key: "4"})
	assert.ErrorContains(t, err, "broker unavailable")
	require.Len(t, obs.errs, 1)
	assert.Error(t, obs.errs[0])
}

func TestNoBrokersDisablesPublisher(t *testing.T) {
	p := NewKafkaPublisher(nil, "shopdesk.events", nil, nil)
	assert.Nil(t, p)
	assert.NoError(t, p.Publish(context.Background(), shared.Event{Type: "x"}))
	assert.NoError(t, p.Close())
}

type recorder struct {
	got []shared.Event
	err error
}

func (r *recorder) Publish(_ context.Context, e shared.Event) error {
	r.got = append(r.got, e)
	return r.err
}

func TestFanoutDeliversToAllAndJoinsErrors(t *testing.T) {
	first := &recorder{err: errors.New("first failed")}
	second := &recorder{}
	var disabled *KafkaPublisher

	err := Fanout{first, nil, disabled, second}.Publish(context.Background(), shared.Event{Type: "service_request.created"})
	assert.ErrorContains(t, err, "first failed")
	assert.Len(t, first.got, 1)
	assert.Len(t, second.got, 1)
}
