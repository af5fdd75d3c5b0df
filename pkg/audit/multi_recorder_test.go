package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureRecorder struct {
	events []*Event
	err    error
	closed bool
}

func (c *captureRecorder) Record(ctx context.Context, event *Event) error {
	if c.err != nil {
		return c.err
	}
	c.events = append(c.events, event)
	return nil
}

func (c *captureRecorder) Close() error {
	c.closed = true
	return nil
}

type captureObserver struct {
	calls []struct {
		sink   string
		failed bool
	}
}

func (o *captureObserver) ObserveAuditEvent(sink, status string, failed bool) {
	o.calls = append(o.calls, struct {
		sink   string
		failed bool
	}{sink, failed})
}

func TestMultiRecorderFanOut(t *testing.T) {
	a := &captureRecorder{}
	b := &captureRecorder{}
	m := NewMultiRecorder(nil)
	m.Add("db", a)
	m.Add("file", b)

	e := NewEvent("u1", "admin", "create", "customer", "c1", StatusSuccess)
	require.NoError(t, m.Record(context.Background(), e))
	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
}

func TestMultiRecorderFailingSinkDoesNotStopOthers(t *testing.T) {
	failing := &captureRecorder{err: errors.New("disk full")}
	healthy := &captureRecorder{}
	obs := &captureObserver{}

	m := NewMultiRecorder(obs)
	m.Add("file", failing)
	m.Add("db", healthy)

	err := m.Record(context.Background(), NewEvent("u1", "admin", "update", "vehicle", "v1", StatusSuccess))
	assert.Error(t, err, "first sink error is surfaced for logging")
	assert.Len(t, healthy.events, 1, "healthy sink still receives the event")

	require.Len(t, obs.calls, 2)
	assert.True(t, obs.calls[0].failed)
	assert.False(t, obs.calls[1].failed)
}

func TestMultiRecorderClose(t *testing.T) {
	a := &captureRecorder{}
	b := &captureRecorder{}
	m := NewMultiRecorder(nil)
	m.Add("db", a)
	m.Add("file", b)

	require.NoError(t, m.Close())
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}

func TestNopRecorder(t *testing.T) {
	var r NopRecorder
	assert.NoError(t, r.Record(context.Background(), NewEvent("u", "admin", "read", "vehicle", "v", StatusSuccess)))
	assert.NoError(t, r.Close())
}
