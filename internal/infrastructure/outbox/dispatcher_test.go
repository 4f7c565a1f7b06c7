package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/taller-compras/internal/domain/entity"
	"github.com/jhoicas/taller-compras/internal/domain/event"
	"github.com/jhoicas/taller-compras/internal/domain/repository"
	"github.com/jhoicas/taller-compras/internal/infrastructure/memory"
)

type recordingHook struct {
	mu    sync.Mutex
	jobs  []string
	err   error
	calls int
}

func (h *recordingHook) RecomputeLinkedJobCosts(_ context.Context, jobID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	h.jobs = append(h.jobs, jobID)
	return h.err
}

var t0 = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func seedEvent(t *testing.T, store *memory.Store, id, jobID string) {
	t.Helper()
	payload, version, err := event.EncodeJobCostRecompute(event.JobCostRecomputeV1{JobID: jobID, OrderID: "o-1", OrderCode: "OC-1"})
	require.NoError(t, err)
	seedRaw(t, store, &entity.OutboxEvent{
		ID:            id,
		Type:          event.TypeJobCostRecompute,
		Version:       version,
		AggregateID:   "o-1",
		Payload:       payload,
		Status:        entity.OutboxPending,
		MaxAttempts:   3,
		NextAttemptAt: t0,
		CreatedAt:     t0,
	})
}

func seedRaw(t *testing.T, store *memory.Store, ev *entity.OutboxEvent) {
	t.Helper()
	require.NoError(t, store.Run(context.Background(), func(s repository.Store) error {
		return s.Outbox.Create(context.Background(), ev)
	}))
}

func newDispatcher(store *memory.Store, hook *recordingHook, now *time.Time) *Dispatcher {
	d := NewDispatcher(store, hook, Config{BatchSize: 10}, nil)
	d.now = func() time.Time { return *now }
	return d
}

func TestRunOnce_MarksDeliveredEventsSent(t *testing.T) {
	store := memory.NewStore()
	seedEvent(t, store, "ev-1", "OT-1")
	seedEvent(t, store, "ev-2", "OT-2")
	hook := &recordingHook{}
	now := t0
	d := newDispatcher(store, hook, &now)

	res, err := d.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, BatchResult{Sent: 2}, res)
	assert.Equal(t, []string{"OT-1", "OT-2"}, hook.jobs)

	for _, ev := range store.OutboxEvents() {
		assert.Equal(t, entity.OutboxSent, ev.Status)
		require.NotNil(t, ev.SentAt)
	}

	// Un segundo ciclo no reenvía.
	res, err = d.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, BatchResult{}, res)
	assert.Equal(t, 2, hook.calls)
}

func TestRunOnce_FailureBacksOffThenDies(t *testing.T) {
	store := memory.NewStore()
	seedEvent(t, store, "ev-1", "OT-1")
	hook := &recordingHook{err: errors.New("timeout")}
	now := t0
	d := newDispatcher(store, hook, &now)

	res, err := d.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, BatchResult{Failed: 1}, res)
	ev := store.OutboxEvents()[0]
	assert.Equal(t, entity.OutboxFailed, ev.Status)
	assert.Equal(t, 1, ev.Attempts)
	assert.Equal(t, "timeout", ev.LastError)
	assert.Equal(t, t0.Add(time.Second), ev.NextAttemptAt)

	// Antes del backoff no se reintenta.
	res, err = d.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, BatchResult{}, res)

	now = t0.Add(time.Second)
	res, err = d.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, BatchResult{Failed: 1}, res)
	assert.Equal(t, now.Add(2*time.Second), store.OutboxEvents()[0].NextAttemptAt)

	now = now.Add(2 * time.Second)
	res, err = d.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, BatchResult{Dead: 1}, res)
	assert.Equal(t, entity.OutboxDead, store.OutboxEvents()[0].Status)

	now = now.Add(time.Hour)
	res, err = d.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, BatchResult{}, res)
	assert.Equal(t, 3, hook.calls)
}

func TestRunOnce_UndecodableEventsFail(t *testing.T) {
	store := memory.NewStore()
	seedRaw(t, store, &entity.OutboxEvent{
		ID: "ev-unknown", Type: "stock.changed", Version: 1, Payload: []byte(`{}`),
		Status: entity.OutboxPending, MaxAttempts: 5, NextAttemptAt: t0, CreatedAt: t0,
	})
	seedRaw(t, store, &entity.OutboxEvent{
		ID: "ev-v9", Type: event.TypeJobCostRecompute, Version: 9, Payload: []byte(`{"job_id":"OT-1"}`),
		Status: entity.OutboxPending, MaxAttempts: 5, NextAttemptAt: t0, CreatedAt: t0,
	})
	hook := &recordingHook{}
	now := t0
	d := newDispatcher(store, hook, &now)

	res, err := d.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, BatchResult{Failed: 2}, res)
	assert.Zero(t, hook.calls)
	for _, ev := range store.OutboxEvents() {
		assert.Equal(t, entity.OutboxFailed, ev.Status)
		assert.NotEmpty(t, ev.LastError)
	}
}

func TestRunOnce_UpdateErrorRollsBackBatch(t *testing.T) {
	store := memory.NewStore()
	seedEvent(t, store, "ev-1", "OT-1")
	store.InjectError(memory.OpUpdateOutbox, errors.New("db caída"))
	hook := &recordingHook{}
	now := t0
	d := newDispatcher(store, hook, &now)

	_, err := d.RunOnce(context.Background())
	require.Error(t, err)
	assert.Equal(t, entity.OutboxPending, store.OutboxEvents()[0].Status)
}

func TestStartStop(t *testing.T) {
	store := memory.NewStore()
	seedEvent(t, store, "ev-1", "OT-1")
	hook := &recordingHook{}
	d := NewDispatcher(store, hook, Config{PollInterval: 5 * time.Millisecond, BatchSize: 10}, nil)
	d.now = func() time.Time { return t0 }

	d.Start(context.Background())
	assert.Eventually(t, func() bool {
		return store.OutboxEvents()[0].Status == entity.OutboxSent
	}, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, d.Stop(ctx))
}
