package audit

import (
	"context"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/xela07ax/campusface-client/internal/connectors"
	"github.com/xela07ax/campusface-client/internal/domain"
	"github.com/xela07ax/campusface-client/internal/infra/auth"
	"github.com/xela07ax/campusface-client/internal/reconcile"
	"go.uber.org/zap"
)

type memStorage struct {
	mu      sync.Mutex
	events  []DecisionEvent
	batches int
}

func (m *memStorage) WriteBatch(_ context.Context, events []DecisionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	m.batches++
	return nil
}

func (m *memStorage) all() []DecisionEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]DecisionEvent(nil), m.events...)
}

func TestJournalDrainsOnStop(t *testing.T) {
	store := &memStorage{}
	j := NewJournal(store, zap.NewNop(), prometheus.NewGauge(prometheus.GaugeOpts{Name: "fill"}))
	j.Start()

	for range 250 {
		j.Log(DecisionEvent{RequestID: "r", Decision: "APPROVE", Outcome: OutcomeConfirmed})
	}
	j.Stop()

	events := store.all()
	if len(events) != 250 {
		t.Fatalf("flushed %d events", len(events))
	}
	if events[0].ID == "" || events[0].Timestamp.IsZero() {
		t.Errorf("id and timestamp must be set: %+v", events[0])
	}
	if store.batches < 3 {
		t.Errorf("expected batched writes, got %d batches", store.batches)
	}

	// после Stop события отбрасываются без паники
	j.Log(DecisionEvent{RequestID: "late"})
	j.Stop()
	if len(store.all()) != 250 {
		t.Error("event logged after stop")
	}
}

func TestJournalObservesHolder(t *testing.T) {
	store := &memStorage{}
	j := NewJournal(store, zap.NewNop(), nil)
	j.Start()

	mock := connectors.NewMockRequestService(
		domain.Request{ID: "ok", Scope: "org-1"},
		domain.Request{ID: "bad", Scope: "org-1"},
	)
	mock.FailIDs["bad"] = "Erro 500: boom"
	h := reconcile.NewHolder(mock, domain.KindEntry, reconcile.WithObserver(j))

	ctx := context.Background()
	cred := auth.Bearer("token-abcdefgh")
	if err := h.Load(ctx, cred, "org-1"); err != nil {
		t.Fatal(err)
	}
	if err := h.Approve(ctx, cred, "ok").Wait(ctx); err != nil {
		t.Fatal(err)
	}
	if err := h.Reject(ctx, cred, "bad").Wait(ctx); err == nil {
		t.Fatal("expected failure")
	}
	j.Stop()

	byRequest := map[string]DecisionEvent{}
	for _, e := range store.all() {
		byRequest[e.RequestID] = e
	}
	if e := byRequest["ok"]; e.Outcome != OutcomeConfirmed || e.Decision != "APPROVE" || e.Scope != "org-1" {
		t.Errorf("confirmed event = %+v", e)
	}
	if e := byRequest["bad"]; e.Outcome != OutcomeRolledBack || !e.RolledBack || e.Message != "Erro 500: boom" || e.Kind != "ENTRY" {
		t.Errorf("rolled back event = %+v", e)
	}
}
