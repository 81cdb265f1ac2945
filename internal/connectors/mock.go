package connectors

import (
	"context"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/xela07ax/campusface-client/internal/domain"
	"github.com/xela07ax/campusface-client/internal/infra/auth"
)

// MockRequestService - сервис заявок в памяти для режима --sandbox и тестов.
// Решение по заявке меняет ее статус, и она пропадает из List.
type MockRequestService struct {
	mu    sync.Mutex
	items map[string][]domain.Request // scope -> заявки в порядке подачи

	// Latency - верхняя граница имитируемой задержки, 0 - без задержки
	Latency time.Duration
	// FailIDs - заявки, решение по которым завершится отказом с этим сообщением
	FailIDs map[string]string
	// ListFailure - непустое значение ломает List
	ListFailure string

	calls map[string]int
}

func NewMockRequestService(seed ...domain.Request) *MockRequestService {
	m := &MockRequestService{
		items:   make(map[string][]domain.Request),
		FailIDs: make(map[string]string),
		calls:   make(map[string]int),
	}
	for _, r := range seed {
		m.Add(r)
	}
	return m
}

func (m *MockRequestService) Add(r domain.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.Status == "" {
		r.Status = domain.StatusPending
	}
	m.items[r.Scope] = append(m.items[r.Scope], r)
}

// Calls - сколько раз вызывали метод ("list", "approve", "reject").
func (m *MockRequestService) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

func (m *MockRequestService) List(ctx context.Context, cred auth.Credential, scope string) ([]domain.Request, error) {
	if err := m.wait(ctx); err != nil {
		return nil, domain.AsFailure(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["list"]++

	if cred.IsZero() {
		return nil, domain.Fail("unauthorized")
	}
	if m.ListFailure != "" {
		return nil, domain.Fail(m.ListFailure)
	}
	out := make([]domain.Request, 0)
	for _, r := range m.items[scope] {
		if r.Status == domain.StatusPending {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MockRequestService) Approve(ctx context.Context, cred auth.Credential, id string) error {
	return m.decide(ctx, cred, id, domain.StatusApproved, "approve")
}

func (m *MockRequestService) Reject(ctx context.Context, cred auth.Credential, id string) error {
	return m.decide(ctx, cred, id, domain.StatusDenied, "reject")
}

func (m *MockRequestService) decide(ctx context.Context, cred auth.Credential, id string, next domain.RequestStatus, method string) error {
	if err := m.wait(ctx); err != nil {
		return domain.AsFailure(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[method]++

	if cred.IsZero() {
		return domain.Fail("unauthorized")
	}
	if msg, ok := m.FailIDs[id]; ok {
		return domain.Fail(msg)
	}
	for scope, list := range m.items {
		i := slices.IndexFunc(list, func(r domain.Request) bool { return r.ID == id })
		if i < 0 {
			continue
		}
		if err := list[i].CanTransitionTo(next); err != nil {
			return domain.Fail(err.Error())
		}
		m.items[scope][i].Status = next
		return nil
	}
	return domain.Fail("request not found")
}

func (m *MockRequestService) wait(ctx context.Context) error {
	if m.Latency <= 0 {
		return ctx.Err()
	}
	latency := time.Duration(rand.Int64N(int64(m.Latency)))
	select {
	case <-time.After(latency):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SandboxRequests - демонстрационные заявки хаба "sandbox" для режима --sandbox.
// Решение по sbx-3 всегда завершается отказом.
func SandboxRequests() *MockRequestService {
	now := time.Now().UTC()
	m := NewMockRequestService(
		domain.Request{ID: "sbx-1", Kind: domain.KindEntry, Scope: "sandbox", Role: domain.RoleMember,
			Subject: domain.Subject{UserID: "u-1", FullName: "Ana Souza", Email: "ana@example.com"}, RequestedAt: now.Add(-time.Hour)},
		domain.Request{ID: "sbx-2", Kind: domain.KindEntry, Scope: "sandbox", Role: domain.RoleValidator,
			Subject: domain.Subject{UserID: "u-2", FullName: "Bruno Lima", Email: "bruno@example.com"}, RequestedAt: now.Add(-30 * time.Minute)},
		domain.Request{ID: "sbx-3", Kind: domain.KindEntry, Scope: "sandbox", Role: domain.RoleMember,
			Subject: domain.Subject{UserID: "u-3", FullName: "Carla Dias", Email: "carla@example.com"}, RequestedAt: now},
	)
	m.Latency = 300 * time.Millisecond
	m.FailIDs["sbx-3"] = "Erro 500: simulated failure"
	return m
}
