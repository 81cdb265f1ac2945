package reconcile

import (
	"context"
	"time"

	"github.com/xela07ax/campusface-client/internal/domain"
)

type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionReject  Decision = "REJECT"
)

// PendingAction - оптимистичное решение, ожидающее ответа удаленного сервиса.
// Хранит все, что нужно для отката: снимок коллекции, удаленный элемент и его место.
type PendingAction struct {
	ID        string
	Kind      domain.RequestKind
	Decision  Decision
	RequestID string
	Scope     string
	StartedAt time.Time

	snapshot []domain.Request
	removed  domain.Request
	index    int

	done chan struct{}
	err  error
}

// Done закрывается, когда исход удаленного вызова известен.
func (a *PendingAction) Done() <-chan struct{} { return a.done }

// Err возвращает исход после Done: nil или *domain.Failure.
func (a *PendingAction) Err() error {
	select {
	case <-a.done:
		return a.err
	default:
		return nil
	}
}

// Wait блокируется до исхода удаленного вызова или отмены ctx.
func (a *PendingAction) Wait(ctx context.Context) error {
	select {
	case <-a.done:
		return a.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *PendingAction) finish(err error) {
	a.err = err
	close(a.done)
}

// Removed - элемент, убранный из коллекции оптимистично.
func (a *PendingAction) Removed() domain.Request { return a.removed }
