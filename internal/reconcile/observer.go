package reconcile

import (
	"time"

	"github.com/xela07ax/campusface-client/internal/domain"
)

// Outcome - итог оптимистичного действия.
type Outcome struct {
	Action     *PendingAction
	Err        error  // nil или *domain.Failure
	Message    string // сообщение отказа
	RolledBack bool
	Ignored    bool // ответ пришел после Close
	Duration   time.Duration
}

// Observer получает события держателя. Вызывается вне блокировки,
// реализации не должны блокироваться надолго.
type Observer interface {
	OnLoad(kind domain.RequestKind, scope string, err error)
	OnOptimistic(a *PendingAction)
	OnSettled(o Outcome)
}
