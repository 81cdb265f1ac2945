package audit

import (
	"time"

	"github.com/xela07ax/campusface-client/internal/reconcile"
)

// Outcome решения рецензента.
const (
	OutcomeConfirmed  = "CONFIRMED"
	OutcomeRolledBack = "ROLLED_BACK"
	OutcomeIgnored    = "IGNORED" // ответ пришел после закрытия сессии
)

type DecisionEvent struct {
	ID        string `json:"id"`         // UUID события
	ActionID  string `json:"action_id"`  // PendingAction.ID
	RequestID string `json:"request_id"` // Какая заявка
	Kind      string `json:"kind"`       // ENTRY, CHANGE, MEMBER
	Scope     string `json:"scope"`      // Организация
	Decision  string `json:"decision"`   // APPROVE, REJECT

	// Результат
	Outcome    string    `json:"outcome"`
	Message    string    `json:"message,omitempty"` // Сообщение отказа
	RolledBack bool      `json:"rolled_back"`       // Коллекция действительно изменилась при откате
	Timestamp  time.Time `json:"timestamp"`
	DurationMs int64     `json:"duration_ms"` // От оптимистичного удаления до ответа
}

func eventFromOutcome(id string, o reconcile.Outcome) DecisionEvent {
	a := o.Action
	e := DecisionEvent{
		ID:         id,
		ActionID:   a.ID,
		RequestID:  a.RequestID,
		Kind:       string(a.Kind),
		Scope:      a.Scope,
		Decision:   string(a.Decision),
		Outcome:    OutcomeConfirmed,
		Message:    o.Message,
		RolledBack: o.RolledBack,
		DurationMs: o.Duration.Milliseconds(),
	}
	switch {
	case o.Ignored:
		e.Outcome = OutcomeIgnored
	case o.Err != nil:
		e.Outcome = OutcomeRolledBack
	}
	return e
}
