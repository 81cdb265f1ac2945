package reconcile

import (
	"fmt"
	"slices"

	"github.com/xela07ax/campusface-client/internal/domain"
)

type RollbackPolicy string

const (
	// RollbackPerItem возвращает на место только целевую заявку.
	RollbackPerItem RollbackPolicy = "per_item"
	// RollbackSnapshot заменяет всю коллекцию снимком, сделанным до действия.
	// Параллельные действия при этом могут "воскресить" уже обработанные заявки.
	RollbackSnapshot RollbackPolicy = "snapshot"
)

func ParseRollbackPolicy(s string) (RollbackPolicy, error) {
	switch RollbackPolicy(s) {
	case RollbackPerItem, "":
		return RollbackPerItem, nil
	case RollbackSnapshot:
		return RollbackSnapshot, nil
	}
	return "", fmt.Errorf("unknown rollback policy %q", s)
}

// rollback возвращает коллекцию после неудачного действия a.
// Второе значение - изменилась ли коллекция.
func (p RollbackPolicy) rollback(items []domain.Request, a *PendingAction) ([]domain.Request, bool) {
	if p == RollbackSnapshot {
		return slices.Clone(a.snapshot), true
	}

	// Load успел вернуть заявку - не дублируем
	if indexOf(items, a.RequestID) >= 0 {
		return items, false
	}

	// ставим рядом с ближайшим видимым соседом по снимку:
	// сначала перед последующим, затем после предыдущего
	at := -1
	for _, r := range a.snapshot[a.index+1:] {
		if i := indexOf(items, r.ID); i >= 0 {
			at = i
			break
		}
	}
	for j := a.index - 1; at < 0 && j >= 0; j-- {
		if i := indexOf(items, a.snapshot[j].ID); i >= 0 {
			at = i + 1
		}
	}
	if at < 0 {
		at = min(a.index, len(items))
	}

	return slices.Insert(slices.Clone(items), at, a.removed), true
}

func indexOf(items []domain.Request, id string) int {
	return slices.IndexFunc(items, func(r domain.Request) bool { return r.ID == id })
}
