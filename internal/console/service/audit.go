package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/xela07ax/campusface-client/internal/audit"
)

var ErrJournalUnavailable = errors.New("decision journal is not backed by a database")

// DecisionReader описывает контракт для чтения журнала решений.
type DecisionReader interface {
	Recent(ctx context.Context, scope string, limit int) ([]audit.DecisionEvent, error)
}

type AuditService struct {
	repo DecisionReader // nil, если БД не настроена
}

func NewAuditService(repo DecisionReader) *AuditService {
	return &AuditService{repo: repo}
}

func (s *AuditService) Recent(ctx context.Context, scope string, limit int) ([]audit.DecisionEvent, error) {
	if s.repo == nil {
		return nil, ErrJournalUnavailable
	}
	events, err := s.repo.Recent(ctx, scope, limit)
	if err != nil {
		return nil, fmt.Errorf("audit_service: failed to fetch decisions: %w", err)
	}
	return events, nil
}
