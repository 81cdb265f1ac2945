package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/xela07ax/campusface-client/internal/domain"
	"github.com/xela07ax/campusface-client/internal/engine"
	"github.com/xela07ax/campusface-client/internal/infra/auth"
	"github.com/xela07ax/campusface-client/internal/reconcile"
	"go.uber.org/zap"
)

var ErrNotInCollection = errors.New("request is not in the collection")

// ReviewService - сессии рецензента поверх реестра держателей заявок.
// Чужие сессии не видны: для них возвращается domain.ErrNotFound.
type ReviewService struct {
	sessions *engine.SessionManager
	bus      *engine.RefreshBus
	logger   *zap.Logger
}

func NewReviewService(sessions *engine.SessionManager, bus *engine.RefreshBus, logger *zap.Logger) *ReviewService {
	return &ReviewService{
		sessions: sessions,
		bus:      bus,
		logger:   logger.Named("review"),
	}
}

func (s *ReviewService) Open(ctx context.Context, cred auth.Credential, owner, kind, scope string) (*engine.Session, error) {
	k, err := domain.ParseKind(kind)
	if err != nil {
		return nil, err
	}
	return s.sessions.Open(ctx, cred, owner, k, scope)
}

// Session возвращает сессию, если вызывающий открыл ее тем же токеном.
func (s *ReviewService) Session(cred auth.Credential, owner, id string) (*engine.Session, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	if sess.Owner != owner || !sess.OpenedWith(cred) {
		return nil, fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}
	return sess, nil
}

func (s *ReviewService) Reload(ctx context.Context, cred auth.Credential, owner, id string) (reconcile.State, error) {
	sess, err := s.Session(cred, owner, id)
	if err != nil {
		return reconcile.State{}, err
	}
	// отказ загрузки уже лежит в состоянии
	_ = s.sessions.Reload(ctx, id)
	return sess.Holder.Snapshot(), nil
}

// Decide применяет решение оптимистично. Удаленный вызов идет с токеном вызывающего.
func (s *ReviewService) Decide(ctx context.Context, cred auth.Credential, owner, id, requestID string, d reconcile.Decision) (*reconcile.PendingAction, error) {
	sess, err := s.Session(cred, owner, id)
	if err != nil {
		return nil, err
	}

	var a *reconcile.PendingAction
	if d == reconcile.DecisionApprove {
		a = sess.Holder.Approve(ctx, cred, requestID)
	} else {
		a = sess.Holder.Reject(ctx, cred, requestID)
	}
	if a == nil {
		return nil, ErrNotInCollection
	}
	s.logger.Debug("decision applied optimistically",
		zap.String("session_id", id),
		zap.String("request_id", requestID),
		zap.String("decision", string(d)),
	)
	return a, nil
}

func (s *ReviewService) Close(cred auth.Credential, owner, id string) error {
	if _, err := s.Session(cred, owner, id); err != nil {
		return err
	}
	return s.sessions.Close(id)
}

// Refresh рассылает сигнал обновления scope всем консолям.
// Без Redis обновляет только свои сессии.
func (s *ReviewService) Refresh(ctx context.Context, scope string) (published bool, local int, err error) {
	if s.bus.Enabled() {
		if err := s.bus.Publish(ctx, scope); err != nil {
			return false, 0, fmt.Errorf("publish refresh: %w", err)
		}
		return true, 0, nil
	}
	return false, s.sessions.RefreshScope(ctx, scope), nil
}
