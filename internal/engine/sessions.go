package engine

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xela07ax/campusface-client/internal/domain"
	"github.com/xela07ax/campusface-client/internal/infra/auth"
	"github.com/xela07ax/campusface-client/internal/reconcile"
	"go.uber.org/zap"
)

// Session - держатель заявок одного вида и scope, открытый для владельца токена.
type Session struct {
	ID        string             `json:"id"`
	Owner     string             `json:"owner"`
	Kind      domain.RequestKind `json:"kind"`
	Scope     string             `json:"scope"`
	CreatedAt time.Time          `json:"created_at"`

	cred   auth.Credential
	Holder *reconcile.Holder `json:"-"`
}

// Credential - токен, с которым сессия ходит в API (обновления по шине и расписанию).
func (s *Session) Credential() auth.Credential { return s.cred }

// OpenedWith сверяет токен вызывающего с токеном, которым сессия открыта.
// Claims консоль не проверяет по подписи, поэтому владельца определяет сам токен.
func (s *Session) OpenedWith(c auth.Credential) bool {
	return !c.IsZero() && subtle.ConstantTimeCompare([]byte(c.Token), []byte(s.cred.Token)) == 1
}

// ServiceFactory выдает удаленный сервис для вида заявок.
type ServiceFactory func(kind domain.RequestKind) (reconcile.Service, error)

// SessionManager - потокобезопасный реестр сессий консоли.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	factory   ServiceFactory
	policy    reconcile.RollbackPolicy
	observers []reconcile.Observer
	metrics   *Metrics
	logger    *zap.Logger
}

func NewSessionManager(
	factory ServiceFactory,
	policy reconcile.RollbackPolicy,
	metrics *Metrics,
	logger *zap.Logger,
	observers ...reconcile.Observer,
) *SessionManager {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &SessionManager{
		sessions:  make(map[string]*Session),
		factory:   factory,
		policy:    policy,
		observers: append([]reconcile.Observer{metrics}, observers...),
		metrics:   metrics,
		logger:    logger.Named("sessions"),
	}
}

// Open создает сессию и выполняет первую загрузку. Отказ загрузки не ошибка:
// он виден в состоянии сессии.
func (m *SessionManager) Open(ctx context.Context, cred auth.Credential, owner string, kind domain.RequestKind, scope string) (*Session, error) {
	if scope == "" {
		return nil, errors.New("scope is required")
	}
	svc, err := m.factory(kind)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}

	opts := []reconcile.Option{
		reconcile.WithRollbackPolicy(m.policy),
		reconcile.WithLogger(m.logger),
	}
	for _, o := range m.observers {
		opts = append(opts, reconcile.WithObserver(o))
	}

	s := &Session{
		ID:        uuid.NewString(),
		Owner:     owner,
		Kind:      kind,
		Scope:     scope,
		CreatedAt: time.Now().UTC(),
		cred:      cred,
		Holder:    reconcile.NewHolder(svc, kind, opts...),
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.metrics.OpenSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()

	m.logger.Info("session opened",
		zap.String("session_id", s.ID),
		zap.String("kind", string(kind)),
		zap.String("scope", scope),
	)

	_ = s.Holder.Load(ctx, cred, scope)
	return s, nil
}

func (m *SessionManager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}
	return s, nil
}

// Reload перечитывает коллекцию сессии.
func (m *SessionManager) Reload(ctx context.Context, id string) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	return s.Holder.Load(ctx, s.cred, s.Scope)
}

// RefreshScope перезагружает все сессии scope (AllScopes - все) и возвращает их число.
// Загрузки идут параллельно, функция не ждет их завершения: отмена ctx
// (например, конец HTTP-запроса) их не прерывает.
func (m *SessionManager) RefreshScope(ctx context.Context, scope string) int {
	ctx = context.WithoutCancel(ctx)

	m.mu.RLock()
	var targets []*Session
	for _, s := range m.sessions {
		if scope == AllScopes || s.Scope == scope {
			targets = append(targets, s)
		}
	}
	m.mu.RUnlock()

	for _, s := range targets {
		go func(s *Session) {
			if err := s.Holder.Load(ctx, s.cred, s.Scope); err != nil && !errors.Is(err, reconcile.ErrClosed) {
				m.logger.Debug("refresh failed", zap.String("session_id", s.ID), zap.Error(err))
			}
		}(s)
	}
	return len(targets)
}

// Close закрывает сессию: поздние ответы удаленного сервиса будут проигнорированы.
func (m *SessionManager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
		m.metrics.OpenSessions.Set(float64(len(m.sessions)))
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}
	s.Holder.Close()
	m.logger.Info("session closed", zap.String("session_id", id))
	return nil
}

func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*Session)
	m.metrics.OpenSessions.Set(0)
	m.mu.Unlock()

	for _, s := range all {
		s.Holder.Close()
	}
}

func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
