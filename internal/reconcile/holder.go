package reconcile

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xela07ax/campusface-client/internal/domain"
	"github.com/xela07ax/campusface-client/internal/infra/auth"
	"go.uber.org/zap"
)

var ErrClosed = errors.New("reconcile: holder closed")

// Service - удаленный сервис заявок, с которым сверяется держатель.
type Service interface {
	List(ctx context.Context, cred auth.Credential, scope string) ([]domain.Request, error)
	Approve(ctx context.Context, cred auth.Credential, id string) error
	Reject(ctx context.Context, cred auth.Credential, id string) error
}

// State - опубликованное состояние держателя.
type State struct {
	Scope    string           `json:"scope"`
	Items    []domain.Request `json:"items"`
	Err      string           `json:"error,omitempty"`
	InFlight []string         `json:"in_flight,omitempty"`
	Version  uint64           `json:"version"`
}

func (s State) HasError() bool { return s.Err != "" }

// Holder держит коллекцию заявок одного вида и сверяет ее с удаленным сервисом:
// решения применяются оптимистично и откатываются при отказе.
type Holder struct {
	svc       Service
	kind      domain.RequestKind
	policy    RollbackPolicy
	logger    *zap.Logger
	observers []Observer
	now       func() time.Time

	mu       sync.Mutex
	scope    string
	items    []domain.Request
	errMsg   string
	inflight map[string]int
	version  uint64
	closed   bool
	subs     map[chan State]struct{}
}

type Option func(*Holder)

func WithRollbackPolicy(p RollbackPolicy) Option {
	return func(h *Holder) { h.policy = p }
}

func WithLogger(l *zap.Logger) Option {
	return func(h *Holder) { h.logger = l }
}

func WithObserver(o Observer) Option {
	return func(h *Holder) {
		if o != nil {
			h.observers = append(h.observers, o)
		}
	}
}

func NewHolder(svc Service, kind domain.RequestKind, opts ...Option) *Holder {
	h := &Holder{
		svc:      svc,
		kind:     kind,
		policy:   RollbackPerItem,
		logger:   zap.NewNop(),
		now:      time.Now,
		inflight: make(map[string]int),
		subs:     make(map[chan State]struct{}),
	}
	for _, o := range opts {
		o(h)
	}
	h.logger = h.logger.Named("reconcile").With(zap.String("kind", string(kind)))
	return h
}

func (h *Holder) Kind() domain.RequestKind { return h.kind }

// Load запрашивает полную коллекцию scope. Успех заменяет коллекцию целиком
// и очищает ошибку, отказ оставляет коллекцию и выставляет ошибку.
// Пересекающиеся вызовы допустимы: побеждает ответ, пришедший последним.
func (h *Holder) Load(ctx context.Context, cred auth.Credential, scope string) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrClosed
	}
	h.mu.Unlock()

	items, err := h.svc.List(ctx, cred, scope)
	if err != nil {
		err = domain.AsFailure(err)
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrClosed
	}
	if err != nil {
		h.errMsg = err.Error()
	} else {
		// scope меняется только вместе с коллекцией
		h.scope = scope
		h.items = slices.Clone(items)
		h.errMsg = ""
	}
	h.publishLocked()
	h.mu.Unlock()

	if err != nil {
		h.logger.Warn("load failed", zap.String("scope", scope), zap.Error(err))
	}
	for _, o := range h.observers {
		o.OnLoad(h.kind, scope, err)
	}
	return err
}

// Approve оптимистично убирает заявку id и подтверждает ее удаленно.
// Если id нет в коллекции (или держатель закрыт) - no-op, возвращает nil.
func (h *Holder) Approve(ctx context.Context, cred auth.Credential, id string) *PendingAction {
	return h.decide(ctx, cred, id, DecisionApprove)
}

// Reject - то же, что Approve, но с отклонением.
func (h *Holder) Reject(ctx context.Context, cred auth.Credential, id string) *PendingAction {
	return h.decide(ctx, cred, id, DecisionReject)
}

func (h *Holder) decide(ctx context.Context, cred auth.Credential, id string, d Decision) *PendingAction {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	i := indexOf(h.items, id)
	if i < 0 {
		h.mu.Unlock()
		return nil
	}

	a := &PendingAction{
		ID:        uuid.NewString(),
		Kind:      h.kind,
		Decision:  d,
		RequestID: id,
		Scope:     h.scope,
		StartedAt: h.now(),
		snapshot:  slices.Clone(h.items),
		removed:   h.items[i],
		index:     i,
		done:      make(chan struct{}),
	}

	h.items = slices.Delete(slices.Clone(h.items), i, i+1)
	h.inflight[id]++
	h.publishLocked()
	h.mu.Unlock()

	for _, o := range h.observers {
		o.OnOptimistic(a)
	}

	// Вызов переживает ctx вызывающего (например, HTTP-запрос консоли),
	// но сохраняет его значения (request id, трейсинг).
	callCtx := context.WithoutCancel(ctx)
	go func() {
		var err error
		if d == DecisionApprove {
			err = h.svc.Approve(callCtx, cred, id)
		} else {
			err = h.svc.Reject(callCtx, cred, id)
		}
		h.settle(a, err)
	}()

	return a
}

func (h *Holder) settle(a *PendingAction, err error) {
	var failure *domain.Failure
	if err != nil {
		failure = domain.AsFailure(err)
		err = failure
	}

	out := Outcome{Action: a, Err: err, Duration: h.now().Sub(a.StartedAt)}
	if failure != nil {
		out.Message = failure.Message
	}

	h.mu.Lock()
	if h.closed {
		out.Ignored = true
	} else {
		if n := h.inflight[a.RequestID]; n > 1 {
			h.inflight[a.RequestID] = n - 1
		} else {
			delete(h.inflight, a.RequestID)
		}
		if failure != nil {
			h.items, out.RolledBack = h.policy.rollback(h.items, a)
			h.errMsg = failure.Message
		}
		h.publishLocked()
	}
	h.mu.Unlock()

	switch {
	case out.Ignored:
		h.logger.Debug("late response ignored", zap.String("request_id", a.RequestID))
	case failure != nil:
		h.logger.Warn("decision failed, rolled back",
			zap.String("action_id", a.ID),
			zap.String("request_id", a.RequestID),
			zap.String("decision", string(a.Decision)),
			zap.Bool("restored", out.RolledBack),
			zap.Error(failure),
		)
	default:
		h.logger.Info("decision confirmed",
			zap.String("request_id", a.RequestID),
			zap.String("decision", string(a.Decision)),
		)
	}
	for _, o := range h.observers {
		o.OnSettled(out)
	}
	// Wait отпускает только после наблюдателей
	a.finish(err)
}

// Snapshot возвращает текущее состояние.
func (h *Holder) Snapshot() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stateLocked()
}

// Subscribe возвращает канал состояний и функцию отписки.
// Медленный подписчик видит только последнее состояние. Текущее состояние приходит сразу.
func (h *Holder) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}
	ch <- h.stateLocked()

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
	}
}

// Close закрывает подписки. Ответы, пришедшие позже, состояние не меняют.
func (h *Holder) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subs {
		close(ch)
	}
	clear(h.subs)
}

func (h *Holder) stateLocked() State {
	s := State{
		Scope:   h.scope,
		Items:   slices.Clone(h.items),
		Err:     h.errMsg,
		Version: h.version,
	}
	if s.Items == nil {
		s.Items = []domain.Request{}
	}
	for id := range h.inflight {
		s.InFlight = append(s.InFlight, id)
	}
	slices.Sort(s.InFlight)
	return s
}

func (h *Holder) publishLocked() {
	h.version++
	s := h.stateLocked()
	for ch := range h.subs {
		// latest-wins: выбрасываем непрочитанное состояние
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}
}
