package audit

/*
Журнал решений рецензента (approve/reject) с их итогом.

- Неблокирующая запись: Log не ждет хранилища, держатель заявок
  продолжает работу при медленной БД.
- Пакетная запись: накопление событий и запись пачкой по таймеру (500ms)
  или при достижении лимита (100 событий).
- Drain: Stop закрывает вход, воркер вычитывает остаток и делает финальный flush.
*/

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/xela07ax/campusface-client/internal/domain"
	"github.com/xela07ax/campusface-client/internal/reconcile"
	"go.uber.org/zap"
)

const (
	batchSize     = 100
	flushInterval = 500 * time.Millisecond
)

// StorageInterface определяет, куда физически будут сохраняться события
type StorageInterface interface {
	// WriteBatch сохраняет пачку событий за один раз
	WriteBatch(ctx context.Context, events []DecisionEvent) error
}

type Journal struct {
	ch     chan DecisionEvent // Буфер для асинхронности
	repo   StorageInterface
	logger *zap.Logger
	fill   prometheus.Gauge
	wg     sync.WaitGroup

	mu     sync.RWMutex // Log под RLock, закрытие канала под Lock
	closed bool
}

func NewJournal(repo StorageInterface, logger *zap.Logger, fill prometheus.Gauge) *Journal {
	return &Journal{
		ch:     make(chan DecisionEvent, 10000),
		repo:   repo,
		logger: logger.Named("journal"),
		fill:   fill,
	}
}

func (j *Journal) Start() {
	j.wg.Add(1)
	go j.worker()
}

// Stop запирает вход и ждет, пока воркер все допишет.
func (j *Journal) Stop() {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return
	}
	j.closed = true
	close(j.ch)
	j.mu.Unlock()

	j.logger.Info("stopping journal: flushing buffer...")
	j.wg.Wait()
	j.logger.Info("journal stopped gracefully")
}

func (j *Journal) Log(event DecisionEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		j.logger.Warn("decision event dropped: journal is stopping", zap.String("action_id", event.ActionID))
		return
	}

	// Load Shedding: при переполнении событие уходит только в лог
	select {
	case j.ch <- event:
	default:
		j.logger.Error("journal_buffer_overflow",
			zap.String("request_id", event.RequestID),
			zap.String("decision", event.Decision),
			zap.String("outcome", event.Outcome),
		)
	}
}

// Journal подключается к держателям заявок как наблюдатель.
var _ reconcile.Observer = (*Journal)(nil)

func (j *Journal) OnLoad(domain.RequestKind, string, error) {}

func (j *Journal) OnOptimistic(*reconcile.PendingAction) {}

func (j *Journal) OnSettled(o reconcile.Outcome) {
	j.Log(eventFromOutcome(uuid.NewString(), o))
}

func (j *Journal) worker() {
	defer j.wg.Done()

	batch := make([]DecisionEvent, 0, batchSize)
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	flush := func() {
		if j.fill != nil {
			j.fill.Set(float64(len(j.ch)))
		}
		if len(batch) == 0 {
			return
		}
		// Background: основной контекст к этому моменту может быть закрыт
		if err := j.repo.WriteBatch(context.Background(), batch); err != nil {
			j.logger.Error("journal flush failed", zap.Int("events", len(batch)), zap.Error(err))
		}
		batch = batch[:0]
	}

	for {
		select {
		case event, ok := <-j.ch:
			if !ok {
				flush() // Финальный сброс
				return
			}
			batch = append(batch, event)
			if len(batch) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
