package engine

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/xela07ax/campusface-client/internal/infra"
	"go.uber.org/zap"
)

// Scheduler периодически перечитывает все открытые сессии.
// Это плановое обновление, а не повтор неудачных решений.
type Scheduler struct {
	cron     *cron.Cron
	sessions *SessionManager
	bus      *RefreshBus
	logger   *zap.Logger
}

func NewScheduler(sessions *SessionManager, bus *RefreshBus, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		sessions: sessions,
		bus:      bus,
		logger:   logger.Named("scheduler"),
	}
}

// Start регистрирует задачу по cron-выражению. Пустое выражение - планировщик выключен.
func (s *Scheduler) Start(ctx context.Context, spec string) error {
	if spec == "" {
		s.logger.Info("scheduled refresh disabled")
		return nil
	}
	if _, err := s.cron.AddFunc(spec, func() { s.tick(ctx) }); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("scheduled refresh started", zap.String("schedule", spec))
	return nil
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// tick: при живой шине сигнал рассылает одна консоль (лок в Redis), остальные получат его по подписке.
// Без шины обновляем свои сессии напрямую.
func (s *Scheduler) tick(ctx context.Context) {
	if s.bus != nil && s.bus.Enabled() {
		ok, err := s.bus.TryLock(ctx, infra.RedisKeyLockScheduledRefresh, 10*time.Second)
		switch {
		case err == nil && !ok:
			return
		case err == nil:
			if err = s.bus.Publish(ctx, AllScopes); err == nil {
				return
			}
			s.logger.Warn("refresh publish failed, refreshing locally", zap.Error(err))
		default:
			s.logger.Warn("refresh lock unavailable, refreshing locally", zap.Error(err))
		}
	}
	n := s.sessions.RefreshScope(ctx, AllScopes)
	s.logger.Debug("scheduled refresh", zap.Int("sessions", n))
}
