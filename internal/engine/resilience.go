package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/campusface-client/internal/infra"
	"go.uber.org/zap"
)

// AllScopes в сигнале обновления означает "перезагрузить все сессии".
const AllScopes = "*"

var ErrBusDisabled = errors.New("refresh bus disabled: redis is not configured")

// RefreshBus - шина сигналов "перечитай заявки" между консолями через Redis pub/sub.
// nil-клиент Redis допустим: публикация вернет ErrBusDisabled, подписка сразу завершится.
type RefreshBus struct {
	rdb     *redis.Client
	logger  *zap.Logger
	channel string
}

func NewRefreshBus(rdb *redis.Client, logger *zap.Logger) *RefreshBus {
	return &RefreshBus{
		rdb:     rdb,
		logger:  logger.Named("refresh_bus"),
		channel: infra.RedisChanRequestsRefresh,
	}
}

func (b *RefreshBus) Enabled() bool { return b.rdb != nil }

func (b *RefreshBus) Publish(ctx context.Context, scope string) error {
	if b.rdb == nil {
		return ErrBusDisabled
	}
	scope = strings.TrimSpace(scope)
	if scope == "" {
		scope = AllScopes
	}
	return b.rdb.Publish(ctx, b.channel, scope).Err()
}

// TryLock берет короткий лок с TTL. false - лок уже держит другая консоль.
func (b *RefreshBus) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if b.rdb == nil {
		return false, ErrBusDisabled
	}
	return b.rdb.SetNX(ctx, key, "1", ttl).Result()
}

// Listen - "живучая" подписка на сигналы обновления.
// Переподписывается с бэкоффом, пока ctx жив. onReconnect вызывается после
// каждой успешной подписки: сигналы, пропущенные за время разрыва, не восстановить.
func (b *RefreshBus) Listen(ctx context.Context, onReconnect func(), onRefresh func(scope string)) {
	if b.rdb == nil {
		return
	}

	for ctx.Err() == nil {
		var pubsub *redis.PubSub
		r := retry.New(
			retry.Context(ctx),
			retry.Attempts(10),
		)
		err := r.Do(func() error {
			ps := b.rdb.Subscribe(ctx, b.channel)
			// Проверка успешности подписки
			if _, err := ps.Receive(ctx); err != nil {
				ps.Close()
				return err
			}
			pubsub = ps
			return nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			b.logger.Error("failed to subscribe", zap.String("chan", b.channel), zap.Error(err))
			sleep(ctx, 5*time.Second)
			continue
		}

		b.logger.Info("refresh listener subscribed", zap.String("chan", b.channel))
		if onReconnect != nil {
			onReconnect()
		}

		b.consume(ctx, pubsub.Channel(), onRefresh)
		pubsub.Close()
		sleep(ctx, time.Second)
	}
}

func (b *RefreshBus) consume(ctx context.Context, ch <-chan *redis.Message, onRefresh func(scope string)) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				b.logger.Warn("refresh channel closed, resubscribing")
				return // Канал закрыт, идем на переподключение
			}
			scope := strings.TrimSpace(msg.Payload)
			if scope == "" {
				b.logger.Error("invalid refresh signal", zap.String("payload", msg.Payload))
				continue
			}
			onRefresh(scope)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
