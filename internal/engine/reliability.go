package engine

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/xela07ax/campusface-client/internal/connectors"
	"github.com/xela07ax/campusface-client/internal/infra"

	"github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// ReliabilityWrapper - лимитер, предохранитель и (только для GET) повторы
// поверх HTTP-транспорта. Реализует connectors.Doer.
type ReliabilityWrapper struct {
	next         connectors.Doer
	cb           *gobreaker.CircuitBreaker
	limiter      *rate.Limiter
	readAttempts uint
	metrics      *Metrics
}

func NewReliabilityWrapper(next connectors.Doer, cfg infra.ReliabilityConfig, metrics *Metrics) *ReliabilityWrapper {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	maxFailures := cfg.CBMaxFailures
	// Настройка предохранителя
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "campusface-api",
		MaxRequests: cfg.CBMaxRequests,
		Interval:    cfg.CBInterval,
		Timeout:     cfg.CBTimeout, // Время, через которое CB попробует "закрыться"
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		},
	})

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateBurst
	if burst < 1 {
		burst = 1
	}

	attempts := cfg.ReadAttempts
	if attempts < 1 {
		// retry.Attempts(0) означает "бесконечно"
		attempts = 1
	}

	return &ReliabilityWrapper{
		next:         next,
		cb:           cb,
		limiter:      rate.NewLimiter(limit, burst),
		readAttempts: attempts,
		metrics:      metrics,
	}
}

func (w *ReliabilityWrapper) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	start := time.Now()

	// 1. Rate Limiter
	if err := w.limiter.Wait(ctx); err != nil {
		w.observe(req.Method, "rate_limited", start)
		return nil, fmt.Errorf("rate limit exceeded: %w", err)
	}

	// 2. Circuit Breaker
	cbResult, err := w.cb.Execute(func() (interface{}, error) {
		return w.attempt(req)
	})

	resp, _ := cbResult.(*http.Response)
	if err != nil && !(errors.Is(err, connectors.ErrServerStatus) && resp != nil) {
		w.observe(req.Method, "error", start)
		return nil, err
	}
	// 5xx считается отказом для предохранителя, но клиенту отдаем сам ответ
	w.observe(req.Method, strconv.Itoa(resp.StatusCode), start)
	return resp, nil
}

// attempt выполняет запрос. Повторяются только GET/HEAD, запись (approve/reject) - никогда.
func (w *ReliabilityWrapper) attempt(req *http.Request) (*http.Response, error) {
	attempts := uint(1)
	if req.Method == http.MethodGet || req.Method == http.MethodHead {
		attempts = w.readAttempts
	}

	var last *http.Response
	r := retry.New(
		retry.Context(req.Context()),
		retry.Attempts(attempts),
		// Умный расчет задержки
		retry.DelayType(func(n uint, err error, config retry.DelayContext) time.Duration {
			var tErr *connectors.ThrottleError
			if errors.As(err, &tErr) {
				return tErr.RetryAfter
			}
			return retry.BackOffDelay(n, err, config)
		}),
	)

	retryErr := r.Do(func() error {
		if last != nil {
			drain(last)
			last = nil
		}
		resp, callErr := w.next.Do(req)
		if callErr != nil {
			return callErr
		}
		last = resp
		if t := connectors.ThrottleFromResponse(resp); t != nil {
			return t
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return connectors.ErrServerStatus
		}
		return nil
	})

	if last == nil {
		return nil, retryErr
	}
	if last.StatusCode >= http.StatusInternalServerError {
		return last, connectors.ErrServerStatus
	}
	return last, nil
}

func (w *ReliabilityWrapper) observe(method, outcome string, start time.Time) {
	w.metrics.APIRequestDuration.WithLabelValues(method, outcome).Observe(time.Since(start).Seconds())
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
