package engine

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"github.com/xela07ax/campusface-client/internal/infra"
)

type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(r *http.Request) (*http.Response, error) { return f(r) }

func respond(code int) *http.Response {
	return &http.Response{
		StatusCode: code,
		Status:     http.StatusText(code),
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader(`{"success":false,"message":"x"}`)),
	}
}

// sequence отдает коды по очереди, последний повторяется.
func sequence(calls *atomic.Int32, codes ...int) doerFunc {
	return func(r *http.Request) (*http.Response, error) {
		n := int(calls.Add(1)) - 1
		if n >= len(codes) {
			n = len(codes) - 1
		}
		return respond(codes[n]), nil
	}
}

func testReliability() infra.ReliabilityConfig {
	return infra.ReliabilityConfig{
		CBMaxRequests: 1,
		CBInterval:    time.Minute,
		CBTimeout:     time.Minute,
		CBMaxFailures: 5,
		ReadAttempts:  1,
	}
}

func newReq(t *testing.T, method string) *http.Request {
	t.Helper()
	r, err := http.NewRequestWithContext(context.Background(), method, "http://api.test/entry-requests/1", nil)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestReliabilityGETRetriedWhenConfigured(t *testing.T) {
	var calls atomic.Int32
	cfg := testReliability()
	cfg.ReadAttempts = 3
	w := NewReliabilityWrapper(sequence(&calls, 503, 503, 200), cfg, nil)

	resp, err := w.Do(newReq(t, http.MethodGet))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 || calls.Load() != 3 {
		t.Errorf("status=%d calls=%d", resp.StatusCode, calls.Load())
	}
}

func TestReliabilityNoRetryByDefault(t *testing.T) {
	var calls atomic.Int32
	w := NewReliabilityWrapper(sequence(&calls, 503, 200), testReliability(), nil)

	resp, err := w.Do(newReq(t, http.MethodGet))
	if err != nil {
		t.Fatalf("5xx must reach the client as a response, got %v", err)
	}
	if resp.StatusCode != 503 || calls.Load() != 1 {
		t.Errorf("status=%d calls=%d", resp.StatusCode, calls.Load())
	}
}

func TestReliabilityDecisionsNeverRetried(t *testing.T) {
	var calls atomic.Int32
	cfg := testReliability()
	cfg.ReadAttempts = 5
	w := NewReliabilityWrapper(sequence(&calls, 503, 200), cfg, nil)

	resp, err := w.Do(newReq(t, http.MethodPost))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 503 || calls.Load() != 1 {
		t.Errorf("status=%d calls=%d", resp.StatusCode, calls.Load())
	}
}

func TestReliabilityThrottledResponseDelivered(t *testing.T) {
	var calls atomic.Int32
	w := NewReliabilityWrapper(sequence(&calls, 429), testReliability(), nil)

	resp, err := w.Do(newReq(t, http.MethodPost))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 429 {
		t.Errorf("status=%d", resp.StatusCode)
	}
}

func TestReliabilityTransportError(t *testing.T) {
	boom := errors.New("dial tcp: connection refused")
	w := NewReliabilityWrapper(doerFunc(func(*http.Request) (*http.Response, error) {
		return nil, boom
	}), testReliability(), nil)

	resp, err := w.Do(newReq(t, http.MethodGet))
	if resp != nil || !errors.Is(err, boom) {
		t.Fatalf("resp=%v err=%v", resp, err)
	}
}

func TestReliabilityBreakerOpens(t *testing.T) {
	var calls atomic.Int32
	cfg := testReliability()
	cfg.CBMaxFailures = 1
	m := NewMetrics(nil)
	w := NewReliabilityWrapper(sequence(&calls, 500), cfg, m)

	for range 2 {
		if _, err := w.Do(newReq(t, http.MethodPost)); err != nil {
			t.Fatal(err)
		}
	}

	_, err := w.Do(newReq(t, http.MethodPost))
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open breaker, got %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("open breaker must not call the API, calls=%d", calls.Load())
	}
	if got := testutil.ToFloat64(m.CircuitBreakerState.WithLabelValues("campusface-api")); got != float64(gobreaker.StateOpen) {
		t.Errorf("breaker gauge = %v", got)
	}
}

func TestReliabilityRateLimitHonoursContext(t *testing.T) {
	cfg := testReliability()
	cfg.RateLimit = 0.001
	cfg.RateBurst = 1
	w := NewReliabilityWrapper(sequence(new(atomic.Int32), 200), cfg, nil)

	if _, err := w.Do(newReq(t, http.MethodGet)); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	r, _ := http.NewRequestWithContext(ctx, http.MethodGet, "http://api.test/x", nil)
	if _, err := w.Do(r); err == nil || !strings.Contains(err.Error(), "rate limit") {
		t.Errorf("expected rate limit error, got %v", err)
	}
}
