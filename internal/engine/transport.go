package engine

import (
	"net/http"

	"github.com/xela07ax/campusface-client/internal/infra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// NewHTTPDoer собирает транспорт до CampusFace API:
// request id -> (otel) -> http.Client -> лимитер/предохранитель.
func NewHTTPDoer(cfg *infra.Config, metrics *Metrics) *ReliabilityWrapper {
	var rt http.RoundTripper = RequestIDTransport{Next: http.DefaultTransport}
	if cfg.Telemetry.Tracing {
		rt = otelhttp.NewTransport(rt)
	}

	client := &http.Client{
		Timeout:   cfg.API.Timeout,
		Transport: rt,
	}
	return NewReliabilityWrapper(client, cfg.Reliability, metrics)
}
