package connectors

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/xela07ax/campusface-client/internal/domain"
	"github.com/xela07ax/campusface-client/internal/infra/auth"
	"go.uber.org/zap"
)

const maxBodySize = 4 << 20

// Doer - транспорт. В проде это engine.ReliabilityWrapper поверх http.Client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client - HTTP-клиент CampusFace REST API.
// Любой отказ (сеть, HTTP-статус, битый JSON, success=false) возвращается как *domain.Failure.
type Client struct {
	baseURL   string
	doer      Doer
	skipNgrok bool
	logger    *zap.Logger
}

type Option func(*Client)

// WithNgrokBypass добавляет ngrok-skip-browser-warning к каждому запросу.
func WithNgrokBypass(on bool) Option {
	return func(c *Client) { c.skipNgrok = on }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l.Named("api-client") }
}

func NewClient(baseURL string, doer Doer, opts ...Option) *Client {
	if doer == nil {
		doer = http.DefaultClient
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		doer:    doer,
		logger:  zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// envelope - общий конверт ответа API.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e *envelope) hasData() bool {
	return len(e.Data) > 0 && !bytes.Equal(e.Data, []byte("null"))
}

// call выполняет JSON-запрос и разбирает конверт в out.
// requireData - пустой data при success=true тоже считается отказом.
func (c *Client) call(ctx context.Context, method, path string, cred auth.Credential, body any, out any, requireData bool) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return &domain.Failure{Message: fmt.Sprintf("encode request: %v", err), Cause: err}
		}
		reader = bytes.NewReader(raw)
	}

	req, err := c.newRequest(ctx, method, path, cred, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out, requireData)
}

func (c *Client) newRequest(ctx context.Context, method, path string, cred auth.Credential, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, &domain.Failure{Message: fmt.Sprintf("build request: %v", err), Cause: err}
	}
	req.Header.Set("Accept", "application/json")
	if !cred.IsZero() {
		req.Header.Set("Authorization", cred.Header())
	}
	if c.skipNgrok {
		req.Header.Set("ngrok-skip-browser-warning", "true")
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any, requireData bool) error {
	resp, err := c.doer.Do(req)
	if err != nil {
		c.logger.Debug("transport error", zap.String("method", req.Method), zap.String("path", req.URL.Path), zap.Error(err))
		return &domain.Failure{Message: connectionMessage(err), Cause: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return &domain.Failure{Message: connectionMessage(err), Status: resp.StatusCode, Cause: err}
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode >= http.StatusBadRequest {
		// Если сервер прислал конверт - его message понятнее сырого тела
		msg := fmt.Sprintf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
		if decodeErr == nil && env.Message != "" {
			msg = env.Message
		}
		c.logger.Debug("api error", zap.String("path", req.URL.Path), zap.Int("status", resp.StatusCode))
		return &domain.Failure{Message: msg, Status: resp.StatusCode}
	}

	if decodeErr != nil {
		return &domain.Failure{Message: fmt.Sprintf("malformed response: %v", decodeErr), Status: resp.StatusCode, Cause: decodeErr}
	}
	if !env.Success {
		return &domain.Failure{Message: nonEmpty(env.Message, "request failed"), Status: resp.StatusCode}
	}
	if !env.hasData() {
		if requireData {
			return &domain.Failure{Message: nonEmpty(env.Message, "empty response"), Status: resp.StatusCode}
		}
		return nil
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &domain.Failure{Message: fmt.Sprintf("malformed response: %v", err), Status: resp.StatusCode, Cause: err}
		}
	}
	return nil
}

func connectionMessage(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "connection error: timeout"
	}
	return "connection error: " + err.Error()
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
