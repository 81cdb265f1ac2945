package engine

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// Тип для ключа в контексте (избегаем коллизий)
type ctxKey string

const requestIDKey ctxKey = "request_id"

// WithRequestID кладет ID в контекст, например для вызовов из CLI.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID достает ID из контекста: свой ключ, затем ключ chi. Пусто - ID нет.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok && id != "" {
		return id
	}
	return middleware.GetReqID(ctx)
}

// TracingMiddleware инициализирует Request-ID для каждого входящего запроса консоли
func TracingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 1. Пытаемся достать ID из заголовка (если пришел от фронта/прокси)
		id := r.Header.Get(RequestIDHeader)

		// 2. Если его нет - генерируем новый
		if id == "" {
			id = uuid.NewString()
		}

		// 3. Добавляем в ответ, чтобы клиент тоже знал ID своего запроса
		w.Header().Set(RequestIDHeader, id)

		next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), id)))
	})
}

// RequestIDTransport проставляет X-Request-ID в исходящие запросы к API.
type RequestIDTransport struct {
	Next http.RoundTripper
}

func (t RequestIDTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	next := t.Next
	if next == nil {
		next = http.DefaultTransport
	}
	if req.Header.Get(RequestIDHeader) != "" {
		return next.RoundTrip(req)
	}

	id := RequestID(req.Context())
	if id == "" {
		id = uuid.NewString()
	}
	// RoundTripper не должен менять исходный запрос
	r := req.Clone(req.Context())
	r.Header.Set(RequestIDHeader, id)
	return next.RoundTrip(r)
}
