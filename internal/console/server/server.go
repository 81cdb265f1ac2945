package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/xela07ax/campusface-client/internal/console/handler"
	"github.com/xela07ax/campusface-client/internal/engine"
	"github.com/xela07ax/campusface-client/internal/infra/auth"
	"go.uber.org/zap"
)

type ConsoleServer struct {
	router *chi.Mux
	logger *zap.Logger

	// Интерфейс для проверки токенов
	// Реализуется через embedding ClaimsReader в AuthService
	inspector auth.TokenInspector
	metrics   http.Handler

	// Обработчики
	authHandler    *handler.AuthHandler    // /auth/login
	sessionHandler *handler.SessionHandler // /v1/sessions
	refreshHandler *handler.RefreshHandler // /v1/refresh
	auditHandler   *handler.AuditHandler   // /v1/decisions
}

// NewConsoleServer инициализирует сервер консоли со всеми зависимостями
func NewConsoleServer(
	logger *zap.Logger,
	inspector auth.TokenInspector,
	metrics http.Handler,
	authH *handler.AuthHandler,
	sessionH *handler.SessionHandler,
	refreshH *handler.RefreshHandler,
	auditH *handler.AuditHandler,
) *ConsoleServer {
	s := &ConsoleServer{
		router:         chi.NewRouter(),
		logger:         logger.Named("console-api"),
		inspector:      inspector,
		metrics:        metrics,
		authHandler:    authH,
		sessionHandler: sessionH,
		refreshHandler: refreshH,
		auditHandler:   auditH,
	}

	s.routes()
	return s
}

func (s *ConsoleServer) routes() {
	r := s.router

	// --- 1. Глобальные инфраструктурные Middleware (для всех) ---
	r.Use(middleware.RequestID)
	r.Use(engine.TracingMiddleware)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	// --- 2. ПУБЛИЧНЫЕ РОУТЫ ---
	r.Group(func(r chi.Router) {
		// Логин должен быть доступен без токена
		r.Post("/auth/login", s.authHandler.Login)

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		if s.metrics != nil {
			r.Method(http.MethodGet, "/metrics", s.metrics)
		}
	})

	// --- 3. ЗАЩИЩЕННЫЙ ПЕРИМЕТР (Bearer токен CampusFace) ---
	r.Group(func(r chi.Router) {
		r.Use(auth.NewMiddleware(s.inspector, s.logger))

		r.Route("/v1/sessions", func(r chi.Router) {
			r.Post("/", s.sessionHandler.Create) // Открыть держатель заявок {kind, scope}
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.sessionHandler.Get)
				r.Delete("/", s.sessionHandler.Delete)
				r.Post("/reload", s.sessionHandler.Reload)
				r.Get("/stream", s.sessionHandler.Stream) // WebSocket состояний
				r.Post("/requests/{rid}/approve", s.sessionHandler.Approve)
				r.Post("/requests/{rid}/reject", s.sessionHandler.Reject)
			})
		})

		r.Post("/v1/refresh/{scope}", s.refreshHandler.Refresh)
		r.Get("/v1/decisions", s.auditHandler.Recent)
	})
}

// requestLogger пишет запросы в zap вместо стандартного middleware.Logger
func (s *ConsoleServer) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", engine.RequestID(r.Context())),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}

// ServeHTTP позволяет использовать ConsoleServer как стандартный http.Handler
func (s *ConsoleServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
