package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/campusface-client/internal/audit"
	"github.com/xela07ax/campusface-client/internal/connectors"
	"github.com/xela07ax/campusface-client/internal/console/handler"
	"github.com/xela07ax/campusface-client/internal/console/server"
	"github.com/xela07ax/campusface-client/internal/console/service"
	"github.com/xela07ax/campusface-client/internal/domain"
	"github.com/xela07ax/campusface-client/internal/engine"
	"github.com/xela07ax/campusface-client/internal/infra"
	"github.com/xela07ax/campusface-client/internal/reconcile"
	"github.com/xela07ax/campusface-client/internal/repository/postgres"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	sandbox := flag.Bool("sandbox", false, "serve in-memory requests instead of the CampusFace API")
	flag.Parse()

	// .env опционален
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	// Контекст для управления жизненным циклом фоновых горутин
	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. Метрики
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := engine.NewMetrics(reg)

	// 2. Транспорт до CampusFace API (request id, otel, лимитер, предохранитель)
	client := connectors.NewClient(cfg.API.BaseURL, engine.NewHTTPDoer(cfg, metrics),
		connectors.WithNgrokBypass(cfg.API.SkipNgrokWarning),
		connectors.WithLogger(logger),
	)

	factory := func(kind domain.RequestKind) (reconcile.Service, error) {
		svc, err := client.Requests(kind)
		if err != nil {
			return nil, err
		}
		return svc, nil
	}
	if *sandbox {
		mock := connectors.SandboxRequests()
		factory = func(domain.RequestKind) (reconcile.Service, error) { return mock, nil }
		logger.Warn("sandbox mode: decisions are not sent to CampusFace")
	}

	// 3. Журнал решений: Postgres, если настроен, иначе zap
	var (
		storage audit.StorageInterface = audit.NewLogStorage(logger)
		reader  service.DecisionReader
	)
	if cfg.Database.URL != "" {
		repo, err := postgres.NewDecisionRepo(cfg.Database)
		if err != nil {
			logger.Fatal("database", zap.Error(err))
		}
		defer repo.Close()

		// Проверяем соединение с таймаутом
		ctx, cancelPing := context.WithTimeout(appCtx, 5*time.Second)
		err = repo.Ping(ctx)
		if err == nil {
			err = repo.Migrate(ctx)
		}
		cancelPing()
		if err != nil {
			logger.Fatal("database unreachable", zap.Error(err))
		}
		storage, reader = repo, repo
	}
	journal := audit.NewJournal(storage, logger, metrics.JournalBufferFill)
	journal.Start()

	// 4. Сессии, шина обновлений и планировщик
	policy, err := reconcile.ParseRollbackPolicy(cfg.Reconcile.Rollback)
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	sessions := engine.NewSessionManager(factory, policy, metrics, logger, journal)

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
	}
	bus := engine.NewRefreshBus(rdb, logger)
	go bus.Listen(appCtx,
		// сигналы, пропущенные за время разрыва, не восстановить - перечитываем все
		func() { sessions.RefreshScope(appCtx, engine.AllScopes) },
		func(scope string) {
			n := sessions.RefreshScope(appCtx, scope)
			logger.Debug("refresh signal", zap.String("scope", scope), zap.Int("sessions", n))
		},
	)

	scheduler := engine.NewScheduler(sessions, bus, logger)
	if err := scheduler.Start(appCtx, cfg.Refresh.Schedule); err != nil {
		logger.Fatal("refresh schedule", zap.Error(err))
	}

	// 5. HTTP слой (Dependency Injection)
	authService := service.NewAuthService(client)
	reviewService := service.NewReviewService(sessions, bus, logger)

	consoleSrv := server.NewConsoleServer(
		logger,
		authService,
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		handler.NewAuthHandler(authService),
		handler.NewSessionHandler(reviewService, logger),
		handler.NewRefreshHandler(reviewService),
		handler.NewAuditHandler(service.NewAuditService(reader)),
	)

	srv := &http.Server{
		Addr:        cfg.Server.Addr(),
		Handler:     consoleSrv,
		ReadTimeout: cfg.Server.ReadTimeout,
		// WriteTimeout не ставим: /stream держит соединение
	}

	// 6. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("console started", zap.String("addr", srv.Addr), zap.String("api", cfg.API.BaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	<-stop
	logger.Info("console stopping...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	scheduler.Stop()
	cancel()
	sessions.CloseAll()
	journal.Stop()
	logger.Info("console exited properly")
}
