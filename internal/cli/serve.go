package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/bigkaa/qrtrack/internal/api/handlers"
	"github.com/bigkaa/qrtrack/internal/api/middleware"
	"github.com/bigkaa/qrtrack/internal/config"
	"github.com/bigkaa/qrtrack/internal/database"
	"github.com/bigkaa/qrtrack/internal/repository"
	"github.com/bigkaa/qrtrack/internal/server"
	"github.com/bigkaa/qrtrack/internal/service"
	"github.com/bigkaa/qrtrack/internal/tracking"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Запустить HTTP-сервер",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

// signalContext отменяется при SIGINT/SIGTERM или отмене parent.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// serve собирает зависимости и запускает сервер до SIGINT/SIGTERM.
func serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signalContext(ctx)
	defer stop()

	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("загрузка конфигурации: %w", err)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("qrtrack запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("tracking_base_url", cfg.TrackingBaseURL),
	)

	if os.Getenv("QT_DEPHEALTH_GROUP") == "" {
		logger.Warn("QT_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		return fmt.Errorf("миграции БД: %w", err)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("подключение к PostgreSQL: %w", err)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Repositories
	qrRepo := repository.NewQRCodeRepository(pool)
	scanRepo := repository.NewScanEventRepository(pool)
	recorder := repository.NewScanRecorder(repository.NewTxRunner(pool))

	// 6. Tracking envelope
	envelope, err := tracking.New(cfg.TrackingBaseURL)
	if err != nil {
		return fmt.Errorf("tracking envelope: %w", err)
	}

	// 7. Services
	cache := service.NewCacheService(cfg.CacheMaxSize, cfg.CacheTTL)
	qrSvc := service.NewQRService(qrRepo, cache, envelope, logger)
	resolver := service.NewScanResolver(recorder, qrSvc, cfg.ScanPersistTimeout, logger)
	analyticsSvc := service.NewAnalyticsService(
		qrRepo, scanRepo,
		cfg.AnalyticsWindowDays, cfg.AnalyticsMaxEvents,
		cfg.AnalyticsLocation,
		logger,
	)

	// 8. topologymetrics — мониторинг PostgreSQL
	dephealthSvc, err := service.NewDephealthService(
		config.ServiceName,
		cfg.DephealthGroup,
		pgDB,
		cfg.DatabaseURL("postgres"),
		cfg.DephealthCheckInterval,
		cfg.DephealthIsEntry,
		logger,
	)
	if err != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", err.Error()),
		)
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics", slog.String("error", startErr.Error()))
	} else {
		defer dephealthSvc.Stop()
		logger.Info("topologymetrics запущен",
			slog.String("group", cfg.DephealthGroup),
			slog.String("check_interval", cfg.DephealthCheckInterval.String()),
		)
	}

	// 9. JWT middleware для API владельца
	jwtAuth, err := middleware.NewJWTAuth(
		cfg.JWTJWKSURL,
		cfg.JWKSCACertPath,
		cfg.JWTIssuer,
		cfg.JWKSClientTimeout,
		cfg.JWKSRefreshInterval,
		cfg.JWTLeeway,
		logger,
	)
	if err != nil {
		return fmt.Errorf("JWT middleware: %w", err)
	}
	logger.Info("JWT middleware инициализирован",
		slog.String("jwks_url", cfg.JWTJWKSURL),
		slog.String("issuer", cfg.JWTIssuer),
	)

	// 10. Handlers
	apiHandler := handlers.NewAPIHandler(
		handlers.NewHealthHandler(database.NewReadinessChecker(pool)),
		handlers.NewTrackHandler(resolver, logger),
		handlers.NewQRCodeHandler(qrSvc, logger),
		handlers.NewAnalyticsHandler(analyticsSvc, logger),
		handlers.NewPayloadHandler(logger),
		logger,
	)

	// 11. HTTP-сервер: recover → metrics → logging
	srv := server.New(cfg, logger, apiHandler, jwtAuth.Middleware(),
		middleware.Recoverer(logger),
		middleware.MetricsMiddleware(),
		middleware.RequestLogger(logger),
	)

	// 12. Запуск до сигнала или отмены контекста команды, затем graceful shutdown
	if err := srv.RunContext(ctx); err != nil {
		return fmt.Errorf("HTTP-сервер: %w", err)
	}

	logger.Info("qrtrack остановлен")
	return nil
}
