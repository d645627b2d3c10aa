package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/watchlist-kata/moviedb/api/handler"
	"github.com/watchlist-kata/moviedb/api/router"
	"github.com/watchlist-kata/moviedb/internal/config"
	"github.com/watchlist-kata/moviedb/internal/kinopoisk"
	"github.com/watchlist-kata/moviedb/internal/repository"
	"github.com/watchlist-kata/moviedb/internal/schedule"
	"github.com/watchlist-kata/moviedb/internal/service"
	"github.com/watchlist-kata/moviedb/pkg/utils"
)

const shutdownTimeout = 10 * time.Second

// NewApp собирает HTTP приложение каталога
func NewApp(catalog handler.Catalog, logger *slog.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "moviedb",
		ErrorHandler:          handler.ErrorHandler(logger),
		DisableStartupMessage: true,
		Immutable:             true,
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          15 * time.Second,
	})
	router.Register(app, catalog, logger)
	return app
}

// Pinger проверяет доступность хранилища
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthCheck обновляет статус gRPC health сервиса по результату проверки базы данных
func HealthCheck(pinger Pinger, hs *health.Server, serviceName string, logger *slog.Logger) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		status := healthpb.HealthCheckResponse_SERVING
		err := pinger.Ping(ctx)
		if err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
			logger.WarnContext(ctx, "database ping failed", slog.Any("error", err))
		}

		hs.SetServingStatus("", status)
		hs.SetServingStatus(serviceName, status)
		return err
	}
}

// RunServer запускает HTTP и gRPC серверы и планировщик до отмены ctx
func RunServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	// Подключение к базе данных
	db, err := utils.ConnectToDatabase(cfg, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := utils.Close(db); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	// Создание репозитория
	repo := repository.NewPostgresRepository(db, logger)

	// Клиент Кинопоиска нужен только при наличии токена
	var ratings service.RatingProvider
	if cfg.KinopoiskToken != "" {
		ratings = kinopoisk.NewClient(cfg.KinopoiskURL, cfg.KinopoiskToken, cfg.KinopoiskTimeout, logger)
	} else {
		logger.Warn("KINOPOISK_API_TOKEN is not set, kinopoisk ratings are served from cache only")
	}

	// Создание сервиса
	svc := service.NewCatalogService(repo, ratings, logger, service.WithLookupTimeout(cfg.KinopoiskLookupTimeout))

	// gRPC сервер с health-сервисом
	lis, err := net.Listen("tcp", cfg.GRPCPort)
	if err != nil {
		logger.Error("failed to listen", slog.Any("error", err))
		return fmt.Errorf("failed to listen: %w", err)
	}

	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	refreshInterval := cfg.RatingRefreshInterval
	if !svc.RatingsEnabled() {
		refreshInterval = 0
	}

	scheduler, err := schedule.New(logger,
		schedule.Job{
			Name:        "database-health",
			Interval:    cfg.HealthCheckInterval,
			Immediately: true,
			Run:         HealthCheck(svc, healthServer, cfg.ServiceName, logger),
		},
		schedule.Job{
			Name:     "kinopoisk-ratings",
			Interval: refreshInterval,
			Run: func(ctx context.Context) error {
				_, err := svc.RefreshRatings(ctx)
				return err
			},
		},
	)
	if err != nil {
		_ = lis.Close()
		return err
	}

	app := NewApp(svc, logger)

	errCh := make(chan error, 2)
	go func() {
		logger.Info("starting gRPC server", slog.String("port", cfg.GRPCPort))
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("failed to serve grpc: %w", err)
		}
	}()
	go func() {
		logger.Info("starting HTTP server", slog.String("addr", cfg.HTTPAddr()))
		if err := app.Listen(cfg.HTTPAddr()); err != nil {
			errCh <- fmt.Errorf("failed to serve http: %w", err)
		}
	}()
	scheduler.Start()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case runErr = <-errCh:
		logger.Error("server stopped", slog.Any("error", runErr))
	}

	healthServer.Shutdown()
	if err := scheduler.Shutdown(); err != nil {
		logger.Error("failed to stop scheduler", slog.Any("error", err))
	}
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Error("failed to stop HTTP server", slog.Any("error", err))
	}
	grpcServer.GracefulStop()

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}
