package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/helpdeskhq/support-desk/internal/api/http"
	"github.com/helpdeskhq/support-desk/internal/api/http/handlers"
	"github.com/helpdeskhq/support-desk/internal/auth"
	"github.com/helpdeskhq/support-desk/internal/config"
	"github.com/helpdeskhq/support-desk/internal/events"
	"github.com/helpdeskhq/support-desk/internal/observability"
	"github.com/helpdeskhq/support-desk/internal/persistence"
	"github.com/helpdeskhq/support-desk/internal/policy"
	"github.com/helpdeskhq/support-desk/internal/repository"
	"github.com/helpdeskhq/support-desk/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if pg.Configured() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), persistence.DefaultMigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	var (
		userRepo   repository.UserRepository
		ticketRepo repository.TicketRepository
		statsCache repository.StatsCache
	)
	if pg.Configured() {
		userRepo = repository.NewUserRepository(pg.PoolHandle())
		ticketRepo = repository.NewTicketRepository(pg.PoolHandle())
	} else {
		userRepo = repository.NewMemoryUserRepository()
		ticketRepo = repository.NewMemoryTicketRepository()
	}
	if redis.Configured() {
		statsCache = repository.NewRedisStatsCache(redis.Client, cfg.Redis.StatsCacheTTL())
	}

	dispatcher := events.NewInMemoryDispatcher()
	ticketPolicy := policy.New()

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{UserRepo: userRepo})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: ticketRepo,
		UserRepo:   userRepo,
		Policy:     ticketPolicy,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	reportService := service.NewReportService(service.ReportDependencies{
		TicketRepo: ticketRepo,
		Cache:      statsCache,
		Policy:     ticketPolicy,
		Logger:     logger,
	})
	reportService.RegisterInvalidation(dispatcher)
	service.NewNotificationService(dispatcher, logger).RegisterHandlers()

	metrics := observability.NewMetrics()
	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: !cfg.App.IsDevelopment(),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, httptransport.MiddlewareConfig{
		Timeout:          cfg.App.RequestTimeout(),
		CORSAllowOrigins: cfg.HTTP.CORSAllowOrigins,
	})

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Users:          handlers.NewUsersHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		AdminTickets:   handlers.NewAdminTicketsHandler(ticketService, reportService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager()),
		Metrics:        metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn("shutdown did not complete cleanly", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
