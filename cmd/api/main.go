package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/exchange-desk/internal/api/http"
	"github.com/spec-kit/exchange-desk/internal/api/http/handlers"
	"github.com/spec-kit/exchange-desk/internal/auth"
	"github.com/spec-kit/exchange-desk/internal/config"
	"github.com/spec-kit/exchange-desk/internal/events"
	"github.com/spec-kit/exchange-desk/internal/observability"
	"github.com/spec-kit/exchange-desk/internal/persistence"
	"github.com/spec-kit/exchange-desk/internal/repository"
	"github.com/spec-kit/exchange-desk/internal/service"
	"github.com/spec-kit/exchange-desk/internal/worker"
)

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

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	eventRepo := repository.NewTicketEventRepository(pool)
	profileRepo := repository.NewProfileRepository(pool)
	statsRepo := repository.NewStatsRepository(pool)
	priceRepo := repository.NewCachedPriceRepository(
		repository.NewPriceRepository(pool), redis.Client, cfg.Pricing.PriceCacheTTL)

	dispatcher := events.NewInMemoryDispatcher()

	notifications := service.NewNotificationService(dispatcher, logger)
	notifications.RegisterHandlers()

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: ticketRepo,
		EventRepo:  eventRepo,
		PriceRepo:  priceRepo,
		Dispatcher: dispatcher,
		Pricing:    cfg.Pricing,
	})
	slaService := service.NewSLAService(ticketRepo, dispatcher, cfg.SLA, logger)
	authService := service.NewAuthService(cfg.Auth, profileRepo)
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), profileRepo)

	slaWorker := worker.NewSLAWorker(slaService, cfg.SLA.SweepInterval, logger)
	go slaWorker.Run(ctx)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:          handlers.NewUsersHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Export:         handlers.NewExportHandler(ticketService),
		Stats:          handlers.NewStatsHandler(statsRepo),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
	cancel()

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
