package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/supportdesk/ticket-system/internal/api/http"
	"github.com/supportdesk/ticket-system/internal/api/http/handlers"
	"github.com/supportdesk/ticket-system/internal/auth"
	"github.com/supportdesk/ticket-system/internal/config"
	"github.com/supportdesk/ticket-system/internal/events"
	"github.com/supportdesk/ticket-system/internal/observability"
	"github.com/supportdesk/ticket-system/internal/persistence"
	"github.com/supportdesk/ticket-system/internal/repository"
	"github.com/supportdesk/ticket-system/internal/service"
	"github.com/supportdesk/ticket-system/internal/worker"
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
	userRepo := repository.NewUserRepository()
	ticketRepo := repository.NewTicketRepository()
	historyRepo := repository.NewHistoryRepository()
	commentRepo := repository.NewCommentRepository()

	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	ticketCache := persistence.NewTicketCache(redis, cfg.Redis.TicketCacheTTL(), logger)

	authService := service.NewAuthService(cfg.Auth, pool, userRepo)
	ticketService := service.NewTicketService(service.TicketDependencies{
		DB:          pool,
		Tx:          repository.NewTxManager(pool),
		TicketRepo:  ticketRepo,
		HistoryRepo: historyRepo,
		CommentRepo: commentRepo,
		Numbers:     repository.NewTicketNumberGenerator(),
		Cache:       ticketCache,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewMiddleware(authService.TokenManager(), userRepo, pool)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
