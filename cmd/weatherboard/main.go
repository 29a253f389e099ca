package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	httpapi "github.com/weatherboard/server/internal/api/http"
	"github.com/weatherboard/server/internal/broadcast"
	"github.com/weatherboard/server/internal/config"
	"github.com/weatherboard/server/internal/observability"
	"github.com/weatherboard/server/internal/scheduler"
	"github.com/weatherboard/server/internal/session"
	"github.com/weatherboard/server/internal/source"
	"github.com/weatherboard/server/internal/store"
	"github.com/weatherboard/server/internal/weather"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Store selection: Postgres when configured, in-memory otherwise.
	var obsStore weather.Store
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer pool.Close()

		pg := store.NewPostgresStore(pool)
		if err := pg.EnsureSchema(context.Background()); err != nil {
			logger.Fatal("failed to ensure schema", zap.Error(err))
		}
		obsStore = pg
	} else {
		obsStore = store.NewMemoryStore()
	}

	// Every process starts with an empty store, same as a fresh session.
	if err := obsStore.DeleteAll(context.Background()); err != nil {
		logger.Error("failed to delete observations at startup", zap.Error(err))
	} else {
		logger.Info("deleted all observations at startup")
	}

	src := source.NewOpenMeteo(httpClient, cfg.OpenMeteoBaseURL)
	sess := session.New()
	hub := broadcast.New()

	// Core service orchestrating source, store, session and fan-out.
	service := weather.NewService(obsStore, src, sess, hub, logger)

	// Scheduler that refreshes data on the cron boundaries. The gateway
	// starts it when the first session begins.
	sched := scheduler.New(cfg.FetchCron, service, logger)
	service.AttachRefreshStarter(sched)
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "weatherboard",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(fiberlogger.New())
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigin,
		AllowMethods:     "GET,POST",
		AllowCredentials: true,
	}))

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weatherboard",
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(observability.MetricsHandler()))

	// API routes and the viewer push channel.
	httpapi.RegisterRoutes(app, service, cfg.GeocoderAPIKey)
	httpapi.RegisterPushChannel(app, hub, logger)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Error("fiber server stopped", zap.Error(err))
		}
	}()
	logger.Info("server running", zap.String("port", cfg.Port))

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("error during shutdown", zap.Error(err))
	}
}
