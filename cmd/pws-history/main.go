package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	httpapi "github.com/i474232898/pws-history/internal/api/http"
	"github.com/i474232898/pws-history/internal/config"
	"github.com/i474232898/pws-history/internal/logging"
	"github.com/i474232898/pws-history/internal/scheduler"
	"github.com/i474232898/pws-history/internal/weather"
	"github.com/i474232898/pws-history/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zl, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zl.Sync() //nolint:errcheck

	if cfg.APIKey == "" {
		zl.Warn("WU_API_KEY is not set; upstream calls will fail")
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	gateway := providers.NewWundergroundClient(httpClient, cfg.APIKey,
		providers.WithEndpoints(cfg.HistoryURL, cfg.CurrentURL),
		providers.WithUnits(cfg.Units),
		providers.WithLogger(zl.Named("wunderground")),
	)

	service := weather.NewService(gateway, zl.Named("weather"),
		weather.WithDayTimeout(cfg.DayTimeout),
		weather.WithConcurrency(cfg.RangeConcurrency),
		weather.WithPolicy(cfg.RangePolicy),
	)

	// Optional periodic poll of the configured stations.
	sched := scheduler.New(cfg.StationIDs, cfg.WatchInterval, service, zl)
	if err := sched.Start(); err != nil {
		zl.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "pws-history",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          2 * time.Minute,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(compress.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "pws-history",
		})
	})

	httpapi.RegisterRoutes(app, service, httpapi.Options{
		DefaultStationID: cfg.DefaultStation(),
		MaxRangeDays:     cfg.RangeMaxDays,
	})

	go func() {
		zl.Info("listening", zap.String("port", cfg.Port))
		if err := app.Listen(":" + cfg.Port); err != nil {
			zl.Error("fiber server stopped", zap.Error(err))
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		zl.Error("error during shutdown", zap.Error(err))
	}
}
