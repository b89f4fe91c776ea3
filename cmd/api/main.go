package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"pdfstore/docs"
	"pdfstore/internal/app"
	"pdfstore/internal/config"
	handlers "pdfstore/internal/http/handler"
	"pdfstore/internal/http/middleware"
	"pdfstore/internal/logging"
	"pdfstore/internal/otel"
)

// @title PDF Store API
// @version 1.0
// @BasePath /
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel, os.Stdout, logging.Location(cfg.Timezone))
	if err != nil {
		logger, _ = logging.New("info", os.Stdout, nil)
		logger.Warn("invalid_log_level", zap.String("log_level", cfg.LogLevel), zap.Error(err))
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, logger)
	if err != nil {
		logger.Fatal("tracing_init_failed", zap.Error(err))
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracing_shutdown_failed", zap.Error(err))
		}
	}()

	components, err := app.Build(ctx, cfg, logger, prometheus.DefaultRegisterer)
	if err != nil {
		logger.Fatal("startup_failed", zap.Error(err))
	}
	defer components.Close()

	promMiddleware, err := middleware.NewPrometheusMiddleware(prometheus.DefaultRegisterer)
	if err != nil {
		logger.Fatal("metrics_init_failed", zap.Error(err))
	}

	server := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    cfg.BodyLimitMB * 1024 * 1024,
	})

	// RequestID adds/propagates X-Request-ID and stores it in context
	server.Use(middleware.RequestID())
	server.Use(otelfiber.Middleware())
	server.Use(middleware.Logger(logger))
	server.Use(promMiddleware.Handler())

	handlers.RegisterRoutes(server, components.DB, components.Ingest)
	server.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Swagger UI with dynamic host and scheme
	server.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	go func() {
		<-ctx.Done()
		logger.Info("server_shutting_down")
		// In-flight uploads finish; new connections are refused.
		if err := server.ShutdownWithTimeout(30 * time.Second); err != nil {
			logger.Warn("server_shutdown_failed", zap.Error(err))
		}
	}()

	addr := ":" + cfg.Port
	logger.Info("server_starting", zap.String("addr", addr), zap.String("storage_backend", cfg.Storage.Backend))
	if err := server.Listen(addr); err != nil {
		logger.Error("server_failed", zap.Error(err))
	}
}
