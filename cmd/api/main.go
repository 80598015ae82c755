package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	_ "tasktracker/docs"
	httpadapter "tasktracker/internal/adapter/http"
	adaptertelemetry "tasktracker/internal/adapter/telemetry"
	"tasktracker/pkg/config"
)

const shutdownTimeout = 30 * time.Second

//	@title						Task Tracker API
//	@version					1.0
//	@description				Multi-tenant task tracking with JWT sessions.
//	@BasePath					/
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	gin.SetMode(cfg.GinMode)

	logger, err := config.NewLokiLogger(cfg.Telemetry.ServiceName, cfg.Telemetry.LokiURL)
	if err != nil {
		log.Fatal("Failed to initialize Loki logger: ", err)
	}
	defer logger.Sync()

	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(slogger)

	telemetry, err := adaptertelemetry.NewContainer(ctx, adaptertelemetry.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: "1.0.0",
		Environment:    cfg.Environment,
		MetricsPort:    cfg.Telemetry.MetricsPort,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		SampleRatio:    cfg.Telemetry.SampleRatio,
	}, slogger)
	if err != nil {
		log.Fatal("Failed to initialize telemetry: ", err)
	}

	metricsCtx, stopMetrics := context.WithCancel(ctx)
	telemetry.AppMetrics.StartSystemMetrics(metricsCtx)

	server, err := httpadapter.NewServer(ctx, cfg, httpadapter.Dependencies{
		Logger:    logger,
		Metrics:   telemetry.AppMetrics,
		Telemetry: telemetry.NewTelemetryProbe(slogger),
	})
	if err != nil {
		log.Fatal("Failed to build server: ", err)
	}

	failed := server.Start()
	go func() {
		if err, ok := <-failed; ok && err != nil {
			logger.Logger.Fatal("HTTP server stopped", zap.Error(err))
		}
	}()

	wait := gfshutdown.GracefulShutdown(ctx, shutdownTimeout, map[string]gfshutdown.Operation{
		"tasktracker": func(ctx context.Context) error {
			logger.Logger.Info("Shutting down gracefully...")
			stopMetrics()

			if err := server.Shutdown(ctx); err != nil {
				logger.Logger.Error("Server shutdown failed", zap.Error(err))
			}

			return telemetry.Shutdown(ctx)
		},
	})

	exitCode := <-wait
	logger.Logger.Info("Application exited", zap.Int("code", exitCode))
	os.Exit(exitCode)
}
