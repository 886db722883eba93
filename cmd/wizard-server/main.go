// Command wizard-server serves the wizard HTTP API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"divorce-wizard/internal/app"
	"divorce-wizard/internal/common/config"
	"divorce-wizard/internal/common/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zapLog := logger.New("info", "console")
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, zap.String("service", cfg.App.Name))
	defer zapLog.Sync()

	zapLog.Info("Starting wizard server...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	ctx := context.Background()

	application, err := app.Build(ctx, cfg, zapLog, app.Options{MaxRetries: 15, InitialDelay: 2 * time.Second})
	if err != nil {
		zapLog.Fatal("startup failed", zap.Error(err))
	}
	defer application.Close()
	zapLog.Info("All services initialized")

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      application.APIServer().Router(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining requests...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}

	zapLog.Info("Wizard server stopped gracefully")
}
