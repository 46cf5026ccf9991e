// Package cli provides common CLI initialization utilities shared by the
// bilancio server and the sheets worker.
package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"bilancio/internal/config"
	"bilancio/internal/log"
)

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default.
func SetupLogger(cfg *config.Config, w io.Writer, component string) *log.Logger {
	if w == nil {
		w = os.Stdout
	}
	level := log.ParseLevel(cfg.LogLevel)
	logger := log.New(log.Config{
		Level:     level,
		Component: component,
		Handler:   log.NewHandler(w, cfg.LogFormat, level),
	})
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadConfig loads the environment (after .env) into a Config.
func LoadConfig() *config.Config {
	LoadEnvFile()
	return config.Load()
}

// ShutdownContext returns a context cancelled on SIGINT or SIGTERM. The
// signal is logged once.
func ShutdownContext(parent context.Context, logger *log.Logger) (context.Context, context.CancelFunc) {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
