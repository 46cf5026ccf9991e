package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"

	"bilancio/internal/app"
	"bilancio/internal/cli"
	apphttp "bilancio/internal/http"
	"bilancio/internal/log"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func runServe(ctx context.Context, out io.Writer) error {
	cfg := cli.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := cli.SetupLogger(cfg, out, log.ComponentApp)

	ctx, cancel := cli.ShutdownContext(ctx, logger)
	defer cancel()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize application: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("Failed to release resources", log.FieldError, err)
		}
	}()

	srv := apphttp.NewServer(apphttp.Config{
		Addr:               cfg.Addr(),
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		CacheTTL:           cfg.CacheTTL,
		Logger:             logger,
	}, apphttp.Services{
		Income:   a.Income,
		Expenses: a.Expenses,
		Summary:  a.Summary,
		Ready:    a.Ready,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting bilancio server",
			"addr", cfg.Addr(),
			log.FieldBackend, cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info("Server stopped gracefully")
	return nil
}
