package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"bilancio/internal/amqp"
	"bilancio/internal/backend"
	"bilancio/internal/buildinfo"
	"bilancio/internal/cli"
	"bilancio/internal/config"
	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/sheets"
	"bilancio/internal/sheets/google"
	sheetsmem "bilancio/internal/sheets/memory"
	"bilancio/internal/worker"
)

type workerOptions struct {
	dryRun bool
	resync string
}

// NewWorkerCommand creates the root command of bilancio-worker, which
// mirrors finance events into Google Sheets.
func NewWorkerCommand() *cobra.Command {
	var opts workerOptions

	cmd := &cobra.Command{
		Use:     "bilancio-worker",
		Short:   "Mirror finance events into Google Sheets",
		Version: buildinfo.String(),
		Args:    cobra.NoArgs,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "apply events to an in-memory mirror instead of Google Sheets")
	cmd.Flags().StringVar(&opts.resync, "resync", "", "copy one period (YYYY-MM) from the database to the mirror and exit")

	return cmd
}

func runWorker(ctx context.Context, out io.Writer, opts workerOptions) error {
	cfg := cli.LoadConfig()
	logger := cli.SetupLogger(cfg, out, log.ComponentWorker)

	if err := validateWorker(cfg, opts); err != nil {
		return err
	}

	ctx, cancel := cli.ShutdownContext(ctx, logger)
	defer cancel()

	mirror, err := newMirror(ctx, cfg, logger, opts.dryRun)
	if err != nil {
		return err
	}
	w := worker.NewSyncWorker(mirror, logger)

	if opts.resync != "" {
		p, err := parsePeriod(opts.resync)
		if err != nil {
			return err
		}
		return resync(ctx, cfg, logger, w, p)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return fmt.Errorf("initialize AMQP client: %w", err)
	}
	defer client.Close()

	logger.Info("Starting bilancio-worker",
		"queue", cfg.AMQPQueue,
		"dry_run", opts.dryRun)

	err = client.Consume(ctx, w.Handle)
	stats := w.Stats()
	logger.Info("Worker stopped",
		"handled", stats.Handled,
		"failed", stats.Failed)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("consume events: %w", err)
	}
	return nil
}

func validateWorker(cfg *config.Config, opts workerOptions) error {
	var errs []error
	if opts.resync != "" {
		errs = append(errs, cfg.Validate())
	} else {
		errs = append(errs, cfg.ValidateConsumer())
	}
	if !opts.dryRun {
		errs = append(errs, cfg.ValidateSheets())
	}
	return errors.Join(errs...)
}

func newMirror(ctx context.Context, cfg *config.Config, logger *log.Logger, dryRun bool) (sheets.Mirror, error) {
	if dryRun {
		logger.Warn("Dry run: events are applied to an in-memory mirror")
		return sheetsmem.New(), nil
	}

	creds, err := cfg.ServiceAccountJSON()
	if err != nil {
		return nil, err
	}
	client, err := google.New(ctx, creds, google.Options{
		SpreadsheetID: cfg.GoogleSpreadsheetID,
		ExpensesSheet: cfg.GoogleExpensesSheet,
		IncomeSheet:   cfg.GoogleIncomeSheet,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize Google Sheets client: %w", err)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	return client, nil
}

func resync(ctx context.Context, cfg *config.Config, logger *log.Logger, w *worker.SyncWorker, p core.Period) error {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return fmt.Errorf("init %s backend: %w", bcfg.Type, err)
	}
	if res.Cleanup != nil {
		defer res.Cleanup()
	}

	_, err = w.Resync(ctx, res.Store, p)
	return err
}

// parsePeriod reads a YYYY-MM flag value.
func parsePeriod(s string) (core.Period, error) {
	yearStr, monthStr, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return core.Period{}, core.NewValidationError("period", "must be YYYY-MM")
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return core.Period{}, core.NewValidationError("year", "must be an integer")
	}
	month, err := strconv.Atoi(monthStr)
	if err != nil {
		return core.Period{}, core.NewValidationError("month", "must be an integer")
	}
	return core.NewPeriod(year, month)
}
