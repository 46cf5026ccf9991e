package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"bilancio/internal/app"
	"bilancio/internal/cli"
	"bilancio/internal/core"
	"bilancio/internal/log"
)

func newSummaryCommand() *cobra.Command {
	now := time.Now()
	var (
		year   int
		month  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the income, spending and balance of a month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := core.NewPeriod(year, month)
			if err != nil {
				return err
			}
			return runSummary(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), p, asJSON)
		},
	}

	cmd.Flags().IntVar(&year, "year", now.Year(), "year of the period")
	cmd.Flags().IntVar(&month, "month", int(now.Month()), "month of the period (1-12)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")

	return cmd
}

func runSummary(ctx context.Context, out, logOut io.Writer, p core.Period, asJSON bool) error {
	cfg := cli.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}
	// Events are for the server; a read-only command must not connect.
	cfg.AMQPURL = ""
	logger := cli.SetupLogger(cfg, logOut, log.ComponentSummary)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize application: %w", err)
	}
	defer a.Close()

	s, err := a.Summary.Summary(ctx, p)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}
	return writeSummary(out, p, s)
}

func writeSummary(out io.Writer, p core.Period, s core.Summary) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Period\t%s\n", p)
	fmt.Fprintf(tw, "Income\t%s\n", s.Income.StringFixed(2))
	fmt.Fprintf(tw, "Total expenses\t%s\n", s.TotalExpenses.StringFixed(2))
	fmt.Fprintf(tw, "Balance\t%s\n", s.Balance.StringFixed(2))
	fmt.Fprintf(tw, "Spent\t%s%%\n", s.Percentage.StringFixed(2))

	if cats := s.Categories(); len(cats) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "Category\tAmount")
		for _, c := range cats {
			fmt.Fprintf(tw, "%s\t%s\n", c.Name, c.Amount.StringFixed(2))
		}
	}
	return tw.Flush()
}
