package services

import (
	"context"
	"errors"
	"fmt"

	"bilancio/internal/core"
	"bilancio/internal/storage"

	"golang.org/x/sync/errgroup"
)

// SummaryService computes the monthly financial picture.
type SummaryService struct {
	store storage.Store
}

func NewSummaryService(store storage.Store) *SummaryService {
	return &SummaryService{store: store}
}

// Summary loads income and expenses for the period concurrently and
// aggregates them. A missing income counts as zero; any other lookup failure
// aborts with no partial result.
func (s *SummaryService) Summary(ctx context.Context, p core.Period) (core.Summary, error) {
	if err := p.Validate(); err != nil {
		return core.Summary{}, err
	}

	var (
		income   *core.Income
		expenses []core.Expense
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		inc, err := s.store.FindIncomeByPeriod(gctx, p)
		if errors.Is(err, core.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		income = &inc
		return nil
	})
	g.Go(func() error {
		var err error
		expenses, err = s.store.ListExpensesByPeriod(gctx, p)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Summary{}, fmt.Errorf("summarize %s: %w", p, err)
	}

	return core.Summarize(income, expenses), nil
}

// MonthExport bundles everything needed to export one period.
type MonthExport struct {
	Period   core.Period
	Income   *core.Income
	Expenses []core.Expense
	Summary  core.Summary
}

// Export gathers the period's records together with its summary.
func (s *SummaryService) Export(ctx context.Context, p core.Period) (MonthExport, error) {
	if err := p.Validate(); err != nil {
		return MonthExport{}, err
	}

	out := MonthExport{Period: p}
	inc, err := s.store.FindIncomeByPeriod(ctx, p)
	switch {
	case errors.Is(err, core.ErrNotFound):
	case err != nil:
		return MonthExport{}, fmt.Errorf("export %s: %w", p, err)
	default:
		out.Income = &inc
	}

	out.Expenses, err = s.store.ListExpensesByPeriod(ctx, p)
	if err != nil {
		return MonthExport{}, fmt.Errorf("export %s: %w", p, err)
	}
	out.Summary = core.Summarize(out.Income, out.Expenses)
	return out, nil
}
