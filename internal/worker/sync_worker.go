// Package worker applies finance events to the spreadsheet mirror.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/sheets"
)

// PeriodReader is the slice of the record store a resync needs.
type PeriodReader interface {
	FindIncomeByPeriod(ctx context.Context, p core.Period) (core.Income, error)
	ListExpensesByPeriod(ctx context.Context, p core.Period) ([]core.Expense, error)
}

// SyncWorker handles synchronization of finance events to the spreadsheet mirror
type SyncWorker struct {
	mirror sheets.Mirror
	logger *log.Logger

	handled atomic.Int64
	failed  atomic.Int64
}

// Stats counts handled events since the worker started.
type Stats struct {
	Handled int64
	Failed  int64
}

// ResyncResult reports what a resync wrote.
type ResyncResult struct {
	Income   bool
	Expenses int
}

func NewSyncWorker(mirror sheets.Mirror, logger *log.Logger) *SyncWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &SyncWorker{
		mirror: mirror,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// Handle applies one event. A returned error makes the consumer requeue the
// delivery, so every mirror operation must tolerate replays.
func (w *SyncWorker) Handle(ctx context.Context, ev amqp.Event) error {
	if err := ev.Validate(); err != nil {
		w.failed.Add(1)
		return fmt.Errorf("invalid event: %w", err)
	}

	var err error
	switch ev.Type {
	case amqp.EventIncomeSaved:
		err = w.mirror.UpsertIncome(ctx, *ev.Income)
	case amqp.EventExpenseCreated:
		err = w.mirror.AppendExpense(ctx, *ev.Expense)
	case amqp.EventExpenseDeleted:
		err = w.mirror.DeleteExpense(ctx, ev.Expense.ID)
	}
	if err != nil {
		w.failed.Add(1)
		w.logger.ErrorContext(ctx, "Failed to mirror event",
			log.FieldEventType, ev.Type,
			log.FieldError, err)
		return fmt.Errorf("mirror %s: %w", ev.Type, err)
	}

	w.handled.Add(1)
	w.logger.InfoContext(ctx, "Mirrored event",
		log.FieldEventType, ev.Type,
		"event_timestamp", ev.Timestamp)
	return nil
}

// Resync writes a period's records straight from the store. It recovers
// events lost while the worker was down.
func (w *SyncWorker) Resync(ctx context.Context, store PeriodReader, p core.Period) (ResyncResult, error) {
	var res ResyncResult
	if err := p.Validate(); err != nil {
		return res, err
	}

	inc, err := store.FindIncomeByPeriod(ctx, p)
	switch {
	case err == nil:
		if err := w.mirror.UpsertIncome(ctx, inc); err != nil {
			return res, fmt.Errorf("mirror income: %w", err)
		}
		res.Income = true
	case !errors.Is(err, core.ErrNotFound):
		return res, fmt.Errorf("read income: %w", err)
	}

	expenses, err := store.ListExpensesByPeriod(ctx, p)
	if err != nil {
		return res, fmt.Errorf("read expenses: %w", err)
	}
	// Oldest first so the sheet reads chronologically.
	for i := len(expenses) - 1; i >= 0; i-- {
		if err := w.mirror.AppendExpense(ctx, expenses[i]); err != nil {
			return res, fmt.Errorf("mirror expense %d: %w", expenses[i].ID, err)
		}
		res.Expenses++
	}

	w.logger.InfoContext(ctx, "Resync completed",
		log.FieldPeriod, p.String(),
		"income", res.Income,
		"expenses", res.Expenses)
	return res, nil
}

// Stats returns the handled and failed counters.
func (w *SyncWorker) Stats() Stats {
	return Stats{Handled: w.handled.Load(), Failed: w.failed.Load()}
}
