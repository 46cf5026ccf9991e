package services

import (
	"context"
	"fmt"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/storage"

	"github.com/shopspring/decimal"
)

// ExpenseInput is an expense as submitted by a caller, before normalization.
type ExpenseInput struct {
	Category    string
	Amount      decimal.Decimal
	Date        string
	Description string
}

// ExpenseService validates, stores and removes expenses, announcing each
// committed change on the event publisher.
type ExpenseService struct {
	store     storage.Store
	publisher EventPublisher
}

func NewExpenseService(store storage.Store, publisher EventPublisher) *ExpenseService {
	return &ExpenseService{store: store, publisher: publisher}
}

// CreateExpense parses the date strictly, derives month and year from it
// and stores the result.
func (s *ExpenseService) CreateExpense(ctx context.Context, in ExpenseInput) (core.Expense, error) {
	date, err := core.ParseDate(in.Date)
	if err != nil {
		return core.Expense{}, err
	}
	e, err := core.NewExpense(in.Category, in.Amount, date, in.Description)
	if err != nil {
		return core.Expense{}, err
	}

	saved, err := s.store.InsertExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	logger := log.FromContext(ctx).WithComponent(log.ComponentExpense)
	log.NewStructuredLogger(logger).LogExpenseCreated(ctx, saved.ID, saved.Category, saved.Amount.String(), saved.Year, saved.Month)

	publish(ctx, s.publisher, amqp.NewExpenseCreatedEvent(saved), logger)
	return saved, nil
}

// ListExpenses returns the period's expenses, newest first.
func (s *ExpenseService) ListExpenses(ctx context.Context, p core.Period) ([]core.Expense, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	items, err := s.store.ListExpensesByPeriod(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("list expenses for %s: %w", p, err)
	}
	return items, nil
}

// DeleteExpense removes the expense and returns it. A missing id yields
// core.ErrNotFound.
func (s *ExpenseService) DeleteExpense(ctx context.Context, id int64) (core.Expense, error) {
	deleted, err := s.store.DeleteExpenseByID(ctx, id)
	if err != nil {
		return core.Expense{}, fmt.Errorf("delete expense %d: %w", id, err)
	}

	logger := log.FromContext(ctx).WithComponent(log.ComponentExpense)
	logger.InfoContext(ctx, "Expense deleted",
		log.NewFields().
			WithExpense(deleted.ID, deleted.Category, deleted.Amount.String(), deleted.Year, deleted.Month).
			WithOperation(log.OpDelete).
			ToSlice()...)

	publish(ctx, s.publisher, amqp.NewExpenseDeletedEvent(deleted), logger)
	return deleted, nil
}
