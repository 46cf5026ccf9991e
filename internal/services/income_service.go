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

// IncomeService keeps exactly one income figure per period.
type IncomeService struct {
	store     storage.Store
	publisher EventPublisher
}

func NewIncomeService(store storage.Store, publisher EventPublisher) *IncomeService {
	return &IncomeService{store: store, publisher: publisher}
}

// SaveIncome overwrites the amount of the period's income, creating the
// record on first write. The record id survives later writes.
func (s *IncomeService) SaveIncome(ctx context.Context, p core.Period, amount decimal.Decimal) (core.Income, error) {
	candidate := core.Income{Amount: amount, Month: p.Month, Year: p.Year}
	if err := candidate.Validate(); err != nil {
		return core.Income{}, err
	}

	inc, err := s.store.UpsertIncome(ctx, p, amount)
	if err != nil {
		return core.Income{}, fmt.Errorf("save income for %s: %w", p, err)
	}

	logger := log.FromContext(ctx).WithComponent(log.ComponentIncome)
	log.NewStructuredLogger(logger).LogIncomeSaved(ctx, inc.ID, inc.Amount.String(), inc.Year, inc.Month)

	publish(ctx, s.publisher, amqp.NewIncomeSavedEvent(inc), logger)
	return inc, nil
}

// GetIncome returns the period's income or core.ErrNotFound.
func (s *IncomeService) GetIncome(ctx context.Context, p core.Period) (core.Income, error) {
	if err := p.Validate(); err != nil {
		return core.Income{}, err
	}
	return s.store.FindIncomeByPeriod(ctx, p)
}
