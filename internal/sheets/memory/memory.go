package memory

import (
	"context"
	"slices"
	"sync"

	"bilancio/internal/core"
	"bilancio/internal/sheets"
)

// Mirror keeps the mirrored rows in memory. It backs the worker's dry-run
// mode and tests.
type Mirror struct {
	mu       sync.Mutex
	incomes  []core.Income
	expenses []core.Expense
}

var _ sheets.Mirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{}
}

// UpsertIncome replaces the row for the income's period or adds one.
func (m *Mirror) UpsertIncome(_ context.Context, inc core.Income) error {
	if err := inc.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.incomes {
		if existing.Period() == inc.Period() {
			m.incomes[i] = inc
			return nil
		}
	}
	m.incomes = append(m.incomes, inc)
	return nil
}

// AppendExpense stores the expense once per id.
func (m *Mirror) AppendExpense(_ context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.indexOf(e.ID) >= 0 {
		return nil
	}
	m.expenses = append(m.expenses, e)
	return nil
}

// DeleteExpense drops the expense with id, if present.
func (m *Mirror) DeleteExpense(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.indexOf(id); i >= 0 {
		m.expenses = slices.Delete(m.expenses, i, i+1)
	}
	return nil
}

// Expenses returns the mirrored expenses in append order.
func (m *Mirror) Expenses() []core.Expense {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.expenses)
}

// Incomes returns the mirrored income rows in first-seen order.
func (m *Mirror) Incomes() []core.Income {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.incomes)
}

func (m *Mirror) indexOf(id int64) int {
	return slices.IndexFunc(m.expenses, func(e core.Expense) bool { return e.ID == id })
}
