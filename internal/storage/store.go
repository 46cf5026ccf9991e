// Package storage defines the record store that owns income and expense
// records. Implementations live in subpackages: sqlite (embedded file
// database), gormstore (PostgreSQL through gorm) and memory (tests and
// throwaway runs).
package storage

import (
	"context"

	"bilancio/internal/core"

	"github.com/shopspring/decimal"
)

// Store is the storage-agnostic record store.
//
// Lookups that find nothing return core.ErrNotFound. Any other failure is a
// *core.StorageError. Every mutation is atomic: it either fully commits or
// leaves no trace.
type Store interface {
	// FindIncomeByPeriod returns the income recorded for the period.
	FindIncomeByPeriod(ctx context.Context, p core.Period) (core.Income, error)

	// UpsertIncome records amount as the period's income, creating the record
	// on first write and overwriting only the amount afterwards. Concurrent
	// calls for the same period never produce two records.
	UpsertIncome(ctx context.Context, p core.Period, amount decimal.Decimal) (core.Income, error)

	// ListExpensesByPeriod returns the period's expenses by date descending,
	// ties broken by ascending id.
	ListExpensesByPeriod(ctx context.Context, p core.Period) ([]core.Expense, error)

	// InsertExpense stores e and returns it with its assigned id.
	InsertExpense(ctx context.Context, e core.Expense) (core.Expense, error)

	// DeleteExpenseByID removes the expense and returns the removed record.
	DeleteExpenseByID(ctx context.Context, id int64) (core.Expense, error)

	// Ping checks the store is reachable.
	Ping(ctx context.Context) error

	Close() error
}
