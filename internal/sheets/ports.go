// Package sheets defines the spreadsheet mirror the worker keeps in step
// with the record store.
package sheets

import (
	"context"

	"bilancio/internal/core"
)

// Mirror receives every committed change. Implementations must be
// idempotent: the broker redelivers events after a failed handler.
type Mirror interface {
	// UpsertIncome writes the income row for the record's period.
	UpsertIncome(ctx context.Context, inc core.Income) error
	// AppendExpense adds the expense unless a row with its id already exists.
	AppendExpense(ctx context.Context, e core.Expense) error
	// DeleteExpense removes the row with the given id. A missing row is not an error.
	DeleteExpense(ctx context.Context, id int64) error
}
