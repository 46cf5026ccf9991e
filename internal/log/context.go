package log

import (
	"context"
	"log/slog"
)

type contextKey struct{}

// NewContext returns a copy of ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext returns the request logger, or one built on the slog default
// outside a request.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(contextKey{}).(*Logger); ok {
		return logger
	}
	return wrap(slog.Default(), "")
}

// StructuredLogger writes the domain events every write path reports.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

func (sl *StructuredLogger) LogExpenseCreated(ctx context.Context, id int64, category, amount string, year, month int) {
	fields := NewFields().
		WithExpense(id, category, amount, year, month).
		WithOperation(OpCreate)

	sl.logger.WithComponent(ComponentExpense).InfoContext(ctx, "Expense created successfully", fields.ToSlice()...)
}

// LogIncomeSaved logs a successful income upsert
func (sl *StructuredLogger) LogIncomeSaved(ctx context.Context, id int64, amount string, year, month int) {
	fields := NewFields().
		WithPeriod(year, month).
		WithOperation(OpUpsert)
	fields[FieldIncomeID] = id
	fields[FieldAmount] = amount

	sl.logger.WithComponent(ComponentIncome).InfoContext(ctx, "Income saved successfully", fields.ToSlice()...)
}
