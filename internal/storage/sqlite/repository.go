// Package sqlite implements the record store on an embedded SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/storage"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

var _ storage.Store = (*Repository)(nil)

type Repository struct {
	db      *sql.DB
	queries *Queries
}

// NewRepository opens (creating if needed) the database at dbPath and applies
// pending migrations before returning.
func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// Single writer: serialize access through one connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{
		db:      db,
		queries: New(db),
	}, nil
}

func dsn(dbPath string) string {
	return dbPath + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return core.NewStorageError("ping", err)
	}
	return nil
}

// withTx runs fn inside a transaction, rolling back on any error.
func (r *Repository) withTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(r.queries.WithTx(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *Repository) FindIncomeByPeriod(ctx context.Context, p core.Period) (core.Income, error) {
	row, err := r.queries.GetIncomeByPeriod(ctx, int64(p.Month), int64(p.Year))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Income{}, core.ErrNotFound
	}
	if err != nil {
		return core.Income{}, core.NewStorageError("find income", err)
	}
	return toIncome(row)
}

func (r *Repository) UpsertIncome(ctx context.Context, p core.Period, amount decimal.Decimal) (core.Income, error) {
	var row Income
	err := r.withTx(ctx, func(q *Queries) error {
		var err error
		row, err = q.UpsertIncome(ctx, UpsertIncomeParams{
			Amount: amount.String(),
			Month:  int64(p.Month),
			Year:   int64(p.Year),
		})
		return err
	})
	if err != nil {
		return core.Income{}, core.NewStorageError("upsert income", err)
	}

	slog.DebugContext(ctx, "Income saved to SQLite",
		log.FieldIncomeID, row.ID,
		log.FieldAmount, row.Amount,
		log.FieldYear, row.Year,
		log.FieldMonth, row.Month)

	return toIncome(row)
}

func (r *Repository) ListExpensesByPeriod(ctx context.Context, p core.Period) ([]core.Expense, error) {
	rows, err := r.queries.GetExpensesByPeriod(ctx, int64(p.Month), int64(p.Year))
	if err != nil {
		return nil, core.NewStorageError("list expenses", err)
	}

	expenses := make([]core.Expense, 0, len(rows))
	for _, row := range rows {
		e, err := toExpense(row)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, nil
}

func (r *Repository) InsertExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	var row Expense
	err := r.withTx(ctx, func(q *Queries) error {
		var err error
		row, err = q.CreateExpense(ctx, CreateExpenseParams{
			Category:    e.Category,
			Amount:      e.Amount.String(),
			Date:        e.Date.String(),
			Description: e.Description,
			Month:       int64(e.Month),
			Year:        int64(e.Year),
		})
		return err
	})
	if err != nil {
		return core.Expense{}, core.NewStorageError("insert expense", err)
	}

	slog.DebugContext(ctx, "Expense saved to SQLite",
		log.FieldExpenseID, row.ID,
		log.FieldCategory, row.Category,
		log.FieldAmount, row.Amount,
		"date", row.Date)

	return toExpense(row)
}

func (r *Repository) DeleteExpenseByID(ctx context.Context, id int64) (core.Expense, error) {
	var row Expense
	err := r.withTx(ctx, func(q *Queries) error {
		var err error
		row, err = q.DeleteExpense(ctx, id)
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, core.NewStorageError("delete expense", err)
	}
	return toExpense(row)
}

func toIncome(row Income) (core.Income, error) {
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return core.Income{}, core.NewStorageError("decode income", fmt.Errorf("amount %q: %w", row.Amount, err))
	}
	return core.Income{
		ID:     row.ID,
		Amount: amount,
		Month:  int(row.Month),
		Year:   int(row.Year),
	}, nil
}

func toExpense(row Expense) (core.Expense, error) {
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return core.Expense{}, core.NewStorageError("decode expense", fmt.Errorf("amount %q: %w", row.Amount, err))
	}
	date, err := core.ParseDate(row.Date)
	if err != nil {
		return core.Expense{}, core.NewStorageError("decode expense", fmt.Errorf("date %q: %w", row.Date, err))
	}
	return core.Expense{
		ID:          row.ID,
		Category:    row.Category,
		Amount:      amount,
		Date:        date,
		Description: row.Description,
		Month:       int(row.Month),
		Year:        int(row.Year),
	}, nil
}
