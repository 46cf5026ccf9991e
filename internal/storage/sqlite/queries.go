package sqlite

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type Income struct {
	ID     int64
	Amount string
	Month  int64
	Year   int64
}

type Expense struct {
	ID          int64
	Category    string
	Amount      string
	Date        string
	Description string
	Month       int64
	Year        int64
}

const getIncomeByPeriod = `SELECT id, amount, month, year FROM income
WHERE month = ? AND year = ?`

func (q *Queries) GetIncomeByPeriod(ctx context.Context, month, year int64) (Income, error) {
	row := q.db.QueryRowContext(ctx, getIncomeByPeriod, month, year)
	var i Income
	err := row.Scan(&i.ID, &i.Amount, &i.Month, &i.Year)
	return i, err
}

const upsertIncome = `INSERT INTO income (amount, month, year) VALUES (?, ?, ?)
ON CONFLICT (month, year) DO UPDATE SET amount = excluded.amount, updated_at = CURRENT_TIMESTAMP
RETURNING id, amount, month, year`

type UpsertIncomeParams struct {
	Amount string
	Month  int64
	Year   int64
}

func (q *Queries) UpsertIncome(ctx context.Context, arg UpsertIncomeParams) (Income, error) {
	row := q.db.QueryRowContext(ctx, upsertIncome, arg.Amount, arg.Month, arg.Year)
	var i Income
	err := row.Scan(&i.ID, &i.Amount, &i.Month, &i.Year)
	return i, err
}

const getExpensesByPeriod = `SELECT id, category, amount, date, description, month, year FROM expenses
WHERE month = ? AND year = ?
ORDER BY date DESC, id ASC`

func (q *Queries) GetExpensesByPeriod(ctx context.Context, month, year int64) ([]Expense, error) {
	rows, err := q.db.QueryContext(ctx, getExpensesByPeriod, month, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Expense
	for rows.Next() {
		var e Expense
		if err := rows.Scan(&e.ID, &e.Category, &e.Amount, &e.Date, &e.Description, &e.Month, &e.Year); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createExpense = `INSERT INTO expenses (category, amount, date, description, month, year)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id, category, amount, date, description, month, year`

type CreateExpenseParams struct {
	Category    string
	Amount      string
	Date        string
	Description string
	Month       int64
	Year        int64
}

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) (Expense, error) {
	row := q.db.QueryRowContext(ctx, createExpense,
		arg.Category, arg.Amount, arg.Date, arg.Description, arg.Month, arg.Year)
	var e Expense
	err := row.Scan(&e.ID, &e.Category, &e.Amount, &e.Date, &e.Description, &e.Month, &e.Year)
	return e, err
}

const deleteExpense = `DELETE FROM expenses WHERE id = ?
RETURNING id, category, amount, date, description, month, year`

func (q *Queries) DeleteExpense(ctx context.Context, id int64) (Expense, error) {
	row := q.db.QueryRowContext(ctx, deleteExpense, id)
	var e Expense
	err := row.Scan(&e.ID, &e.Category, &e.Amount, &e.Date, &e.Description, &e.Month, &e.Year)
	return e, err
}
