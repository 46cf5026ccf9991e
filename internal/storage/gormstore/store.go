// Package gormstore implements the record store with gorm, targeting a hosted
// PostgreSQL database in production.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/storage"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var _ storage.Store = (*Store)(nil)

type incomeRecord struct {
	ID        int64           `gorm:"primaryKey"`
	Amount    decimal.Decimal `gorm:"type:numeric;not null"`
	Month     int             `gorm:"not null;uniqueIndex:idx_income_period"`
	Year      int             `gorm:"not null;uniqueIndex:idx_income_period"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (incomeRecord) TableName() string { return "income" }

type expenseRecord struct {
	ID          int64           `gorm:"primaryKey"`
	Category    string          `gorm:"type:varchar(50);not null"`
	Amount      decimal.Decimal `gorm:"type:numeric;not null"`
	Date        string          `gorm:"type:varchar(10);not null"`
	Description string          `gorm:"type:varchar(200);not null;default:''"`
	Month       int             `gorm:"not null;index:idx_expenses_period"`
	Year        int             `gorm:"not null;index:idx_expenses_period"`
	CreatedAt   time.Time
}

func (expenseRecord) TableName() string { return "expenses" }

// Store is a gorm-backed record store.
type Store struct {
	db *gorm.DB
}

// Open connects using the given dialector constructor (postgres.Open in
// production) and migrates the schema.
func Open(dialector func(string) gorm.Dialector, dsn string) (*Store, error) {
	config := &gorm.Config{
		NowFunc: func() time.Time {
			return time.Now().In(time.UTC)
		},
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(dialector(dsn), config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&incomeRecord{}, &expenseRecord{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return &Store{db: db}, nil
}

// DB exposes the underlying handle for pool tuning.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) FindIncomeByPeriod(ctx context.Context, p core.Period) (core.Income, error) {
	var rec incomeRecord
	err := s.db.WithContext(ctx).
		Where("month = ? AND year = ?", p.Month, p.Year).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.Income{}, core.ErrNotFound
	}
	if err != nil {
		return core.Income{}, core.NewStorageError("find income", err)
	}
	return rec.toCore(), nil
}

func (s *Store) UpsertIncome(ctx context.Context, p core.Period, amount decimal.Decimal) (core.Income, error) {
	var rec incomeRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		in := incomeRecord{Amount: amount, Month: p.Month, Year: p.Year}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "month"}, {Name: "year"}},
			DoUpdates: clause.AssignmentColumns([]string{"amount", "updated_at"}),
		}).Create(&in).Error
		if err != nil {
			return err
		}
		return tx.Where("month = ? AND year = ?", p.Month, p.Year).First(&rec).Error
	})
	if err != nil {
		return core.Income{}, core.NewStorageError("upsert income", err)
	}
	return rec.toCore(), nil
}

func (s *Store) ListExpensesByPeriod(ctx context.Context, p core.Period) ([]core.Expense, error) {
	var recs []expenseRecord
	err := s.db.WithContext(ctx).
		Where("month = ? AND year = ?", p.Month, p.Year).
		Order("date DESC").Order("id ASC").
		Find(&recs).Error
	if err != nil {
		return nil, core.NewStorageError("list expenses", err)
	}

	out := make([]core.Expense, 0, len(recs))
	for _, rec := range recs {
		e, err := rec.toCore()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *Store) InsertExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	rec := expenseRecord{
		Category:    e.Category,
		Amount:      e.Amount,
		Date:        e.Date.String(),
		Description: e.Description,
		Month:       e.Month,
		Year:        e.Year,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&rec).Error
	})
	if err != nil {
		return core.Expense{}, core.NewStorageError("insert expense", err)
	}
	e.ID = rec.ID
	return e, nil
}

func (s *Store) DeleteExpenseByID(ctx context.Context, id int64) (core.Expense, error) {
	var rec expenseRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&rec, id).Error; err != nil {
			return err
		}
		return tx.Delete(&rec).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.Expense{}, core.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, core.NewStorageError("delete expense", err)
	}
	return rec.toCore()
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return core.NewStorageError("ping", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return core.NewStorageError("ping", err)
	}
	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r incomeRecord) toCore() core.Income {
	return core.Income{ID: r.ID, Amount: r.Amount, Month: r.Month, Year: r.Year}
}

func (r expenseRecord) toCore() (core.Expense, error) {
	date, err := core.ParseDate(r.Date)
	if err != nil {
		return core.Expense{}, core.NewStorageError("decode expense", fmt.Errorf("date %q: %w", r.Date, err))
	}
	return core.Expense{
		ID:          r.ID,
		Category:    r.Category,
		Amount:      r.Amount,
		Date:        date,
		Description: r.Description,
		Month:       r.Month,
		Year:        r.Year,
	}, nil
}
