// Package memory provides an in-process record store. Data is lost on exit.
package memory

import (
	"context"
	"sort"
	"sync"

	"bilancio/internal/core"
	"bilancio/internal/storage"

	"github.com/shopspring/decimal"
)

var _ storage.Store = (*Store)(nil)

// Store keeps records in maps guarded by a single mutex, so each operation
// (including the income read-modify-write) is atomic.
type Store struct {
	mu       sync.RWMutex
	income   map[core.Period]core.Income
	expenses map[int64]core.Expense
	nextID   int64
	closed   bool
}

func NewStore() *Store {
	return &Store{
		income:   make(map[core.Period]core.Income),
		expenses: make(map[int64]core.Expense),
	}
}

func (s *Store) FindIncomeByPeriod(_ context.Context, p core.Period) (core.Income, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return core.Income{}, errClosed("find income")
	}
	inc, ok := s.income[p]
	if !ok {
		return core.Income{}, core.ErrNotFound
	}
	return inc, nil
}

func (s *Store) UpsertIncome(_ context.Context, p core.Period, amount decimal.Decimal) (core.Income, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return core.Income{}, errClosed("upsert income")
	}
	inc, ok := s.income[p]
	if !ok {
		s.nextID++
		inc = core.Income{ID: s.nextID, Month: p.Month, Year: p.Year}
	}
	inc.Amount = amount
	s.income[p] = inc
	return inc, nil
}

func (s *Store) ListExpensesByPeriod(_ context.Context, p core.Period) ([]core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errClosed("list expenses")
	}
	out := make([]core.Expense, 0)
	for _, e := range s.expenses {
		if e.Month == p.Month && e.Year == p.Year {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) InsertExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return core.Expense{}, errClosed("insert expense")
	}
	s.nextID++
	e.ID = s.nextID
	s.expenses[e.ID] = e
	return e, nil
}

func (s *Store) DeleteExpenseByID(_ context.Context, id int64) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return core.Expense{}, errClosed("delete expense")
	}
	e, ok := s.expenses[id]
	if !ok {
		return core.Expense{}, core.ErrNotFound
	}
	delete(s.expenses, id)
	return e, nil
}

func (s *Store) Ping(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errClosed("ping")
	}
	return nil
}

// Close marks the store closed; later calls fail with a storage error.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type closedError struct{}

func (closedError) Error() string { return "store is closed" }

func errClosed(op string) error {
	return core.NewStorageError(op, closedError{})
}
