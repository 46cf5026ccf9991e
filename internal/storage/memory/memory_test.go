package memory

import (
	"context"
	"sync"
	"testing"

	"bilancio/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExpense(t *testing.T, category string, amount int64, year, month, day int) core.Expense {
	t.Helper()
	e, err := core.NewExpense(category, decimal.NewFromInt(amount), core.NewDate(year, month, day), "")
	require.NoError(t, err)
	return e
}

func TestStore_UpsertIncomeKeepsOneRecordPerPeriod(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	p := core.Period{Year: 2024, Month: 6}

	first, err := s.UpsertIncome(ctx, p, decimal.NewFromInt(1000))
	require.NoError(t, err)
	second, err := s.UpsertIncome(ctx, p, decimal.NewFromInt(3000))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	got, err := s.FindIncomeByPeriod(ctx, p)
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(3000)))
	assert.Len(t, s.income, 1)

	_, err = s.FindIncomeByPeriod(ctx, core.Period{Year: 2024, Month: 7})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestStore_ConcurrentUpsert(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	p := core.Period{Year: 2024, Month: 1}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int64) {
			defer wg.Done()
			_, _ = s.UpsertIncome(ctx, p, decimal.NewFromInt(n))
		}(int64(i))
	}
	wg.Wait()
	assert.Len(t, s.income, 1)
}

func TestStore_ListOrdersByDateDescThenID(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	a, _ := s.InsertExpense(ctx, newExpense(t, "Rent", 1000, 2024, 6, 1))
	b, _ := s.InsertExpense(ctx, newExpense(t, "Food", 200, 2024, 6, 15))
	c, _ := s.InsertExpense(ctx, newExpense(t, "Food", 5, 2024, 6, 15))
	_, _ = s.InsertExpense(ctx, newExpense(t, "Food", 5, 2024, 5, 31))

	list, err := s.ListExpensesByPeriod(ctx, core.Period{Year: 2024, Month: 6})
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []int64{b.ID, c.ID, a.ID}, []int64{list[0].ID, list[1].ID, list[2].ID})

	empty, err := s.ListExpensesByPeriod(ctx, core.Period{Year: 1999, Month: 1})
	require.NoError(t, err)
	assert.NotNil(t, empty)
}

func TestStore_Delete(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	e, _ := s.InsertExpense(ctx, newExpense(t, "Food", 10, 2024, 6, 1))
	deleted, err := s.DeleteExpenseByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, e, deleted)

	_, err = s.DeleteExpenseByID(ctx, e.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestStore_ClosedReturnsStorageError(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Close())

	var se *core.StorageError
	_, err := s.ListExpensesByPeriod(context.Background(), core.Period{Year: 2024, Month: 1})
	assert.ErrorAs(t, err, &se)
	assert.ErrorAs(t, s.Ping(context.Background()), &se)
}
