package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/storage/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []amqp.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev amqp.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []amqp.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]amqp.EventType, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

// failingStore wraps a memory store and fails the selected operations.
type failingStore struct {
	*memory.Store
	failList   bool
	failIncome bool
}

var errDisk = core.NewStorageError("read", errors.New("disk I/O error"))

func (f *failingStore) ListExpensesByPeriod(ctx context.Context, p core.Period) ([]core.Expense, error) {
	if f.failList {
		return nil, errDisk
	}
	return f.Store.ListExpensesByPeriod(ctx, p)
}

func (f *failingStore) FindIncomeByPeriod(ctx context.Context, p core.Period) (core.Income, error) {
	if f.failIncome {
		return core.Income{}, errDisk
	}
	return f.Store.FindIncomeByPeriod(ctx, p)
}

func june() core.Period { return core.Period{Year: 2024, Month: 6} }

func TestIncomeService_SaveIncomeUpserts(t *testing.T) {
	store := memory.NewStore()
	pub := &recordingPublisher{}
	svc := NewIncomeService(store, pub)
	ctx := context.Background()

	first, err := svc.SaveIncome(ctx, june(), decimal.NewFromInt(2000))
	require.NoError(t, err)
	second, err := svc.SaveIncome(ctx, june(), decimal.NewFromInt(3000))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	got, err := svc.GetIncome(ctx, june())
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(3000)))
	assert.Equal(t, []amqp.EventType{amqp.EventIncomeSaved, amqp.EventIncomeSaved}, pub.types())
}

func TestIncomeService_Validation(t *testing.T) {
	svc := NewIncomeService(memory.NewStore(), nil)
	ctx := context.Background()

	_, err := svc.SaveIncome(ctx, core.Period{Year: 2024, Month: 13}, decimal.NewFromInt(1))
	assert.True(t, core.IsValidation(err), "month 13: %v", err)

	_, err = svc.SaveIncome(ctx, june(), decimal.NewFromInt(-1))
	assert.True(t, core.IsValidation(err), "negative: %v", err)

	_, err = svc.GetIncome(ctx, june())
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestExpenseService_CreateDerivesPeriod(t *testing.T) {
	store := memory.NewStore()
	pub := &recordingPublisher{}
	svc := NewExpenseService(store, pub)

	e, err := svc.CreateExpense(context.Background(), ExpenseInput{
		Category: "Food",
		Amount:   decimal.NewFromInt(200),
		Date:     "2024-06-15",
	})
	require.NoError(t, err)
	assert.NotZero(t, e.ID)
	assert.Equal(t, 6, e.Month)
	assert.Equal(t, 2024, e.Year)
	assert.Equal(t, "", e.Description)
	assert.Equal(t, []amqp.EventType{amqp.EventExpenseCreated}, pub.types())
}

func TestExpenseService_CreateRejectsBadInput(t *testing.T) {
	pub := &recordingPublisher{}
	store := memory.NewStore()
	svc := NewExpenseService(store, pub)
	ctx := context.Background()

	cases := []ExpenseInput{
		{Category: "Food", Amount: decimal.NewFromInt(1), Date: "2024-02-30"},
		{Category: "Food", Amount: decimal.NewFromInt(1), Date: "2024-13-01"},
		{Category: "Food", Amount: decimal.NewFromInt(1), Date: "yesterday"},
		{Category: "  ", Amount: decimal.NewFromInt(1), Date: "2024-02-01"},
	}
	for _, in := range cases {
		_, err := svc.CreateExpense(ctx, in)
		assert.True(t, core.IsValidation(err), "%+v: %v", in, err)
	}

	items, err := svc.ListExpenses(ctx, core.Period{Year: 2024, Month: 2})
	require.NoError(t, err)
	assert.Empty(t, items, "nothing may be written on validation failure")
	assert.Empty(t, pub.types())
}

func TestExpenseService_Delete(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewExpenseService(memory.NewStore(), pub)
	ctx := context.Background()

	e, err := svc.CreateExpense(ctx, ExpenseInput{Category: "Rent", Amount: decimal.NewFromInt(1000), Date: "2024-06-01"})
	require.NoError(t, err)

	deleted, err := svc.DeleteExpense(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.ID, deleted.ID)

	_, err = svc.DeleteExpense(ctx, e.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = svc.DeleteExpense(ctx, 424242)
	assert.ErrorIs(t, err, core.ErrNotFound)

	assert.Equal(t, []amqp.EventType{amqp.EventExpenseCreated, amqp.EventExpenseDeleted}, pub.types())
}

func TestExpenseService_PublishFailureDoesNotFailWrite(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := NewExpenseService(memory.NewStore(), pub)

	e, err := svc.CreateExpense(context.Background(), ExpenseInput{Category: "Food", Amount: decimal.NewFromInt(5), Date: "2024-06-02"})
	require.NoError(t, err)
	assert.NotZero(t, e.ID)
}

func TestSummaryService_Scenario(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	incomes := NewIncomeService(store, nil)
	expenses := NewExpenseService(store, nil)
	summaries := NewSummaryService(store)

	_, err := incomes.SaveIncome(ctx, june(), decimal.NewFromInt(3000))
	require.NoError(t, err)
	_, err = expenses.CreateExpense(ctx, ExpenseInput{Category: "Food", Amount: decimal.NewFromInt(200), Date: "2024-06-15"})
	require.NoError(t, err)
	_, err = expenses.CreateExpense(ctx, ExpenseInput{Category: "Rent", Amount: decimal.NewFromInt(1000), Date: "2024-06-01"})
	require.NoError(t, err)
	_, err = expenses.CreateExpense(ctx, ExpenseInput{Category: "Rent", Amount: decimal.NewFromInt(1000), Date: "2024-07-01"})
	require.NoError(t, err)

	s, err := summaries.Summary(ctx, june())
	require.NoError(t, err)
	assert.Equal(t, "3000", s.Income.String())
	assert.Equal(t, "1200", s.TotalExpenses.String())
	assert.Equal(t, "1800", s.Balance.String())
	assert.Equal(t, "40", s.Percentage.String())
	assert.Equal(t, "200", s.CategoryData["Food"].String())
	assert.Equal(t, "1000", s.CategoryData["Rent"].String())
}

func TestSummaryService_NoIncome(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	_, err := NewExpenseService(store, nil).CreateExpense(ctx, ExpenseInput{Category: "Food", Amount: decimal.NewFromInt(50), Date: "2024-06-03"})
	require.NoError(t, err)

	s, err := NewSummaryService(store).Summary(ctx, june())
	require.NoError(t, err)
	assert.True(t, s.Percentage.IsZero())
	assert.Equal(t, "-50", s.Balance.String())
}

func TestSummaryService_StorageFailureAborts(t *testing.T) {
	for name, store := range map[string]*failingStore{
		"expenses": {Store: memory.NewStore(), failList: true},
		"income":   {Store: memory.NewStore(), failIncome: true},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewSummaryService(store).Summary(context.Background(), june())
			var se *core.StorageError
			assert.ErrorAs(t, err, &se)
		})
	}
}

func TestSummaryService_Export(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	_, err := NewExpenseService(store, nil).CreateExpense(ctx, ExpenseInput{Category: "Food", Amount: decimal.NewFromInt(20), Date: "2024-06-03"})
	require.NoError(t, err)

	out, err := NewSummaryService(store).Export(ctx, june())
	require.NoError(t, err)
	assert.Nil(t, out.Income)
	assert.Len(t, out.Expenses, 1)
	assert.Equal(t, "20", out.Summary.TotalExpenses.String())

	_, err = NewSummaryService(store).Export(ctx, core.Period{Year: 2024, Month: 0})
	assert.True(t, core.IsValidation(err))
}
