package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Summary is the derived financial picture of one period.
type Summary struct {
	Income        decimal.Decimal            `json:"income"`
	TotalExpenses decimal.Decimal            `json:"total_expenses"`
	Balance       decimal.Decimal            `json:"balance"`
	Percentage    decimal.Decimal            `json:"percentage"`
	CategoryData  map[string]decimal.Decimal `json:"category_data"`
}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount decimal.Decimal
}

// Summarize computes the period summary from the income figure (nil when no
// income was recorded) and the period's expenses. Percentage is zero whenever
// salary is not positive; balance is never clamped.
func Summarize(income *Income, expenses []Expense) Summary {
	salary := decimal.Zero
	if income != nil {
		salary = income.Amount
	}

	total := decimal.Zero
	byCategory := make(map[string]decimal.Decimal)
	for _, e := range expenses {
		total = total.Add(e.Amount)
		byCategory[e.Category] = byCategory[e.Category].Add(e.Amount)
	}

	percentage := decimal.Zero
	if salary.IsPositive() {
		percentage = total.Div(salary).Mul(hundred)
	}

	return Summary{
		Income:        salary,
		TotalExpenses: total,
		Balance:       salary.Sub(total),
		Percentage:    percentage,
		CategoryData:  byCategory,
	}
}

// Categories returns the breakdown sorted by descending amount, then name.
func (s Summary) Categories() []CategoryAmount {
	out := make([]CategoryAmount, 0, len(s.CategoryData))
	for name, amount := range s.CategoryData {
		out = append(out, CategoryAmount{Name: name, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	return out
}
