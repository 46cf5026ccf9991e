package core

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func expense(cat, amount string, d Date) Expense {
	return Expense{Category: cat, Amount: dec(amount), Date: d, Month: d.Month(), Year: d.Year()}
}

func TestSummarize(t *testing.T) {
	income := &Income{Amount: dec("3000"), Month: 6, Year: 2024}
	s := Summarize(income, []Expense{
		expense("Food", "200", NewDate(2024, 6, 15)),
		expense("Rent", "1000", NewDate(2024, 6, 1)),
	})

	checks := []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"income", s.Income, "3000"},
		{"total", s.TotalExpenses, "1200"},
		{"balance", s.Balance, "1800"},
		{"percentage", s.Percentage, "40"},
		{"food", s.CategoryData["Food"], "200"},
		{"rent", s.CategoryData["Rent"], "1000"},
	}
	for _, c := range checks {
		if !c.got.Equal(dec(c.want)) {
			t.Fatalf("%s = %s, want %s", c.name, c.got, c.want)
		}
	}

	b, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"income":3000,"total_expenses":1200,"balance":1800,"percentage":40,"category_data":{"Food":200,"Rent":1000}}`
	if string(b) != want {
		t.Fatalf("json = %s\nwant  %s", b, want)
	}
}

func TestSummarizeWithoutIncome(t *testing.T) {
	s := Summarize(nil, []Expense{expense("Food", "50", NewDate(2024, 6, 2))})
	if !s.Percentage.IsZero() {
		t.Fatalf("percentage = %s, want 0", s.Percentage)
	}
	if !s.Balance.Equal(dec("-50")) {
		t.Fatalf("balance = %s, want -50", s.Balance)
	}
	if !s.Income.IsZero() {
		t.Fatalf("income = %s, want 0", s.Income)
	}
}

func TestSummarizeZeroIncomeRecord(t *testing.T) {
	s := Summarize(&Income{Amount: decimal.Zero, Month: 6, Year: 2024}, []Expense{expense("Food", "50", NewDate(2024, 6, 2))})
	if !s.Percentage.IsZero() {
		t.Fatalf("percentage = %s, want 0", s.Percentage)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil, nil)
	if !s.TotalExpenses.IsZero() || !s.Balance.IsZero() || len(s.CategoryData) != 0 {
		t.Fatalf("unexpected summary for empty period: %+v", s)
	}
	b, _ := json.Marshal(s)
	if string(b) != `{"income":0,"total_expenses":0,"balance":0,"percentage":0,"category_data":{}}` {
		t.Fatalf("json = %s", b)
	}
}

func TestSummarizeTotalsMatchBreakdown(t *testing.T) {
	d := NewDate(2024, 3, 10)
	s := Summarize(&Income{Amount: dec("1000")}, []Expense{
		expense("Food", "10.10", d),
		expense("Food", "5.05", d),
		expense("Fun", "-3", d),
		expense("Bills", "99.99", d),
	})
	sum := decimal.Zero
	for _, v := range s.CategoryData {
		sum = sum.Add(v)
	}
	if !sum.Equal(s.TotalExpenses) {
		t.Fatalf("breakdown sum %s != total %s", sum, s.TotalExpenses)
	}
	if !s.CategoryData["Food"].Equal(dec("15.15")) {
		t.Fatalf("food = %s, want 15.15", s.CategoryData["Food"])
	}

	cats := s.Categories()
	if len(cats) != 3 || cats[0].Name != "Bills" || cats[2].Name != "Fun" {
		t.Fatalf("unexpected category order: %+v", cats)
	}
}
