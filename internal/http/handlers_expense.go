package http

import (
	"net/http"

	"bilancio/internal/core"
	"bilancio/internal/services"
)

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		ErrorFromDomain(err).Write(w)
		return
	}
	if resp := RequireFields(p, "category", "amount", "date"); resp != nil {
		resp.Write(w)
		return
	}

	amount, err := core.ParseAmount(p.Get("amount"))
	if err != nil {
		ErrorFromDomain(err).Write(w)
		return
	}

	expense, err := s.svc.Expenses.CreateExpense(r.Context(), services.ExpenseInput{
		Category:    p.Get("category"),
		Amount:      amount,
		Date:        p.Get("date"),
		Description: p.Get("description"),
	})
	if err != nil {
		respondError(w, r, "Failed to create expense", err)
		return
	}
	s.invalidatePeriod(expense.Period())

	NewJSONResponse().
		Message("Expense added successfully", map[string]interface{}{"expense": expense}).
		Write(w)
}

// handleListExpenses returns the period's expenses, newest first. An empty
// period yields [] rather than null.
func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	period, err := ParsePeriodPath(r)
	if err != nil {
		ErrorFromDomain(err).Write(w)
		return
	}

	items, err := s.getExpenses(r.Context(), period)
	if err != nil {
		respondError(w, r, "Failed to list expenses", err)
		return
	}
	if items == nil {
		items = []core.Expense{}
	}
	NewJSONResponse().JSON(items).Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDPath(r)
	if err != nil {
		ErrorFromDomain(err).Write(w)
		return
	}

	deleted, err := s.svc.Expenses.DeleteExpense(r.Context(), id)
	if err != nil {
		if core.IsNotFound(err) {
			NotFoundError("Expense not found").Write(w)
			return
		}
		respondError(w, r, "Failed to delete expense", err)
		return
	}
	s.invalidatePeriod(deleted.Period())

	NewJSONResponse().Message("Expense deleted", nil).Write(w)
}
