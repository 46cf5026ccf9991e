package http

import (
	"net/http"

	"bilancio/internal/core"
)

// handleSaveIncome upserts the income for {month, year}.
func (s *Server) handleSaveIncome(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		ErrorFromDomain(err).Write(w)
		return
	}
	if resp := RequireFields(p, "amount", "month", "year"); resp != nil {
		resp.Write(w)
		return
	}

	month, err := ParseIntField(p, "month")
	if err != nil {
		ErrorFromDomain(err).Write(w)
		return
	}
	year, err := ParseIntField(p, "year")
	if err != nil {
		ErrorFromDomain(err).Write(w)
		return
	}
	amount, err := core.ParseAmount(p.Get("amount"))
	if err != nil {
		ErrorFromDomain(err).Write(w)
		return
	}

	period := core.Period{Year: year, Month: month}
	income, err := s.svc.Income.SaveIncome(r.Context(), period, amount)
	if err != nil {
		respondError(w, r, "Failed to save income", err)
		return
	}
	s.invalidatePeriod(period)

	NewJSONResponse().
		Message("Income saved successfully", map[string]interface{}{"amount": income.Amount}).
		Write(w)
}

// handleGetIncome returns the income record of a period or 404.
func (s *Server) handleGetIncome(w http.ResponseWriter, r *http.Request) {
	period, err := ParsePeriodPath(r)
	if err != nil {
		ErrorFromDomain(err).Write(w)
		return
	}

	income, err := s.svc.Income.GetIncome(r.Context(), period)
	if err != nil {
		respondError(w, r, "Failed to load income", err)
		return
	}
	NewJSONResponse().JSON(income).Write(w)
}
