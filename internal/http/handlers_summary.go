package http

import (
	"bytes"
	"net/http"
	"strconv"

	"bilancio/internal/export"
	"bilancio/internal/log"
)

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	period, err := ParsePeriodPath(r)
	if err != nil {
		ErrorFromDomain(err).Write(w)
		return
	}

	summary, err := s.getSummary(r.Context(), period)
	if err != nil {
		respondError(w, r, "Failed to compute summary", err)
		return
	}
	NewJSONResponse().JSON(summary).Write(w)
}

// handleExport streams the period as an xlsx workbook. The workbook is
// rendered into memory first so a failure can still produce a JSON error.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	period, err := ParsePeriodPath(r)
	if err != nil {
		ErrorFromDomain(err).Write(w)
		return
	}

	month, err := s.svc.Summary.Export(r.Context(), period)
	if err != nil {
		respondError(w, r, "Failed to load export data", err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteMonth(&buf, month); err != nil {
		respondError(w, r, "Failed to render workbook", err)
		return
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "Workbook exported",
		log.FieldPeriod, period.String(),
		"expenses", len(month.Expenses),
		"bytes", buf.Len())

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(period)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
