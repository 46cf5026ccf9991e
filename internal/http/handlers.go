package http

import (
	"context"
	"net/http"
	"time"

	"bilancio/internal/log"
)

const readyTimeout = 2 * time.Second

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.svc.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := s.svc.Ready(ctx); err != nil {
			log.FromContext(r.Context()).ErrorContext(r.Context(), "Readiness check failed", log.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded", log.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	now := time.Now()
	data := struct {
		Year  int
		Month int
	}{
		Year:  now.Year(),
		Month: int(now.Month()),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Index template execution failed",
			log.FieldError, err,
			"template", "index.html")
		http.Error(w, "template error", http.StatusInternalServerError)
	}
}

// respondError logs server-side failures and writes the mapped response.
func respondError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	resp := ErrorFromDomain(err)
	if resp.statusCode >= http.StatusInternalServerError {
		log.FromContext(r.Context()).ErrorContext(r.Context(), msg,
			log.FieldError, err,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
	}
	resp.Write(w)
}
