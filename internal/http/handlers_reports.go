package http

import (
	"context"
	"net/http"
	"time"

	"financemei/internal/core"
	"financemei/internal/tax"
)

func (s *Server) today() core.Date {
	return core.DateOf(s.now())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
	})
}

// handleReady checks the store and reports limiter and detector state.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]any{}
	if s.ready == nil {
		checks["store"] = "not_configured"
	} else if err := s.ready(ctx); err != nil {
		checks["store"] = "failed: " + err.Error()
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}
	checks["rate_limiter"] = map[string]any{"active_clients": s.limiter.ActiveClients()}
	checks["security"] = map[string]any{"blocked_requests": s.detector.GetMetrics().BlockedRequests}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.reports.Dashboard(r.Context(), ownerOf(r), s.today())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	window, err := parseWindow(q, s.today())
	if err != nil {
		writeError(w, r, err)
		return
	}
	settled, err := parseBool(q, "settled")
	if err != nil {
		writeError(w, r, err)
		return
	}
	summary, err := s.reports.Summary(r.Context(), ownerOf(r), window, settled)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"summary":    summary,
		"categories": summary.Categories(),
	})
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	months, err := parseInt(r.URL.Query(), "months", 6)
	if err != nil {
		writeError(w, r, err)
		return
	}
	trend, err := s.reports.Trend(r.Context(), ownerOf(r), s.today(), months)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"months": trend})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	kind := core.Kind(q.Get("kind"))
	if kind == "" {
		kind = core.Income
	}
	window, err := parseMonthParams(q, s.today())
	if err != nil {
		writeError(w, r, err)
		return
	}
	cats, err := s.reports.Categories(r.Context(), ownerOf(r), kind, window)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"kind":       kind,
		"window":     window,
		"categories": cats,
		"known":      core.CategoriesFor(kind),
	})
}

func (s *Server) handleStanding(w http.ResponseWriter, r *http.Request) {
	st, err := s.reports.Standing(r.Context(), ownerOf(r), s.today())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"standing":  st,
		"percent":   st.Percent().StringFixed(2),
		"remaining": st.Remaining(),
	})
}

func (s *Server) handleTax(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	model := tax.Model(q.Get("model"))
	if model == "" {
		model = tax.Flat
	}
	category := core.Activity(q.Get("category"))
	revenue, err := parseRevenue(q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	est, err := s.reports.EstimateTax(r.Context(), ownerOf(r), model, category, revenue, s.today())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, est)
}

func (s *Server) handleTaxDue(w http.ResponseWriter, r *http.Request) {
	today := s.today()
	writeJSON(w, http.StatusOK, map[string]any{
		"next_due_on":    tax.NextDueDate(today),
		"days_until_due": tax.DaysUntilDue(today),
	})
}

func (s *Server) handleSubscription(w http.ResponseWriter, r *http.Request) {
	st, err := s.reports.Access(r.Context(), ownerOf(r), s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleTally(w http.ResponseWriter, r *http.Request) {
	tally, err := s.reports.Tally(r.Context(), s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tally)
}
