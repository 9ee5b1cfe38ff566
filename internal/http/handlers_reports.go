package http

import (
	"net/http"

	"tally/internal/log"
	"tally/internal/report"
)

func (s *Server) registerReportRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/budgets", s.handleBudgets)
	mux.HandleFunc("PUT /api/budgets/{category}", s.handleSetBudget)
	mux.HandleFunc("DELETE /api/budgets/{category}", s.handleDeleteBudget)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/weekly", s.handleWeekly)
}

type budgetRequest struct {
	Limit Amount `json:"limit"`
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	limit, err := req.Limit.Positive()
	if err != nil {
		fail(w, r, err)
		return
	}
	b, err := s.ledger.SetBudget(r.Context(), r.PathValue("category"), limit)
	if err != nil {
		fail(w, r, err)
		return
	}
	NewResponse().JSON(map[string]string{"category": string(b.Category), "limit": money(b.Limit)}).Write(w)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteBudget(r.Context(), r.PathValue("category")); err != nil {
		fail(w, r, err)
		return
	}
	NewResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleBudgets(w http.ResponseWriter, r *http.Request) {
	month, err := parseMonthQuery(r, s.now())
	if err != nil {
		fail(w, r, err)
		return
	}
	statuses, err := s.ledger.BudgetStatuses(r.Context(), month)
	if err != nil {
		fail(w, r, err)
		return
	}
	if wantsText(r) {
		text := ""
		for _, b := range statuses {
			text += report.RenderBudget(b, s.currency) + "\n"
		}
		NewResponse().Text(text).Write(w)
		return
	}
	NewResponse().JSON(newBudgetViews(statuses)).Write(w)
}

// handleSummary serves month summaries from the cache, which every ledger
// mutation purges.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	month, err := parseMonthQuery(r, s.now())
	if err != nil {
		fail(w, r, err)
		return
	}

	key := month.Prefix()
	summary, hit := s.summaries.Get(key)
	if !hit {
		if summary, err = s.ledger.Summary(r.Context(), month); err != nil {
			fail(w, r, err)
			return
		}
		s.summaries.Set(key, summary)
	}
	log.FromContext(r.Context()).DebugContext(r.Context(), "Month summary served",
		log.FieldMonth, key,
		"cache_hit", hit)

	if wantsText(r) {
		NewResponse().Text(report.RenderSummary(summary, s.currency)).Write(w)
		return
	}
	NewResponse().JSON(newSummaryView(summary)).Write(w)
}

func (s *Server) handleWeekly(w http.ResponseWriter, r *http.Request) {
	weekly, err := s.ledger.WeeklyReport(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	if wantsText(r) {
		NewResponse().Text(report.RenderWeekly(weekly, s.currency)).Write(w)
		return
	}
	NewResponse().JSON(newWeeklyView(weekly)).Write(w)
}
