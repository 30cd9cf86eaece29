package http

import (
	"net/http"
	"strconv"

	"spry/internal/core"
)

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.svc.Metrics.Summary(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{
		TotalIncome:       sum.TotalIncome,
		TotalExpense:      sum.TotalExpense,
		TotalSavings:      sum.TotalSavings,
		Remaining:         sum.Remaining,
		AchievedGoalCount: sum.AchievedGoalCount,
	})
}

// handleBreakdown reports the active session unless ?session= names another
// session of the same user.
func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	var (
		rows []core.CategoryBreakdown
		err  error
	)
	if raw := r.URL.Query().Get("session"); raw != "" {
		sessionID, perr := strconv.ParseInt(raw, 10, 64)
		if perr != nil || sessionID <= 0 {
			writeError(w, r, core.NewValidationError("session", "invalid session id"))
			return
		}
		rows, err = s.svc.Metrics.CategoryBreakdown(r.Context(), userID(r), sessionID)
	} else {
		rows, err = s.svc.Metrics.ActiveBreakdown(r.Context(), userID(r))
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]breakdownResponse, 0, len(rows))
	for _, b := range rows {
		out = append(out, breakdownResponse{
			Category:  b.Category,
			Type:      string(b.Type),
			Spent:     b.Spent,
			Allocated: b.Allocated,
			Remaining: b.Remaining(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
