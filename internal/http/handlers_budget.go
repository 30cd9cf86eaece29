package http

import (
	"net/http"
)

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	budget, err := s.svc.Budget.GetBudget(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newBudgetResponse(*budget))
}

func (s *Server) handleSubmitBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sub, err := req.toSubmission()
	if err != nil {
		writeError(w, r, err)
		return
	}

	budget, err := s.svc.Budget.SubmitBudget(r.Context(), userID(r), sub)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newBudgetResponse(*budget))
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Budget.DeleteSession(r.Context(), userID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, "Budget session deleted")
}

func (s *Server) handleRotateBudget(w http.ResponseWriter, r *http.Request) {
	budget, err := s.svc.Budget.RotateSession(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newBudgetResponse(*budget))
}
