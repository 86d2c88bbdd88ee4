package http

import (
	"net/http"

	"kas/internal/core"
)

// handleDuesStatus shows the per-member view for one day, defaulting to
// today in the configured timezone.
func (s *Server) handleDuesStatus(w http.ResponseWriter, r *http.Request) {
	date, err := s.dayOrToday(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	status, err := s.dues.Status(r.Context(), date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if status == nil {
		status = []core.DuesStatus{}
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleDuesPay(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date            core.Day   `json:"date"`
		MemberID        int64      `json:"member_id"`
		Amount          core.Money `json:"amount"`
		PaymentMethodID int64      `json:"payment_method_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	in, err := s.dues.Pay(r.Context(), req.Date, req.MemberID, req.Amount, req.PaymentMethodID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, in)
}

func (s *Server) handleDuesUndo(w http.ResponseWriter, r *http.Request) {
	incomeID, err := pathID(r, "incomeID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.dues.Undo(r.Context(), incomeID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
