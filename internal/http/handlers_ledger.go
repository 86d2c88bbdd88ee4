package http

import (
	"net/http"

	"kas/internal/core"
)

type incomeRequest struct {
	Date            core.Day   `json:"date"`
	Amount          core.Money `json:"amount"`
	CategoryID      int64      `json:"category_id"`
	PaymentMethodID int64      `json:"payment_method_id"`
	Description     string     `json:"description"`
	MemberID        *int64     `json:"member_id,omitempty"`
	ExtraMeta       string     `json:"extra_meta,omitempty"`
}

func (req incomeRequest) toIncome(id int64) core.Income {
	return core.Income{
		ID:              id,
		Date:            req.Date,
		Amount:          req.Amount,
		CategoryID:      req.CategoryID,
		PaymentMethodID: req.PaymentMethodID,
		Description:     req.Description,
		MemberID:        req.MemberID,
		ExtraMeta:       req.ExtraMeta,
	}
}

func (s *Server) handleRecordIncome(w http.ResponseWriter, r *http.Request) {
	var req incomeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	in, err := s.ledger.RecordIncome(r.Context(), req.toIncome(0))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, in)
}

func (s *Server) handleGetIncome(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	in, err := s.ledger.GetIncome(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, in)
}

func (s *Server) handleUpdateIncome(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req incomeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.ledger.UpdateIncome(r.Context(), req.toIncome(id)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.ledger.DeleteIncome(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListIncomes(w http.ResponseWriter, r *http.Request) {
	date, err := queryDay(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	incomes, err := s.ledger.ListIncomes(r.Context(), date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if incomes == nil {
		incomes = []core.Income{}
	}
	writeJSON(w, http.StatusOK, incomes)
}

type expenseRequest struct {
	Date            core.Day   `json:"date"`
	Amount          core.Money `json:"amount"`
	CategoryID      int64      `json:"category_id"`
	PaymentMethodID int64      `json:"payment_method_id"`
	Description     string     `json:"description"`
	BudgetPlanID    *int64     `json:"budget_plan_id,omitempty"`
}

func (req expenseRequest) toExpense(id int64) core.Expense {
	return core.Expense{
		ID:              id,
		Date:            req.Date,
		Amount:          req.Amount,
		CategoryID:      req.CategoryID,
		PaymentMethodID: req.PaymentMethodID,
		Description:     req.Description,
		BudgetPlanID:    req.BudgetPlanID,
	}
}

func (s *Server) handleRecordExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	e, err := s.ledger.RecordExpense(r.Context(), req.toExpense(0))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	e, err := s.ledger.GetExpense(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.ledger.UpdateExpense(r.Context(), req.toExpense(id)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.ledger.DeleteExpense(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	date, err := queryDay(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	expenses, err := s.ledger.ListExpenses(r.Context(), date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if expenses == nil {
		expenses = []core.Expense{}
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (s *Server) handleListDays(w http.ResponseWriter, r *http.Request) {
	days, err := s.ledger.ListDays(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if days == nil {
		days = []core.FinanceDay{}
	}
	writeJSON(w, http.StatusOK, days)
}
