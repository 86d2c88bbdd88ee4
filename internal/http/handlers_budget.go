package http

import (
	"net/http"

	"kas/internal/core"
)

type createPlanRequest struct {
	Date       core.Day `json:"date"`
	CategoryID int64    `json:"category_id"`
}

func (s *Server) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	var req createPlanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	plan, err := s.budget.CreatePlan(r.Context(), req.Date, req.CategoryID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	plan, err := s.budget.GetPlan(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	date, err := queryDay(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	plans, err := s.budget.ListPlans(r.Context(), date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if plans == nil {
		plans = []core.BudgetPlan{}
	}
	writeJSON(w, http.StatusOK, plans)
}

func (s *Server) handleDeletePlan(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.budget.DeletePlan(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type itemRequest struct {
	Name      string     `json:"name"`
	Quantity  int64      `json:"quantity"`
	Unit      string     `json:"unit"`
	UnitPrice core.Money `json:"unit_price"`
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	planID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	item, err := s.budget.AddItem(r.Context(), core.BudgetItem{
		PlanID:    planID,
		Name:      req.Name,
		Quantity:  req.Quantity,
		Unit:      req.Unit,
		UnitPrice: req.UnitPrice,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	item, err := s.budget.UpdateItem(r.Context(), core.BudgetItem{
		ID:        itemID,
		Name:      req.Name,
		Quantity:  req.Quantity,
		Unit:      req.Unit,
		UnitPrice: req.UnitPrice,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.budget.DeleteItem(r.Context(), itemID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	corrected, err := s.budget.Reconcile(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"corrected": len(corrected), "plans": corrected})
}
