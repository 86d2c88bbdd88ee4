package services

import (
	"context"

	"kas/internal/auth"
	"kas/internal/core"
	"kas/internal/storage"
)

// BudgetService orchestrates budget plan operations: the plan/item state
// machine lives in storage, this layer adds authorization, validation and
// event publishing.
type BudgetService struct {
	storage *storage.Repository
	events  EventPublisher
}

func NewBudgetService(storage *storage.Repository, events EventPublisher) *BudgetService {
	return &BudgetService{storage: storage, events: events}
}

// CreatePlan opens a DRAFT plan for one budget category on one day.
func (s *BudgetService) CreatePlan(ctx context.Context, date core.Day, categoryID int64) (core.BudgetPlan, error) {
	if _, err := auth.Treasurer(ctx); err != nil {
		return core.BudgetPlan{}, err
	}
	if err := date.Validate(); err != nil {
		return core.BudgetPlan{}, core.Validationf("plan date: %v", err)
	}
	if categoryID == 0 {
		return core.BudgetPlan{}, core.Validationf("budget category is required")
	}

	plan, err := s.storage.CreatePlan(ctx, date, categoryID)
	if err != nil {
		return core.BudgetPlan{}, err
	}

	publishEvent(ctx, s.events, "budget_plan", "created", plan.ID)
	return plan, nil
}

// AddItem appends an item to a draft plan; the plan total follows atomically.
func (s *BudgetService) AddItem(ctx context.Context, item core.BudgetItem) (core.BudgetItem, error) {
	if _, err := auth.Treasurer(ctx); err != nil {
		return core.BudgetItem{}, err
	}
	if err := item.Validate(); err != nil {
		return core.BudgetItem{}, err
	}

	added, err := s.storage.AddItem(ctx, item)
	if err != nil {
		return core.BudgetItem{}, err
	}

	publishEvent(ctx, s.events, "budget_plan", "updated", added.PlanID)
	return added, nil
}

func (s *BudgetService) UpdateItem(ctx context.Context, item core.BudgetItem) (core.BudgetItem, error) {
	if _, err := auth.Treasurer(ctx); err != nil {
		return core.BudgetItem{}, err
	}
	if err := item.Validate(); err != nil {
		return core.BudgetItem{}, err
	}

	updated, err := s.storage.UpdateItem(ctx, item)
	if err != nil {
		return core.BudgetItem{}, err
	}

	publishEvent(ctx, s.events, "budget_plan", "updated", updated.PlanID)
	return updated, nil
}

func (s *BudgetService) DeleteItem(ctx context.Context, itemID int64) error {
	if _, err := auth.Treasurer(ctx); err != nil {
		return err
	}

	planID, err := s.storage.DeleteItem(ctx, itemID)
	if err != nil {
		return err
	}

	publishEvent(ctx, s.events, "budget_plan", "updated", planID)
	return nil
}

// DeletePlan removes a draft plan and its items. Realized or paid plans
// refuse with a state error.
func (s *BudgetService) DeletePlan(ctx context.Context, planID int64) error {
	if _, err := auth.Treasurer(ctx); err != nil {
		return err
	}
	if err := s.storage.DeletePlan(ctx, planID); err != nil {
		return err
	}

	publishEvent(ctx, s.events, "budget_plan", "deleted", planID)
	return nil
}

func (s *BudgetService) GetPlan(ctx context.Context, planID int64) (core.BudgetPlan, error) {
	return s.storage.GetPlan(ctx, planID)
}

// ListPlans returns plans for a day, or every plan when date is nil.
func (s *BudgetService) ListPlans(ctx context.Context, date *core.Day) ([]core.BudgetPlan, error) {
	return s.storage.ListPlans(ctx, date)
}

// Reconcile corrects drifted cached plan totals against the item rows.
func (s *BudgetService) Reconcile(ctx context.Context) ([]storage.ReconciledPlan, error) {
	return s.storage.ReconcilePlanTotals(ctx)
}
