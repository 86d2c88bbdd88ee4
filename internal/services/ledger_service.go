package services

import (
	"context"

	"kas/internal/auth"
	"kas/internal/core"
	"kas/internal/storage"
)

// LedgerService records incomes and expenses. Expense-to-plan linkage is
// decided at creation and immutable afterwards; the only way to unlink is to
// delete the expense, which reverts the plan to DRAFT.
type LedgerService struct {
	storage *storage.Repository
	events  EventPublisher
}

func NewLedgerService(storage *storage.Repository, events EventPublisher) *LedgerService {
	return &LedgerService{storage: storage, events: events}
}

// checkPaymentMethod rejects recording against unknown or retired methods.
func (s *LedgerService) checkPaymentMethod(ctx context.Context, id int64) error {
	method, err := s.storage.GetPaymentMethod(ctx, id)
	if err != nil {
		return err
	}
	if !method.Active {
		return core.Validationf("payment method %q is inactive", method.Name)
	}
	return nil
}

// checkCategory rejects recording against a category of the wrong kind.
func (s *LedgerService) checkCategory(ctx context.Context, id int64, want core.CategoryKind) error {
	cat, err := s.storage.GetCategory(ctx, id)
	if err != nil {
		return err
	}
	if cat.Kind != want {
		return core.Validationf("category %q is %s, not %s", cat.Name, cat.Kind, want)
	}
	return nil
}

func (s *LedgerService) RecordIncome(ctx context.Context, in core.Income) (core.Income, error) {
	cap, err := auth.Treasurer(ctx)
	if err != nil {
		return core.Income{}, err
	}
	in.CreatedBy = cap.Actor

	if err := in.Validate(); err != nil {
		return core.Income{}, err
	}
	if err := s.checkCategory(ctx, in.CategoryID, core.KindIncome); err != nil {
		return core.Income{}, err
	}
	if err := s.checkPaymentMethod(ctx, in.PaymentMethodID); err != nil {
		return core.Income{}, err
	}

	created, err := s.storage.CreateIncome(ctx, in)
	if err != nil {
		return core.Income{}, err
	}

	publishEvent(ctx, s.events, "income", "created", created.ID)
	return created, nil
}

func (s *LedgerService) RecordExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	cap, err := auth.Treasurer(ctx)
	if err != nil {
		return core.Expense{}, err
	}
	e.CreatedBy = cap.Actor

	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	if err := s.checkCategory(ctx, e.CategoryID, core.KindExpense); err != nil {
		return core.Expense{}, err
	}
	if err := s.checkPaymentMethod(ctx, e.PaymentMethodID); err != nil {
		return core.Expense{}, err
	}

	created, err := s.storage.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, err
	}

	publishEvent(ctx, s.events, "expense", "created", created.ID)
	if created.BudgetPlanID != nil {
		publishEvent(ctx, s.events, "budget_plan", "updated", *created.BudgetPlanID)
	}
	return created, nil
}

func (s *LedgerService) UpdateIncome(ctx context.Context, in core.Income) error {
	if _, err := auth.Treasurer(ctx); err != nil {
		return err
	}
	if err := in.Validate(); err != nil {
		return err
	}
	if err := s.checkCategory(ctx, in.CategoryID, core.KindIncome); err != nil {
		return err
	}
	if err := s.checkPaymentMethod(ctx, in.PaymentMethodID); err != nil {
		return err
	}

	if err := s.storage.UpdateIncome(ctx, in); err != nil {
		return err
	}

	publishEvent(ctx, s.events, "income", "updated", in.ID)
	return nil
}

// UpdateExpense rewrites an expense's fields. Changing the plan linkage is
// rejected outright: callers must pass the linkage unchanged or omit it.
func (s *LedgerService) UpdateExpense(ctx context.Context, e core.Expense) error {
	if _, err := auth.Treasurer(ctx); err != nil {
		return err
	}
	if err := e.Validate(); err != nil {
		return err
	}
	if err := s.checkCategory(ctx, e.CategoryID, core.KindExpense); err != nil {
		return err
	}
	if err := s.checkPaymentMethod(ctx, e.PaymentMethodID); err != nil {
		return err
	}

	existing, err := s.storage.GetExpense(ctx, e.ID)
	if err != nil {
		return err
	}
	if e.BudgetPlanID != nil && !samePlanLink(existing.BudgetPlanID, e.BudgetPlanID) {
		return core.Validationf("expense plan linkage is immutable; delete and re-record instead")
	}

	if err := s.storage.UpdateExpense(ctx, e); err != nil {
		return err
	}

	publishEvent(ctx, s.events, "expense", "updated", e.ID)
	return nil
}

func samePlanLink(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (s *LedgerService) DeleteIncome(ctx context.Context, id int64) error {
	if _, err := auth.Treasurer(ctx); err != nil {
		return err
	}
	if err := s.storage.DeleteIncome(ctx, id); err != nil {
		return err
	}

	publishEvent(ctx, s.events, "income", "deleted", id)
	return nil
}

func (s *LedgerService) DeleteExpense(ctx context.Context, id int64) error {
	if _, err := auth.Treasurer(ctx); err != nil {
		return err
	}

	existing, err := s.storage.GetExpense(ctx, id)
	if err != nil {
		return err
	}
	if err := s.storage.DeleteExpense(ctx, id); err != nil {
		return err
	}

	publishEvent(ctx, s.events, "expense", "deleted", id)
	if existing.BudgetPlanID != nil {
		publishEvent(ctx, s.events, "budget_plan", "updated", *existing.BudgetPlanID)
	}
	return nil
}

func (s *LedgerService) GetIncome(ctx context.Context, id int64) (core.Income, error) {
	return s.storage.GetIncome(ctx, id)
}

func (s *LedgerService) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	return s.storage.GetExpense(ctx, id)
}

func (s *LedgerService) ListIncomes(ctx context.Context, date *core.Day) ([]core.Income, error) {
	return s.storage.ListIncomes(ctx, date)
}

func (s *LedgerService) ListExpenses(ctx context.Context, date *core.Day) ([]core.Expense, error) {
	return s.storage.ListExpenses(ctx, date)
}

// ListDays returns every finance day seen so far, newest first.
func (s *LedgerService) ListDays(ctx context.Context) ([]core.FinanceDay, error) {
	return s.storage.ListDays(ctx)
}
