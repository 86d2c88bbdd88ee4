package core

import "strings"

// Money is an amount in the organization's base currency unit.
// Whole units only; there is no fractional currency handling.
type Money int64

// CategoryKind separates the three category registries.
type CategoryKind string

const (
	KindIncome  CategoryKind = "income"
	KindExpense CategoryKind = "expense"
	KindBudget  CategoryKind = "budget"
)

// PlanStatus is the budget plan state machine: DRAFT until an expense pays
// the plan, REALIZED while exactly one expense references it.
type PlanStatus string

const (
	PlanDraft    PlanStatus = "DRAFT"
	PlanRealized PlanStatus = "REALIZED"
)

// DayStatus is advisory only; it never gates ledger writes.
type DayStatus string

const (
	DayOpen   DayStatus = "OPEN"
	DayClosed DayStatus = "CLOSED"
)

type (
	Category struct {
		ID   int64        `json:"id"`
		Kind CategoryKind `json:"kind"`
		Name string       `json:"name"`
	}

	PaymentMethod struct {
		ID     int64  `json:"id"`
		Name   string `json:"name"`
		Active bool   `json:"active"`
	}

	// BudgetPlan is a planned fund allocation for one budget category on one
	// calendar day. Total is a cached aggregate over Items, maintained inside
	// the same transaction as every item mutation.
	BudgetPlan struct {
		ID           int64        `json:"id"`
		Date         Day          `json:"date"`
		CategoryID   int64        `json:"category_id"`
		CategoryName string       `json:"category_name"`
		Status       PlanStatus   `json:"status"`
		Total        Money        `json:"total"`
		Items        []BudgetItem `json:"items"`
		Expense      *Expense     `json:"expense,omitempty"`
	}

	// BudgetItem is one line of a plan, exclusively owned by it.
	BudgetItem struct {
		ID        int64  `json:"id"`
		PlanID    int64  `json:"plan_id"`
		Name      string `json:"name"`
		Quantity  int64  `json:"quantity"`
		Unit      string `json:"unit"`
		UnitPrice Money  `json:"unit_price"`
		Total     Money  `json:"total"`
	}

	Income struct {
		ID              int64  `json:"id"`
		Date            Day    `json:"date"`
		Amount          Money  `json:"amount"`
		CategoryID      int64  `json:"category_id"`
		PaymentMethodID int64  `json:"payment_method_id"`
		Description     string `json:"description"`
		FinanceDayID    int64  `json:"finance_day_id"`
		MemberID        *int64 `json:"member_id,omitempty"`
		ExtraMeta       string `json:"extra_meta,omitempty"`
		CreatedBy       string `json:"created_by"`
	}

	Expense struct {
		ID              int64  `json:"id"`
		Date            Day    `json:"date"`
		Amount          Money  `json:"amount"`
		CategoryID      int64  `json:"category_id"`
		PaymentMethodID int64  `json:"payment_method_id"`
		Description     string `json:"description"`
		FinanceDayID    int64  `json:"finance_day_id"`
		BudgetPlanID    *int64 `json:"budget_plan_id,omitempty"`
		CreatedBy       string `json:"created_by"`
	}

	// FinanceDay groups ledger entries of one calendar day. Auto-created
	// idempotently on the first write for its date.
	FinanceDay struct {
		ID             int64     `json:"id"`
		Date           Day       `json:"date"`
		Status         DayStatus `json:"status"`
		OpeningBalance Money     `json:"opening_balance"`
	}

	// Member is resolved from the external member directory, referenced by
	// id only.
	Member struct {
		ID           int64  `json:"id"`
		Name         string `json:"name"`
		ExternalCode string `json:"external_code"`
	}
)

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return Validationf("category name is required")
	}
	switch c.Kind {
	case KindIncome, KindExpense, KindBudget:
	default:
		return Validationf("unknown category kind %q", c.Kind)
	}
	return nil
}

func (p PaymentMethod) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return Validationf("payment method name is required")
	}
	return nil
}

func (i BudgetItem) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return Validationf("item name is required")
	}
	if i.Quantity <= 0 {
		return Validationf("quantity must be positive, got %d", i.Quantity)
	}
	if i.UnitPrice < 0 {
		return Validationf("unit price must not be negative, got %d", i.UnitPrice)
	}
	return nil
}

// LineTotal computes quantity * unit price for one item.
func (i BudgetItem) LineTotal() Money {
	return Money(i.Quantity) * i.UnitPrice
}

func (in Income) Validate() error {
	if err := in.Date.Validate(); err != nil {
		return Validationf("income date: %v", err)
	}
	if in.Amount <= 0 {
		return Validationf("amount must be positive, got %d", in.Amount)
	}
	if in.CategoryID == 0 {
		return Validationf("income category is required")
	}
	if in.PaymentMethodID == 0 {
		return Validationf("payment method is required")
	}
	return nil
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return Validationf("expense date: %v", err)
	}
	if e.Amount <= 0 {
		return Validationf("amount must be positive, got %d", e.Amount)
	}
	if e.CategoryID == 0 {
		return Validationf("expense category is required")
	}
	if e.PaymentMethodID == 0 {
		return Validationf("payment method is required")
	}
	return nil
}
