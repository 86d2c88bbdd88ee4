package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"kas/internal/core"
)

// planStateTx reads the plan's status and whether an expense links to it,
// inside the caller's transaction. Returns core.ErrNotFound for unknown ids.
func planStateTx(ctx context.Context, tx *sql.Tx, planID int64) (core.PlanStatus, bool, error) {
	var (
		status core.PlanStatus
		linked bool
	)
	err := tx.QueryRowContext(ctx, `
		SELECT p.status, EXISTS (SELECT 1 FROM expenses e WHERE e.budget_plan_id = p.id)
		FROM budget_plans p WHERE p.id = ?`, planID).
		Scan(&status, &linked)
	if isNoRows(err) {
		return "", false, core.NotFoundf("budget plan %d", planID)
	}
	if err != nil {
		return "", false, fmt.Errorf("get plan state: %w", err)
	}
	return status, linked, nil
}

// planLockedErr maps a locked plan to the state error callers expect.
// A plan is locked to item mutation once REALIZED or paid by an expense.
func planLockedErr(planID int64, status core.PlanStatus, linked bool) error {
	if status == core.PlanRealized || linked {
		return core.Statef("budget plan %d is %s and locked to mutation", planID, status)
	}
	return nil
}

// CreatePlan inserts a DRAFT plan with total 0. At most one plan may exist
// per (date, category).
func (r *Repository) CreatePlan(ctx context.Context, date core.Day, categoryID int64) (core.BudgetPlan, error) {
	plan := core.BudgetPlan{
		Date:       date,
		CategoryID: categoryID,
		Status:     core.PlanDraft,
	}

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`SELECT name FROM categories WHERE id = ? AND kind = 'budget'`, categoryID).
			Scan(&plan.CategoryName)
		if isNoRows(err) {
			return core.NotFoundf("budget category %d", categoryID)
		}
		if err != nil {
			return fmt.Errorf("get budget category: %w", err)
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO budget_plans (date, category_id, status, total) VALUES (?, ?, 'DRAFT', 0)`,
			date.String(), categoryID)
		if err != nil {
			if isUniqueViolation(err) {
				return core.Conflictf("budget plan for %s / %q already exists", date, plan.CategoryName)
			}
			return fmt.Errorf("insert budget plan: %w", err)
		}
		plan.ID, _ = res.LastInsertId()
		return nil
	})
	if err != nil {
		return core.BudgetPlan{}, err
	}

	slog.InfoContext(ctx, "Budget plan created",
		"id", plan.ID, "date", plan.Date.String(), "category", plan.CategoryName)
	return plan, nil
}

// AddItem inserts an item and increments the owning plan's cached total in
// the same transaction. Locked plans reject the mutation.
func (r *Repository) AddItem(ctx context.Context, item core.BudgetItem) (core.BudgetItem, error) {
	item.Total = item.LineTotal()

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		status, linked, err := planStateTx(ctx, tx, item.PlanID)
		if err != nil {
			return err
		}
		if err := planLockedErr(item.PlanID, status, linked); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO budget_items (plan_id, name, quantity, unit, unit_price, total)
			VALUES (?, ?, ?, ?, ?, ?)`,
			item.PlanID, item.Name, item.Quantity, item.Unit, item.UnitPrice, item.Total)
		if err != nil {
			return fmt.Errorf("insert budget item: %w", err)
		}
		item.ID, _ = res.LastInsertId()

		if _, err := tx.ExecContext(ctx,
			`UPDATE budget_plans SET total = total + ? WHERE id = ?`, item.Total, item.PlanID); err != nil {
			return fmt.Errorf("increment plan total: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.BudgetItem{}, err
	}

	slog.InfoContext(ctx, "Budget item added",
		"id", item.ID, "plan_id", item.PlanID, "name", item.Name, "total", int64(item.Total))
	return item, nil
}

// UpdateItem rewrites an item's fields, recomputes its line total and applies
// the delta to the plan's cached total atomically.
func (r *Repository) UpdateItem(ctx context.Context, item core.BudgetItem) (core.BudgetItem, error) {
	item.Total = item.LineTotal()

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var (
			planID   int64
			oldTotal core.Money
		)
		err := tx.QueryRowContext(ctx,
			`SELECT plan_id, total FROM budget_items WHERE id = ?`, item.ID).
			Scan(&planID, &oldTotal)
		if isNoRows(err) {
			return core.NotFoundf("budget item %d", item.ID)
		}
		if err != nil {
			return fmt.Errorf("get budget item: %w", err)
		}
		item.PlanID = planID

		status, linked, err := planStateTx(ctx, tx, planID)
		if err != nil {
			return err
		}
		if err := planLockedErr(planID, status, linked); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE budget_items SET name = ?, quantity = ?, unit = ?, unit_price = ?, total = ?
			WHERE id = ?`,
			item.Name, item.Quantity, item.Unit, item.UnitPrice, item.Total, item.ID); err != nil {
			return fmt.Errorf("update budget item: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE budget_plans SET total = total + ? WHERE id = ?`,
			item.Total-oldTotal, planID); err != nil {
			return fmt.Errorf("adjust plan total: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.BudgetItem{}, err
	}

	slog.InfoContext(ctx, "Budget item updated",
		"id", item.ID, "plan_id", item.PlanID, "total", int64(item.Total))
	return item, nil
}

// DeleteItem removes an item and decrements the plan total atomically. It
// returns the owning plan's id.
func (r *Repository) DeleteItem(ctx context.Context, itemID int64) (int64, error) {
	var planID int64
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var total core.Money
		err := tx.QueryRowContext(ctx,
			`SELECT plan_id, total FROM budget_items WHERE id = ?`, itemID).
			Scan(&planID, &total)
		if isNoRows(err) {
			return core.NotFoundf("budget item %d", itemID)
		}
		if err != nil {
			return fmt.Errorf("get budget item: %w", err)
		}

		status, linked, err := planStateTx(ctx, tx, planID)
		if err != nil {
			return err
		}
		if err := planLockedErr(planID, status, linked); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM budget_items WHERE id = ?`, itemID); err != nil {
			return fmt.Errorf("delete budget item: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE budget_plans SET total = total - ? WHERE id = ?`, total, planID); err != nil {
			return fmt.Errorf("decrement plan total: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "Budget item deleted", "id", itemID, "plan_id", planID)
	return planID, nil
}

// DeletePlan removes a DRAFT, unlinked plan and cascades to its items.
func (r *Repository) DeletePlan(ctx context.Context, planID int64) error {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		status, linked, err := planStateTx(ctx, tx, planID)
		if err != nil {
			return err
		}
		if err := planLockedErr(planID, status, linked); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM budget_items WHERE plan_id = ?`, planID); err != nil {
			return fmt.Errorf("delete plan items: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM budget_plans WHERE id = ?`, planID); err != nil {
			return fmt.Errorf("delete plan: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Budget plan deleted", "id", planID)
	return nil
}

// GetPlan loads one plan with its items and the paying expense, if any.
func (r *Repository) GetPlan(ctx context.Context, planID int64) (core.BudgetPlan, error) {
	plans, err := r.queryPlans(ctx,
		`SELECT p.id, p.date, p.category_id, c.name, p.status, p.total
		 FROM budget_plans p JOIN categories c ON c.id = p.category_id
		 WHERE p.id = ?`, planID)
	if err != nil {
		return core.BudgetPlan{}, err
	}
	if len(plans) == 0 {
		return core.BudgetPlan{}, core.NotFoundf("budget plan %d", planID)
	}
	return plans[0], nil
}

// ListPlans returns plans with items and linked expenses, ordered by category
// name ascending. A nil date returns every plan.
func (r *Repository) ListPlans(ctx context.Context, date *core.Day) ([]core.BudgetPlan, error) {
	query := `SELECT p.id, p.date, p.category_id, c.name, p.status, p.total
	          FROM budget_plans p JOIN categories c ON c.id = p.category_id`
	args := []any{}
	if date != nil {
		query += ` WHERE p.date = ?`
		args = append(args, date.String())
	}
	query += ` ORDER BY c.name ASC`

	return r.queryPlans(ctx, query, args...)
}

func (r *Repository) queryPlans(ctx context.Context, query string, args ...any) ([]core.BudgetPlan, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query plans: %w", err)
	}
	defer rows.Close()

	var plans []core.BudgetPlan
	for rows.Next() {
		var (
			p       core.BudgetPlan
			dateStr string
		)
		if err := rows.Scan(&p.ID, &dateStr, &p.CategoryID, &p.CategoryName, &p.Status, &p.Total); err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		p.Date, err = core.ParseDay(dateStr)
		if err != nil {
			return nil, fmt.Errorf("parse plan date %q: %w", dateStr, err)
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range plans {
		if err := r.loadPlanChildren(ctx, &plans[i]); err != nil {
			return nil, err
		}
	}
	return plans, nil
}

func (r *Repository) loadPlanChildren(ctx context.Context, plan *core.BudgetPlan) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, plan_id, name, quantity, unit, unit_price, total
		FROM budget_items WHERE plan_id = ? ORDER BY id ASC`, plan.ID)
	if err != nil {
		return fmt.Errorf("query plan items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it core.BudgetItem
		if err := rows.Scan(&it.ID, &it.PlanID, &it.Name, &it.Quantity, &it.Unit, &it.UnitPrice, &it.Total); err != nil {
			return fmt.Errorf("scan plan item: %w", err)
		}
		plan.Items = append(plan.Items, it)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	exp, err := r.expenseByPlan(ctx, plan.ID)
	if err != nil {
		return err
	}
	plan.Expense = exp
	return nil
}

// ReconciledPlan reports one corrected drift between a plan's cached total
// and the sum of its items.
type ReconciledPlan struct {
	PlanID   int64      `json:"plan_id"`
	OldTotal core.Money `json:"old_total"`
	NewTotal core.Money `json:"new_total"`
}

// ReconcilePlanTotals re-sums every plan's items and corrects cached totals
// that drifted. Drift is recoverable, not fatal: the items are the truth.
func (r *Repository) ReconcilePlanTotals(ctx context.Context) ([]ReconciledPlan, error) {
	var corrected []ReconciledPlan

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT p.id, p.total, COALESCE(SUM(i.total), 0) AS actual
			FROM budget_plans p LEFT JOIN budget_items i ON i.plan_id = p.id
			GROUP BY p.id HAVING p.total <> COALESCE(SUM(i.total), 0)`)
		if err != nil {
			return fmt.Errorf("query drifted plans: %w", err)
		}

		for rows.Next() {
			var rp ReconciledPlan
			if err := rows.Scan(&rp.PlanID, &rp.OldTotal, &rp.NewTotal); err != nil {
				rows.Close()
				return fmt.Errorf("scan drifted plan: %w", err)
			}
			corrected = append(corrected, rp)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		for _, rp := range corrected {
			if _, err := tx.ExecContext(ctx,
				`UPDATE budget_plans SET total = ? WHERE id = ?`, rp.NewTotal, rp.PlanID); err != nil {
				return fmt.Errorf("correct plan %d total: %w", rp.PlanID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, rp := range corrected {
		slog.WarnContext(ctx, "Corrected drifted plan total",
			"plan_id", rp.PlanID, "old_total", int64(rp.OldTotal), "new_total", int64(rp.NewTotal))
	}
	return corrected, nil
}
