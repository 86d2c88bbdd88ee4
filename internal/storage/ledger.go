package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"kas/internal/core"
)

const incomeColumns = `id, date, amount, category_id, payment_method_id, description,
	finance_day_id, member_id, extra_meta, created_by`

const expenseColumns = `id, date, amount, category_id, payment_method_id, description,
	finance_day_id, budget_plan_id, created_by`

// CreateIncome inserts an income row, resolving (or creating) the finance day
// for its date in the same transaction. Income never links to a plan.
func (r *Repository) CreateIncome(ctx context.Context, in core.Income) (core.Income, error) {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		fd, err := getOrCreateDayTx(ctx, tx, in.Date)
		if err != nil {
			return err
		}
		in.FinanceDayID = fd.ID

		res, err := tx.ExecContext(ctx, `
			INSERT INTO incomes (date, amount, category_id, payment_method_id, description,
				finance_day_id, member_id, extra_meta, created_by)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			in.Date.String(), in.Amount, in.CategoryID, in.PaymentMethodID, in.Description,
			in.FinanceDayID, in.MemberID, in.ExtraMeta, in.CreatedBy)
		if err != nil {
			return fmt.Errorf("insert income: %w", err)
		}
		in.ID, _ = res.LastInsertId()
		return nil
	})
	if err != nil {
		return core.Income{}, err
	}

	slog.InfoContext(ctx, "Income recorded",
		"id", in.ID, "date", in.Date.String(), "amount", int64(in.Amount), "created_by", in.CreatedBy)
	return in, nil
}

func (r *Repository) GetIncome(ctx context.Context, id int64) (core.Income, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+incomeColumns+` FROM incomes WHERE id = ?`, id)
	in, err := scanIncome(row)
	if isNoRows(err) {
		return core.Income{}, core.NotFoundf("income %d", id)
	}
	if err != nil {
		return core.Income{}, fmt.Errorf("get income: %w", err)
	}
	return in, nil
}

// UpdateIncome rewrites the mutable fields of an income row. The finance day
// is re-resolved when the date moves.
func (r *Repository) UpdateIncome(ctx context.Context, in core.Income) error {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		fd, err := getOrCreateDayTx(ctx, tx, in.Date)
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE incomes SET date = ?, amount = ?, category_id = ?, payment_method_id = ?,
				description = ?, finance_day_id = ?, member_id = ?, extra_meta = ?
			WHERE id = ?`,
			in.Date.String(), in.Amount, in.CategoryID, in.PaymentMethodID,
			in.Description, fd.ID, in.MemberID, in.ExtraMeta, in.ID)
		if err != nil {
			return fmt.Errorf("update income: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return core.NotFoundf("income %d", in.ID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Income updated", "id", in.ID, "amount", int64(in.Amount))
	return nil
}

// DeleteIncome removes an income row unconditionally; it has no side effects
// on any other entity.
func (r *Repository) DeleteIncome(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM incomes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete income: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.NotFoundf("income %d", id)
	}

	slog.InfoContext(ctx, "Income deleted", "id", id)
	return nil
}

// ListIncomes returns incomes, optionally restricted to one day, newest id first.
func (r *Repository) ListIncomes(ctx context.Context, date *core.Day) ([]core.Income, error) {
	query := `SELECT ` + incomeColumns + ` FROM incomes`
	args := []any{}
	if date != nil {
		query += ` WHERE date = ?`
		args = append(args, date.String())
	}
	query += ` ORDER BY id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	defer rows.Close()

	var out []core.Income
	for rows.Next() {
		in, err := scanIncome(rows)
		if err != nil {
			return nil, fmt.Errorf("scan income: %w", err)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// DuesIncomes returns the income rows of the dues category for one day.
// Existence of such a row is the whole definition of "paid".
func (r *Repository) DuesIncomes(ctx context.Context, duesCategoryID int64, date core.Day) ([]core.Income, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+incomeColumns+` FROM incomes WHERE category_id = ? AND date = ? ORDER BY id ASC`,
		duesCategoryID, date.String())
	if err != nil {
		return nil, fmt.Errorf("list dues incomes: %w", err)
	}
	defer rows.Close()

	var out []core.Income
	for rows.Next() {
		in, err := scanIncome(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dues income: %w", err)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// CreateExpense inserts an expense row. When it pays a budget plan, the plan
// flips DRAFT -> REALIZED inside the same transaction; paying a plan that is
// already realized or already paid is a conflict and writes nothing.
func (r *Repository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		fd, err := getOrCreateDayTx(ctx, tx, e.Date)
		if err != nil {
			return err
		}
		e.FinanceDayID = fd.ID

		if e.BudgetPlanID != nil {
			status, linked, err := planStateTx(ctx, tx, *e.BudgetPlanID)
			if err != nil {
				return err
			}
			if status == core.PlanRealized || linked {
				return core.Conflictf("budget plan %d is already paid", *e.BudgetPlanID)
			}
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO expenses (date, amount, category_id, payment_method_id, description,
				finance_day_id, budget_plan_id, created_by)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			e.Date.String(), e.Amount, e.CategoryID, e.PaymentMethodID, e.Description,
			e.FinanceDayID, e.BudgetPlanID, e.CreatedBy)
		if err != nil {
			// The UNIQUE index on budget_plan_id backstops concurrent payers.
			if isUniqueViolation(err) {
				return core.Conflictf("budget plan %d is already paid", *e.BudgetPlanID)
			}
			return fmt.Errorf("insert expense: %w", err)
		}
		e.ID, _ = res.LastInsertId()

		if e.BudgetPlanID != nil {
			if _, err := tx.ExecContext(ctx,
				`UPDATE budget_plans SET status = 'REALIZED' WHERE id = ?`, *e.BudgetPlanID); err != nil {
				return fmt.Errorf("realize plan: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return core.Expense{}, err
	}

	slog.InfoContext(ctx, "Expense recorded",
		"id", e.ID, "date", e.Date.String(), "amount", int64(e.Amount),
		"plan_linked", e.BudgetPlanID != nil, "created_by", e.CreatedBy)
	return e, nil
}

func (r *Repository) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id)
	e, err := scanExpense(row)
	if isNoRows(err) {
		return core.Expense{}, core.NotFoundf("expense %d", id)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

// expenseByPlan returns the expense paying a plan, or nil when the plan is
// unpaid.
func (r *Repository) expenseByPlan(ctx context.Context, planID int64) (*core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE budget_plan_id = ?`, planID)
	e, err := scanExpense(row)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get plan expense: %w", err)
	}
	return &e, nil
}

// UpdateExpense rewrites the mutable fields of an expense row. Plan linkage
// is immutable after creation and is left untouched here; the service layer
// rejects attempts to change it.
func (r *Repository) UpdateExpense(ctx context.Context, e core.Expense) error {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		fd, err := getOrCreateDayTx(ctx, tx, e.Date)
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE expenses SET date = ?, amount = ?, category_id = ?, payment_method_id = ?,
				description = ?, finance_day_id = ?
			WHERE id = ?`,
			e.Date.String(), e.Amount, e.CategoryID, e.PaymentMethodID,
			e.Description, fd.ID, e.ID)
		if err != nil {
			return fmt.Errorf("update expense: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return core.NotFoundf("expense %d", e.ID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Expense updated", "id", e.ID, "amount", int64(e.Amount))
	return nil
}

// DeleteExpense removes an expense row. When the expense pays a plan, the
// plan reverts to DRAFT in the same transaction, restoring the invariant
// that REALIZED means exactly one live paying expense.
func (r *Repository) DeleteExpense(ctx context.Context, id int64) error {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var planID sql.NullInt64
		err := tx.QueryRowContext(ctx,
			`SELECT budget_plan_id FROM expenses WHERE id = ?`, id).Scan(&planID)
		if isNoRows(err) {
			return core.NotFoundf("expense %d", id)
		}
		if err != nil {
			return fmt.Errorf("get expense link: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete expense: %w", err)
		}

		if planID.Valid {
			if _, err := tx.ExecContext(ctx,
				`UPDATE budget_plans SET status = 'DRAFT' WHERE id = ?`, planID.Int64); err != nil {
				return fmt.Errorf("revert plan to draft: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Expense deleted", "id", id)
	return nil
}

// ListExpenses returns expenses, optionally restricted to one day, newest id first.
func (r *Repository) ListExpenses(ctx context.Context, date *core.Day) ([]core.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses`
	args := []any{}
	if date != nil {
		query += ` WHERE date = ?`
		args = append(args, date.String())
	}
	query += ` ORDER BY id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIncome(row rowScanner) (core.Income, error) {
	var (
		in       core.Income
		dateStr  string
		memberID sql.NullInt64
	)
	err := row.Scan(&in.ID, &dateStr, &in.Amount, &in.CategoryID, &in.PaymentMethodID,
		&in.Description, &in.FinanceDayID, &memberID, &in.ExtraMeta, &in.CreatedBy)
	if err != nil {
		return core.Income{}, err
	}
	if memberID.Valid {
		in.MemberID = &memberID.Int64
	}
	in.Date, err = core.ParseDay(dateStr)
	if err != nil {
		return core.Income{}, fmt.Errorf("parse income date %q: %w", dateStr, err)
	}
	return in, nil
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var (
		e       core.Expense
		dateStr string
		planID  sql.NullInt64
	)
	err := row.Scan(&e.ID, &dateStr, &e.Amount, &e.CategoryID, &e.PaymentMethodID,
		&e.Description, &e.FinanceDayID, &planID, &e.CreatedBy)
	if err != nil {
		return core.Expense{}, err
	}
	if planID.Valid {
		e.BudgetPlanID = &planID.Int64
	}
	e.Date, err = core.ParseDay(dateStr)
	if err != nil {
		return core.Expense{}, fmt.Errorf("parse expense date %q: %w", dateStr, err)
	}
	return e, nil
}
