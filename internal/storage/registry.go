package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"kas/internal/core"
)

// CreateCategory inserts a category. Names are unique within a kind.
func (r *Repository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (kind, name) VALUES (?, ?)`, c.Kind, c.Name)
	if err != nil {
		if isUniqueViolation(err) {
			return core.Category{}, core.Conflictf("%s category %q already exists", c.Kind, c.Name)
		}
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}
	c.ID, _ = res.LastInsertId()

	slog.InfoContext(ctx, "Category created", "id", c.ID, "kind", c.Kind, "name", c.Name)
	return c, nil
}

func (r *Repository) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	var c core.Category
	err := r.db.QueryRowContext(ctx,
		`SELECT id, kind, name FROM categories WHERE id = ?`, id).
		Scan(&c.ID, &c.Kind, &c.Name)
	if isNoRows(err) {
		return core.Category{}, core.NotFoundf("category %d", id)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

// FindCategory resolves a category by kind and exact name.
func (r *Repository) FindCategory(ctx context.Context, kind core.CategoryKind, name string) (core.Category, error) {
	var c core.Category
	err := r.db.QueryRowContext(ctx,
		`SELECT id, kind, name FROM categories WHERE kind = ? AND name = ?`, kind, name).
		Scan(&c.ID, &c.Kind, &c.Name)
	if isNoRows(err) {
		return core.Category{}, core.NotFoundf("%s category %q", kind, name)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("find category: %w", err)
	}
	return c, nil
}

func (r *Repository) ListCategories(ctx context.Context, kind core.CategoryKind) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, kind, name FROM categories WHERE kind = ? ORDER BY name ASC`, kind)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Kind, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteCategory removes a category unless any ledger row or plan still
// references it. There is no cascade.
func (r *Repository) DeleteCategory(ctx context.Context, id int64) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		var refs int64
		err := tx.QueryRowContext(ctx, `
			SELECT (SELECT COUNT(*) FROM incomes WHERE category_id = ?1)
			     + (SELECT COUNT(*) FROM expenses WHERE category_id = ?1)
			     + (SELECT COUNT(*) FROM budget_plans WHERE category_id = ?1)`, id).
			Scan(&refs)
		if err != nil {
			return fmt.Errorf("count category references: %w", err)
		}
		if refs > 0 {
			return core.Conflictf("category %d is referenced by %d rows", id, refs)
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete category: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return core.NotFoundf("category %d", id)
		}

		slog.InfoContext(ctx, "Category deleted", "id", id)
		return nil
	})
}

func (r *Repository) CreatePaymentMethod(ctx context.Context, m core.PaymentMethod) (core.PaymentMethod, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO payment_methods (name, active) VALUES (?, ?)`, m.Name, m.Active)
	if err != nil {
		if isUniqueViolation(err) {
			return core.PaymentMethod{}, core.Conflictf("payment method %q already exists", m.Name)
		}
		return core.PaymentMethod{}, fmt.Errorf("insert payment method: %w", err)
	}
	m.ID, _ = res.LastInsertId()

	slog.InfoContext(ctx, "Payment method created", "id", m.ID, "name", m.Name)
	return m, nil
}

func (r *Repository) GetPaymentMethod(ctx context.Context, id int64) (core.PaymentMethod, error) {
	var m core.PaymentMethod
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, active FROM payment_methods WHERE id = ?`, id).
		Scan(&m.ID, &m.Name, &m.Active)
	if isNoRows(err) {
		return core.PaymentMethod{}, core.NotFoundf("payment method %d", id)
	}
	if err != nil {
		return core.PaymentMethod{}, fmt.Errorf("get payment method: %w", err)
	}
	return m, nil
}

func (r *Repository) ListPaymentMethods(ctx context.Context) ([]core.PaymentMethod, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, active FROM payment_methods ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list payment methods: %w", err)
	}
	defer rows.Close()

	var out []core.PaymentMethod
	for rows.Next() {
		var m core.PaymentMethod
		if err := rows.Scan(&m.ID, &m.Name, &m.Active); err != nil {
			return nil, fmt.Errorf("scan payment method: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// SetPaymentMethodActive toggles a method without deleting its history.
func (r *Repository) SetPaymentMethodActive(ctx context.Context, id int64, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payment_methods SET active = ? WHERE id = ?`, active, id)
	if err != nil {
		return fmt.Errorf("update payment method: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.NotFoundf("payment method %d", id)
	}

	slog.InfoContext(ctx, "Payment method toggled", "id", id, "active", active)
	return nil
}

// DeletePaymentMethod removes a method unless referenced by ledger rows.
func (r *Repository) DeletePaymentMethod(ctx context.Context, id int64) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		var refs int64
		err := tx.QueryRowContext(ctx, `
			SELECT (SELECT COUNT(*) FROM incomes WHERE payment_method_id = ?1)
			     + (SELECT COUNT(*) FROM expenses WHERE payment_method_id = ?1)`, id).
			Scan(&refs)
		if err != nil {
			return fmt.Errorf("count payment method references: %w", err)
		}
		if refs > 0 {
			return core.Conflictf("payment method %d is referenced by %d rows", id, refs)
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM payment_methods WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete payment method: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return core.NotFoundf("payment method %d", id)
		}

		slog.InfoContext(ctx, "Payment method deleted", "id", id)
		return nil
	})
}
