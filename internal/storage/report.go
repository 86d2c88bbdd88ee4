package storage

import (
	"context"
	"database/sql"
	"fmt"

	"kas/internal/core"
)

// Overview sums the whole ledger in one round trip.
func (r *Repository) Overview(ctx context.Context) (core.Overview, error) {
	var o core.Overview
	err := r.db.QueryRowContext(ctx, `
		SELECT (SELECT COALESCE(SUM(amount), 0) FROM incomes),
		       (SELECT COALESCE(SUM(amount), 0) FROM expenses)`).
		Scan(&o.TotalIncome, &o.TotalExpense)
	if err != nil {
		return core.Overview{}, fmt.Errorf("overview totals: %w", err)
	}
	o.Balance = o.TotalIncome - o.TotalExpense
	return o, nil
}

// MonthlyStats buckets one calendar year of ledger activity into twelve
// months. Months without entries stay at zero.
func (r *Repository) MonthlyStats(ctx context.Context, year int) ([]core.MonthlyBucket, error) {
	buckets := make([]core.MonthlyBucket, 12)
	for i := range buckets {
		buckets[i].Month = i + 1
	}

	fill := func(query string, assign func(*core.MonthlyBucket, core.Money)) error {
		rows, err := r.db.QueryContext(ctx, query, fmt.Sprintf("%04d-%%", year))
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				month int
				total core.Money
			)
			if err := rows.Scan(&month, &total); err != nil {
				return err
			}
			if month < 1 || month > 12 {
				continue
			}
			assign(&buckets[month-1], total)
		}
		return rows.Err()
	}

	err := fill(`
		SELECT CAST(substr(date, 6, 2) AS INTEGER), COALESCE(SUM(amount), 0)
		FROM incomes WHERE date LIKE ? GROUP BY 1`,
		func(b *core.MonthlyBucket, m core.Money) { b.Income = m })
	if err != nil {
		return nil, fmt.Errorf("monthly income stats: %w", err)
	}

	err = fill(`
		SELECT CAST(substr(date, 6, 2) AS INTEGER), COALESCE(SUM(amount), 0)
		FROM expenses WHERE date LIKE ? GROUP BY 1`,
		func(b *core.MonthlyBucket, m core.Money) { b.Expense = m })
	if err != nil {
		return nil, fmt.Errorf("monthly expense stats: %w", err)
	}

	return buckets, nil
}

// EntriesByKind projects ledger rows of one kind into read entries with the
// category name resolved, optionally restricted to one day. Ordered by date
// then id so reports and exports are stable.
func (r *Repository) EntriesByKind(ctx context.Context, kind core.EntryKind, date *core.Day) ([]core.Entry, error) {
	var query string
	switch kind {
	case core.EntryIncome:
		query = `
			SELECT i.id, i.date, c.name, i.description, i.amount, i.member_id, i.extra_meta
			FROM incomes i JOIN categories c ON c.id = i.category_id`
	case core.EntryExpense:
		query = `
			SELECT e.id, e.date, c.name, e.description, e.amount, NULL, ''
			FROM expenses e JOIN categories c ON c.id = e.category_id`
	default:
		return nil, core.Validationf("unknown entry kind %q", kind)
	}

	// Both the ledger table and categories carry id columns, so the filter
	// and ordering must name the ledger alias.
	alias := "i"
	if kind == core.EntryExpense {
		alias = "e"
	}

	args := []any{}
	if date != nil {
		query += fmt.Sprintf(" WHERE %s.date = ?", alias)
		args = append(args, date.String())
	}
	query += fmt.Sprintf(" ORDER BY %s.date ASC, %s.id ASC", alias, alias)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s entries: %w", kind, err)
	}
	defer rows.Close()

	var out []core.Entry
	for rows.Next() {
		var (
			e        core.Entry
			dateStr  string
			memberID sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &dateStr, &e.Category, &e.Description, &e.Amount, &memberID, &e.ExtraMeta); err != nil {
			return nil, fmt.Errorf("scan %s entry: %w", kind, err)
		}
		e.Kind = kind
		if memberID.Valid {
			e.MemberID = &memberID.Int64
		}
		e.Date, err = core.ParseDay(dateStr)
		if err != nil {
			return nil, fmt.Errorf("parse entry date %q: %w", dateStr, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
