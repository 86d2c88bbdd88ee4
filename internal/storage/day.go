package storage

import (
	"context"
	"database/sql"
	"fmt"

	"kas/internal/core"
)

// GetOrCreateDay returns the FinanceDay for the given calendar date, creating
// it OPEN with a zero opening balance when absent. Calling it twice for the
// same date always yields the same row.
func (r *Repository) GetOrCreateDay(ctx context.Context, day core.Day) (core.FinanceDay, error) {
	var fd core.FinanceDay
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		fd, err = getOrCreateDayTx(ctx, tx, day)
		return err
	})
	return fd, err
}

// getOrCreateDayTx is the transaction-scoped variant used by ledger writes so
// the day resolution commits or rolls back together with the entry.
func getOrCreateDayTx(ctx context.Context, tx *sql.Tx, day core.Day) (core.FinanceDay, error) {
	_, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO finance_days (date, status, opening_balance) VALUES (?, 'OPEN', 0)`,
		day.String())
	if err != nil {
		return core.FinanceDay{}, fmt.Errorf("ensure finance day: %w", err)
	}

	var (
		fd      core.FinanceDay
		dateStr string
	)
	err = tx.QueryRowContext(ctx,
		`SELECT id, date, status, opening_balance FROM finance_days WHERE date = ?`, day.String()).
		Scan(&fd.ID, &dateStr, &fd.Status, &fd.OpeningBalance)
	if err != nil {
		return core.FinanceDay{}, fmt.Errorf("get finance day: %w", err)
	}

	fd.Date, err = core.ParseDay(dateStr)
	if err != nil {
		return core.FinanceDay{}, fmt.Errorf("parse finance day date %q: %w", dateStr, err)
	}
	return fd, nil
}

// ListDays returns all finance days, newest first.
func (r *Repository) ListDays(ctx context.Context) ([]core.FinanceDay, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, date, status, opening_balance FROM finance_days ORDER BY date DESC`)
	if err != nil {
		return nil, fmt.Errorf("list finance days: %w", err)
	}
	defer rows.Close()

	var out []core.FinanceDay
	for rows.Next() {
		var (
			fd      core.FinanceDay
			dateStr string
		)
		if err := rows.Scan(&fd.ID, &dateStr, &fd.Status, &fd.OpeningBalance); err != nil {
			return nil, fmt.Errorf("scan finance day: %w", err)
		}
		fd.Date, err = core.ParseDay(dateStr)
		if err != nil {
			return nil, fmt.Errorf("parse finance day date %q: %w", dateStr, err)
		}
		out = append(out, fd)
	}
	return out, rows.Err()
}
