package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"kas/internal/core"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()

	repo, err := NewRepository(filepath.Join(t.TempDir(), "kas.db"))
	if err != nil {
		t.Fatalf("NewRepository failed: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func mustCategory(t *testing.T, repo *Repository, kind core.CategoryKind, name string) core.Category {
	t.Helper()

	c, err := repo.CreateCategory(context.Background(), core.Category{Kind: kind, Name: name})
	if err != nil {
		t.Fatalf("CreateCategory(%s, %s) failed: %v", kind, name, err)
	}
	return c
}

func mustMethod(t *testing.T, repo *Repository, name string) core.PaymentMethod {
	t.Helper()

	m, err := repo.CreatePaymentMethod(context.Background(), core.PaymentMethod{Name: name, Active: true})
	if err != nil {
		t.Fatalf("CreatePaymentMethod(%s) failed: %v", name, err)
	}
	return m
}

func day(t *testing.T, s string) core.Day {
	t.Helper()

	d, err := core.ParseDay(s)
	if err != nil {
		t.Fatalf("ParseDay(%s) failed: %v", s, err)
	}
	return d
}

func TestMigrationsSeedDefaults(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	methods, err := repo.ListPaymentMethods(ctx)
	if err != nil {
		t.Fatalf("ListPaymentMethods failed: %v", err)
	}
	if len(methods) != 2 {
		t.Fatalf("expected 2 seeded payment methods, got %d", len(methods))
	}

	if _, err := repo.FindCategory(ctx, core.KindIncome, "Iuran"); err != nil {
		t.Fatalf("seeded dues category missing: %v", err)
	}
}

func TestGetOrCreateDayIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	d := day(t, "2025-03-10")

	first, err := repo.GetOrCreateDay(ctx, d)
	if err != nil {
		t.Fatalf("GetOrCreateDay failed: %v", err)
	}
	if first.Status != core.DayOpen || first.OpeningBalance != 0 {
		t.Errorf("new day should be OPEN with zero balance, got %s/%d", first.Status, first.OpeningBalance)
	}

	second, err := repo.GetOrCreateDay(ctx, d)
	if err != nil {
		t.Fatalf("second GetOrCreateDay failed: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("same date must resolve to same day: got ids %d and %d", first.ID, second.ID)
	}
}

func TestCategoryRegistry(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	t.Run("duplicate name within kind conflicts", func(t *testing.T) {
		mustCategory(t, repo, core.KindExpense, "Konsumsi")
		_, err := repo.CreateCategory(ctx, core.Category{Kind: core.KindExpense, Name: "Konsumsi"})
		if !errors.Is(err, core.ErrConflict) {
			t.Errorf("expected conflict, got %v", err)
		}
	})

	t.Run("same name allowed across kinds", func(t *testing.T) {
		mustCategory(t, repo, core.KindBudget, "Konsumsi")
	})

	t.Run("delete referenced category conflicts", func(t *testing.T) {
		cat := mustCategory(t, repo, core.KindIncome, "Donasi")
		method := mustMethod(t, repo, "QRIS")
		_, err := repo.CreateIncome(ctx, core.Income{
			Date:            day(t, "2025-03-01"),
			Amount:          5000,
			CategoryID:      cat.ID,
			PaymentMethodID: method.ID,
			Description:     "donatur",
			CreatedBy:       "bendahara",
		})
		if err != nil {
			t.Fatalf("CreateIncome failed: %v", err)
		}

		if err := repo.DeleteCategory(ctx, cat.ID); !errors.Is(err, core.ErrConflict) {
			t.Errorf("expected conflict deleting referenced category, got %v", err)
		}
	})

	t.Run("delete unknown category is not found", func(t *testing.T) {
		if err := repo.DeleteCategory(ctx, 9999); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
	})
}

func TestPlanLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	d := day(t, "2025-04-05")
	cat := mustCategory(t, repo, core.KindBudget, "Acara")

	plan, err := repo.CreatePlan(ctx, d, cat.ID)
	if err != nil {
		t.Fatalf("CreatePlan failed: %v", err)
	}
	if plan.Status != core.PlanDraft || plan.Total != 0 {
		t.Fatalf("new plan should be DRAFT/0, got %s/%d", plan.Status, plan.Total)
	}

	t.Run("duplicate day and category conflicts", func(t *testing.T) {
		_, err := repo.CreatePlan(ctx, d, cat.ID)
		if !errors.Is(err, core.ErrConflict) {
			t.Errorf("expected conflict, got %v", err)
		}
	})

	t.Run("non-budget category rejected", func(t *testing.T) {
		income := mustCategory(t, repo, core.KindIncome, "Kas masuk")
		_, err := repo.CreatePlan(ctx, d, income.ID)
		if !errors.Is(err, core.ErrNotFound) {
			t.Errorf("expected not found for non-budget category, got %v", err)
		}
	})

	t.Run("items maintain cached total", func(t *testing.T) {
		a, err := repo.AddItem(ctx, core.BudgetItem{PlanID: plan.ID, Name: "Nasi kotak", Quantity: 40, Unit: "box", UnitPrice: 15000})
		if err != nil {
			t.Fatalf("AddItem failed: %v", err)
		}
		if a.Total != 600000 {
			t.Errorf("line total = %d, want 600000", a.Total)
		}

		b, err := repo.AddItem(ctx, core.BudgetItem{PlanID: plan.ID, Name: "Air mineral", Quantity: 5, Unit: "dus", UnitPrice: 30000})
		if err != nil {
			t.Fatalf("AddItem failed: %v", err)
		}

		got, err := repo.GetPlan(ctx, plan.ID)
		if err != nil {
			t.Fatalf("GetPlan failed: %v", err)
		}
		if got.Total != 750000 {
			t.Errorf("plan total = %d, want 750000", got.Total)
		}
		if len(got.Items) != 2 {
			t.Fatalf("expected 2 items, got %d", len(got.Items))
		}

		b.Quantity = 10
		if _, err := repo.UpdateItem(ctx, b); err != nil {
			t.Fatalf("UpdateItem failed: %v", err)
		}
		got, _ = repo.GetPlan(ctx, plan.ID)
		if got.Total != 900000 {
			t.Errorf("plan total after update = %d, want 900000", got.Total)
		}

		planID, err := repo.DeleteItem(ctx, a.ID)
		if err != nil {
			t.Fatalf("DeleteItem failed: %v", err)
		}
		if planID != plan.ID {
			t.Errorf("DeleteItem plan id = %d, want %d", planID, plan.ID)
		}
		got, _ = repo.GetPlan(ctx, plan.ID)
		if got.Total != 300000 {
			t.Errorf("plan total after delete = %d, want 300000", got.Total)
		}
	})

	t.Run("unknown plan is not found", func(t *testing.T) {
		_, err := repo.AddItem(ctx, core.BudgetItem{PlanID: 9999, Name: "x", Quantity: 1, UnitPrice: 1})
		if !errors.Is(err, core.ErrNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
	})
}

func TestExpenseRealizesPlan(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	d := day(t, "2025-05-01")

	budgetCat := mustCategory(t, repo, core.KindBudget, "Perlengkapan")
	expenseCat := mustCategory(t, repo, core.KindExpense, "Belanja")
	method := mustMethod(t, repo, "Kartu")

	plan, err := repo.CreatePlan(ctx, d, budgetCat.ID)
	if err != nil {
		t.Fatalf("CreatePlan failed: %v", err)
	}
	if _, err := repo.AddItem(ctx, core.BudgetItem{PlanID: plan.ID, Name: "Spanduk", Quantity: 2, Unit: "pcs", UnitPrice: 100000}); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}

	exp, err := repo.CreateExpense(ctx, core.Expense{
		Date:            d,
		Amount:          200000,
		CategoryID:      expenseCat.ID,
		PaymentMethodID: method.ID,
		Description:     "cetak spanduk",
		BudgetPlanID:    &plan.ID,
		CreatedBy:       "bendahara",
	})
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}

	got, err := repo.GetPlan(ctx, plan.ID)
	if err != nil {
		t.Fatalf("GetPlan failed: %v", err)
	}
	if got.Status != core.PlanRealized {
		t.Errorf("plan status = %s, want REALIZED", got.Status)
	}
	if got.Expense == nil || got.Expense.ID != exp.ID {
		t.Errorf("plan should carry its paying expense")
	}

	t.Run("second payment conflicts", func(t *testing.T) {
		_, err := repo.CreateExpense(ctx, core.Expense{
			Date:            d,
			Amount:          1000,
			CategoryID:      expenseCat.ID,
			PaymentMethodID: method.ID,
			BudgetPlanID:    &plan.ID,
			CreatedBy:       "bendahara",
		})
		if !errors.Is(err, core.ErrConflict) {
			t.Errorf("expected conflict, got %v", err)
		}
	})

	t.Run("realized plan rejects item mutation", func(t *testing.T) {
		_, err := repo.AddItem(ctx, core.BudgetItem{PlanID: plan.ID, Name: "Tambahan", Quantity: 1, UnitPrice: 1000})
		if !errors.Is(err, core.ErrState) {
			t.Errorf("expected state error, got %v", err)
		}
	})

	t.Run("realized plan rejects deletion", func(t *testing.T) {
		if err := repo.DeletePlan(ctx, plan.ID); !errors.Is(err, core.ErrState) {
			t.Errorf("expected state error, got %v", err)
		}
	})

	t.Run("deleting the expense reverts the plan", func(t *testing.T) {
		if err := repo.DeleteExpense(ctx, exp.ID); err != nil {
			t.Fatalf("DeleteExpense failed: %v", err)
		}

		got, err := repo.GetPlan(ctx, plan.ID)
		if err != nil {
			t.Fatalf("GetPlan failed: %v", err)
		}
		if got.Status != core.PlanDraft {
			t.Errorf("plan status = %s, want DRAFT after expense deletion", got.Status)
		}
		if got.Expense != nil {
			t.Errorf("plan should have no paying expense after deletion")
		}
	})

	t.Run("reverted plan accepts payment again", func(t *testing.T) {
		if _, err := repo.CreateExpense(ctx, core.Expense{
			Date:            d,
			Amount:          200000,
			CategoryID:      expenseCat.ID,
			PaymentMethodID: method.ID,
			BudgetPlanID:    &plan.ID,
			CreatedBy:       "bendahara",
		}); err != nil {
			t.Fatalf("re-payment failed: %v", err)
		}
	})
}

func TestLedgerRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	cat := mustCategory(t, repo, core.KindIncome, "Sumbangan")
	method := mustMethod(t, repo, "Dompet digital")
	memberID := int64(7)

	in, err := repo.CreateIncome(ctx, core.Income{
		Date:            day(t, "2025-06-15"),
		Amount:          25000,
		CategoryID:      cat.ID,
		PaymentMethodID: method.ID,
		Description:     "sumbangan warga",
		MemberID:        &memberID,
		ExtraMeta:       `{"note":"via pos"}`,
		CreatedBy:       "bendahara",
	})
	if err != nil {
		t.Fatalf("CreateIncome failed: %v", err)
	}

	got, err := repo.GetIncome(ctx, in.ID)
	if err != nil {
		t.Fatalf("GetIncome failed: %v", err)
	}
	if got.MemberID == nil || *got.MemberID != memberID {
		t.Errorf("member id not preserved: %v", got.MemberID)
	}
	if got.Date.String() != "2025-06-15" {
		t.Errorf("date = %s, want 2025-06-15", got.Date)
	}
	if got.ExtraMeta != `{"note":"via pos"}` {
		t.Errorf("extra meta not preserved: %q", got.ExtraMeta)
	}

	t.Run("moving the date re-resolves the finance day", func(t *testing.T) {
		got.Date = day(t, "2025-06-16")
		if err := repo.UpdateIncome(ctx, got); err != nil {
			t.Fatalf("UpdateIncome failed: %v", err)
		}

		moved, _ := repo.GetIncome(ctx, in.ID)
		fd, err := repo.GetOrCreateDay(ctx, day(t, "2025-06-16"))
		if err != nil {
			t.Fatalf("GetOrCreateDay failed: %v", err)
		}
		if moved.FinanceDayID != fd.ID {
			t.Errorf("income finance day = %d, want %d", moved.FinanceDayID, fd.ID)
		}
	})

	t.Run("delete then get is not found", func(t *testing.T) {
		if err := repo.DeleteIncome(ctx, in.ID); err != nil {
			t.Fatalf("DeleteIncome failed: %v", err)
		}
		if _, err := repo.GetIncome(ctx, in.ID); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
	})
}

func TestReconcilePlanTotals(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	cat := mustCategory(t, repo, core.KindBudget, "Operasional")
	plan, err := repo.CreatePlan(ctx, day(t, "2025-07-01"), cat.ID)
	if err != nil {
		t.Fatalf("CreatePlan failed: %v", err)
	}
	if _, err := repo.AddItem(ctx, core.BudgetItem{PlanID: plan.ID, Name: "ATK", Quantity: 3, Unit: "pak", UnitPrice: 20000}); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}

	// Corrupt the cached total directly to simulate drift.
	if _, err := repo.db.ExecContext(ctx,
		`UPDATE budget_plans SET total = 1 WHERE id = ?`, plan.ID); err != nil {
		t.Fatalf("corrupting total failed: %v", err)
	}

	corrected, err := repo.ReconcilePlanTotals(ctx)
	if err != nil {
		t.Fatalf("ReconcilePlanTotals failed: %v", err)
	}
	if len(corrected) != 1 {
		t.Fatalf("expected 1 corrected plan, got %d", len(corrected))
	}
	if corrected[0].OldTotal != 1 || corrected[0].NewTotal != 60000 {
		t.Errorf("correction = %d -> %d, want 1 -> 60000", corrected[0].OldTotal, corrected[0].NewTotal)
	}

	again, err := repo.ReconcilePlanTotals(ctx)
	if err != nil {
		t.Fatalf("second ReconcilePlanTotals failed: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("second pass should find nothing, got %d", len(again))
	}
}

func TestReports(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	incomeCat := mustCategory(t, repo, core.KindIncome, "Kas")
	expenseCat := mustCategory(t, repo, core.KindExpense, "Kebersihan")
	method := mustMethod(t, repo, "Giro")

	seedIncome := func(date string, amount core.Money) {
		t.Helper()
		if _, err := repo.CreateIncome(ctx, core.Income{
			Date: day(t, date), Amount: amount,
			CategoryID: incomeCat.ID, PaymentMethodID: method.ID, CreatedBy: "bendahara",
		}); err != nil {
			t.Fatalf("seed income failed: %v", err)
		}
	}
	seedExpense := func(date string, amount core.Money) {
		t.Helper()
		if _, err := repo.CreateExpense(ctx, core.Expense{
			Date: day(t, date), Amount: amount,
			CategoryID: expenseCat.ID, PaymentMethodID: method.ID, CreatedBy: "bendahara",
		}); err != nil {
			t.Fatalf("seed expense failed: %v", err)
		}
	}

	seedIncome("2025-01-10", 100000)
	seedIncome("2025-01-20", 50000)
	seedIncome("2025-03-05", 70000)
	seedExpense("2025-01-15", 40000)
	seedExpense("2024-12-31", 99999) // outside the queried year

	t.Run("overview", func(t *testing.T) {
		o, err := repo.Overview(ctx)
		if err != nil {
			t.Fatalf("Overview failed: %v", err)
		}
		if o.TotalIncome != 220000 || o.TotalExpense != 139999 {
			t.Errorf("overview = %d in / %d out", o.TotalIncome, o.TotalExpense)
		}
		if o.Balance != o.TotalIncome-o.TotalExpense {
			t.Errorf("balance %d does not match totals", o.Balance)
		}
	})

	t.Run("monthly stats", func(t *testing.T) {
		stats, err := repo.MonthlyStats(ctx, 2025)
		if err != nil {
			t.Fatalf("MonthlyStats failed: %v", err)
		}
		if len(stats) != 12 {
			t.Fatalf("expected 12 buckets, got %d", len(stats))
		}
		if stats[0].Income != 150000 || stats[0].Expense != 40000 {
			t.Errorf("january = %d/%d, want 150000/40000", stats[0].Income, stats[0].Expense)
		}
		if stats[2].Income != 70000 {
			t.Errorf("march income = %d, want 70000", stats[2].Income)
		}
		if stats[11].Income != 0 || stats[11].Expense != 0 {
			t.Errorf("december should be empty, got %d/%d", stats[11].Income, stats[11].Expense)
		}
	})

	t.Run("entries by kind resolve category names", func(t *testing.T) {
		d := day(t, "2025-01-15")
		entries, err := repo.EntriesByKind(ctx, core.EntryExpense, &d)
		if err != nil {
			t.Fatalf("EntriesByKind failed: %v", err)
		}
		if len(entries) != 1 {
			t.Fatalf("expected 1 expense entry, got %d", len(entries))
		}
		if entries[0].Category != "Kebersihan" {
			t.Errorf("category = %q, want Kebersihan", entries[0].Category)
		}
		if entries[0].Kind != core.EntryExpense {
			t.Errorf("kind = %q, want expense", entries[0].Kind)
		}
	})

	// The join brings in a second id column; the unfiltered listing must
	// still resolve and stay ordered by the ledger row's date then id.
	t.Run("entries without date filter", func(t *testing.T) {
		incomes, err := repo.EntriesByKind(ctx, core.EntryIncome, nil)
		if err != nil {
			t.Fatalf("EntriesByKind(income, nil) failed: %v", err)
		}
		if len(incomes) != 3 {
			t.Fatalf("expected 3 income entries, got %d", len(incomes))
		}
		for i := 1; i < len(incomes); i++ {
			if incomes[i].Date.Before(incomes[i-1].Date.Time) {
				t.Errorf("entries out of date order at %d: %s before %s",
					i, incomes[i].Date, incomes[i-1].Date)
			}
		}

		expenses, err := repo.EntriesByKind(ctx, core.EntryExpense, nil)
		if err != nil {
			t.Fatalf("EntriesByKind(expense, nil) failed: %v", err)
		}
		if len(expenses) != 2 {
			t.Errorf("expected 2 expense entries, got %d", len(expenses))
		}
	})
}
