package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"kas/internal/core"
	"kas/internal/members"
	sheetmem "kas/internal/sheets/memory"
	"kas/internal/services"
	"kas/internal/storage"
)

const testToken = "test-token"

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	repo, err := storage.NewRepository(filepath.Join(t.TempDir(), "kas.db"))
	if err != nil {
		t.Fatalf("NewRepository failed: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	roster := members.New([]core.Member{
		{ID: 1, Name: "Andi", ExternalCode: "A-001"},
		{ID: 2, Name: "Budi", ExternalCode: "A-002"},
	})

	s := NewServer(":0", testToken, time.UTC,
		services.NewBudgetService(repo, nil),
		services.NewLedgerService(repo, nil),
		services.NewRegistryService(repo),
		services.NewReportService(repo, roster, sheetmem.New(), "Iuran"),
		services.NewDuesService(repo, roster, nil, "Iuran"),
	)
	ts := httptest.NewServer(s.Server.Handler)
	t.Cleanup(ts.Close)
	t.Cleanup(s.limiter.Stop)

	return s, ts
}

func doJSON(t *testing.T, method, url string, body any, token string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()

	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestHealthEndpoints(t *testing.T) {
	_, ts := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s failed: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, resp.StatusCode)
		}
	}
}

func TestAuthGatesTreasurerRoutes(t *testing.T) {
	_, ts := newTestServer(t)

	t.Run("no token", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, ts.URL+"/categories",
			map[string]string{"kind": "income", "name": "Donasi"}, "")
		resp.Body.Close()
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("status = %d, want 403", resp.StatusCode)
		}
	})

	t.Run("wrong token", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, ts.URL+"/categories",
			map[string]string{"kind": "income", "name": "Donasi"}, "wrong")
		resp.Body.Close()
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("status = %d, want 403", resp.StatusCode)
		}
	})

	t.Run("valid token", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, ts.URL+"/categories",
			map[string]string{"kind": "income", "name": "Donasi"}, testToken)
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Errorf("status = %d, want 201", resp.StatusCode)
		}
	})
}

func TestPlanPaymentFlow(t *testing.T) {
	_, ts := newTestServer(t)

	budgetCat := decodeBody[core.Category](t, doJSON(t, http.MethodPost, ts.URL+"/categories",
		map[string]string{"kind": "budget", "name": "Acara"}, testToken))
	expenseCat := decodeBody[core.Category](t, doJSON(t, http.MethodPost, ts.URL+"/categories",
		map[string]string{"kind": "expense", "name": "Belanja"}, testToken))

	methods := decodeBody[[]core.PaymentMethod](t, doJSON(t, http.MethodGet, ts.URL+"/payment-methods", nil, testToken))
	if len(methods) == 0 {
		t.Fatal("no seeded payment methods")
	}

	plan := decodeBody[core.BudgetPlan](t, doJSON(t, http.MethodPost, ts.URL+"/plans",
		map[string]any{"date": "2025-09-01", "category_id": budgetCat.ID}, testToken))
	if plan.Status != core.PlanDraft {
		t.Fatalf("new plan status = %s, want DRAFT", plan.Status)
	}

	item := decodeBody[core.BudgetItem](t, doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/plans/%d/items", ts.URL, plan.ID),
		map[string]any{"name": "Sound system", "quantity": 1, "unit": "set", "unit_price": 500000}, testToken))
	if item.Total != 500000 {
		t.Errorf("item total = %d, want 500000", item.Total)
	}

	expense := decodeBody[core.Expense](t, doJSON(t, http.MethodPost, ts.URL+"/expenses",
		map[string]any{
			"date": "2025-09-01", "amount": 500000,
			"category_id": expenseCat.ID, "payment_method_id": methods[0].ID,
			"description": "sewa sound", "budget_plan_id": plan.ID,
		}, testToken))
	if expense.BudgetPlanID == nil || *expense.BudgetPlanID != plan.ID {
		t.Fatalf("expense not linked: %+v", expense)
	}

	t.Run("plan realized", func(t *testing.T) {
		got := decodeBody[core.BudgetPlan](t, doJSON(t, http.MethodGet,
			fmt.Sprintf("%s/plans/%d", ts.URL, plan.ID), nil, testToken))
		if got.Status != core.PlanRealized {
			t.Errorf("plan status = %s, want REALIZED", got.Status)
		}
	})

	t.Run("second payment conflicts", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, ts.URL+"/expenses",
			map[string]any{
				"date": "2025-09-01", "amount": 1,
				"category_id": expenseCat.ID, "payment_method_id": methods[0].ID,
				"budget_plan_id": plan.ID,
			}, testToken)
		resp.Body.Close()
		if resp.StatusCode != http.StatusConflict {
			t.Errorf("status = %d, want 409", resp.StatusCode)
		}
	})

	t.Run("locked plan rejects items", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, fmt.Sprintf("%s/plans/%d/items", ts.URL, plan.ID),
			map[string]any{"name": "Extra", "quantity": 1, "unit_price": 100}, testToken)
		resp.Body.Close()
		if resp.StatusCode != http.StatusConflict {
			t.Errorf("status = %d, want 409", resp.StatusCode)
		}
	})

	t.Run("delete expense reverts plan", func(t *testing.T) {
		resp := doJSON(t, http.MethodDelete, fmt.Sprintf("%s/expenses/%d", ts.URL, expense.ID), nil, testToken)
		resp.Body.Close()
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("delete status = %d, want 204", resp.StatusCode)
		}

		got := decodeBody[core.BudgetPlan](t, doJSON(t, http.MethodGet,
			fmt.Sprintf("%s/plans/%d", ts.URL, plan.ID), nil, testToken))
		if got.Status != core.PlanDraft {
			t.Errorf("plan status = %s, want DRAFT", got.Status)
		}
	})
}

func TestValidationStatus(t *testing.T) {
	_, ts := newTestServer(t)

	t.Run("bad category kind", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, ts.URL+"/categories",
			map[string]string{"kind": "weird", "name": "x"}, testToken)
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnprocessableEntity {
			t.Errorf("status = %d, want 422", resp.StatusCode)
		}
	})

	t.Run("malformed date filter", func(t *testing.T) {
		resp := doJSON(t, http.MethodGet, ts.URL+"/public/transparency?date=tomorrow", nil, "")
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnprocessableEntity {
			t.Errorf("status = %d, want 422", resp.StatusCode)
		}
	})

	t.Run("unknown plan is 404", func(t *testing.T) {
		resp := doJSON(t, http.MethodGet, ts.URL+"/plans/999", nil, testToken)
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d, want 404", resp.StatusCode)
		}
	})
}

func TestPublicTransparency(t *testing.T) {
	_, ts := newTestServer(t)

	t.Run("empty ledger yields empty feed", func(t *testing.T) {
		entries := decodeBody[[]core.TransparencyEntry](t,
			doJSON(t, http.MethodGet, ts.URL+"/public/transparency", nil, ""))
		if len(entries) != 0 {
			t.Errorf("expected empty feed, got %d entries", len(entries))
		}
	})

	t.Run("dues are anonymized", func(t *testing.T) {
		methods := decodeBody[[]core.PaymentMethod](t, doJSON(t, http.MethodGet, ts.URL+"/payment-methods", nil, testToken))

		resp := doJSON(t, http.MethodPost, ts.URL+"/dues/pay", map[string]any{
			"date": "2025-09-02", "member_id": 1, "amount": 10000, "payment_method_id": methods[0].ID,
		}, testToken)
		resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("dues pay status = %d, want 201", resp.StatusCode)
		}

		entries := decodeBody[[]core.TransparencyEntry](t,
			doJSON(t, http.MethodGet, ts.URL+"/public/transparency", nil, ""))
		if len(entries) != 1 {
			t.Fatalf("expected 1 entry, got %d", len(entries))
		}
		if entries[0].Description != core.DuesPublicLabel {
			t.Errorf("public description = %q, must be anonymized", entries[0].Description)
		}
	})
}

func TestDuesEndpoints(t *testing.T) {
	_, ts := newTestServer(t)
	methods := decodeBody[[]core.PaymentMethod](t, doJSON(t, http.MethodGet, ts.URL+"/payment-methods", nil, testToken))

	in := decodeBody[core.Income](t, doJSON(t, http.MethodPost, ts.URL+"/dues/pay", map[string]any{
		"date": "2025-09-03", "member_id": 2, "amount": 10000, "payment_method_id": methods[0].ID,
	}, testToken))

	status := decodeBody[[]core.DuesStatus](t,
		doJSON(t, http.MethodGet, ts.URL+"/dues?date=2025-09-03", nil, testToken))
	var paid int
	for _, st := range status {
		if st.Paid {
			paid++
		}
	}
	if paid != 1 {
		t.Errorf("paid members = %d, want 1", paid)
	}

	unpaid := decodeBody[[]core.Member](t,
		doJSON(t, http.MethodGet, ts.URL+"/dues/unpaid?date=2025-09-03", nil, testToken))
	if len(unpaid) != 1 {
		t.Errorf("unpaid members = %d, want 1", len(unpaid))
	}

	t.Run("omitted date defaults to today", func(t *testing.T) {
		status := decodeBody[[]core.DuesStatus](t,
			doJSON(t, http.MethodGet, ts.URL+"/dues", nil, testToken))
		if len(status) != 2 {
			t.Fatalf("expected 2 members, got %d", len(status))
		}
		for _, st := range status {
			if st.Paid {
				t.Errorf("member %s should be unpaid today", st.Member.Name)
			}
		}
	})

	resp := doJSON(t, http.MethodDelete, fmt.Sprintf("%s/dues/%d", ts.URL, in.ID), nil, testToken)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("undo status = %d, want 204", resp.StatusCode)
	}
}

// Raw ledger rows carry member identities, so every read outside the public
// projection requires the treasurer token.
func TestAnonymousReadsForbidden(t *testing.T) {
	_, ts := newTestServer(t)
	methods := decodeBody[[]core.PaymentMethod](t, doJSON(t, http.MethodGet, ts.URL+"/payment-methods", nil, testToken))

	resp := doJSON(t, http.MethodPost, ts.URL+"/dues/pay", map[string]any{
		"date": "2025-09-04", "member_id": 1, "amount": 10000, "payment_method_id": methods[0].ID,
	}, testToken)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("dues pay status = %d, want 201", resp.StatusCode)
	}

	paths := []string{
		"/incomes",
		"/expenses",
		"/plans",
		"/days",
		"/categories?kind=income",
		"/payment-methods",
		"/dues?date=2025-09-04",
		"/dues/unpaid?date=2025-09-04",
		"/reports/overview",
		"/reports/monthly?year=2025",
		"/reports/by-category?kind=income",
	}
	for _, path := range paths {
		resp := doJSON(t, http.MethodGet, ts.URL+path, nil, "")
		resp.Body.Close()
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("anonymous GET %s = %d, want 403", path, resp.StatusCode)
		}
	}

	t.Run("public feed stays open and scrubbed", func(t *testing.T) {
		entries := decodeBody[[]core.TransparencyEntry](t,
			doJSON(t, http.MethodGet, ts.URL+"/public/transparency?date=2025-09-04", nil, ""))
		if len(entries) != 1 {
			t.Fatalf("expected 1 entry, got %d", len(entries))
		}
		if entries[0].Description != core.DuesPublicLabel {
			t.Errorf("description = %q, member identity must not leak", entries[0].Description)
		}
	})
}

func TestExportRecap(t *testing.T) {
	_, ts := newTestServer(t)

	resp := doJSON(t, http.MethodGet, ts.URL+"/export/recap?year=2025", nil, testToken)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Errorf("content type = %q", ct)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil || len(data) == 0 {
		t.Errorf("empty workbook body (err=%v)", err)
	}
}

func TestRequestIDHeader(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz failed: %v", err)
	}
	resp.Body.Close()
	if resp.Header.Get("X-Request-Id") == "" {
		t.Error("responses should carry a request id")
	}
}
