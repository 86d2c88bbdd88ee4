// Package http is the JSON API over the treasury services. Treasurer routes
// are gated by a bearer token that grants the capability context; public
// routes expose only the anonymized transparency projection and health.
package http

import (
	"context"
	"net/http"
	"time"

	"kas/internal/cache"
	"kas/internal/core"
	"kas/internal/middleware/ratelimit"
	"kas/internal/middleware/trace"
	"kas/internal/services"
)

type Server struct {
	http.Server
	budget   *services.BudgetService
	ledger   *services.LedgerService
	registry *services.RegistryService
	report   *services.ReportService
	dues     *services.DuesService
	limiter  *ratelimit.Limiter
	apiToken string
	tz       *time.Location

	// feedCache absorbs repeated public transparency reads; any authorized
	// mutation purges it.
	feedCache *cache.LRUCache[[]core.TransparencyEntry]
}

// NewServer wires routes and middleware, returning a ready-to-run server.
// Everything except health checks and the anonymized transparency feed is a
// treasurer route: reads included, since raw ledger rows carry member
// identities that only the public projection may expose.
func NewServer(addr, apiToken string, tz *time.Location,
	budget *services.BudgetService,
	ledger *services.LedgerService,
	registry *services.RegistryService,
	report *services.ReportService,
	dues *services.DuesService,
) *Server {
	mux := http.NewServeMux()

	s := &Server{
		budget:   budget,
		ledger:   ledger,
		registry: registry,
		report:   report,
		dues:     dues,
		limiter:  ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		apiToken: apiToken,
		tz:       tz,

		feedCache: cache.NewLRUCache[[]core.TransparencyEntry](64, time.Minute),
	}

	// Public surface.
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)
	mux.HandleFunc("GET /public/transparency", s.handleTransparency)

	// Budget plans.
	mux.HandleFunc("GET /plans", s.withAuth(s.handleListPlans))
	mux.HandleFunc("POST /plans", s.withAuth(s.handleCreatePlan))
	mux.HandleFunc("GET /plans/{id}", s.withAuth(s.handleGetPlan))
	mux.HandleFunc("DELETE /plans/{id}", s.withAuth(s.handleDeletePlan))
	mux.HandleFunc("POST /plans/{id}/items", s.withAuth(s.handleAddItem))
	mux.HandleFunc("PUT /items/{id}", s.withAuth(s.handleUpdateItem))
	mux.HandleFunc("DELETE /items/{id}", s.withAuth(s.handleDeleteItem))
	mux.HandleFunc("POST /plans/reconcile", s.withAuth(s.handleReconcile))

	// Ledger.
	mux.HandleFunc("GET /incomes", s.withAuth(s.handleListIncomes))
	mux.HandleFunc("GET /incomes/{id}", s.withAuth(s.handleGetIncome))
	mux.HandleFunc("POST /incomes", s.withAuth(s.handleRecordIncome))
	mux.HandleFunc("PUT /incomes/{id}", s.withAuth(s.handleUpdateIncome))
	mux.HandleFunc("DELETE /incomes/{id}", s.withAuth(s.handleDeleteIncome))
	mux.HandleFunc("GET /expenses", s.withAuth(s.handleListExpenses))
	mux.HandleFunc("GET /expenses/{id}", s.withAuth(s.handleGetExpense))
	mux.HandleFunc("POST /expenses", s.withAuth(s.handleRecordExpense))
	mux.HandleFunc("PUT /expenses/{id}", s.withAuth(s.handleUpdateExpense))
	mux.HandleFunc("DELETE /expenses/{id}", s.withAuth(s.handleDeleteExpense))
	mux.HandleFunc("GET /days", s.withAuth(s.handleListDays))

	// Registries.
	mux.HandleFunc("GET /categories", s.withAuth(s.handleListCategories))
	mux.HandleFunc("POST /categories", s.withAuth(s.handleCreateCategory))
	mux.HandleFunc("DELETE /categories/{id}", s.withAuth(s.handleDeleteCategory))
	mux.HandleFunc("GET /payment-methods", s.withAuth(s.handleListPaymentMethods))
	mux.HandleFunc("POST /payment-methods", s.withAuth(s.handleCreatePaymentMethod))
	mux.HandleFunc("PUT /payment-methods/{id}/active", s.withAuth(s.handleSetPaymentMethodActive))
	mux.HandleFunc("DELETE /payment-methods/{id}", s.withAuth(s.handleDeletePaymentMethod))

	// Dues.
	mux.HandleFunc("GET /dues", s.withAuth(s.handleDuesStatus))
	mux.HandleFunc("POST /dues/pay", s.withAuth(s.handleDuesPay))
	mux.HandleFunc("DELETE /dues/{incomeID}", s.withAuth(s.handleDuesUndo))
	mux.HandleFunc("GET /dues/unpaid", s.withAuth(s.handleUnpaidMembers))

	// Reports.
	mux.HandleFunc("GET /reports/overview", s.withAuth(s.handleOverview))
	mux.HandleFunc("GET /reports/monthly", s.withAuth(s.handleMonthlyStats))
	mux.HandleFunc("GET /reports/by-category", s.withAuth(s.handleGroupedByCategory))
	mux.HandleFunc("GET /export/recap", s.withAuth(s.handleExportRecap))
	mux.HandleFunc("POST /transparency/publish", s.withAuth(s.handlePublishTransparency))

	var handler http.Handler = mux
	handler = s.limiter.Middleware(clientIP)(handler)
	handler = withSecurityHeaders(handler)
	handler = trace.Middleware(clientIP)(handler)

	s.Server = http.Server{Addr: addr, Handler: handler}
	return s
}

// Shutdown drains in-flight requests and stops the limiter's cleanup loop.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.Server.Shutdown(ctx)
}

func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
