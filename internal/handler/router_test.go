package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ivision/agency-books/internal/domain"
	"github.com/ivision/agency-books/internal/handler"
	"github.com/ivision/agency-books/internal/infra/kv"
	"github.com/ivision/agency-books/internal/infra/notify"
	"github.com/ivision/agency-books/internal/infra/observability"
	"github.com/ivision/agency-books/internal/service"
	"github.com/ivision/agency-books/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// --- Mocks ---

type stubSummarizer struct {
	mu    sync.Mutex
	calls int
	text  string
	err   error
}

func (s *stubSummarizer) Summarize(context.Context, []domain.Transaction) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.text, nil
}

func (s *stubSummarizer) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *stubSummarizer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type pingFailKV struct {
	*kv.Memory
}

func (pingFailKV) Ping(context.Context) error { return errors.New("disk gone") }

// --- Fixture ---

type app struct {
	router     http.Handler
	controller *service.RefreshController
	sink       *notify.Sink
	summarizer *stubSummarizer
}

func newApp(t *testing.T) *app {
	t.Helper()

	backend := kv.NewMemory()
	metrics := observability.NewMetrics()
	logger := zap.NewNop()

	a := &app{summarizer: &stubSummarizer{text: "Bonne santé financière."}}
	a.sink = notify.NewSink(time.Minute, metrics, logger)
	t.Cleanup(a.sink.Close)

	analysis := store.NewAnalysisCache(backend, metrics, logger)
	transactions := store.NewTransactionStore(backend, analysis, metrics, logger)
	a.controller = service.NewRefreshController(transactions, analysis, a.summarizer, a.sink, metrics, logger)
	t.Cleanup(a.controller.Wait)
	ledger := service.NewLedgerService(transactions, a.controller, a.sink, time.UTC, metrics, logger)

	a.router = handler.NewRouter(ledger, a.controller, a.sink, backend, metrics, logger)
	return a
}

func (a *app) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

// --- Operational ---

func TestHealthz(t *testing.T) {
	a := newApp(t)

	rec := a.do(t, http.MethodGet, "/healthz", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	health := decode[domain.HealthStatus](t, rec)
	if health.Status != "healthy" || len(health.Services) != 2 {
		t.Errorf("unexpected health %+v", health)
	}
}

func TestHealthz_StoreDown(t *testing.T) {
	metrics := observability.NewMetrics()
	router := handler.NewRouter(nil, nil, nil, pingFailKV{kv.NewMemory()}, metrics, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestReadyz(t *testing.T) {
	router := handler.NewRouter(nil, nil, nil, nil, observability.NewMetrics(), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	a := newApp(t)
	a.do(t, http.MethodPost, "/v1/transactions", `{"type":"INCOME","amount":"1000","category":"Graphic Design"}`)
	a.controller.Wait()

	rec := a.do(t, http.MethodGet, "/metrics", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "books_store_mutations_total") {
		t.Error("expected store mutation counter in exposition")
	}
}

// --- Ledger ---

func TestCreateTransaction(t *testing.T) {
	a := newApp(t)

	rec := a.do(t, http.MethodPost, "/v1/transactions",
		`{"type":"INCOME","amount":25000,"category":"Graphic Design","clientName":"Pizzeria Roma"}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	created := decode[domain.TransactionCreated](t, rec)
	if created.Transaction.Description != "Graphic Design - Pizzeria Roma" {
		t.Errorf("unexpected description %q", created.Transaction.Description)
	}
	if !created.Transaction.Amount.Equal(decimal.NewFromInt(25000)) {
		t.Errorf("unexpected amount %s", created.Transaction.Amount)
	}
	if len(created.Transactions) != 1 {
		t.Errorf("expected 1 transaction, got %d", len(created.Transactions))
	}
}

func TestCreateTransaction_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"type":`},
		{"unknown kind", `{"type":"GIFT","amount":"10"}`},
		{"negative amount", `{"type":"EXPENSE","amount":"-5"}`},
		{"missing amount", `{"type":"EXPENSE"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newApp(t)

			rec := a.do(t, http.MethodPost, "/v1/transactions", tt.body)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
			list := decode[[]domain.Transaction](t, a.do(t, http.MethodGet, "/v1/transactions", ""))
			if len(list) != 0 {
				t.Errorf("expected empty ledger, got %d", len(list))
			}
		})
	}
}

func TestDeleteTransaction(t *testing.T) {
	a := newApp(t)
	created := decode[domain.TransactionCreated](t, a.do(t, http.MethodPost, "/v1/transactions",
		`{"type":"EXPENSE","amount":"3000","category":"Logiciels"}`))

	rec := a.do(t, http.MethodDelete, "/v1/transactions/"+created.Transaction.ID, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	list := decode[[]domain.Transaction](t, a.do(t, http.MethodGet, "/v1/transactions", ""))
	if len(list) != 0 {
		t.Errorf("expected empty ledger, got %d", len(list))
	}
}

func TestDeleteTransaction_UnknownIDIsNoContent(t *testing.T) {
	a := newApp(t)

	rec := a.do(t, http.MethodDelete, "/v1/transactions/does-not-exist", "")

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}

func TestClearTransactions(t *testing.T) {
	a := newApp(t)
	a.do(t, http.MethodPost, "/v1/transactions", `{"type":"INCOME","amount":"1","category":"x"}`)
	a.controller.Wait()

	rec := a.do(t, http.MethodDelete, "/v1/transactions", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	status := decode[domain.AnalysisStatus](t, a.do(t, http.MethodGet, "/v1/analysis", ""))
	if status.HasSummary {
		t.Error("expected analysis cleared")
	}
}

func TestCatalog(t *testing.T) {
	a := newApp(t)

	catalog := decode[domain.Catalog](t, a.do(t, http.MethodGet, "/v1/catalog", ""))

	if len(catalog.Services) == 0 || len(catalog.ExpenseCategories) == 0 {
		t.Errorf("expected presets, got %+v", catalog)
	}
}

// --- Derived views ---

func TestDashboardAndStats(t *testing.T) {
	a := newApp(t)
	a.do(t, http.MethodPost, "/v1/transactions", `{"type":"INCOME","amount":"40000","category":"Réels & Vidéos"}`)
	a.do(t, http.MethodPost, "/v1/transactions", `{"type":"EXPENSE","amount":"15000.50","category":"Loyer"}`)

	dash := decode[domain.Dashboard](t, a.do(t, http.MethodGet, "/v1/dashboard", ""))
	if !dash.Totals.Balance.Equal(decimal.RequireFromString("24999.50")) {
		t.Errorf("unexpected balance %s", dash.Totals.Balance)
	}

	totals := decode[domain.Totals](t, a.do(t, http.MethodGet, "/v1/stats/totals", ""))
	if totals.Count != 2 {
		t.Errorf("expected count 2, got %d", totals.Count)
	}

	monthly := decode[[]domain.MonthlyPoint](t, a.do(t, http.MethodGet, "/v1/stats/monthly", ""))
	if len(monthly) != 1 {
		t.Errorf("expected 1 month, got %d", len(monthly))
	}

	categories := decode[[]domain.CategorySlice](t, a.do(t, http.MethodGet, "/v1/stats/categories", ""))
	if len(categories) != 1 || categories[0].Name != "Loyer" {
		t.Errorf("unexpected categories %+v", categories)
	}
}

// --- Analysis ---

func TestAnalysisRefresh(t *testing.T) {
	a := newApp(t)
	a.do(t, http.MethodPost, "/v1/transactions", `{"type":"INCOME","amount":"1000","category":"Graphic Design"}`)
	a.controller.Wait()

	rec := a.do(t, http.MethodPost, "/v1/analysis/refresh", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := decode[map[string]string](t, rec)["summary"]; got != "Bonne santé financière." {
		t.Errorf("unexpected summary %q", got)
	}

	status := decode[domain.AnalysisStatus](t, a.do(t, http.MethodGet, "/v1/analysis", ""))
	if !status.HasSummary || status.Summary != "Bonne santé financière." || status.LastRefreshedAt == nil {
		t.Errorf("unexpected status %+v", status)
	}
}

func TestAnalysisRefresh_EmptyLedger(t *testing.T) {
	a := newApp(t)

	rec := a.do(t, http.MethodPost, "/v1/analysis/refresh", "")

	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
	if a.summarizer.callCount() != 0 {
		t.Errorf("expected no summarizer call, got %d", a.summarizer.callCount())
	}
}

func TestAnalysisRefresh_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"unavailable", domain.ErrSummarizerUnavailable, http.StatusServiceUnavailable},
		{"circuit open", &domain.ErrCircuitOpen{Service: "gemini"}, http.StatusServiceUnavailable},
		{"timeout", &domain.ErrTimeout{Operation: "summarize"}, http.StatusGatewayTimeout},
		{"remote failure", &domain.ErrExternalService{Service: "gemini", Err: domain.ErrSummarizerUnavailable}, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newApp(t)
			a.do(t, http.MethodPost, "/v1/transactions", `{"type":"INCOME","amount":"1","category":"x"}`)
			a.controller.Wait()
			a.summarizer.fail(tt.err)

			rec := a.do(t, http.MethodPost, "/v1/analysis/refresh", "")

			if rec.Code != tt.status {
				t.Errorf("expected %d, got %d", tt.status, rec.Code)
			}
		})
	}
}

func TestListTransactions_Search(t *testing.T) {
	a := newApp(t)
	for _, body := range []string{
		`{"type":"INCOME","amount":"25000","category":"Graphic Design","clientName":"Pizzeria Roma"}`,
		`{"type":"EXPENSE","amount":"15000","category":"Loyer","description":"Loyer bureau Alger","clientName":"ignored"}`,
		`{"type":"INCOME","amount":"40000","category":"Réels & Vidéos","description":"Campagne été","clientName":"Café Atlas"}`,
	} {
		if rec := a.do(t, http.MethodPost, "/v1/transactions", body); rec.Code != http.StatusCreated {
			t.Fatalf("create: expected 201, got %d", rec.Code)
		}
	}

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"no query", "", []string{"Réels & Vidéos", "Loyer", "Graphic Design"}},
		{"empty term", "?q=", []string{"Réels & Vidéos", "Loyer", "Graphic Design"}},
		{"client name case insensitive", "?q=PIZZERIA", []string{"Graphic Design"}},
		{"description", "?q=bureau", []string{"Loyer"}},
		{"expense client dropped", "?q=ignored", []string{}},
		{"no match", "?q=zzz", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := a.do(t, http.MethodGet, "/v1/transactions"+tt.query, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
			if len(tt.want) == 0 && strings.TrimSpace(rec.Body.String()) != "[]" {
				t.Fatalf("expected empty JSON array, got %q", rec.Body.String())
			}

			list := decode[[]domain.Transaction](t, rec)
			got := make([]string, len(list))
			for i, tx := range list {
				got[i] = tx.Category
			}
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

// --- Notifications ---

func TestNotifications_ListAndDismiss(t *testing.T) {
	a := newApp(t)
	a.do(t, http.MethodPost, "/v1/transactions", `{"type":"INCOME","amount":"1","category":"x"}`)
	a.controller.Wait()

	list := decode[[]domain.Notification](t, a.do(t, http.MethodGet, "/v1/notifications", ""))
	if len(list) != 2 {
		t.Fatalf("expected saved + analysis notifications, got %+v", list)
	}
	if list[0].Message != service.MsgAnalysisAvailable || list[1].Message != service.MsgTransactionSaved {
		t.Errorf("unexpected order %+v", list)
	}

	rec := a.do(t, http.MethodDelete, "/v1/notifications/"+list[0].ID, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if got := len(a.sink.Active()); got != 1 {
		t.Errorf("expected 1 remaining, got %d", got)
	}
}

func TestNotifications_DismissUnknown(t *testing.T) {
	a := newApp(t)

	rec := a.do(t, http.MethodDelete, "/v1/notifications/does-not-exist", "")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	body := decode[map[string]string](t, rec)
	if !strings.Contains(body["error"], "notification not found") {
		t.Errorf("unexpected error body %+v", body)
	}
}

func TestAnalysisMetrics(t *testing.T) {
	a := newApp(t)
	a.do(t, http.MethodPost, "/v1/transactions", `{"type":"INCOME","amount":"1","category":"x"}`)
	a.controller.Wait()

	snap := decode[domain.AnalysisMetrics](t, a.do(t, http.MethodGet, "/v1/metrics/analysis", ""))

	if snap.RefreshesByTrigger["add"] != 1 {
		t.Errorf("expected one add refresh, got %+v", snap.RefreshesByTrigger)
	}
}
