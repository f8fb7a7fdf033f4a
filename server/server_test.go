package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/User-Emin/kattenbak-sub003/internal/auth"
	"github.com/User-Emin/kattenbak-sub003/internal/cache"
	"github.com/User-Emin/kattenbak-sub003/internal/config"
	"github.com/User-Emin/kattenbak-sub003/internal/handlers"
	"github.com/User-Emin/kattenbak-sub003/internal/logging"
	"github.com/User-Emin/kattenbak-sub003/internal/models"
	"github.com/User-Emin/kattenbak-sub003/internal/ratelimit"
	"github.com/User-Emin/kattenbak-sub003/internal/services"
)

const (
	testAdminEmail    = "admin@kattenbak.nl"
	testAdminPassword = "correct-horse-battery"
)

type testServer struct {
	handler http.Handler
	orders  *memOrderStore
	returns *memReturnStore
	gateway *stubGateway
	queue   *inlineQueue
	token   string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{
		Port:                 "0",
		AllowedOrigins:       []string{"http://localhost:3000"},
		RateLimitMax:         100,
		RateLimitWindow:      15 * time.Minute,
		LoginRateLimitMax:    5,
		LoginRateLimitWindow: 15 * time.Minute,
	}
	logger := logging.Discard()

	orders := newMemOrderStore(&models.Order{
		ID:            "ORD-1",
		OrderNumber:   "KB-20261016-0001",
		CustomerEmail: "jan@example.nl",
		CustomerName:  "Jan Jansen",
		Items:         []models.OrderItem{{ID: "item-1", OrderID: "ORD-1", ProductName: "Kattenbak Classic", Quantity: 1, UnitPriceCents: 4999}},
		SubtotalCents: 4999,
		TotalCents:    4999,
		Status:        models.StatusPending,
		PaymentStatus: models.PaymentPending,
		Payment:       &models.Payment{OrderID: "ORD-1", ProviderPaymentID: "tr_abc", ProviderStatus: "open", AmountCents: 4999},
	})
	returns := newMemReturnStore(&models.Return{
		ID:      "RET-1",
		OrderID: "ORD-1",
		Reason:  "te klein",
		Status:  models.ReturnRequested,
	})
	gateway := &stubGateway{
		statuses: map[string]string{"tr_abc": "paid"},
		orderIDs: map[string]string{"tr_abc": "ORD-1"},
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(testAdminPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	authenticator, err := auth.NewAuthenticator(auth.Config{
		Secret:            "0123456789abcdef0123456789abcdef",
		TTL:               time.Hour,
		AdminEmail:        testAdminEmail,
		AdminPasswordHash: string(hash),
	})
	if err != nil {
		t.Fatalf("failed to create authenticator: %v", err)
	}
	token, err := authenticator.Issue(testAdminEmail, auth.RoleAdmin)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}

	cacheProvider, err := cache.NewMemoryProvider()
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	t.Cleanup(func() { _ = cacheProvider.Close() })

	reconciler := services.NewReconciliationService(orders, gateway, nil, logger)
	jobs := &inlineQueue{handler: reconciler.HandleJob}

	h, err := handlers.New(handlers.Dependencies{
		Config:   cfg,
		DB:       okPinger{},
		Orders:   services.NewOrderService(orders, nil, logger),
		Returns:  services.NewReturnService(returns, orders, nil, logger),
		Checkout: services.NewCheckoutService(orders, nil, gateway, nil, cacheProvider, services.CheckoutConfig{}, logger),
		Catalog:  services.NewCatalogService(nil, cacheProvider, logger),
		Auth:     authenticator,
		Limiter:  ratelimit.NewMemoryLimiter(),
		Queue:    jobs,
		Logger:   logger,
	})
	if err != nil {
		t.Fatalf("failed to create handlers: %v", err)
	}

	srv, err := New(cfg, logger, h)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	return &testServer{
		handler: srv.Handler(),
		orders:  orders,
		returns: returns,
		gateway: gateway,
		queue:   jobs,
		token:   token.Token,
	}
}

func (ts *testServer) do(t *testing.T, method, target string, body any, authenticated bool) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.10:51234"
	if authenticated {
		req.Header.Set("Authorization", "Bearer "+ts.token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return env
}

func TestNewRequiresDependencies(t *testing.T) {
	if _, err := New(nil, logging.Discard(), &handlers.Handlers{}); err == nil {
		t.Fatal("expected error for missing config")
	}
	if _, err := New(&config.Config{}, nil, &handlers.Handlers{}); err == nil {
		t.Fatal("expected error for missing logger")
	}
	if _, err := New(&config.Config{}, logging.Discard(), nil); err == nil {
		t.Fatal("expected error for missing handlers")
	}
}

func TestMollieWebhookReconcilesOrder(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/mollie", strings.NewReader("id=tr_abc"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(ts.queue.jobs) != 1 || ts.queue.jobs[0].PaymentID != "tr_abc" {
		t.Fatalf("expected one job for tr_abc, got %+v", ts.queue.jobs)
	}

	rec = ts.do(t, http.MethodGet, "/orders/ORD-1", nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var order models.Order
	if err := json.Unmarshal(decode(t, rec).Data, &order); err != nil {
		t.Fatalf("failed to decode order: %v", err)
	}
	if order.PaymentStatus != models.PaymentPaid {
		t.Fatalf("expected payment status paid, got %q", order.PaymentStatus)
	}
	if order.Status != models.StatusProcessing {
		t.Fatalf("expected order status processing, got %q", order.Status)
	}
	if order.Payment == nil || order.Payment.ProviderStatus != "paid" {
		t.Fatalf("expected provider status paid, got %+v", order.Payment)
	}
}

func TestMollieWebhookUnknownPaymentStillAcknowledged(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/mollie", strings.NewReader("id=tr_unknown"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	order, err := ts.orders.GetByID(req.Context(), "ORD-1")
	if err != nil {
		t.Fatalf("failed to load order: %v", err)
	}
	if order.PaymentStatus != models.PaymentPending {
		t.Fatalf("expected order untouched, got %q", order.PaymentStatus)
	}
}

func TestUpdateReturnApproves(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPut, "/returns/RET-1", map[string]any{"status": "APPROVED", "adminNotes": "ok"}, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var ret models.Return
	if err := json.Unmarshal(decode(t, rec).Data, &ret); err != nil {
		t.Fatalf("failed to decode return: %v", err)
	}
	if ret.Status != models.ReturnApproved {
		t.Fatalf("expected APPROVED, got %q", ret.Status)
	}
	if ret.ApprovedAt == nil {
		t.Fatal("expected approvedAt to be set")
	}
	if ret.AdminNotes != "ok" {
		t.Fatalf("expected admin notes, got %q", ret.AdminNotes)
	}
}

func TestAdminRoutesServedWithAndWithoutPrefix(t *testing.T) {
	ts := newTestServer(t)

	for _, target := range []string{"/orders", "/api/orders", "/returns", "/api/returns", "/api/orders/ORD-1"} {
		rec := ts.do(t, http.MethodGet, target, nil, true)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d: %s", target, rec.Code, rec.Body.String())
		}
	}
}

func TestAdminRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t)

	for _, tc := range []struct {
		method string
		target string
	}{
		{http.MethodGet, "/orders"},
		{http.MethodGet, "/api/orders/ORD-1"},
		{http.MethodPut, "/returns/RET-1"},
		{http.MethodPost, "/api/admin/categories"},
	} {
		rec := ts.do(t, tc.method, tc.target, map[string]any{}, false)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401, got %d", tc.method, tc.target, rec.Code)
		}
		if env := decode(t, rec); env.Success {
			t.Fatalf("%s %s: expected failure envelope", tc.method, tc.target)
		}
	}
}

func TestUnknownRouteReturnsJSON404(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/does-not-exist", nil, false)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if env := decode(t, rec); env.Success || env.Error == "" {
		t.Fatalf("expected error envelope, got %+v", env)
	}
}

func TestPaymentMethodsRoute(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/payment-methods", nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-RateLimit-Limit") != "100" {
		t.Fatalf("expected rate limit header, got %q", rec.Header().Get("X-RateLimit-Limit"))
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("expected security headers")
	}
}

func TestHealthRoute(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/health", nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-RateLimit-Limit") != "" {
		t.Fatal("health must not be rate limited")
	}
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/orders", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("expected allowed origin, got %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/orders", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec = httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no allowed origin for foreign site, got %q", got)
	}
}
