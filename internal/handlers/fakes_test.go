package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/User-Emin/kattenbak-sub003/internal/auth"
	"github.com/User-Emin/kattenbak-sub003/internal/config"
	"github.com/User-Emin/kattenbak-sub003/internal/models"
	"github.com/User-Emin/kattenbak-sub003/internal/payments"
	"github.com/User-Emin/kattenbak-sub003/internal/queue"
	"github.com/User-Emin/kattenbak-sub003/internal/ratelimit"
	"github.com/User-Emin/kattenbak-sub003/internal/services"
)

const (
	testAdminEmail    = "admin@kattenbak.nl"
	testAdminPassword = "correct-horse-battery"
)

type recordingQueue struct {
	mu   sync.Mutex
	jobs []queue.Job
	err  error
}

func (q *recordingQueue) Enqueue(_ context.Context, job queue.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *recordingQueue) count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error {
	return p.err
}

type failingLimiter struct{}

func (failingLimiter) Check(context.Context, string, ratelimit.Config) (ratelimit.Result, error) {
	return ratelimit.Result{}, errors.New("redis: connection refused")
}

type fakeOrders struct {
	orders  map[string]*models.Order
	updated *services.UpdateOrderInput
	err     error
}

func (f *fakeOrders) List(context.Context, services.ListOrdersInput) ([]*models.Order, error) {
	out := make([]*models.Order, 0, len(f.orders))
	for _, order := range f.orders {
		out = append(out, order)
	}
	return out, f.err
}

func (f *fakeOrders) Get(_ context.Context, id string) (*models.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, services.ErrNotFound
	}
	return order, nil
}

func (f *fakeOrders) Update(_ context.Context, id string, input services.UpdateOrderInput) (*models.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	order, ok := f.orders[id]
	if !ok {
		return nil, services.ErrNotFound
	}
	f.updated = &input
	if input.Status != nil {
		order.Status = models.OrderStatus(*input.Status)
	}
	return order, nil
}

type fakeReturns struct {
	created *services.CreateReturnInput
	updated *services.UpdateReturnInput
	err     error
}

func (f *fakeReturns) Create(_ context.Context, input services.CreateReturnInput) (*models.Return, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = &input
	return &models.Return{ID: "RET-1", OrderID: input.OrderID, Status: models.ReturnRequested, Items: input.Items}, nil
}

func (f *fakeReturns) Get(_ context.Context, id string) (*models.Return, error) {
	return nil, services.ErrNotFound
}

func (f *fakeReturns) List(context.Context, services.ListReturnsInput) ([]*models.Return, error) {
	return []*models.Return{}, nil
}

func (f *fakeReturns) UpdateStatus(_ context.Context, id string, input services.UpdateReturnInput) (*models.Return, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.updated = &input
	now := time.Now().UTC()
	return &models.Return{ID: id, Status: models.ReturnStatus(input.Status), ApprovedAt: &now}, nil
}

type fakeCheckout struct {
	input  *services.CheckoutInput
	result *services.CheckoutResult
	err    error
}

func (f *fakeCheckout) Checkout(_ context.Context, input services.CheckoutInput) (*services.CheckoutResult, error) {
	f.input = &input
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeCheckout) PaymentMethods(context.Context) ([]payments.Method, error) {
	return []payments.Method{{ID: "ideal", Description: "iDEAL"}}, f.err
}

func (f *fakeCheckout) OrderStatus(_ context.Context, orderID, email string) (*services.OrderStatusView, error) {
	if f.err != nil {
		return nil, f.err
	}
	if email != "jan@example.nl" {
		return nil, services.ErrNotFound
	}
	return &services.OrderStatusView{OrderID: orderID, Status: models.StatusPending, PaymentStatus: models.PaymentPending}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		RateLimitMax:         100,
		RateLimitWindow:      15 * time.Minute,
		LoginRateLimitMax:    5,
		LoginRateLimitWindow: 15 * time.Minute,
	}
}

func newTestAuthenticator(t *testing.T) *auth.Authenticator {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testAdminPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	a, err := auth.NewAuthenticator(auth.Config{
		Secret:            "0123456789abcdef0123456789abcdef",
		TTL:               time.Hour,
		AdminEmail:        testAdminEmail,
		AdminPasswordHash: string(hash),
	})
	if err != nil {
		t.Fatalf("failed to create authenticator: %v", err)
	}
	return a
}

func adminToken(t *testing.T, a *auth.Authenticator) string {
	t.Helper()
	token, err := a.Issue(testAdminEmail, auth.RoleAdmin)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	return token.Token
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

type testEnvelope struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data"`
	Error   string            `json:"error"`
	Fields  map[string]string `json:"fields"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) testEnvelope {
	t.Helper()
	var env testEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return env
}
