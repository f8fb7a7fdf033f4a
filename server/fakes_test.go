package server

import (
	"context"
	"sync"
	"time"

	"github.com/User-Emin/kattenbak-sub003/internal/db"
	"github.com/User-Emin/kattenbak-sub003/internal/models"
	"github.com/User-Emin/kattenbak-sub003/internal/payments"
	"github.com/User-Emin/kattenbak-sub003/internal/queue"
)

// memOrderStore keeps orders in memory for routing tests.
type memOrderStore struct {
	mu        sync.Mutex
	orders    map[string]*models.Order
	byPayment map[string]string
}

func newMemOrderStore(orders ...*models.Order) *memOrderStore {
	s := &memOrderStore{
		orders:    make(map[string]*models.Order),
		byPayment: make(map[string]string),
	}
	for _, order := range orders {
		s.orders[order.ID] = order
		if order.Payment != nil {
			s.byPayment[order.Payment.ProviderPaymentID] = order.ID
		}
	}
	return s
}

func cloneOrder(order *models.Order) *models.Order {
	out := *order
	out.Items = append([]models.OrderItem(nil), order.Items...)
	if order.Payment != nil {
		p := *order.Payment
		out.Payment = &p
	}
	return &out
}

func (s *memOrderStore) Create(_ context.Context, order *db.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[order.ID] = cloneOrder(order)
	return nil
}

func (s *memOrderStore) GetByID(_ context.Context, id string) (*db.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return cloneOrder(order), nil
}

func (s *memOrderStore) List(_ context.Context, _ db.OrderFilter) ([]*db.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*db.Order, 0, len(s.orders))
	for _, order := range s.orders {
		out = append(out, cloneOrder(order))
	}
	return out, nil
}

func (s *memOrderStore) Update(_ context.Context, id string, update db.OrderUpdate) (*db.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	if update.Status != nil {
		order.Status = *update.Status
	}
	if update.PaymentStatus != nil {
		order.PaymentStatus = *update.PaymentStatus
	}
	if update.TrackingNumber != nil {
		order.TrackingNumber = *update.TrackingNumber
	}
	if update.TrackingURL != nil {
		order.TrackingURL = *update.TrackingURL
	}
	if update.Carrier != nil {
		order.Carrier = *update.Carrier
	}
	return cloneOrder(order), nil
}

func (s *memOrderStore) MarkProcessing(_ context.Context, orderID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok || order.Status != models.StatusPending {
		return false, nil
	}
	order.Status = models.StatusProcessing
	return true, nil
}

func (s *memOrderStore) AttachPayment(_ context.Context, payment *db.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[payment.OrderID]
	if !ok {
		return db.ErrNotFound
	}
	p := *payment
	order.Payment = &p
	s.byPayment[p.ProviderPaymentID] = order.ID
	return nil
}

func (s *memOrderStore) SetPaymentStatus(_ context.Context, providerPaymentID, providerStatus string, status models.PaymentStatus) (db.PaymentTransition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byPayment[providerPaymentID]
	if !ok {
		return db.PaymentTransition{}, db.ErrNotFound
	}
	order := s.orders[id]
	transition := db.PaymentTransition{OrderID: id, Previous: order.PaymentStatus, Current: status}
	order.PaymentStatus = status
	order.Payment.ProviderStatus = providerStatus
	// Same as the Postgres store: a paid write also leaves pending.
	if status == models.PaymentPaid && order.Status == models.StatusPending {
		order.Status = models.StatusProcessing
		transition.MovedToProcessing = true
	}
	return transition, nil
}

type memReturnStore struct {
	mu      sync.Mutex
	returns map[string]*models.Return
}

func newMemReturnStore(returns ...*models.Return) *memReturnStore {
	s := &memReturnStore{returns: make(map[string]*models.Return)}
	for _, ret := range returns {
		s.returns[ret.ID] = ret
	}
	return s
}

func (s *memReturnStore) Create(_ context.Context, ret *db.Return) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := *ret
	s.returns[r.ID] = &r
	return nil
}

func (s *memReturnStore) GetByID(_ context.Context, id string) (*db.Return, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ret, ok := s.returns[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	r := *ret
	return &r, nil
}

func (s *memReturnStore) List(context.Context, db.ReturnFilter) ([]*db.Return, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*db.Return, 0, len(s.returns))
	for _, ret := range s.returns {
		r := *ret
		out = append(out, &r)
	}
	return out, nil
}

func (s *memReturnStore) UpdateStatus(_ context.Context, id string, update db.ReturnStatusUpdate) (*db.Return, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ret, ok := s.returns[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	ret.Status = update.Status
	ret.UpdatedAt = update.UpdatedAt
	if update.AdminNotes != nil {
		ret.AdminNotes = *update.AdminNotes
	}
	if update.ApprovedAt != nil && ret.ApprovedAt == nil {
		t := *update.ApprovedAt
		ret.ApprovedAt = &t
	}
	if update.RefundedAt != nil && ret.RefundedAt == nil {
		t := *update.RefundedAt
		ret.RefundedAt = &t
	}
	r := *ret
	return &r, nil
}

func (s *memReturnStore) ExistsOpenForOrder(_ context.Context, orderID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ret := range s.returns {
		if ret.OrderID == orderID && ret.Status.Open() {
			return true, nil
		}
	}
	return false, nil
}

// stubGateway answers GetPayment from a fixed status table.
type stubGateway struct {
	mu       sync.Mutex
	statuses map[string]string
	orderIDs map[string]string
}

func (g *stubGateway) CreatePayment(context.Context, payments.CreatePaymentInput) (*payments.Payment, error) {
	return nil, payments.ErrGatewayUnavailable
}

func (g *stubGateway) GetPayment(_ context.Context, id string) (*payments.Payment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	status, ok := g.statuses[id]
	if !ok {
		return nil, payments.ErrPaymentNotFound
	}
	return &payments.Payment{ID: id, Status: status, OrderID: g.orderIDs[id], CreatedAt: time.Now()}, nil
}

func (g *stubGateway) ListMethods(context.Context) ([]payments.Method, error) {
	return []payments.Method{{ID: "ideal", Description: "iDEAL"}}, nil
}

// inlineQueue runs each job as it is enqueued, so a webhook request has been
// reconciled by the time the response is written.
type inlineQueue struct {
	handler queue.Handler
	mu      sync.Mutex
	jobs    []queue.Job
}

func (q *inlineQueue) Enqueue(ctx context.Context, job queue.Job) error {
	q.mu.Lock()
	q.jobs = append(q.jobs, job)
	q.mu.Unlock()
	// Reconciliation errors stay on the worker side.
	_ = q.handler(context.WithoutCancel(ctx), job)
	return nil
}

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }
