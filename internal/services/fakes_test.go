package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/User-Emin/kattenbak-sub003/internal/db"
	"github.com/User-Emin/kattenbak-sub003/internal/models"
	"github.com/User-Emin/kattenbak-sub003/internal/payments"
)

type fakeOrderStore struct {
	mu        sync.Mutex
	orders    map[string]*models.Order
	byPayment map[string]string
	nextID    int
	createErr error
	// markErr fails the next MarkProcessing call, then clears itself.
	markErr error
}

func newFakeOrderStore(orders ...*models.Order) *fakeOrderStore {
	s := &fakeOrderStore{
		orders:    make(map[string]*models.Order),
		byPayment: make(map[string]string),
	}
	for _, order := range orders {
		s.put(order)
	}
	return s
}

func (s *fakeOrderStore) put(order *models.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := copyOrder(order)
	s.orders[stored.ID] = stored
	if stored.Payment != nil {
		s.byPayment[stored.Payment.ProviderPaymentID] = stored.ID
	}
}

func (s *fakeOrderStore) get(id string) *models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyOrder(s.orders[id])
}

func (s *fakeOrderStore) Create(_ context.Context, order *db.Order) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	if order.ID == "" {
		order.ID = fmt.Sprintf("order-%d", s.nextID)
	}
	for i := range order.Items {
		if order.Items[i].ID == "" {
			order.Items[i].ID = fmt.Sprintf("%s-item-%d", order.ID, i+1)
		}
		order.Items[i].OrderID = order.ID
	}
	s.orders[order.ID] = copyOrder(order)
	return nil
}

func (s *fakeOrderStore) GetByID(_ context.Context, id string) (*db.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return copyOrder(order), nil
}

func (s *fakeOrderStore) List(_ context.Context, filter db.OrderFilter) ([]*db.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*db.Order, 0, len(s.orders))
	for _, order := range s.orders {
		if filter.Status != "" && order.Status != filter.Status {
			continue
		}
		if filter.PaymentStatus != "" && order.PaymentStatus != filter.PaymentStatus {
			continue
		}
		out = append(out, copyOrder(order))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeOrderStore) Update(_ context.Context, id string, update db.OrderUpdate) (*db.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	if update.Status != nil {
		order.Status = *update.Status
		if order.Status == models.StatusDelivered && order.CompletedAt == nil {
			now := time.Now().UTC()
			order.CompletedAt = &now
		}
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
	return copyOrder(order), nil
}

func (s *fakeOrderStore) MarkProcessing(_ context.Context, orderID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.markErr; err != nil {
		s.markErr = nil
		return false, err
	}
	order, ok := s.orders[orderID]
	if !ok || order.Status != models.StatusPending {
		return false, nil
	}
	order.Status = models.StatusProcessing
	return true, nil
}

func (s *fakeOrderStore) AttachPayment(_ context.Context, payment *db.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[payment.OrderID]
	if !ok {
		return db.ErrNotFound
	}
	if order.Payment != nil {
		delete(s.byPayment, order.Payment.ProviderPaymentID)
	}
	p := *payment
	order.Payment = &p
	s.byPayment[payment.ProviderPaymentID] = order.ID
	return nil
}

func (s *fakeOrderStore) SetPaymentStatus(_ context.Context, providerPaymentID, providerStatus string, status models.PaymentStatus) (db.PaymentTransition, error) {
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
	return transition, nil
}

func copyOrder(order *models.Order) *models.Order {
	if order == nil {
		return nil
	}
	out := *order
	out.Items = append([]models.OrderItem(nil), order.Items...)
	if order.Payment != nil {
		p := *order.Payment
		out.Payment = &p
	}
	return &out
}

type fakeReturnStore struct {
	mu      sync.Mutex
	returns map[string]*models.Return
	nextID  int
}

func newFakeReturnStore(returns ...*models.Return) *fakeReturnStore {
	s := &fakeReturnStore{returns: make(map[string]*models.Return)}
	for _, ret := range returns {
		r := *ret
		s.returns[r.ID] = &r
	}
	return s
}

func (s *fakeReturnStore) Create(_ context.Context, ret *db.Return) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.returns {
		if existing.OrderID == ret.OrderID && existing.Status.Open() && ret.Status.Open() {
			return fmt.Errorf("%w: returns_one_open_per_order_idx", db.ErrConflict)
		}
	}
	s.nextID++
	if ret.ID == "" {
		ret.ID = fmt.Sprintf("ret-%d", s.nextID)
	}
	r := *ret
	s.returns[r.ID] = &r
	return nil
}

func (s *fakeReturnStore) GetByID(_ context.Context, id string) (*db.Return, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ret, ok := s.returns[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	r := *ret
	return &r, nil
}

func (s *fakeReturnStore) List(_ context.Context, filter db.ReturnFilter) ([]*db.Return, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*db.Return, 0, len(s.returns))
	for _, ret := range s.returns {
		if filter.Status != "" && ret.Status != filter.Status {
			continue
		}
		if filter.OrderID != "" && ret.OrderID != filter.OrderID {
			continue
		}
		r := *ret
		out = append(out, &r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeReturnStore) UpdateStatus(_ context.Context, id string, update db.ReturnStatusUpdate) (*db.Return, error) {
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
	if update.RefundAmountCents != nil {
		ret.RefundAmountCents = *update.RefundAmountCents
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

func (s *fakeReturnStore) ExistsOpenForOrder(_ context.Context, orderID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ret := range s.returns {
		if ret.OrderID == orderID && ret.Status.Open() {
			return true, nil
		}
	}
	return false, nil
}

type fakeCatalogStore struct {
	mu            sync.Mutex
	categories    map[string]*models.Category
	products      map[string]*models.Product
	nextID        int
	listCalls     int
	seeds         []db.CatalogSeed
	createProdErr error
}

func newFakeCatalogStore(products ...*models.Product) *fakeCatalogStore {
	s := &fakeCatalogStore{
		categories: make(map[string]*models.Category),
		products:   make(map[string]*models.Product),
	}
	for _, product := range products {
		p := copyProduct(product)
		s.products[p.ID] = p
	}
	return s
}

func (s *fakeCatalogStore) id(prefix string) string {
	s.nextID++
	return fmt.Sprintf("%s-%d", prefix, s.nextID)
}

func (s *fakeCatalogStore) ListCategories(context.Context) ([]models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (s *fakeCatalogStore) GetCategory(_ context.Context, id string) (*models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	out := *c
	return &out, nil
}

func (s *fakeCatalogStore) CreateCategory(_ context.Context, category *models.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.categories {
		if c.Slug == category.Slug {
			return db.ErrConflict
		}
	}
	if category.ID == "" {
		category.ID = s.id("cat")
	}
	c := *category
	s.categories[c.ID] = &c
	return nil
}

func (s *fakeCatalogStore) UpdateCategory(_ context.Context, category *models.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[category.ID]; !ok {
		return db.ErrNotFound
	}
	c := *category
	s.categories[c.ID] = &c
	return nil
}

func (s *fakeCatalogStore) DeleteCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[id]; !ok {
		return db.ErrNotFound
	}
	delete(s.categories, id)
	return nil
}

func (s *fakeCatalogStore) ListProducts(_ context.Context, filter db.ProductFilter) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	out := make([]models.Product, 0, len(s.products))
	for _, p := range s.products {
		if filter.ActiveOnly && !p.Active {
			continue
		}
		out = append(out, *copyProduct(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *fakeCatalogStore) GetProduct(_ context.Context, id string) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return copyProduct(p), nil
}

func (s *fakeCatalogStore) GetProductBySlug(_ context.Context, slug string) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.products {
		if p.Slug == slug {
			return copyProduct(p), nil
		}
	}
	return nil, db.ErrNotFound
}

func (s *fakeCatalogStore) CreateProduct(_ context.Context, product *models.Product) error {
	if s.createProdErr != nil {
		return s.createProdErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if product.ID == "" {
		product.ID = s.id("prod")
	}
	for i := range product.Variants {
		if product.Variants[i].ID == "" {
			product.Variants[i].ID = s.id("var")
		}
		product.Variants[i].ProductID = product.ID
	}
	s.products[product.ID] = copyProduct(product)
	return nil
}

func (s *fakeCatalogStore) UpdateProduct(_ context.Context, product *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[product.ID]; !ok {
		return db.ErrNotFound
	}
	s.products[product.ID] = copyProduct(product)
	return nil
}

func (s *fakeCatalogStore) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return db.ErrNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *fakeCatalogStore) GetVariant(_ context.Context, id string) (*models.ProductVariant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.products {
		if v, ok := p.Variant(id); ok {
			return &v, nil
		}
	}
	return nil, db.ErrNotFound
}

func (s *fakeCatalogStore) CreateVariant(_ context.Context, variant *models.ProductVariant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[variant.ProductID]
	if !ok {
		return db.ErrNotFound
	}
	if variant.ID == "" {
		variant.ID = s.id("var")
	}
	p.Variants = append(p.Variants, *variant)
	return nil
}

func (s *fakeCatalogStore) UpdateVariant(_ context.Context, variant *models.ProductVariant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[variant.ProductID]
	if !ok {
		return db.ErrNotFound
	}
	for i := range p.Variants {
		if p.Variants[i].ID == variant.ID {
			p.Variants[i] = *variant
			return nil
		}
	}
	return db.ErrNotFound
}

func (s *fakeCatalogStore) DeleteVariant(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.products {
		for i := range p.Variants {
			if p.Variants[i].ID == id {
				p.Variants = append(p.Variants[:i], p.Variants[i+1:]...)
				return nil
			}
		}
	}
	return db.ErrNotFound
}

func (s *fakeCatalogStore) UpsertSeed(_ context.Context, seed db.CatalogSeed) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seeds = append(s.seeds, seed)
	return nil
}

func copyProduct(p *models.Product) *models.Product {
	out := *p
	out.Variants = append([]models.ProductVariant(nil), p.Variants...)
	return &out
}

type fakeGateway struct {
	mu        sync.Mutex
	payments  map[string]*payments.Payment
	methods   []payments.Method
	getErr    error
	createErr error
	created   []payments.CreatePaymentInput
	listCalls int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{payments: make(map[string]*payments.Payment)}
}

func (g *fakeGateway) setStatus(id, status string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.payments[id]
	if !ok {
		p = &payments.Payment{ID: id, Currency: "EUR"}
		g.payments[id] = p
	}
	p.Status = status
}

func (g *fakeGateway) CreatePayment(_ context.Context, input payments.CreatePaymentInput) (*payments.Payment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.created = append(g.created, input)
	if g.createErr != nil {
		return nil, g.createErr
	}
	id := fmt.Sprintf("tr_%d", len(g.created))
	p := &payments.Payment{
		ID:          id,
		Status:      "open",
		AmountCents: input.AmountCents,
		Currency:    input.Currency,
		CheckoutURL: "https://pay.example/" + id,
		OrderID:     input.OrderID,
	}
	g.payments[id] = p
	out := *p
	return &out, nil
}

func (g *fakeGateway) GetPayment(_ context.Context, id string) (*payments.Payment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.getErr != nil {
		return nil, g.getErr
	}
	p, ok := g.payments[id]
	if !ok {
		return nil, payments.ErrPaymentNotFound
	}
	out := *p
	return &out, nil
}

func (g *fakeGateway) ListMethods(context.Context) ([]payments.Method, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listCalls++
	return append([]payments.Method(nil), g.methods...), nil
}

type recordingEmailSender struct {
	mu            sync.Mutex
	confirmations []string
	shipped       []string
	delivered     []string
	returnUpdates []string
	err           error
}

func (r *recordingEmailSender) SendOrderConfirmation(_ context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.confirmations = append(r.confirmations, order.ID)
	return r.err
}

func (r *recordingEmailSender) SendOrderShipped(_ context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shipped = append(r.shipped, order.ID)
	return r.err
}

func (r *recordingEmailSender) SendOrderDelivered(_ context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delivered = append(r.delivered, order.ID)
	return r.err
}

func (r *recordingEmailSender) SendReturnUpdate(_ context.Context, ret *models.Return, _ *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.returnUpdates = append(r.returnUpdates, string(ret.Status))
	return r.err
}

func (r *recordingEmailSender) count(kind string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch kind {
	case "confirmation":
		return len(r.confirmations)
	case "shipped":
		return len(r.shipped)
	case "delivered":
		return len(r.delivered)
	case "return":
		return len(r.returnUpdates)
	default:
		return 0
	}
}

// pendingOrder is ORD-1: two items, unpaid, payment tr_abc attached.
func pendingOrder() *models.Order {
	return &models.Order{
		ID:            "ORD-1",
		OrderNumber:   "ORD-20250301-ABC123",
		CustomerEmail: "jan@example.nl",
		CustomerName:  "Jan Jansen",
		ShippingAddress: models.Address{
			Street:      "Kerkstraat",
			HouseNumber: "12",
			PostalCode:  "1234 AB",
			City:        "Utrecht",
			Country:     "NL",
		},
		Items: []models.OrderItem{
			{ID: "item-1", OrderID: "ORD-1", ProductID: "prod-1", ProductName: "Kattenbak Comfort", SKU: "KB-001", Quantity: 1, UnitPriceCents: 3995},
			{ID: "item-2", OrderID: "ORD-1", ProductID: "prod-2", ProductName: "Kattengrit 10L", SKU: "KG-010", Quantity: 2, UnitPriceCents: 799},
		},
		SubtotalCents: 5593,
		ShippingCents: 0,
		TotalCents:    5593,
		Status:        models.StatusPending,
		PaymentStatus: models.PaymentPending,
		CreatedAt:     time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Payment: &models.Payment{
			OrderID:           "ORD-1",
			ProviderPaymentID: "tr_abc",
			ProviderStatus:    "open",
			AmountCents:       5593,
		},
	}
}

func shippedOrder() *models.Order {
	order := pendingOrder()
	order.Status = models.StatusShipped
	order.PaymentStatus = models.PaymentPaid
	return order
}
