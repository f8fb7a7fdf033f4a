package db

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/User-Emin/kattenbak-sub003/internal/models"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

var orderColumns = []string{
	"id", "order_number", "customer_email", "customer_name", "customer_phone",
	"shipping_address", "subtotal_cents", "shipping_cents", "total_cents",
	"status", "payment_status", "tracking_number", "tracking_url", "carrier",
	"created_at", "updated_at", "completed_at",
}

const upsertPaymentSQL = `
	INSERT INTO payments (order_id, provider_payment_id, provider_status, method, amount_cents, checkout_url, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
	ON CONFLICT (order_id) DO UPDATE
	SET provider_payment_id = EXCLUDED.provider_payment_id,
	    provider_status = EXCLUDED.provider_status,
	    method = EXCLUDED.method,
	    amount_cents = EXCLUDED.amount_cents,
	    checkout_url = EXCLUDED.checkout_url,
	    updated_at = NOW()
`

type OrderStore struct {
	pool *pgxpool.Pool
}

func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// Create inserts the order, its items and its payment row, if any, in one
// transaction. Missing ids and timestamps are filled in on the passed order.
func (s *OrderStore) Create(ctx context.Context, order *Order) error {
	if order == nil {
		return fmt.Errorf("order is required")
	}
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if order.Status == "" {
		order.Status = models.StatusPending
	}
	if order.PaymentStatus == "" {
		order.PaymentStatus = models.PaymentPending
	}
	now := time.Now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = order.CreatedAt

	for name, cents := range map[string]int{
		"subtotal cents": order.SubtotalCents,
		"shipping cents": order.ShippingCents,
		"total cents":    order.TotalCents,
	} {
		if _, err := intToInt32(cents, name); err != nil {
			return err
		}
	}

	addressJSON, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return err
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		query, args, err := psql.Insert("orders").
			Columns(orderColumns...).
			Values(
				order.ID, order.OrderNumber, order.CustomerEmail, order.CustomerName, textOrNull(order.CustomerPhone),
				addressJSON, order.SubtotalCents, order.ShippingCents, order.TotalCents,
				string(order.Status), string(order.PaymentStatus),
				textOrNull(order.TrackingNumber), textOrNull(order.TrackingURL), textOrNull(order.Carrier),
				order.CreatedAt, order.UpdatedAt, order.CompletedAt,
			).
			ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}

		if len(order.Items) > 0 {
			insert := psql.Insert("order_items").Columns(
				"id", "order_id", "product_id", "variant_id", "product_name", "sku", "quantity", "unit_price_cents", "position",
			)
			for i := range order.Items {
				item := &order.Items[i]
				if item.ID == "" {
					item.ID = uuid.NewString()
				}
				item.OrderID = order.ID
				insert = insert.Values(
					item.ID, item.OrderID, item.ProductID, textOrNull(item.VariantID),
					item.ProductName, item.SKU, item.Quantity, item.UnitPriceCents, i,
				)
			}
			query, args, err := insert.ToSql()
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, query, args...); err != nil {
				return fmt.Errorf("failed to insert order items: %w", err)
			}
		}

		if order.Payment != nil {
			order.Payment.OrderID = order.ID
			if err := upsertPayment(ctx, tx, order.Payment); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *OrderStore) GetByID(ctx context.Context, id string) (*Order, error) {
	query, args, err := psql.Select(orderColumns...).From("orders").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	order, err := scanOrder(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, notFound(err)
	}
	if err := loadOrderRelations(ctx, s.pool, []*Order{order}); err != nil {
		return nil, err
	}
	return order, nil
}

// List returns orders newest first.
func (s *OrderStore) List(ctx context.Context, filter OrderFilter) ([]*Order, error) {
	builder := psql.Select(orderColumns...).From("orders")
	if filter.Status != "" {
		builder = builder.Where(sq.Eq{"status": string(filter.Status)})
	}
	if filter.PaymentStatus != "" {
		builder = builder.Where(sq.Eq{"payment_status": string(filter.PaymentStatus)})
	}
	if filter.CustomerEmail != "" {
		builder = builder.Where(sq.Expr("LOWER(customer_email) = LOWER(?)", filter.CustomerEmail))
	}
	limit, offset := pageBounds(filter.Limit, filter.Offset)
	query, args, err := builder.
		OrderBy("created_at DESC", "id").
		Limit(limit).
		Offset(offset).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]*Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := loadOrderRelations(ctx, s.pool, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// Update applies an admin edit. completed_at is stamped the first time the
// order becomes delivered.
func (s *OrderStore) Update(ctx context.Context, id string, update OrderUpdate) (*Order, error) {
	now := time.Now().UTC()
	set := map[string]any{"updated_at": now}
	if update.Status != nil {
		set["status"] = string(*update.Status)
		if *update.Status == models.StatusDelivered {
			set["completed_at"] = sq.Expr("COALESCE(completed_at, ?)", now)
		}
	}
	if update.PaymentStatus != nil {
		set["payment_status"] = string(*update.PaymentStatus)
	}
	if update.TrackingNumber != nil {
		set["tracking_number"] = textOrNull(*update.TrackingNumber)
	}
	if update.TrackingURL != nil {
		set["tracking_url"] = textOrNull(*update.TrackingURL)
	}
	if update.Carrier != nil {
		set["carrier"] = textOrNull(*update.Carrier)
	}

	query, args, err := psql.Update("orders").SetMap(set).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	cmdTag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return s.GetByID(ctx, id)
}

// MarkProcessing moves a pending order to processing. It reports false when
// the order was in any other status.
func (s *OrderStore) MarkProcessing(ctx context.Context, orderID string) (bool, error) {
	query := `
		UPDATE orders
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`
	cmdTag, err := s.pool.Exec(ctx, query, string(models.StatusProcessing), orderID, string(models.StatusPending))
	if err != nil {
		return false, err
	}
	return cmdTag.RowsAffected() > 0, nil
}

// AttachPayment records the current payment attempt for an order, replacing
// any earlier attempt.
func (s *OrderStore) AttachPayment(ctx context.Context, payment *Payment) error {
	if payment == nil {
		return fmt.Errorf("payment is required")
	}
	return upsertPayment(ctx, s.pool, payment)
}

// SetPaymentStatus writes the provider status and the mapped payment status
// for the order owning providerPaymentID. The write is unconditional; the
// returned transition tells the caller what the order held before. A paid
// status also moves a pending order to processing in the same transaction.
func (s *OrderStore) SetPaymentStatus(ctx context.Context, providerPaymentID, providerStatus string, status models.PaymentStatus) (PaymentTransition, error) {
	transition := PaymentTransition{Current: status}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var previous string
		err := tx.QueryRow(ctx, `
			SELECT o.id, o.payment_status
			FROM payments p
			JOIN orders o ON o.id = p.order_id
			WHERE p.provider_payment_id = $1
			FOR UPDATE OF o
		`, providerPaymentID).Scan(&transition.OrderID, &previous)
		if err != nil {
			return notFound(err)
		}
		transition.Previous = models.PaymentStatus(previous)

		if _, err := tx.Exec(ctx,
			`UPDATE payments SET provider_status = $1, updated_at = NOW() WHERE provider_payment_id = $2`,
			providerStatus, providerPaymentID,
		); err != nil {
			return fmt.Errorf("failed to update payment: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`UPDATE orders SET payment_status = $1, updated_at = NOW() WHERE id = $2`,
			string(status), transition.OrderID,
		); err != nil {
			return fmt.Errorf("failed to update order payment status: %w", err)
		}
		if status != models.PaymentPaid {
			return nil
		}

		cmdTag, err := tx.Exec(ctx,
			`UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`,
			string(models.StatusProcessing), transition.OrderID, string(models.StatusPending),
		)
		if err != nil {
			return fmt.Errorf("failed to move paid order to processing: %w", err)
		}
		transition.MovedToProcessing = cmdTag.RowsAffected() > 0
		return nil
	})
	if err != nil {
		return PaymentTransition{}, err
	}
	return transition, nil
}

func upsertPayment(ctx context.Context, q querier, payment *Payment) error {
	_, err := q.Exec(ctx, upsertPaymentSQL,
		payment.OrderID,
		payment.ProviderPaymentID,
		payment.ProviderStatus,
		textOrNull(payment.Method),
		payment.AmountCents,
		textOrNull(payment.CheckoutURL),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert payment: %w", err)
	}
	payment.UpdatedAt = time.Now().UTC()
	return nil
}

func scanOrder(row pgx.Row) (*Order, error) {
	var (
		order          Order
		phone          pgtype.Text
		address        []byte
		status         string
		paymentStatus  string
		trackingNumber pgtype.Text
		trackingURL    pgtype.Text
		carrier        pgtype.Text
		completedAt    pgtype.Timestamptz
	)
	err := row.Scan(
		&order.ID, &order.OrderNumber, &order.CustomerEmail, &order.CustomerName, &phone,
		&address, &order.SubtotalCents, &order.ShippingCents, &order.TotalCents,
		&status, &paymentStatus, &trackingNumber, &trackingURL, &carrier,
		&order.CreatedAt, &order.UpdatedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	order.Status = models.OrderStatus(status)
	order.PaymentStatus = models.PaymentStatus(paymentStatus)
	order.CustomerPhone = phone.String
	order.TrackingNumber = trackingNumber.String
	order.TrackingURL = trackingURL.String
	order.Carrier = carrier.String
	if completedAt.Valid {
		t := completedAt.Time
		order.CompletedAt = &t
	}
	if len(address) > 0 {
		if err := json.Unmarshal(address, &order.ShippingAddress); err != nil {
			return nil, fmt.Errorf("failed to decode shipping address: %w", err)
		}
	}
	order.Items = []OrderItem{}
	return &order, nil
}

// loadOrderRelations fills items and payment for a page of orders with one
// query per relation.
func loadOrderRelations(ctx context.Context, q querier, orders []*Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	byID := make(map[string]*Order, len(orders))
	for i, order := range orders {
		ids[i] = order.ID
		byID[order.ID] = order
	}

	query, args, err := psql.Select(
		"id", "order_id", "product_id", "variant_id", "product_name", "sku", "quantity", "unit_price_cents",
	).
		From("order_items").
		Where(sq.Eq{"order_id": ids}).
		OrderBy("order_id", "position").
		ToSql()
	if err != nil {
		return err
	}
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}
	for rows.Next() {
		var (
			item    OrderItem
			variant pgtype.Text
		)
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &variant, &item.ProductName, &item.SKU, &item.Quantity, &item.UnitPriceCents); err != nil {
			rows.Close()
			return err
		}
		item.VariantID = variant.String
		if order, ok := byID[item.OrderID]; ok {
			order.Items = append(order.Items, item)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	query, args, err = psql.Select(
		"order_id", "provider_payment_id", "provider_status", "method", "amount_cents", "checkout_url", "updated_at",
	).
		From("payments").
		Where(sq.Eq{"order_id": ids}).
		ToSql()
	if err != nil {
		return err
	}
	rows, err = q.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to load payments: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			payment     Payment
			method      pgtype.Text
			checkoutURL pgtype.Text
		)
		if err := rows.Scan(&payment.OrderID, &payment.ProviderPaymentID, &payment.ProviderStatus, &method, &payment.AmountCents, &checkoutURL, &payment.UpdatedAt); err != nil {
			return err
		}
		payment.Method = method.String
		payment.CheckoutURL = checkoutURL.String
		if order, ok := byID[payment.OrderID]; ok {
			p := payment
			order.Payment = &p
		}
	}
	return rows.Err()
}

func textOrNull(value string) pgtype.Text {
	return pgtype.Text{String: value, Valid: value != ""}
}

func pageBounds(limit, offset int) (uint64, uint64) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return uint64(limit), uint64(offset)
}

func intToInt32(value int, name string) (int32, error) {
	if value < math.MinInt32 || value > math.MaxInt32 {
		return 0, fmt.Errorf("%s out of int32 range: %d", name, value)
	}
	return int32(value), nil
}
