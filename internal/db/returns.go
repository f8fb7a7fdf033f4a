package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/User-Emin/kattenbak-sub003/internal/models"
)

var returnColumns = []string{
	"id", "order_id", "reason", "items", "status", "admin_notes", "refund_amount_cents",
	"created_at", "updated_at", "approved_at", "refunded_at",
}

type ReturnStore struct {
	pool *pgxpool.Pool
}

func NewReturnStore(pool *pgxpool.Pool) *ReturnStore {
	return &ReturnStore{pool: pool}
}

func (s *ReturnStore) Create(ctx context.Context, ret *Return) error {
	if ret == nil {
		return fmt.Errorf("return is required")
	}
	if ret.ID == "" {
		ret.ID = uuid.NewString()
	}
	if ret.Status == "" {
		ret.Status = models.ReturnRequested
	}
	if ret.CreatedAt.IsZero() {
		ret.CreatedAt = time.Now().UTC()
	}
	ret.UpdatedAt = ret.CreatedAt
	if ret.Items == nil {
		ret.Items = []models.ReturnItem{}
	}

	itemsJSON, err := json.Marshal(ret.Items)
	if err != nil {
		return err
	}

	query, args, err := psql.Insert("returns").
		Columns(returnColumns...).
		Values(
			ret.ID, ret.OrderID, ret.Reason, itemsJSON, string(ret.Status), ret.AdminNotes, ret.RefundAmountCents,
			ret.CreatedAt, ret.UpdatedAt, ret.ApprovedAt, ret.RefundedAt,
		).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert return: %w", classify(err))
	}
	return nil
}

func (s *ReturnStore) GetByID(ctx context.Context, id string) (*Return, error) {
	query, args, err := psql.Select(returnColumns...).From("returns").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	ret, err := scanReturn(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, notFound(err)
	}
	return ret, nil
}

func (s *ReturnStore) List(ctx context.Context, filter ReturnFilter) ([]*Return, error) {
	builder := psql.Select(returnColumns...).From("returns")
	if filter.Status != "" {
		builder = builder.Where(sq.Eq{"status": string(filter.Status)})
	}
	if filter.OrderID != "" {
		builder = builder.Where(sq.Eq{"order_id": filter.OrderID})
	}
	limit, offset := pageBounds(filter.Limit, filter.Offset)
	query, args, err := builder.OrderBy("created_at DESC", "id").Limit(limit).Offset(offset).ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list returns: %w", err)
	}
	defer rows.Close()

	returns := make([]*Return, 0)
	for rows.Next() {
		ret, err := scanReturn(rows)
		if err != nil {
			return nil, err
		}
		returns = append(returns, ret)
	}
	return returns, rows.Err()
}

// UpdateStatus writes any status from the vocabulary; ordering is not
// enforced here.
func (s *ReturnStore) UpdateStatus(ctx context.Context, id string, update ReturnStatusUpdate) (*Return, error) {
	updatedAt := update.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	set := map[string]any{
		"status":     string(update.Status),
		"updated_at": updatedAt,
	}
	if update.AdminNotes != nil {
		set["admin_notes"] = *update.AdminNotes
	}
	if update.RefundAmountCents != nil {
		set["refund_amount_cents"] = *update.RefundAmountCents
	}
	if update.ApprovedAt != nil {
		set["approved_at"] = sq.Expr("COALESCE(approved_at, ?)", *update.ApprovedAt)
	}
	if update.RefundedAt != nil {
		set["refunded_at"] = sq.Expr("COALESCE(refunded_at, ?)", *update.RefundedAt)
	}

	query, args, err := psql.Update("returns").
		SetMap(set).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + strings.Join(returnColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, err
	}
	ret, err := scanReturn(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, notFound(err)
	}
	return ret, nil
}

// ExistsOpenForOrder reports whether the order already has a return that has
// not reached a terminal status.
func (s *ReturnStore) ExistsOpenForOrder(ctx context.Context, orderID string) (bool, error) {
	closed := make([]string, 0, 3)
	for _, status := range models.ReturnStatuses() {
		if !status.Open() {
			closed = append(closed, string(status))
		}
	}

	query, args, err := psql.Select("1").
		Prefix("SELECT EXISTS (").
		From("returns").
		Where(sq.Eq{"order_id": orderID}).
		Where(sq.NotEq{"status": closed}).
		Suffix(")").
		ToSql()
	if err != nil {
		return false, err
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func scanReturn(row pgx.Row) (*Return, error) {
	var (
		ret        Return
		items      []byte
		status     string
		approvedAt pgtype.Timestamptz
		refundedAt pgtype.Timestamptz
	)
	err := row.Scan(
		&ret.ID, &ret.OrderID, &ret.Reason, &items, &status, &ret.AdminNotes, &ret.RefundAmountCents,
		&ret.CreatedAt, &ret.UpdatedAt, &approvedAt, &refundedAt,
	)
	if err != nil {
		return nil, err
	}
	ret.Status = models.ReturnStatus(status)
	if approvedAt.Valid {
		t := approvedAt.Time
		ret.ApprovedAt = &t
	}
	if refundedAt.Valid {
		t := refundedAt.Time
		ret.RefundedAt = &t
	}
	ret.Items = []models.ReturnItem{}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &ret.Items); err != nil {
			return nil, fmt.Errorf("failed to decode return items: %w", err)
		}
	}
	return &ret, nil
}
