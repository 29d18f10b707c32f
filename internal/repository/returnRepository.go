package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/RaikyD/storefront-orders/internal/domain"
	"github.com/RaikyD/storefront-orders/internal/logger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const returnColumns = `id::text, order_id::text, product_id, customer_email, reason, photos, status,
	refund_amount, COALESCE(gateway_payment_id, ''), COALESCE(gateway_refund_id, ''),
	COALESCE(admin_note, ''), requested_at, acted_at`

func (p *OrderRepository) AddReturn(ctx context.Context, r *domain.ReturnRequest) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Photos == nil {
		r.Photos = []string{}
	}
	photos, err := json.Marshal(r.Photos)
	if err != nil {
		return fmt.Errorf("marshal photos: %w", err)
	}

	err = p.pool.QueryRow(ctx, `
		INSERT INTO return_requests
			(id, order_id, product_id, customer_email, reason, photos, status,
			 refund_amount, gateway_payment_id)
		VALUES
			($1, $2::uuid, $3, $4, $5, $6, $7,
			 $8, NULLIF($9, ''))
		RETURNING requested_at
	`,
		r.ID,
		r.OrderID,
		r.ProductID,
		r.Email,
		r.Reason,
		photos,
		string(r.Status),
		r.RefundAmount,
		r.GatewayPaymentID,
	).Scan(&r.RequestedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrReturnExists
		}
		logger.Warn("insert return request failed", "err", err, "order_id", r.OrderID)
		return fmt.Errorf("insert return request: %w", err)
	}
	return nil
}

func (p *OrderRepository) GetReturn(ctx context.Context, id string) (*domain.ReturnRequest, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrReturnNotFound
	}
	row := p.pool.QueryRow(ctx,
		`SELECT `+returnColumns+` FROM return_requests WHERE id = $1::uuid`, id)
	return scanReturnOne(row)
}

func (p *OrderRepository) ListReturns(ctx context.Context, limit int) ([]domain.ReturnRequest, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+returnColumns+` FROM return_requests ORDER BY requested_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list return requests: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ReturnRequest, 0, limit)
	for rows.Next() {
		r, err := scanReturn(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list return requests rows: %w", err)
	}
	return out, nil
}

func (p *OrderRepository) TransitionReturn(ctx context.Context, id string, from, to domain.ReturnStatus, res domain.ReturnResolution) (*domain.ReturnRequest, bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, false, nil
	}
	var actedAt *time.Time
	if !res.At.IsZero() {
		actedAt = &res.At
	}
	row := p.pool.QueryRow(ctx, `
		UPDATE return_requests
		SET status = $3,
			gateway_refund_id = COALESCE(NULLIF($4, ''), gateway_refund_id),
			admin_note = COALESCE(NULLIF($5, ''), admin_note),
			acted_at = COALESCE($6, acted_at)
		WHERE id = $1::uuid AND status = $2
		RETURNING `+returnColumns,
		id,
		string(from),
		string(to),
		res.RefundID,
		res.AdminNote,
		actedAt,
	)
	r, err := scanReturnOne(row)
	if errors.Is(err, ErrReturnNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return r, true, nil
}

func (p *OrderRepository) Overview(ctx context.Context, since time.Time) (*domain.Overview, error) {
	var ov domain.Overview
	revenue := make([]string, len(domain.RevenueStatuses))
	for i, st := range domain.RevenueStatuses {
		revenue[i] = string(st)
	}

	err := p.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE created_at >= $1),
			COALESCE(SUM(amount) FILTER (WHERE status = ANY($2)), 0),
			COALESCE(SUM(amount) FILTER (WHERE status = ANY($2) AND created_at >= $1), 0)
		FROM orders
	`, since, revenue).Scan(
		&ov.Orders.Total,
		&ov.Orders.Today,
		&ov.Sales.TotalRevenue,
		&ov.Sales.TodayRevenue,
	)
	if err != nil {
		return nil, fmt.Errorf("order totals: %w", err)
	}

	err = p.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM return_requests WHERE status = $1`, string(domain.ReturnPending),
	).Scan(&ov.Returns.Pending)
	if err != nil {
		return nil, fmt.Errorf("pending returns: %w", err)
	}
	return &ov, nil
}

func scanReturnOne(row pgx.Row) (*domain.ReturnRequest, error) {
	r, err := scanReturn(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrReturnNotFound
	}
	return r, err
}

func scanReturn(row pgx.Row) (*domain.ReturnRequest, error) {
	var (
		r      domain.ReturnRequest
		status string
		photos []byte
	)
	err := row.Scan(
		&r.ID,
		&r.OrderID,
		&r.ProductID,
		&r.Email,
		&r.Reason,
		&photos,
		&status,
		&r.RefundAmount,
		&r.GatewayPaymentID,
		&r.GatewayRefundID,
		&r.AdminNote,
		&r.RequestedAt,
		&r.ActedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan return request: %w", err)
	}
	r.Status = domain.ReturnStatus(status)
	if err := json.Unmarshal(photos, &r.Photos); err != nil {
		return nil, fmt.Errorf("unmarshal photos of return %s: %w", r.ID, err)
	}
	return &r, nil
}
