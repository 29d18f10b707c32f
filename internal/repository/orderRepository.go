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

// DB is the subset of *pgxpool.Pool the repository needs.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

const orderColumns = `id::text, COALESCE(idempotency_key, ''), gateway_order_id, COALESCE(gateway_payment_id, ''),
	email, amount, amount_minor, currency, items, shipping_address, status,
	COALESCE(courier_name, ''), COALESCE(tracking_id, ''), COALESCE(tracking_url, ''),
	created_at, updated_at`

const uniqueViolation = "23505"

type OrderRepository struct {
	pool DB
}

func NewOrderRepository(p DB) *OrderRepository {
	return &OrderRepository{pool: p}
}

func (p *OrderRepository) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *OrderRepository) AddOrder(ctx context.Context, o *domain.Order) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}
	addr, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("marshal shipping address: %w", err)
	}

	err = p.pool.QueryRow(ctx, `
		INSERT INTO orders
			(id, idempotency_key, gateway_order_id, email, amount, amount_minor,
			 currency, items, shipping_address, status)
		VALUES
			($1, NULLIF($2, ''), $3, $4, $5, $6,
			 $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`,
		o.ID,
		o.IdempotencyKey,
		o.GatewayOrderID,
		o.Email,
		o.Amount,
		o.AmountMinor,
		o.Currency,
		items,
		addr,
		string(o.Status),
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrOrderAlreadyExists
		}
		logger.Warn("insert order failed", "err", err, "gateway_order_id", o.GatewayOrderID)
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// matchOrder picks the indexed column for id: the primary key when id is a
// UUID, the gateway order id otherwise.
func matchOrder(id string) string {
	if _, err := uuid.Parse(id); err == nil {
		return `id = $1::uuid`
	}
	return `gateway_order_id = $1`
}

func (p *OrderRepository) GetOrderByID(ctx context.Context, id string) (*domain.Order, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE `+matchOrder(id), id)
	return scanOne(row)
}

func (p *OrderRepository) GetOrderByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE idempotency_key = $1`, key)
	return scanOne(row)
}

func (p *OrderRepository) ListRecent(ctx context.Context, limit int) ([]domain.Order, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Order, 0, limit)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list orders rows: %w", err)
	}
	return out, nil
}

func (p *OrderRepository) MarkPaid(ctx context.Context, orderID string, pay domain.Payment) (*domain.Order, bool, error) {
	if _, err := uuid.Parse(orderID); err != nil {
		return nil, false, nil
	}
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	row := tx.QueryRow(ctx, `
		UPDATE orders
		SET status = $2, gateway_payment_id = $3, updated_at = now()
		WHERE id = $1::uuid AND status = $4
		RETURNING `+orderColumns,
		orderID,
		string(domain.StatusPaid),
		pay.GatewayPaymentID,
		string(domain.StatusPendingPayment),
	)
	o, err := scanOne(row)
	if errors.Is(err, ErrOrderNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if err := insertPayment(ctx, tx, pay); err != nil {
		return nil, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("commit tx: %w", err)
	}
	tx = nil
	return o, true, nil
}

func (p *OrderRepository) SavePayment(ctx context.Context, pay domain.Payment) error {
	return insertPayment(ctx, p.pool, pay)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertPayment(ctx context.Context, db execer, pay domain.Payment) error {
	meta, err := json.Marshal(pay.Meta)
	if err != nil {
		return fmt.Errorf("marshal payment meta: %w", err)
	}
	if pay.CreatedAt.IsZero() {
		pay.CreatedAt = time.Now().UTC()
	}
	_, err = db.Exec(ctx, `
		INSERT INTO payments
			(order_id, gateway_order_id, gateway_payment_id, signature, verified, meta, created_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7)
	`,
		pay.OrderID,
		pay.GatewayOrderID,
		pay.GatewayPaymentID,
		pay.Signature,
		pay.Verified,
		meta,
		pay.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (p *OrderRepository) UpdateStatus(ctx context.Context, id string, status domain.Status, patch domain.TrackingPatch) (*domain.Order, error) {
	row := p.pool.QueryRow(ctx, `
		UPDATE orders
		SET status = $2,
			courier_name = COALESCE($3, courier_name),
			tracking_id = COALESCE($4, tracking_id),
			tracking_url = COALESCE($5, tracking_url),
			updated_at = now()
		WHERE `+matchOrder(id)+`
		RETURNING `+orderColumns,
		id,
		string(status),
		patch.CourierName,
		patch.TrackingID,
		patch.TrackingURL,
	)
	return scanOne(row)
}

func scanOne(row pgx.Row) (*domain.Order, error) {
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	return o, err
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o      domain.Order
		status string
		items  []byte
		addr   []byte
	)
	err := row.Scan(
		&o.ID,
		&o.IdempotencyKey,
		&o.GatewayOrderID,
		&o.GatewayPaymentID,
		&o.Email,
		&o.Amount,
		&o.AmountMinor,
		&o.Currency,
		&items,
		&addr,
		&status,
		&o.CourierName,
		&o.TrackingID,
		&o.TrackingURL,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}
	o.Status = domain.Status(status)
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("unmarshal items of order %s: %w", o.ID, err)
	}
	if err := json.Unmarshal(addr, &o.ShippingAddress); err != nil {
		return nil, fmt.Errorf("unmarshal shipping address of order %s: %w", o.ID, err)
	}
	return &o, nil
}
