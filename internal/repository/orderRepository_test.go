package repository

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/RaikyD/storefront-orders/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var columns = []string{
	"id", "idempotency_key", "gateway_order_id", "gateway_payment_id",
	"email", "amount", "amount_minor", "currency", "items", "shipping_address", "status",
	"courier_name", "tracking_id", "tracking_url", "created_at", "updated_at",
}

func newMock(t *testing.T) (pgxmock.PgxPoolIface, *OrderRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, NewOrderRepository(mock)
}

func sampleOrder() domain.Order {
	return domain.Order{
		ID:             "7c9e6679-7425-40de-944b-e07fc1f90ae7",
		GatewayOrderID: "order_N1",
		Email:          "asha@example.com",
		Amount:         1307,
		AmountMinor:    130700,
		Currency:       "INR",
		Items: []domain.Item{
			{ProductID: "p1", Name: "Kurta", Price: 500, Quantity: 2, Size: "M"},
			{ProductID: "p2", Name: "Scarf", Price: 300, Quantity: 1},
		},
		ShippingAddress: domain.ShippingAddress{
			FullName: "Asha Verma", Phone: "9876543210", Pincode: "560001",
			AddressLine1: "12 MG Road", City: "Bengaluru", State: "Karnataka", Country: "India",
		},
		Status: domain.StatusPendingPayment,
	}
}

func orderRows(t *testing.T, orders ...domain.Order) *pgxmock.Rows {
	t.Helper()
	rows := pgxmock.NewRows(columns)
	for _, o := range orders {
		items, err := json.Marshal(o.Items)
		require.NoError(t, err)
		addr, err := json.Marshal(o.ShippingAddress)
		require.NoError(t, err)
		rows.AddRow(o.ID, o.IdempotencyKey, o.GatewayOrderID, o.GatewayPaymentID,
			o.Email, o.Amount, o.AmountMinor, o.Currency, items, addr, string(o.Status),
			o.CourierName, o.TrackingID, o.TrackingURL, o.CreatedAt, o.UpdatedAt)
	}
	return rows
}

func TestAddOrder(t *testing.T) {
	mock, repo := newMock(t)
	o := sampleOrder()
	o.ID = ""
	o.IdempotencyKey = "attempt-1"
	now := time.Now().UTC()

	mock.ExpectQuery(`INSERT INTO orders`).
		WithArgs(pgxmock.AnyArg(), "attempt-1", "order_N1", "asha@example.com", int64(1307), int64(130700),
			"INR", pgxmock.AnyArg(), pgxmock.AnyArg(), "PENDING_PAYMENT").
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	require.NoError(t, repo.AddOrder(context.Background(), &o))
	assert.NotEmpty(t, o.ID)
	assert.Equal(t, now, o.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddOrder_Duplicate(t *testing.T) {
	mock, repo := newMock(t)
	o := sampleOrder()

	mock.ExpectQuery(`INSERT INTO orders`).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.AddOrder(context.Background(), &o)
	assert.ErrorIs(t, err, ErrOrderAlreadyExists)
}

func TestGetOrderByID(t *testing.T) {
	mock, repo := newMock(t)
	o := sampleOrder()
	o.CreatedAt = time.Date(2026, 10, 1, 10, 0, 0, 0, time.UTC)
	o.UpdatedAt = o.CreatedAt

	mock.ExpectQuery(regexp.QuoteMeta(`FROM orders WHERE gateway_order_id = $1`)).
		WithArgs("order_N1").
		WillReturnRows(orderRows(t, o))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM orders WHERE id = $1::uuid`)).
		WithArgs(o.ID).
		WillReturnRows(orderRows(t, o))

	got, err := repo.GetOrderByID(context.Background(), "order_N1")
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)
	assert.Equal(t, domain.StatusPendingPayment, got.Status)
	assert.Equal(t, o.Items, got.Items)
	assert.Equal(t, o.ShippingAddress, got.ShippingAddress)

	byID, err := repo.GetOrderByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, "order_N1", byID.GatewayOrderID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrderByID_NotFound(t *testing.T) {
	mock, repo := newMock(t)

	mock.ExpectQuery(`FROM orders`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetOrderByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestListRecent(t *testing.T) {
	mock, repo := newMock(t)
	a, b := sampleOrder(), sampleOrder()
	b.ID = "0b9a7f43-57a1-4b3c-8d38-3c1c9f3d2b10"
	b.GatewayOrderID = "order_N2"

	mock.ExpectQuery(regexp.QuoteMeta(`FROM orders ORDER BY created_at DESC LIMIT $1`)).
		WithArgs(50).
		WillReturnRows(orderRows(t, b, a))

	got, err := repo.ListRecent(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "order_N2", got[0].GatewayOrderID)
}

func TestMarkPaid(t *testing.T) {
	mock, repo := newMock(t)
	paid := sampleOrder()
	paid.Status = domain.StatusPaid
	paid.GatewayPaymentID = "pay_1"

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE id = $1::uuid AND status = $4`)).
		WithArgs(paid.ID, "PAID", "pay_1", "PENDING_PAYMENT").
		WillReturnRows(orderRows(t, paid))
	mock.ExpectExec(`INSERT INTO payments`).
		WithArgs(paid.ID, "order_N1", "pay_1", "sig", true, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	got, changed, err := repo.MarkPaid(context.Background(), paid.ID, domain.Payment{
		OrderID:          paid.ID,
		GatewayOrderID:   "order_N1",
		GatewayPaymentID: "pay_1",
		Signature:        "sig",
		Verified:         true,
	})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, domain.StatusPaid, got.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkPaid_NotPending(t *testing.T) {
	mock, repo := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE orders`).WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	got, changed, err := repo.MarkPaid(context.Background(), sampleOrder().ID, domain.Payment{GatewayPaymentID: "pay_2"})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Nil(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkPaid_NotAnOrderID(t *testing.T) {
	mock, repo := newMock(t)

	got, changed, err := repo.MarkPaid(context.Background(), "order_N1", domain.Payment{GatewayPaymentID: "pay_2"})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Nil(t, got)
	require.NoError(t, mock.ExpectationsWereMet(), "no query without a valid primary key")
}

func TestUpdateStatus(t *testing.T) {
	mock, repo := newMock(t)
	shipped := sampleOrder()
	shipped.Status = domain.StatusShipped
	shipped.CourierName = "Delhivery"
	shipped.TrackingID = "DL123"

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE gateway_order_id = $1`)).
		WithArgs("order_N1", "SHIPPED", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(orderRows(t, shipped))

	courier, tid := "Delhivery", "DL123"
	got, err := repo.UpdateStatus(context.Background(), "order_N1", domain.StatusShipped,
		domain.TrackingPatch{CourierName: &courier, TrackingID: &tid})
	require.NoError(t, err)
	assert.Equal(t, "Delhivery", got.CourierName)
	assert.Equal(t, "DL123", got.TrackingID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryRepository_Flow(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	o := sampleOrder()
	o.ID = ""
	o.IdempotencyKey = "k1"
	require.NoError(t, repo.AddOrder(ctx, &o))

	dup := sampleOrder()
	dup.IdempotencyKey = "k1"
	dup.GatewayOrderID = "order_other"
	assert.ErrorIs(t, repo.AddOrder(ctx, &dup), ErrOrderAlreadyExists)

	byKey, err := repo.GetOrderByIdempotencyKey(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, o.ID, byKey.ID)

	byGateway, err := repo.GetOrderByID(ctx, "order_N1")
	require.NoError(t, err)
	assert.Equal(t, o.ID, byGateway.ID)

	_, changed, err := repo.MarkPaid(ctx, o.ID, domain.Payment{GatewayPaymentID: "pay_1", Verified: true})
	require.NoError(t, err)
	assert.True(t, changed)

	_, changed, err = repo.MarkPaid(ctx, o.ID, domain.Payment{GatewayPaymentID: "pay_1", Verified: true})
	require.NoError(t, err)
	assert.False(t, changed, "second mark must not flip the order again")
	assert.Len(t, repo.Payments(), 1)
}
