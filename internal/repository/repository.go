package repository

import (
	"context"
	"errors"
	"time"

	"github.com/RaikyD/storefront-orders/internal/domain"
)

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderAlreadyExists = errors.New("order already exists")
	ErrReturnNotFound     = errors.New("return request not found")
	ErrReturnExists       = errors.New("return already requested for this item")
)

type OrderRepo interface {
	AddOrder(ctx context.Context, order *domain.Order) error
	// GetOrderByID matches either the local order id or the gateway order id.
	GetOrderByID(ctx context.Context, id string) (*domain.Order, error)
	GetOrderByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error)
	ListRecent(ctx context.Context, limit int) ([]domain.Order, error)
	// MarkPaid moves a PENDING_PAYMENT order to PAID and stores the verified
	// payment in one transaction. changed is false when the order was not
	// pending any more.
	MarkPaid(ctx context.Context, orderID string, p domain.Payment) (order *domain.Order, changed bool, err error)
	SavePayment(ctx context.Context, p domain.Payment) error
	UpdateStatus(ctx context.Context, id string, status domain.Status, patch domain.TrackingPatch) (*domain.Order, error)
	// Overview aggregates orders and pending returns; since starts "today".
	Overview(ctx context.Context, since time.Time) (*domain.Overview, error)
	Ping(ctx context.Context) error
}

type ReturnRepo interface {
	AddReturn(ctx context.Context, r *domain.ReturnRequest) error
	GetReturn(ctx context.Context, id string) (*domain.ReturnRequest, error)
	ListReturns(ctx context.Context, limit int) ([]domain.ReturnRequest, error)
	// TransitionReturn moves a request from one status to another and stores
	// res with it. changed is false when the request was not in from.
	TransitionReturn(ctx context.Context, id string, from, to domain.ReturnStatus, res domain.ReturnResolution) (r *domain.ReturnRequest, changed bool, err error)
}

// Store is everything the service keeps in one database.
type Store interface {
	OrderRepo
	ReturnRepo
}
