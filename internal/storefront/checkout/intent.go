package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/RaikyD/storefront-orders/internal/domain"
	"github.com/RaikyD/storefront-orders/internal/storefront/api"
	"github.com/RaikyD/storefront-orders/internal/storefront/cart"
)

// OrderAPI is the part of the order service checkout talks to.
type OrderAPI interface {
	CreateOrder(ctx context.Context, idempotencyKey string, req api.CreateOrderRequest) (*api.CreateOrderResponse, error)
	VerifyPayment(ctx context.Context, req api.VerifyRequest) (*api.VerifyResponse, error)
}

// ErrOrderClosed means the order provisioned for this attempt was already paid
// or cancelled. A new attempt is needed.
var ErrOrderClosed = errors.New("order for this attempt is closed")

// Intent is a provisioned order waiting for payment.
type Intent struct {
	OrderID        string
	GatewayOrderID string
	Amount         int64
	Currency       string
	KeyID          string
	Email          string
	Status         domain.Status
}

// AmountMinor is the amount in the gateway's minor unit.
func (in *Intent) AmountMinor() int64 {
	return domain.ToMinor(in.Amount)
}

type IntentCreator struct {
	api OrderAPI
	fee float64
}

func NewIntentCreator(a OrderAPI, platformFee float64) *IntentCreator {
	return &IntentCreator{api: a, fee: platformFee}
}

// Amount is what the shopper pays for lines.
func (c *IntentCreator) Amount(lines []cart.Line) int64 {
	return domain.PayableAmount(cart.Items(lines), c.fee)
}

// Create provisions an order for a validated form. On error nothing is
// assumed to exist on the server.
func (c *IntentCreator) Create(ctx context.Context, idempotencyKey string, lines []cart.Line, f Form) (*Intent, error) {
	resp, err := c.api.CreateOrder(ctx, idempotencyKey, api.CreateOrderRequest{
		Amount:          c.Amount(lines),
		Email:           f.Email,
		Items:           cart.Items(lines),
		ShippingAddress: f.Address,
	})
	if api.IsStatus(err, http.StatusConflict) {
		return nil, fmt.Errorf("%w: %w", ErrOrderClosed, err)
	}
	if err != nil {
		return nil, err
	}
	return &Intent{
		OrderID:        resp.DBOrderID,
		GatewayOrderID: resp.OrderID,
		Amount:         resp.Amount,
		Currency:       resp.Currency,
		KeyID:          resp.KeyID,
		Email:          f.Email,
		Status:         domain.StatusPendingPayment,
	}, nil
}
