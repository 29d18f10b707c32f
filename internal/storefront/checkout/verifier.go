package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/RaikyD/storefront-orders/internal/logger"
	"github.com/RaikyD/storefront-orders/internal/storefront/api"
)

// ErrNotVerified means the widget claimed success but the order service did
// not confirm the payment. The order stays PENDING_PAYMENT.
var ErrNotVerified = errors.New("payment captured but not verified")

type Verifier struct {
	api OrderAPI
}

func NewVerifier(a OrderAPI) *Verifier {
	return &Verifier{api: a}
}

// Verify asks the order service to check p. Only a "verified" answer returns
// nil; every other outcome wraps ErrNotVerified.
func (v *Verifier) Verify(ctx context.Context, in *Intent, p SuccessPayload) error {
	if p.GatewayOrderID != in.GatewayOrderID {
		return fmt.Errorf("%w: callback for order %s, expected %s", ErrNotVerified, p.GatewayOrderID, in.GatewayOrderID)
	}
	resp, err := v.api.VerifyPayment(ctx, api.VerifyRequest{
		GatewayOrderID:   p.GatewayOrderID,
		GatewayPaymentID: p.GatewayPaymentID,
		Signature:        p.Signature,
		Meta: api.OrderMeta{
			DBOrderID: in.OrderID,
			Email:     in.Email,
			Amount:    in.Amount,
		},
	})
	if err != nil {
		logger.Warn("payment verification failed", "order_id", in.OrderID, "err", err)
		return fmt.Errorf("%w: %w", ErrNotVerified, err)
	}
	if resp.Status != "verified" {
		return fmt.Errorf("%w: status %q", ErrNotVerified, resp.Status)
	}
	return nil
}
