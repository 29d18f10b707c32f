package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// Sandbox stands in for the hosted gateway when no credentials are configured.
// It signs callbacks with the same scheme as the real gateway.
type Sandbox struct {
	keyID  string
	secret string
}

func NewSandbox(secret string) *Sandbox {
	return &Sandbox{keyID: "rzp_test_sandbox", secret: secret}
}

func (s *Sandbox) KeyID() string { return s.keyID }

func (s *Sandbox) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (Order, error) {
	if err := ctx.Err(); err != nil {
		return Order{}, err
	}
	id := "order_sandbox_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:14]
	return Order{ID: id, AmountMinor: amountMinor, Currency: currency, Receipt: receipt}, nil
}

func (s *Sandbox) Refund(ctx context.Context, paymentID string, amountMinor int64, _ string) (Refund, error) {
	if err := ctx.Err(); err != nil {
		return Refund{}, err
	}
	if paymentID == "" || amountMinor <= 0 {
		return Refund{}, ErrInvalidResponse
	}
	id := "rfnd_sandbox_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:14]
	return Refund{ID: id, PaymentID: paymentID, AmountMinor: amountMinor, Status: "processed"}, nil
}

func (s *Sandbox) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return verifySignature(orderID, paymentID, signature, s.secret)
}

// Sign produces the signature the hosted widget would hand back on success.
func (s *Sandbox) Sign(orderID, paymentID string) string {
	return Sign(s.secret, orderID, paymentID)
}

func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}
