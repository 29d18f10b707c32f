package gateway

import (
	"errors"

	"github.com/razorpay/razorpay-go/utils"
)

var (
	ErrUnavailable     = errors.New("payment gateway unavailable")
	ErrInvalidResponse = errors.New("payment gateway returned an invalid response")
)

// Order is the gateway-side payment intent.
type Order struct {
	ID          string
	AmountMinor int64
	Currency    string
	Receipt     string
}

// Refund is a gateway refund against a captured payment.
type Refund struct {
	ID          string
	PaymentID   string
	AmountMinor int64
	Status      string
}

// verifySignature checks the HMAC-SHA256 of "order_id|payment_id" keyed with
// the account secret.
func verifySignature(orderID, paymentID, signature, secret string) bool {
	if orderID == "" || paymentID == "" || signature == "" || secret == "" {
		return false
	}
	params := map[string]interface{}{
		"razorpay_order_id":   orderID,
		"razorpay_payment_id": paymentID,
	}
	return utils.VerifyPaymentSignature(params, signature, secret)
}
