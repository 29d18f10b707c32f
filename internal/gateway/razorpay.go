package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RaikyD/storefront-orders/internal/logger"
	razorpay "github.com/razorpay/razorpay-go"
	"github.com/sony/gobreaker/v2"
)

type orderCreator interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type paymentRefunder interface {
	Refund(paymentID string, amount int, data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type Razorpay struct {
	keyID    string
	secret   string
	orders   orderCreator
	payments paymentRefunder
	cb       *gobreaker.CircuitBreaker[map[string]interface{}]
}

func NewRazorpay(keyID, secret string) *Razorpay {
	client := razorpay.NewClient(keyID, secret)
	return newRazorpay(keyID, secret, client.Order, client.Payment)
}

func newRazorpay(keyID, secret string, orders orderCreator, payments paymentRefunder) *Razorpay {
	st := gobreaker.Settings{
		Name:        "razorpay",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	}
	return &Razorpay{
		keyID:    keyID,
		secret:   secret,
		orders:   orders,
		payments: payments,
		cb:       gobreaker.NewCircuitBreaker[map[string]interface{}](st),
	}
}

func (r *Razorpay) KeyID() string { return r.keyID }

func (r *Razorpay) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (Order, error) {
	if err := ctx.Err(); err != nil {
		return Order{}, err
	}
	data := map[string]interface{}{
		"amount":          amountMinor,
		"currency":        currency,
		"receipt":         receipt,
		"payment_capture": 1,
	}

	resp, err := r.cb.Execute(func() (map[string]interface{}, error) {
		return r.orders.Create(data, nil)
	})
	if breakerRejected(err) {
		return Order{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err != nil {
		return Order{}, fmt.Errorf("create razorpay order: %w", err)
	}

	id, _ := resp["id"].(string)
	if id == "" {
		return Order{}, ErrInvalidResponse
	}
	logger.Info("created razorpay order", "id", id, "amount_minor", amountMinor)
	return Order{ID: id, AmountMinor: amountMinor, Currency: currency, Receipt: receipt}, nil
}

func (r *Razorpay) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return verifySignature(orderID, paymentID, signature, r.secret)
}

// Refund returns amountMinor of a captured payment. receipt ties the refund to
// the local return request.
func (r *Razorpay) Refund(ctx context.Context, paymentID string, amountMinor int64, receipt string) (Refund, error) {
	if err := ctx.Err(); err != nil {
		return Refund{}, err
	}
	data := map[string]interface{}{
		"speed":   "normal",
		"receipt": receipt,
	}

	resp, err := r.cb.Execute(func() (map[string]interface{}, error) {
		return r.payments.Refund(paymentID, int(amountMinor), data, nil)
	})
	if breakerRejected(err) {
		return Refund{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err != nil {
		return Refund{}, fmt.Errorf("create razorpay refund: %w", err)
	}

	id, _ := resp["id"].(string)
	if id == "" {
		return Refund{}, ErrInvalidResponse
	}
	status, _ := resp["status"].(string)
	logger.Info("created razorpay refund", "id", id, "payment_id", paymentID, "amount_minor", amountMinor)
	return Refund{ID: id, PaymentID: paymentID, AmountMinor: amountMinor, Status: status}, nil
}

func breakerRejected(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
