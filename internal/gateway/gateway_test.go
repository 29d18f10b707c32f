package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrders struct {
	calls int
	resp  map[string]interface{}
	err   error
	last  map[string]interface{}
}

func (f *fakeOrders) Create(data map[string]interface{}, _ map[string]string) (map[string]interface{}, error) {
	f.calls++
	f.last = data
	return f.resp, f.err
}

type fakePayments struct {
	calls     int
	resp      map[string]interface{}
	err       error
	paymentID string
	amount    int
	last      map[string]interface{}
}

func (f *fakePayments) Refund(paymentID string, amount int, data map[string]interface{}, _ map[string]string) (map[string]interface{}, error) {
	f.calls++
	f.paymentID, f.amount, f.last = paymentID, amount, data
	return f.resp, f.err
}

func TestRazorpay_CreateOrder(t *testing.T) {
	fake := &fakeOrders{resp: map[string]interface{}{"id": "order_ABC", "amount": float64(130700)}}
	rp := newRazorpay("rzp_test_key", "secret", fake, &fakePayments{})

	o, err := rp.CreateOrder(context.Background(), 130700, "INR", "local-1")
	require.NoError(t, err)
	assert.Equal(t, "order_ABC", o.ID)
	assert.Equal(t, int64(130700), fake.last["amount"])
	assert.Equal(t, "INR", fake.last["currency"])
	assert.Equal(t, 1, fake.last["payment_capture"])
	assert.Equal(t, "rzp_test_key", rp.KeyID())
}

func TestRazorpay_CreateOrder_MissingID(t *testing.T) {
	rp := newRazorpay("k", "s", &fakeOrders{resp: map[string]interface{}{}}, &fakePayments{})
	_, err := rp.CreateOrder(context.Background(), 100, "INR", "r")
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestRazorpay_BreakerOpens(t *testing.T) {
	fake := &fakeOrders{err: errors.New("boom")}
	rp := newRazorpay("k", "s", fake, &fakePayments{})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := rp.CreateOrder(ctx, 100, "INR", "r")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUnavailable)
	}
	_, err := rp.CreateOrder(ctx, 100, "INR", "r")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 5, fake.calls, "open breaker must not reach the gateway")
}

func TestSignatureVerification(t *testing.T) {
	rp := newRazorpay("k", "topsecret", &fakeOrders{}, &fakePayments{})
	sig := Sign("topsecret", "order_1", "pay_1")

	assert.True(t, rp.VerifyPaymentSignature("order_1", "pay_1", sig))
	assert.False(t, rp.VerifyPaymentSignature("order_1", "pay_2", sig))
	assert.False(t, rp.VerifyPaymentSignature("order_1", "pay_1", "forged"))
	assert.False(t, rp.VerifyPaymentSignature("order_1", "pay_1", Sign("other", "order_1", "pay_1")))
	assert.False(t, rp.VerifyPaymentSignature("", "", ""))
}

func TestSandbox(t *testing.T) {
	sb := NewSandbox("dev-secret")
	o, err := sb.CreateOrder(context.Background(), 500, "INR", "r1")
	require.NoError(t, err)
	assert.Contains(t, o.ID, "order_sandbox_")

	sig := sb.Sign(o.ID, "pay_x")
	assert.True(t, sb.VerifyPaymentSignature(o.ID, "pay_x", sig))
	assert.False(t, sb.VerifyPaymentSignature(o.ID, "pay_y", sig))
}

func TestRazorpay_Refund(t *testing.T) {
	pay := &fakePayments{resp: map[string]interface{}{"id": "rfnd_1", "status": "processed"}}
	rp := newRazorpay("k", "s", &fakeOrders{}, pay)

	rf, err := rp.Refund(context.Background(), "pay_1", 100000, "ret-1")
	require.NoError(t, err)
	assert.Equal(t, "rfnd_1", rf.ID)
	assert.Equal(t, "processed", rf.Status)
	assert.Equal(t, "pay_1", pay.paymentID)
	assert.Equal(t, 100000, pay.amount)
	assert.Equal(t, "ret-1", pay.last["receipt"])

	pay.resp = map[string]interface{}{}
	_, err = rp.Refund(context.Background(), "pay_1", 100, "ret-2")
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestRazorpay_RefundSharesBreaker(t *testing.T) {
	pay := &fakePayments{err: errors.New("gateway 500")}
	orders := &fakeOrders{resp: map[string]interface{}{"id": "order_1"}}
	rp := newRazorpay("k", "s", orders, pay)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := rp.Refund(ctx, "pay_1", 100, "r")
		require.Error(t, err)
	}
	_, err := rp.CreateOrder(ctx, 100, "INR", "r")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Zero(t, orders.calls)
}

func TestSandbox_Refund(t *testing.T) {
	sb := NewSandbox("dev-secret")
	rf, err := sb.Refund(context.Background(), "pay_1", 50000, "ret-1")
	require.NoError(t, err)
	assert.Contains(t, rf.ID, "rfnd_sandbox_")
	assert.Equal(t, int64(50000), rf.AmountMinor)

	_, err = sb.Refund(context.Background(), "", 50000, "ret-1")
	assert.ErrorIs(t, err, ErrInvalidResponse)
}
