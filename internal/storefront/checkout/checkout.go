package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/RaikyD/storefront-orders/internal/domain"
	"github.com/RaikyD/storefront-orders/internal/logger"
	"github.com/RaikyD/storefront-orders/internal/storefront/cart"
	"github.com/google/uuid"
)

var ErrSubmissionInProgress = errors.New("order submission already in progress")

// State is a snapshot of the current checkout attempt.
// ClientReportedSuccess only records what the widget claimed; the order is
// paid only when ServerVerifiedPaid is true.
type State struct {
	Intent                *Intent
	ClientReportedSuccess bool
	ServerVerifiedPaid    bool
	Busy                  bool
	Err                   error
}

type Checkout struct {
	cart          *cart.Store
	creator       *IntentCreator
	driver        *PaymentDriver
	verifier      *Verifier
	verifyTimeout time.Duration
	onChange      func(State)

	mu                    sync.Mutex
	busy                  bool
	intent                *Intent
	clientReportedSuccess bool
	serverVerifiedPaid    bool
	lastErr               error

	attemptKey         string
	attemptFingerprint string
}

type Option func(*Checkout)

// WithStateHandler registers fn to receive the state after every payment
// callback.
func WithStateHandler(fn func(State)) Option {
	return func(c *Checkout) { c.onChange = fn }
}

func WithVerifyTimeout(d time.Duration) Option {
	return func(c *Checkout) { c.verifyTimeout = d }
}

func New(store *cart.Store, creator *IntentCreator, driver *PaymentDriver, verifier *Verifier, opts ...Option) *Checkout {
	c := &Checkout{
		cart:          store,
		creator:       creator,
		driver:        driver,
		verifier:      verifier,
		verifyTimeout: 30 * time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// PlaceOrder validates the form, provisions an order and opens the payment
// widget. While an attempt is in flight further calls fail with
// ErrSubmissionInProgress. The cart is cleared only after the order service
// verified the payment.
func (c *Checkout) PlaceOrder(ctx context.Context, f Form) error {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return ErrSubmissionInProgress
	}
	c.busy = true
	c.lastErr = nil
	c.mu.Unlock()

	f = f.normalized()
	lines := c.cart.Lines()
	if err := f.Validate(lines); err != nil {
		c.finish(err)
		return err
	}

	in, err := c.creator.Create(ctx, c.keyFor(lines, f), lines, f)
	if err != nil {
		logger.Warn("create order intent failed", "err", err)
		if errors.Is(err, ErrOrderClosed) {
			c.dropAttempt()
		}
		c.finish(err)
		return err
	}

	c.mu.Lock()
	c.intent = in
	c.clientReportedSuccess = false
	c.serverVerifiedPaid = false
	c.mu.Unlock()

	prefill := Prefill{Name: f.Address.FullName, Email: f.Email, Contact: f.Address.Phone}
	err = c.driver.Open(ctx, in, prefill, Callbacks{
		OnSuccess: func(p SuccessPayload) { c.handleSuccess(ctx, in, p) },
		OnDismiss: func() { c.handleDismiss(in) },
	})
	if err != nil {
		c.finish(err)
		return err
	}
	return nil
}

// keyFor reuses the idempotency key while the cart and form are unchanged, so
// a retried submission maps to the order already provisioned for it.
func (c *Checkout) keyFor(lines []cart.Line, f Form) string {
	fp, _ := json.Marshal(struct {
		Lines []cart.Line
		Form  Form
	}{lines, f})

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.attemptKey == "" || c.attemptFingerprint != string(fp) {
		c.attemptKey = uuid.NewString()
		c.attemptFingerprint = string(fp)
	}
	return c.attemptKey
}

func (c *Checkout) handleSuccess(ctx context.Context, in *Intent, p SuccessPayload) {
	c.mu.Lock()
	c.clientReportedSuccess = true
	c.mu.Unlock()

	// leaving the page must not abort a verification already under way
	vctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.verifyTimeout)
	defer cancel()
	err := c.verifier.Verify(vctx, in, p)

	c.mu.Lock()
	if err == nil {
		c.serverVerifiedPaid = true
		if c.intent == in {
			paid := *in
			paid.Status = domain.StatusPaid
			c.intent = &paid
		}
	}
	// a verified order is closed and an unverified one may already be PAID
	// server side, so neither may be replayed
	c.attemptKey, c.attemptFingerprint = "", ""
	c.mu.Unlock()

	if err == nil {
		if cerr := c.cart.Clear(); cerr != nil {
			logger.Warn("clear cart after payment failed", "err", cerr)
		}
		logger.Info("order paid", "order_id", in.OrderID)
	}
	c.finish(err)
}

func (c *Checkout) dropAttempt() {
	c.mu.Lock()
	c.attemptKey, c.attemptFingerprint = "", ""
	c.mu.Unlock()
}

func (c *Checkout) handleDismiss(in *Intent) {
	logger.Info("payment dismissed", "order_id", in.OrderID)
	c.finish(nil)
}

func (c *Checkout) finish(err error) {
	c.mu.Lock()
	c.busy = false
	c.lastErr = err
	st := c.stateLocked()
	c.mu.Unlock()
	if c.onChange != nil {
		c.onChange(st)
	}
}

func (c *Checkout) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Checkout) stateLocked() State {
	st := State{
		ClientReportedSuccess: c.clientReportedSuccess,
		ServerVerifiedPaid:    c.serverVerifiedPaid,
		Busy:                  c.busy,
		Err:                   c.lastErr,
	}
	if c.intent != nil {
		in := *c.intent
		st.Intent = &in
	}
	return st
}
