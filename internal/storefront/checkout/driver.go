package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

var ErrWidgetUnavailable = errors.New("payment widget unavailable")

// Prefill is the contact data shown in the hosted payment form.
type Prefill struct {
	Name    string
	Email   string
	Contact string
}

// Session describes one hosted payment attempt.
type Session struct {
	KeyID          string
	GatewayOrderID string
	AmountMinor    int64
	Currency       string
	Name           string
	Description    string
	Prefill        Prefill
}

// SuccessPayload is what the widget reports after a claimed payment. It is
// not trusted until the order service verifies it.
type SuccessPayload struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

type Callbacks struct {
	OnSuccess func(SuccessPayload)
	OnDismiss func()
}

// Widget is a loaded hosted payment UI. Exactly one callback fires per
// session, before or after Open returns.
type Widget interface {
	Open(ctx context.Context, s Session, cb Callbacks) error
}

type Loader interface {
	Load(ctx context.Context) (Widget, error)
}

type LoaderFunc func(ctx context.Context) (Widget, error)

func (f LoaderFunc) Load(ctx context.Context) (Widget, error) { return f(ctx) }

// PaymentDriver loads the widget once and opens sessions on it.
type PaymentDriver struct {
	loader Loader
	brand  string
	sf     singleflight.Group

	mu     sync.Mutex
	widget Widget
}

func NewPaymentDriver(l Loader, brand string) *PaymentDriver {
	return &PaymentDriver{loader: l, brand: brand}
}

// Widget returns the loaded widget, loading it on first use. Concurrent
// callers share one load; a failed load is retried on the next call.
func (d *PaymentDriver) Widget(ctx context.Context) (Widget, error) {
	d.mu.Lock()
	w := d.widget
	d.mu.Unlock()
	if w != nil {
		return w, nil
	}

	v, err, _ := d.sf.Do("widget", func() (interface{}, error) {
		d.mu.Lock()
		if d.widget != nil {
			w := d.widget
			d.mu.Unlock()
			return w, nil
		}
		d.mu.Unlock()

		w, err := d.loader.Load(ctx)
		if err != nil {
			return nil, err
		}
		d.mu.Lock()
		d.widget = w
		d.mu.Unlock()
		return w, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWidgetUnavailable, err)
	}
	return v.(Widget), nil
}

func (d *PaymentDriver) Open(ctx context.Context, in *Intent, p Prefill, cb Callbacks) error {
	w, err := d.Widget(ctx)
	if err != nil {
		return err
	}
	s := Session{
		KeyID:          in.KeyID,
		GatewayOrderID: in.GatewayOrderID,
		AmountMinor:    in.AmountMinor(),
		Currency:       in.Currency,
		Name:           d.brand,
		Description:    "Order " + in.OrderID,
		Prefill:        p,
	}
	return w.Open(ctx, s, cb)
}
