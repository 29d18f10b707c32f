package checkout

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// SandboxWidget stands in for the hosted widget when the order service runs
// with the sandbox gateway. It answers every session immediately, either with
// a payment signed by Sign or with a dismissal.
type SandboxWidget struct {
	Sign    func(orderID, paymentID string) string
	Dismiss bool

	mu       sync.Mutex
	sessions []Session
}

func (w *SandboxWidget) Open(_ context.Context, s Session, cb Callbacks) error {
	w.mu.Lock()
	w.sessions = append(w.sessions, s)
	w.mu.Unlock()

	if w.Dismiss {
		cb.OnDismiss()
		return nil
	}
	paymentID := "pay_sandbox_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:14]
	cb.OnSuccess(SuccessPayload{
		GatewayOrderID:   s.GatewayOrderID,
		GatewayPaymentID: paymentID,
		Signature:        w.Sign(s.GatewayOrderID, paymentID),
	})
	return nil
}

// Sessions returns every session opened so far.
func (w *SandboxWidget) Sessions() []Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Session(nil), w.sessions...)
}
