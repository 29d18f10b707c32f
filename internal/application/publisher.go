package application

import (
	"context"
	"sync"
	"time"

	"github.com/RaikyD/storefront-orders/internal/domain"
	"github.com/RaikyD/storefront-orders/internal/logger"
)

type StatusHandler interface {
	Handle(ctx context.Context, ev domain.StatusChanged) error
}

// DirectPublisher hands events to a handler in the background. It replaces
// the Kafka producer when no brokers are configured, so a slow mail relay
// never holds up the admin request that changed the status.
type DirectPublisher struct {
	h       StatusHandler
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewDirectPublisher(h StatusHandler, timeout time.Duration) *DirectPublisher {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &DirectPublisher{h: h, timeout: timeout}
}

func (p *DirectPublisher) PublishStatusChanged(ctx context.Context, ev domain.StatusChanged) error {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
		defer cancel()
		if err := p.h.Handle(hctx, ev); err != nil {
			logger.Warn("status event handling failed", "err", err, "order_id", ev.OrderID, "status", ev.Status)
		}
	}()
	return nil
}

// Wait blocks until every published event has been handled.
func (p *DirectPublisher) Wait() {
	p.wg.Wait()
}
