package admin

import (
	"context"
	"time"

	"github.com/RaikyD/storefront-orders/internal/domain"
	"github.com/RaikyD/storefront-orders/internal/logger"
)

const DefaultPollInterval = 5 * time.Second

// Snapshot is one fetch of the order list.
type Snapshot struct {
	Orders []domain.Order
	Err    error
	At     time.Time
}

type Poller struct {
	api      OrdersAPI
	interval time.Duration
}

func NewPoller(a OrdersAPI, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{api: a, interval: interval}
}

// Run fetches immediately and then on every tick until ctx is done. A failed
// fetch is reported and polling continues.
func (p *Poller) Run(ctx context.Context, fn func(Snapshot)) {
	t := time.NewTicker(p.interval)
	defer t.Stop()

	for {
		orders, err := p.api.ListOrders(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			logger.Warn("order poll failed", "err", err)
		}
		fn(Snapshot{Orders: orders, Err: err, At: time.Now()})

		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// Subscribe runs the poller in the background and delivers snapshots on the
// returned channel, which is closed when ctx is done. Slow readers miss
// intermediate snapshots rather than block polling.
func (p *Poller) Subscribe(ctx context.Context) <-chan Snapshot {
	ch := make(chan Snapshot, 1)
	go func() {
		defer close(ch)
		p.Run(ctx, func(s Snapshot) {
			select {
			case ch <- s:
			default:
				select {
				case <-ch:
				default:
				}
				select {
				case ch <- s:
				default:
				}
			}
		})
	}()
	return ch
}
