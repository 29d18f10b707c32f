package cache

import (
	"context"
	"sync"

	"github.com/RaikyD/storefront-orders/internal/domain"
)

// MemoryCache indexes each order under its local id and its gateway order id.
type MemoryCache struct {
	mu   sync.RWMutex
	byID map[string]*domain.Order
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{byID: make(map[string]*domain.Order)}
}

func (c *MemoryCache) Get(_ context.Context, id string) (*domain.Order, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	o, ok := c.byID[id]
	if !ok {
		return nil, ErrCacheMiss
	}
	cp := *o
	return &cp, nil
}

func (c *MemoryCache) Set(_ context.Context, o *domain.Order) error {
	cp := *o
	c.mu.Lock()
	if held, ok := c.byID[o.ID]; ok && held.UpdatedAt.After(o.UpdatedAt) {
		c.mu.Unlock()
		return nil
	}
	c.byID[o.ID] = &cp
	if o.GatewayOrderID != "" {
		c.byID[o.GatewayOrderID] = &cp
	}
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, ids ...string) error {
	c.mu.Lock()
	for _, id := range ids {
		delete(c.byID, id)
	}
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Ping(context.Context) error { return nil }
