package cache

import (
	"context"
	"errors"

	"github.com/RaikyD/storefront-orders/internal/domain"
)

type OrderCache interface {
	Get(ctx context.Context, id string) (*domain.Order, error)
	// Set stores o under its id and gateway order id unless the cache already
	// holds a version with a later UpdatedAt.
	Set(ctx context.Context, o *domain.Order) error
	Delete(ctx context.Context, ids ...string) error
	Ping(ctx context.Context) error
}

var ErrCacheMiss = errors.New("cache miss")
