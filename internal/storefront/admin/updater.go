package admin

import (
	"context"
	"fmt"

	"github.com/RaikyD/storefront-orders/internal/domain"
	"github.com/RaikyD/storefront-orders/internal/storefront/api"
)

type OrdersAPI interface {
	ListOrders(ctx context.Context) ([]domain.Order, error)
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	PatchOrderStatus(ctx context.Context, id string, patch api.StatusPatch) (*domain.Order, error)
}

type Updater struct {
	api OrdersAPI
}

func NewUpdater(a OrdersAPI) *Updater {
	return &Updater{api: a}
}

// SetStatus writes status and any non-nil tracking field. Concurrent edits
// from two sessions are last write wins.
func (u *Updater) SetStatus(ctx context.Context, orderID string, status domain.Status, tracking *domain.TrackingPatch) (*domain.Order, error) {
	if !status.AdminSettable() {
		return nil, fmt.Errorf("status %s cannot be set from the admin panel", status)
	}
	patch := api.StatusPatch{Status: status}
	if tracking != nil {
		patch.TrackingPatch = *tracking
	}
	return u.api.PatchOrderStatus(ctx, orderID, patch)
}

func (u *Updater) Order(ctx context.Context, orderID string) (*domain.Order, error) {
	return u.api.GetOrder(ctx, orderID)
}
