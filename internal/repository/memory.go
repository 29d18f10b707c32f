package repository

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/RaikyD/storefront-orders/internal/domain"
	"github.com/google/uuid"
)

// MemoryRepository keeps orders in process. The service falls back to it when
// no database is configured.
type MemoryRepository struct {
	mu       sync.RWMutex
	byID     map[string]*domain.Order
	byKey    map[string]string
	payments []domain.Payment
	returns  map[string]*domain.ReturnRequest
	now      func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:    make(map[string]*domain.Order),
		byKey:   make(map[string]string),
		returns: make(map[string]*domain.ReturnRequest),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryRepository) Ping(context.Context) error { return nil }

func (m *MemoryRepository) AddOrder(_ context.Context, o *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if o.IdempotencyKey != "" {
		if _, ok := m.byKey[o.IdempotencyKey]; ok {
			return ErrOrderAlreadyExists
		}
	}
	for _, existing := range m.byID {
		if existing.GatewayOrderID == o.GatewayOrderID {
			return ErrOrderAlreadyExists
		}
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	now := m.now()
	o.CreatedAt, o.UpdatedAt = now, now

	m.byID[o.ID] = cloneOrder(o)
	if o.IdempotencyKey != "" {
		m.byKey[o.IdempotencyKey] = o.ID
	}
	return nil
}

func (m *MemoryRepository) GetOrderByID(_ context.Context, id string) (*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o := m.lookup(id)
	if o == nil {
		return nil, ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (m *MemoryRepository) GetOrderByIdempotencyKey(_ context.Context, key string) (*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byKey[key]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return cloneOrder(m.byID[id]), nil
}

func (m *MemoryRepository) ListRecent(_ context.Context, limit int) ([]domain.Order, error) {
	m.mu.RLock()
	out := make([]domain.Order, 0, len(m.byID))
	for _, o := range m.byID {
		out = append(out, *cloneOrder(o))
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryRepository) MarkPaid(_ context.Context, orderID string, p domain.Payment) (*domain.Order, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byID[orderID]
	if !ok || o.Status != domain.StatusPendingPayment {
		return nil, false, nil
	}
	o.Status = domain.StatusPaid
	o.GatewayPaymentID = p.GatewayPaymentID
	o.UpdatedAt = m.now()
	m.payments = append(m.payments, p)
	return cloneOrder(o), true, nil
}

func (m *MemoryRepository) SavePayment(_ context.Context, p domain.Payment) error {
	m.mu.Lock()
	m.payments = append(m.payments, p)
	m.mu.Unlock()
	return nil
}

// Payments returns every recorded verification attempt.
func (m *MemoryRepository) Payments() []domain.Payment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.Payment(nil), m.payments...)
}

func (m *MemoryRepository) UpdateStatus(_ context.Context, id string, status domain.Status, patch domain.TrackingPatch) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := m.lookup(id)
	if o == nil {
		return nil, ErrOrderNotFound
	}
	o.Status = status
	o.Tracking = patch.Apply(o.Tracking)
	o.UpdatedAt = m.now()
	return cloneOrder(o), nil
}

func (m *MemoryRepository) lookup(id string) *domain.Order {
	if o, ok := m.byID[id]; ok {
		return o
	}
	for _, o := range m.byID {
		if o.GatewayOrderID == id {
			return o
		}
	}
	return nil
}

func cloneOrder(o *domain.Order) *domain.Order {
	c := *o
	c.Items = append([]domain.Item(nil), o.Items...)
	return &c
}

func (m *MemoryRepository) AddReturn(_ context.Context, r *domain.ReturnRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, held := range m.returns {
		if held.OrderID == r.OrderID && held.ProductID == r.ProductID && held.Status != domain.ReturnRejected {
			return ErrReturnExists
		}
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Photos == nil {
		r.Photos = []string{}
	}
	r.RequestedAt = m.now()
	m.returns[r.ID] = cloneReturn(r)
	return nil
}

func (m *MemoryRepository) GetReturn(_ context.Context, id string) (*domain.ReturnRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.returns[id]
	if !ok {
		return nil, ErrReturnNotFound
	}
	return cloneReturn(r), nil
}

func (m *MemoryRepository) ListReturns(_ context.Context, limit int) ([]domain.ReturnRequest, error) {
	m.mu.RLock()
	out := make([]domain.ReturnRequest, 0, len(m.returns))
	for _, r := range m.returns {
		out = append(out, *cloneReturn(r))
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].RequestedAt.Equal(out[j].RequestedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].RequestedAt.After(out[j].RequestedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryRepository) TransitionReturn(_ context.Context, id string, from, to domain.ReturnStatus, res domain.ReturnResolution) (*domain.ReturnRequest, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.returns[id]
	if !ok || r.Status != from {
		return nil, false, nil
	}
	r.Status = to
	if res.RefundID != "" {
		r.GatewayRefundID = res.RefundID
	}
	if res.AdminNote != "" {
		r.AdminNote = res.AdminNote
	}
	if !res.At.IsZero() {
		at := res.At
		r.ActedAt = &at
	}
	return cloneReturn(r), true, nil
}

func (m *MemoryRepository) Overview(_ context.Context, since time.Time) (*domain.Overview, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ov domain.Overview
	for _, o := range m.byID {
		ov.Orders.Total++
		today := !o.CreatedAt.Before(since)
		if today {
			ov.Orders.Today++
		}
		if slices.Contains(domain.RevenueStatuses, o.Status) {
			ov.Sales.TotalRevenue += o.Amount
			if today {
				ov.Sales.TodayRevenue += o.Amount
			}
		}
	}
	for _, r := range m.returns {
		if r.Status == domain.ReturnPending {
			ov.Returns.Pending++
		}
	}
	return &ov, nil
}

func cloneReturn(r *domain.ReturnRequest) *domain.ReturnRequest {
	c := *r
	c.Photos = append([]string{}, r.Photos...)
	if r.ActedAt != nil {
		at := *r.ActedAt
		c.ActedAt = &at
	}
	return &c
}
