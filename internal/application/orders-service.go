package application

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/RaikyD/storefront-orders/internal/cache"
	"github.com/RaikyD/storefront-orders/internal/domain"
	"github.com/RaikyD/storefront-orders/internal/gateway"
	"github.com/RaikyD/storefront-orders/internal/logger"
	"github.com/RaikyD/storefront-orders/internal/repository"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultListLimit = 200
	MaxListLimit     = 1000
)

type Gateway interface {
	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (gateway.Order, error)
	VerifyPaymentSignature(orderID, paymentID, signature string) bool
	KeyID() string
}

type EventPublisher interface {
	PublishStatusChanged(ctx context.Context, ev domain.StatusChanged) error
}

type Options struct {
	PlatformFee float64
	Currency    string
	Policy      Policy
}

type OrdersService struct {
	repo      repository.OrderRepo
	gw        Gateway
	cache     cache.OrderCache
	publisher EventPublisher
	opts      Options
	sf        singleflight.Group
	now       func() time.Time
}

func NewOrdersService(r repository.OrderRepo, gw Gateway, c cache.OrderCache, pub EventPublisher, opts Options) *OrdersService {
	if opts.Currency == "" {
		opts.Currency = "INR"
	}
	if opts.Policy == "" {
		opts.Policy = PolicyPermissive
	}
	return &OrdersService{
		repo:      r,
		gw:        gw,
		cache:     c,
		publisher: pub,
		opts:      opts,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type CreateIntentRequest struct {
	Amount          float64                `json:"amount"`
	Email           string                 `json:"email"`
	Items           []domain.Item          `json:"items"`
	ShippingAddress domain.ShippingAddress `json:"shipping_address"`
	IdempotencyKey  string                 `json:"-"`
}

// Intent is what the storefront needs to open the payment widget.
type Intent struct {
	GatewayOrderID string `json:"order_id"`
	OrderID        string `json:"db_order_id"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	KeyID          string `json:"key_id"`
}

func (s *OrdersService) KeyID() string { return s.gw.KeyID() }

// CreateIntent validates the checkout payload, recomputes the payable amount
// and registers a gateway order plus a PENDING_PAYMENT order row. A repeated
// idempotency key returns the intent created the first time while that order
// still awaits payment, and ErrOrderClosed once it was paid or cancelled.
func (s *OrdersService) CreateIntent(ctx context.Context, req CreateIntentRequest) (*Intent, error) {
	if err := domain.ValidateEmail(req.Email); err != nil {
		return nil, err
	}
	if err := req.ShippingAddress.Validate(); err != nil {
		return nil, err
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyCart
	}
	for _, it := range req.Items {
		if strings.TrimSpace(it.ProductID) == "" || it.Quantity <= 0 || it.Price < 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidItem, it.ProductID)
		}
	}

	amount := domain.PayableAmount(req.Items, s.opts.PlatformFee)
	if int64(math.Round(req.Amount)) != amount {
		logger.Warn("create intent amount mismatch", "client", req.Amount, "server", amount)
		return nil, fmt.Errorf("%w: expected %d", ErrAmountMismatch, amount)
	}

	if req.IdempotencyKey != "" {
		existing, err := s.repo.GetOrderByIdempotencyKey(ctx, req.IdempotencyKey)
		if err == nil {
			return s.replay(existing)
		}
		if !errors.Is(err, repository.ErrOrderNotFound) {
			return nil, err
		}
	}

	id := uuid.NewString()
	gwOrder, err := s.gw.CreateOrder(ctx, domain.ToMinor(amount), s.opts.Currency, id)
	if err != nil {
		return nil, err
	}

	o := &domain.Order{
		ID:              id,
		IdempotencyKey:  req.IdempotencyKey,
		GatewayOrderID:  gwOrder.ID,
		Email:           strings.TrimSpace(req.Email),
		Amount:          amount,
		AmountMinor:     domain.ToMinor(amount),
		Currency:        s.opts.Currency,
		Items:           req.Items,
		ShippingAddress: req.ShippingAddress,
		Status:          domain.StatusPendingPayment,
	}
	if err := s.repo.AddOrder(ctx, o); err != nil {
		if errors.Is(err, repository.ErrOrderAlreadyExists) && req.IdempotencyKey != "" {
			if existing, e := s.repo.GetOrderByIdempotencyKey(ctx, req.IdempotencyKey); e == nil {
				return s.replay(existing)
			}
		}
		logger.Warn("add order failed", "err", err, "gateway_order_id", gwOrder.ID)
		return nil, err
	}

	logger.Info("order intent created", "order_id", o.ID, "gateway_order_id", o.GatewayOrderID, "amount", amount)
	return s.intentFor(o), nil
}

// replay hands back the intent of an earlier attempt. Reopening the widget for
// an order that is paid or cancelled would capture money nobody can settle.
func (s *OrdersService) replay(o *domain.Order) (*Intent, error) {
	if o.Status != domain.StatusPendingPayment {
		logger.Warn("create intent replay on closed order", "order_id", o.ID, "status", o.Status)
		return nil, fmt.Errorf("%w: %s is %s", ErrOrderClosed, o.ID, o.Status)
	}
	logger.Info("create intent replayed", "order_id", o.ID, "key", o.IdempotencyKey)
	return s.intentFor(o), nil
}

func (s *OrdersService) intentFor(o *domain.Order) *Intent {
	return &Intent{
		GatewayOrderID: o.GatewayOrderID,
		OrderID:        o.ID,
		Amount:         o.Amount,
		Currency:       o.Currency,
		KeyID:          s.gw.KeyID(),
	}
}

type OrderMeta struct {
	DBOrderID string  `json:"db_order_id,omitempty"`
	Email     string  `json:"email,omitempty"`
	Amount    float64 `json:"amount,omitempty"`
}

type VerifyRequest struct {
	GatewayOrderID   string     `json:"razorpay_order_id"`
	GatewayPaymentID string     `json:"razorpay_payment_id"`
	Signature        string     `json:"razorpay_signature"`
	Meta             *OrderMeta `json:"order_meta,omitempty"`
}

// VerifyPayment checks the gateway signature and moves the order to PAID
// exactly once. A failed check is recorded and the order stays
// PENDING_PAYMENT. Verifying the same payment again returns the paid order.
func (s *OrdersService) VerifyPayment(ctx context.Context, req VerifyRequest) (*domain.Order, error) {
	lookup := req.GatewayOrderID
	if req.Meta != nil && req.Meta.DBOrderID != "" {
		lookup = req.Meta.DBOrderID
	}
	o, err := s.repo.GetOrderByID(ctx, lookup)
	if err != nil {
		return nil, err
	}
	if o.GatewayOrderID != req.GatewayOrderID {
		return nil, fmt.Errorf("%w: gateway order %s", ErrPaymentMismatch, req.GatewayOrderID)
	}

	attempt := domain.Payment{
		OrderID:          o.ID,
		GatewayOrderID:   req.GatewayOrderID,
		GatewayPaymentID: req.GatewayPaymentID,
		Signature:        req.Signature,
		Meta:             metaMap(req.Meta),
		CreatedAt:        s.now(),
	}

	if !s.gw.VerifyPaymentSignature(req.GatewayOrderID, req.GatewayPaymentID, req.Signature) {
		s.recordFailed(ctx, attempt, "signature")
		return nil, ErrSignatureMismatch
	}
	if req.Meta != nil && req.Meta.Amount != 0 && int64(math.Round(req.Meta.Amount)) != o.Amount {
		s.recordFailed(ctx, attempt, "amount")
		return nil, fmt.Errorf("%w: amount", ErrPaymentMismatch)
	}

	if o.Status != domain.StatusPendingPayment {
		return s.settled(o, req.GatewayPaymentID)
	}

	attempt.Verified = true
	paid, changed, err := s.repo.MarkPaid(ctx, o.ID, attempt)
	if err != nil {
		return nil, err
	}
	if !changed {
		// lost a race with a concurrent verification
		cur, err := s.repo.GetOrderByID(ctx, o.ID)
		if err != nil {
			return nil, err
		}
		return s.settled(cur, req.GatewayPaymentID)
	}

	s.refresh(ctx, paid)
	logger.Info("payment verified", "order_id", paid.ID, "payment_id", req.GatewayPaymentID)
	return paid, nil
}

func (s *OrdersService) settled(o *domain.Order, paymentID string) (*domain.Order, error) {
	if o.GatewayPaymentID == paymentID {
		return o, nil
	}
	return nil, ErrAlreadySettled
}

func (s *OrdersService) recordFailed(ctx context.Context, p domain.Payment, reason string) {
	logger.Warn("payment verification failed", "order_id", p.OrderID, "reason", reason)
	p.Verified = false
	if err := s.repo.SavePayment(ctx, p); err != nil {
		logger.Warn("save failed payment attempt", "err", err, "order_id", p.OrderID)
	}
}

func metaMap(m *OrderMeta) map[string]any {
	if m == nil {
		return nil
	}
	return map[string]any{"db_order_id": m.DBOrderID, "email": m.Email, "amount": m.Amount}
}

// GetByID serves reads from the cache and collapses concurrent misses for the
// same id into one repository call.
func (s *OrdersService) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	if o, err := s.cache.Get(ctx, id); err == nil {
		return o, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		logger.Warn("order cache get failed", "err", err, "id", id)
	}

	v, err, _ := s.sf.Do(id, func() (interface{}, error) {
		o, err := s.repo.GetOrderByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, o); err != nil {
			logger.Warn("order cache set failed", "err", err, "id", id)
		}
		return o, nil
	})
	if err != nil {
		return nil, err
	}
	o := *v.(*domain.Order)
	return &o, nil
}

func (s *OrdersService) List(ctx context.Context, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return s.repo.ListRecent(ctx, limit)
}

// UpdateStatus applies an admin status change and publishes it. Publishing
// failures are logged; the stored change stands.
func (s *OrdersService) UpdateStatus(ctx context.Context, id string, status domain.Status, patch domain.TrackingPatch) (*domain.Order, error) {
	if !status.AdminSettable() {
		return nil, fmt.Errorf("%w: %s", ErrStatusNotSettable, status)
	}
	cur, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.opts.Policy.Allows(cur.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrTransitionNotAllowed, cur.Status, status)
	}

	updated, err := s.repo.UpdateStatus(ctx, cur.ID, status, patch)
	if err != nil {
		return nil, err
	}
	s.refresh(ctx, updated)
	logger.Info("order status updated", "order_id", updated.ID, "from", cur.Status, "to", updated.Status)

	ev := domain.NewStatusChanged(updated, cur.Status, s.now())
	if err := s.publisher.PublishStatusChanged(ctx, ev); err != nil {
		logger.Warn("publish status change failed", "err", err, "order_id", updated.ID)
	}
	return updated, nil
}

// refresh writes a just-updated order through to the cache. A miss filled
// concurrently from an older read cannot replace it because the cache keeps
// the later UpdatedAt.
func (s *OrdersService) refresh(ctx context.Context, o *domain.Order) {
	err := s.cache.Set(ctx, o)
	if err == nil {
		return
	}
	logger.Warn("order cache refresh failed", "err", err, "order_id", o.ID)
	if err := s.cache.Delete(ctx, o.ID, o.GatewayOrderID); err != nil {
		logger.Warn("order cache delete failed", "err", err, "order_id", o.ID)
	}
}

// Overview summarises orders and pending returns for the admin dashboard.
// "Today" starts at midnight UTC.
func (s *OrdersService) Overview(ctx context.Context) (*domain.Overview, error) {
	now := s.now()
	ov, err := s.repo.Overview(ctx, domain.StartOfDay(now))
	if err != nil {
		return nil, err
	}
	ov.LastUpdated = now
	return ov, nil
}

// RestoreCache warms the cache with the most recent orders.
func (s *OrdersService) RestoreCache(ctx context.Context, limit int) error {
	orders, err := s.List(ctx, limit)
	if err != nil {
		return err
	}
	for i := range orders {
		if err := s.cache.Set(ctx, &orders[i]); err != nil {
			return fmt.Errorf("restore cache: %w", err)
		}
	}
	logger.Info("order cache restored", "count", len(orders))
	return nil
}

func (s *OrdersService) Ping(ctx context.Context) error {
	if err := s.repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository: %w", err)
	}
	if err := s.cache.Ping(ctx); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	return nil
}
