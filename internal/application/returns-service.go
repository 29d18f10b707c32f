package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/RaikyD/storefront-orders/internal/domain"
	"github.com/RaikyD/storefront-orders/internal/gateway"
	"github.com/RaikyD/storefront-orders/internal/logger"
	"github.com/RaikyD/storefront-orders/internal/repository"
)

type Refunder interface {
	Refund(ctx context.Context, paymentID string, amountMinor int64, receipt string) (gateway.Refund, error)
}

type ReturnsService struct {
	orders  repository.OrderRepo
	returns repository.ReturnRepo
	refunds Refunder
	now     func() time.Time
}

func NewReturnsService(orders repository.OrderRepo, returns repository.ReturnRepo, r Refunder) *ReturnsService {
	return &ReturnsService{
		orders:  orders,
		returns: returns,
		refunds: r,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

type ReturnInput struct {
	OrderID   string   `json:"order_id"`
	ProductID string   `json:"product_id"`
	Email     string   `json:"email"`
	Reason    string   `json:"reason"`
	Photos    []string `json:"photos,omitempty"`
}

// RequestReturn opens a return for one line of a delivered order. The email
// must be the one the order was placed with.
func (s *ReturnsService) RequestReturn(ctx context.Context, in ReturnInput) (*domain.ReturnRequest, error) {
	reason := strings.TrimSpace(in.Reason)
	if len(reason) < domain.MinReturnReason {
		return nil, &domain.FieldError{Field: "reason", Reason: "please tell us why you are returning this item"}
	}
	if strings.TrimSpace(in.ProductID) == "" {
		return nil, &domain.FieldError{Field: "product_id", Reason: "product is required"}
	}

	o, err := s.orders.GetOrderByID(ctx, strings.TrimSpace(in.OrderID))
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(o.Email, strings.TrimSpace(in.Email)) {
		return nil, ErrNotOrderOwner
	}
	if o.Status != domain.StatusDelivered {
		return nil, fmt.Errorf("%w: order is %s", ErrNotDelivered, o.Status)
	}
	amount, ok := domain.RefundFor(o, in.ProductID)
	if !ok {
		return nil, ErrProductNotInOrder
	}

	r := &domain.ReturnRequest{
		OrderID:          o.ID,
		ProductID:        in.ProductID,
		Email:            o.Email,
		Reason:           reason,
		Photos:           in.Photos,
		Status:           domain.ReturnPending,
		RefundAmount:     amount,
		GatewayPaymentID: o.GatewayPaymentID,
	}
	if err := s.returns.AddReturn(ctx, r); err != nil {
		return nil, err
	}
	logger.Info("return requested", "return_id", r.ID, "order_id", o.ID, "product_id", r.ProductID, "refund_minor", amount)
	return r, nil
}

func (s *ReturnsService) List(ctx context.Context, limit int) ([]domain.ReturnRequest, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return s.returns.ListReturns(ctx, limit)
}

// Act approves or rejects a pending return. Approval refunds the line through
// the gateway; the request is claimed first so a refund is issued at most once.
func (s *ReturnsService) Act(ctx context.Context, id string, action domain.ReturnAction, note string) (*domain.ReturnRequest, error) {
	r, err := s.returns.GetReturn(ctx, id)
	if err != nil {
		return nil, err
	}
	note = strings.TrimSpace(note)

	switch action {
	case domain.ReturnReject:
		rejected, changed, err := s.returns.TransitionReturn(ctx, r.ID, domain.ReturnPending, domain.ReturnRejected,
			domain.ReturnResolution{AdminNote: note, At: s.now()})
		if err != nil {
			return nil, err
		}
		if !changed {
			return nil, ErrReturnProcessed
		}
		logger.Info("return rejected", "return_id", r.ID, "order_id", r.OrderID)
		return rejected, nil

	case domain.ReturnApprove:
		return s.approve(ctx, r, note)
	}
	return nil, fmt.Errorf("unknown return action %q", action)
}

func (s *ReturnsService) approve(ctx context.Context, r *domain.ReturnRequest, note string) (*domain.ReturnRequest, error) {
	if r.Status != domain.ReturnPending {
		return nil, ErrReturnProcessed
	}
	if r.GatewayPaymentID == "" || r.RefundAmount <= 0 {
		return nil, ErrRefundUnavailable
	}

	_, changed, err := s.returns.TransitionReturn(ctx, r.ID, domain.ReturnPending, domain.ReturnRefunding,
		domain.ReturnResolution{AdminNote: note})
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, ErrReturnProcessed
	}

	// the claim is held from here on, so bookkeeping must not stop with the request
	bg := context.WithoutCancel(ctx)
	rf, err := s.refunds.Refund(bg, r.GatewayPaymentID, r.RefundAmount, r.ID)
	if err != nil {
		if _, _, rerr := s.returns.TransitionReturn(bg, r.ID, domain.ReturnRefunding, domain.ReturnPending, domain.ReturnResolution{}); rerr != nil {
			logger.Error("release return claim failed", "err", rerr, "return_id", r.ID)
		}
		logger.Warn("refund failed", "err", err, "return_id", r.ID, "payment_id", r.GatewayPaymentID)
		return nil, fmt.Errorf("%w: %w", ErrRefundFailed, err)
	}

	done, changed, err := s.returns.TransitionReturn(bg, r.ID, domain.ReturnRefunding, domain.ReturnRefunded,
		domain.ReturnResolution{RefundID: rf.ID, At: s.now()})
	if err != nil || !changed {
		logger.Error("refund issued but not recorded", "err", err, "return_id", r.ID, "refund_id", rf.ID)
		if err == nil {
			err = fmt.Errorf("return %s left its refunding state", r.ID)
		}
		return nil, err
	}
	logger.Info("return refunded", "return_id", r.ID, "refund_id", rf.ID, "amount_minor", r.RefundAmount)
	return done, nil
}
