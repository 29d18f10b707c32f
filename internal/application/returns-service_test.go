package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/RaikyD/storefront-orders/internal/domain"
	"github.com/RaikyD/storefront-orders/internal/gateway"
	"github.com/RaikyD/storefront-orders/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRefunder struct {
	calls atomic.Int32
	err   error
	delay time.Duration
}

func (r *countingRefunder) Refund(_ context.Context, paymentID string, amountMinor int64, _ string) (gateway.Refund, error) {
	n := r.calls.Add(1)
	time.Sleep(r.delay)
	if r.err != nil {
		return gateway.Refund{}, r.err
	}
	return gateway.Refund{ID: fmt.Sprintf("rfnd_%d", n), PaymentID: paymentID, AmountMinor: amountMinor}, nil
}

// deliveredOrder places, pays and delivers an order and returns its intent.
func (f *fixture) deliveredOrder(t *testing.T) *Intent {
	t.Helper()
	ctx := context.Background()
	in, err := f.svc.CreateIntent(ctx, validRequest())
	require.NoError(t, err)
	_, err = f.pay(t, in, "pay_1")
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, in.OrderID, domain.StatusDelivered, domain.TrackingPatch{})
	require.NoError(t, err)
	return in
}

func returnInput(in *Intent) ReturnInput {
	return ReturnInput{OrderID: in.OrderID, ProductID: "p1", Email: "asha@example.com", Reason: "too small"}
}

func TestRequestReturn(t *testing.T) {
	f := newFixture(PolicyPermissive)
	rs := NewReturnsService(f.repo, f.repo, &countingRefunder{})
	in := f.deliveredOrder(t)

	r, err := rs.RequestReturn(context.Background(), returnInput(in))
	require.NoError(t, err)
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, domain.ReturnPending, r.Status)
	assert.Equal(t, int64(100000), r.RefundAmount, "two units at 500 in paise")
	assert.Equal(t, "pay_1", r.GatewayPaymentID)
	assert.Equal(t, in.OrderID, r.OrderID)
	assert.NotNil(t, r.Photos)

	_, err = rs.RequestReturn(context.Background(), returnInput(in))
	assert.ErrorIs(t, err, ErrReturnExists)
}

func TestRequestReturn_Rejects(t *testing.T) {
	f := newFixture(PolicyPermissive)
	rs := NewReturnsService(f.repo, f.repo, &countingRefunder{})
	ctx := context.Background()

	pending, err := f.svc.CreateIntent(ctx, validRequest())
	require.NoError(t, err)
	_, err = rs.RequestReturn(ctx, returnInput(pending))
	assert.ErrorIs(t, err, ErrNotDelivered)

	in := f.deliveredOrder(t)

	bad := returnInput(in)
	bad.Email = "someone@example.com"
	_, err = rs.RequestReturn(ctx, bad)
	assert.ErrorIs(t, err, ErrNotOrderOwner)

	bad = returnInput(in)
	bad.ProductID = "p9"
	_, err = rs.RequestReturn(ctx, bad)
	assert.ErrorIs(t, err, ErrProductNotInOrder)

	bad = returnInput(in)
	bad.Reason = "no"
	_, err = rs.RequestReturn(ctx, bad)
	fe, ok := domain.AsFieldError(err)
	require.True(t, ok)
	assert.Equal(t, "reason", fe.Field)

	bad = returnInput(in)
	bad.OrderID = "missing"
	_, err = rs.RequestReturn(ctx, bad)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	list, err := rs.List(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestReturnsAct_ApproveRefundsOnce(t *testing.T) {
	f := newFixture(PolicyPermissive)
	refunds := &countingRefunder{}
	rs := NewReturnsService(f.repo, f.repo, refunds)
	ctx := context.Background()
	r, err := rs.RequestReturn(ctx, returnInput(f.deliveredOrder(t)))
	require.NoError(t, err)

	done, err := rs.Act(ctx, r.ID, domain.ReturnApprove, "picked up")
	require.NoError(t, err)
	assert.Equal(t, domain.ReturnRefunded, done.Status)
	assert.Equal(t, "rfnd_1", done.GatewayRefundID)
	assert.Equal(t, "picked up", done.AdminNote)
	require.NotNil(t, done.ActedAt)

	_, err = rs.Act(ctx, r.ID, domain.ReturnApprove, "")
	assert.ErrorIs(t, err, ErrReturnProcessed)
	_, err = rs.Act(ctx, r.ID, domain.ReturnReject, "")
	assert.ErrorIs(t, err, ErrReturnProcessed)
	assert.Equal(t, int32(1), refunds.calls.Load())

	_, err = rs.Act(ctx, "missing", domain.ReturnApprove, "")
	assert.ErrorIs(t, err, ErrReturnNotFound)
}

func TestReturnsAct_ConcurrentApprove(t *testing.T) {
	f := newFixture(PolicyPermissive)
	refunds := &countingRefunder{delay: 10 * time.Millisecond}
	rs := NewReturnsService(f.repo, f.repo, refunds)
	ctx := context.Background()
	r, err := rs.RequestReturn(ctx, returnInput(f.deliveredOrder(t)))
	require.NoError(t, err)

	var wg sync.WaitGroup
	var ok atomic.Int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := rs.Act(ctx, r.ID, domain.ReturnApprove, ""); err == nil {
				ok.Add(1)
			} else {
				assert.ErrorIs(t, err, ErrReturnProcessed)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(1), refunds.calls.Load())
}

func TestReturnsAct_FailedRefundReleasesClaim(t *testing.T) {
	f := newFixture(PolicyPermissive)
	refunds := &countingRefunder{err: fmt.Errorf("%w: breaker open", gateway.ErrUnavailable)}
	rs := NewReturnsService(f.repo, f.repo, refunds)
	ctx := context.Background()
	r, err := rs.RequestReturn(ctx, returnInput(f.deliveredOrder(t)))
	require.NoError(t, err)

	_, err = rs.Act(ctx, r.ID, domain.ReturnApprove, "")
	assert.ErrorIs(t, err, ErrRefundFailed)
	assert.ErrorIs(t, err, gateway.ErrUnavailable)

	held, err := f.repo.GetReturn(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReturnPending, held.Status)

	refunds.err = nil
	done, err := rs.Act(ctx, r.ID, domain.ReturnApprove, "")
	require.NoError(t, err)
	assert.Equal(t, domain.ReturnRefunded, done.Status)
}

func TestReturnsAct_Reject(t *testing.T) {
	f := newFixture(PolicyPermissive)
	refunds := &countingRefunder{}
	rs := NewReturnsService(f.repo, f.repo, refunds)
	ctx := context.Background()
	in := f.deliveredOrder(t)
	r, err := rs.RequestReturn(ctx, returnInput(in))
	require.NoError(t, err)

	rejected, err := rs.Act(ctx, r.ID, domain.ReturnReject, "worn item")
	require.NoError(t, err)
	assert.Equal(t, domain.ReturnRejected, rejected.Status)
	assert.Equal(t, "worn item", rejected.AdminNote)
	assert.Zero(t, refunds.calls.Load())

	again, err := rs.RequestReturn(ctx, returnInput(in))
	require.NoError(t, err, "a rejected line can be requested again")
	assert.NotEqual(t, r.ID, again.ID)
}

func TestReturnsAct_MissingPayment(t *testing.T) {
	f := newFixture(PolicyPermissive)
	rs := NewReturnsService(f.repo, f.repo, &countingRefunder{})
	ctx := context.Background()

	in, err := f.svc.CreateIntent(ctx, validRequest())
	require.NoError(t, err)
	// permissive policy lets an unpaid order be marked delivered
	_, err = f.svc.UpdateStatus(ctx, in.OrderID, domain.StatusDelivered, domain.TrackingPatch{})
	require.NoError(t, err)
	r, err := rs.RequestReturn(ctx, returnInput(in))
	require.NoError(t, err)

	_, err = rs.Act(ctx, r.ID, domain.ReturnApprove, "")
	assert.ErrorIs(t, err, ErrRefundUnavailable)
	held, err := f.repo.GetReturn(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReturnPending, held.Status)
}

func TestOverview(t *testing.T) {
	f := newFixture(PolicyPermissive)
	rs := NewReturnsService(f.repo, f.repo, &countingRefunder{})
	ctx := context.Background()

	_, err := f.svc.CreateIntent(ctx, validRequest())
	require.NoError(t, err)
	in := f.deliveredOrder(t)
	_, err = rs.RequestReturn(ctx, returnInput(in))
	require.NoError(t, err)

	ov, err := f.svc.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), ov.Orders.Total)
	assert.Equal(t, int64(2), ov.Orders.Today)
	assert.Equal(t, int64(1307), ov.Sales.TotalRevenue, "unpaid order is not revenue")
	assert.Equal(t, int64(1307), ov.Sales.TodayRevenue)
	assert.Equal(t, int64(1), ov.Returns.Pending)
	assert.False(t, ov.LastUpdated.IsZero())
}

func TestOverview_RepoError(t *testing.T) {
	f := newFixture(PolicyPermissive)
	f.svc.repo = overviewFails{f.repo}
	_, err := f.svc.Overview(context.Background())
	assert.Error(t, err)
}

type overviewFails struct {
	*repository.MemoryRepository
}

func (overviewFails) Overview(context.Context, time.Time) (*domain.Overview, error) {
	return nil, errors.New("db down")
}
