package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

type ReturnStatus string

const (
	ReturnPending ReturnStatus = "PENDING"
	// ReturnRefunding marks a request whose refund call is in flight.
	ReturnRefunding ReturnStatus = "REFUNDING"
	ReturnRefunded  ReturnStatus = "REFUNDED"
	ReturnRejected  ReturnStatus = "REJECTED"
)

// MinReturnReason is the shortest accepted return reason.
const MinReturnReason = 3

// ReturnRequest asks for one product line of a delivered order to be taken
// back and refunded.
type ReturnRequest struct {
	ID               string       `json:"id"`
	OrderID          string       `json:"order_id"`
	ProductID        string       `json:"product_id"`
	Email            string       `json:"customer_email"`
	Reason           string       `json:"reason"`
	Photos           []string     `json:"photos"`
	Status           ReturnStatus `json:"status"`
	RefundAmount     int64        `json:"refund_amount"`
	GatewayPaymentID string       `json:"razorpay_payment_id,omitempty"`
	GatewayRefundID  string       `json:"razorpay_refund_id,omitempty"`
	AdminNote        string       `json:"admin_note,omitempty"`
	RequestedAt      time.Time    `json:"requested_at"`
	ActedAt          *time.Time   `json:"admin_action_at,omitempty"`
}

// ReturnResolution is stored together with a return status change.
type ReturnResolution struct {
	RefundID  string
	AdminNote string
	At        time.Time
}

type ReturnAction string

const (
	ReturnApprove ReturnAction = "approve"
	ReturnReject  ReturnAction = "reject"
)

func ParseReturnAction(s string) (ReturnAction, error) {
	a := ReturnAction(strings.ToLower(strings.TrimSpace(s)))
	switch a {
	case ReturnApprove, ReturnReject:
		return a, nil
	}
	return "", fmt.Errorf("unknown return action %q", s)
}

// RefundFor is the minor-unit refund for the line holding productID, or
// false when the order has no such line with a positive price.
func RefundFor(o *Order, productID string) (int64, bool) {
	for _, it := range o.Items {
		if it.ProductID == productID {
			minor := int64(math.Round(Subtotal([]Item{it}) * MinorUnits))
			return minor, minor > 0
		}
	}
	return 0, false
}

// Overview is the admin dashboard summary. Revenue is in major units and
// counts orders that were paid, whatever their fulfilment state.
type Overview struct {
	Orders struct {
		Total int64 `json:"total"`
		Today int64 `json:"today"`
	} `json:"orders"`
	Sales struct {
		TotalRevenue int64 `json:"total_revenue"`
		TodayRevenue int64 `json:"today_revenue"`
	} `json:"sales"`
	Returns struct {
		Pending int64 `json:"pending"`
	} `json:"returns"`
	LastUpdated time.Time `json:"last_updated"`
}

// RevenueStatuses are the order states counted as paid revenue.
var RevenueStatuses = []Status{StatusPaid, StatusProcessing, StatusShipped, StatusDelivered}

// StartOfDay is midnight UTC of t's day.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
