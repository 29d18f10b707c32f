package domain

import (
	"time"
)

type Order struct {
	ID               string          `json:"_id"`
	IdempotencyKey   string          `json:"-"`
	GatewayOrderID   string          `json:"razorpay_order_id"`
	GatewayPaymentID string          `json:"razorpay_payment_id,omitempty"`
	Email            string          `json:"email"`
	Amount           int64           `json:"amount"`
	AmountMinor      int64           `json:"amount_minor"`
	Currency         string          `json:"currency"`
	Items            []Item          `json:"items"`
	ShippingAddress  ShippingAddress `json:"shipping_address"`
	Status           Status          `json:"status"`
	Tracking
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Item is a cart line snapshot taken when the order was placed.
type Item struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Size      string  `json:"size,omitempty"`
	Image     string  `json:"image,omitempty"`
}

type Tracking struct {
	CourierName string `json:"courier_name,omitempty"`
	TrackingID  string `json:"tracking_id,omitempty"`
	TrackingURL string `json:"tracking_url,omitempty"`
}

// TrackingPatch carries optional tracking fields; nil means keep the stored value.
type TrackingPatch struct {
	CourierName *string `json:"courier_name,omitempty"`
	TrackingID  *string `json:"tracking_id,omitempty"`
	TrackingURL *string `json:"tracking_url,omitempty"`
}

// Apply returns t with every non-nil patch field written over it.
func (p TrackingPatch) Apply(t Tracking) Tracking {
	if p.CourierName != nil {
		t.CourierName = *p.CourierName
	}
	if p.TrackingID != nil {
		t.TrackingID = *p.TrackingID
	}
	if p.TrackingURL != nil {
		t.TrackingURL = *p.TrackingURL
	}
	return t
}

// Payment is a verification attempt recorded against an order.
type Payment struct {
	OrderID          string
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
	Verified         bool
	Meta             map[string]any
	CreatedAt        time.Time
}

// PublicStatus is the subset of an order exposed on the tracking page.
type PublicStatus struct {
	OrderID     string    `json:"order_id"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	TotalAmount int64     `json:"total_amount"`
	Tracking
}

func (o *Order) Public() PublicStatus {
	return PublicStatus{
		OrderID:     o.ID,
		Status:      o.Status,
		CreatedAt:   o.CreatedAt,
		TotalAmount: o.Amount,
		Tracking:    o.Tracking,
	}
}

// CustomerName picks the name used in customer emails.
func (o *Order) CustomerName() string {
	if o.ShippingAddress.FullName != "" {
		return o.ShippingAddress.FullName
	}
	return "Customer"
}
