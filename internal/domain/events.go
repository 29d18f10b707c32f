package domain

import "time"

// StatusChanged is published whenever an admin moves an order to a new status.
type StatusChanged struct {
	OrderID      string    `json:"order_id"`
	Email        string    `json:"email"`
	CustomerName string    `json:"customer_name"`
	Previous     Status    `json:"previous"`
	Status       Status    `json:"status"`
	Amount       int64     `json:"amount"`
	Currency     string    `json:"currency"`
	OrderDate    time.Time `json:"order_date"`
	Tracking
	ChangedAt time.Time `json:"changed_at"`
}

func NewStatusChanged(o *Order, previous Status, at time.Time) StatusChanged {
	return StatusChanged{
		OrderID:      o.ID,
		Email:        o.Email,
		CustomerName: o.CustomerName(),
		Previous:     previous,
		Status:       o.Status,
		Amount:       o.Amount,
		Currency:     o.Currency,
		OrderDate:    o.CreatedAt,
		Tracking:     o.Tracking,
		ChangedAt:    at,
	}
}
