package domain

import (
	"fmt"
	"strings"
)

type Status string

const (
	StatusPendingPayment Status = "PENDING_PAYMENT"
	StatusPaid           Status = "PAID"
	StatusProcessing     Status = "PROCESSING"
	StatusShipped        Status = "SHIPPED"
	StatusDelivered      Status = "DELIVERED"
	StatusCancelled      Status = "CANCELLED"
)

// AdminStatuses is the fixed list an operator can pick from.
var AdminStatuses = []Status{StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled}

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case StatusPendingPayment, StatusPaid, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return st, nil
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

func (s Status) AdminSettable() bool {
	for _, a := range AdminStatuses {
		if s == a {
			return true
		}
	}
	return false
}

// Notifies reports whether moving into s sends the customer an email.
func (s Status) Notifies() bool {
	return s == StatusShipped || s == StatusDelivered || s == StatusCancelled
}

func (s Status) String() string {
	return string(s)
}

var forward = map[Status][]Status{
	StatusPendingPayment: {StatusPaid, StatusCancelled},
	StatusPaid:           {StatusProcessing, StatusCancelled},
	StatusProcessing:     {StatusShipped, StatusCancelled},
	StatusShipped:        {StatusDelivered, StatusCancelled},
}

// CanTransition follows PENDING_PAYMENT -> PAID -> PROCESSING -> SHIPPED ->
// DELIVERED, with CANCELLED reachable from every non-terminal status.
func CanTransition(from, to Status) bool {
	for _, next := range forward[from] {
		if next == to {
			return true
		}
	}
	return false
}
