package application

import (
	"errors"

	"github.com/RaikyD/storefront-orders/internal/repository"
)

var (
	ErrOrderNotFound        = repository.ErrOrderNotFound
	ErrEmptyCart            = errors.New("cart is empty")
	ErrInvalidItem          = errors.New("invalid cart item")
	ErrAmountMismatch       = errors.New("amount does not match cart total")
	ErrSignatureMismatch    = errors.New("invalid payment signature")
	ErrPaymentMismatch      = errors.New("payment does not match order")
	ErrAlreadySettled       = errors.New("order is no longer awaiting this payment")
	ErrOrderClosed          = errors.New("order is no longer awaiting payment")
	ErrStatusNotSettable    = errors.New("status cannot be set by admin")
	ErrTransitionNotAllowed = errors.New("status transition not allowed")

	ErrReturnNotFound    = repository.ErrReturnNotFound
	ErrReturnExists      = repository.ErrReturnExists
	ErrNotOrderOwner     = errors.New("order does not belong to this customer")
	ErrNotDelivered      = errors.New("order not delivered yet; cannot return")
	ErrProductNotInOrder = errors.New("product not found in order or price is zero")
	ErrReturnProcessed   = errors.New("return request already processed")
	ErrRefundUnavailable = errors.New("payment id or amount missing; cannot refund")
	ErrRefundFailed      = errors.New("refund failed")
)
