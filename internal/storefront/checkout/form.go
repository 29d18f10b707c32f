package checkout

import (
	"strings"

	"github.com/RaikyD/storefront-orders/internal/domain"
	"github.com/RaikyD/storefront-orders/internal/storefront/cart"
)

// Form is the checkout draft: contact email plus shipping address.
type Form struct {
	Email   string
	Address domain.ShippingAddress
}

// ValidationError is a local, user-correctable problem with the form.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Validate checks the cart and the form before any network call.
func (f Form) Validate(lines []cart.Line) error {
	if len(lines) == 0 {
		return &ValidationError{Field: "cart", Reason: "your cart is empty"}
	}
	if err := domain.ValidateEmail(f.Email); err != nil {
		return asValidation(err)
	}
	if err := f.Address.Validate(); err != nil {
		return asValidation(err)
	}
	return nil
}

func asValidation(err error) error {
	if fe, ok := domain.AsFieldError(err); ok {
		return &ValidationError{Field: fe.Field, Reason: fe.Reason}
	}
	return &ValidationError{Reason: err.Error()}
}

func (f Form) normalized() Form {
	f.Email = strings.TrimSpace(f.Email)
	a := &f.Address
	a.FullName = strings.TrimSpace(a.FullName)
	a.Phone = strings.TrimSpace(a.Phone)
	a.Pincode = strings.TrimSpace(a.Pincode)
	return f
}
