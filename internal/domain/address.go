package domain

import (
	"errors"
	"net/mail"
	"strings"
)

type ShippingAddress struct {
	FullName     string `json:"fullName"`
	Phone        string `json:"phone"`
	Pincode      string `json:"pincode"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	Country      string `json:"country"`
	Landmark     string `json:"landmark,omitempty"`
}

// FieldError names the first field that failed validation.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Reason
}

func (a ShippingAddress) Validate() error {
	if len(strings.TrimSpace(a.FullName)) < 2 {
		return &FieldError{Field: "fullName", Reason: "please enter your full name"}
	}
	if !digits(a.Phone, 10) {
		return &FieldError{Field: "phone", Reason: "phone number must be exactly 10 digits"}
	}
	if !digits(a.Pincode, 6) {
		return &FieldError{Field: "pincode", Reason: "pincode must be exactly 6 digits"}
	}
	required := []struct{ field, value, label string }{
		{"addressLine1", a.AddressLine1, "address line 1"},
		{"city", a.City, "city"},
		{"state", a.State, "state"},
		{"country", a.Country, "country"},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &FieldError{Field: r.field, Reason: r.label + " is required"}
		}
	}
	return nil
}

func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return &FieldError{Field: "email", Reason: "email is required"}
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return &FieldError{Field: "email", Reason: "please enter a valid email address"}
	}
	return nil
}

func digits(s string, n int) bool {
	s = strings.TrimSpace(s)
	if len(s) != n {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// AsFieldError unwraps err to a *FieldError when it is one.
func AsFieldError(err error) (*FieldError, bool) {
	var fe *FieldError
	ok := errors.As(err, &fe)
	return fe, ok
}
