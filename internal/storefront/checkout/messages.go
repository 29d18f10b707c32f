package checkout

import (
	"errors"
	"net/http"

	"github.com/RaikyD/storefront-orders/internal/storefront/api"
)

// UserMessage turns a checkout error into text for the shopper.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var ve *ValidationError
	var ae *api.APIError
	var te *api.TransportError
	switch {
	case errors.As(err, &ve):
		return ve.Reason
	case errors.Is(err, ErrSubmissionInProgress):
		return "Your order is being placed, please wait."
	case errors.Is(err, ErrNotVerified):
		return "Payment captured but not verified. Please contact support with your order id and do not pay again."
	case errors.Is(err, ErrOrderClosed):
		return "This order was already paid or cancelled. Check your email for its status or place the order again."
	case errors.Is(err, ErrWidgetUnavailable):
		return "The payment service could not be loaded. Please check your connection and try again."
	case errors.As(err, &te):
		return "Network error. Please check your connection and try again."
	case errors.As(err, &ae):
		if ae.Detail != "" && ae.Status < http.StatusInternalServerError {
			return ae.Detail
		}
		return "Something went wrong while placing your order. Please try again."
	}
	return "Something went wrong. Please try again."
}
