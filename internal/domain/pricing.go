package domain

import "math"

// MinorUnits is the gateway multiplier (rupees to paise).
const MinorUnits = 100

func Subtotal(items []Item) float64 {
	var sum float64
	for _, it := range items {
		sum += it.Price * float64(it.Quantity)
	}
	return sum
}

// PayableAmount is round(subtotal + fee); the platform fee is only charged on a
// non-empty cart.
func PayableAmount(items []Item, fee float64) int64 {
	if len(items) == 0 {
		return 0
	}
	return int64(math.Round(Subtotal(items) + fee))
}

func ToMinor(amount int64) int64 {
	return amount * MinorUnits
}
