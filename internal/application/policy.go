package application

import (
	"fmt"

	"github.com/RaikyD/storefront-orders/internal/domain"
)

// Policy decides which admin status changes are accepted.
type Policy string

const (
	// PolicyPermissive lets an admin set any admin status at any time.
	PolicyPermissive Policy = "permissive"
	// PolicyStrict follows domain.CanTransition and freezes terminal orders.
	PolicyStrict Policy = "strict"
)

func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyPermissive, "":
		return PolicyPermissive, nil
	case PolicyStrict:
		return PolicyStrict, nil
	}
	return "", fmt.Errorf("unknown order status policy %q", s)
}

func (p Policy) Allows(from, to domain.Status) bool {
	if !to.AdminSettable() {
		return false
	}
	if p != PolicyStrict {
		return true
	}
	if from.IsTerminal() {
		return false
	}
	return domain.CanTransition(from, to)
}
