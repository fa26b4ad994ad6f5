package redemption

import "errors"

var (
	ErrNotFound        = errors.New("coupon or share not found")
	ErrAccessDenied    = errors.New("access denied")
	ErrUnauthenticated = errors.New("authentication required")
	ErrInvalidToken    = errors.New("Invalid or expired redeemToken")
)

// NotEligibleError carries the human-readable reason a coupon could not be
// redeemed (limit reached, not active, ...).
type NotEligibleError struct {
	Reason string
}

func (e *NotEligibleError) Error() string {
	return e.Reason
}
