package share

import "errors"

var (
	ErrNotFound           = errors.New("share not found")
	ErrShareExpired       = errors.New("this share link has expired")
	ErrPasswordRequired   = errors.New("password required")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrCouponNotAvailable = errors.New("coupon is not available")
	ErrInvalidEvent       = errors.New("invalid tracking event")
)
