package eligibility

import (
	"context"
	"fmt"
	"time"

	"ms-coupons/internal/models"
)

// Counter provides redemption counts. In the advisory validate call it is
// backed by the plain DB; inside the confirm transaction it is backed by the
// transaction, so both checks run the same logic against the same store.
type Counter interface {
	CountRedemptions(ctx context.Context, couponID string) (int, error)
	CountRedemptionsByCustomer(ctx context.Context, couponID, customerRef string) (int, error)
}

// Result of an eligibility check. Reason is set only when OK is false.
type Result struct {
	OK     bool
	Reason string
}

const (
	ReasonNotActive            = "Coupon is not active"
	ReasonTotalLimitReached    = "Coupon redemption limit reached"
	ReasonCustomerLimitReached = "Customer redemption limit reached"
)

// IsActive reports whether the coupon is currently redeemable based on status
// and validity window alone, ignoring usage limits. The end date is compared
// as stored, against UTC wall clock.
func IsActive(coupon *models.Coupon, now time.Time) bool {
	if coupon.Status != models.CouponStatusActive {
		return false
	}
	if coupon.EndDate != nil && coupon.EndDate.Before(now) {
		return false
	}
	return true
}

// enforcement flags derived from the coupon's usage limit mode. UsageLimit is
// client-authored configuration, so unrecognized values fall back to
// enforcing only explicitly configured limits.
func enforcementFlags(coupon *models.Coupon) (enforceTotal, enforcePerCustomer bool) {
	switch coupon.UsageLimit {
	case models.UsageLimitTotal:
		return true, false
	case models.UsageLimitPerCustomer:
		return false, true
	case models.UsageLimitBoth:
		return true, true
	default:
		// "unlimited" and legacy/unknown values: only enforce limits that
		// were explicitly configured.
		return coupon.TotalLimit > 0, coupon.PerCustomerLimit > 0
	}
}

// Evaluate decides whether a new redemption of the coupon may proceed. It has
// no side effects beyond the count queries on the Counter.
func Evaluate(ctx context.Context, coupon *models.Coupon, customerRef string, now time.Time, counts Counter) (Result, error) {
	if !IsActive(coupon, now) {
		return Result{OK: false, Reason: ReasonNotActive}, nil
	}

	enforceTotal, enforcePerCustomer := enforcementFlags(coupon)

	// Per-customer limits need a customer reference to be enforceable.
	if enforcePerCustomer && customerRef == "" {
		enforcePerCustomer = false
	}

	if enforceTotal && coupon.TotalLimit > 0 {
		total, err := counts.CountRedemptions(ctx, coupon.ID)
		if err != nil {
			return Result{}, fmt.Errorf("failed to count redemptions: %w", err)
		}
		if total >= coupon.TotalLimit {
			return Result{OK: false, Reason: ReasonTotalLimitReached}, nil
		}
	}

	if enforcePerCustomer && coupon.PerCustomerLimit > 0 {
		byCustomer, err := counts.CountRedemptionsByCustomer(ctx, coupon.ID, customerRef)
		if err != nil {
			return Result{}, fmt.Errorf("failed to count customer redemptions: %w", err)
		}
		if byCustomer >= coupon.PerCustomerLimit {
			return Result{OK: false, Reason: ReasonCustomerLimitReached}, nil
		}
	}

	return Result{OK: true}, nil
}
