package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Coupon status values. Only active coupons are redeemable.
const (
	CouponStatusDraft  = "draft"
	CouponStatusActive = "active"
)

// Validity types for a coupon's time window.
const (
	ValidityDateRange = "date_range"
	ValidityDuration  = "duration"
	ValidityNoExpiry  = "no_expiry"
)

// Usage limit modes. These come from client-authored coupon configuration,
// so unrecognized values must be handled defensively.
const (
	UsageLimitUnlimited   = "unlimited"
	UsageLimitTotal       = "total_limit"
	UsageLimitPerCustomer = "per_customer"
	UsageLimitBoth        = "both"
)

type Coupon struct {
	bun.BaseModel `bun:"table:coupons"`

	ID                 string                 `bun:"id,pk" json:"id"`
	BusinessID         string                 `bun:"business_id,notnull" json:"businessId"`
	Status             string                 `bun:"status,notnull" json:"status"`
	DiscountType       string                 `bun:"discount_type" json:"discountType"`
	DiscountPercentage float64                `bun:"discount_percentage,nullzero" json:"discountPercentage,omitempty"`
	DiscountAmount     float64                `bun:"discount_amount,nullzero" json:"discountAmount,omitempty"`
	ValidityType       string                 `bun:"validity_type" json:"validityType"`
	StartDate          *time.Time             `bun:"start_date,nullzero" json:"startDate,omitempty"`
	EndDate            *time.Time             `bun:"end_date,nullzero" json:"endDate,omitempty"`
	UsageLimit         string                 `bun:"usage_limit" json:"usageLimit"`
	TotalLimit         int                    `bun:"total_limit,nullzero" json:"totalLimit,omitempty"`
	PerCustomerLimit   int                    `bun:"per_customer_limit,nullzero" json:"perCustomerLimit,omitempty"`
	Customization      map[string]interface{} `bun:"customization,type:jsonb,nullzero" json:"customization,omitempty"`
	CreatedAt          time.Time              `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt          time.Time              `bun:"updated_at,nullzero" json:"updatedAt,omitempty"`
}
