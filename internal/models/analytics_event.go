package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Analytics event types.
const (
	EventView       = "view"
	EventClick      = "click"
	EventRedemption = "redemption"
)

// AnalyticsEvent is an append-only event used for dashboards. It is not
// authoritative for eligibility decisions.
type AnalyticsEvent struct {
	bun.BaseModel `bun:"table:analytics_events"`

	ID        string            `bun:"id,pk" json:"id"`
	CouponID  string            `bun:"coupon_id,notnull" json:"couponId"`
	EventType string            `bun:"event_type,notnull" json:"eventType"`
	Meta      map[string]string `bun:"meta,type:jsonb,nullzero" json:"meta,omitempty"`
	CreatedAt time.Time         `bun:"created_at,notnull" json:"createdAt"`
}
