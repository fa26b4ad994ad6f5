package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Share channel types.
const (
	ShareTypeLink = "link"
	ShareTypeQR   = "qr"
)

// Share is a distribution channel (link or QR) pointing at one coupon.
// Clicks and Redemptions are display aggregates, not the authoritative
// redemption count — that lives in the redemptions table.
type Share struct {
	bun.BaseModel `bun:"table:shares"`

	ID           string     `bun:"id,pk" json:"id"`
	CouponID     string     `bun:"coupon_id,notnull" json:"couponId"`
	Type         string     `bun:"type,notnull" json:"type"`
	ShareURL     string     `bun:"share_url" json:"shareUrl"`
	PasswordHash string     `bun:"password_hash,nullzero" json:"-"`
	ExpiresAt    *time.Time `bun:"expires_at,nullzero" json:"expiresAt,omitempty"`
	Clicks       int64      `bun:"clicks,notnull,default:0" json:"clicks"`
	Redemptions  int64      `bun:"redemptions,notnull,default:0" json:"redemptions"`
	CreatedAt    time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
}
