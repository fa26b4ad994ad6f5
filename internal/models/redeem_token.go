package models

import (
	"time"

	"github.com/uptrace/bun"
)

// RedeemToken is a short-lived, single-use credential minted when a share is
// opened. Only the SHA-256 hash of the raw token is ever persisted; the raw
// token is returned to the caller exactly once. UsedAt transitions from null
// to a timestamp exactly once — that conditional update is the concurrency
// control point for the whole redemption flow.
type RedeemToken struct {
	bun.BaseModel `bun:"table:redeem_tokens"`

	TokenHash string     `bun:"token_hash,pk" json:"-"`
	ShareID   string     `bun:"share_id,notnull" json:"shareId"`
	CouponID  string     `bun:"coupon_id,notnull" json:"couponId"`
	ExpiresAt time.Time  `bun:"expires_at,notnull" json:"expiresAt"`
	UsedAt    *time.Time `bun:"used_at,nullzero" json:"usedAt,omitempty"`
	CreatedAt time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
}
