package models

import (
	"time"

	"github.com/uptrace/bun"
)

const RedemptionStatusRedeemed = "redeemed"

// Redemption is the authoritative, append-only record that a coupon was used
// once. Rows are created only inside the atomic confirm transaction and are
// never mutated or deleted afterwards.
type Redemption struct {
	bun.BaseModel `bun:"table:redemptions"`

	ID          string            `bun:"id,pk" json:"id"`
	CouponID    string            `bun:"coupon_id,notnull" json:"couponId"`
	Status      string            `bun:"status,notnull" json:"status"`
	CustomerRef string            `bun:"customer_ref,nullzero" json:"customerRef,omitempty"`
	Context     map[string]string `bun:"context,type:jsonb,nullzero" json:"context,omitempty"`
	RedeemedAt  time.Time         `bun:"redeemed_at,notnull" json:"redeemedAt"`
}
