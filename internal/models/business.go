package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Business owns coupons. Profile CRUD lives in another service; this service
// only reads the row for the redeem response and staff ownership checks.
type Business struct {
	bun.BaseModel `bun:"table:businesses"`

	ID        string    `bun:"id,pk" json:"id"`
	Name      string    `bun:"name,notnull" json:"name"`
	Email     string    `bun:"email,nullzero" json:"email,omitempty"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
}
