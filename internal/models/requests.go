package models

import "time"

// ValidateRequest is the advisory eligibility check payload.
type ValidateRequest struct {
	CouponID    string `json:"couponId"`
	CustomerRef string `json:"customerRef,omitempty"`
}

type ValidateResponse struct {
	Valid  bool    `json:"valid"`
	Reason *string `json:"reason"`
}

// ConfirmRequest records a redemption. ShareID + RedeemToken drive the
// customer path; when ShareID is absent the caller must be an authenticated
// business owner (staff path).
type ConfirmRequest struct {
	CouponID    string            `json:"couponId"`
	CustomerRef string            `json:"customerRef,omitempty"`
	Context     map[string]string `json:"context,omitempty"`
	ShareID     string            `json:"shareId,omitempty"`
	RedeemToken string            `json:"redeemToken,omitempty"`
}

type ConfirmResponse struct {
	RedemptionID string `json:"redemptionId"`
}

// RedeemResponse is returned when a share link is opened and a token is
// minted. RedeemToken carries the raw token — it is never retrievable again.
type RedeemResponse struct {
	Share                *Share    `json:"share"`
	Coupon               *Coupon   `json:"coupon"`
	Business             *Business `json:"business"`
	RedeemToken          string    `json:"redeemToken"`
	RedeemTokenExpiresAt time.Time `json:"redeemTokenExpiresAt"`
}

// TrackRequest is the legacy share counter tracking payload.
type TrackRequest struct {
	EventType string `json:"event"`
}
