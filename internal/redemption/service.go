package redemption

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ms-coupons/internal/eligibility"
	"ms-coupons/internal/logger"
	"ms-coupons/internal/models"
	"ms-coupons/internal/token"

	"github.com/google/uuid"
)

// ConfirmParams describes everything the store needs to record a redemption
// in one atomic transaction. TokenHash and ShareID are empty on the staff
// path, which skips token mechanics entirely.
type ConfirmParams struct {
	CouponID   string
	ShareID    string
	TokenHash  string
	Now        time.Time
	Redemption *models.Redemption
	Event      *models.AnalyticsEvent
	// CheckEligibility re-validates usage limits with a counter bound to the
	// same transaction that consumed the token.
	CheckEligibility func(ctx context.Context, counts eligibility.Counter) error
}

type DBLayer interface {
	GetCouponByID(ctx context.Context, id string) (*models.Coupon, error)
	GetShareByID(ctx context.Context, id string) (*models.Share, error)
	CountRedemptions(ctx context.Context, couponID string) (int, error)
	CountRedemptionsByCustomer(ctx context.Context, couponID, customerRef string) (int, error)
	ConfirmRedemption(ctx context.Context, params ConfirmParams) error
}

// EventPublisher streams analytics events to the message broker for
// dashboard consumers. Publishing is best-effort and never gates a commit.
type EventPublisher interface {
	PublishAnalyticsEvent(event models.AnalyticsEvent) error
}

type Service struct {
	DB        DBLayer
	Publisher EventPublisher
	Logger    *logger.Logger
}

func NewService(db DBLayer, publisher EventPublisher, log *logger.Logger) *Service {
	return &Service{DB: db, Publisher: publisher, Logger: log}
}

// Validate is the advisory eligibility check. It runs the same evaluation
// logic as the confirm transaction, but only the transactional check is
// binding.
func (s *Service) Validate(ctx context.Context, couponID, customerRef string) (*models.ValidateResponse, error) {
	coupon, err := s.DB.GetCouponByID(ctx, couponID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("coupon %s: %w", couponID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load coupon %s: %w", couponID, err)
	}

	result, err := eligibility.Evaluate(ctx, coupon, customerRef, time.Now().UTC(), s.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate coupon %s: %w", couponID, err)
	}

	resp := &models.ValidateResponse{Valid: result.OK}
	if !result.OK {
		reason := result.Reason
		resp.Reason = &reason
	}
	return resp, nil
}

// Confirm records a redemption. The customer path consumes a single-use
// redeem token; the staff path requires the authenticated business to own
// the coupon. All writes happen in one transaction inside the DB layer.
func (s *Service) Confirm(ctx context.Context, req models.ConfirmRequest, businessID string) (*models.ConfirmResponse, error) {
	coupon, err := s.DB.GetCouponByID(ctx, req.CouponID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("coupon %s: %w", req.CouponID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load coupon %s: %w", req.CouponID, err)
	}

	now := time.Now().UTC()

	redemptionContext := make(map[string]string, len(req.Context)+2)
	for k, v := range req.Context {
		redemptionContext[k] = v
	}

	params := ConfirmParams{
		CouponID: coupon.ID,
		Now:      now,
		CheckEligibility: func(ctx context.Context, counts eligibility.Counter) error {
			result, err := eligibility.Evaluate(ctx, coupon, req.CustomerRef, now, counts)
			if err != nil {
				return err
			}
			if !result.OK {
				return &NotEligibleError{Reason: result.Reason}
			}
			return nil
		},
	}

	if req.ShareID == "" {
		// Staff path: the authenticated business must own the coupon.
		if businessID == "" {
			return nil, ErrUnauthenticated
		}
		if businessID != coupon.BusinessID {
			s.Logger.LogSecurity("STAFF_CONFIRM", fmt.Sprintf("business %s attempted to redeem coupon %s owned by %s", businessID, coupon.ID, coupon.BusinessID))
			return nil, ErrAccessDenied
		}
		redemptionContext["source"] = "staff"
	} else {
		// Customer path: share + token required, share must belong to coupon.
		if req.RedeemToken == "" {
			return nil, ErrInvalidToken
		}
		share, err := s.DB.GetShareByID(ctx, req.ShareID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("share %s: %w", req.ShareID, ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load share %s: %w", req.ShareID, err)
		}
		if share.CouponID != coupon.ID {
			return nil, ErrInvalidToken
		}
		params.ShareID = share.ID
		params.TokenHash = token.Hash(req.RedeemToken)
		redemptionContext["shareId"] = share.ID
		if _, ok := redemptionContext["source"]; !ok {
			redemptionContext["source"] = "share"
		}
	}

	redemptionID := uuid.New().String()
	params.Redemption = &models.Redemption{
		ID:          redemptionID,
		CouponID:    coupon.ID,
		Status:      models.RedemptionStatusRedeemed,
		CustomerRef: req.CustomerRef,
		Context:     redemptionContext,
		RedeemedAt:  now,
	}

	eventMeta := map[string]string{}
	if params.ShareID != "" {
		eventMeta["shareId"] = params.ShareID
	} else {
		eventMeta["source"] = "staff"
	}
	params.Event = &models.AnalyticsEvent{
		ID:        uuid.New().String(),
		CouponID:  coupon.ID,
		EventType: models.EventRedemption,
		Meta:      eventMeta,
		CreatedAt: now,
	}

	if err := s.DB.ConfirmRedemption(ctx, params); err != nil {
		return nil, err
	}

	s.Logger.LogRedemption("CONFIRM", coupon.ID, fmt.Sprintf("redemption %s recorded", redemptionID))

	if s.Publisher != nil {
		if err := s.Publisher.PublishAnalyticsEvent(*params.Event); err != nil {
			s.Logger.Warn("KAFKA", fmt.Sprintf("failed to publish redemption event: %v", err))
		}
	}

	return &models.ConfirmResponse{RedemptionID: redemptionID}, nil
}
