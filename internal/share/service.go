package share

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
	"github.com/skip2/go-qrcode"
	"golang.org/x/crypto/bcrypt"
)

type DBLayer interface {
	GetShareByID(ctx context.Context, id string) (*models.Share, error)
	GetCouponByID(ctx context.Context, id string) (*models.Coupon, error)
	GetBusinessByID(ctx context.Context, id string) (*models.Business, error)
	// IssueToken stores the token hash, bumps share.clicks and records the
	// click analytics event in a single transaction.
	IssueToken(ctx context.Context, tok *models.RedeemToken, event *models.AnalyticsEvent) error
	// TrackEvent bumps the matching share counter and records an analytics
	// event (legacy tracking path, not the authoritative ledger).
	TrackEvent(ctx context.Context, shareID, eventType string, event *models.AnalyticsEvent) error
}

type EventPublisher interface {
	PublishAnalyticsEvent(event models.AnalyticsEvent) error
}

type Service struct {
	DB        DBLayer
	Publisher EventPublisher
	Logger    *logger.Logger
	TokenTTL  time.Duration
}

func NewService(db DBLayer, publisher EventPublisher, log *logger.Logger, tokenTTL time.Duration) *Service {
	return &Service{DB: db, Publisher: publisher, Logger: log, TokenTTL: tokenTTL}
}

// IssueToken validates the share gate (expiry, password) and the coupon's
// activity window, then mints a single-use redeem token. Usage limits are
// deliberately not checked here: issuance is cheap, tokens expire quickly,
// and the confirm transaction is the binding check.
func (s *Service) IssueToken(ctx context.Context, shareID, password string) (*models.RedeemResponse, error) {
	sh, err := s.DB.GetShareByID(ctx, shareID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("share %s: %w", shareID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load share %s: %w", shareID, err)
	}

	now := time.Now().UTC()

	if sh.ExpiresAt != nil && sh.ExpiresAt.Before(now) {
		return nil, ErrShareExpired
	}

	if sh.PasswordHash != "" {
		if password == "" {
			return nil, ErrPasswordRequired
		}
		// bcrypt comparison is constant-time.
		if err := bcrypt.CompareHashAndPassword([]byte(sh.PasswordHash), []byte(password)); err != nil {
			s.Logger.LogSecurity("SHARE_PASSWORD", fmt.Sprintf("wrong password for share %s", shareID))
			return nil, ErrInvalidPassword
		}
	}

	coupon, err := s.DB.GetCouponByID(ctx, sh.CouponID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("coupon %s: %w", sh.CouponID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load coupon %s: %w", sh.CouponID, err)
	}
	if !eligibility.IsActive(coupon, now) {
		return nil, ErrCouponNotAvailable
	}

	business, err := s.DB.GetBusinessByID(ctx, coupon.BusinessID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("business %s: %w", coupon.BusinessID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load business %s: %w", coupon.BusinessID, err)
	}

	rawToken, tokenHash, err := token.New()
	if err != nil {
		return nil, err
	}

	tok := &models.RedeemToken{
		TokenHash: tokenHash,
		ShareID:   sh.ID,
		CouponID:  coupon.ID,
		ExpiresAt: now.Add(s.TokenTTL),
		CreatedAt: now,
	}
	event := &models.AnalyticsEvent{
		ID:        uuid.New().String(),
		CouponID:  coupon.ID,
		EventType: models.EventClick,
		Meta:      map[string]string{"shareId": sh.ID},
		CreatedAt: now,
	}

	if err := s.DB.IssueToken(ctx, tok, event); err != nil {
		return nil, fmt.Errorf("failed to issue redeem token: %w", err)
	}

	s.Logger.LogShare("ISSUE", sh.ID, fmt.Sprintf("redeem token issued for coupon %s, expires %s", coupon.ID, tok.ExpiresAt.Format(time.RFC3339)))

	if s.Publisher != nil {
		if err := s.Publisher.PublishAnalyticsEvent(*event); err != nil {
			s.Logger.Warn("KAFKA", fmt.Sprintf("failed to publish click event: %v", err))
		}
	}

	return &models.RedeemResponse{
		Share:                sh,
		Coupon:               coupon,
		Business:             business,
		RedeemToken:          rawToken,
		RedeemTokenExpiresAt: tok.ExpiresAt,
	}, nil
}

// Track is the legacy/alternate counter path used by older share embeds. It
// feeds dashboards only; the redemption ledger is written by confirm.
func (s *Service) Track(ctx context.Context, shareID, eventType string) error {
	if eventType != models.EventClick && eventType != models.EventRedemption {
		return ErrInvalidEvent
	}

	sh, err := s.DB.GetShareByID(ctx, shareID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("share %s: %w", shareID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to load share %s: %w", shareID, err)
	}

	event := &models.AnalyticsEvent{
		ID:        uuid.New().String(),
		CouponID:  sh.CouponID,
		EventType: eventType,
		Meta:      map[string]string{"shareId": sh.ID, "source": "track"},
		CreatedAt: time.Now().UTC(),
	}

	if err := s.DB.TrackEvent(ctx, sh.ID, eventType, event); err != nil {
		return fmt.Errorf("failed to track %s for share %s: %w", eventType, shareID, err)
	}

	if s.Publisher != nil {
		if err := s.Publisher.PublishAnalyticsEvent(*event); err != nil {
			s.Logger.Warn("KAFKA", fmt.Sprintf("failed to publish %s event: %v", eventType, err))
		}
	}

	return nil
}

// QRPNG renders the share URL as a PNG for the qr channel.
func (s *Service) QRPNG(ctx context.Context, shareID string) ([]byte, error) {
	sh, err := s.DB.GetShareByID(ctx, shareID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("share %s: %w", shareID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load share %s: %w", shareID, err)
	}
	png, err := qrcode.Encode(sh.ShareURL, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("failed to render QR for share %s: %w", shareID, err)
	}
	return png, nil
}
