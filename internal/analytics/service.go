package analytics

import (
	"context"
	"time"

	"ms-coupons/internal/models"

	"github.com/uptrace/bun"
)

// Service handles analytics aggregation for coupons
type Service struct {
	db *bun.DB
}

// NewService creates a new analytics service
func NewService(db *bun.DB) *Service {
	return &Service{db: db}
}

// CouponAnalytics represents aggregated analytics data for a coupon
type CouponAnalytics struct {
	CouponID         string                 `json:"coupon_id"`
	Views            int                    `json:"views"`
	Clicks           int                    `json:"clicks"`
	Redemptions      int                    `json:"redemptions"`
	DailyRedemptions []DailyRedemptionCount `json:"daily_redemptions"`
}

// DailyRedemptionCount contains redemption volume for a single day
type DailyRedemptionCount struct {
	Date        string `json:"date"`
	Redemptions int    `json:"redemptions"`
}

type eventTypeCount struct {
	EventType string `bun:"event_type"`
	Count     int    `bun:"count"`
}

// GetCouponAnalytics returns engagement and redemption analytics for a coupon.
// View and click counts come from the analytics event stream; the redemption
// count comes from the redemptions table, which is the authoritative record.
func (s *Service) GetCouponAnalytics(ctx context.Context, couponID string) (*CouponAnalytics, error) {
	result := &CouponAnalytics{
		CouponID:         couponID,
		DailyRedemptions: []DailyRedemptionCount{},
	}

	var typeCounts []eventTypeCount
	err := s.db.NewSelect().
		Model((*models.AnalyticsEvent)(nil)).
		ColumnExpr("event_type").
		ColumnExpr("COUNT(*) AS count").
		Where("coupon_id = ?", couponID).
		Group("event_type").
		Scan(ctx, &typeCounts)
	if err != nil {
		return nil, err
	}

	for _, tc := range typeCounts {
		switch tc.EventType {
		case models.EventView:
			result.Views = tc.Count
		case models.EventClick:
			result.Clicks = tc.Count
		}
	}

	redemptions, err := s.db.NewSelect().
		Model((*models.Redemption)(nil)).
		Where("coupon_id = ?", couponID).
		Where("status = ?", models.RedemptionStatusRedeemed).
		Count(ctx)
	if err != nil {
		return nil, err
	}
	result.Redemptions = redemptions

	daily, err := s.dailyRedemptions(ctx, couponID)
	if err != nil {
		return nil, err
	}
	result.DailyRedemptions = daily

	return result, nil
}

// dailyRedemptions groups redemptions by calendar day. Aggregation happens in
// Go rather than SQL so the query stays portable across dialects.
func (s *Service) dailyRedemptions(ctx context.Context, couponID string) ([]DailyRedemptionCount, error) {
	var redemptions []models.Redemption
	err := s.db.NewSelect().
		Model(&redemptions).
		Column("redeemed_at").
		Where("coupon_id = ?", couponID).
		Where("status = ?", models.RedemptionStatusRedeemed).
		Order("redeemed_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	byDay := make(map[string]int)
	var order []string
	for _, r := range redemptions {
		day := r.RedeemedAt.UTC().Format(time.DateOnly)
		if _, seen := byDay[day]; !seen {
			order = append(order, day)
		}
		byDay[day]++
	}

	daily := make([]DailyRedemptionCount, 0, len(order))
	for _, day := range order {
		daily = append(daily, DailyRedemptionCount{Date: day, Redemptions: byDay[day]})
	}
	return daily, nil
}
