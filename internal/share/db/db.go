package db

import (
	"context"
	"database/sql"

	"ms-coupons/internal/models"
	"ms-coupons/internal/share"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) GetShareByID(ctx context.Context, id string) (*models.Share, error) {
	var sh models.Share
	err := d.Bun.NewSelect().
		Model(&sh).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &sh, nil
}

func (d *DB) GetCouponByID(ctx context.Context, id string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := d.Bun.NewSelect().
		Model(&coupon).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (d *DB) GetBusinessByID(ctx context.Context, id string) (*models.Business, error) {
	var business models.Business
	err := d.Bun.NewSelect().
		Model(&business).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &business, nil
}

// IssueToken persists the token hash, bumps the click counter and records the
// click analytics event in one transaction, so a stored token always has its
// click accounted for.
func (d *DB) IssueToken(ctx context.Context, tok *models.RedeemToken, event *models.AnalyticsEvent) error {
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(tok).Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewUpdate().
			Model((*models.Share)(nil)).
			Set("clicks = clicks + 1").
			Where("id = ?", tok.ShareID).
			Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewInsert().Model(event).Exec(ctx); err != nil {
			return err
		}
		return nil
	})
}

func (d *DB) TrackEvent(ctx context.Context, shareID, eventType string, event *models.AnalyticsEvent) error {
	counter := "clicks = clicks + 1"
	if eventType == models.EventRedemption {
		counter = "redemptions = redemptions + 1"
	} else if eventType != models.EventClick {
		return share.ErrInvalidEvent
	}

	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewUpdate().
			Model((*models.Share)(nil)).
			Set(counter).
			Where("id = ?", shareID).
			Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewInsert().Model(event).Exec(ctx); err != nil {
			return err
		}
		return nil
	})
}
