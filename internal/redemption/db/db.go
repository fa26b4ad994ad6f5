package db

import (
	"context"
	"database/sql"
	"time"

	"ms-coupons/internal/models"
	"ms-coupons/internal/redemption"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
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

func (d *DB) GetShareByID(ctx context.Context, id string) (*models.Share, error) {
	var share models.Share
	err := d.Bun.NewSelect().
		Model(&share).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &share, nil
}

// CountRedemptions counts recorded redemptions for a coupon. The redemptions
// table is the authoritative source for usage limits, not share counters.
func (d *DB) CountRedemptions(ctx context.Context, couponID string) (int, error) {
	return countRedemptions(ctx, d.Bun, couponID, "")
}

func (d *DB) CountRedemptionsByCustomer(ctx context.Context, couponID, customerRef string) (int, error) {
	return countRedemptions(ctx, d.Bun, couponID, customerRef)
}

func countRedemptions(ctx context.Context, idb bun.IDB, couponID, customerRef string) (int, error) {
	query := idb.NewSelect().
		Model((*models.Redemption)(nil)).
		Where("coupon_id = ?", couponID).
		Where("status = ?", models.RedemptionStatusRedeemed)
	if customerRef != "" {
		query = query.Where("customer_ref = ?", customerRef)
	}
	return query.Count(ctx)
}

// DeleteExpiredTokens garbage-collects expired unused tokens. Losing a sweep
// only delays storage reclamation; expired tokens are already rejected by the
// confirm transaction's time check.
func (d *DB) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := d.Bun.NewDelete().
		Model((*models.RedeemToken)(nil)).
		Where("expires_at < ?", now).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// txCounter satisfies eligibility.Counter against the confirm transaction, so
// the binding limit check observes the transaction's own writes.
type txCounter struct {
	tx bun.Tx
}

func (c *txCounter) CountRedemptions(ctx context.Context, couponID string) (int, error) {
	return countRedemptions(ctx, c.tx, couponID, "")
}

func (c *txCounter) CountRedemptionsByCustomer(ctx context.Context, couponID, customerRef string) (int, error) {
	return countRedemptions(ctx, c.tx, couponID, customerRef)
}

// ConfirmRedemption executes a confirm call as one atomic transaction:
// consume the token via a conditional update, re-check eligibility, insert
// the redemption and analytics rows, bump the share counter. Any failure
// rolls the whole thing back, so no partial state is ever observable.
func (d *DB) ConfirmRedemption(ctx context.Context, p redemption.ConfirmParams) error {
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if p.TokenHash != "" {
			// The at-most-once guarantee: this update matches at most one
			// row, and only while used_at is still null and the token has
			// not expired. Zero rows means the token was already used,
			// mismatched, or expired. Safe at read-committed isolation
			// because the affected-row count reflects committed state at
			// update time.
			res, err := tx.NewUpdate().
				Model((*models.RedeemToken)(nil)).
				Set("used_at = ?", p.Now).
				Where("token_hash = ?", p.TokenHash).
				Where("share_id = ?", p.ShareID).
				Where("coupon_id = ?", p.CouponID).
				Where("used_at IS NULL").
				Where("expires_at > ?", p.Now).
				Exec(ctx)
			if err != nil {
				return err
			}
			rows, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if rows == 0 {
				return redemption.ErrInvalidToken
			}
		}

		// Token validity and eligibility are orthogonal: a valid token can
		// still lose to a usage limit reached since issuance.
		if p.CheckEligibility != nil {
			if err := p.CheckEligibility(ctx, &txCounter{tx: tx}); err != nil {
				return err
			}
		}

		if _, err := tx.NewInsert().Model(p.Redemption).Exec(ctx); err != nil {
			return err
		}

		if _, err := tx.NewInsert().Model(p.Event).Exec(ctx); err != nil {
			return err
		}

		if p.ShareID != "" {
			if _, err := tx.NewUpdate().
				Model((*models.Share)(nil)).
				Set("redemptions = redemptions + 1").
				Where("id = ?", p.ShareID).
				Exec(ctx); err != nil {
				return err
			}
		}

		return nil
	})
}
