package eligibility_test

import (
	"context"
	"testing"
	"time"

	"ms-coupons/internal/eligibility"
	"ms-coupons/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockCounter is a mock implementation of the eligibility.Counter interface
type MockCounter struct {
	mock.Mock
}

func (m *MockCounter) CountRedemptions(ctx context.Context, couponID string) (int, error) {
	args := m.Called(ctx, couponID)
	return args.Int(0), args.Error(1)
}

func (m *MockCounter) CountRedemptionsByCustomer(ctx context.Context, couponID, customerRef string) (int, error) {
	args := m.Called(ctx, couponID, customerRef)
	return args.Int(0), args.Error(1)
}

func activeCoupon() *models.Coupon {
	return &models.Coupon{
		ID:         "coupon1",
		BusinessID: "biz1",
		Status:     models.CouponStatusActive,
		UsageLimit: models.UsageLimitUnlimited,
	}
}

func TestDraftCouponNeverEligible(t *testing.T) {
	counts := new(MockCounter)
	coupon := activeCoupon()
	coupon.Status = models.CouponStatusDraft

	// Even with a future end date a draft coupon must fail.
	future := time.Now().Add(24 * time.Hour)
	coupon.EndDate = &future

	result, err := eligibility.Evaluate(context.Background(), coupon, "", time.Now(), counts)
	assert.NoError(t, err)
	assert.False(t, result.OK)
	assert.Equal(t, eligibility.ReasonNotActive, result.Reason)
	counts.AssertNotCalled(t, "CountRedemptions")
}

func TestExpiredWindowNotEligible(t *testing.T) {
	counts := new(MockCounter)
	coupon := activeCoupon()
	past := time.Now().Add(-time.Hour)
	coupon.EndDate = &past

	result, err := eligibility.Evaluate(context.Background(), coupon, "", time.Now(), counts)
	assert.NoError(t, err)
	assert.False(t, result.OK)
	assert.Equal(t, eligibility.ReasonNotActive, result.Reason)
}

func TestUnlimitedSkipsCountQueries(t *testing.T) {
	counts := new(MockCounter)
	coupon := activeCoupon()

	result, err := eligibility.Evaluate(context.Background(), coupon, "cust-A", time.Now(), counts)
	assert.NoError(t, err)
	assert.True(t, result.OK)
	counts.AssertNotCalled(t, "CountRedemptions")
	counts.AssertNotCalled(t, "CountRedemptionsByCustomer")
}

func TestUnlimitedWithLegacyExplicitLimit(t *testing.T) {
	// Legacy configs: usage limit says unlimited but an explicit total limit
	// is present, so it is still enforced.
	counts := new(MockCounter)
	coupon := activeCoupon()
	coupon.TotalLimit = 2

	counts.On("CountRedemptions", mock.Anything, "coupon1").Return(2, nil)

	result, err := eligibility.Evaluate(context.Background(), coupon, "", time.Now(), counts)
	assert.NoError(t, err)
	assert.False(t, result.OK)
	assert.Equal(t, eligibility.ReasonTotalLimitReached, result.Reason)
	counts.AssertExpectations(t)
}

func TestTotalLimitReached(t *testing.T) {
	counts := new(MockCounter)
	coupon := activeCoupon()
	coupon.UsageLimit = models.UsageLimitTotal
	coupon.TotalLimit = 5

	counts.On("CountRedemptions", mock.Anything, "coupon1").Return(5, nil)

	result, err := eligibility.Evaluate(context.Background(), coupon, "", time.Now(), counts)
	assert.NoError(t, err)
	assert.False(t, result.OK)
	assert.Equal(t, eligibility.ReasonTotalLimitReached, result.Reason)
}

func TestTotalLimitNotYetReached(t *testing.T) {
	counts := new(MockCounter)
	coupon := activeCoupon()
	coupon.UsageLimit = models.UsageLimitTotal
	coupon.TotalLimit = 5

	counts.On("CountRedemptions", mock.Anything, "coupon1").Return(4, nil)

	result, err := eligibility.Evaluate(context.Background(), coupon, "", time.Now(), counts)
	assert.NoError(t, err)
	assert.True(t, result.OK)
}

func TestPerCustomerLimit(t *testing.T) {
	counts := new(MockCounter)
	coupon := activeCoupon()
	coupon.UsageLimit = models.UsageLimitPerCustomer
	coupon.PerCustomerLimit = 1

	counts.On("CountRedemptionsByCustomer", mock.Anything, "coupon1", "cust-A").Return(1, nil)
	counts.On("CountRedemptionsByCustomer", mock.Anything, "coupon1", "cust-B").Return(0, nil)

	// cust-A already redeemed once
	result, err := eligibility.Evaluate(context.Background(), coupon, "cust-A", time.Now(), counts)
	assert.NoError(t, err)
	assert.False(t, result.OK)
	assert.Equal(t, eligibility.ReasonCustomerLimitReached, result.Reason)

	// a different customer is still fine
	result, err = eligibility.Evaluate(context.Background(), coupon, "cust-B", time.Now(), counts)
	assert.NoError(t, err)
	assert.True(t, result.OK)
}

func TestPerCustomerLimitWithoutCustomerRef(t *testing.T) {
	// Without a customer reference the per-customer check is not enforceable.
	counts := new(MockCounter)
	coupon := activeCoupon()
	coupon.UsageLimit = models.UsageLimitPerCustomer
	coupon.PerCustomerLimit = 1

	result, err := eligibility.Evaluate(context.Background(), coupon, "", time.Now(), counts)
	assert.NoError(t, err)
	assert.True(t, result.OK)
	counts.AssertNotCalled(t, "CountRedemptionsByCustomer")
}

func TestBothLimitsEnforced(t *testing.T) {
	counts := new(MockCounter)
	coupon := activeCoupon()
	coupon.UsageLimit = models.UsageLimitBoth
	coupon.TotalLimit = 10
	coupon.PerCustomerLimit = 2

	counts.On("CountRedemptions", mock.Anything, "coupon1").Return(3, nil)
	counts.On("CountRedemptionsByCustomer", mock.Anything, "coupon1", "cust-A").Return(2, nil)

	result, err := eligibility.Evaluate(context.Background(), coupon, "cust-A", time.Now(), counts)
	assert.NoError(t, err)
	assert.False(t, result.OK)
	assert.Equal(t, eligibility.ReasonCustomerLimitReached, result.Reason)
	counts.AssertExpectations(t)
}

func TestUnknownUsageLimitValueFallsBack(t *testing.T) {
	// Unrecognized client-authored values enforce only explicit limits.
	counts := new(MockCounter)
	coupon := activeCoupon()
	coupon.UsageLimit = "per_visit"

	result, err := eligibility.Evaluate(context.Background(), coupon, "cust-A", time.Now(), counts)
	assert.NoError(t, err)
	assert.True(t, result.OK)
	counts.AssertNotCalled(t, "CountRedemptions")
}
