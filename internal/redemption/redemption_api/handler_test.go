package redemption_api_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ms-coupons/internal/logger"
	"ms-coupons/internal/models"
	"ms-coupons/internal/redemption"
	"ms-coupons/internal/redemption/redemption_api"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockDBLayer struct {
	mock.Mock
}

func (m *MockDBLayer) GetCouponByID(ctx context.Context, id string) (*models.Coupon, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Coupon), args.Error(1)
}

func (m *MockDBLayer) GetShareByID(ctx context.Context, id string) (*models.Share, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Share), args.Error(1)
}

func (m *MockDBLayer) CountRedemptions(ctx context.Context, couponID string) (int, error) {
	args := m.Called(ctx, couponID)
	return args.Int(0), args.Error(1)
}

func (m *MockDBLayer) CountRedemptionsByCustomer(ctx context.Context, couponID, customerRef string) (int, error) {
	args := m.Called(ctx, couponID, customerRef)
	return args.Int(0), args.Error(1)
}

func (m *MockDBLayer) ConfirmRedemption(ctx context.Context, params redemption.ConfirmParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func activeCoupon() *models.Coupon {
	return &models.Coupon{
		ID:           "coupon1",
		BusinessID:   "biz1",
		Status:       models.CouponStatusActive,
		ValidityType: models.ValidityNoExpiry,
		UsageLimit:   models.UsageLimitUnlimited,
		CreatedAt:    time.Now(),
	}
}

func newRouter(db redemption.DBLayer) *chi.Mux {
	svc := redemption.NewService(db, nil, logger.NewLogger())
	h := redemption_api.NewHandler(svc, logger.NewLogger())
	r := chi.NewRouter()
	r.Post("/redemption/validate", h.Validate)
	r.Post("/redemption/confirm", h.Confirm)
	return r
}

func postJSON(t *testing.T, router http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestValidateRejectsMissingCouponID(t *testing.T) {
	router := newRouter(new(MockDBLayer))

	rec := postJSON(t, router, "/redemption/validate", models.ValidateRequest{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_REQUEST", decodeError(t, rec)["error"])
}

func TestValidateRejectsMalformedJSON(t *testing.T) {
	router := newRouter(new(MockDBLayer))

	req := httptest.NewRequest(http.MethodPost, "/redemption/validate", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestValidateUnknownCouponIs404(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockDB.On("GetCouponByID", mock.Anything, "ghost").Return(nil, sql.ErrNoRows)
	router := newRouter(mockDB)

	rec := postJSON(t, router, "/redemption/validate", models.ValidateRequest{CouponID: "ghost"})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, rec)["error"])
}

func TestValidateDatabaseOutageIs500(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockDB.On("GetCouponByID", mock.Anything, "coupon1").Return(nil, errors.New("connection refused"))
	router := newRouter(mockDB)

	rec := postJSON(t, router, "/redemption/validate", models.ValidateRequest{CouponID: "coupon1"})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL", decodeError(t, rec)["error"])
}

func TestValidateReturnsEligibility(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockDB.On("GetCouponByID", mock.Anything, "coupon1").Return(activeCoupon(), nil)
	router := newRouter(mockDB)

	rec := postJSON(t, router, "/redemption/validate", models.ValidateRequest{CouponID: "coupon1"})

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp models.ValidateResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Valid)
	assert.Nil(t, resp.Reason)
}

func TestConfirmRejectsMissingCouponID(t *testing.T) {
	router := newRouter(new(MockDBLayer))

	rec := postJSON(t, router, "/redemption/confirm", models.ConfirmRequest{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConfirmCustomerPathHappy(t *testing.T) {
	coupon := activeCoupon()
	mockDB := new(MockDBLayer)
	mockDB.On("GetCouponByID", mock.Anything, "coupon1").Return(coupon, nil)
	mockDB.On("GetShareByID", mock.Anything, "share1").Return(&models.Share{
		ID:       "share1",
		CouponID: "coupon1",
		Type:     models.ShareTypeLink,
	}, nil)
	mockDB.On("ConfirmRedemption", mock.Anything, mock.Anything).Return(nil)
	router := newRouter(mockDB)

	rec := postJSON(t, router, "/redemption/confirm", models.ConfirmRequest{
		CouponID:    "coupon1",
		ShareID:     "share1",
		RedeemToken: "raw-token-value",
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
	var resp models.ConfirmResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.RedemptionID)
}

func TestConfirmUsedTokenIs401(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockDB.On("GetCouponByID", mock.Anything, "coupon1").Return(activeCoupon(), nil)
	mockDB.On("GetShareByID", mock.Anything, "share1").Return(&models.Share{
		ID:       "share1",
		CouponID: "coupon1",
	}, nil)
	mockDB.On("ConfirmRedemption", mock.Anything, mock.Anything).Return(redemption.ErrInvalidToken)
	router := newRouter(mockDB)

	rec := postJSON(t, router, "/redemption/confirm", models.ConfirmRequest{
		CouponID:    "coupon1",
		ShareID:     "share1",
		RedeemToken: "already-used",
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "INVALID_TOKEN", body["error"])
	assert.Equal(t, "Invalid or expired redeemToken", body["message"])
}

func TestConfirmLimitReachedIs400WithReason(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockDB.On("GetCouponByID", mock.Anything, "coupon1").Return(activeCoupon(), nil)
	mockDB.On("GetShareByID", mock.Anything, "share1").Return(&models.Share{
		ID:       "share1",
		CouponID: "coupon1",
	}, nil)
	mockDB.On("ConfirmRedemption", mock.Anything, mock.Anything).
		Return(&redemption.NotEligibleError{Reason: "Coupon redemption limit reached"})
	router := newRouter(mockDB)

	rec := postJSON(t, router, "/redemption/confirm", models.ConfirmRequest{
		CouponID:    "coupon1",
		ShareID:     "share1",
		RedeemToken: "fresh-token",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "NOT_ELIGIBLE", body["error"])
	assert.Equal(t, "Coupon redemption limit reached", body["message"])
}

func TestConfirmStaffPathWithoutAuthIs401(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockDB.On("GetCouponByID", mock.Anything, "coupon1").Return(activeCoupon(), nil)
	router := newRouter(mockDB)

	// No shareId and no authenticated business in the context.
	rec := postJSON(t, router, "/redemption/confirm", models.ConfirmRequest{CouponID: "coupon1"})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHENTICATED", decodeError(t, rec)["error"])
}
