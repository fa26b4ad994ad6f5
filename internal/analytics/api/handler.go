package analytics_api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"ms-coupons/internal/analytics"
	"ms-coupons/internal/auth"
	"ms-coupons/internal/logger"
	"ms-coupons/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/uptrace/bun"
)

// Handler handles analytics HTTP endpoints
type Handler struct {
	Service *analytics.Service
	DB      *bun.DB
	Logger  *logger.Logger
}

// NewHandler creates a new analytics handler
func NewHandler(service *analytics.Service, db *bun.DB, logger *logger.Logger) *Handler {
	return &Handler{Service: service, DB: db, Logger: logger}
}

// RegisterRoutes registers the analytics routes on a chi router. The router
// is expected to already carry the auth middleware.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/coupons/{couponId}/analytics", h.GetCouponAnalytics)
}

func sendJSONResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// GetCouponAnalytics returns engagement and redemption analytics for a coupon
// owned by the authenticated business.
func (h *Handler) GetCouponAnalytics(w http.ResponseWriter, r *http.Request) {
	couponID := chi.URLParam(r, "couponId")
	businessID := auth.BusinessID(r.Context())

	var coupon models.Coupon
	err := h.DB.NewSelect().
		Model(&coupon).
		Where("id = ?", couponID).
		Limit(1).
		Scan(r.Context())
	if errors.Is(err, sql.ErrNoRows) {
		sendJSONResponse(w, http.StatusNotFound, map[string]string{"error": "coupon not found"})
		return
	}
	if err != nil {
		h.Logger.Error("ANALYTICS", fmt.Sprintf("Failed to load coupon %s: %v", couponID, err))
		sendJSONResponse(w, http.StatusInternalServerError, map[string]string{"error": "failed to load coupon"})
		return
	}

	if coupon.BusinessID != businessID {
		h.Logger.LogSecurity("ANALYTICS_DENIED", fmt.Sprintf("Business %s requested analytics for coupon %s", businessID, couponID))
		sendJSONResponse(w, http.StatusForbidden, map[string]string{"error": "access denied"})
		return
	}

	data, err := h.Service.GetCouponAnalytics(r.Context(), couponID)
	if err != nil {
		h.Logger.Error("ANALYTICS", fmt.Sprintf("Failed to aggregate analytics for coupon %s: %v", couponID, err))
		sendJSONResponse(w, http.StatusInternalServerError, map[string]string{"error": "failed to aggregate analytics"})
		return
	}

	sendJSONResponse(w, http.StatusOK, data)
}
