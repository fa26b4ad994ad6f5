package redemption_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"ms-coupons/internal/auth"
	"ms-coupons/internal/logger"
	"ms-coupons/internal/models"
	"ms-coupons/internal/redemption"
)

type Handler struct {
	RedemptionService *redemption.Service
	Logger            *logger.Logger
}

func NewHandler(redemptionService *redemption.Service, log *logger.Logger) *Handler {
	return &Handler{
		RedemptionService: redemptionService,
		Logger:            log,
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}

// Validate is the advisory eligibility check used by checkout UIs. A valid
// answer here is not a reservation; only confirm is binding.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	var req models.ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("Validate: failed to decode request body: %v", err))
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if req.CouponID == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "couponId is required")
		return
	}

	h.Logger.Info("API", fmt.Sprintf("Validate: couponId=%s", req.CouponID))

	resp, err := h.RedemptionService.Validate(r.Context(), req.CouponID, req.CustomerRef)
	if err != nil {
		h.writeServiceError(w, "Validate", err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Confirm records a redemption. The customer path carries a shareId and a
// single-use redeemToken; the staff path carries neither and relies on the
// authenticated business owning the coupon.
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req models.ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("Confirm: failed to decode request body: %v", err))
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if req.CouponID == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "couponId is required")
		return
	}

	h.Logger.Info("API", fmt.Sprintf("Confirm: couponId=%s shareId=%s", req.CouponID, req.ShareID))

	resp, err := h.RedemptionService.Confirm(r.Context(), req, auth.BusinessID(r.Context()))
	if err != nil {
		h.writeServiceError(w, "Confirm", err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, op string, err error) {
	var notEligible *redemption.NotEligibleError

	switch {
	case errors.Is(err, redemption.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, redemption.ErrAccessDenied):
		writeError(w, http.StatusForbidden, "ACCESS_DENIED", "You do not have access to this coupon")
	case errors.Is(err, redemption.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "Authentication required")
	case errors.Is(err, redemption.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, "INVALID_TOKEN", redemption.ErrInvalidToken.Error())
	case errors.As(err, &notEligible):
		writeError(w, http.StatusBadRequest, "NOT_ELIGIBLE", notEligible.Reason)
	default:
		h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
	}
}
