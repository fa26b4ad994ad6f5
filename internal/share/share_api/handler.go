package share_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"ms-coupons/internal/logger"
	"ms-coupons/internal/models"
	"ms-coupons/internal/share"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	ShareService *share.Service
	Logger       *logger.Logger
}

func NewHandler(shareService *share.Service, log *logger.Logger) *Handler {
	return &Handler{
		ShareService: shareService,
		Logger:       log,
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

// Redeem resolves a share link: it returns the coupon and business details
// for rendering plus a fresh single-use redeemToken. Password-protected
// shares take the password from the X-Share-Password header (or ?password=
// for QR scans that cannot set headers).
func (h *Handler) Redeem(w http.ResponseWriter, r *http.Request) {
	shareID := chi.URLParam(r, "shareId")
	h.Logger.Info("API", fmt.Sprintf("Redeem: shareId=%s", shareID))

	password := r.Header.Get("X-Share-Password")
	if password == "" {
		password = r.URL.Query().Get("password")
	}

	resp, err := h.ShareService.IssueToken(r.Context(), shareID, password)
	if err != nil {
		h.writeServiceError(w, "Redeem", err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Track records a click or redemption signal from older share embeds that
// bypass the token flow. It feeds dashboards only.
func (h *Handler) Track(w http.ResponseWriter, r *http.Request) {
	shareID := chi.URLParam(r, "shareId")

	var req models.TrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("Track: failed to decode request body: %v", err))
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	h.Logger.Info("API", fmt.Sprintf("Track: shareId=%s event=%s", shareID, req.EventType))

	if err := h.ShareService.Track(r.Context(), shareID, req.EventType); err != nil {
		h.writeServiceError(w, "Track", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// QR renders the share's URL as a PNG QR code.
func (h *Handler) QR(w http.ResponseWriter, r *http.Request) {
	shareID := chi.URLParam(r, "shareId")
	h.Logger.Info("API", fmt.Sprintf("QR: shareId=%s", shareID))

	png, err := h.ShareService.QRPNG(r.Context(), shareID)
	if err != nil {
		h.writeServiceError(w, "QR", err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, share.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, share.ErrShareExpired):
		// 404-class on purpose: an expired share must not leak whether the
		// coupon behind it is still valid.
		writeError(w, http.StatusNotFound, "SHARE_EXPIRED", "This share link has expired")
	case errors.Is(err, share.ErrPasswordRequired):
		writeError(w, http.StatusUnauthorized, "PASSWORD_REQUIRED", "This share link requires a password")
	case errors.Is(err, share.ErrInvalidPassword):
		writeError(w, http.StatusUnauthorized, "INVALID_PASSWORD", "Wrong password")
	case errors.Is(err, share.ErrCouponNotAvailable):
		writeError(w, http.StatusNotFound, "COUPON_NOT_AVAILABLE", "This coupon is not currently available")
	case errors.Is(err, share.ErrInvalidEvent):
		writeError(w, http.StatusBadRequest, "INVALID_EVENT", "eventType must be click or redemption")
	default:
		h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
	}
}
