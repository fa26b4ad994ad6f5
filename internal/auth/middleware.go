package auth

import (
	"context"
	"net/http"
)

type contextKey string

const businessIDKey contextKey = "business_id"

// Middleware verifies the session JWT issued by the platform's auth service
// and puts the owning business id into the request context. Token issuance
// lives outside this service.
func Middleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawToken, err := ExtractTokenFromRequest(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			businessID, err := ExtractBusinessID(rawToken, secret)
			if err != nil {
				http.Error(w, "invalid token: "+err.Error(), http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), businessIDKey, businessID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BusinessID extracts the authenticated business id from the context, or ""
// when the request was not authenticated.
func BusinessID(ctx context.Context) string {
	if id, ok := ctx.Value(businessIDKey).(string); ok {
		return id
	}
	return ""
}
