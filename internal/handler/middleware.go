package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/fivelearn-engagement/internal/domain"
)

type contextKey string

const userIDKey contextKey = "user_id"

// UserID returns the authenticated user ID from a request context
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// RequireAuth gates protected routes. The bearer credential must verify and
// the user's session must still be live; an expired credential and a
// revoked session are reported distinctly so the client can prompt a
// re-login instead of showing a generic auth error.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			h.writeError(w, http.StatusUnauthorized, domain.ErrInvalidCredential)
			return
		}
		credential := strings.TrimPrefix(authHeader, "Bearer ")

		userID, err := h.auth.Authenticate(r.Context(), credential)
		if err != nil {
			if domain.IsAuthError(err) {
				h.writeError(w, http.StatusUnauthorized, err)
				return
			}
			h.logger.Error("authentication check failed", "error", err)
			h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
