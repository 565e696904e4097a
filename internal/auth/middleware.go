package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

type phoneKey struct{}

// Middleware rejects requests without a valid Bearer session token and
// stashes the caller's phone on the request context.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			unauthorized(w)
			return
		}

		claims, err := m.VerifySession(token, time.Now())
		if err != nil {
			unauthorized(w)
			return
		}

		ctx := context.WithValue(r.Context(), phoneKey{}, claims.Phone)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// PhoneFromContext returns the authenticated phone, or "" outside the
// middleware.
func PhoneFromContext(ctx context.Context) string {
	phone, _ := ctx.Value(phoneKey{}).(string)
	return phone
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
		"success": false,
		"error":   "unauthorized",
	})
}
