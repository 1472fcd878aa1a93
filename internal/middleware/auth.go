package middleware

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/scraplink/chatcore/internal/auth"
	"github.com/scraplink/chatcore/internal/presence"
)

type contextKey string

const UserIDKey contextKey = "user_id"

// UserIDFrom returns the authenticated user id injected by AuthMiddleware,
// or 0 when the request is unauthenticated.
func UserIDFrom(r *http.Request) int {
	if id, ok := r.Context().Value(UserIDKey).(int); ok {
		return id
	}
	return 0
}

// AuthMiddleware verifies the signed session cookie, injects the user id
// into the request context, and touches presence: any authenticated
// activity counts as being seen.
func AuthMiddleware(secret string, tracker *presence.Service) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := auth.UserID(r, secret)
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if tracker != nil {
				tracker.Touch(r.Context(), userID)
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
