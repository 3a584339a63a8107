package middleware

import (
	"context"
	"net/http"
	"strings"

	helper "github.com/restoflow/orders-backend/helper"
)

// Context keys to store user information
type contextKey string

const (
	EmailKey contextKey = "email"
	UidKey   contextKey = "uid"
	OrgKey   contextKey = "organization_id"
)

// Authentication middleware for Gorilla Mux
func Authentication(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientToken := r.Header.Get("Authorization")
		if clientToken == "" {
			http.Error(w, `{"success": false, "message": "No Authorization header provided"}`, http.StatusUnauthorized)
			return
		}

		// Token format should be "Bearer <token>"
		tokenParts := strings.Split(clientToken, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			http.Error(w, `{"success": false, "message": "Invalid Authorization format"}`, http.StatusUnauthorized)
			return
		}

		tokenString := tokenParts[1]
		claims, errMsg := helper.ValidateToken(tokenString)
		if errMsg != "" {
			http.Error(w, `{"success": false, "message": "`+errMsg+`"}`, http.StatusUnauthorized)
			return
		}

		if claims.Organization_id == "" {
			http.Error(w, `{"success": false, "message": "Token has no organization"}`, http.StatusUnauthorized)
			return
		}

		// Store user details in the request context
		ctx := context.WithValue(r.Context(), EmailKey, claims.Email)
		ctx = context.WithValue(ctx, UidKey, claims.Uid)
		ctx = context.WithValue(ctx, OrgKey, claims.Organization_id)

		// Pass modified request with context to the next handler
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserFromContext retrieves user data from the request context
func GetUserFromContext(r *http.Request) (email, uid, organizationID string) {
	email, _ = r.Context().Value(EmailKey).(string)
	uid, _ = r.Context().Value(UidKey).(string)
	organizationID, _ = r.Context().Value(OrgKey).(string)
	return
}
