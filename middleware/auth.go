package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/deukmosi-create/task-earning-platform/utils"
)

// Auth requires a valid bearer token and puts the user id, role and claims on
// the request context.
func Auth(tokens *utils.Tokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, ok := utils.BearerToken(r)
			if !ok {
				utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
				return
			}
			claims, err := tokens.Validate(r.Context(), tokenStr)
			if err != nil {
				msg := "Invalid token"
				if errors.Is(err, utils.ErrTokenExpired) {
					msg = "Session expired, please log in again"
				}
				utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: msg})
				return
			}
			ctx := context.WithValue(r.Context(), utils.UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, utils.ClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
