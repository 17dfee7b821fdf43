package middleware

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/deukmosi-create/task-earning-platform/services"
	"github.com/deukmosi-create/task-earning-platform/utils"
)

// RequireCapability rejects requests whose user lacks c. It must run after
// Auth.
func RequireCapability(authz services.AuthorizationPort, c services.Capability, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			uid, ok := utils.GetUserID(r)
			if !ok {
				utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
				return
			}
			allowed, err := authz.HasCapability(r.Context(), uid, c)
			if err != nil {
				log.Error("capability check failed", zap.Uint("user_id", uid), zap.String("capability", string(c)), zap.Error(err))
				utils.WriteError(w, err)
				return
			}
			if !allowed {
				utils.WriteJSON(w, http.StatusForbidden, utils.APIResponse{Success: false, Message: "Forbidden"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
