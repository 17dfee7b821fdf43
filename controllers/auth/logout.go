package auth

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/deukmosi-create/task-earning-platform/utils"
)

// POST /v1/auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := utils.GetClaims(r)
	if !ok {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}
	if err := h.tokens.Revoke(r.Context(), claims); err != nil {
		h.log.Warn("revoke token", zap.Uint("user_id", claims.UserID), zap.Error(err))
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Logged out"})
}
