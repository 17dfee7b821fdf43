package auth

import (
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/deukmosi-create/task-earning-platform/middleware"
	"github.com/deukmosi-create/task-earning-platform/services"
	"github.com/deukmosi-create/task-earning-platform/utils"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// POST /v1/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	account := strings.ToLower(strings.TrimSpace(req.Email))

	if locked, retry := h.guard.Locked(r.Context(), account); locked {
		utils.WriteJSON(w, http.StatusTooManyRequests, utils.APIResponse{
			Success: false,
			Message: "Too many login attempts, try again later",
			Data:    map[string]interface{}{"retry_after_seconds": int(retry.Seconds())},
		})
		return
	}

	user, err := h.users.Authenticate(r.Context(), account, req.Password)
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		h.guard.Fail(r.Context(), account)
		utils.WriteError(w, err)
		return
	case errors.Is(err, services.ErrPermissionDenied):
		utils.WriteJSON(w, http.StatusForbidden, utils.APIResponse{Success: false, Message: "Your account is not active, contact support"})
		return
	case err != nil:
		h.log.Error("login", zap.Error(err))
		utils.WriteError(w, err)
		return
	}

	h.guard.Reset(r.Context(), account)
	h.writeSession(w, http.StatusOK, "Login successful", user)
}
