package auth

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/deukmosi-create/task-earning-platform/middleware"
	"github.com/deukmosi-create/task-earning-platform/models"
	"github.com/deukmosi-create/task-earning-platform/services"
	"github.com/deukmosi-create/task-earning-platform/utils"
)

type RegisterRequest struct {
	Name       string `json:"name" validate:"required,max=100"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8,max=72"`
	UserType   string `json:"user_type" validate:"omitempty,oneof=freelancer client"`
	ActiveRole string `json:"active_role" validate:"omitempty,oneof=freelancer client both"`
	ReferredBy *uint  `json:"referred_by,omitempty"`
}

// POST /v1/auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	user, _, err := h.users.Provision(r.Context(), services.NewUser{
		Name:         req.Name,
		Email:        req.Email,
		Password:     req.Password,
		UserType:     req.UserType,
		ActiveRole:   req.ActiveRole,
		ReferredByID: req.ReferredBy,
	})
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	h.log.Info("user registered", zap.Uint("user_id", user.ID), zap.String("user_type", user.UserType))
	h.writeSession(w, http.StatusCreated, "Registration successful", user)
}

func (h *Handler) writeSession(w http.ResponseWriter, status int, msg string, user *models.User) {
	token, exp, err := h.tokens.Issue(user.ID, user.UserType)
	if err != nil {
		h.log.Error("issue token", zap.Uint("user_id", user.ID), zap.Error(err))
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to create session"})
		return
	}
	utils.WriteJSON(w, status, utils.APIResponse{
		Success: true,
		Message: msg,
		Data: map[string]interface{}{
			"access_token":  token,
			"access_expire": exp.UTC().Format(time.RFC3339),
			"user":          user,
		},
	})
}
