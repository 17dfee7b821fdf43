package admins

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/deukmosi-create/task-earning-platform/middleware"
	"github.com/deukmosi-create/task-earning-platform/services"
	"github.com/deukmosi-create/task-earning-platform/utils"
)

type CreateUserRequest struct {
	Name       string `json:"name" validate:"required,max=100"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8,max=72"`
	UserType   string `json:"user_type" validate:"required,oneof=freelancer client admin moderator"`
	ActiveRole string `json:"active_role" validate:"omitempty,oneof=freelancer client both"`
}

// POST /v1/admin/users
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	uid, _ := utils.GetUserID(r)
	var req CreateUserRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	user, wallet, err := h.svc.Users.Provision(r.Context(), services.NewUser{
		Name:       req.Name,
		Email:      req.Email,
		Password:   req.Password,
		UserType:   req.UserType,
		ActiveRole: req.ActiveRole,
	})
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	h.log.Info("user provisioned", zap.Uint("user_id", user.ID), zap.String("user_type", user.UserType), zap.Uint("actor_id", uid))
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{
		Success: true,
		Message: "User created",
		Data:    map[string]interface{}{"user": user, "wallet": wallet},
	})
}

// GET /v1/admin/users/{id}
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := utils.PathID(r, "id")
	if !ok {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid user id"})
		return
	}
	user, err := h.svc.Users.Get(r.Context(), id)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	wallet, err := h.svc.Ledger.WalletFor(r.Context(), id)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data:    map[string]interface{}{"user": user, "wallet": wallet},
	})
}

type UserStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active suspended"`
}

// PUT /v1/admin/users/{id}/status
func (h *Handler) SetUserStatus(w http.ResponseWriter, r *http.Request) {
	uid, _ := utils.GetUserID(r)
	id, ok := utils.PathID(r, "id")
	if !ok {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid user id"})
		return
	}
	if id == uid {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "You cannot change your own status"})
		return
	}
	var req UserStatusRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	user, err := h.svc.Users.SetStatus(r.Context(), id, req.Status)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	h.log.Info("user status changed", zap.Uint("user_id", id), zap.String("status", user.Status), zap.Uint("actor_id", uid))
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "User status updated", Data: user})
}
