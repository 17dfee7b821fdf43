package users

import (
	"net/http"

	"github.com/deukmosi-create/task-earning-platform/utils"
)

// GET /v1/notifications
func (h *Handler) Notifications(w http.ResponseWriter, r *http.Request) {
	uid, _ := utils.GetUserID(r)
	list, err := h.notifications.ListFor(r.Context(), uid, utils.QueryBool(r, "unread", false), utils.QueryInt(r, "limit", 50))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: list})
}

// POST /v1/notifications/{id}/read
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	uid, _ := utils.GetUserID(r)
	id, ok := utils.PathID(r, "id")
	if !ok {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid notification id"})
		return
	}
	if err := h.notifications.MarkRead(r.Context(), uid, id); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Marked as read"})
}
