package users

import (
	"net/http"

	"github.com/deukmosi-create/task-earning-platform/utils"
)

// GET /v1/plans
func (h *Handler) Plans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.svc.Plans.List(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: plans})
}

// POST /v1/plans/{id}/upgrade
func (h *Handler) UpgradePlan(w http.ResponseWriter, r *http.Request) {
	uid, _ := utils.GetUserID(r)
	planID, ok := utils.PathID(r, "id")
	if !ok {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid plan id"})
		return
	}
	up, err := h.svc.Plans.Upgrade(r.Context(), uid, planID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Plan upgraded", Data: up})
}
