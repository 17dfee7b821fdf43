package users

import (
	"net/http"

	"github.com/deukmosi-create/task-earning-platform/utils"
)

// GET /v1/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	uid, _ := utils.GetUserID(r)
	user, err := h.svc.Users.Get(r.Context(), uid)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	wallet, err := h.svc.Ledger.WalletFor(r.Context(), uid)
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
