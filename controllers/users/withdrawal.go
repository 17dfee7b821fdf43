package users

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/deukmosi-create/task-earning-platform/middleware"
	"github.com/deukmosi-create/task-earning-platform/services"
	"github.com/deukmosi-create/task-earning-platform/utils"
)

type WithdrawRequest struct {
	Amount      string `json:"amount" validate:"required,money"`
	Destination string `json:"destination" validate:"required,max=255"`
}

// POST /v1/wallet/withdrawals
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	uid, _ := utils.GetUserID(r)
	var req WithdrawRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	amount, err := services.ParseAmount(req.Amount)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	wd, err := h.svc.Wallets.Withdraw(r.Context(), uid, amount, req.Destination)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	h.log.Info("withdrawal requested", zap.Uint("user_id", uid), zap.String("amount", wd.Amount.StringFixed(2)), zap.String("reference", wd.Reference))
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Withdrawal requested", Data: wd})
}

// GET /v1/wallet/withdrawals
func (h *Handler) Withdrawals(w http.ResponseWriter, r *http.Request) {
	uid, _ := utils.GetUserID(r)
	list, err := h.svc.Wallets.Withdrawals(r.Context(), uid, utils.QueryInt(r, "page", 1), utils.QueryInt(r, "limit", 20))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: list})
}
