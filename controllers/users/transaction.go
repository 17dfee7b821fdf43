package users

import (
	"net/http"

	"github.com/deukmosi-create/task-earning-platform/utils"
)

// GET /v1/wallet
func (h *Handler) Wallet(w http.ResponseWriter, r *http.Request) {
	uid, _ := utils.GetUserID(r)
	wallet, err := h.svc.Ledger.WalletFor(r.Context(), uid)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: wallet})
}

// GET /v1/wallet/transactions
func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	uid, _ := utils.GetUserID(r)
	wallet, err := h.svc.Ledger.WalletFor(r.Context(), uid)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	page := utils.QueryInt(r, "page", 1)
	limit := utils.QueryInt(r, "limit", 20)
	entries, total, err := h.svc.Ledger.Entries(r.Context(), wallet.ID, page, limit)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data: map[string]interface{}{
			"transactions": entries,
			"total":        total,
			"page":         page,
		},
	})
}
