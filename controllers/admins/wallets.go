package admins

import (
	"net/http"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/deukmosi-create/task-earning-platform/middleware"
	"github.com/deukmosi-create/task-earning-platform/services"
	"github.com/deukmosi-create/task-earning-platform/utils"
)

type DepositRequest struct {
	Amount string `json:"amount" validate:"required,money"`
	Note   string `json:"note" validate:"max=255"`
}

// POST /v1/admin/users/{id}/deposit
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	uid, _ := utils.GetUserID(r)
	userID, ok := utils.PathID(r, "id")
	if !ok {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid user id"})
		return
	}
	var req DepositRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	amount, err := services.ParseAmount(req.Amount)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	entry, err := h.svc.Wallets.Deposit(r.Context(), userID, amount, req.Note)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	h.log.Info("manual deposit", zap.Uint("user_id", userID), zap.Uint("actor_id", uid), zap.String("amount", entry.Amount.StringFixed(2)))
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Deposit recorded", Data: entry})
}

// GET /v1/admin/wallets/{id}/reconcile
func (h *Handler) ReconcileWallet(w http.ResponseWriter, r *http.Request) {
	id, ok := utils.PathID(r, "id")
	if !ok {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid wallet id"})
		return
	}
	rep, err := h.svc.Ledger.Reconcile(r.Context(), id)
	if err != nil && !errors.Is(err, services.ErrLedgerDrift) {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data: map[string]interface{}{
			"wallet_id":        rep.WalletID,
			"cached_balance":   rep.Cached,
			"computed_balance": rep.Computed,
			"drift":            rep.Drift(),
		},
	})
}

// POST /v1/admin/wallets/reconcile
func (h *Handler) ReconcileAll(w http.ResponseWriter, r *http.Request) {
	drifted, err := h.svc.Ledger.ReconcileAll(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	if len(drifted) > 0 {
		h.log.Warn("ledger drift detected", zap.Int("wallets", len(drifted)))
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: drifted})
}
