package admins

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/deukmosi-create/task-earning-platform/middleware"
	"github.com/deukmosi-create/task-earning-platform/models"
	"github.com/deukmosi-create/task-earning-platform/utils"
)

// uploadPrefix marks file references that live in object storage.
const uploadPrefix = "submissions/"

// PendingSubmission is a submission awaiting review with read links for the
// files that were uploaded through the API.
type PendingSubmission struct {
	models.Submission
	FileURLs map[string]string `json:"file_urls,omitempty"`
}

// GET /v1/admin/submissions
func (h *Handler) PendingSubmissions(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Engine.PendingSubmissions(r.Context(), utils.QueryInt(r, "page", 1), utils.QueryInt(r, "limit", 20))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	out := make([]PendingSubmission, 0, len(list))
	for _, sub := range list {
		out = append(out, PendingSubmission{Submission: sub, FileURLs: h.signFiles(r.Context(), sub)})
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: out})
}

func (h *Handler) signFiles(ctx context.Context, sub models.Submission) map[string]string {
	if h.files == nil || len(sub.Files) == 0 {
		return nil
	}
	var keys []string
	if err := json.Unmarshal(sub.Files, &keys); err != nil {
		h.log.Warn("submission files are not a list", zap.Uint("submission_id", sub.ID), zap.Error(err))
		return nil
	}
	urls := make(map[string]string, len(keys))
	for _, key := range keys {
		if !strings.HasPrefix(key, uploadPrefix) {
			continue
		}
		u, err := h.files.SignedURL(ctx, key)
		if err != nil {
			h.log.Warn("sign submission file", zap.Uint("submission_id", sub.ID), zap.String("key", key), zap.Error(err))
			continue
		}
		urls[key] = u
	}
	if len(urls) == 0 {
		return nil
	}
	return urls
}

type ReviewRequest struct {
	Approve *bool  `json:"approve" validate:"required"`
	Notes   string `json:"notes" validate:"max=5000"`
}

// POST /v1/admin/submissions/{id}/review
func (h *Handler) Review(w http.ResponseWriter, r *http.Request) {
	uid, _ := utils.GetUserID(r)
	id, ok := utils.PathID(r, "id")
	if !ok {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid submission id"})
		return
	}
	var req ReviewRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	res, err := h.svc.Engine.Review(r.Context(), id, uid, *req.Approve, req.Notes)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	h.log.Info("submission reviewed",
		zap.Uint("submission_id", id),
		zap.Uint("reviewer_id", uid),
		zap.Bool("approved", *req.Approve),
		zap.String("reward", res.Reward.StringFixed(2)))

	msg := "Submission rejected"
	if *req.Approve {
		msg = "Submission approved"
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: msg, Data: res})
}
