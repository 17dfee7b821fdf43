package users

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deukmosi-create/task-earning-platform/middleware"
	"github.com/deukmosi-create/task-earning-platform/models"
	"github.com/deukmosi-create/task-earning-platform/services"
	"github.com/deukmosi-create/task-earning-platform/utils"
)

const maxSubmissionFiles = 10

// GET /v1/tasks
func (h *Handler) AvailableTasks(w http.ResponseWriter, r *http.Request) {
	uid, _ := utils.GetUserID(r)
	plan, err := h.svc.Authz.CurrentPlan(r.Context(), uid, models.RoleFreelancer)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	limit := utils.QueryInt(r, "limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	q := services.AvailableQuery{
		PlanPriority:     plan.Priority,
		IncludeSimulated: utils.QueryBool(r, "include_simulated", true),
	}

	tasks := make([]models.Task, 0, limit)
	for task, err := range h.svc.Catalog.Available(r.Context(), q) {
		if err != nil {
			h.log.Error("list available tasks", zap.Uint("user_id", uid), zap.Error(err))
			utils.WriteError(w, err)
			return
		}
		tasks = append(tasks, task)
		if len(tasks) == limit {
			break
		}
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: tasks})
}

type CreateTaskRequest struct {
	Title          string     `json:"title" validate:"required,max=200"`
	Description    string     `json:"description" validate:"required"`
	Reward         string     `json:"reward" validate:"required,money"`
	MaxAssignments int        `json:"max_assignments" validate:"omitempty,min=1,max=10000"`
	PlanRequiredID *uint      `json:"plan_required_id,omitempty"`
	Deadline       *time.Time `json:"deadline,omitempty"`
}

// NewTask converts the request for the catalog.
func (req CreateTaskRequest) NewTask() (services.NewTask, error) {
	reward, err := services.ParseAmount(req.Reward)
	if err != nil {
		return services.NewTask{}, err
	}
	return services.NewTask{
		Title:          req.Title,
		Description:    req.Description,
		Reward:         reward,
		MaxAssignments: req.MaxAssignments,
		PlanRequiredID: req.PlanRequiredID,
		Deadline:       req.Deadline,
	}, nil
}

// POST /v1/tasks
// Client tasks start pending until staff activate them.
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	uid, _ := utils.GetUserID(r)
	var req CreateTaskRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	in, err := req.NewTask()
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	if in.MaxAssignments == 0 {
		in.MaxAssignments = 1
	}
	in.Status = models.TaskPending
	task, err := h.svc.Catalog.Create(r.Context(), in, uid)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "Task created and awaiting approval", Data: task})
}

// POST /v1/tasks/{id}/claim
func (h *Handler) ClaimTask(w http.ResponseWriter, r *http.Request) {
	uid, _ := utils.GetUserID(r)
	taskID, ok := utils.PathID(r, "id")
	if !ok {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid task id"})
		return
	}
	a, err := h.svc.Engine.Claim(r.Context(), taskID, uid)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Task assigned successfully",
		Data:    map[string]interface{}{"assignment_id": a.ID, "assignment": a},
	})
}

// GET /v1/assignments
func (h *Handler) Assignments(w http.ResponseWriter, r *http.Request) {
	uid, _ := utils.GetUserID(r)
	list, err := h.svc.Engine.Assignments(r.Context(), uid, services.AssignmentFilter{
		Status: r.URL.Query().Get("status"),
		Page:   utils.QueryInt(r, "page", 1),
		Limit:  utils.QueryInt(r, "limit", 20),
	})
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: list})
}

type SubmitRequest struct {
	Files []string `json:"files" validate:"max=10,dive,required,max=500"`
	Notes string   `json:"notes" validate:"max=5000"`
}

// POST /v1/assignments/{id}/submit
// Accepts JSON with file references or multipart/form-data with the files
// themselves, which are stored before the submission is recorded.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	uid, _ := utils.GetUserID(r)
	assignmentID, ok := utils.PathID(r, "id")
	if !ok {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid assignment id"})
		return
	}

	var req SubmitRequest
	var uploaded []string
	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "multipart/form-data" {
		files, notes, ok := h.storeUploads(w, r, assignmentID)
		if !ok {
			return
		}
		req = SubmitRequest{Files: files, Notes: notes}
		uploaded = files
	} else if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}

	sub, err := h.svc.Engine.Submit(r.Context(), assignmentID, uid, req.Files, req.Notes)
	if err != nil {
		h.discardUploads(r.Context(), assignmentID, uploaded)
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Task submitted successfully",
		Data:    map[string]interface{}{"submission_id": sub.ID, "submission": sub},
	})
}

func (h *Handler) storeUploads(w http.ResponseWriter, r *http.Request, assignmentID uint) ([]string, string, bool) {
	if h.files == nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "File uploads are not enabled"})
		return nil, "", false
	}
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid multipart body"})
		return nil, "", false
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) > maxSubmissionFiles {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: fmt.Sprintf("At most %d files per submission", maxSubmissionFiles)})
		return nil, "", false
	}
	keys := make([]string, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Unreadable file"})
			return nil, "", false
		}
		key := fmt.Sprintf("submissions/%d/%s%s", assignmentID, uuid.NewString(), strings.ToLower(path.Ext(fh.Filename)))
		err = h.files.Upload(r.Context(), key, f)
		f.Close()
		if err != nil {
			h.log.Error("upload submission file", zap.Uint("assignment_id", assignmentID), zap.Error(err))
			h.discardUploads(r.Context(), assignmentID, keys)
			utils.WriteJSON(w, http.StatusBadGateway, utils.APIResponse{Success: false, Message: "File upload failed"})
			return nil, "", false
		}
		keys = append(keys, key)
	}
	return keys, r.FormValue("notes"), true
}

// discardUploads removes files stored for a submission that was not recorded.
// It outlives the request so a disconnecting client does not leave them behind.
func (h *Handler) discardUploads(ctx context.Context, assignmentID uint, keys []string) {
	ctx = context.WithoutCancel(ctx)
	for _, key := range keys {
		if err := h.files.Delete(ctx, key); err != nil {
			h.log.Warn("discard submission file", zap.Uint("assignment_id", assignmentID), zap.String("key", key), zap.Error(err))
		}
	}
}
