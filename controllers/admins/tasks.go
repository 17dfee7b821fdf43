package admins

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/deukmosi-create/task-earning-platform/controllers/users"
	"github.com/deukmosi-create/task-earning-platform/middleware"
	"github.com/deukmosi-create/task-earning-platform/models"
	"github.com/deukmosi-create/task-earning-platform/services"
	"github.com/deukmosi-create/task-earning-platform/utils"
)

// GET /v1/admin/tasks
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := utils.QueryInt(r, "page", 1)
	tasks, total, err := h.svc.Catalog.List(r.Context(), services.TaskFilter{
		Status: q.Get("status"),
		Search: q.Get("search"),
		Page:   page,
		Limit:  utils.QueryInt(r, "limit", 20),
	})
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data:    map[string]interface{}{"tasks": tasks, "total": total, "page": page},
	})
}

// GET /v1/admin/tasks/{id}
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := utils.PathID(r, "id")
	if !ok {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid task id"})
		return
	}
	task, err := h.svc.Catalog.Get(r.Context(), id)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: task})
}

// CreateTaskRequest lets staff publish a task directly.
type CreateTaskRequest struct {
	users.CreateTaskRequest
	Status string `json:"status" validate:"omitempty,oneof=pending active"`
}

// POST /v1/admin/tasks
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
	in.Status = req.Status
	if in.Status == "" {
		in.Status = models.TaskActive
	}
	task, err := h.svc.Catalog.Create(r.Context(), in, uid)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "Task created successfully", Data: task})
}

// POST /v1/admin/tasks/simulated
func (h *Handler) CreateSimulatedTask(w http.ResponseWriter, r *http.Request) {
	uid, _ := utils.GetUserID(r)
	var req users.CreateTaskRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	in, err := req.NewTask()
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	task, err := h.svc.Catalog.CreateSimulated(r.Context(), in, uid)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{
		Success: true,
		Message: "Simulated task created successfully",
		Data:    map[string]interface{}{"task_id": task.ID, "task": task},
	})
}

type StatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active rejected cancelled completed"`
	Reason string `json:"reason" validate:"max=1000"`
}

// PUT /v1/admin/tasks/{id}/status
func (h *Handler) SetTaskStatus(w http.ResponseWriter, r *http.Request) {
	uid, _ := utils.GetUserID(r)
	id, ok := utils.PathID(r, "id")
	if !ok {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid task id"})
		return
	}
	var req StatusRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	task, err := h.svc.Catalog.SetStatus(r.Context(), id, req.Status, uid, req.Reason)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	h.log.Info("task status changed", zap.Uint("task_id", id), zap.String("status", task.Status), zap.Uint("actor_id", uid))
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Task updated", Data: task})
}

type OfferRequest struct {
	UserID uint `json:"user_id" validate:"required"`
}

// POST /v1/admin/tasks/{id}/offer
func (h *Handler) OfferTask(w http.ResponseWriter, r *http.Request) {
	uid, _ := utils.GetUserID(r)
	id, ok := utils.PathID(r, "id")
	if !ok {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid task id"})
		return
	}
	var req OfferRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	a, err := h.svc.Engine.Offer(r.Context(), id, req.UserID, uid)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "Task offered", Data: a})
}

type WithdrawRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// POST /v1/admin/assignments/{id}/withdraw
func (h *Handler) WithdrawOffer(w http.ResponseWriter, r *http.Request) {
	uid, _ := utils.GetUserID(r)
	id, ok := utils.PathID(r, "id")
	if !ok {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid assignment id"})
		return
	}
	var req WithdrawRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	a, err := h.svc.Engine.WithdrawOffer(r.Context(), id, uid, req.Reason)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	h.log.Info("task offer withdrawn", zap.Uint("assignment_id", id), zap.Uint("task_id", a.TaskID), zap.Uint("actor_id", uid))
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Offer withdrawn", Data: a})
}

// GET /v1/admin/tasks/{id}/activity
func (h *Handler) TaskActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := utils.PathID(r, "id")
	if !ok {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid task id"})
		return
	}
	if _, err := h.svc.Catalog.Get(r.Context(), id); err != nil {
		utils.WriteError(w, err)
		return
	}
	logs, err := h.svc.Activity.ListFor(r.Context(), id)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: logs})
}
