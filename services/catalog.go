package services

import (
	"context"
	"iter"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/deukmosi-create/task-earning-platform/database"
	"github.com/deukmosi-create/task-earning-platform/models"
)

var claimableStatuses = []string{models.TaskActive, models.TaskSimulated}

// taskTransitions lists the statuses an administrator may move a task to.
var taskTransitions = map[string][]string{
	models.TaskPending:   {models.TaskActive, models.TaskRejected, models.TaskCancelled},
	models.TaskActive:    {models.TaskCompleted, models.TaskCancelled},
	models.TaskSimulated: {models.TaskCompleted, models.TaskCancelled},
}

// Catalog holds task definitions and their assignment capacity.
type Catalog struct {
	db             *gorm.DB
	activity       *ActivityLog
	retries        int
	pageSize       int
	simulatedSlots int
	now            func() time.Time
}

func NewCatalog(db *gorm.DB, activity *ActivityLog, opts Options) *Catalog {
	opts = opts.withDefaults()
	return &Catalog{
		db:             db,
		activity:       activity,
		retries:        opts.TxRetries,
		pageSize:       opts.FeedPageSize,
		simulatedSlots: opts.SimulatedSlots,
		now:            opts.Now,
	}
}

type NewTask struct {
	Title          string
	Description    string
	Reward         decimal.Decimal
	MaxAssignments int
	PlanRequiredID *uint
	Deadline       *time.Time
	// Status is only honoured for staff; clients always create pending tasks.
	Status string
}

func (n *NewTask) validate(now time.Time) error {
	n.Title = strings.TrimSpace(n.Title)
	if n.Title == "" || strings.TrimSpace(n.Description) == "" {
		return errors.Wrap(ErrInvalidInput, "title and description are required")
	}
	if !n.Reward.IsPositive() || !n.Reward.Equal(RoundMoney(n.Reward)) {
		return ErrInvalidAmount
	}
	if n.MaxAssignments < 1 {
		return errors.Wrap(ErrInvalidInput, "max_assignments must be at least 1")
	}
	if n.Deadline != nil && !n.Deadline.After(now) {
		return errors.Wrap(ErrInvalidInput, "deadline must be in the future")
	}
	return nil
}

// Create stores a new task. Its activity trail starts with the first
// assignment.
func (c *Catalog) Create(ctx context.Context, in NewTask, creatorID uint) (*models.Task, error) {
	now := c.now()
	if err := in.validate(now); err != nil {
		return nil, err
	}
	status := in.Status
	if status == "" {
		status = models.TaskPending
	}
	if status != models.TaskPending && status != models.TaskActive {
		return nil, errors.Wrap(ErrInvalidInput, "status must be pending or active")
	}
	task := models.Task{
		Title:          in.Title,
		Description:    in.Description,
		Reward:         in.Reward,
		MaxAssignments: in.MaxAssignments,
		PlanRequiredID: in.PlanRequiredID,
		Status:         status,
		CreatedByID:    creatorID,
		Deadline:       in.Deadline,
	}
	return c.insert(ctx, &task, creatorID)
}

// CreateSimulated stores a practice task that every plan can claim and logs
// its creation.
func (c *Catalog) CreateSimulated(ctx context.Context, in NewTask, creatorID uint) (*models.Task, error) {
	if in.MaxAssignments == 0 {
		in.MaxAssignments = c.simulatedSlots
	}
	if err := in.validate(c.now()); err != nil {
		return nil, err
	}
	task := models.Task{
		Title:          in.Title,
		Description:    in.Description,
		Reward:         in.Reward,
		MaxAssignments: in.MaxAssignments,
		Status:         models.TaskSimulated,
		CreatedByID:    creatorID,
		Deadline:       in.Deadline,
		IsSimulated:    true,
	}
	return c.insert(ctx, &task, creatorID)
}

func (c *Catalog) insert(ctx context.Context, task *models.Task, creatorID uint) (*models.Task, error) {
	err := database.Transaction(ctx, c.db, c.retries, func(tx *gorm.DB) error {
		if task.PlanRequiredID != nil {
			var n int64
			if err := tx.Model(&models.Plan{}).Where("id = ?", *task.PlanRequiredID).Count(&n).Error; err != nil {
				return storeErr(err, "check plan")
			}
			if n == 0 {
				return errors.Wrap(ErrInvalidInput, "unknown plan")
			}
		}
		if err := tx.Create(task).Error; err != nil {
			return storeErr(err, "create task")
		}
		if !task.IsSimulated {
			return nil
		}
		_, err := c.activity.WithTx(tx).Append(ctx, task.ID, uintPtr(creatorID), models.ActivityCreated, map[string]interface{}{
			"admin_id":     creatorID,
			"is_simulated": true,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (c *Catalog) Get(ctx context.Context, id uint) (*models.Task, error) {
	var t models.Task
	if err := c.db.WithContext(ctx).Preload("PlanRequired").Take(&t, id).Error; err != nil {
		return nil, storeErr(err, "load task")
	}
	return &t, nil
}

type TaskFilter struct {
	Status      string
	Search      string
	CreatedByID uint
	Page        int
	Limit       int
}

// List pages through tasks for the admin surface, newest first.
func (c *Catalog) List(ctx context.Context, f TaskFilter) ([]models.Task, int64, error) {
	page, limit := normalizePage(f.Page, f.Limit)
	scope := func(db *gorm.DB) *gorm.DB {
		if f.Status != "" {
			db = db.Where("status = ?", f.Status)
		}
		if f.CreatedByID != 0 {
			db = db.Where("created_by_id = ?", f.CreatedByID)
		}
		if s := strings.TrimSpace(f.Search); s != "" {
			like := "%" + s + "%"
			db = db.Where("(title LIKE ? OR description LIKE ?)", like, like)
		}
		return db
	}
	var total int64
	if err := c.db.WithContext(ctx).Model(&models.Task{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, storeErr(err, "count tasks")
	}
	var out []models.Task
	err := c.db.WithContext(ctx).Scopes(scope).Preload("PlanRequired").
		Order("id DESC").Offset((page - 1) * limit).Limit(limit).
		Find(&out).Error
	return out, total, storeErr(err, "list tasks")
}

type AvailableQuery struct {
	PlanPriority     int
	IncludeSimulated bool
}

// Available yields claimable tasks visible to a plan of the given priority,
// newest first. The sequence pages through the table lazily and starts over
// from the newest task each time it is ranged.
func (c *Catalog) Available(ctx context.Context, q AvailableQuery) iter.Seq2[models.Task, error] {
	return func(yield func(models.Task, error) bool) {
		var cursor uint
		for {
			var page []models.Task
			allowed := c.db.Model(&models.Plan{}).Select("id").Where("priority <= ?", q.PlanPriority)
			db := c.db.WithContext(ctx).
				Where("status IN ?", claimableStatuses).
				Where("current_assignments < max_assignments").
				Where("(deadline IS NULL OR deadline > ?)", c.now())
			if q.IncludeSimulated {
				db = db.Where("(is_simulated = ? OR plan_required_id IS NULL OR plan_required_id IN (?))", true, allowed)
			} else {
				db = db.Where("is_simulated = ?", false).
					Where("(plan_required_id IS NULL OR plan_required_id IN (?))", allowed)
			}
			if cursor > 0 {
				db = db.Where("id < ?", cursor)
			}
			if err := db.Preload("PlanRequired").Order("id DESC").Limit(c.pageSize).Find(&page).Error; err != nil {
				yield(models.Task{}, storeErr(err, "list available tasks"))
				return
			}
			for _, t := range page {
				if !yield(t, nil) {
					return
				}
			}
			if len(page) < c.pageSize {
				return
			}
			cursor = page[len(page)-1].ID
		}
	}
}

// ReserveSlot takes one assignment slot if the task is still available.
func (c *Catalog) ReserveSlot(ctx context.Context, taskID uint) error {
	return reserveSlot(c.db.WithContext(ctx), taskID, c.now())
}

// ReleaseSlot gives back one slot; the count never drops below zero.
func (c *Catalog) ReleaseSlot(ctx context.Context, taskID uint) error {
	return releaseSlot(c.db.WithContext(ctx), taskID, c.now())
}

func reserveSlot(tx *gorm.DB, taskID uint, now time.Time) error {
	res := tx.Model(&models.Task{}).
		Where("id = ? AND status IN ? AND current_assignments < max_assignments AND (deadline IS NULL OR deadline > ?)",
			taskID, claimableStatuses, now).
		Updates(map[string]interface{}{
			"current_assignments": gorm.Expr("current_assignments + 1"),
			"updated_at":          now,
		})
	if res.Error != nil {
		return errors.Wrap(res.Error, "reserve slot")
	}
	if res.RowsAffected == 1 {
		return nil
	}
	if err := taskExists(tx, taskID); err != nil {
		return err
	}
	return ErrTaskUnavailable
}

func releaseSlot(tx *gorm.DB, taskID uint, now time.Time) error {
	res := tx.Model(&models.Task{}).
		Where("id = ? AND current_assignments > 0", taskID).
		Updates(map[string]interface{}{
			"current_assignments": gorm.Expr("current_assignments - 1"),
			"updated_at":          now,
		})
	if res.Error != nil {
		return errors.Wrap(res.Error, "release slot")
	}
	if res.RowsAffected == 1 {
		return nil
	}
	return taskExists(tx, taskID)
}

// withdrawOffers rejects every pending offer on the task and gives their
// slots back. It returns how many offers were withdrawn.
func withdrawOffers(tx *gorm.DB, taskID uint, now time.Time, note string) (int64, error) {
	res := tx.Model(&models.Assignment{}).
		Where("task_id = ? AND status = ?", taskID, models.AssignmentPending).
		Updates(map[string]interface{}{
			"status":         models.AssignmentRejected,
			"reviewed_at":    now,
			"reviewer_notes": note,
		})
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "withdraw offers")
	}
	n := res.RowsAffected
	if n == 0 {
		return 0, nil
	}
	err := tx.Model(&models.Task{}).Where("id = ?", taskID).
		Updates(map[string]interface{}{
			"current_assignments": gorm.Expr("CASE WHEN current_assignments > ? THEN current_assignments - ? ELSE 0 END", n, n),
			"updated_at":          now,
		}).Error
	return n, errors.Wrap(err, "release offered slots")
}

func taskExists(tx *gorm.DB, taskID uint) error {
	var n int64
	if err := tx.Model(&models.Task{}).Where("id = ?", taskID).Count(&n).Error; err != nil {
		return errors.Wrap(err, "check task")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetStatus moves a task along its lifecycle on behalf of staff.
func (c *Catalog) SetStatus(ctx context.Context, taskID uint, status string, actorID uint, reason string) (*models.Task, error) {
	var task models.Task
	err := database.Transaction(ctx, c.db, c.retries, func(tx *gorm.DB) error {
		if err := tx.Take(&task, taskID).Error; err != nil {
			return storeErr(err, "load task")
		}
		if !allowedTransition(task.Status, status) {
			return errors.Wrapf(ErrInvalidState, "cannot move task from %s to %s", task.Status, status)
		}
		now := c.now()
		res := tx.Model(&models.Task{}).
			Where("id = ? AND status = ?", taskID, task.Status).
			Updates(map[string]interface{}{"status": status, "updated_at": now})
		if res.Error != nil {
			return errors.Wrap(res.Error, "update task status")
		}
		if res.RowsAffected == 0 {
			return ErrInvalidState
		}
		from := task.Status
		task.Status = status
		task.UpdatedAt = now

		var typ string
		switch status {
		case models.TaskCancelled:
			typ = models.ActivityCancelled
		case models.TaskCompleted:
			typ = models.ActivityCompleted
		case models.TaskRejected:
			typ = models.ActivityRejected
		default:
			return nil
		}
		withdrawn, err := withdrawOffers(tx, taskID, now, "task "+status)
		if err != nil {
			return err
		}
		if withdrawn > 0 {
			task.CurrentAssignments -= int(withdrawn)
			if task.CurrentAssignments < 0 {
				task.CurrentAssignments = 0
			}
		}
		_, err = c.activity.WithTx(tx).Append(ctx, taskID, uintPtr(actorID), typ, map[string]interface{}{
			"from":             from,
			"reason":           reason,
			"withdrawn_offers": withdrawn,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func allowedTransition(from, to string) bool {
	for _, s := range taskTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ExpireOverdue completes claimable tasks whose deadline has passed and
// returns how many were closed.
func (c *Catalog) ExpireOverdue(ctx context.Context) (int, error) {
	now := c.now()
	var ids []uint
	err := c.db.WithContext(ctx).Model(&models.Task{}).
		Where("status IN ? AND deadline IS NOT NULL AND deadline <= ?", claimableStatuses, now).
		Order("id").Pluck("id", &ids).Error
	if err != nil {
		return 0, storeErr(err, "list overdue tasks")
	}
	closed := 0
	for _, id := range ids {
		changed := false
		err := database.Transaction(ctx, c.db, c.retries, func(tx *gorm.DB) error {
			changed = false
			res := tx.Model(&models.Task{}).
				Where("id = ? AND status IN ?", id, claimableStatuses).
				Updates(map[string]interface{}{"status": models.TaskCompleted, "updated_at": now})
			if res.Error != nil {
				return errors.Wrap(res.Error, "expire task")
			}
			if res.RowsAffected == 0 {
				return nil
			}
			changed = true
			withdrawn, err := withdrawOffers(tx, id, now, "deadline passed")
			if err != nil {
				return err
			}
			_, err = c.activity.WithTx(tx).Append(ctx, id, nil, models.ActivityCompleted, map[string]interface{}{
				"reason":           "deadline passed",
				"withdrawn_offers": withdrawn,
			})
			return err
		})
		if err != nil {
			return closed, err
		}
		if changed {
			closed++
		}
	}
	return closed, nil
}
