package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/deukmosi-create/task-earning-platform/database"
	"github.com/deukmosi-create/task-earning-platform/models"
	"github.com/deukmosi-create/task-earning-platform/notify"
)

var activeAssignmentStatuses = []string{models.AssignmentAccepted, models.AssignmentSubmitted}

// Engine drives assignments through pending -> accepted -> submitted ->
// approved|rejected. It is the only component that touches both the catalog
// and the ledger; notifications go out after the transaction commits.
type Engine struct {
	db       *gorm.DB
	ledger   *Ledger
	activity *ActivityLog
	authz    AuthorizationPort
	notifier notify.Notifier
	log      *zap.Logger
	retries  int
	now      func() time.Time
}

func NewEngine(db *gorm.DB, ledger *Ledger, activity *ActivityLog, authz AuthorizationPort, notifier notify.Notifier, log *zap.Logger, opts Options) *Engine {
	opts = opts.withDefaults()
	return &Engine{
		db:       db,
		ledger:   ledger,
		activity: activity,
		authz:    authz,
		notifier: notifier,
		log:      log,
		retries:  opts.TxRetries,
		now:      opts.Now,
	}
}

// Claim gives the user a slot on the task. A pending offer for the same task
// is accepted instead of creating a second assignment.
func (e *Engine) Claim(ctx context.Context, taskID, userID uint) (*models.Assignment, error) {
	ok, err := e.authz.HasCapability(ctx, userID, CapClaimTasks)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPermissionDenied
	}
	plan, err := e.authz.CurrentPlan(ctx, userID, models.RoleFreelancer)
	if err != nil {
		return nil, err
	}

	var out models.Assignment
	err = database.Transaction(ctx, e.db, e.retries, func(tx *gorm.DB) error {
		now := e.now()
		var task models.Task
		if err := tx.Take(&task, taskID).Error; err != nil {
			return storeErr(err, "load task")
		}
		if !task.IsOpen(now) {
			return ErrTaskUnavailable
		}
		if !task.IsSimulated && task.PlanRequiredID != nil {
			var required models.Plan
			if err := tx.Take(&required, *task.PlanRequiredID).Error; err != nil {
				return storeErr(err, "load required plan")
			}
			if plan.Priority < required.Priority {
				return ErrPlanInsufficient
			}
		}

		var existing models.Assignment
		err := tx.Where("task_id = ? AND user_id = ?", taskID, userID).Take(&existing).Error
		switch {
		case err == nil:
			if existing.Status != models.AssignmentPending {
				return ErrAlreadyAssigned
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return storeErr(err, "load assignment")
		}
		fresh := err != nil

		// an offer already holds its slot
		if fresh && !task.IsAvailable(now) {
			return ErrTaskUnavailable
		}

		// serializes concurrent claims by the same user on different tasks
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").
			Take(&models.User{}, userID).Error; err != nil {
			return storeErr(err, "lock user")
		}
		var active int64
		if err := tx.Model(&models.Assignment{}).
			Where("user_id = ? AND status IN ?", userID, activeAssignmentStatuses).
			Count(&active).Error; err != nil {
			return storeErr(err, "count active assignments")
		}
		if active >= int64(plan.MaxConcurrentTasks) {
			return ErrConcurrencyLimitExceeded
		}

		if !fresh {
			// the slot was reserved when the offer was made
			res := tx.Model(&models.Assignment{}).
				Where("id = ? AND status = ?", existing.ID, models.AssignmentPending).
				Update("status", models.AssignmentAccepted)
			if res.Error != nil {
				return errors.Wrap(res.Error, "accept offer")
			}
			if res.RowsAffected == 0 {
				return ErrAlreadyAssigned
			}
			existing.Status = models.AssignmentAccepted
			out = existing
			_, err := e.activity.WithTx(tx).Append(ctx, taskID, uintPtr(userID), models.ActivityAccepted, map[string]interface{}{
				"freelancer_id": userID,
				"assignment_id": existing.ID,
			})
			return err
		}

		if err := reserveSlot(tx, taskID, now); err != nil {
			return err
		}
		out = models.Assignment{
			TaskID:       taskID,
			UserID:       userID,
			Status:       models.AssignmentAccepted,
			AssignedAt:   now,
			RewardEarned: decimal.Zero,
		}
		if err := tx.Create(&out).Error; err != nil {
			return storeErr(err, "create assignment")
		}
		_, err = e.activity.WithTx(tx).Append(ctx, taskID, uintPtr(userID), models.ActivityAssigned, map[string]interface{}{
			"freelancer_id": userID,
			"assignment_id": out.ID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Offer pre-assigns a task to a user on behalf of staff. The user accepts it
// with Claim.
func (e *Engine) Offer(ctx context.Context, taskID, userID, actorID uint) (*models.Assignment, error) {
	var out models.Assignment
	var task models.Task
	err := database.Transaction(ctx, e.db, e.retries, func(tx *gorm.DB) error {
		now := e.now()
		if err := tx.Take(&task, taskID).Error; err != nil {
			return storeErr(err, "load task")
		}
		var n int64
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&n).Error; err != nil {
			return storeErr(err, "check user")
		}
		if n == 0 {
			return ErrNotFound
		}
		if err := reserveSlot(tx, taskID, now); err != nil {
			return err
		}
		out = models.Assignment{
			TaskID:       taskID,
			UserID:       userID,
			Status:       models.AssignmentPending,
			AssignedAt:   now,
			RewardEarned: decimal.Zero,
		}
		if err := tx.Create(&out).Error; err != nil {
			return storeErr(err, "create offer")
		}
		_, err := e.activity.WithTx(tx).Append(ctx, taskID, uintPtr(actorID), models.ActivityAssigned, map[string]interface{}{
			"freelancer_id": userID,
			"assignment_id": out.ID,
			"offered_by":    actorID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	e.emit(ctx, notify.ToUser(userID, models.NotifyTaskAssignment, "New Task Assignment",
		fmt.Sprintf("You have been offered the task %q", task.Title),
		map[string]interface{}{"task_id": taskID, "assignment_id": out.ID}))
	return &out, nil
}

// WithdrawOffer takes back an offer the user has not accepted yet and frees
// the slot it held.
func (e *Engine) WithdrawOffer(ctx context.Context, assignmentID, actorID uint, reason string) (*models.Assignment, error) {
	var a models.Assignment
	err := database.Transaction(ctx, e.db, e.retries, func(tx *gorm.DB) error {
		now := e.now()
		if err := tx.Take(&a, assignmentID).Error; err != nil {
			return storeErr(err, "load assignment")
		}
		if a.Status != models.AssignmentPending {
			return errors.Wrapf(ErrInvalidState, "assignment is %s", a.Status)
		}
		if reason == "" {
			reason = "offer withdrawn"
		}
		res := tx.Model(&models.Assignment{}).
			Where("id = ? AND status = ?", a.ID, models.AssignmentPending).
			Updates(map[string]interface{}{
				"status":         models.AssignmentRejected,
				"reviewed_at":    now,
				"reviewer_notes": reason,
			})
		if res.Error != nil {
			return errors.Wrap(res.Error, "withdraw offer")
		}
		if res.RowsAffected == 0 {
			return ErrInvalidState
		}
		a.Status = models.AssignmentRejected
		a.ReviewedAt = &now
		a.ReviewerNotes = reason
		if err := releaseSlot(tx, a.TaskID, now); err != nil {
			return err
		}
		_, err := e.activity.WithTx(tx).Append(ctx, a.TaskID, uintPtr(actorID), models.ActivityCancelled, map[string]interface{}{
			"freelancer_id": a.UserID,
			"assignment_id": a.ID,
			"reason":        reason,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	e.emit(ctx, notify.ToUser(a.UserID, models.NotifyTaskRejection, "Task Offer Withdrawn",
		"A task offer to you was withdrawn: "+reason,
		map[string]interface{}{"task_id": a.TaskID, "assignment_id": a.ID}))
	return &a, nil
}

// Submit hands in the work for an accepted assignment owned by userID.
// Files are opaque references produced by the storage layer.
func (e *Engine) Submit(ctx context.Context, assignmentID, userID uint, files []string, notes string) (*models.Submission, error) {
	if files == nil {
		files = []string{}
	}
	rawFiles, err := json.Marshal(files)
	if err != nil {
		return nil, ErrInvalidInput
	}

	var sub models.Submission
	var task models.Task
	err = database.Transaction(ctx, e.db, e.retries, func(tx *gorm.DB) error {
		now := e.now()
		var a models.Assignment
		if err := tx.Where("id = ? AND user_id = ?", assignmentID, userID).Take(&a).Error; err != nil {
			return storeErr(err, "load assignment")
		}
		if a.Status != models.AssignmentAccepted {
			return ErrInvalidState
		}
		res := tx.Model(&models.Assignment{}).
			Where("id = ? AND status = ?", a.ID, models.AssignmentAccepted).
			Updates(map[string]interface{}{
				"status":           models.AssignmentSubmitted,
				"submitted_at":     now,
				"submission_notes": notes,
			})
		if res.Error != nil {
			return errors.Wrap(res.Error, "submit assignment")
		}
		if res.RowsAffected == 0 {
			return ErrInvalidState
		}
		sub = models.Submission{
			AssignmentID: a.ID,
			Files:        rawFiles,
			Notes:        notes,
			SubmittedAt:  now,
		}
		if err := tx.Create(&sub).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrInvalidState
			}
			return storeErr(err, "create submission")
		}
		if err := tx.Take(&task, a.TaskID).Error; err != nil {
			return storeErr(err, "load task")
		}
		_, err := e.activity.WithTx(tx).Append(ctx, a.TaskID, uintPtr(userID), models.ActivitySubmitted, map[string]interface{}{
			"freelancer_id": userID,
			"submission_id": sub.ID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	data := map[string]interface{}{"task_id": task.ID, "assignment_id": assignmentID, "submission_id": sub.ID}
	e.emit(ctx, notify.ToRole(notify.RoleAdmin, models.NotifyTaskSubmission, "New Task Submission",
		fmt.Sprintf("Freelancer #%d has submitted task %q", userID, task.Title), data))

	var owner models.User
	if err := e.db.WithContext(ctx).Select("id", "user_type").Take(&owner, task.CreatedByID).Error; err != nil {
		e.log.Warn("load task owner for notification", zap.Uint("task_id", task.ID), zap.Error(err))
	} else if owner.UserType == models.UserTypeClient {
		e.emit(ctx, notify.ToUser(owner.ID, models.NotifyTaskSubmitted, "Task Submitted",
			fmt.Sprintf("Your task %q has been submitted by freelancer #%d", task.Title, userID), data))
	}
	return &sub, nil
}

type ReviewResult struct {
	Assignment  models.Assignment   `json:"assignment"`
	Submission  models.Submission   `json:"submission"`
	Reward      decimal.Decimal     `json:"reward"`
	Transaction *models.Transaction `json:"transaction,omitempty"`
}

// Review settles a submission. Approval credits the task reward times the
// freelancer's plan multiplier, rounded to cents, in the same transaction
// that moves the assignment to approved. A submission can be reviewed once;
// later attempts fail with ErrInvalidState and change nothing.
func (e *Engine) Review(ctx context.Context, submissionID, reviewerID uint, approve bool, notes string) (*ReviewResult, error) {
	ok, err := e.authz.HasCapability(ctx, reviewerID, CapReviewSubmissions)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPermissionDenied
	}

	var sub models.Submission
	if err := e.db.WithContext(ctx).Preload("Assignment.Task").Take(&sub, submissionID).Error; err != nil {
		return nil, storeErr(err, "load submission")
	}
	if sub.Assignment == nil || sub.Assignment.Task == nil {
		return nil, ErrNotFound
	}
	if sub.ReviewedAt != nil || sub.Assignment.Status != models.AssignmentSubmitted {
		return nil, ErrInvalidState
	}
	assignment := *sub.Assignment
	task := *assignment.Task

	reward := decimal.Zero
	if approve {
		multiplier := decimal.NewFromInt(1)
		plan, err := e.authz.CurrentPlan(ctx, assignment.UserID, models.RoleFreelancer)
		switch {
		case err == nil:
			multiplier = plan.TaskRewardMultiplier
		case errors.Is(err, ErrPlanInsufficient):
			e.log.Info("no active plan at review, paying base reward", zap.Uint("user_id", assignment.UserID))
		default:
			return nil, err
		}
		reward = RoundMoney(task.Reward.Mul(multiplier))
	}

	result := ReviewResult{Reward: reward}
	err = database.Transaction(ctx, e.db, e.retries, func(tx *gorm.DB) error {
		now := e.now()
		result.Transaction = nil

		status := models.AssignmentRejected
		if approve {
			status = models.AssignmentApproved
		}
		res := tx.Model(&models.Assignment{}).
			Where("id = ? AND status = ?", assignment.ID, models.AssignmentSubmitted).
			Updates(map[string]interface{}{
				"status":         status,
				"reviewed_at":    now,
				"reviewer_notes": notes,
				"reward_earned":  reward,
			})
		if res.Error != nil {
			return errors.Wrap(res.Error, "review assignment")
		}
		if res.RowsAffected == 0 {
			return ErrInvalidState
		}
		res = tx.Model(&models.Submission{}).
			Where("id = ? AND reviewed_at IS NULL", sub.ID).
			Updates(map[string]interface{}{
				"is_approved":    approve,
				"reviewer_notes": notes,
				"reviewed_at":    now,
			})
		if res.Error != nil {
			return errors.Wrap(res.Error, "review submission")
		}
		if res.RowsAffected == 0 {
			return ErrInvalidState
		}

		if approve && reward.IsPositive() {
			ledger := e.ledger.WithTx(tx)
			var wallet models.Wallet
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("user_id = ?", assignment.UserID).Take(&wallet).Error; err != nil {
				return storeErr(err, "load wallet")
			}
			entry, err := ledger.Credit(ctx, wallet.ID, reward, models.TxEarning,
				fmt.Sprintf("Task completion: %s", task.Title), TaskReference(task.ID))
			if err != nil {
				return err
			}
			result.Transaction = entry
			if err := tx.Model(&models.User{}).Where("id = ?", assignment.UserID).
				UpdateColumn("total_earnings", gorm.Expr("total_earnings + ?", reward)).Error; err != nil {
				return errors.Wrap(err, "update total earnings")
			}
		}

		typ := models.ActivityRejected
		if approve {
			typ = models.ActivityApproved
		}
		if _, err := e.activity.WithTx(tx).Append(ctx, task.ID, uintPtr(reviewerID), typ, map[string]interface{}{
			"reviewer_id":    reviewerID,
			"reviewer_notes": notes,
			"submission_id":  sub.ID,
			"reward":         reward.StringFixed(2),
		}); err != nil {
			return err
		}

		if err := tx.Take(&result.Assignment, assignment.ID).Error; err != nil {
			return storeErr(err, "reload assignment")
		}
		return storeErr(tx.Take(&result.Submission, sub.ID).Error, "reload submission")
	})
	if err != nil {
		return nil, err
	}

	data := map[string]interface{}{"task_id": task.ID, "assignment_id": assignment.ID, "submission_id": sub.ID}
	if approve {
		e.emit(ctx, notify.ToUser(assignment.UserID, models.NotifyTaskApproval, "Task Approved",
			fmt.Sprintf("Your submission for task %q has been approved. $%s earned.", task.Title, reward.StringFixed(2)), data))
		e.emit(ctx, notify.ToUser(task.CreatedByID, models.NotifyTaskCompleted, "Task Completed",
			fmt.Sprintf("Task %q has been completed successfully", task.Title), data))
	} else {
		e.emit(ctx, notify.ToUser(assignment.UserID, models.NotifyTaskRejection, "Task Rejected",
			fmt.Sprintf("Your submission for task %q has been rejected. Reason: %s", task.Title, notes), data))
	}
	return &result, nil
}

type AssignmentFilter struct {
	Status string
	Page   int
	Limit  int
}

// Assignments lists the user's assignments with their tasks, newest first.
func (e *Engine) Assignments(ctx context.Context, userID uint, f AssignmentFilter) ([]models.Assignment, error) {
	page, limit := normalizePage(f.Page, f.Limit)
	q := e.db.WithContext(ctx).Preload("Task").Where("user_id = ?", userID)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	var out []models.Assignment
	err := q.Order("assigned_at DESC").Order("id DESC").Offset((page - 1) * limit).Limit(limit).Find(&out).Error
	return out, storeErr(err, "list assignments")
}

// PendingSubmissions lists submissions awaiting review, oldest first.
func (e *Engine) PendingSubmissions(ctx context.Context, page, limit int) ([]models.Submission, error) {
	page, limit = normalizePage(page, limit)
	var out []models.Submission
	err := e.db.WithContext(ctx).Preload("Assignment.Task").
		Where("reviewed_at IS NULL").
		Order("submitted_at ASC").Order("id ASC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&out).Error
	return out, storeErr(err, "list submissions")
}

// emit delivers a notification. Failures are logged and never undo the
// committed transition.
func (e *Engine) emit(ctx context.Context, ev notify.Event) {
	if err := e.notifier.Notify(ctx, ev); err != nil {
		e.log.Warn("notification failed",
			zap.String("type", ev.Type),
			zap.Uint("user_id", ev.UserID),
			zap.String("role", ev.Role),
			zap.Error(err))
	}
}
