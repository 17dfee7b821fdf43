package services

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"github.com/deukmosi-create/task-earning-platform/models"
)

// ActivityLog is the append-only audit trail of task events.
type ActivityLog struct {
	db  *gorm.DB
	now func() time.Time
}

func NewActivityLog(db *gorm.DB, opts Options) *ActivityLog {
	opts = opts.withDefaults()
	return &ActivityLog{db: db, now: opts.Now}
}

// WithTx binds the log to an open transaction so entries commit or roll back
// together with the state change they describe.
func (a *ActivityLog) WithTx(tx *gorm.DB) *ActivityLog {
	return &ActivityLog{db: tx, now: a.now}
}

func (a *ActivityLog) Append(ctx context.Context, taskID uint, actorID *uint, typ string, details map[string]interface{}) (*models.ActivityLogEntry, error) {
	entry := models.ActivityLogEntry{
		TaskID:    taskID,
		ActorID:   actorID,
		Type:      typ,
		Timestamp: a.now(),
	}
	if len(details) > 0 {
		raw, err := json.Marshal(details)
		if err != nil {
			return nil, ErrInvalidInput
		}
		entry.Details = raw
	}
	if err := a.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return nil, storeErr(err, "append activity")
	}
	return &entry, nil
}

// ListFor returns the task's entries, newest first.
func (a *ActivityLog) ListFor(ctx context.Context, taskID uint) ([]models.ActivityLogEntry, error) {
	var out []models.ActivityLogEntry
	err := a.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("timestamp DESC").Order("id DESC").
		Find(&out).Error
	return out, storeErr(err, "list activity")
}

func utcNow() time.Time { return time.Now().UTC() }

func uintPtr(v uint) *uint { return &v }
