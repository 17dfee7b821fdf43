package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	ActivityCreated   = "created"
	ActivityAssigned  = "assigned"
	ActivityAccepted  = "accepted"
	ActivitySubmitted = "submitted"
	ActivityApproved  = "approved"
	ActivityRejected  = "rejected"
	ActivityCancelled = "cancelled"
	ActivityCompleted = "completed"
)

// ActivityLogEntry is immutable once written.
type ActivityLogEntry struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	TaskID    uint           `gorm:"not null;index" json:"task_id"`
	ActorID   *uint          `gorm:"index" json:"actor_id"`
	Type      string         `gorm:"size:20;not null" json:"type"`
	Details   datatypes.JSON `json:"details"`
	Timestamp time.Time      `gorm:"not null;index" json:"timestamp"`
}

func (ActivityLogEntry) TableName() string {
	return "task_activity_logs"
}
