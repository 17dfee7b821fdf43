package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	NotifyTaskAssignment = "task_assignment"
	NotifyTaskSubmission = "task_submission"
	NotifyTaskSubmitted  = "task_submitted"
	NotifyTaskApproval   = "task_approval"
	NotifyTaskRejection  = "task_rejection"
	NotifyTaskCompleted  = "task_completed"
	NotifyPayment        = "payment"
	NotifyPlanUpgrade    = "plan_upgrade"
)

type Notification struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"not null;index" json:"user_id"`
	UserType  string         `gorm:"size:20" json:"user_type"`
	Type      string         `gorm:"size:30;not null" json:"notification_type"`
	Title     string         `gorm:"size:200;not null" json:"title"`
	Message   string         `gorm:"type:text;not null" json:"message"`
	Data      datatypes.JSON `json:"data,omitempty"`
	IsRead    bool           `gorm:"not null;default:false" json:"is_read"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}
