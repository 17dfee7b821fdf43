package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	TaskPending   = "pending"
	TaskActive    = "active"
	TaskCompleted = "completed"
	TaskRejected  = "rejected"
	TaskCancelled = "cancelled"
	TaskSimulated = "simulated"
)

const (
	AssignmentPending   = "pending"
	AssignmentAccepted  = "accepted"
	AssignmentSubmitted = "submitted"
	AssignmentApproved  = "approved"
	AssignmentRejected  = "rejected"
)

type Task struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	Title              string          `gorm:"size:200;not null" json:"title"`
	Description        string          `gorm:"type:text;not null" json:"description"`
	Reward             decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"reward"`
	MaxAssignments     int             `gorm:"not null;default:1" json:"max_assignments"`
	CurrentAssignments int             `gorm:"not null;default:0" json:"current_assignments"`
	PlanRequiredID     *uint           `gorm:"index" json:"plan_required_id"`
	Status             string          `gorm:"size:20;not null;default:pending;index" json:"status"`
	CreatedByID        uint            `gorm:"not null;index" json:"created_by_id"`
	Deadline           *time.Time      `json:"deadline"`
	IsSimulated        bool            `gorm:"not null;default:false" json:"is_simulated"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`

	PlanRequired *Plan `gorm:"foreignKey:PlanRequiredID" json:"plan_required,omitempty"`
	CreatedBy    *User `gorm:"foreignKey:CreatedByID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Task) TableName() string {
	return "tasks"
}

// IsOpen reports whether the task still accepts work at now, regardless of
// how many slots are taken.
func (t *Task) IsOpen(now time.Time) bool {
	if t.Status != TaskActive && t.Status != TaskSimulated {
		return false
	}
	return t.Deadline == nil || t.Deadline.After(now)
}

// IsAvailable reports whether the task can take another assignment at now.
func (t *Task) IsAvailable(now time.Time) bool {
	return t.IsOpen(now) && t.CurrentAssignments < t.MaxAssignments
}

type Assignment struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	TaskID          uint            `gorm:"not null;uniqueIndex:idx_assignment_task_user" json:"task_id"`
	UserID          uint            `gorm:"not null;uniqueIndex:idx_assignment_task_user;index" json:"user_id"`
	Status          string          `gorm:"size:20;not null;default:pending;index" json:"status"`
	AssignedAt      time.Time       `json:"assigned_at"`
	SubmittedAt     *time.Time      `json:"submitted_at"`
	ReviewedAt      *time.Time      `json:"reviewed_at"`
	SubmissionNotes string          `gorm:"type:text" json:"submission_notes"`
	ReviewerNotes   string          `gorm:"type:text" json:"reviewer_notes"`
	RewardEarned    decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"reward_earned"`

	Task *Task `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"task,omitempty"`
	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Assignment) TableName() string {
	return "task_assignments"
}

type Submission struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	AssignmentID  uint           `gorm:"not null;uniqueIndex" json:"assignment_id"`
	Files         datatypes.JSON `json:"files"`
	Notes         string         `gorm:"type:text" json:"notes"`
	SubmittedAt   time.Time      `json:"submitted_at"`
	ReviewedAt    *time.Time     `json:"reviewed_at"`
	IsApproved    *bool          `json:"is_approved"`
	ReviewerNotes string         `gorm:"type:text" json:"reviewer_notes"`

	Assignment *Assignment `gorm:"foreignKey:AssignmentID;constraint:OnDelete:CASCADE" json:"assignment,omitempty"`
}

func (Submission) TableName() string {
	return "task_submissions"
}
