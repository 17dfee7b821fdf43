package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PlanBasic    = "basic"
	PlanStandard = "standard"
	PlanPremium  = "premium"
)

// Plan is a subscription tier. Higher Priority unlocks more tasks.
type Plan struct {
	ID                   uint            `gorm:"primaryKey" json:"id"`
	Name                 string          `gorm:"size:20;uniqueIndex;not null" json:"name"`
	Priority             int             `gorm:"not null;default:1" json:"priority"`
	DailyTaskLimit       int             `gorm:"not null;default:5" json:"daily_task_limit"`
	MaxConcurrentTasks   int             `gorm:"not null;default:3" json:"max_concurrent_tasks"`
	TaskRewardMultiplier decimal.Decimal `gorm:"type:decimal(3,2);not null;default:1" json:"task_reward_multiplier"`
	MonthlyPrice         decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"monthly_price"`
	Features             string          `gorm:"type:text" json:"features"`
	IsActive             bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"-"`
}

func (Plan) TableName() string {
	return "plans"
}

// PlanUpgrade records a paid plan change.
type PlanUpgrade struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	UserID     uint            `gorm:"not null;index" json:"user_id"`
	FromPlanID *uint           `json:"from_plan_id"`
	ToPlanID   uint            `gorm:"not null" json:"to_plan_id"`
	Amount     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Reference  string          `gorm:"size:64;not null" json:"reference"`
	CreatedAt  time.Time       `json:"created_at"`
}

func (PlanUpgrade) TableName() string {
	return "plan_upgrades"
}
