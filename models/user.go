package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	UserTypeFreelancer = "freelancer"
	UserTypeClient     = "client"
	UserTypeAdmin      = "admin"
	UserTypeModerator  = "moderator"

	RoleFreelancer = "freelancer"
	RoleClient     = "client"
	RoleBoth       = "both"

	UserActive    = "active"
	UserSuspended = "suspended"
)

type User struct {
	ID                      uint            `gorm:"primaryKey" json:"id"`
	Name                    string          `gorm:"size:100;not null" json:"name"`
	Email                   string          `gorm:"size:191;uniqueIndex;not null" json:"email"`
	Password                string          `gorm:"size:255;not null" json:"-"`
	UserType                string          `gorm:"size:20;not null;default:freelancer" json:"user_type"`
	ActiveRole              string          `gorm:"size:20;not null;default:freelancer" json:"active_role"`
	CurrentFreelancerPlanID *uint           `gorm:"index" json:"current_freelancer_plan_id"`
	CurrentClientPlanID     *uint           `gorm:"index" json:"current_client_plan_id"`
	TotalEarnings           decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total_earnings"`
	TotalDeposits           decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total_deposits"`
	TotalWithdrawals        decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total_withdrawals"`
	ReferredByID            *uint           `json:"referred_by_id,omitempty"`
	Status                  string          `gorm:"size:20;not null;default:active" json:"status"`
	CreatedAt               time.Time       `json:"created_at"`
	UpdatedAt               time.Time       `json:"-"`

	FreelancerPlan *Plan `gorm:"foreignKey:CurrentFreelancerPlanID" json:"freelancer_plan,omitempty"`
	ClientPlan     *Plan `gorm:"foreignKey:CurrentClientPlanID" json:"client_plan,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// IsStaff reports whether the user can act on the admin surface.
func (u *User) IsStaff() bool {
	return u.UserType == UserTypeAdmin || u.UserType == UserTypeModerator
}

// ActsAsFreelancer reports whether the user's active role allows working on tasks.
func (u *User) ActsAsFreelancer() bool {
	return u.ActiveRole == RoleFreelancer || u.ActiveRole == RoleBoth
}

func (u *User) ActsAsClient() bool {
	return u.UserType == UserTypeClient || u.ActiveRole == RoleClient || u.ActiveRole == RoleBoth
}
