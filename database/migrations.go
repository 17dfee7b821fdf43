package database

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/deukmosi-create/task-earning-platform/models"
)

// Models lists every table in dependency order.
func Models() []interface{} {
	return []interface{}{
		&models.Plan{},
		&models.User{},
		&models.Wallet{},
		&models.Transaction{},
		&models.Task{},
		&models.Assignment{},
		&models.Submission{},
		&models.ActivityLogEntry{},
		&models.Withdrawal{},
		&models.PlanUpgrade{},
		&models.Notification{},
	}
}

// Migrate creates or updates the schema and seeds the default plans.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return errors.Wrap(err, "auto-migrate")
	}
	return SeedPlans(db)
}

// DefaultPlans are the tiers every installation starts with.
func DefaultPlans() []models.Plan {
	return []models.Plan{
		{Name: models.PlanBasic, Priority: 1, DailyTaskLimit: 5, MaxConcurrentTasks: 3,
			TaskRewardMultiplier: decimal.RequireFromString("1.00"), MonthlyPrice: decimal.Zero, IsActive: true},
		{Name: models.PlanStandard, Priority: 2, DailyTaskLimit: 10, MaxConcurrentTasks: 5,
			TaskRewardMultiplier: decimal.RequireFromString("1.25"), MonthlyPrice: decimal.RequireFromString("9.99"), IsActive: true},
		{Name: models.PlanPremium, Priority: 3, DailyTaskLimit: 25, MaxConcurrentTasks: 10,
			TaskRewardMultiplier: decimal.RequireFromString("1.50"), MonthlyPrice: decimal.RequireFromString("19.99"), IsActive: true},
	}
}

// SeedPlans inserts the default plans, leaving existing rows untouched.
func SeedPlans(db *gorm.DB) error {
	plans := DefaultPlans()
	if err := db.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).Create(&plans).Error; err != nil {
		return errors.Wrap(err, "seed plans")
	}
	return nil
}
