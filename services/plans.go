package services

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/deukmosi-create/task-earning-platform/database"
	"github.com/deukmosi-create/task-earning-platform/models"
	"github.com/deukmosi-create/task-earning-platform/notify"
)

type Plans struct {
	db       *gorm.DB
	ledger   *Ledger
	notifier notify.Notifier
	log      *zap.Logger
	retries  int
}

func NewPlans(db *gorm.DB, ledger *Ledger, notifier notify.Notifier, log *zap.Logger, opts Options) *Plans {
	opts = opts.withDefaults()
	return &Plans{db: db, ledger: ledger, notifier: notifier, log: log, retries: opts.TxRetries}
}

// List returns the active plans, lowest priority first.
func (p *Plans) List(ctx context.Context) ([]models.Plan, error) {
	var out []models.Plan
	err := p.db.WithContext(ctx).Where("is_active = ?", true).Order("priority ASC").Find(&out).Error
	return out, storeErr(err, "list plans")
}

// Upgrade moves the user's freelancer plan to a higher tier, paying the
// monthly price from their wallet. Downgrades are refused.
func (p *Plans) Upgrade(ctx context.Context, userID, planID uint) (*models.PlanUpgrade, error) {
	var upgrade models.PlanUpgrade
	var target models.Plan
	err := database.Transaction(ctx, p.db, p.retries, func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND is_active = ?", planID, true).Take(&target).Error; err != nil {
			return storeErr(err, "load plan")
		}
		var user models.User
		if err := tx.Take(&user, userID).Error; err != nil {
			return storeErr(err, "load user")
		}
		if user.CurrentFreelancerPlanID != nil {
			var current models.Plan
			if err := tx.Take(&current, *user.CurrentFreelancerPlanID).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return storeErr(err, "load current plan")
			} else if err == nil && target.Priority <= current.Priority {
				return errors.Wrap(ErrInvalidState, "can only upgrade to a higher plan")
			}
		}

		ref := NewReference("plan")
		if target.MonthlyPrice.IsPositive() {
			var wallet models.Wallet
			if err := tx.Where("user_id = ?", userID).Take(&wallet).Error; err != nil {
				return storeErr(err, "load wallet")
			}
			if _, err := p.ledger.WithTx(tx).Debit(ctx, wallet.ID, target.MonthlyPrice, models.TxPlanUpgrade,
				fmt.Sprintf("Upgrade to %s plan", target.Name), ref); err != nil {
				return err
			}
		}

		q := tx.Model(&models.User{}).Where("id = ?", userID)
		if user.CurrentFreelancerPlanID == nil {
			q = q.Where("current_freelancer_plan_id IS NULL")
		} else {
			q = q.Where("current_freelancer_plan_id = ?", *user.CurrentFreelancerPlanID)
		}
		res := q.Update("current_freelancer_plan_id", target.ID)
		if res.Error != nil {
			return errors.Wrap(res.Error, "switch plan")
		}
		if res.RowsAffected == 0 {
			return ErrInvalidState
		}

		upgrade = models.PlanUpgrade{
			UserID:     userID,
			FromPlanID: user.CurrentFreelancerPlanID,
			ToPlanID:   target.ID,
			Amount:     target.MonthlyPrice,
			Reference:  ref,
		}
		return storeErr(tx.Create(&upgrade).Error, "record upgrade")
	})
	if err != nil {
		return nil, err
	}
	if err := p.notifier.Notify(ctx, notify.ToUser(userID, models.NotifyPlanUpgrade, "Plan Upgraded",
		fmt.Sprintf("Your plan has been upgraded to %s", target.Name),
		map[string]interface{}{"plan_id": target.ID})); err != nil {
		p.log.Warn("notification failed", zap.String("type", models.NotifyPlanUpgrade), zap.Uint("user_id", userID), zap.Error(err))
	}
	return &upgrade, nil
}
