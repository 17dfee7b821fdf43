package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/deukmosi-create/task-earning-platform/models"
)

type Capability string

const (
	CapClaimTasks        Capability = "claim_tasks"
	CapCreateTasks       Capability = "create_tasks"
	CapManageTasks       Capability = "manage_tasks"
	CapReviewSubmissions Capability = "review_submissions"
	CapManageWallets     Capability = "manage_wallets"
	CapManageUsers       Capability = "manage_users"
)

// AuthorizationPort answers who may do what and which plan applies.
type AuthorizationPort interface {
	HasCapability(ctx context.Context, userID uint, c Capability) (bool, error)
	CurrentPlan(ctx context.Context, userID uint, role string) (*models.Plan, error)
}

// Authorizer resolves capabilities from the user's type and active role.
type Authorizer struct {
	db *gorm.DB
}

func NewAuthorizer(db *gorm.DB) *Authorizer {
	return &Authorizer{db: db}
}

func (a *Authorizer) HasCapability(ctx context.Context, userID uint, c Capability) (bool, error) {
	var u models.User
	if err := a.db.WithContext(ctx).Take(&u, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, storeErr(err, "load user")
	}
	if u.Status != models.UserActive {
		return false, nil
	}
	switch c {
	case CapReviewSubmissions, CapManageTasks:
		return u.IsStaff(), nil
	case CapManageWallets, CapManageUsers:
		return u.UserType == models.UserTypeAdmin, nil
	case CapClaimTasks:
		return u.ActsAsFreelancer(), nil
	case CapCreateTasks:
		return u.ActsAsClient() || u.IsStaff(), nil
	}
	return false, nil
}

// CurrentPlan returns the active plan the user holds for role. A missing or
// retired plan yields ErrPlanInsufficient.
func (a *Authorizer) CurrentPlan(ctx context.Context, userID uint, role string) (*models.Plan, error) {
	var u models.User
	if err := a.db.WithContext(ctx).Take(&u, userID).Error; err != nil {
		return nil, storeErr(err, "load user")
	}
	planID := u.CurrentFreelancerPlanID
	if role == models.RoleClient {
		planID = u.CurrentClientPlanID
	}
	if planID == nil {
		return nil, ErrPlanInsufficient
	}
	var p models.Plan
	if err := a.db.WithContext(ctx).Take(&p, *planID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrPlanInsufficient
		}
		return nil, storeErr(err, "load plan")
	}
	if !p.IsActive {
		return nil, ErrPlanInsufficient
	}
	return &p, nil
}
