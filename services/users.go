package services

import (
	"context"
	"net/mail"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/deukmosi-create/task-earning-platform/database"
	"github.com/deukmosi-create/task-earning-platform/models"
)

type Users struct {
	db      *gorm.DB
	ledger  *Ledger
	retries int
}

func NewUsers(db *gorm.DB, ledger *Ledger, opts Options) *Users {
	opts = opts.withDefaults()
	return &Users{db: db, ledger: ledger, retries: opts.TxRetries}
}

type NewUser struct {
	Name         string
	Email        string
	Password     string
	UserType     string
	ActiveRole   string
	ReferredByID *uint
}

func (n *NewUser) normalize() error {
	n.Name = strings.TrimSpace(n.Name)
	n.Email = strings.ToLower(strings.TrimSpace(n.Email))
	if n.Name == "" {
		return errors.Wrap(ErrInvalidInput, "name is required")
	}
	if _, err := mail.ParseAddress(n.Email); err != nil {
		return errors.Wrap(ErrInvalidInput, "invalid email")
	}
	if len(n.Password) < 8 {
		return errors.Wrap(ErrInvalidInput, "password must be at least 8 characters")
	}
	if n.UserType == "" {
		n.UserType = models.UserTypeFreelancer
	}
	switch n.UserType {
	case models.UserTypeFreelancer, models.UserTypeClient, models.UserTypeAdmin, models.UserTypeModerator:
	default:
		return errors.Wrapf(ErrInvalidInput, "unknown user type %q", n.UserType)
	}
	if n.ActiveRole == "" {
		n.ActiveRole = models.RoleFreelancer
		if n.UserType == models.UserTypeClient {
			n.ActiveRole = models.RoleClient
		}
	}
	switch n.ActiveRole {
	case models.RoleFreelancer, models.RoleClient, models.RoleBoth:
	default:
		return errors.Wrapf(ErrInvalidInput, "unknown role %q", n.ActiveRole)
	}
	return nil
}

// Provision creates a user on the basic plan together with their wallet.
func (s *Users) Provision(ctx context.Context, in NewUser) (*models.User, *models.Wallet, error) {
	if err := in.normalize(); err != nil {
		return nil, nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, errors.Wrap(err, "hash password")
	}

	var user models.User
	var wallet *models.Wallet
	err = database.Transaction(ctx, s.db, s.retries, func(tx *gorm.DB) error {
		var basic models.Plan
		if err := tx.Where("name = ?", models.PlanBasic).Take(&basic).Error; err != nil {
			return storeErr(err, "load basic plan")
		}
		if in.ReferredByID != nil {
			var n int64
			if err := tx.Model(&models.User{}).Where("id = ?", *in.ReferredByID).Count(&n).Error; err != nil {
				return storeErr(err, "check referrer")
			}
			if n == 0 {
				return errors.Wrap(ErrInvalidInput, "unknown referrer")
			}
		}
		user = models.User{
			Name:                    in.Name,
			Email:                   in.Email,
			Password:                string(hash),
			UserType:                in.UserType,
			ActiveRole:              in.ActiveRole,
			CurrentFreelancerPlanID: &basic.ID,
			CurrentClientPlanID:     &basic.ID,
			ReferredByID:            in.ReferredByID,
			Status:                  models.UserActive,
		}
		if err := tx.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errors.Wrap(ErrInvalidInput, "email already registered")
			}
			return storeErr(err, "create user")
		}
		var err error
		wallet, err = s.ledger.WithTx(tx).OpenWallet(ctx, user.ID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return &user, wallet, nil
}

// Authenticate checks the password of an active user.
func (s *Users) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, storeErr(err, "load user")
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	if u.Status != models.UserActive {
		return nil, ErrPermissionDenied
	}
	return &u, nil
}

func (s *Users) Get(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Preload("FreelancerPlan").Preload("ClientPlan").Take(&u, id).Error; err != nil {
		return nil, storeErr(err, "load user")
	}
	return &u, nil
}

// SetStatus suspends or reactivates an account. Suspended users fail every
// capability check and cannot log in.
func (s *Users) SetStatus(ctx context.Context, userID uint, status string) (*models.User, error) {
	switch status {
	case models.UserActive, models.UserSuspended:
	default:
		return nil, errors.Wrapf(ErrInvalidInput, "unknown status %q", status)
	}
	var u models.User
	err := database.Transaction(ctx, s.db, s.retries, func(tx *gorm.DB) error {
		if err := tx.Take(&u, userID).Error; err != nil {
			return storeErr(err, "load user")
		}
		if u.Status == status {
			return nil
		}
		if err := tx.Model(&u).Update("status", status).Error; err != nil {
			return errors.Wrap(err, "update user status")
		}
		u.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}
