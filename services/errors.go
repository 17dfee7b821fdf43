package services

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var (
	ErrTaskUnavailable          = errors.New("task is not available")
	ErrAlreadyAssigned          = errors.New("task already assigned to user")
	ErrConcurrencyLimitExceeded = errors.New("maximum concurrent tasks reached")
	ErrPlanInsufficient         = errors.New("plan does not allow this task")
	ErrInvalidState             = errors.New("invalid state for this operation")
	ErrInsufficientBalance      = errors.New("insufficient balance")
	ErrNotFound                 = errors.New("not found")
	ErrPermissionDenied         = errors.New("permission denied")
	ErrInvalidAmount            = errors.New("amount must be positive")
	ErrInvalidInput             = errors.New("invalid input")
	ErrLedgerDrift              = errors.New("wallet balance does not match ledger")
	ErrInvalidCredentials       = errors.New("invalid email or password")
)

// storeErr maps driver level errors onto the domain taxonomy and wraps
// everything else with the failing operation.
func storeErr(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrAlreadyAssigned
	}
	return errors.Wrap(err, op)
}
