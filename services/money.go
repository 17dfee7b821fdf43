package services

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RoundMoney rounds to cents, halves away from zero.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ParseAmount parses a positive money amount with at most two decimals.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !d.IsPositive() || !d.Equal(d.Round(2)) {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// NewReference returns a unique ledger reference with the given prefix.
func NewReference(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, uuid.NewString())
}

// TaskReference is the ledger reference of a task reward.
func TaskReference(taskID uint) string {
	return fmt.Sprintf("task_%d", taskID)
}
