package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet.Balance is a projection of the wallet's transactions, updated in the
// same database transaction as every entry.
type Wallet struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	UserID    uint            `gorm:"not null;uniqueIndex" json:"user_id"`
	Balance   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"balance"`
	Currency  string          `gorm:"size:3;not null;default:USD" json:"currency"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Wallet) TableName() string {
	return "wallets"
}
