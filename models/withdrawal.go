package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Withdrawal struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	UserID      uint            `gorm:"not null;index" json:"user_id"`
	WalletID    uint            `gorm:"not null;index" json:"wallet_id"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Destination string          `gorm:"size:255;not null" json:"destination"`
	Reference   string          `gorm:"size:100;not null;uniqueIndex" json:"reference"`
	Status      string          `gorm:"size:20;not null;default:pending" json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (Withdrawal) TableName() string {
	return "withdrawals"
}
