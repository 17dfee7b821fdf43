package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	TxDeposit       = "deposit"
	TxWithdrawal    = "withdrawal"
	TxEarning       = "earning"
	TxReferralBonus = "referral_bonus"
	TxPlanUpgrade   = "plan_upgrade"
	TxTaskPenalty   = "task_penalty"
)

// Transaction is an append-only ledger entry. Amount is signed: credits are
// positive, debits negative.
type Transaction struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	WalletID    uint            `gorm:"not null;index" json:"wallet_id"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Type        string          `gorm:"size:20;not null;index" json:"transaction_type"`
	Description string          `gorm:"type:text" json:"description"`
	Reference   string          `gorm:"size:100;index" json:"reference"`
	Metadata    datatypes.JSON  `json:"metadata,omitempty"`
	CreatedAt   time.Time       `gorm:"index" json:"created_at"`

	Wallet *Wallet `gorm:"foreignKey:WalletID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Transaction) TableName() string {
	return "transactions"
}
