package services

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/deukmosi-create/task-earning-platform/database"
	"github.com/deukmosi-create/task-earning-platform/models"
)

// Ledger owns wallets and their append-only transactions. Every entry and the
// matching cached balance change are written in one database transaction.
type Ledger struct {
	db      *gorm.DB
	retries int
	inTx    bool
}

func NewLedger(db *gorm.DB, retries int) *Ledger {
	return &Ledger{db: db, retries: retries}
}

// WithTx returns a ledger that writes through tx instead of opening its own
// transaction.
func (l *Ledger) WithTx(tx *gorm.DB) *Ledger {
	return &Ledger{db: tx, retries: l.retries, inTx: true}
}

func (l *Ledger) run(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if l.inTx {
		return fn(l.db.WithContext(ctx))
	}
	return database.Transaction(ctx, l.db, l.retries, fn)
}

// OpenWallet creates the wallet of a freshly provisioned user.
func (l *Ledger) OpenWallet(ctx context.Context, userID uint) (*models.Wallet, error) {
	w := models.Wallet{UserID: userID, Balance: decimal.Zero, Currency: "USD"}
	if err := l.db.WithContext(ctx).Create(&w).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrInvalidInput
		}
		return nil, storeErr(err, "open wallet")
	}
	return &w, nil
}

func (l *Ledger) WalletFor(ctx context.Context, userID uint) (*models.Wallet, error) {
	var w models.Wallet
	if err := l.db.WithContext(ctx).Where("user_id = ?", userID).Take(&w).Error; err != nil {
		return nil, storeErr(err, "load wallet")
	}
	return &w, nil
}

func (l *Ledger) BalanceOf(ctx context.Context, walletID uint) (decimal.Decimal, error) {
	var w models.Wallet
	if err := l.db.WithContext(ctx).Select("id", "balance").Take(&w, walletID).Error; err != nil {
		return decimal.Zero, storeErr(err, "load balance")
	}
	return w.Balance, nil
}

// Credit adds amount to the wallet and records a positive entry.
func (l *Ledger) Credit(ctx context.Context, walletID uint, amount decimal.Decimal, txType, description, reference string) (*models.Transaction, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	amount = RoundMoney(amount)

	var entry models.Transaction
	err := l.run(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&models.Wallet{}).
			Where("id = ?", walletID).
			Updates(map[string]interface{}{
				"balance":    gorm.Expr("balance + ?", amount),
				"updated_at": time.Now().UTC(),
			})
		if res.Error != nil {
			return errors.Wrap(res.Error, "credit wallet")
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		entry = models.Transaction{
			WalletID:    walletID,
			Amount:      amount,
			Type:        txType,
			Description: description,
			Reference:   reference,
		}
		return storeErr(tx.Create(&entry).Error, "record credit")
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Debit removes amount from the wallet. The balance never goes negative: the
// update only matches while the balance covers the amount.
func (l *Ledger) Debit(ctx context.Context, walletID uint, amount decimal.Decimal, txType, description, reference string) (*models.Transaction, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	amount = RoundMoney(amount)

	var entry models.Transaction
	err := l.run(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&models.Wallet{}).
			Where("id = ? AND balance >= ?", walletID, amount).
			Updates(map[string]interface{}{
				"balance":    gorm.Expr("balance - ?", amount),
				"updated_at": time.Now().UTC(),
			})
		if res.Error != nil {
			return errors.Wrap(res.Error, "debit wallet")
		}
		if res.RowsAffected == 0 {
			var n int64
			if err := tx.Model(&models.Wallet{}).Where("id = ?", walletID).Count(&n).Error; err != nil {
				return errors.Wrap(err, "debit wallet")
			}
			if n == 0 {
				return ErrNotFound
			}
			return ErrInsufficientBalance
		}
		entry = models.Transaction{
			WalletID:    walletID,
			Amount:      amount.Neg(),
			Type:        txType,
			Description: description,
			Reference:   reference,
		}
		return storeErr(tx.Create(&entry).Error, "record debit")
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Entries lists wallet transactions, newest first.
func (l *Ledger) Entries(ctx context.Context, walletID uint, page, limit int) ([]models.Transaction, int64, error) {
	page, limit = normalizePage(page, limit)
	var total int64
	if err := l.db.WithContext(ctx).Model(&models.Transaction{}).Where("wallet_id = ?", walletID).Count(&total).Error; err != nil {
		return nil, 0, storeErr(err, "count transactions")
	}
	var out []models.Transaction
	err := l.db.WithContext(ctx).Where("wallet_id = ?", walletID).Order("created_at DESC").Order("id DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&out).Error
	return out, total, storeErr(err, "list transactions")
}

type Reconciliation struct {
	WalletID uint            `json:"wallet_id"`
	Cached   decimal.Decimal `json:"cached_balance"`
	Computed decimal.Decimal `json:"computed_balance"`
}

func (r Reconciliation) Drift() bool {
	return !RoundMoney(r.Cached).Equal(RoundMoney(r.Computed))
}

// Reconcile recomputes the wallet balance from its entries. It returns
// ErrLedgerDrift alongside the report when the cached balance disagrees.
func (l *Ledger) Reconcile(ctx context.Context, walletID uint) (Reconciliation, error) {
	rep := Reconciliation{WalletID: walletID}
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var w models.Wallet
		if err := tx.Select("id", "balance").Take(&w, walletID).Error; err != nil {
			return storeErr(err, "load wallet")
		}
		var amounts []decimal.Decimal
		if err := tx.Model(&models.Transaction{}).Where("wallet_id = ?", walletID).Pluck("amount", &amounts).Error; err != nil {
			return storeErr(err, "sum transactions")
		}
		rep.Cached = w.Balance
		rep.Computed = decimal.Sum(decimal.Zero, amounts...)
		return nil
	})
	if err != nil {
		return rep, err
	}
	if rep.Drift() {
		return rep, ErrLedgerDrift
	}
	return rep, nil
}

// ReconcileAll checks every wallet and reports the ones that drifted.
func (l *Ledger) ReconcileAll(ctx context.Context) ([]Reconciliation, error) {
	var drifted []Reconciliation
	var ids []uint
	if err := l.db.WithContext(ctx).Model(&models.Wallet{}).Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, storeErr(err, "list wallets")
	}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return drifted, err
		}
		rep, err := l.Reconcile(ctx, id)
		switch {
		case errors.Is(err, ErrLedgerDrift):
			drifted = append(drifted, rep)
		case errors.Is(err, ErrNotFound):
			// deleted between listing and checking
		case err != nil:
			return drifted, err
		}
	}
	return drifted, nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
