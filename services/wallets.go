package services

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/deukmosi-create/task-earning-platform/database"
	"github.com/deukmosi-create/task-earning-platform/models"
	"github.com/deukmosi-create/task-earning-platform/notify"
)

// Wallets implements the user-facing money movements on top of the ledger.
type Wallets struct {
	db            *gorm.DB
	ledger        *Ledger
	notifier      notify.Notifier
	log           *zap.Logger
	retries       int
	minWithdrawal decimal.Decimal
}

func NewWallets(db *gorm.DB, ledger *Ledger, notifier notify.Notifier, log *zap.Logger, opts Options) *Wallets {
	opts = opts.withDefaults()
	return &Wallets{
		db:            db,
		ledger:        ledger,
		notifier:      notifier,
		log:           log,
		retries:       opts.TxRetries,
		minWithdrawal: opts.MinWithdrawal,
	}
}

// referralRate is the share of a referred user's deposit paid to the referrer.
var referralRate = decimal.RequireFromString("0.10")

// Deposit credits the user's wallet, for example after a confirmed payment.
// When the user was referred, the referrer receives a bonus in the same
// transaction.
func (s *Wallets) Deposit(ctx context.Context, userID uint, amount decimal.Decimal, note string) (*models.Transaction, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if note == "" {
		note = "Wallet deposit"
	}
	var entry, bonus *models.Transaction
	var referrerID uint
	err := database.Transaction(ctx, s.db, s.retries, func(tx *gorm.DB) error {
		bonus, referrerID = nil, 0
		var user models.User
		if err := tx.Select("id", "name", "referred_by_id").Take(&user, userID).Error; err != nil {
			return storeErr(err, "load user")
		}
		var wallet models.Wallet
		if err := tx.Where("user_id = ?", userID).Take(&wallet).Error; err != nil {
			return storeErr(err, "load wallet")
		}
		ledger := s.ledger.WithTx(tx)
		var err error
		entry, err = ledger.Credit(ctx, wallet.ID, amount, models.TxDeposit, note, NewReference("deposit"))
		if err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).Where("id = ?", userID).
			UpdateColumn("total_deposits", gorm.Expr("total_deposits + ?", entry.Amount)).Error; err != nil {
			return errors.Wrap(err, "update total deposits")
		}

		if user.ReferredByID == nil {
			return nil
		}
		reward := RoundMoney(entry.Amount.Mul(referralRate))
		if !reward.IsPositive() {
			return nil
		}
		var referrerWallet models.Wallet
		err = tx.Where("user_id = ?", *user.ReferredByID).Take(&referrerWallet).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Warn("referrer has no wallet, skipping bonus", zap.Uint("user_id", userID), zap.Uint("referrer_id", *user.ReferredByID))
			return nil
		}
		if err != nil {
			return storeErr(err, "load referrer wallet")
		}
		bonus, err = ledger.Credit(ctx, referrerWallet.ID, reward, models.TxReferralBonus,
			"Referral bonus from "+user.Name, NewReference("referral"))
		if err != nil {
			return err
		}
		referrerID = *user.ReferredByID
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, notify.ToUser(userID, models.NotifyPayment, "Deposit Received",
		"$"+entry.Amount.StringFixed(2)+" has been added to your wallet",
		map[string]interface{}{"transaction_id": entry.ID}))
	if bonus != nil {
		s.emit(ctx, notify.ToUser(referrerID, models.NotifyPayment, "Referral Bonus",
			"You earned $"+bonus.Amount.StringFixed(2)+" from a referral deposit",
			map[string]interface{}{"transaction_id": bonus.ID, "referred_user_id": userID}))
	}
	return entry, nil
}

// Withdraw debits the wallet and queues a payout request.
func (s *Wallets) Withdraw(ctx context.Context, userID uint, amount decimal.Decimal, destination string) (*models.Withdrawal, error) {
	destination = strings.TrimSpace(destination)
	if destination == "" {
		return nil, errors.Wrap(ErrInvalidInput, "destination is required")
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	amount = RoundMoney(amount)

	var w models.Withdrawal
	err := database.Transaction(ctx, s.db, s.retries, func(tx *gorm.DB) error {
		var wallet models.Wallet
		if err := tx.Where("user_id = ?", userID).Take(&wallet).Error; err != nil {
			return storeErr(err, "load wallet")
		}
		// balance is checked before the minimum
		if wallet.Balance.LessThan(amount) {
			return ErrInsufficientBalance
		}
		if amount.LessThan(s.minWithdrawal) {
			return errors.Wrapf(ErrInvalidAmount, "minimum withdrawal is %s", s.minWithdrawal.StringFixed(2))
		}
		ref := NewReference("wd")
		if _, err := s.ledger.WithTx(tx).Debit(ctx, wallet.ID, amount, models.TxWithdrawal, "Withdrawal to "+destination, ref); err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).Where("id = ?", userID).
			UpdateColumn("total_withdrawals", gorm.Expr("total_withdrawals + ?", amount)).Error; err != nil {
			return errors.Wrap(err, "update total withdrawals")
		}
		w = models.Withdrawal{
			UserID:      userID,
			WalletID:    wallet.ID,
			Amount:      amount,
			Destination: destination,
			Reference:   ref,
			Status:      "pending",
		}
		return storeErr(tx.Create(&w).Error, "record withdrawal")
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, notify.ToUser(userID, models.NotifyPayment, "Withdrawal Requested",
		"Your withdrawal of $"+amount.StringFixed(2)+" is being processed",
		map[string]interface{}{"withdrawal_id": w.ID}))
	return &w, nil
}

// Withdrawals lists the user's payout requests, newest first.
func (s *Wallets) Withdrawals(ctx context.Context, userID uint, page, limit int) ([]models.Withdrawal, error) {
	page, limit = normalizePage(page, limit)
	var out []models.Withdrawal
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Offset((page - 1) * limit).Limit(limit).Find(&out).Error
	return out, storeErr(err, "list withdrawals")
}

func (s *Wallets) emit(ctx context.Context, ev notify.Event) {
	if err := s.notifier.Notify(ctx, ev); err != nil {
		s.log.Warn("notification failed", zap.String("type", ev.Type), zap.Uint("user_id", ev.UserID), zap.Error(err))
	}
}
