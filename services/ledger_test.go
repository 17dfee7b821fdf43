package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/deukmosi-create/task-earning-platform/models"
)

func TestLedgerCreditDebit(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.freelancer(t, models.PlanBasic)
	w, err := e.svc.Ledger.WalletFor(ctx, u.ID)
	require.NoError(t, err)

	_, err = e.svc.Ledger.Credit(ctx, w.ID, requireDecimal("20.00"), models.TxDeposit, "top up", "dep_1")
	require.NoError(t, err)
	entry, err := e.svc.Ledger.Debit(ctx, w.ID, requireDecimal("7.50"), models.TxWithdrawal, "payout", "wd_1")
	require.NoError(t, err)
	requireMoney(t, "-7.50", entry.Amount)

	bal, err := e.svc.Ledger.BalanceOf(ctx, w.ID)
	require.NoError(t, err)
	requireMoney(t, "12.50", bal)

	entries, total, err := e.svc.Ledger.Entries(ctx, w.ID, 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Equal(t, "wd_1", entries[0].Reference)

	rep, err := e.svc.Ledger.Reconcile(ctx, w.ID)
	require.NoError(t, err)
	require.False(t, rep.Drift())
	requireMoney(t, "12.50", rep.Computed)
}

func TestLedgerRejectsBadAmounts(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.freelancer(t, models.PlanBasic)
	w, err := e.svc.Ledger.WalletFor(ctx, u.ID)
	require.NoError(t, err)

	for _, amt := range []decimal.Decimal{decimal.Zero, requireDecimal("-1")} {
		_, err = e.svc.Ledger.Credit(ctx, w.ID, amt, models.TxDeposit, "", "")
		require.ErrorIs(t, err, ErrInvalidAmount)
		_, err = e.svc.Ledger.Debit(ctx, w.ID, amt, models.TxWithdrawal, "", "")
		require.ErrorIs(t, err, ErrInvalidAmount)
	}

	_, err = e.svc.Ledger.Credit(ctx, 4242, requireDecimal("1"), models.TxDeposit, "", "")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = e.svc.Ledger.Debit(ctx, 4242, requireDecimal("1"), models.TxWithdrawal, "", "")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLedgerInsufficientBalance(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.freelancer(t, models.PlanBasic)
	w, err := e.svc.Ledger.WalletFor(ctx, u.ID)
	require.NoError(t, err)
	_, err = e.svc.Ledger.Credit(ctx, w.ID, requireDecimal("5.00"), models.TxDeposit, "", "dep")
	require.NoError(t, err)

	_, err = e.svc.Ledger.Debit(ctx, w.ID, requireDecimal("10.00"), models.TxWithdrawal, "", "wd")
	require.ErrorIs(t, err, ErrInsufficientBalance)

	requireMoney(t, "5.00", e.balance(t, u.ID))
	_, total, err := e.svc.Ledger.Entries(ctx, w.ID, 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
}

func TestLedgerDoubleOpen(t *testing.T) {
	e := newEnv(t)
	u := e.freelancer(t, models.PlanBasic)
	_, err := e.svc.Ledger.OpenWallet(context.Background(), u.ID)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestReconcileDetectsDrift(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	clean := e.freelancer(t, models.PlanBasic)
	dirty := e.freelancer(t, models.PlanBasic)

	for _, u := range []models.User{clean, dirty} {
		w, err := e.svc.Ledger.WalletFor(ctx, u.ID)
		require.NoError(t, err)
		_, err = e.svc.Ledger.Credit(ctx, w.ID, requireDecimal("3.33"), models.TxDeposit, "", "")
		require.NoError(t, err)
	}
	require.NoError(t, e.db.Model(&models.Wallet{}).Where("user_id = ?", dirty.ID).
		Update("balance", requireDecimal("100.00")).Error)

	drifted, err := e.svc.Ledger.ReconcileAll(ctx)
	require.NoError(t, err)
	require.Len(t, drifted, 1)
	requireMoney(t, "100.00", drifted[0].Cached)
	requireMoney(t, "3.33", drifted[0].Computed)

	rep, err := e.svc.Ledger.Reconcile(ctx, drifted[0].WalletID)
	require.ErrorIs(t, err, ErrLedgerDrift)
	require.True(t, rep.Drift())
}
