package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deukmosi-create/task-earning-platform/models"
)

func TestProvisionAndAuthenticate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	u, w, err := e.svc.Users.Provision(ctx, NewUser{Name: "Rina", Email: " Rina@Example.com ", Password: "s3cretpass"})
	require.NoError(t, err)
	require.Equal(t, "rina@example.com", u.Email)
	require.Equal(t, models.UserTypeFreelancer, u.UserType)
	require.Equal(t, e.plans[models.PlanBasic].ID, *u.CurrentFreelancerPlanID)
	require.Equal(t, u.ID, w.UserID)
	requireMoney(t, "0", w.Balance)
	require.NotEqual(t, "s3cretpass", u.Password)

	_, _, err = e.svc.Users.Provision(ctx, NewUser{Name: "Other", Email: "rina@example.com", Password: "s3cretpass"})
	require.ErrorIs(t, err, ErrInvalidInput)

	got, err := e.svc.Users.Authenticate(ctx, "RINA@example.com", "s3cretpass")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	_, err = e.svc.Users.Authenticate(ctx, "rina@example.com", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = e.svc.Users.Authenticate(ctx, "nobody@example.com", "s3cretpass")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = e.svc.Users.SetStatus(ctx, u.ID, models.UserSuspended)
	require.NoError(t, err)
	_, err = e.svc.Users.Authenticate(ctx, "rina@example.com", "s3cretpass")
	require.ErrorIs(t, err, ErrPermissionDenied)
}

func TestProvisionValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	for _, in := range []NewUser{
		{Email: "a@example.com", Password: "longenough"},
		{Name: "A", Email: "not-an-email", Password: "longenough"},
		{Name: "A", Email: "a@example.com", Password: "short"},
		{Name: "A", Email: "a@example.com", Password: "longenough", UserType: "robot"},
		{Name: "A", Email: "a@example.com", Password: "longenough", ActiveRole: "owner"},
	} {
		_, _, err := e.svc.Users.Provision(ctx, in)
		require.ErrorIs(t, err, ErrInvalidInput)
	}
}

func TestDepositAndWithdraw(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.freelancer(t, models.PlanBasic)

	_, err := e.svc.Wallets.Deposit(ctx, u.ID, requireDecimal("5.00"), "")
	require.NoError(t, err)

	_, err = e.svc.Wallets.Withdraw(ctx, u.ID, requireDecimal("10.00"), "bank:123")
	require.ErrorIs(t, err, ErrInsufficientBalance)
	requireMoney(t, "5.00", e.balance(t, u.ID))

	// below the minimum but above the balance reports the balance
	_, err = e.svc.Wallets.Withdraw(ctx, u.ID, requireDecimal("7.00"), "bank:123")
	require.ErrorIs(t, err, ErrInsufficientBalance)
	_, err = e.svc.Wallets.Withdraw(ctx, u.ID, requireDecimal("10.00"), " ")
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = e.svc.Wallets.Deposit(ctx, u.ID, requireDecimal("20.00"), "card")
	require.NoError(t, err)
	_, err = e.svc.Wallets.Withdraw(ctx, u.ID, requireDecimal("9.99"), "bank:123")
	require.ErrorIs(t, err, ErrInvalidAmount)
	wd, err := e.svc.Wallets.Withdraw(ctx, u.ID, requireDecimal("12.00"), "bank:123")
	require.NoError(t, err)
	require.Equal(t, "pending", wd.Status)
	requireMoney(t, "13.00", e.balance(t, u.ID))

	user, err := e.svc.Users.Get(ctx, u.ID)
	require.NoError(t, err)
	requireMoney(t, "25.00", user.TotalDeposits)
	requireMoney(t, "12.00", user.TotalWithdrawals)

	list, err := e.svc.Wallets.Withdrawals(ctx, u.ID, 1, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = e.svc.Ledger.Reconcile(ctx, wd.WalletID)
	require.NoError(t, err)
}

func TestPlanUpgrade(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.freelancer(t, models.PlanBasic)
	standard := e.plans[models.PlanStandard]

	_, err := e.svc.Plans.Upgrade(ctx, u.ID, standard.ID)
	require.ErrorIs(t, err, ErrInsufficientBalance)

	_, err = e.svc.Wallets.Deposit(ctx, u.ID, requireDecimal("15.00"), "")
	require.NoError(t, err)
	up, err := e.svc.Plans.Upgrade(ctx, u.ID, standard.ID)
	require.NoError(t, err)
	require.Equal(t, standard.ID, up.ToPlanID)
	requireMoney(t, "5.01", e.balance(t, u.ID))

	plan, err := e.svc.Authz.CurrentPlan(ctx, u.ID, models.RoleFreelancer)
	require.NoError(t, err)
	require.Equal(t, models.PlanStandard, plan.Name)

	_, err = e.svc.Plans.Upgrade(ctx, u.ID, e.plans[models.PlanBasic].ID)
	require.ErrorIs(t, err, ErrInvalidState)

	plans, err := e.svc.Plans.List(ctx)
	require.NoError(t, err)
	require.Len(t, plans, 3)
	require.Equal(t, models.PlanBasic, plans[0].Name)
	require.Contains(t, e.sent.types(), models.NotifyPlanUpgrade)
}

func TestCapabilities(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.admin(t)
	mod := e.user(t, models.UserTypeModerator, models.PlanBasic)
	worker := e.freelancer(t, models.PlanBasic)
	client := e.user(t, models.UserTypeClient, models.PlanBasic)

	cases := []struct {
		user models.User
		cap  Capability
		want bool
	}{
		{admin, CapManageWallets, true},
		{mod, CapManageWallets, false},
		{mod, CapReviewSubmissions, true},
		{worker, CapReviewSubmissions, false},
		{worker, CapClaimTasks, true},
		{client, CapClaimTasks, false},
		{client, CapCreateTasks, true},
		{worker, CapCreateTasks, false},
	}
	for _, tc := range cases {
		got, err := e.svc.Authz.HasCapability(ctx, tc.user.ID, tc.cap)
		require.NoError(t, err)
		require.Equal(t, tc.want, got, "%s %s", tc.user.UserType, tc.cap)
	}

	_, err := e.svc.Users.SetStatus(ctx, worker.ID, models.UserSuspended)
	require.NoError(t, err)
	ok, err := e.svc.Authz.HasCapability(ctx, worker.ID, CapClaimTasks)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, e.db.Model(&models.User{}).Where("id = ?", client.ID).Update("current_freelancer_plan_id", nil).Error)
	_, err = e.svc.Authz.CurrentPlan(ctx, client.ID, models.RoleFreelancer)
	require.ErrorIs(t, err, ErrPlanInsufficient)
}

func TestDepositPaysReferralBonus(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	referrer := e.freelancer(t, models.PlanBasic)

	_, _, err := e.svc.Users.Provision(ctx, NewUser{Name: "Nobody", Email: "nobody@example.com", Password: "longenough", ReferredByID: uintPtr(9999)})
	require.ErrorIs(t, err, ErrInvalidInput)

	referred, _, err := e.svc.Users.Provision(ctx, NewUser{Name: "Dewi", Email: "dewi@example.com", Password: "longenough", ReferredByID: &referrer.ID})
	require.NoError(t, err)

	_, err = e.svc.Wallets.Deposit(ctx, referred.ID, requireDecimal("25.55"), "")
	require.NoError(t, err)
	requireMoney(t, "25.55", e.balance(t, referred.ID))
	requireMoney(t, "2.56", e.balance(t, referrer.ID))

	w, err := e.svc.Ledger.WalletFor(ctx, referrer.ID)
	require.NoError(t, err)
	entries, _, err := e.svc.Ledger.Entries(ctx, w.ID, 1, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, models.TxReferralBonus, entries[0].Type)
	_, err = e.svc.Ledger.Reconcile(ctx, w.ID)
	require.NoError(t, err)

	e.sent.mu.Lock()
	defer e.sent.mu.Unlock()
	require.Len(t, e.sent.events, 2)
	require.Equal(t, referred.ID, e.sent.events[0].UserID)
	require.Equal(t, referrer.ID, e.sent.events[1].UserID)
	require.Equal(t, models.NotifyPayment, e.sent.events[1].Type)
}

func TestDepositWithoutReferrerPaysNoBonus(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.freelancer(t, models.PlanBasic)

	_, err := e.svc.Wallets.Deposit(ctx, u.ID, requireDecimal("40.00"), "")
	require.NoError(t, err)
	var n int64
	require.NoError(t, e.db.Model(&models.Transaction{}).Where("type = ?", models.TxReferralBonus).Count(&n).Error)
	require.Zero(t, n)
}

func TestSetUserStatus(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	worker := e.freelancer(t, models.PlanBasic)

	u, err := e.svc.Users.SetStatus(ctx, worker.ID, models.UserSuspended)
	require.NoError(t, err)
	require.Equal(t, models.UserSuspended, u.Status)
	ok, err := e.svc.Authz.HasCapability(ctx, worker.ID, CapClaimTasks)
	require.NoError(t, err)
	require.False(t, ok)

	u, err = e.svc.Users.SetStatus(ctx, worker.ID, models.UserActive)
	require.NoError(t, err)
	require.Equal(t, models.UserActive, u.Status)
	ok, err = e.svc.Authz.HasCapability(ctx, worker.ID, CapClaimTasks)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = e.svc.Users.SetStatus(ctx, worker.ID, "banned")
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = e.svc.Users.SetStatus(ctx, 9999, models.UserSuspended)
	require.ErrorIs(t, err, ErrNotFound)
}
