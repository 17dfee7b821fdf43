package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/deukmosi-create/task-earning-platform/database"
	"github.com/deukmosi-create/task-earning-platform/models"
	"github.com/deukmosi-create/task-earning-platform/notify"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// recorder captures notifications and optionally fails every delivery.
type recorder struct {
	mu     sync.Mutex
	events []notify.Event
	fail   error
}

func (r *recorder) Notify(_ context.Context, ev notify.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.fail
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

var userSeq atomic.Int64

type env struct {
	db    *gorm.DB
	svc   *Services
	clock *clock
	sent  *recorder
	plans map[string]models.Plan
}

func newEnv(t *testing.T) *env {
	return newEnvWith(t, Options{})
}

func newEnvWith(t *testing.T, opts Options) *env {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	c := newClock()
	if opts.Now == nil {
		opts.Now = c.Now
	}
	rec := &recorder{}
	e := &env{db: db, svc: New(db, rec, nil, opts), clock: c, sent: rec, plans: map[string]models.Plan{}}

	var plans []models.Plan
	require.NoError(t, db.Find(&plans).Error)
	for _, p := range plans {
		e.plans[p.Name] = p
	}
	return e
}

// user inserts an active user on the given freelancer plan with an empty wallet.
func (e *env) user(t *testing.T, userType, plan string) models.User {
	t.Helper()
	p := e.plans[plan]
	role := models.RoleFreelancer
	if userType == models.UserTypeClient {
		role = models.RoleClient
	}
	u := models.User{
		Name:                    userType,
		Email:                   fmt.Sprintf("%s-%d@example.com", userType, userSeq.Add(1)),
		Password:                "x",
		UserType:                userType,
		ActiveRole:              role,
		CurrentFreelancerPlanID: &p.ID,
		CurrentClientPlanID:     &p.ID,
		Status:                  models.UserActive,
	}
	require.NoError(t, e.db.Create(&u).Error)
	_, err := e.svc.Ledger.OpenWallet(context.Background(), u.ID)
	require.NoError(t, err)
	return u
}

func (e *env) freelancer(t *testing.T, plan string) models.User {
	return e.user(t, models.UserTypeFreelancer, plan)
}

func (e *env) admin(t *testing.T) models.User {
	return e.user(t, models.UserTypeAdmin, models.PlanBasic)
}

func (e *env) task(t *testing.T, creator models.User, reward string, slots int, plan string) *models.Task {
	t.Helper()
	in := NewTask{
		Title:          "Label images",
		Description:    "Tag 50 product photos",
		Reward:         decimal.RequireFromString(reward),
		MaxAssignments: slots,
		Status:         models.TaskActive,
	}
	if plan != "" {
		id := e.plans[plan].ID
		in.PlanRequiredID = &id
	}
	task, err := e.svc.Catalog.Create(context.Background(), in, creator.ID)
	require.NoError(t, err)
	return task
}

func (e *env) balance(t *testing.T, userID uint) decimal.Decimal {
	t.Helper()
	w, err := e.svc.Ledger.WalletFor(context.Background(), userID)
	require.NoError(t, err)
	return w.Balance
}

func requireMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got.String())
}

func requireDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
