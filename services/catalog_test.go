package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/deukmosi-create/task-earning-platform/models"
)

func TestCatalogCreateValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.admin(t)
	past := e.clock.Now().Add(-time.Hour)
	unknownPlan := uint(999)

	cases := []struct {
		name string
		in   NewTask
		want error
	}{
		{"missing title", NewTask{Description: "d", Reward: requireDecimal("1"), MaxAssignments: 1}, ErrInvalidInput},
		{"zero reward", NewTask{Title: "t", Description: "d", MaxAssignments: 1}, ErrInvalidAmount},
		{"sub-cent reward", NewTask{Title: "t", Description: "d", Reward: requireDecimal("1.001"), MaxAssignments: 1}, ErrInvalidAmount},
		{"no slots", NewTask{Title: "t", Description: "d", Reward: requireDecimal("1")}, ErrInvalidInput},
		{"past deadline", NewTask{Title: "t", Description: "d", Reward: requireDecimal("1"), MaxAssignments: 1, Deadline: &past}, ErrInvalidInput},
		{"bad status", NewTask{Title: "t", Description: "d", Reward: requireDecimal("1"), MaxAssignments: 1, Status: models.TaskCompleted}, ErrInvalidInput},
		{"unknown plan", NewTask{Title: "t", Description: "d", Reward: requireDecimal("1"), MaxAssignments: 1, PlanRequiredID: &unknownPlan}, ErrInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.svc.Catalog.Create(ctx, tc.in, admin.ID)
			require.ErrorIs(t, err, tc.want)
		})
	}

	task, err := e.svc.Catalog.Create(ctx, NewTask{Title: "  Survey ", Description: "d", Reward: requireDecimal("2.50"), MaxAssignments: 3}, admin.ID)
	require.NoError(t, err)
	require.Equal(t, "Survey", task.Title)
	require.Equal(t, models.TaskPending, task.Status)
	require.Zero(t, task.CurrentAssignments)
}

func TestAvailableFiltersByPlanAndCapacity(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.admin(t)

	open := e.task(t, admin, "1.00", 1, "")
	standard := e.task(t, admin, "1.00", 1, models.PlanStandard)
	premium := e.task(t, admin, "1.00", 1, models.PlanPremium)
	full := e.task(t, admin, "1.00", 1, "")
	require.NoError(t, e.svc.Catalog.ReserveSlot(ctx, full.ID))
	_, err := e.svc.Catalog.Create(ctx, NewTask{Title: "draft", Description: "d", Reward: requireDecimal("1"), MaxAssignments: 1}, admin.ID)
	require.NoError(t, err)
	sim, err := e.svc.Catalog.CreateSimulated(ctx, NewTask{Title: "sim", Description: "d", Reward: requireDecimal("1")}, admin.ID)
	require.NoError(t, err)

	ids := func(q AvailableQuery) []uint {
		var out []uint
		for task, err := range e.svc.Catalog.Available(ctx, q) {
			require.NoError(t, err)
			out = append(out, task.ID)
		}
		return out
	}

	require.Equal(t, []uint{open.ID}, ids(AvailableQuery{PlanPriority: 1}))
	require.Equal(t, []uint{standard.ID, open.ID}, ids(AvailableQuery{PlanPriority: 2}))
	require.Equal(t, []uint{premium.ID, standard.ID, open.ID}, ids(AvailableQuery{PlanPriority: 3}))
	require.Equal(t, []uint{sim.ID, open.ID}, ids(AvailableQuery{PlanPriority: 1, IncludeSimulated: true}))
}

func TestAvailablePagesLazily(t *testing.T) {
	e := newEnvWith(t, Options{FeedPageSize: 2})
	ctx := context.Background()
	admin := e.admin(t)
	var want []uint
	for i := 0; i < 5; i++ {
		want = append([]uint{e.task(t, admin, "1.00", 1, "").ID}, want...)
	}

	var got []uint
	for task, err := range e.svc.Catalog.Available(ctx, AvailableQuery{PlanPriority: 1}) {
		require.NoError(t, err)
		got = append(got, task.ID)
	}
	require.Equal(t, want, got)

	// breaking out of the range ends the sequence
	n := 0
	for range e.svc.Catalog.Available(ctx, AvailableQuery{PlanPriority: 1}) {
		n++
		if n == 3 {
			break
		}
	}
	require.Equal(t, 3, n)
}

func TestSlotsNeverLeaveBounds(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.admin(t)
	task := e.task(t, admin, "1.00", 2, "")

	require.NoError(t, e.svc.Catalog.ReserveSlot(ctx, task.ID))
	require.NoError(t, e.svc.Catalog.ReserveSlot(ctx, task.ID))
	require.ErrorIs(t, e.svc.Catalog.ReserveSlot(ctx, task.ID), ErrTaskUnavailable)

	for i := 0; i < 3; i++ {
		require.NoError(t, e.svc.Catalog.ReleaseSlot(ctx, task.ID))
	}
	got, err := e.svc.Catalog.Get(ctx, task.ID)
	require.NoError(t, err)
	require.Zero(t, got.CurrentAssignments)

	require.ErrorIs(t, e.svc.Catalog.ReserveSlot(ctx, 777), ErrNotFound)
	require.ErrorIs(t, e.svc.Catalog.ReleaseSlot(ctx, 777), ErrNotFound)
}

func TestSetStatus(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.admin(t)
	task, err := e.svc.Catalog.Create(ctx, NewTask{Title: "t", Description: "d", Reward: requireDecimal("1"), MaxAssignments: 1}, admin.ID)
	require.NoError(t, err)

	task, err = e.svc.Catalog.SetStatus(ctx, task.ID, models.TaskActive, admin.ID, "")
	require.NoError(t, err)
	require.Equal(t, models.TaskActive, task.Status)

	_, err = e.svc.Catalog.SetStatus(ctx, task.ID, models.TaskPending, admin.ID, "")
	require.ErrorIs(t, err, ErrInvalidState)

	task, err = e.svc.Catalog.SetStatus(ctx, task.ID, models.TaskCancelled, admin.ID, "duplicate")
	require.NoError(t, err)
	require.Equal(t, models.TaskCancelled, task.Status)

	logs, err := e.svc.Activity.ListFor(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, models.ActivityCancelled, logs[0].Type)
	require.JSONEq(t, `{"from":"active","reason":"duplicate","withdrawn_offers":0}`, string(logs[0].Details))

	_, err = e.svc.Catalog.SetStatus(ctx, 9999, models.TaskActive, admin.ID, "")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestExpireOverdue(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.admin(t)
	soon := e.clock.Now().Add(time.Hour)
	later := e.clock.Now().Add(48 * time.Hour)

	due, err := e.svc.Catalog.Create(ctx, NewTask{Title: "due", Description: "d", Reward: requireDecimal("1"), MaxAssignments: 1, Deadline: &soon, Status: models.TaskActive}, admin.ID)
	require.NoError(t, err)
	keep, err := e.svc.Catalog.Create(ctx, NewTask{Title: "keep", Description: "d", Reward: requireDecimal("1"), MaxAssignments: 1, Deadline: &later, Status: models.TaskActive}, admin.ID)
	require.NoError(t, err)

	n, err := e.svc.Catalog.ExpireOverdue(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	e.clock.Advance(2 * time.Hour)
	n, err = e.svc.Catalog.ExpireOverdue(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	got, err := e.svc.Catalog.Get(ctx, due.ID)
	require.NoError(t, err)
	require.Equal(t, models.TaskCompleted, got.Status)
	got, err = e.svc.Catalog.Get(ctx, keep.ID)
	require.NoError(t, err)
	require.Equal(t, models.TaskActive, got.Status)

	worker := e.freelancer(t, models.PlanBasic)
	_, err = e.svc.Engine.Claim(ctx, due.ID, worker.ID)
	require.ErrorIs(t, err, ErrTaskUnavailable)
}

func TestCatalogList(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.admin(t)
	e.task(t, admin, "1.00", 1, "")
	_, err := e.svc.Catalog.Create(ctx, NewTask{Title: "Translate FAQ", Description: "EN to ID", Reward: requireDecimal("3"), MaxAssignments: 1}, admin.ID)
	require.NoError(t, err)

	tasks, total, err := e.svc.Catalog.List(ctx, TaskFilter{Search: "faq"})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, "Translate FAQ", tasks[0].Title)

	_, total, err = e.svc.Catalog.List(ctx, TaskFilter{Status: models.TaskActive})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
}

// Both claimants observe the last free slot before either writes. A
// read-modify-write based on those snapshots would hand out both.
func TestReserveSlotIgnoresStaleReads(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.admin(t)
	task := e.task(t, admin, "1.00", 2, "")
	require.NoError(t, e.svc.Catalog.ReserveSlot(ctx, task.ID))

	now := e.clock.Now()
	var first, second models.Task
	require.NoError(t, e.db.Take(&first, task.ID).Error)
	require.NoError(t, e.db.Take(&second, task.ID).Error)
	require.True(t, first.IsAvailable(now))
	require.True(t, second.IsAvailable(now))

	err := e.db.Transaction(func(tx *gorm.DB) error { return reserveSlot(tx, first.ID, now) })
	require.NoError(t, err)
	err = e.db.Transaction(func(tx *gorm.DB) error { return reserveSlot(tx, second.ID, now) })
	require.ErrorIs(t, err, ErrTaskUnavailable)

	got, err := e.svc.Catalog.Get(ctx, task.ID)
	require.NoError(t, err)
	require.Equal(t, 2, got.CurrentAssignments)
}
