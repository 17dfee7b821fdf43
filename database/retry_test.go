package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/deukmosi-create/task-earning-platform/models"
)

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("boom"), false},
		{&mysqldriver.MySQLError{Number: 1213}, true},
		{&mysqldriver.MySQLError{Number: 1205}, true},
		{&mysqldriver.MySQLError{Number: 1062}, false},
		{sqlite3.Error{Code: sqlite3.ErrBusy}, true},
		{sqlite3.Error{Code: sqlite3.ErrConstraint}, false},
		{errors.Wrap(&mysqldriver.MySQLError{Number: 1213}, "claim"), true},
		{errors.New("database is locked"), true},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, IsRetryable(tc.err), "%v", tc.err)
	}
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func TestTransactionRetriesLockConflicts(t *testing.T) {
	db := openTestDB(t)
	calls := 0
	err := Transaction(context.Background(), db, 3, func(tx *gorm.DB) error {
		calls++
		if calls < 3 {
			return sqlite3.Error{Code: sqlite3.ErrBusy}
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestTransactionStopsOnPermanentError(t *testing.T) {
	db := openTestDB(t)
	calls := 0
	boom := errors.New("boom")
	err := Transaction(context.Background(), db, 5, func(tx *gorm.DB) error {
		calls++
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, calls)
}

func TestTransactionHonoursContext(t *testing.T) {
	db := openTestDB(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	err := Transaction(ctx, db, 10, func(tx *gorm.DB) error {
		time.Sleep(10 * time.Millisecond)
		return &mysqldriver.MySQLError{Number: 1213}
	})
	require.Error(t, err)
}

func TestMigrateSeedsPlansOnce(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, SeedPlans(db))

	var plans []models.Plan
	require.NoError(t, db.Order("priority").Find(&plans).Error)
	require.Len(t, plans, 3)
	require.Equal(t, models.PlanBasic, plans[0].Name)
	require.Equal(t, "1.50", plans[2].TaskRewardMultiplier.StringFixed(2))
}

func TestDuplicateKeyIsTranslated(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Create(&models.User{Name: "a", Email: "a@example.com", Password: "x"}).Error)
	err := db.Create(&models.User{Name: "b", Email: "a@example.com", Password: "x"}).Error
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}
