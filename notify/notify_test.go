package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/deukmosi-create/task-earning-platform/database"
	"github.com/deukmosi-create/task-earning-platform/models"
)

type sink struct {
	got []Event
	err error
}

func (s *sink) Notify(_ context.Context, ev Event) error {
	s.got = append(s.got, ev)
	return s.err
}

func TestFanoutDeliversToEverySink(t *testing.T) {
	boom := errors.New("boom")
	a, b, c := &sink{}, &sink{err: boom}, &sink{}
	err := Fanout{a, nil, b, c}.Notify(context.Background(), ToUser(7, "payment", "Paid", "ok", nil))

	require.ErrorIs(t, err, boom)
	require.Len(t, a.got, 1)
	require.Len(t, b.got, 1)
	require.Len(t, c.got, 1)
	require.Equal(t, uint(7), c.got[0].UserID)
}

type fakeBot struct {
	sent []tgbotapi.Chattable
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func TestTelegramOnlyForwardsStaffEvents(t *testing.T) {
	bot := &fakeBot{}
	tg := NewTelegramWithBot(bot, 42)
	ctx := context.Background()

	require.NoError(t, tg.Notify(ctx, ToUser(1, "task_approval", "Approved", "nice", nil)))
	require.Empty(t, bot.sent)

	require.NoError(t, tg.Notify(ctx, ToRole(RoleAdmin, "task_submission", "New submission", "review it", nil)))
	require.Len(t, bot.sent, 1)
	msg, ok := bot.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	require.Equal(t, int64(42), msg.ChatID)
	require.Contains(t, msg.Text, "[task_submission] New submission")
}

func openStore(t *testing.T) (*gorm.DB, *Store) {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := database.OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db, NewStore(db)
}

func addUser(t *testing.T, db *gorm.DB, email, userType string) models.User {
	t.Helper()
	u := models.User{Name: email, Email: email, Password: "x", UserType: userType, Status: models.UserActive}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func TestStoreResolvesStaffRecipients(t *testing.T) {
	db, store := openStore(t)
	ctx := context.Background()
	admin := addUser(t, db, "admin@example.com", models.UserTypeAdmin)
	mod := addUser(t, db, "mod@example.com", models.UserTypeModerator)
	worker := addUser(t, db, "worker@example.com", models.UserTypeFreelancer)

	require.NoError(t, store.Notify(ctx, ToRole(RoleAdmin, models.NotifyTaskSubmission, "Review", "pending", map[string]interface{}{"task_id": 3})))

	for _, u := range []models.User{admin, mod} {
		list, err := store.ListFor(ctx, u.ID, false, 0)
		require.NoError(t, err)
		require.Len(t, list, 1)
		require.Equal(t, models.NotifyTaskSubmission, list[0].Type)
		require.JSONEq(t, `{"task_id":3}`, string(list[0].Data))
	}
	list, err := store.ListFor(ctx, worker.ID, false, 0)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestStoreMarkRead(t *testing.T) {
	db, store := openStore(t)
	ctx := context.Background()
	owner := addUser(t, db, "owner@example.com", models.UserTypeFreelancer)
	other := addUser(t, db, "other@example.com", models.UserTypeFreelancer)

	require.NoError(t, store.Notify(ctx, ToUser(owner.ID, models.NotifyPayment, "Deposit", "5.00 added", nil)))
	list, err := store.ListFor(ctx, owner.ID, true, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.ErrorIs(t, store.MarkRead(ctx, other.ID, list[0].ID), gorm.ErrRecordNotFound)
	require.NoError(t, store.MarkRead(ctx, owner.ID, list[0].ID))

	unread, err := store.ListFor(ctx, owner.ID, true, 10)
	require.NoError(t, err)
	require.Empty(t, unread)
}

func TestStoreIgnoresUnknownRecipient(t *testing.T) {
	_, store := openStore(t)
	require.NoError(t, store.Notify(context.Background(), ToUser(999, models.NotifyPayment, "x", "y", nil)))
}
