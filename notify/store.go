package notify

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/deukmosi-create/task-earning-platform/models"
)

// Store persists notifications so users can list them in-app.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Notify(ctx context.Context, ev Event) error {
	var data datatypes.JSON
	if len(ev.Data) > 0 {
		raw, err := json.Marshal(ev.Data)
		if err != nil {
			return errors.Wrap(err, "encode notification data")
		}
		data = raw
	}

	var recipients []models.User
	q := s.db.WithContext(ctx).Model(&models.User{}).Select("id", "user_type")
	switch {
	case ev.Role == RoleAdmin:
		q = q.Where("user_type IN ?", []string{models.UserTypeAdmin, models.UserTypeModerator})
	case ev.Role != "":
		q = q.Where("user_type = ?", ev.Role)
	default:
		q = q.Where("id = ?", ev.UserID)
	}
	if err := q.Find(&recipients).Error; err != nil {
		return errors.Wrap(err, "resolve notification recipients")
	}
	if len(recipients) == 0 {
		return nil
	}

	rows := make([]models.Notification, 0, len(recipients))
	for _, u := range recipients {
		rows = append(rows, models.Notification{
			UserID:   u.ID,
			UserType: u.UserType,
			Type:     ev.Type,
			Title:    ev.Title,
			Message:  ev.Message,
			Data:     data,
		})
	}
	return errors.Wrap(s.db.WithContext(ctx).Create(&rows).Error, "store notifications")
}

// ListFor returns the user's notifications, newest first.
func (s *Store) ListFor(ctx context.Context, userID uint, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	var out []models.Notification
	err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&out).Error
	return out, errors.Wrap(err, "list notifications")
}

// MarkRead flags one notification as read. It returns gorm.ErrRecordNotFound
// when the notification does not belong to the user.
func (s *Store) MarkRead(ctx context.Context, userID, id uint) error {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if res.Error != nil {
		return errors.Wrap(res.Error, "mark notification read")
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
