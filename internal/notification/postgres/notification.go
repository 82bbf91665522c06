package postgres

import (
	"gorm.io/gorm"

	notificationmodel "github.com/eyuksel/reimbursement-api/internal/core/datamodel/notification"
	notificationsvc "github.com/eyuksel/reimbursement-api/internal/notification"
)

// NotificationRepository implements the notification.Repository interface
// using GORM.
type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) notificationsvc.Repository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(n *notificationmodel.Notification) error {
	return r.db.Create(n).Error
}

func (r *NotificationRepository) ListByUser(userID string, limit, offset int) ([]*notificationmodel.Notification, error) {
	var notifications []*notificationmodel.Notification
	q := r.db.Where("user_id = ?", userID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	err := q.Find(&notifications).Error
	return notifications, err
}

func (r *NotificationRepository) CountUnread(userID string) (int64, error) {
	var count int64
	err := r.db.Model(&notificationmodel.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// MarkRead scopes on the owner so users cannot touch others' rows.
func (r *NotificationRepository) MarkRead(id, userID string) error {
	return r.db.Model(&notificationmodel.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true).Error
}

func (r *NotificationRepository) MarkAllRead(userID string) error {
	return r.db.Model(&notificationmodel.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true).Error
}
