package notification

import "time"

// Severity levels for notifications.
const (
	SeverityInfo    = "INFO"
	SeveritySuccess = "SUCCESS"
	SeverityWarning = "WARNING"
	SeverityError   = "ERROR"
)

type Notification struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"column:user_id;not null;index"`
	Title     string    `json:"title" gorm:"not null"`
	Message   string    `json:"message" gorm:"not null"`
	Severity  string    `json:"severity" gorm:"default:INFO"`
	Link      string    `json:"link"`
	IsRead    bool      `json:"is_read" gorm:"column:is_read;default:false"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}
