package organization

import "time"

// Organization → Project → Period hierarchy used to scope expenses by date
// range. Deletes cascade at the datastore (FK ON DELETE CASCADE).

type Organization struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"not null"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (Organization) TableName() string {
	return "organizations"
}

type Project struct {
	ID             string    `json:"id" gorm:"primaryKey"`
	Name           string    `json:"name" gorm:"not null"`
	OrganizationID string    `json:"organization_id" gorm:"column:organization_id;not null;index"`
	CreatedAt      time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (Project) TableName() string {
	return "projects"
}

type Period struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"not null"`
	ProjectID string    `json:"project_id" gorm:"column:project_id;not null;index"`
	StartDate time.Time `json:"start_date" gorm:"column:start_date;type:date;not null"`
	EndDate   time.Time `json:"end_date" gorm:"column:end_date;type:date;not null"`
	IsActive  bool      `json:"is_active" gorm:"column:is_active;default:true"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (Period) TableName() string {
	return "periods"
}

// Covers reports whether the date falls inside [StartDate, EndDate].
func (p *Period) Covers(date time.Time) bool {
	d := date.Truncate(24 * time.Hour)
	return !d.Before(p.StartDate.Truncate(24*time.Hour)) && !d.After(p.EndDate.Truncate(24*time.Hour))
}
