package user

import "time"

// User holds account data plus the bank-detail profile printed on
// reimbursement forms.
type User struct {
	ID                 string     `json:"id" gorm:"primaryKey"`
	Name               string     `json:"name"`
	Email              string     `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash       string     `json:"-" gorm:"column:password_hash;not null"`
	Role               string     `json:"role" gorm:"default:VOLUNTEER"`
	OrganizationID     *string    `json:"organization_id,omitempty" gorm:"column:organization_id;index"`
	IBAN               string     `json:"iban" gorm:"column:iban"`
	BankName           string     `json:"bank_name" gorm:"column:bank_name"`
	BankBranch         string     `json:"bank_branch" gorm:"column:bank_branch"`
	AccountHolder      string     `json:"account_holder" gorm:"column:account_holder"`
	Phone              string     `json:"phone"`
	IsActive           bool       `json:"is_active" gorm:"column:is_active;default:true"`
	LastSubmissionDate *time.Time `json:"last_submission_date,omitempty" gorm:"column:last_submission_date"`
	CreatedAt          time.Time  `json:"created_at" gorm:"column:created_at"`
	UpdatedAt          time.Time  `json:"updated_at" gorm:"column:updated_at"`
}

func (User) TableName() string {
	return "users"
}
