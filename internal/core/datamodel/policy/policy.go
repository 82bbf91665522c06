package policy

import (
	"time"

	"github.com/shopspring/decimal"
)

// Policy is an organization-defined per-category spending ceiling. It is
// advisory: exceeding it annotates the expense with a warning but never
// blocks creation or submission.
type Policy struct {
	ID             string          `json:"id" gorm:"primaryKey"`
	OrganizationID string          `json:"organization_id" gorm:"column:organization_id;not null;uniqueIndex:idx_policies_org_category"`
	Category       string          `json:"category" gorm:"not null;uniqueIndex:idx_policies_org_category"`
	MaxAmount      decimal.Decimal `json:"max_amount" gorm:"column:max_amount;type:numeric(14,2);not null"`
	Currency       string          `json:"currency" gorm:"default:TRY"`
	IsActive       bool            `json:"is_active" gorm:"column:is_active;default:true"`
	CreatedAt      time.Time       `json:"created_at" gorm:"column:created_at"`
	UpdatedAt      time.Time       `json:"updated_at" gorm:"column:updated_at"`
}

func (Policy) TableName() string {
	return "policies"
}

// Exceeds reports whether the given amount is over the ceiling.
func (p *Policy) Exceeds(amount decimal.Decimal) bool {
	return amount.GreaterThan(p.MaxAmount)
}
