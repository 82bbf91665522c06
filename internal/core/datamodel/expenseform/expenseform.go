package expenseform

import (
	"time"

	"github.com/shopspring/decimal"

	expenseDatamodel "github.com/eyuksel/reimbursement-api/internal/core/datamodel/expense"
)

// Form status values. APPROVED and PAID are terminal.
const (
	StatusSubmitted = "SUBMITTED"
	StatusApproved  = "APPROVED"
	StatusRejected  = "REJECTED"
	StatusPaid      = "PAID"
)

// ExpenseForm is a batch of expenses submitted together for review.
// TotalAmount is a snapshot of the member sum taken inside the submit
// transaction and is never recomputed afterwards.
type ExpenseForm struct {
	ID                string                     `json:"id" gorm:"primaryKey"`
	FormNumber        int64                      `json:"form_number" gorm:"column:form_number;not null;uniqueIndex"`
	UserID            string                     `json:"user_id" gorm:"column:user_id;not null;index"`
	Title             string                     `json:"title" gorm:"not null"`
	TotalAmount       decimal.Decimal            `json:"total_amount" gorm:"column:total_amount;type:numeric(14,2);not null"`
	Status            string                     `json:"status" gorm:"column:status;default:SUBMITTED;index"`
	RejectionReason   *string                    `json:"rejection_reason,omitempty" gorm:"column:rejection_reason"`
	Location          string                     `json:"location"`
	ReceiptsDelivered bool                       `json:"receipts_delivered" gorm:"column:receipts_delivered"`
	InfoVerified      bool                       `json:"info_verified" gorm:"column:info_verified"`
	SubmittedAt       time.Time                  `json:"submitted_at" gorm:"column:submitted_at"`
	ProcessedAt       *time.Time                 `json:"processed_at,omitempty" gorm:"column:processed_at"`
	CreatedAt         time.Time                  `json:"created_at" gorm:"column:created_at"`
	UpdatedAt         time.Time                  `json:"updated_at" gorm:"column:updated_at"`
	Expenses          []expenseDatamodel.Expense `json:"expenses,omitempty" gorm:"foreignKey:ExpenseFormID"`
}

func (ExpenseForm) TableName() string {
	return "expense_forms"
}

// IsProcessed reports whether a decision has been recorded.
func (f *ExpenseForm) IsProcessed() bool {
	return f.Status != StatusSubmitted
}

// CanBeDecided: approve/reject apply only to forms still awaiting review.
func (f *ExpenseForm) CanBeDecided() bool {
	return f.Status == StatusSubmitted
}

// CanBeDeleted: approved and paid forms are immutable; deleting any other
// form returns its expenses to the unsubmitted pool.
func (f *ExpenseForm) CanBeDeleted() bool {
	return f.Status != StatusApproved && f.Status != StatusPaid
}

// CanBeMarkedPaid: bookkeeping transition after approval.
func (f *ExpenseForm) CanBeMarkedPaid() bool {
	return f.Status == StatusApproved
}
