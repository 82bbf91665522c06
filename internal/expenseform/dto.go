package expenseform

import (
	"github.com/eyuksel/reimbursement-api/internal"
	"github.com/eyuksel/reimbursement-api/internal/core/common/validation"
)

type SubmitFormDTO struct {
	Title             string   `json:"title"`
	Location          string   `json:"location,omitempty"`
	ExpenseIDs        []string `json:"expense_ids"`
	ReceiptsDelivered bool     `json:"receipts_delivered"`
	InfoVerified      bool     `json:"info_verified"`

	// UserID lets an admin submit on behalf of another user. Empty means
	// the caller submits their own expenses.
	UserID string `json:"user_id,omitempty"`
}

func (d *SubmitFormDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("title", d.Title).Required().MaxLength(200)
	v.Field("location", d.Location).MaxLength(200)
	return v.Validate()
}

type RejectFormDTO struct {
	Reason string `json:"reason"`
}
