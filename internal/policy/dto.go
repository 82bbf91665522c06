package policy

import (
	"github.com/shopspring/decimal"

	"github.com/eyuksel/reimbursement-api/internal"
	"github.com/eyuksel/reimbursement-api/internal/core/common/validation"
)

type CreatePolicyDTO struct {
	Category  string          `json:"category"`
	MaxAmount decimal.Decimal `json:"max_amount"`
	Currency  string          `json:"currency,omitempty"`
}

func (d *CreatePolicyDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("category", d.Category).Required().MaxLength(100)
	v.Field("max_amount", d.MaxAmount).NonNegative(internal.ErrCodeInvalidAmount)
	return v.Validate()
}

type UpdatePolicyDTO struct {
	MaxAmount *decimal.Decimal `json:"max_amount,omitempty"`
	Currency  *string          `json:"currency,omitempty"`
	IsActive  *bool            `json:"is_active,omitempty"`
}

func (d *UpdatePolicyDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	if d.MaxAmount != nil {
		v.Field("max_amount", *d.MaxAmount).NonNegative(internal.ErrCodeInvalidAmount)
	}
	return v.Validate()
}
