package user

import (
	"github.com/eyuksel/reimbursement-api/internal"
	"github.com/eyuksel/reimbursement-api/internal/core/common/validation"
)

type UpdateProfileDTO struct {
	Name          *string `json:"name,omitempty"`
	Phone         *string `json:"phone,omitempty"`
	IBAN          *string `json:"iban,omitempty"`
	BankName      *string `json:"bank_name,omitempty"`
	BankBranch    *string `json:"bank_branch,omitempty"`
	AccountHolder *string `json:"account_holder,omitempty"`
}

func (d *UpdateProfileDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	if d.Name != nil {
		v.Field("name", *d.Name).Required().MaxLength(200)
	}
	if d.IBAN != nil {
		v.Field("iban", *d.IBAN).MaxLength(34)
	}
	if d.Phone != nil {
		v.Field("phone", *d.Phone).MaxLength(30)
	}
	return v.Validate()
}

type CreateUserDTO struct {
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	Password       string  `json:"password"`
	Role           string  `json:"role,omitempty"`
	OrganizationID *string `json:"organization_id,omitempty"`
}

func (d *CreateUserDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MaxLength(200)
	v.Field("email", d.Email).Required().MaxLength(254)
	v.Field("password", d.Password).Required().MinLength(8)
	return v.Validate()
}

type UpdateUserDTO struct {
	Name           *string `json:"name,omitempty"`
	Role           *string `json:"role,omitempty"`
	OrganizationID *string `json:"organization_id,omitempty"`
	IsActive       *bool   `json:"is_active,omitempty"`
}
