package organization

import (
	"time"

	"github.com/eyuksel/reimbursement-api/internal"
	"github.com/eyuksel/reimbursement-api/internal/core/common/validation"
)

type CreateOrganizationDTO struct {
	Name string `json:"name"`
}

func (d *CreateOrganizationDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MaxLength(200)
	return v.Validate()
}

type CreateProjectDTO struct {
	Name           string `json:"name"`
	OrganizationID string `json:"organization_id"`
}

func (d *CreateProjectDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MaxLength(200)
	v.Field("organization_id", d.OrganizationID).Required()
	return v.Validate()
}

type CreatePeriodDTO struct {
	Name      string    `json:"name"`
	ProjectID string    `json:"project_id"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

func (d *CreatePeriodDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MaxLength(200)
	v.Field("project_id", d.ProjectID).Required()
	v.Field("start_date", d.StartDate).Required()
	v.Field("end_date", d.EndDate).Required()
	if err := v.Validate(); err != nil {
		return err
	}
	if d.EndDate.Before(d.StartDate) {
		return internal.NewValidationError("Period end date must not precede the start date", internal.ErrCodeInvalidDate)
	}
	return nil
}

type UpdatePeriodDTO struct {
	Name      *string    `json:"name,omitempty"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	IsActive  *bool      `json:"is_active,omitempty"`
}
