package postgres

import (
	"time"

	"gorm.io/gorm"

	"github.com/eyuksel/reimbursement-api/internal"
	"github.com/eyuksel/reimbursement-api/internal/core/datamodel/organization"
	organizationsvc "github.com/eyuksel/reimbursement-api/internal/organization"
)

// OrganizationRepository implements the organization.Repository interface
// using GORM.
type OrganizationRepository struct {
	db *gorm.DB
}

func NewOrganizationRepository(db *gorm.DB) organizationsvc.Repository {
	return &OrganizationRepository{db: db}
}

func (r *OrganizationRepository) CreateOrganization(o *organization.Organization) error {
	return r.db.Create(o).Error
}

func (r *OrganizationRepository) GetOrganization(id string) (*organization.Organization, error) {
	var o organization.Organization
	err := r.db.Where("id = ?", id).First(&o).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.NewNotFoundError("Organization not found", internal.ErrCodeValidationFailed)
		}
		return nil, err
	}
	return &o, nil
}

func (r *OrganizationRepository) ListOrganizations() ([]*organization.Organization, error) {
	var orgs []*organization.Organization
	err := r.db.Order("name ASC").Find(&orgs).Error
	return orgs, err
}

func (r *OrganizationRepository) UpdateOrganization(o *organization.Organization) error {
	o.UpdatedAt = time.Now()
	return r.db.Save(o).Error
}

// DeleteOrganization removes the subtree in one transaction. SQLite lacks
// the FK cascade in tests, so the children go explicitly.
func (r *OrganizationRepository) DeleteOrganization(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var projectIDs []string
		if err := tx.Model(&organization.Project{}).
			Where("organization_id = ?", id).
			Pluck("id", &projectIDs).Error; err != nil {
			return err
		}
		if len(projectIDs) > 0 {
			if err := tx.Where("project_id IN ?", projectIDs).
				Delete(&organization.Period{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", projectIDs).
				Delete(&organization.Project{}).Error; err != nil {
				return err
			}
		}
		return tx.Where("id = ?", id).Delete(&organization.Organization{}).Error
	})
}

func (r *OrganizationRepository) CreateProject(p *organization.Project) error {
	return r.db.Create(p).Error
}

func (r *OrganizationRepository) ListProjects(organizationID string) ([]*organization.Project, error) {
	var projects []*organization.Project
	q := r.db.Order("name ASC")
	if organizationID != "" {
		q = q.Where("organization_id = ?", organizationID)
	}
	err := q.Find(&projects).Error
	return projects, err
}

func (r *OrganizationRepository) DeleteProject(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", id).Delete(&organization.Period{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&organization.Project{}).Error
	})
}

func (r *OrganizationRepository) CreatePeriod(p *organization.Period) error {
	return r.db.Create(p).Error
}

func (r *OrganizationRepository) GetPeriod(id string) (*organization.Period, error) {
	var p organization.Period
	err := r.db.Where("id = ?", id).First(&p).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.NewNotFoundError("Period not found", internal.ErrCodeNoActivePeriod)
		}
		return nil, err
	}
	return &p, nil
}

func (r *OrganizationRepository) ListPeriods(projectID string) ([]*organization.Period, error) {
	var periods []*organization.Period
	q := r.db.Order("start_date DESC")
	if projectID != "" {
		q = q.Where("project_id = ?", projectID)
	}
	err := q.Find(&periods).Error
	return periods, err
}

func (r *OrganizationRepository) UpdatePeriod(p *organization.Period) error {
	p.UpdatedAt = time.Now()
	return r.db.Save(p).Error
}

func (r *OrganizationRepository) DeletePeriod(id string) error {
	return r.db.Where("id = ?", id).Delete(&organization.Period{}).Error
}

// FindActiveForDate picks the most recently started active period covering
// the date.
func (r *OrganizationRepository) FindActiveForDate(date time.Time) (*organization.Period, error) {
	day := date.Truncate(24 * time.Hour)
	var p organization.Period
	err := r.db.Where("is_active = ? AND start_date <= ? AND end_date >= ?", true, day, day).
		Order("start_date DESC").
		First(&p).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrNoActivePeriod
		}
		return nil, err
	}
	return &p, nil
}
