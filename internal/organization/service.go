package organization

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/eyuksel/reimbursement-api/internal"
	"github.com/eyuksel/reimbursement-api/internal/core/datamodel/organization"
)

// Repository defines the data access methods for the organization
// hierarchy.
type Repository interface {
	CreateOrganization(o *organization.Organization) error
	GetOrganization(id string) (*organization.Organization, error)
	ListOrganizations() ([]*organization.Organization, error)
	UpdateOrganization(o *organization.Organization) error
	DeleteOrganization(id string) error

	CreateProject(p *organization.Project) error
	ListProjects(organizationID string) ([]*organization.Project, error)
	DeleteProject(id string) error

	CreatePeriod(p *organization.Period) error
	GetPeriod(id string) (*organization.Period, error)
	ListPeriods(projectID string) ([]*organization.Period, error)
	UpdatePeriod(p *organization.Period) error
	DeletePeriod(id string) error

	FindActiveForDate(date time.Time) (*organization.Period, error)
}

// Service manages organizations, projects and reporting periods.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// FindActiveForDate locates an active period whose date range covers the
// given date. Expenses cannot exist outside a period.
func (s *Service) FindActiveForDate(date time.Time) (*organization.Period, error) {
	return s.repo.FindActiveForDate(date)
}

func (s *Service) CreateOrganization(dto CreateOrganizationDTO) (*organization.Organization, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	o := &organization.Organization{
		ID:        uuid.NewString(),
		Name:      dto.Name,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := s.repo.CreateOrganization(o); err != nil {
		s.logger.Error("failed to create organization", "error", err, "name", dto.Name)
		return nil, err
	}
	s.logger.Info("organization created", "organization_id", o.ID, "name", o.Name)
	return o, nil
}

func (s *Service) ListOrganizations() ([]*organization.Organization, error) {
	return s.repo.ListOrganizations()
}

func (s *Service) UpdateOrganization(id string, dto CreateOrganizationDTO) (*organization.Organization, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	o, err := s.repo.GetOrganization(id)
	if err != nil {
		return nil, err
	}
	o.Name = dto.Name
	o.UpdatedAt = time.Now()
	if err := s.repo.UpdateOrganization(o); err != nil {
		return nil, err
	}
	return o, nil
}

// DeleteOrganization cascades to projects and periods at the datastore.
func (s *Service) DeleteOrganization(id string) error {
	if _, err := s.repo.GetOrganization(id); err != nil {
		return err
	}
	if err := s.repo.DeleteOrganization(id); err != nil {
		s.logger.Error("failed to delete organization", "error", err, "organization_id", id)
		return err
	}
	s.logger.Info("organization deleted", "organization_id", id)
	return nil
}

func (s *Service) CreateProject(dto CreateProjectDTO) (*organization.Project, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetOrganization(dto.OrganizationID); err != nil {
		return nil, err
	}
	p := &organization.Project{
		ID:             uuid.NewString(),
		Name:           dto.Name,
		OrganizationID: dto.OrganizationID,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	if err := s.repo.CreateProject(p); err != nil {
		s.logger.Error("failed to create project", "error", err, "organization_id", dto.OrganizationID)
		return nil, err
	}
	return p, nil
}

func (s *Service) ListProjects(organizationID string) ([]*organization.Project, error) {
	return s.repo.ListProjects(organizationID)
}

func (s *Service) DeleteProject(id string) error {
	return s.repo.DeleteProject(id)
}

func (s *Service) CreatePeriod(dto CreatePeriodDTO) (*organization.Period, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	p := &organization.Period{
		ID:        uuid.NewString(),
		Name:      dto.Name,
		ProjectID: dto.ProjectID,
		StartDate: dto.StartDate.Truncate(24 * time.Hour),
		EndDate:   dto.EndDate.Truncate(24 * time.Hour),
		IsActive:  true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := s.repo.CreatePeriod(p); err != nil {
		s.logger.Error("failed to create period", "error", err, "project_id", dto.ProjectID)
		return nil, err
	}
	s.logger.Info("period created", "period_id", p.ID, "start", p.StartDate.Format("2006-01-02"), "end", p.EndDate.Format("2006-01-02"))
	return p, nil
}

func (s *Service) ListPeriods(projectID string) ([]*organization.Period, error) {
	return s.repo.ListPeriods(projectID)
}

func (s *Service) UpdatePeriod(id string, dto UpdatePeriodDTO) (*organization.Period, error) {
	p, err := s.repo.GetPeriod(id)
	if err != nil {
		return nil, err
	}
	if dto.Name != nil {
		p.Name = *dto.Name
	}
	if dto.StartDate != nil {
		p.StartDate = dto.StartDate.Truncate(24 * time.Hour)
	}
	if dto.EndDate != nil {
		p.EndDate = dto.EndDate.Truncate(24 * time.Hour)
	}
	if dto.IsActive != nil {
		p.IsActive = *dto.IsActive
	}
	if p.EndDate.Before(p.StartDate) {
		return nil, internal.NewValidationError("Period end date must not precede the start date", internal.ErrCodeInvalidDate)
	}
	p.UpdatedAt = time.Now()
	if err := s.repo.UpdatePeriod(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) DeletePeriod(id string) error {
	return s.repo.DeletePeriod(id)
}
