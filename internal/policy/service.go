package policy

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/eyuksel/reimbursement-api/internal"
	expensemodel "github.com/eyuksel/reimbursement-api/internal/core/datamodel/expense"
	"github.com/eyuksel/reimbursement-api/internal/core/datamodel/policy"
)

// Repository defines the data access methods for category policies.
type Repository interface {
	Create(p *policy.Policy) error
	GetByID(id string) (*policy.Policy, error)
	GetActiveByCategory(organizationID, category string) (*policy.Policy, error)
	ListByOrganization(organizationID string) ([]*policy.Policy, error)
	Update(p *policy.Policy) error
	Delete(id string) error
}

// Service evaluates and manages per-category spending ceilings.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Evaluate checks an amount against the active policy for the category.
// Category matching is case-insensitive. A breach produces a warning and
// never an error: policies are advisory.
func (s *Service) Evaluate(organizationID, category string, amount decimal.Decimal) (*expensemodel.Warning, error) {
	if category == "" {
		return nil, nil
	}

	p, err := s.repo.GetActiveByCategory(organizationID, category)
	if err != nil {
		if appErr, ok := internal.IsAppError(err); ok && appErr.Code == internal.ErrCodePolicyNotFound {
			return nil, nil
		}
		s.logger.Error("policy lookup failed", "error", err, "organization_id", organizationID, "category", category)
		return nil, err
	}

	if !p.Exceeds(amount) {
		return nil, nil
	}

	s.logger.Info("policy limit exceeded",
		"organization_id", organizationID,
		"category", p.Category,
		"limit", p.MaxAmount.StringFixed(2),
		"amount", amount.StringFixed(2))

	return &expensemodel.Warning{
		Code: expensemodel.WarningPolicyLimitExceeded,
		Params: map[string]string{
			"category": p.Category,
			"limit":    p.MaxAmount.StringFixed(2),
			"currency": p.Currency,
			"amount":   amount.StringFixed(2),
		},
	}, nil
}

func (s *Service) CreatePolicy(organizationID string, dto CreatePolicyDTO) (*policy.Policy, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetActiveByCategory(organizationID, dto.Category)
	if err == nil && existing != nil {
		return nil, internal.ErrPolicyDuplicate
	}

	currency := dto.Currency
	if currency == "" {
		currency = "TRY"
	}

	p := &policy.Policy{
		ID:             uuid.NewString(),
		OrganizationID: organizationID,
		Category:       dto.Category,
		MaxAmount:      dto.MaxAmount,
		Currency:       currency,
		IsActive:       true,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}

	if err := s.repo.Create(p); err != nil {
		s.logger.Error("failed to create policy", "error", err, "organization_id", organizationID, "category", dto.Category)
		return nil, err
	}

	s.logger.Info("policy created", "policy_id", p.ID, "category", p.Category, "max_amount", p.MaxAmount.StringFixed(2))
	return p, nil
}

func (s *Service) ListPolicies(organizationID string) ([]*policy.Policy, error) {
	return s.repo.ListByOrganization(organizationID)
}

func (s *Service) UpdatePolicy(id string, dto UpdatePolicyDTO) (*policy.Policy, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	p, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	if dto.MaxAmount != nil {
		p.MaxAmount = *dto.MaxAmount
	}
	if dto.Currency != nil {
		p.Currency = *dto.Currency
	}
	if dto.IsActive != nil {
		p.IsActive = *dto.IsActive
	}
	p.UpdatedAt = time.Now()

	if err := s.repo.Update(p); err != nil {
		s.logger.Error("failed to update policy", "error", err, "policy_id", id)
		return nil, err
	}

	return p, nil
}

func (s *Service) DeletePolicy(id string) error {
	if _, err := s.repo.GetByID(id); err != nil {
		return err
	}
	if err := s.repo.Delete(id); err != nil {
		s.logger.Error("failed to delete policy", "error", err, "policy_id", id)
		return err
	}
	s.logger.Info("policy deleted", "policy_id", id)
	return nil
}
