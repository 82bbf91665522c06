package postgres

import (
	"time"

	"gorm.io/gorm"

	"github.com/eyuksel/reimbursement-api/internal"
	policymodel "github.com/eyuksel/reimbursement-api/internal/core/datamodel/policy"
	policysvc "github.com/eyuksel/reimbursement-api/internal/policy"
)

// PolicyRepository implements the policy.Repository interface using GORM.
type PolicyRepository struct {
	db *gorm.DB
}

func NewPolicyRepository(db *gorm.DB) policysvc.Repository {
	return &PolicyRepository{db: db}
}

func (r *PolicyRepository) Create(p *policymodel.Policy) error {
	return r.db.Create(p).Error
}

func (r *PolicyRepository) GetByID(id string) (*policymodel.Policy, error) {
	var p policymodel.Policy
	err := r.db.Where("id = ?", id).First(&p).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrPolicyNotFound
		}
		return nil, err
	}
	return &p, nil
}

// GetActiveByCategory matches the category case-insensitively.
func (r *PolicyRepository) GetActiveByCategory(organizationID, category string) (*policymodel.Policy, error) {
	var p policymodel.Policy
	err := r.db.Where("organization_id = ? AND LOWER(category) = LOWER(?) AND is_active = ?", organizationID, category, true).
		First(&p).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrPolicyNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PolicyRepository) ListByOrganization(organizationID string) ([]*policymodel.Policy, error) {
	var policies []*policymodel.Policy
	err := r.db.Where("organization_id = ?", organizationID).
		Order("category ASC").
		Find(&policies).Error
	return policies, err
}

func (r *PolicyRepository) Update(p *policymodel.Policy) error {
	p.UpdatedAt = time.Now()
	return r.db.Save(p).Error
}

func (r *PolicyRepository) Delete(id string) error {
	return r.db.Where("id = ?", id).Delete(&policymodel.Policy{}).Error
}
