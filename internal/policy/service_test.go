package policy_test

import (
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/eyuksel/reimbursement-api/internal"
	expensemodel "github.com/eyuksel/reimbursement-api/internal/core/datamodel/expense"
	policymodel "github.com/eyuksel/reimbursement-api/internal/core/datamodel/policy"
	"github.com/eyuksel/reimbursement-api/internal/policy"
)

type mockPolicyRepository struct {
	policies    map[string]*policymodel.Policy
	createError error
	getError    error
	updateError error
	deleteError error
}

func newMockPolicyRepository() *mockPolicyRepository {
	return &mockPolicyRepository{
		policies: make(map[string]*policymodel.Policy),
	}
}

func (m *mockPolicyRepository) Create(p *policymodel.Policy) error {
	if m.createError != nil {
		return m.createError
	}
	m.policies[p.ID] = p
	return nil
}

func (m *mockPolicyRepository) GetByID(id string) (*policymodel.Policy, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	p, exists := m.policies[id]
	if !exists {
		return nil, internal.ErrPolicyNotFound
	}
	return p, nil
}

func (m *mockPolicyRepository) GetActiveByCategory(organizationID, category string) (*policymodel.Policy, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	for _, p := range m.policies {
		if p.OrganizationID == organizationID &&
			strings.EqualFold(p.Category, category) &&
			p.IsActive {
			return p, nil
		}
	}
	return nil, internal.ErrPolicyNotFound
}

func (m *mockPolicyRepository) ListByOrganization(organizationID string) ([]*policymodel.Policy, error) {
	out := make([]*policymodel.Policy, 0)
	for _, p := range m.policies {
		if p.OrganizationID == organizationID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockPolicyRepository) Update(p *policymodel.Policy) error {
	if m.updateError != nil {
		return m.updateError
	}
	m.policies[p.ID] = p
	return nil
}

func (m *mockPolicyRepository) Delete(id string) error {
	if m.deleteError != nil {
		return m.deleteError
	}
	delete(m.policies, id)
	return nil
}

var _ = Describe("PolicyService", func() {
	var (
		policyService *policy.Service
		mockRepo      *mockPolicyRepository
		logger        *slog.Logger
	)

	const orgID = "org-1"

	BeforeEach(func() {
		mockRepo = newMockPolicyRepository()
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		policyService = policy.NewService(mockRepo, logger)
	})

	seedPolicy := func(category string, maxAmount string) *policymodel.Policy {
		p := &policymodel.Policy{
			ID:             "policy-" + category,
			OrganizationID: orgID,
			Category:       category,
			MaxAmount:      decimal.RequireFromString(maxAmount),
			Currency:       "TRY",
			IsActive:       true,
			CreatedAt:      time.Now(),
			UpdatedAt:      time.Now(),
		}
		mockRepo.policies[p.ID] = p
		return p
	}

	Describe("Evaluate", func() {
		Context("when the amount exceeds the category limit", func() {
			It("should return a policy limit warning", func() {
				seedPolicy("Yemek", "500")

				warning, err := policyService.Evaluate(orgID, "Yemek", decimal.NewFromInt(600))

				Expect(err).ToNot(HaveOccurred())
				Expect(warning).ToNot(BeNil())
				Expect(warning.Code).To(Equal(expensemodel.WarningPolicyLimitExceeded))
				Expect(warning.Params["category"]).To(Equal("Yemek"))
				Expect(warning.Params["limit"]).To(Equal("500.00"))
			})
		})

		Context("when the amount stays within the limit", func() {
			It("should return no warning", func() {
				seedPolicy("Yemek", "500")

				warning, err := policyService.Evaluate(orgID, "Yemek", decimal.NewFromInt(400))

				Expect(err).ToNot(HaveOccurred())
				Expect(warning).To(BeNil())
			})
		})

		Context("when the category matches with a different case", func() {
			It("should still apply the policy", func() {
				seedPolicy("Yemek", "500")

				warning, err := policyService.Evaluate(orgID, "yemek", decimal.NewFromInt(600))

				Expect(err).ToNot(HaveOccurred())
				Expect(warning).ToNot(BeNil())
			})
		})

		Context("when no policy exists for the category", func() {
			It("should return no warning and no error", func() {
				warning, err := policyService.Evaluate(orgID, "Ulaşım", decimal.NewFromInt(10000))

				Expect(err).ToNot(HaveOccurred())
				Expect(warning).To(BeNil())
			})
		})

		Context("when the category is empty", func() {
			It("should skip evaluation", func() {
				warning, err := policyService.Evaluate(orgID, "", decimal.NewFromInt(600))

				Expect(err).ToNot(HaveOccurred())
				Expect(warning).To(BeNil())
			})
		})

		Context("when the repository fails", func() {
			It("should propagate the error", func() {
				mockRepo.getError = errors.New("connection lost")

				_, err := policyService.Evaluate(orgID, "Yemek", decimal.NewFromInt(600))

				Expect(err).To(HaveOccurred())
			})
		})
	})

	Describe("CreatePolicy", func() {
		It("should create a policy with defaults", func() {
			dto := policy.CreatePolicyDTO{
				Category:  "Yemek",
				MaxAmount: decimal.NewFromInt(500),
			}

			p, err := policyService.CreatePolicy(orgID, dto)

			Expect(err).ToNot(HaveOccurred())
			Expect(p.ID).ToNot(BeEmpty())
			Expect(p.Currency).To(Equal("TRY"))
			Expect(p.IsActive).To(BeTrue())
		})

		It("should reject a duplicate category in the same organization", func() {
			seedPolicy("Yemek", "500")

			_, err := policyService.CreatePolicy(orgID, policy.CreatePolicyDTO{
				Category:  "yemek",
				MaxAmount: decimal.NewFromInt(300),
			})

			Expect(err).To(Equal(internal.ErrPolicyDuplicate))
		})

		It("should reject a negative limit", func() {
			_, err := policyService.CreatePolicy(orgID, policy.CreatePolicyDTO{
				Category:  "Yemek",
				MaxAmount: decimal.NewFromInt(-10),
			})

			Expect(err).To(HaveOccurred())
		})
	})

	Describe("UpdatePolicy", func() {
		It("should apply partial updates", func() {
			p := seedPolicy("Yemek", "500")
			newMax := decimal.NewFromInt(750)
			inactive := false

			updated, err := policyService.UpdatePolicy(p.ID, policy.UpdatePolicyDTO{
				MaxAmount: &newMax,
				IsActive:  &inactive,
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(updated.MaxAmount.Equal(newMax)).To(BeTrue())
			Expect(updated.IsActive).To(BeFalse())
		})

		It("should fail for an unknown policy", func() {
			_, err := policyService.UpdatePolicy("missing", policy.UpdatePolicyDTO{})

			Expect(err).To(Equal(internal.ErrPolicyNotFound))
		})
	})

	Describe("DeletePolicy", func() {
		It("should remove an existing policy", func() {
			p := seedPolicy("Yemek", "500")

			Expect(policyService.DeletePolicy(p.ID)).To(Succeed())
			_, err := mockRepo.GetByID(p.ID)
			Expect(err).To(Equal(internal.ErrPolicyNotFound))
		})

		It("should fail for an unknown policy", func() {
			Expect(policyService.DeletePolicy("missing")).To(Equal(internal.ErrPolicyNotFound))
		})
	})
})
