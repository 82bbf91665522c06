package expense_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/eyuksel/reimbursement-api/internal"
	expensemodel "github.com/eyuksel/reimbursement-api/internal/core/datamodel/expense"
	"github.com/eyuksel/reimbursement-api/internal/core/datamodel/organization"
	"github.com/eyuksel/reimbursement-api/internal/expense"
	"github.com/eyuksel/reimbursement-api/internal/receiptparser"
)

// Mock repository for testing
type mockExpenseRepository struct {
	expenses    map[string]*expensemodel.Expense
	createError error
	getError    error
	updateError error
	dupError    error
}

func newMockExpenseRepository() *mockExpenseRepository {
	return &mockExpenseRepository{expenses: make(map[string]*expensemodel.Expense)}
}

func (m *mockExpenseRepository) Create(e *expensemodel.Expense) error {
	if m.createError != nil {
		return m.createError
	}
	m.expenses[e.ID] = e
	return nil
}

func (m *mockExpenseRepository) GetByID(id string) (*expensemodel.Expense, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	exp, ok := m.expenses[id]
	if !ok {
		return nil, internal.ErrExpenseNotFound
	}
	return exp, nil
}

func (m *mockExpenseRepository) ListByUser(userID string, filter expense.ListFilter) ([]*expensemodel.Expense, error) {
	var out []*expensemodel.Expense
	for _, e := range m.expenses {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockExpenseRepository) ListAll(filter expense.ListFilter) ([]*expensemodel.Expense, error) {
	var out []*expensemodel.Expense
	for _, e := range m.expenses {
		out = append(out, e)
	}
	return out, nil
}

func (m *mockExpenseRepository) Update(e *expensemodel.Expense) error {
	if m.updateError != nil {
		return m.updateError
	}
	m.expenses[e.ID] = e
	return nil
}

func (m *mockExpenseRepository) Delete(id string) error {
	delete(m.expenses, id)
	return nil
}

func (m *mockExpenseRepository) FindDuplicate(userID string, amount decimal.Decimal, date time.Time, merchant string) (*expensemodel.Expense, error) {
	if m.dupError != nil {
		return nil, m.dupError
	}
	day := date.Truncate(24 * time.Hour)
	for _, e := range m.expenses {
		if e.UserID == userID && e.Amount.Equal(amount) && e.Date.Truncate(24*time.Hour).Equal(day) && e.Merchant == merchant {
			return e, nil
		}
	}
	return nil, internal.ErrExpenseNotFound
}

type mockPeriodFinder struct {
	period *organization.Period
	err    error
}

func (m *mockPeriodFinder) FindActiveForDate(date time.Time) (*organization.Period, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.period, nil
}

type mockPolicyEvaluator struct {
	warning *expensemodel.Warning
	err     error
	calls   int
}

func (m *mockPolicyEvaluator) Evaluate(organizationID, category string, amount decimal.Decimal) (*expensemodel.Warning, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.warning, nil
}

type mockParser struct {
	parsed *receiptparser.ParsedReceipt
	err    error
}

func (m *mockParser) ParseReceipt(ctx context.Context, data []byte, mimeType string) (*receiptparser.ParsedReceipt, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.parsed, nil
}

var _ = Describe("Expense Service", func() {
	var (
		repo    *mockExpenseRepository
		periods *mockPeriodFinder
		policy  *mockPolicyEvaluator
		parser  *mockParser
		service *expense.Service

		volunteer internal.Actor
		admin     internal.Actor
	)

	yesterday := time.Now().AddDate(0, 0, -1)

	BeforeEach(func() {
		repo = newMockExpenseRepository()
		periods = &mockPeriodFinder{period: &organization.Period{ID: "period-1", IsActive: true}}
		policy = &mockPolicyEvaluator{}
		parser = &mockParser{}

		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		service = expense.NewService(repo, periods, policy, parser, logger)

		volunteer = internal.Actor{UserID: "user-1", Role: internal.RoleVolunteer, OrganizationID: "org-1"}
		admin = internal.Actor{UserID: "admin-1", Role: internal.RoleAdmin, OrganizationID: "org-1"}
	})

	validDTO := func() expense.CreateExpenseDTO {
		return expense.CreateExpenseDTO{
			Amount:   decimal.NewFromFloat(149.90),
			Date:     yesterday,
			Category: "Yemek",
			Merchant: "Lokanta",
		}
	}

	Describe("CreateExpense", func() {
		It("creates a pending expense bound to the active period", func() {
			exp, err := service.CreateExpense(volunteer, "", validDTO())

			Expect(err).NotTo(HaveOccurred())
			Expect(exp.ID).NotTo(BeEmpty())
			Expect(exp.UserID).To(Equal("user-1"))
			Expect(exp.Status).To(Equal(expensemodel.StatusPending))
			Expect(exp.PeriodID).To(Equal("period-1"))
			Expect(exp.Currency).To(Equal("TRY"))
		})

		It("rejects an exact duplicate of an existing expense", func() {
			_, err := service.CreateExpense(volunteer, "", validDTO())
			Expect(err).NotTo(HaveOccurred())

			_, err = service.CreateExpense(volunteer, "", validDTO())
			Expect(err).To(Equal(internal.ErrDuplicateExpense))
		})

		It("fails creation when the duplicate check itself errors", func() {
			repo.dupError = errors.New("connection reset")

			_, err := service.CreateExpense(volunteer, "", validDTO())
			Expect(err).To(MatchError("connection reset"))
			Expect(repo.expenses).To(BeEmpty())
		})

		It("allows the same receipt data for a different user", func() {
			_, err := service.CreateExpense(volunteer, "", validDTO())
			Expect(err).NotTo(HaveOccurred())

			other := internal.Actor{UserID: "user-2", Role: internal.RoleVolunteer, OrganizationID: "org-1"}
			_, err = service.CreateExpense(other, "", validDTO())
			Expect(err).NotTo(HaveOccurred())
		})

		It("fails when no active period covers the date", func() {
			periods.err = internal.ErrNoActivePeriod

			_, err := service.CreateExpense(volunteer, "", validDTO())
			Expect(err).To(Equal(internal.ErrNoActivePeriod))
		})

		It("attaches a policy warning without blocking creation", func() {
			policy.warning = &expensemodel.Warning{
				Code:   expensemodel.WarningPolicyLimitExceeded,
				Params: map[string]string{"category": "Yemek", "limit": "500.00", "currency": "TRY"},
			}

			exp, err := service.CreateExpense(volunteer, "", validDTO())

			Expect(err).NotTo(HaveOccurred())
			Expect(exp.Warnings).To(HaveLen(1))
			Expect(exp.Warnings[0].Code).To(Equal(expensemodel.WarningPolicyLimitExceeded))
		})

		It("still creates the expense when policy evaluation fails", func() {
			policy.err = errors.New("policy store down")

			exp, err := service.CreateExpense(volunteer, "", validDTO())

			Expect(err).NotTo(HaveOccurred())
			Expect(exp.Warnings).To(BeEmpty())
		})

		It("flags boarding passes and info slips", func() {
			dto := validDTO()
			dto.IsBoardingPass = true
			dto.IsInfoSlip = true

			exp, err := service.CreateExpense(volunteer, "", dto)

			Expect(err).NotTo(HaveOccurred())
			codes := []string{exp.Warnings[0].Code, exp.Warnings[1].Code}
			Expect(codes).To(ConsistOf(expensemodel.WarningBoardingPass, expensemodel.WarningInfoSlip))
		})

		It("rejects creation on behalf of another user for non-admins", func() {
			_, err := service.CreateExpense(volunteer, "user-2", validDTO())
			Expect(err).To(Equal(internal.ErrUnauthorized))
		})

		It("lets an admin create on behalf of another user", func() {
			exp, err := service.CreateExpense(admin, "user-2", validDTO())

			Expect(err).NotTo(HaveOccurred())
			Expect(exp.UserID).To(Equal("user-2"))
		})

		It("rejects a negative amount", func() {
			dto := validDTO()
			dto.Amount = decimal.NewFromInt(-10)

			_, err := service.CreateExpense(volunteer, "", dto)
			Expect(err).To(HaveOccurred())
		})

		It("accepts a zero amount for informational documents", func() {
			dto := validDTO()
			dto.Amount = decimal.Zero
			dto.IsInfoSlip = true
			dto.Merchant = "Havayolu"

			exp, err := service.CreateExpense(volunteer, "", dto)

			Expect(err).NotTo(HaveOccurred())
			Expect(exp.Amount.IsZero()).To(BeTrue())
		})
	})

	Describe("BulkCreate", func() {
		It("keeps good items when one item fails", func() {
			good := validDTO()
			bad := validDTO()
			bad.Amount = decimal.NewFromInt(-1)
			other := validDTO()
			other.Merchant = "Market"

			result, err := service.BulkCreate(volunteer, "", []expense.CreateExpenseDTO{good, bad, other})

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Created).To(HaveLen(2))
			Expect(result.Failed).To(HaveLen(1))
			Expect(result.Failed[0].Index).To(Equal(1))
		})

		It("rejects an empty batch", func() {
			_, err := service.BulkCreate(volunteer, "", nil)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("GetExpense", func() {
		It("hides other users' expenses from non-staff", func() {
			exp, err := service.CreateExpense(volunteer, "", validDTO())
			Expect(err).NotTo(HaveOccurred())

			other := internal.Actor{UserID: "user-2", Role: internal.RoleVolunteer}
			_, err = service.GetExpense(other, exp.ID)
			Expect(err).To(Equal(internal.ErrUnauthorized))
		})

		It("lets staff read any expense", func() {
			exp, err := service.CreateExpense(volunteer, "", validDTO())
			Expect(err).NotTo(HaveOccurred())

			accountant := internal.Actor{UserID: "acc-1", Role: internal.RoleAccountant}
			got, err := service.GetExpense(accountant, exp.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(exp.ID))
		})
	})

	Describe("ListAllExpenses", func() {
		It("is limited to staff roles", func() {
			_, err := service.ListAllExpenses(volunteer, expense.ListFilter{})
			Expect(err).To(Equal(internal.ErrUnauthorized))
		})
	})

	Describe("UpdateExpense", func() {
		It("edits a pending expense and recomputes policy warnings", func() {
			policy.warning = &expensemodel.Warning{Code: expensemodel.WarningPolicyLimitExceeded}
			exp, err := service.CreateExpense(volunteer, "", validDTO())
			Expect(err).NotTo(HaveOccurred())
			Expect(exp.Warnings).To(HaveLen(1))

			policy.warning = nil
			newAmount := decimal.NewFromInt(100)
			updated, err := service.UpdateExpense(volunteer, exp.ID, expense.UpdateExpenseDTO{Amount: &newAmount})

			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Amount.Equal(newAmount)).To(BeTrue())
			Expect(updated.Warnings).To(BeEmpty())
		})

		It("keeps parser flags when recomputing warnings", func() {
			dto := validDTO()
			dto.IsBoardingPass = true
			exp, err := service.CreateExpense(volunteer, "", dto)
			Expect(err).NotTo(HaveOccurred())

			newAmount := decimal.NewFromInt(100)
			updated, err := service.UpdateExpense(volunteer, exp.ID, expense.UpdateExpenseDTO{Amount: &newAmount})

			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Warnings).To(HaveLen(1))
			Expect(updated.Warnings[0].Code).To(Equal(expensemodel.WarningBoardingPass))
		})

		It("refuses edits once the expense is submitted", func() {
			exp, err := service.CreateExpense(volunteer, "", validDTO())
			Expect(err).NotTo(HaveOccurred())
			exp.Status = expensemodel.StatusSubmitted

			newAmount := decimal.NewFromInt(100)
			_, err = service.UpdateExpense(volunteer, exp.ID, expense.UpdateExpenseDTO{Amount: &newAmount})
			Expect(err).To(Equal(internal.ErrExpenseImmutable))
		})

		It("re-resolves the period when the date changes", func() {
			exp, err := service.CreateExpense(volunteer, "", validDTO())
			Expect(err).NotTo(HaveOccurred())

			periods.period = &organization.Period{ID: "period-2", IsActive: true}
			newDate := yesterday.AddDate(0, 0, -5)
			updated, err := service.UpdateExpense(volunteer, exp.ID, expense.UpdateExpenseDTO{Date: &newDate})

			Expect(err).NotTo(HaveOccurred())
			Expect(updated.PeriodID).To(Equal("period-2"))
		})

		It("fails when the new date has no active period", func() {
			exp, err := service.CreateExpense(volunteer, "", validDTO())
			Expect(err).NotTo(HaveOccurred())

			periods.err = internal.ErrNoActivePeriod
			newDate := yesterday.AddDate(-1, 0, 0)
			_, err = service.UpdateExpense(volunteer, exp.ID, expense.UpdateExpenseDTO{Date: &newDate})
			Expect(err).To(Equal(internal.ErrNoActivePeriod))
		})
	})

	Describe("DeleteExpense", func() {
		It("deletes a pending expense", func() {
			exp, err := service.CreateExpense(volunteer, "", validDTO())
			Expect(err).NotTo(HaveOccurred())

			Expect(service.DeleteExpense(volunteer, exp.ID)).To(Succeed())
			_, err = service.GetExpense(volunteer, exp.ID)
			Expect(err).To(HaveOccurred())
		})

		It("refuses to delete a submitted expense", func() {
			exp, err := service.CreateExpense(volunteer, "", validDTO())
			Expect(err).NotTo(HaveOccurred())
			formID := "form-1"
			exp.Status = expensemodel.StatusSubmitted
			exp.ExpenseFormID = &formID

			Expect(service.DeleteExpense(volunteer, exp.ID)).To(Equal(internal.ErrExpenseImmutable))
		})

		It("allows deleting a rejected expense after it was unlinked", func() {
			exp, err := service.CreateExpense(volunteer, "", validDTO())
			Expect(err).NotTo(HaveOccurred())
			exp.Status = expensemodel.StatusRejected
			exp.ExpenseFormID = nil

			Expect(service.DeleteExpense(volunteer, exp.ID)).To(Succeed())
		})

		It("allows deleting a rejected expense still linked to its rejected form", func() {
			exp, err := service.CreateExpense(volunteer, "", validDTO())
			Expect(err).NotTo(HaveOccurred())
			formID := "form-1"
			exp.Status = expensemodel.StatusRejected
			exp.ExpenseFormID = &formID

			Expect(service.DeleteExpense(volunteer, exp.ID)).To(Succeed())
		})

		It("refuses deletes by unrelated users", func() {
			exp, err := service.CreateExpense(volunteer, "", validDTO())
			Expect(err).NotTo(HaveOccurred())

			other := internal.Actor{UserID: "user-2", Role: internal.RoleVolunteer}
			Expect(service.DeleteExpense(other, exp.ID)).To(Equal(internal.ErrUnauthorized))
		})
	})

	Describe("ParseReceipt", func() {
		It("maps the parsed receipt into a draft without persisting", func() {
			parser.parsed = &receiptparser.ParsedReceipt{
				Amount:   decimal.NewFromFloat(88.50),
				Currency: "TRY",
				Date:     yesterday,
				Merchant: "Benzinlik",
				Category: "Ulaşım",
			}

			draft, err := service.ParseReceipt(context.Background(), []byte("img"), "image/jpeg")

			Expect(err).NotTo(HaveOccurred())
			Expect(draft.Merchant).To(Equal("Benzinlik"))
			Expect(draft.Date).To(Equal(yesterday.Format("2006-01-02")))
			Expect(repo.expenses).To(BeEmpty())
		})

		It("propagates parser failures", func() {
			parser.err = errors.New("upstream timeout")

			_, err := service.ParseReceipt(context.Background(), []byte("img"), "image/jpeg")
			Expect(err).To(HaveOccurred())
		})
	})
})
