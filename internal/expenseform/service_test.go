package expenseform_test

import (
	"context"
	"log/slog"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/eyuksel/reimbursement-api/internal"
	expensemodel "github.com/eyuksel/reimbursement-api/internal/core/datamodel/expense"
	formmodel "github.com/eyuksel/reimbursement-api/internal/core/datamodel/expenseform"
	usermodel "github.com/eyuksel/reimbursement-api/internal/core/datamodel/user"
	"github.com/eyuksel/reimbursement-api/internal/core/events"
	"github.com/eyuksel/reimbursement-api/internal/expenseform"
)

// mockFormRepository mimics the transactional repository: member expenses
// and forms always move together.
type mockFormRepository struct {
	forms      map[string]*formmodel.ExpenseForm
	expenses   map[string]*expensemodel.Expense
	nextNumber int64

	createError   error
	decisionError error
}

func newMockFormRepository() *mockFormRepository {
	return &mockFormRepository{
		forms:      make(map[string]*formmodel.ExpenseForm),
		expenses:   make(map[string]*expensemodel.Expense),
		nextNumber: 1,
	}
}

func (m *mockFormRepository) addPendingExpense(id, userID, amount string) {
	amt, _ := decimal.NewFromString(amount)
	m.expenses[id] = &expensemodel.Expense{
		ID:     id,
		UserID: userID,
		Amount: amt,
		Status: expensemodel.StatusPending,
		Date:   time.Now().AddDate(0, 0, -1),
	}
}

func (m *mockFormRepository) CreateWithExpenses(form *formmodel.ExpenseForm, expenseIDs []string) error {
	if m.createError != nil {
		return m.createError
	}

	total := decimal.Zero
	var members []expensemodel.Expense
	for _, id := range expenseIDs {
		exp, ok := m.expenses[id]
		if !ok || exp.UserID != form.UserID || exp.Status != expensemodel.StatusPending || exp.ExpenseFormID != nil {
			return internal.NewValidationError("One or more expenses are missing, already submitted or not yours", internal.ErrCodeValidationFailed)
		}
		total = total.Add(exp.Amount)
	}
	for _, id := range expenseIDs {
		exp := m.expenses[id]
		exp.Status = expensemodel.StatusSubmitted
		formID := form.ID
		exp.ExpenseFormID = &formID
		members = append(members, *exp)
	}

	form.FormNumber = m.nextNumber
	m.nextNumber++
	form.TotalAmount = total
	form.Expenses = members
	m.forms[form.ID] = form
	return nil
}

func (m *mockFormRepository) GetByID(id string) (*formmodel.ExpenseForm, error) {
	form, ok := m.forms[id]
	if !ok {
		return nil, internal.ErrFormNotFound
	}
	return form, nil
}

func (m *mockFormRepository) ListByUser(userID string, limit, offset int) ([]*formmodel.ExpenseForm, error) {
	var out []*formmodel.ExpenseForm
	for _, f := range m.forms {
		if f.UserID == userID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *mockFormRepository) ListAll(status string, limit, offset int) ([]*formmodel.ExpenseForm, error) {
	var out []*formmodel.ExpenseForm
	for _, f := range m.forms {
		if status == "" || f.Status == status {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *mockFormRepository) UpdateDecision(formID, formStatus, expenseStatus string, reason *string, processedAt time.Time) error {
	if m.decisionError != nil {
		return m.decisionError
	}
	form, ok := m.forms[formID]
	if !ok {
		return internal.ErrFormNotFound
	}
	form.Status = formStatus
	form.ProcessedAt = &processedAt
	form.RejectionReason = reason
	for _, exp := range m.expenses {
		if exp.ExpenseFormID != nil && *exp.ExpenseFormID == formID {
			exp.Status = expenseStatus
			exp.RejectionReason = reason
		}
	}
	return nil
}

func (m *mockFormRepository) MarkPaid(formID string, processedAt time.Time) error {
	form, ok := m.forms[formID]
	if !ok {
		return internal.ErrFormNotFound
	}
	form.Status = formmodel.StatusPaid
	return nil
}

func (m *mockFormRepository) DeleteAndUnlink(formID string) error {
	for _, exp := range m.expenses {
		if exp.ExpenseFormID != nil && *exp.ExpenseFormID == formID {
			exp.Status = expensemodel.StatusPending
			exp.ExpenseFormID = nil
			exp.RejectionReason = nil
		}
	}
	delete(m.forms, formID)
	return nil
}

type mockUserDirectory struct {
	users       map[string]*usermodel.User
	lastTouched map[string]time.Time
}

func newMockUserDirectory() *mockUserDirectory {
	return &mockUserDirectory{
		users:       make(map[string]*usermodel.User),
		lastTouched: make(map[string]time.Time),
	}
}

func (m *mockUserDirectory) GetByID(id string) (*usermodel.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, internal.ErrUserNotFound
	}
	return u, nil
}

func (m *mockUserDirectory) TouchLastSubmission(id string, at time.Time) error {
	m.lastTouched[id] = at
	return nil
}

var _ = Describe("ExpenseForm Service", func() {
	var (
		repo    *mockFormRepository
		users   *mockUserDirectory
		bus     *events.EventBus
		service *expenseform.Service

		volunteer  internal.Actor
		accountant internal.Actor
	)

	BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		repo = newMockFormRepository()
		users = newMockUserDirectory()
		bus = events.NewEventBus(logger)
		service = expenseform.NewService(repo, users, bus, logger)

		volunteer = internal.Actor{UserID: "user-1", Role: internal.RoleVolunteer, OrganizationID: "org-1"}
		accountant = internal.Actor{UserID: "acc-1", Role: internal.RoleAccountant, OrganizationID: "org-1"}

		users.users["user-1"] = &usermodel.User{ID: "user-1", Name: "Ayşe Gönüllü"}
		repo.addPendingExpense("exp-1", "user-1", "100.00")
		repo.addPendingExpense("exp-2", "user-1", "49.90")
	})

	validDTO := func() expenseform.SubmitFormDTO {
		return expenseform.SubmitFormDTO{
			Title:        "Mart sahası",
			Location:     "Ankara",
			ExpenseIDs:   []string{"exp-1", "exp-2"},
			InfoVerified: true,
		}
	}

	Describe("SubmitForm", func() {
		It("submits pending expenses with a snapshot total and sequential number", func() {
			form, err := service.SubmitForm(volunteer, validDTO())

			Expect(err).NotTo(HaveOccurred())
			Expect(form.FormNumber).To(Equal(int64(1)))
			Expect(form.Status).To(Equal(formmodel.StatusSubmitted))
			Expect(form.TotalAmount.StringFixed(2)).To(Equal("149.90"))
			Expect(repo.expenses["exp-1"].Status).To(Equal(expensemodel.StatusSubmitted))
			Expect(repo.expenses["exp-2"].Status).To(Equal(expensemodel.StatusSubmitted))
		})

		It("records the owner's last submission date", func() {
			_, err := service.SubmitForm(volunteer, validDTO())

			Expect(err).NotTo(HaveOccurred())
			Expect(users.lastTouched).To(HaveKey("user-1"))
		})

		It("rejects an empty form", func() {
			dto := validDTO()
			dto.ExpenseIDs = nil

			_, err := service.SubmitForm(volunteer, dto)
			Expect(err).To(Equal(internal.ErrEmptyForm))
		})

		It("requires the information confirmation checkbox", func() {
			dto := validDTO()
			dto.InfoVerified = false

			_, err := service.SubmitForm(volunteer, dto)
			Expect(err).To(Equal(internal.ErrInfoNotVerified))
		})

		It("requires a title", func() {
			dto := validDTO()
			dto.Title = ""

			_, err := service.SubmitForm(volunteer, dto)
			Expect(err).To(HaveOccurred())
		})

		It("refuses expenses that belong to someone else", func() {
			repo.addPendingExpense("exp-3", "user-2", "10.00")
			dto := validDTO()
			dto.ExpenseIDs = []string{"exp-3"}

			_, err := service.SubmitForm(volunteer, dto)
			Expect(err).To(HaveOccurred())
		})

		It("refuses expenses that are already on another form", func() {
			_, err := service.SubmitForm(volunteer, validDTO())
			Expect(err).NotTo(HaveOccurred())

			dto := validDTO()
			dto.ExpenseIDs = []string{"exp-1"}
			_, err = service.SubmitForm(volunteer, dto)
			Expect(err).To(HaveOccurred())
		})

		It("lets an admin submit on behalf of another user", func() {
			admin := internal.Actor{UserID: "admin-1", Role: internal.RoleAdmin, OrganizationID: "org-1"}
			dto := validDTO()
			dto.UserID = "user-1"

			form, err := service.SubmitForm(admin, dto)

			Expect(err).NotTo(HaveOccurred())
			Expect(form.UserID).To(Equal("user-1"))
			Expect(repo.expenses["exp-1"].Status).To(Equal(expensemodel.StatusSubmitted))
			Expect(users.lastTouched).To(HaveKey("user-1"))
		})

		It("rejects submission on behalf of another user for non-admins", func() {
			dto := validDTO()
			dto.UserID = "user-2"

			_, err := service.SubmitForm(volunteer, dto)
			Expect(err).To(Equal(internal.ErrUnauthorized))
		})

		It("assigns increasing form numbers", func() {
			form1, err := service.SubmitForm(volunteer, validDTO())
			Expect(err).NotTo(HaveOccurred())

			repo.addPendingExpense("exp-4", "user-1", "5.00")
			dto := validDTO()
			dto.ExpenseIDs = []string{"exp-4"}
			form2, err := service.SubmitForm(volunteer, dto)
			Expect(err).NotTo(HaveOccurred())

			Expect(form2.FormNumber).To(Equal(form1.FormNumber + 1))
		})
	})

	Describe("ApproveForm", func() {
		It("approves a submitted form and its expenses", func() {
			form, err := service.SubmitForm(volunteer, validDTO())
			Expect(err).NotTo(HaveOccurred())

			approved, err := service.ApproveForm(accountant, form.ID)

			Expect(err).NotTo(HaveOccurred())
			Expect(approved.Status).To(Equal(formmodel.StatusApproved))
			Expect(approved.ProcessedAt).NotTo(BeNil())
			Expect(repo.expenses["exp-1"].Status).To(Equal(expensemodel.StatusApproved))
		})

		It("is limited to staff", func() {
			form, err := service.SubmitForm(volunteer, validDTO())
			Expect(err).NotTo(HaveOccurred())

			_, err = service.ApproveForm(volunteer, form.ID)
			Expect(err).To(Equal(internal.ErrUnauthorized))
		})

		It("refuses a second decision on the same form", func() {
			form, err := service.SubmitForm(volunteer, validDTO())
			Expect(err).NotTo(HaveOccurred())

			_, err = service.ApproveForm(accountant, form.ID)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.RejectForm(accountant, form.ID, "too late")
			Expect(err).To(Equal(internal.ErrFormAlreadyProcessed))
		})
	})

	Describe("RejectForm", func() {
		It("rejects with a reason propagated to the expenses", func() {
			form, err := service.SubmitForm(volunteer, validDTO())
			Expect(err).NotTo(HaveOccurred())

			rejected, err := service.RejectForm(accountant, form.ID, "Fiş okunamıyor")

			Expect(err).NotTo(HaveOccurred())
			Expect(rejected.Status).To(Equal(formmodel.StatusRejected))
			Expect(*rejected.RejectionReason).To(Equal("Fiş okunamıyor"))
			Expect(repo.expenses["exp-1"].Status).To(Equal(expensemodel.StatusRejected))
			Expect(*repo.expenses["exp-1"].RejectionReason).To(Equal("Fiş okunamıyor"))
		})

		It("requires a reason", func() {
			form, err := service.SubmitForm(volunteer, validDTO())
			Expect(err).NotTo(HaveOccurred())

			_, err = service.RejectForm(accountant, form.ID, "")
			Expect(err).To(Equal(internal.ErrRejectReasonRequired))
		})
	})

	Describe("MarkPaid", func() {
		It("marks an approved form as paid", func() {
			form, err := service.SubmitForm(volunteer, validDTO())
			Expect(err).NotTo(HaveOccurred())
			_, err = service.ApproveForm(accountant, form.ID)
			Expect(err).NotTo(HaveOccurred())

			paid, err := service.MarkPaid(accountant, form.ID)

			Expect(err).NotTo(HaveOccurred())
			Expect(paid.Status).To(Equal(formmodel.StatusPaid))
		})

		It("refuses to pay an undecided form", func() {
			form, err := service.SubmitForm(volunteer, validDTO())
			Expect(err).NotTo(HaveOccurred())

			_, err = service.MarkPaid(accountant, form.ID)
			Expect(err).To(Equal(internal.ErrFormAlreadyProcessed))
		})
	})

	Describe("DeleteForm", func() {
		It("releases expenses back to pending and clears rejection reasons", func() {
			form, err := service.SubmitForm(volunteer, validDTO())
			Expect(err).NotTo(HaveOccurred())
			_, err = service.RejectForm(accountant, form.ID, "eksik fiş")
			Expect(err).NotTo(HaveOccurred())

			Expect(service.DeleteForm(volunteer, form.ID)).To(Succeed())

			Expect(repo.expenses["exp-1"].Status).To(Equal(expensemodel.StatusPending))
			Expect(repo.expenses["exp-1"].ExpenseFormID).To(BeNil())
			Expect(repo.expenses["exp-1"].RejectionReason).To(BeNil())
			_, err = repo.GetByID(form.ID)
			Expect(err).To(HaveOccurred())
		})

		It("refuses to delete an approved form", func() {
			form, err := service.SubmitForm(volunteer, validDTO())
			Expect(err).NotTo(HaveOccurred())
			_, err = service.ApproveForm(accountant, form.ID)
			Expect(err).NotTo(HaveOccurred())

			Expect(service.DeleteForm(volunteer, form.ID)).To(Equal(internal.ErrFormAlreadyProcessed))
		})

		It("refuses deletes by unrelated users", func() {
			form, err := service.SubmitForm(volunteer, validDTO())
			Expect(err).NotTo(HaveOccurred())

			other := internal.Actor{UserID: "user-2", Role: internal.RoleVolunteer}
			Expect(service.DeleteForm(other, form.ID)).To(Equal(internal.ErrUnauthorized))
		})
	})

	Describe("GetForm", func() {
		It("hides other users' forms from non-staff", func() {
			form, err := service.SubmitForm(volunteer, validDTO())
			Expect(err).NotTo(HaveOccurred())

			other := internal.Actor{UserID: "user-2", Role: internal.RoleVolunteer}
			_, err = service.GetForm(other, form.ID)
			Expect(err).To(Equal(internal.ErrUnauthorized))
		})

		It("lets staff read any form", func() {
			form, err := service.SubmitForm(volunteer, validDTO())
			Expect(err).NotTo(HaveOccurred())

			got, err := service.GetForm(accountant, form.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(form.ID))
		})
	})

	Describe("ListAllForms", func() {
		It("is limited to staff roles", func() {
			_, err := service.ListAllForms(volunteer, "", 10, 0)
			Expect(err).To(Equal(internal.ErrUnauthorized))
		})
	})

	Describe("events", func() {
		It("publishes a submission event for subscribers", func() {
			received := make(chan events.FormEventPayload, 1)
			bus.Subscribe(events.EventFormSubmitted, func(ctx context.Context, e events.Event) error {
				received <- events.PayloadFromEvent(e)
				return nil
			})

			form, err := service.SubmitForm(volunteer, validDTO())
			Expect(err).NotTo(HaveOccurred())

			var payload events.FormEventPayload
			Eventually(received).Should(Receive(&payload))
			Expect(payload.FormID).To(Equal(form.ID))
			Expect(payload.OwnerName).To(Equal("Ayşe Gönüllü"))
			Expect(payload.TotalAmount).To(Equal("149.90"))
		})

		It("carries the rejection reason on reject events", func() {
			received := make(chan events.FormEventPayload, 1)
			bus.Subscribe(events.EventFormRejected, func(ctx context.Context, e events.Event) error {
				received <- events.PayloadFromEvent(e)
				return nil
			})

			form, err := service.SubmitForm(volunteer, validDTO())
			Expect(err).NotTo(HaveOccurred())
			_, err = service.RejectForm(accountant, form.ID, "eksik fiş")
			Expect(err).NotTo(HaveOccurred())

			var payload events.FormEventPayload
			Eventually(received).Should(Receive(&payload))
			Expect(payload.RejectionReason).To(Equal("eksik fiş"))
		})
	})
})
