package expenseform

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/eyuksel/reimbursement-api/internal"
	"github.com/eyuksel/reimbursement-api/internal/core/datamodel/expenseform"
	usermodel "github.com/eyuksel/reimbursement-api/internal/core/datamodel/user"
	"github.com/eyuksel/reimbursement-api/internal/core/events"
)

// Repository defines the data access methods for expense forms. The
// mutating methods are transactional: the form and its expenses always
// change together.
type Repository interface {
	CreateWithExpenses(form *expenseform.ExpenseForm, expenseIDs []string) error
	GetByID(id string) (*expenseform.ExpenseForm, error)
	ListByUser(userID string, limit, offset int) ([]*expenseform.ExpenseForm, error)
	ListAll(status string, limit, offset int) ([]*expenseform.ExpenseForm, error)
	UpdateDecision(formID, formStatus, expenseStatus string, reason *string, processedAt time.Time) error
	MarkPaid(formID string, processedAt time.Time) error
	DeleteAndUnlink(formID string) error
}

// UserDirectory resolves form owners and records submission activity.
type UserDirectory interface {
	GetByID(id string) (*usermodel.User, error)
	TouchLastSubmission(id string, at time.Time) error
}

// Service drives the expense form lifecycle.
type Service struct {
	repo   Repository
	users  UserDirectory
	bus    *events.EventBus
	logger *slog.Logger
}

func NewService(repo Repository, users UserDirectory, bus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		users:  users,
		bus:    bus,
		logger: logger,
	}
}

// SubmitForm bundles pending expenses into a new form and submits it in a
// single transaction. Admins may submit on behalf of another user; the
// expenses must belong to the form owner either way.
func (s *Service) SubmitForm(actor internal.Actor, dto SubmitFormDTO) (*expenseform.ExpenseForm, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if len(dto.ExpenseIDs) == 0 {
		return nil, internal.ErrEmptyForm
	}
	if !dto.InfoVerified {
		return nil, internal.ErrInfoNotVerified
	}

	ownerUserID := dto.UserID
	if ownerUserID == "" {
		ownerUserID = actor.UserID
	}
	if ownerUserID != actor.UserID && !actor.Role.IsAdmin() {
		s.logger.Warn("submit on behalf denied", "actor_id", actor.UserID, "owner_id", ownerUserID)
		return nil, internal.ErrUnauthorized
	}

	now := time.Now()
	form := &expenseform.ExpenseForm{
		ID:                uuid.NewString(),
		UserID:            ownerUserID,
		Title:             dto.Title,
		Location:          dto.Location,
		ReceiptsDelivered: dto.ReceiptsDelivered,
		InfoVerified:      dto.InfoVerified,
		Status:            expenseform.StatusSubmitted,
		SubmittedAt:       now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.repo.CreateWithExpenses(form, dto.ExpenseIDs); err != nil {
		s.logger.Error("form submission failed", "error", err, "user_id", ownerUserID)
		return nil, err
	}

	if err := s.users.TouchLastSubmission(ownerUserID, now); err != nil {
		s.logger.Warn("failed to record last submission date", "error", err, "user_id", ownerUserID)
	}

	s.logger.Info("expense form submitted",
		"form_id", form.ID,
		"form_number", form.FormNumber,
		"user_id", ownerUserID,
		"total", form.TotalAmount.StringFixed(2),
		"expenses", len(dto.ExpenseIDs))

	s.publishFormEvent(events.NewFormSubmittedEvent, form, "")
	return form, nil
}

func (s *Service) GetForm(actor internal.Actor, id string) (*expenseform.ExpenseForm, error) {
	form, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if form.UserID != actor.UserID && !actor.Role.IsStaff() {
		s.logger.Warn("unauthorized form access", "form_id", id, "actor_id", actor.UserID)
		return nil, internal.ErrUnauthorized
	}
	return form, nil
}

func (s *Service) ListForms(actor internal.Actor, limit, offset int) ([]*expenseform.ExpenseForm, error) {
	return s.repo.ListByUser(actor.UserID, limit, offset)
}

// ListAllForms returns every user's forms. Staff only.
func (s *Service) ListAllForms(actor internal.Actor, status string, limit, offset int) ([]*expenseform.ExpenseForm, error) {
	if !actor.Role.IsStaff() {
		return nil, internal.ErrUnauthorized
	}
	return s.repo.ListAll(status, limit, offset)
}

// ApproveForm moves a submitted form and all its expenses to APPROVED.
func (s *Service) ApproveForm(actor internal.Actor, id string) (*expenseform.ExpenseForm, error) {
	if !actor.Role.IsStaff() {
		return nil, internal.ErrUnauthorized
	}

	form, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if !form.CanBeDecided() {
		s.logger.Warn("approve rejected for processed form", "form_id", id, "status", form.Status)
		return nil, internal.ErrFormAlreadyProcessed
	}

	now := time.Now()
	if err := s.repo.UpdateDecision(id, expenseform.StatusApproved, expenseform.StatusApproved, nil, now); err != nil {
		s.logger.Error("failed to approve form", "error", err, "form_id", id)
		return nil, err
	}

	form, err = s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	s.logger.Info("expense form approved", "form_id", id, "decided_by", actor.UserID)
	s.publishFormEvent(events.NewFormApprovedEvent, form, "")
	return form, nil
}

// RejectForm moves a submitted form and its expenses to REJECTED with the
// given reason.
func (s *Service) RejectForm(actor internal.Actor, id, reason string) (*expenseform.ExpenseForm, error) {
	if !actor.Role.IsStaff() {
		return nil, internal.ErrUnauthorized
	}
	if reason == "" {
		return nil, internal.ErrRejectReasonRequired
	}

	form, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if !form.CanBeDecided() {
		s.logger.Warn("reject rejected for processed form", "form_id", id, "status", form.Status)
		return nil, internal.ErrFormAlreadyProcessed
	}

	now := time.Now()
	if err := s.repo.UpdateDecision(id, expenseform.StatusRejected, expenseform.StatusRejected, &reason, now); err != nil {
		s.logger.Error("failed to reject form", "error", err, "form_id", id)
		return nil, err
	}

	form, err = s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	s.logger.Info("expense form rejected", "form_id", id, "decided_by", actor.UserID, "reason", reason)
	s.publishFormEvent(events.NewFormRejectedEvent, form, reason)
	return form, nil
}

// MarkPaid records the payout of an approved form.
func (s *Service) MarkPaid(actor internal.Actor, id string) (*expenseform.ExpenseForm, error) {
	if !actor.Role.IsStaff() {
		return nil, internal.ErrUnauthorized
	}

	form, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if !form.CanBeMarkedPaid() {
		s.logger.Warn("mark paid rejected", "form_id", id, "status", form.Status)
		return nil, internal.ErrFormAlreadyProcessed
	}

	if err := s.repo.MarkPaid(id, time.Now()); err != nil {
		s.logger.Error("failed to mark form paid", "error", err, "form_id", id)
		return nil, err
	}

	form.Status = expenseform.StatusPaid
	s.logger.Info("expense form marked paid", "form_id", id, "by", actor.UserID)
	return form, nil
}

// DeleteForm removes an unapproved form and releases its expenses back to
// the pending pool with any rejection reason cleared.
func (s *Service) DeleteForm(actor internal.Actor, id string) error {
	form, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if form.UserID != actor.UserID && !actor.Role.IsAdmin() {
		return internal.ErrUnauthorized
	}
	if !form.CanBeDeleted() {
		s.logger.Warn("delete rejected for approved form", "form_id", id, "status", form.Status)
		return internal.ErrFormAlreadyProcessed
	}

	if err := s.repo.DeleteAndUnlink(id); err != nil {
		s.logger.Error("failed to delete form", "error", err, "form_id", id)
		return err
	}

	s.logger.Info("expense form deleted, expenses released", "form_id", id, "by", actor.UserID)
	return nil
}

// FormOwner resolves the owner of a form for rendering.
func (s *Service) FormOwner(form *expenseform.ExpenseForm) (*usermodel.User, error) {
	return s.users.GetByID(form.UserID)
}

func (s *Service) publishFormEvent(build func(events.FormEventPayload) events.BaseEvent, form *expenseform.ExpenseForm, reason string) {
	ownerName := ""
	if owner, err := s.users.GetByID(form.UserID); err == nil {
		ownerName = owner.Name
	}

	event := build(events.FormEventPayload{
		FormID:          form.ID,
		FormNumber:      form.FormNumber,
		Title:           form.Title,
		OwnerUserID:     form.UserID,
		OwnerName:       ownerName,
		TotalAmount:     form.TotalAmount.StringFixed(2),
		RejectionReason: reason,
	})

	// Notification fan-out must never fail the submission itself.
	if err := s.bus.Publish(context.Background(), event); err != nil {
		s.logger.Error("failed to publish form event", "error", err, "event_type", event.EventType())
	}
}
