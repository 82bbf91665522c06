package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/eyuksel/reimbursement-api/internal"
	notificationmodel "github.com/eyuksel/reimbursement-api/internal/core/datamodel/notification"
	usermodel "github.com/eyuksel/reimbursement-api/internal/core/datamodel/user"
	"github.com/eyuksel/reimbursement-api/internal/core/events"
)

// Repository defines the data access methods for notifications.
type Repository interface {
	Create(n *notificationmodel.Notification) error
	ListByUser(userID string, limit, offset int) ([]*notificationmodel.Notification, error)
	CountUnread(userID string) (int64, error)
	MarkRead(id, userID string) error
	MarkAllRead(userID string) error
}

// StaffLister resolves the reviewers notified on new submissions.
type StaffLister interface {
	ListStaff() ([]*usermodel.User, error)
}

// Sink receives a copy of selected notifications outside the app, e.g. a
// Slack channel. Failures are logged and dropped.
type Sink interface {
	Send(ctx context.Context, text string) error
}

// Service stores in-app notifications and fans form lifecycle events out
// to users and the external sink.
type Service struct {
	repo   Repository
	staff  StaffLister
	sink   Sink
	logger *slog.Logger
}

func NewService(repo Repository, staff StaffLister, sink Sink, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		staff:  staff,
		sink:   sink,
		logger: logger,
	}
}

// RegisterSubscribers hooks the service into the event bus. Handlers are
// fire-and-forget: a notification failure never fails the form operation.
func (s *Service) RegisterSubscribers(bus *events.EventBus) {
	bus.Subscribe(events.EventFormSubmitted, s.onFormSubmitted)
	bus.Subscribe(events.EventFormApproved, s.onFormApproved)
	bus.Subscribe(events.EventFormRejected, s.onFormRejected)
}

func (s *Service) ListNotifications(actor internal.Actor, limit, offset int) ([]*notificationmodel.Notification, int64, error) {
	notifications, err := s.repo.ListByUser(actor.UserID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	unread, err := s.repo.CountUnread(actor.UserID)
	if err != nil {
		return nil, 0, err
	}
	return notifications, unread, nil
}

func (s *Service) MarkRead(actor internal.Actor, id string) error {
	return s.repo.MarkRead(id, actor.UserID)
}

func (s *Service) MarkAllRead(actor internal.Actor) error {
	return s.repo.MarkAllRead(actor.UserID)
}

// Notify stores a single in-app notification.
func (s *Service) Notify(userID, title, message, severity, link string) error {
	n := &notificationmodel.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		Severity:  severity,
		Link:      link,
		CreatedAt: time.Now(),
	}
	if err := s.repo.Create(n); err != nil {
		s.logger.Error("failed to store notification", "error", err, "user_id", userID)
		return err
	}
	return nil
}

func (s *Service) onFormSubmitted(ctx context.Context, e events.Event) error {
	payload := events.PayloadFromEvent(e)
	link := "/expense-forms/" + payload.FormID

	staff, err := s.staff.ListStaff()
	if err != nil {
		s.logger.Error("failed to list staff for notification", "error", err)
		return err
	}

	title := "Yeni masraf formu"
	message := fmt.Sprintf("%s yeni bir masraf formu gönderdi: %s (%s TRY)",
		payload.OwnerName, payload.Title, payload.TotalAmount)

	for _, reviewer := range staff {
		if reviewer.ID == payload.OwnerUserID {
			continue
		}
		if err := s.Notify(reviewer.ID, title, message, notificationmodel.SeverityInfo, link); err != nil {
			s.logger.Warn("failed to notify reviewer", "error", err, "reviewer_id", reviewer.ID)
		}
	}

	s.sendToSink(ctx, fmt.Sprintf("📋 %s | Form #%d | %s TRY", message, payload.FormNumber, payload.TotalAmount))
	return nil
}

func (s *Service) onFormApproved(ctx context.Context, e events.Event) error {
	payload := events.PayloadFromEvent(e)

	message := fmt.Sprintf("Masraf formunuz onaylandı: %s (%s TRY)", payload.Title, payload.TotalAmount)
	if err := s.Notify(payload.OwnerUserID, "Form onaylandı", message,
		notificationmodel.SeveritySuccess, "/expense-forms/"+payload.FormID); err != nil {
		return err
	}

	s.sendToSink(ctx, fmt.Sprintf("✅ Form #%d onaylandı (%s TRY)", payload.FormNumber, payload.TotalAmount))
	return nil
}

func (s *Service) onFormRejected(ctx context.Context, e events.Event) error {
	payload := events.PayloadFromEvent(e)

	message := fmt.Sprintf("Masraf formunuz reddedildi: %s. Neden: %s", payload.Title, payload.RejectionReason)
	if err := s.Notify(payload.OwnerUserID, "Form reddedildi", message,
		notificationmodel.SeverityError, "/expense-forms/"+payload.FormID); err != nil {
		return err
	}

	s.sendToSink(ctx, fmt.Sprintf("❌ Form #%d reddedildi: %s", payload.FormNumber, payload.RejectionReason))
	return nil
}

func (s *Service) sendToSink(ctx context.Context, text string) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Send(ctx, text); err != nil {
		s.logger.Warn("external notification sink failed", "error", err)
	}
}
