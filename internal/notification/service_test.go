package notification_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/eyuksel/reimbursement-api/internal"
	notificationmodel "github.com/eyuksel/reimbursement-api/internal/core/datamodel/notification"
	usermodel "github.com/eyuksel/reimbursement-api/internal/core/datamodel/user"
	"github.com/eyuksel/reimbursement-api/internal/core/events"
	"github.com/eyuksel/reimbursement-api/internal/notification"
)

type mockNotificationRepository struct {
	mu            sync.Mutex
	notifications []*notificationmodel.Notification
}

func (m *mockNotificationRepository) Create(n *notificationmodel.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, n)
	return nil
}

func (m *mockNotificationRepository) ListByUser(userID string, limit, offset int) ([]*notificationmodel.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*notificationmodel.Notification
	for _, n := range m.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *mockNotificationRepository) CountUnread(userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, n := range m.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (m *mockNotificationRepository) MarkRead(id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.notifications {
		if n.ID == id && n.UserID == userID {
			n.IsRead = true
		}
	}
	return nil
}

func (m *mockNotificationRepository) MarkAllRead(userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.notifications {
		if n.UserID == userID {
			n.IsRead = true
		}
	}
	return nil
}

func (m *mockNotificationRepository) forUser(userID string) []*notificationmodel.Notification {
	out, _ := m.ListByUser(userID, 0, 0)
	return out
}

type mockStaffLister struct {
	staff []*usermodel.User
	err   error
}

func (m *mockStaffLister) ListStaff() ([]*usermodel.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.staff, nil
}

type recordingSink struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (s *recordingSink) Send(ctx context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.messages = append(s.messages, text)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

var _ = Describe("Notification Service", func() {
	var (
		repo    *mockNotificationRepository
		staff   *mockStaffLister
		sink    *recordingSink
		bus     *events.EventBus
		service *notification.Service
	)

	BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		repo = &mockNotificationRepository{}
		staff = &mockStaffLister{staff: []*usermodel.User{
			{ID: "admin-1", Role: string(internal.RoleAdmin)},
			{ID: "acc-1", Role: string(internal.RoleAccountant)},
		}}
		sink = &recordingSink{}
		bus = events.NewEventBus(logger)

		service = notification.NewService(repo, staff, sink, logger)
		service.RegisterSubscribers(bus)
	})

	submittedEvent := func(ownerID string) events.BaseEvent {
		return events.NewFormSubmittedEvent(events.FormEventPayload{
			FormID:      "form-1",
			FormNumber:  7,
			Title:       "Mart sahası",
			OwnerUserID: ownerID,
			OwnerName:   "Ayşe Gönüllü",
			TotalAmount: "149.90",
		})
	}

	Describe("form submitted", func() {
		It("notifies every reviewer except the submitter", func() {
			Expect(bus.Publish(context.Background(), submittedEvent("user-1"))).To(Succeed())

			Eventually(func() int {
				return len(repo.forUser("admin-1")) + len(repo.forUser("acc-1"))
			}).Should(Equal(2))
			Expect(repo.forUser("user-1")).To(BeEmpty())
			Expect(repo.forUser("admin-1")[0].Link).To(Equal("/expense-forms/form-1"))
		})

		It("skips the submitter when a reviewer submits their own form", func() {
			Expect(bus.Publish(context.Background(), submittedEvent("acc-1"))).To(Succeed())

			Eventually(func() []*notificationmodel.Notification {
				return repo.forUser("admin-1")
			}).Should(HaveLen(1))
			Consistently(func() []*notificationmodel.Notification {
				return repo.forUser("acc-1")
			}).Should(BeEmpty())
		})

		It("mirrors the notification to the external sink", func() {
			Expect(bus.Publish(context.Background(), submittedEvent("user-1"))).To(Succeed())

			Eventually(sink.count).Should(Equal(1))
		})
	})

	Describe("form decided", func() {
		It("notifies the owner on approval", func() {
			event := events.NewFormApprovedEvent(events.FormEventPayload{
				FormID: "form-1", FormNumber: 7, Title: "Mart sahası",
				OwnerUserID: "user-1", TotalAmount: "149.90",
			})
			Expect(bus.Publish(context.Background(), event)).To(Succeed())

			Eventually(func() []*notificationmodel.Notification {
				return repo.forUser("user-1")
			}).Should(HaveLen(1))
			Expect(repo.forUser("user-1")[0].Severity).To(Equal(notificationmodel.SeveritySuccess))
		})

		It("carries the reason into the rejection notification", func() {
			event := events.NewFormRejectedEvent(events.FormEventPayload{
				FormID: "form-1", FormNumber: 7, Title: "Mart sahası",
				OwnerUserID: "user-1", RejectionReason: "Fiş okunamıyor",
			})
			Expect(bus.Publish(context.Background(), event)).To(Succeed())

			Eventually(func() []*notificationmodel.Notification {
				return repo.forUser("user-1")
			}).Should(HaveLen(1))
			n := repo.forUser("user-1")[0]
			Expect(n.Severity).To(Equal(notificationmodel.SeverityError))
			Expect(n.Message).To(ContainSubstring("Fiş okunamıyor"))
		})
	})

	Describe("sink failures", func() {
		It("still stores in-app notifications when the sink errors", func() {
			sink.err = errors.New("webhook down")

			Expect(bus.Publish(context.Background(), submittedEvent("user-1"))).To(Succeed())

			Eventually(func() []*notificationmodel.Notification {
				return repo.forUser("admin-1")
			}).Should(HaveLen(1))
		})
	})

	Describe("nil sink", func() {
		It("works without an external channel", func() {
			quiet := notification.NewService(repo, staff, nil, slog.New(slog.NewTextHandler(os.Stderr, nil)))
			quietBus := events.NewEventBus(slog.New(slog.NewTextHandler(os.Stderr, nil)))
			quiet.RegisterSubscribers(quietBus)

			Expect(quietBus.Publish(context.Background(), submittedEvent("user-1"))).To(Succeed())
			Eventually(func() []*notificationmodel.Notification {
				return repo.forUser("admin-1")
			}).Should(HaveLen(1))
		})
	})

	Describe("reading", func() {
		actor := internal.Actor{UserID: "user-1", Role: internal.RoleVolunteer}

		It("lists with an unread count and marks read owner-scoped", func() {
			Expect(service.Notify("user-1", "t", "m", notificationmodel.SeverityInfo, "")).To(Succeed())
			Expect(service.Notify("user-2", "t", "m", notificationmodel.SeverityInfo, "")).To(Succeed())

			list, unread, err := service.ListNotifications(actor, 20, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(HaveLen(1))
			Expect(unread).To(Equal(int64(1)))

			Expect(service.MarkRead(actor, list[0].ID)).To(Succeed())
			_, unread, err = service.ListNotifications(actor, 20, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(unread).To(BeZero())
		})

		It("marks everything read at once", func() {
			Expect(service.Notify("user-1", "a", "m", notificationmodel.SeverityInfo, "")).To(Succeed())
			Expect(service.Notify("user-1", "b", "m", notificationmodel.SeverityInfo, "")).To(Succeed())

			Expect(service.MarkAllRead(actor)).To(Succeed())
			_, unread, err := service.ListNotifications(actor, 20, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(unread).To(BeZero())
		})
	})
})
