package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/eyuksel/reimbursement-api/internal/auth"
	"github.com/eyuksel/reimbursement-api/internal/expense"
	"github.com/eyuksel/reimbursement-api/internal/expenseform"
	"github.com/eyuksel/reimbursement-api/internal/notification"
	"github.com/eyuksel/reimbursement-api/internal/organization"
	"github.com/eyuksel/reimbursement-api/internal/policy"
	"github.com/eyuksel/reimbursement-api/internal/transport/middleware"
	"github.com/eyuksel/reimbursement-api/internal/transport/swagger"
	"github.com/eyuksel/reimbursement-api/internal/user"
)

type Handlers struct {
	Auth         *auth.Handler
	User         *user.Handler
	Expense      *expense.Handler
	ExpenseForm  *expenseform.Handler
	Policy       *policy.Handler
	Organization *organization.Handler
	Notification *notification.Handler
	Uploads      http.Handler
}

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, h Handlers, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS)
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	if h.Uploads != nil {
		router.Handle("/uploads/*", h.Uploads)
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/login", h.Auth.Login)
			sr.Post("/refresh", h.Auth.RefreshToken)
			sr.Post("/logout", h.Auth.Logout)
		})

		// Everything below requires a valid access token.
		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			pr.Get("/users/me", h.User.GetCurrentUser)
			pr.Patch("/users/me", h.User.UpdateProfile)

			pr.Route("/expenses", func(er chi.Router) {
				er.Post("/", h.Expense.CreateExpense)
				er.Post("/parse", h.Expense.ParseReceipt)
				er.Post("/bulk", h.Expense.BulkCreateExpenses)
				er.Get("/", h.Expense.ListExpenses)
				er.Get("/export", h.Expense.ExportExpenses)
				er.Get("/{id}", h.Expense.GetExpense)
				er.Patch("/{id}", h.Expense.UpdateExpense)
				er.Delete("/{id}", h.Expense.DeleteExpense)

				er.Group(func(sr chi.Router) {
					sr.Use(h.Auth.RequireStaff)
					sr.Get("/all", h.Expense.ListAllExpenses)
				})
			})

			pr.Route("/expense-forms", func(fr chi.Router) {
				fr.Post("/", h.ExpenseForm.SubmitForm)
				fr.Get("/", h.ExpenseForm.ListForms)
				fr.Get("/{id}", h.ExpenseForm.GetForm)
				fr.Get("/{id}/pdf", h.ExpenseForm.DownloadPDF)
				fr.Delete("/{id}", h.ExpenseForm.DeleteForm)

				// Review decisions are limited to staff roles.
				fr.Group(func(sr chi.Router) {
					sr.Use(h.Auth.RequireStaff)
					sr.Get("/all", h.ExpenseForm.ListAllForms)
					sr.Patch("/{id}/approve", h.ExpenseForm.ApproveForm)
					sr.Patch("/{id}/reject", h.ExpenseForm.RejectForm)
					sr.Patch("/{id}/paid", h.ExpenseForm.MarkPaid)
				})
			})

			pr.Route("/policies", func(plr chi.Router) {
				plr.Get("/", h.Policy.ListPolicies)

				plr.Group(func(ar chi.Router) {
					ar.Use(h.Auth.RequireAdmin)
					ar.Post("/", h.Policy.CreatePolicy)
					ar.Patch("/{id}", h.Policy.UpdatePolicy)
					ar.Delete("/{id}", h.Policy.DeletePolicy)
				})
			})

			pr.Route("/notifications", func(nr chi.Router) {
				nr.Get("/", h.Notification.ListNotifications)
				nr.Patch("/{id}/read", h.Notification.MarkRead)
				nr.Post("/read-all", h.Notification.MarkAllRead)
			})

			// Admin surface: accounts and the organization hierarchy.
			pr.Group(func(ar chi.Router) {
				ar.Use(h.Auth.RequireAdmin)

				ar.Route("/users", func(ur chi.Router) {
					ur.Post("/", h.User.CreateUser)
					ur.Get("/", h.User.ListUsers)
					ur.Patch("/{id}", h.User.UpdateUser)
				})

				ar.Route("/organizations", func(or chi.Router) {
					or.Post("/", h.Organization.CreateOrganization)
					or.Get("/", h.Organization.ListOrganizations)
					or.Patch("/{id}", h.Organization.UpdateOrganization)
					or.Delete("/{id}", h.Organization.DeleteOrganization)
				})

				ar.Route("/projects", func(prj chi.Router) {
					prj.Post("/", h.Organization.CreateProject)
					prj.Get("/", h.Organization.ListProjects)
					prj.Delete("/{id}", h.Organization.DeleteProject)
				})

				ar.Route("/periods", func(per chi.Router) {
					per.Post("/", h.Organization.CreatePeriod)
					per.Get("/", h.Organization.ListPeriods)
					per.Patch("/{id}", h.Organization.UpdatePeriod)
					per.Delete("/{id}", h.Organization.DeletePeriod)
				})
			})
		})
	})
}
