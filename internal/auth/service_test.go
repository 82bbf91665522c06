package auth_test

import (
	"log/slog"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	"github.com/eyuksel/reimbursement-api/internal"
	"github.com/eyuksel/reimbursement-api/internal/auth"
	usermodel "github.com/eyuksel/reimbursement-api/internal/core/datamodel/user"
)

type mockUserRepository struct {
	usersByEmail map[string]*usermodel.User
	usersByID    map[string]*usermodel.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		usersByEmail: make(map[string]*usermodel.User),
		usersByID:    make(map[string]*usermodel.User),
	}
}

func (m *mockUserRepository) add(u *usermodel.User) {
	m.usersByEmail[u.Email] = u
	m.usersByID[u.ID] = u
}

func (m *mockUserRepository) GetByEmail(email string) (*usermodel.User, error) {
	u, ok := m.usersByEmail[email]
	if !ok {
		return nil, internal.ErrUserNotFound
	}
	return u, nil
}

func (m *mockUserRepository) GetByID(id string) (*usermodel.User, error) {
	u, ok := m.usersByID[id]
	if !ok {
		return nil, internal.ErrUserNotFound
	}
	return u, nil
}

var _ = Describe("Auth Service", func() {
	var (
		repo    *mockUserRepository
		service *auth.Service
	)

	const password = "correct-horse-battery"

	BeforeEach(func() {
		repo = newMockUserRepository()
		tokenGen := auth.NewJWTTokenGenerator(
			"test-access-secret-0123456789abcdef",
			"test-refresh-secret-0123456789abcdef",
			15*time.Minute,
			24*time.Hour,
		)
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		service = auth.NewService(repo, tokenGen, bcrypt.MinCost, logger)

		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		Expect(err).NotTo(HaveOccurred())
		orgID := "org-1"
		repo.add(&usermodel.User{
			ID:             "user-1",
			Email:          "volunteer@example.org",
			PasswordHash:   string(hash),
			Role:           string(internal.RoleVolunteer),
			OrganizationID: &orgID,
			IsActive:       true,
		})
	})

	Describe("Authenticate", func() {
		It("returns a token pair for valid credentials", func() {
			tokens, err := service.Authenticate(auth.LoginDTO{Email: "volunteer@example.org", Password: password})

			Expect(err).NotTo(HaveOccurred())
			Expect(tokens.AccessToken).NotTo(BeEmpty())
			Expect(tokens.RefreshToken).NotTo(BeEmpty())

			claims, err := service.ValidateAccessToken(tokens.AccessToken)
			Expect(err).NotTo(HaveOccurred())
			Expect(claims.UserID).To(Equal("user-1"))
			Expect(claims.OrganizationID).To(Equal("org-1"))
		})

		It("rejects a wrong password", func() {
			_, err := service.Authenticate(auth.LoginDTO{Email: "volunteer@example.org", Password: "nope"})
			Expect(err).To(Equal(internal.ErrInvalidCredentials))
		})

		It("rejects an unknown email with the same error as a bad password", func() {
			_, err := service.Authenticate(auth.LoginDTO{Email: "ghost@example.org", Password: password})
			Expect(err).To(Equal(internal.ErrInvalidCredentials))
		})

		It("rejects deactivated accounts", func() {
			repo.usersByEmail["volunteer@example.org"].IsActive = false

			_, err := service.Authenticate(auth.LoginDTO{Email: "volunteer@example.org", Password: password})
			Expect(err).To(Equal(internal.ErrUserInactive))
		})

		It("rejects missing credentials", func() {
			_, err := service.Authenticate(auth.LoginDTO{})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("RefreshTokens", func() {
		It("rotates a refresh token into a new pair", func() {
			tokens, err := service.Authenticate(auth.LoginDTO{Email: "volunteer@example.org", Password: password})
			Expect(err).NotTo(HaveOccurred())

			rotated, err := service.RefreshTokens(tokens.RefreshToken)
			Expect(err).NotTo(HaveOccurred())
			Expect(rotated.AccessToken).NotTo(BeEmpty())
		})

		It("rejects an access token used as a refresh token", func() {
			tokens, err := service.Authenticate(auth.LoginDTO{Email: "volunteer@example.org", Password: password})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.RefreshTokens(tokens.AccessToken)
			Expect(err).To(HaveOccurred())
		})

		It("rejects refresh for accounts deactivated in the meantime", func() {
			tokens, err := service.Authenticate(auth.LoginDTO{Email: "volunteer@example.org", Password: password})
			Expect(err).NotTo(HaveOccurred())

			repo.usersByID["user-1"].IsActive = false
			_, err = service.RefreshTokens(tokens.RefreshToken)
			Expect(err).To(Equal(internal.ErrUserInactive))
		})

		It("rejects garbage tokens", func() {
			_, err := service.RefreshTokens("not.a.jwt")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("ResolveActor", func() {
		It("loads the current account state behind the claims", func() {
			tokens, err := service.Authenticate(auth.LoginDTO{Email: "volunteer@example.org", Password: password})
			Expect(err).NotTo(HaveOccurred())
			claims, err := service.ValidateAccessToken(tokens.AccessToken)
			Expect(err).NotTo(HaveOccurred())

			// Role changes after issuance take effect immediately.
			repo.usersByID["user-1"].Role = string(internal.RoleAccountant)

			actor, err := service.ResolveActor(claims)
			Expect(err).NotTo(HaveOccurred())
			Expect(actor.Role).To(Equal(internal.RoleAccountant))
			Expect(actor.OrganizationID).To(Equal("org-1"))
		})

		It("fails for deactivated accounts", func() {
			tokens, err := service.Authenticate(auth.LoginDTO{Email: "volunteer@example.org", Password: password})
			Expect(err).NotTo(HaveOccurred())
			claims, err := service.ValidateAccessToken(tokens.AccessToken)
			Expect(err).NotTo(HaveOccurred())

			repo.usersByID["user-1"].IsActive = false
			_, err = service.ResolveActor(claims)
			Expect(err).To(Equal(internal.ErrUserInactive))
		})
	})

	Describe("JWTTokenGenerator", func() {
		It("rejects expired access tokens", func() {
			expiredGen := auth.NewJWTTokenGenerator(
				"test-access-secret-0123456789abcdef",
				"test-refresh-secret-0123456789abcdef",
				-time.Minute,
				24*time.Hour,
			)
			token, err := expiredGen.GenerateAccessToken(auth.Claims{UserID: "user-1"})
			Expect(err).NotTo(HaveOccurred())

			_, err = expiredGen.ValidateAccessToken(token)
			Expect(err).To(Equal(internal.ErrTokenExpired))
		})

		It("rejects tokens signed with a different secret", func() {
			otherGen := auth.NewJWTTokenGenerator(
				"other-access-secret-0123456789abcdef",
				"other-refresh-secret-0123456789abcdef",
				15*time.Minute,
				24*time.Hour,
			)
			token, err := otherGen.GenerateAccessToken(auth.Claims{UserID: "user-1"})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.ValidateAccessToken(token)
			Expect(err).To(HaveOccurred())
		})
	})
})
