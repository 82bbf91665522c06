package user

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/eyuksel/reimbursement-api/internal"
	usermodel "github.com/eyuksel/reimbursement-api/internal/core/datamodel/user"
)

// Repository defines the data access methods for user accounts.
type Repository interface {
	Create(u *usermodel.User) error
	GetByID(id string) (*usermodel.User, error)
	GetByEmail(email string) (*usermodel.User, error)
	List(limit, offset int) ([]*usermodel.User, error)
	ListByRole(roles []string) ([]*usermodel.User, error)
	Update(u *usermodel.User) error
	TouchLastSubmission(id string, at time.Time) error
}

// PasswordHasher hashes new account passwords.
type PasswordHasher interface {
	HashPassword(password string) (string, error)
}

// Service manages profiles, bank details and admin account operations.
type Service struct {
	repo   Repository
	hasher PasswordHasher
	logger *slog.Logger
}

func NewService(repo Repository, hasher PasswordHasher, logger *slog.Logger) *Service {
	return &Service{repo: repo, hasher: hasher, logger: logger}
}

func (s *Service) GetByID(id string) (*usermodel.User, error) {
	return s.repo.GetByID(id)
}

func (s *Service) TouchLastSubmission(id string, at time.Time) error {
	return s.repo.TouchLastSubmission(id, at)
}

// ListStaff returns all accounts that review forms. Used for notification
// fan-out on submission.
func (s *Service) ListStaff() ([]*usermodel.User, error) {
	return s.repo.ListByRole([]string{
		string(internal.RoleAdmin),
		string(internal.RoleAccountant),
		string(internal.RoleCoordinator),
	})
}

// UpdateProfile lets a user edit their own name, phone and bank details.
func (s *Service) UpdateProfile(actor internal.Actor, dto UpdateProfileDTO) (*usermodel.User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	u, err := s.repo.GetByID(actor.UserID)
	if err != nil {
		return nil, err
	}

	if dto.Name != nil {
		u.Name = *dto.Name
	}
	if dto.Phone != nil {
		u.Phone = *dto.Phone
	}
	if dto.IBAN != nil {
		u.IBAN = *dto.IBAN
	}
	if dto.BankName != nil {
		u.BankName = *dto.BankName
	}
	if dto.BankBranch != nil {
		u.BankBranch = *dto.BankBranch
	}
	if dto.AccountHolder != nil {
		u.AccountHolder = *dto.AccountHolder
	}
	u.UpdatedAt = time.Now()

	if err := s.repo.Update(u); err != nil {
		s.logger.Error("failed to update profile", "error", err, "user_id", actor.UserID)
		return nil, err
	}

	s.logger.Info("profile updated", "user_id", actor.UserID)
	return u, nil
}

// CreateUser registers an account. Admin only.
func (s *Service) CreateUser(actor internal.Actor, dto CreateUserDTO) (*usermodel.User, error) {
	if !actor.Role.IsAdmin() {
		return nil, internal.ErrUnauthorized
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if existing, err := s.repo.GetByEmail(dto.Email); err == nil && existing != nil {
		return nil, internal.ErrEmailTaken
	}

	hash, err := s.hasher.HashPassword(dto.Password)
	if err != nil {
		s.logger.Error("failed to hash password", "error", err)
		return nil, internal.NewInternalError("Failed to create user", err)
	}

	role := dto.Role
	if role == "" {
		role = string(internal.RoleVolunteer)
	}
	if !internal.Role(role).Valid() {
		return nil, internal.NewValidationError("Unknown role", internal.ErrCodeValidationFailed)
	}

	u := &usermodel.User{
		ID:             uuid.NewString(),
		Name:           dto.Name,
		Email:          dto.Email,
		PasswordHash:   hash,
		Role:           role,
		OrganizationID: dto.OrganizationID,
		IsActive:       true,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}

	if err := s.repo.Create(u); err != nil {
		s.logger.Error("failed to create user", "error", err, "email", dto.Email)
		return nil, err
	}

	s.logger.Info("user created", "user_id", u.ID, "role", u.Role, "created_by", actor.UserID)
	return u, nil
}

// ListUsers returns accounts for the admin screen. Staff only.
func (s *Service) ListUsers(actor internal.Actor, limit, offset int) ([]*usermodel.User, error) {
	if !actor.Role.IsStaff() {
		return nil, internal.ErrUnauthorized
	}
	return s.repo.List(limit, offset)
}

// UpdateUser changes role, organization or active flag. Admin only.
func (s *Service) UpdateUser(actor internal.Actor, id string, dto UpdateUserDTO) (*usermodel.User, error) {
	if !actor.Role.IsAdmin() {
		return nil, internal.ErrUnauthorized
	}

	u, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	if dto.Role != nil {
		if !internal.Role(*dto.Role).Valid() {
			return nil, internal.NewValidationError("Unknown role", internal.ErrCodeValidationFailed)
		}
		u.Role = *dto.Role
	}
	if dto.OrganizationID != nil {
		u.OrganizationID = dto.OrganizationID
	}
	if dto.IsActive != nil {
		// Deactivation locks the account out at the next token check.
		u.IsActive = *dto.IsActive
	}
	if dto.Name != nil {
		u.Name = *dto.Name
	}
	u.UpdatedAt = time.Now()

	if err := s.repo.Update(u); err != nil {
		s.logger.Error("failed to update user", "error", err, "user_id", id)
		return nil, err
	}

	s.logger.Info("user updated", "user_id", id, "updated_by", actor.UserID)
	return u, nil
}
