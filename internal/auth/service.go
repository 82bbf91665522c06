package auth

import (
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/eyuksel/reimbursement-api/internal"
	usermodel "github.com/eyuksel/reimbursement-api/internal/core/datamodel/user"
)

// UserRepository resolves accounts for authentication.
type UserRepository interface {
	GetByEmail(email string) (*usermodel.User, error)
	GetByID(id string) (*usermodel.User, error)
}

// Service authenticates users and issues tokens.
type Service struct {
	userRepo       UserRepository
	tokenGenerator TokenGenerator
	bcryptCost     int
	logger         *slog.Logger
}

func NewService(userRepo UserRepository, tokenGen TokenGenerator, bcryptCost int, logger *slog.Logger) *Service {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		userRepo:       userRepo,
		tokenGenerator: tokenGen,
		bcryptCost:     bcryptCost,
		logger:         logger,
	}
}

// Authenticate validates credentials and returns a token pair.
func (s *Service) Authenticate(dto LoginDTO) (AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		return AuthTokens{}, err
	}

	u, err := s.userRepo.GetByEmail(dto.Email)
	if err != nil {
		s.logger.Warn("login failed: unknown email", "email", dto.Email)
		return AuthTokens{}, internal.ErrInvalidCredentials
	}
	if !u.IsActive {
		s.logger.Warn("login rejected for inactive user", "user_id", u.ID)
		return AuthTokens{}, internal.ErrUserInactive
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(dto.Password)); err != nil {
		s.logger.Warn("login failed: bad password", "user_id", u.ID)
		return AuthTokens{}, internal.ErrInvalidCredentials
	}

	tokens, err := s.issueTokens(u)
	if err != nil {
		return AuthTokens{}, err
	}

	s.logger.Info("user authenticated", "user_id", u.ID, "role", u.Role)
	return tokens, nil
}

// RefreshTokens rotates a refresh token into a fresh pair. The user is
// reloaded so role or status changes take effect.
func (s *Service) RefreshTokens(refreshToken string) (AuthTokens, error) {
	claims, err := s.tokenGenerator.ValidateRefreshToken(refreshToken)
	if err != nil {
		return AuthTokens{}, err
	}

	u, err := s.userRepo.GetByID(claims.UserID)
	if err != nil {
		return AuthTokens{}, internal.ErrInvalidToken
	}
	if !u.IsActive {
		return AuthTokens{}, internal.ErrUserInactive
	}

	return s.issueTokens(u)
}

func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.tokenGenerator.ValidateAccessToken(tokenString)
}

// ResolveActor loads the current account state behind a set of claims.
func (s *Service) ResolveActor(claims *Claims) (internal.Actor, error) {
	u, err := s.userRepo.GetByID(claims.UserID)
	if err != nil {
		return internal.Actor{}, internal.ErrInvalidToken
	}
	if !u.IsActive {
		return internal.Actor{}, internal.ErrUserInactive
	}

	orgID := ""
	if u.OrganizationID != nil {
		orgID = *u.OrganizationID
	}
	return internal.Actor{
		UserID:         u.ID,
		Role:           internal.Role(u.Role),
		OrganizationID: orgID,
	}, nil
}

func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (s *Service) issueTokens(u *usermodel.User) (AuthTokens, error) {
	orgID := ""
	if u.OrganizationID != nil {
		orgID = *u.OrganizationID
	}
	claims := Claims{
		UserID:         u.ID,
		Email:          u.Email,
		Role:           u.Role,
		OrganizationID: orgID,
	}

	accessToken, err := s.tokenGenerator.GenerateAccessToken(claims)
	if err != nil {
		return AuthTokens{}, err
	}
	refreshToken, err := s.tokenGenerator.GenerateRefreshToken(claims)
	if err != nil {
		return AuthTokens{}, err
	}

	return AuthTokens{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}
