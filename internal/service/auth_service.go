package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"fieldlog/api/internal/apperr"
	"fieldlog/api/internal/config"
	"fieldlog/api/internal/models"
	"fieldlog/api/internal/security"
)

type AuthService struct {
	users UserStore
	cfg   config.SecurityConfig
	log   zerolog.Logger
}

func NewAuthService(users UserStore, cfg config.SecurityConfig, log zerolog.Logger) *AuthService {
	return &AuthService{
		users: users,
		cfg:   cfg,
		log:   log,
	}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

type AuthResult struct {
	User  models.User
	Token string
}

// Register creates an account and issues a bearer token in one step.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (AuthResult, error) {
	user, err := s.CreateUser(ctx, input)
	if err != nil {
		return AuthResult{}, err
	}

	token, err := security.GenerateToken(s.cfg.JWTSecret, user.ID, s.cfg.TokenTTL)
	if err != nil {
		return AuthResult{}, apperr.Internal("issue token", err)
	}

	return AuthResult{User: user, Token: token}, nil
}

// CreateUser validates and persists an account without issuing a token.
// Shared by registration and the admin user-creation endpoint.
func (s *AuthService) CreateUser(ctx context.Context, input RegisterInput) (models.User, error) {
	if strings.TrimSpace(input.Name) == "" ||
		strings.TrimSpace(input.Email) == "" ||
		input.Password == "" {
		return models.User{}, apperr.Validation("name, email, and password are required")
	}

	role, ok := models.ParseRole(input.Role)
	if !ok {
		return models.User{}, apperr.Validation("role must be admin or rep")
	}

	hash, err := security.HashPassword(input.Password, s.cfg.BcryptCost)
	if err != nil {
		return models.User{}, apperr.Internal("hash password", err)
	}

	user, err := s.users.Create(ctx, input.Name, input.Email, hash, role)
	if err != nil {
		return models.User{}, err
	}

	s.log.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("user created")
	return user.Sanitized(), nil
}

// Login verifies credentials and issues a token. A missing account and a
// wrong password produce the same error so neither field is revealed.
func (s *AuthService) Login(ctx context.Context, email string, password string) (AuthResult, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return AuthResult{}, apperr.Validation("email and password are required")
	}

	user, found, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return AuthResult{}, err
	}
	if !found || !security.VerifyPassword(password, user.PasswordHash) {
		return AuthResult{}, apperr.Authentication("invalid email or password")
	}

	token, err := security.GenerateToken(s.cfg.JWTSecret, user.ID, s.cfg.TokenTTL)
	if err != nil {
		return AuthResult{}, apperr.Internal("issue token", err)
	}

	return AuthResult{User: user.Sanitized(), Token: token}, nil
}

// CurrentUser resolves a token's user id. The id failing to resolve means
// the account was deleted after issuance, which invalidates the token.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (models.User, error) {
	user, found, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return models.User{}, err
	}
	if !found {
		return models.User{}, apperr.Authentication("account no longer exists")
	}
	return user.Sanitized(), nil
}
