package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cadenza/internal/catalog"
	"cadenza/internal/config"
	"cadenza/pkg/models"

	"github.com/sirupsen/logrus"
)

var (
	// ErrUnauthorized is returned for a missing, malformed or expired token,
	// or a token whose user no longer exists.
	ErrUnauthorized = errors.New("not authorized")
	// ErrInvalidCredentials is returned by Login for an unknown user or a
	// wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserExists is returned by Register when the email or username is taken.
	ErrUserExists = errors.New("user already exists")
	// ErrPasswordMismatch is returned by Register when the confirmation differs.
	ErrPasswordMismatch = errors.New("passwords do not match")
)

// UserStore is the part of the catalog store the auth service needs
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserByLogin(ctx context.Context, email, username string) (*models.User, error)
}

// RegisterInput carries the registration form
type RegisterInput struct {
	Email           string `json:"email"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// LoginInput carries the login form. Either Email or Username identifies the user.
type LoginInput struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Service provides authentication functionality
type Service struct {
	config *config.AuthConfig
	users  UserStore
	tokens *TokenManager
	logger *logrus.Logger
}

// NewService creates a new authentication service
func NewService(cfg *config.AuthConfig, users UserStore, logger *logrus.Logger) (*Service, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret cannot be empty")
	}

	ttl, err := cfg.ParseTokenTTL()
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = logrus.New()
	}

	return &Service{
		config: cfg,
		users:  users,
		tokens: NewTokenManager(cfg.JWTSecret, ttl),
		logger: logger,
	}, nil
}

// Register creates a new user account and returns a token for it
func (s *Service) Register(ctx context.Context, in RegisterInput) (string, *models.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)

	if in.Email == "" || in.Username == "" || in.Password == "" || in.ConfirmPassword == "" {
		return "", nil, &catalog.ValidationError{Message: "Please fill in all fields"}
	}
	if in.Password != in.ConfirmPassword {
		return "", nil, ErrPasswordMismatch
	}
	if !strings.Contains(in.Email, "@") {
		return "", nil, &catalog.ValidationError{Field: "email", Message: "Please provide a valid email"}
	}

	if _, err := s.users.FindUserByLogin(ctx, in.Email, in.Username); err == nil {
		return "", nil, ErrUserExists
	} else if !errors.Is(err, catalog.ErrNotFound) {
		return "", nil, err
	}

	hash, err := hashPassword(in.Password, s.config.BcryptCost)
	if err != nil {
		return "", nil, err
	}

	user := &models.User{
		Email:        in.Email,
		Username:     in.Username,
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		// A concurrent registration can win the unique index.
		if errors.Is(err, catalog.ErrDuplicate) {
			return "", nil, ErrUserExists
		}
		return "", nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return "", nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"username": user.Username,
	}).Info("User registered")

	return token, user, nil
}

// Login checks the credentials and returns a fresh token
func (s *Service) Login(ctx context.Context, in LoginInput) (string, *models.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)

	if in.Email == "" && in.Username == "" {
		return "", nil, &catalog.ValidationError{Message: "Please provide an email or username"}
	}
	if in.Password == "" {
		return "", nil, &catalog.ValidationError{Field: "password", Message: "Please provide a password"}
	}

	user, err := s.users.FindUserByLogin(ctx, in.Email, in.Username)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if !checkPassword(user.PasswordHash, in.Password) {
		s.logger.WithField("username", user.Username).Warn("Failed login attempt")
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return "", nil, err
	}

	s.logger.WithField("username", user.Username).Debug("User logged in")
	return token, user, nil
}

// Authenticate resolves the user behind a bearer token
func (s *Service) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}

	claims, err := s.tokens.Parse(token)
	if err != nil {
		s.logger.WithError(err).Debug("Rejected bearer token")
		return nil, ErrUnauthorized
	}

	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	return user, nil
}
