package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"pistachio-backend/internal/domain"
	"pistachio-backend/internal/logger"
	"pistachio-backend/internal/repository"
	"pistachio-backend/internal/security"
)

var ErrInvalidCredentials = fmt.Errorf("invalid username or password: %w", domain.ErrUnauthorized)

type authService struct {
	userRepo repository.UserRepository
	tokens   security.TokenManager
}

func NewAuthService(userRepo repository.UserRepository, tokens security.TokenManager) AuthService {
	return &authService{userRepo: userRepo, tokens: tokens}
}

func (s *authService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	logger.EnterMethod("authService.Login", "username", username)

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			logger.ExitMethod("authService.Login", "username", username, "result", "unknown user")
			return nil, ErrInvalidCredentials
		}
		logger.ExitMethodWithError("authService.Login", err, "username", username)
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		logger.ExitMethod("authService.Login", "username", username, "result", "bad password")
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		logger.ExitMethodWithError("authService.Login", err, "username", username)
		return nil, err
	}

	logger.ExitMethod("authService.Login", "userID", user.ID, "role", user.Role)
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func (s *authService) CreateUser(ctx context.Context, username, password string, role domain.UserRole) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, domain.NewValidationError("username", "username is required")
	}
	if len(password) < 8 {
		return nil, domain.NewValidationError("password", "password must be at least 8 characters")
	}
	switch role {
	case domain.UserRoleAdmin, domain.UserRoleAccounting, domain.UserRoleWarehouse:
	default:
		return nil, domain.NewValidationError("role", "unknown role")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{Username: username, PasswordHash: string(hash), Role: role}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *authService) EnsureUser(ctx context.Context, username, password string, role domain.UserRole) error {
	_, err := s.userRepo.GetByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if _, err := s.CreateUser(ctx, username, password, role); err != nil {
		return fmt.Errorf("create user %s: %w", username, err)
	}
	logger.Info("Bootstrap user created", "username", username, "role", role)
	return nil
}
