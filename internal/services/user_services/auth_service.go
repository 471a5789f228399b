// File: internal/services/user_services/auth_service.go
package user_services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vyomb/go-chatrelay/internal/auth"
	"github.com/vyomb/go-chatrelay/internal/domain"
	"github.com/vyomb/go-chatrelay/internal/repository/user"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type AuthService struct {
	userRepo        user.UserRepository
	accessTokenKey  []byte
	refreshTokenKey []byte
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
	logger          Logger
}

func NewAuthService(
	userRepo user.UserRepository,
	accessTokenKey, refreshTokenKey string,
	accessTokenTTL, refreshTokenTTL time.Duration,
	logger Logger,
) *AuthService {
	return &AuthService{
		userRepo:        userRepo,
		accessTokenKey:  []byte(accessTokenKey),
		refreshTokenKey: []byte(refreshTokenKey),
		accessTokenTTL:  accessTokenTTL,
		refreshTokenTTL: refreshTokenTTL,
		logger:          logger,
	}
}

// Register creates a new account with a bcrypt-hashed password.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	newUser := &domain.User{Email: email, Username: username}
	if err := newUser.IsValid(); err != nil {
		s.logger.Warn("registration validation failed",
			"email", email[:min(4, len(email))]+"****",
			"error", err.Error())
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if err := newUser.HashPassword(password); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	created, err := s.userRepo.Create(ctx, newUser)
	if err != nil {
		if errors.Is(err, user.ErrUserExists) {
			s.logger.Warn("registration rejected, email already in use",
				"email", email[:min(4, len(email))]+"****")
			return nil, user.ErrUserExists
		}
		s.logger.Error("user creation failed", "error", err)
		return nil, err
	}

	s.logger.Info("user registered", "user_id", created.ID)
	return created, nil
}

// Login authenticates a user and issues an access/refresh token pair.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, *TokenPair, error) {
	if email == "" || password == "" {
		s.logger.Warn("login attempt with empty credentials",
			"has_email", email != "",
			"has_password", password != "")
		return nil, nil, ErrInvalidCredentials
	}

	account, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		s.logger.Warn("login failed, user not found",
			"email", email[:min(4, len(email))]+"****")
		return nil, nil, ErrInvalidCredentials
	}

	if err := account.ValidatePassword(password); err != nil {
		s.logger.Warn("login failed, invalid password", "user_id", account.ID)
		return nil, nil, ErrInvalidCredentials
	}

	tokens, err := s.IssueTokens(account.ID)
	if err != nil {
		s.logger.Error("token generation failed", "error", err, "user_id", account.ID)
		return nil, nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	s.logger.Info("login successful", "user_id", account.ID)
	return account, tokens, nil
}

// IssueTokens mints a fresh access/refresh pair for the user. Also used by
// the auth middleware when it renews an expired access token.
func (s *AuthService) IssueTokens(userID uint) (*TokenPair, error) {
	accessToken, err := auth.GenerateToken(userID, s.accessTokenKey, s.accessTokenTTL)
	if err != nil {
		return nil, err
	}
	refreshToken, err := auth.GenerateToken(userID, s.refreshTokenKey, s.refreshTokenTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// ValidateAccess checks an access token and returns the user ID.
func (s *AuthService) ValidateAccess(tokenString string) (uint, error) {
	return auth.ValidateToken(tokenString, s.accessTokenKey)
}

// ValidateRefresh checks a refresh token and returns the user ID.
func (s *AuthService) ValidateRefresh(tokenString string) (uint, error) {
	return auth.ValidateToken(tokenString, s.refreshTokenKey)
}

func (s *AuthService) AccessTokenTTL() time.Duration  { return s.accessTokenTTL }
func (s *AuthService) RefreshTokenTTL() time.Duration { return s.refreshTokenTTL }
