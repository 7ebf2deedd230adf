package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vovakirdan/wirechat-relay/internal/store"
)

var (
	// ErrUnauthenticated is returned when a token is missing, malformed, expired
	// or does not resolve to an existing user.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrInvalidName is returned when a display name doesn't meet constraints.
	ErrInvalidName = errors.New("invalid name")
	// ErrInvalidPassword is returned when password doesn't meet constraints.
	ErrInvalidPassword = errors.New("invalid password")
)

// Service verifies credentials presented by relay clients.
type Service struct {
	store     store.UserStore
	jwtConfig *JWTConfig
}

// NewService creates a new authentication service.
func NewService(userStore store.UserStore, jwtConfig *JWTConfig) *Service {
	return &Service{
		store:     userStore,
		jwtConfig: jwtConfig,
	}
}

// Authenticate resolves a bearer token to the user it was issued for.
// Any failure other than a store outage is reported as ErrUnauthenticated.
func (s *Service) Authenticate(ctx context.Context, token string) (*store.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: missing token", ErrUnauthenticated)
	}

	claims, err := ValidateToken(s.jwtConfig, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	user, err := s.store.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown user %d", ErrUnauthenticated, claims.UserID)
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	return user, nil
}

// CreateUser seeds a user with a bcrypt-hashed password. Registration itself is
// handled outside the relay; this exists for operators and tests.
func (s *Service) CreateUser(ctx context.Context, name, avatarURL, password string) (*store.User, error) {
	name = strings.TrimSpace(name)
	if len(name) < 3 || len(name) > 32 {
		return nil, ErrInvalidName
	}
	if len(password) < 6 {
		return nil, ErrInvalidPassword
	}

	hashedPassword, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user, err := s.store.CreateUser(ctx, name, strings.TrimSpace(avatarURL), hashedPassword)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// IssueToken mints a token for user.
func (s *Service) IssueToken(user *store.User) (string, error) {
	token, err := GenerateToken(s.jwtConfig, user.ID, user.Name)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return token, nil
}
