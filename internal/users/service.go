package users

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"resume-critic/internal/shared/auth"
	"resume-critic/internal/shared/storage/object"
	"resume-critic/internal/shared/telemetry"
)

// ErrInvalidCredentials is returned by Login when the email or password
// does not match a known account.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Service implements account registration, login, and profile updates.
type Service struct {
	Repo  Repo
	Store object.ObjectStore
}

// Register creates an account with a bcrypt password hash.
func (s *Service) Register(ctx context.Context, email, password, name string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return User{}, fmt.Errorf("invalid email")
	}
	if len(password) < 8 {
		return User{}, fmt.Errorf("password must be at least 8 characters")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	now := time.Now().UTC()
	user := User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(name),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Repo.Create(ctx, user); err != nil {
		return User{}, err
	}
	telemetry.Info("user.registered", map[string]any{"userId": user.ID})
	return user, nil
}

// Login verifies the password for an account. The repo lookup and the
// hash comparison both collapse to ErrInvalidCredentials so callers
// cannot distinguish an unknown email from a wrong password.
func (s *Service) Login(ctx context.Context, email, password string) (User, error) {
	user, err := s.Repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if user.PasswordHash == "" || !auth.CheckPasswordHash(password, user.PasswordHash) {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}

// GetByID returns the account for an ID.
func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	return s.Repo.GetByID(ctx, userID)
}

// UpsertGoogle finds or creates the account for a Google login. Accounts
// created this way have no password hash and can only sign in via Google.
func (s *Service) UpsertGoogle(ctx context.Context, email, name string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.Repo.GetByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}
	now := time.Now().UTC()
	user = User{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      strings.TrimSpace(name),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Repo.Create(ctx, user); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return s.Repo.GetByEmail(ctx, email)
		}
		return User{}, err
	}
	telemetry.Info("user.registered", map[string]any{"userId": user.ID, "provider": "google"})
	return user, nil
}

// SetAvatar stores the uploaded image and records its URL on the account.
func (s *Service) SetAvatar(ctx context.Context, userID, fileName string, r io.Reader) (string, error) {
	if s.Store == nil {
		return "", fmt.Errorf("object store not configured")
	}
	key, _, _, err := s.Store.Save(ctx, userID, fileName, r)
	if err != nil {
		return "", fmt.Errorf("save avatar: %w", err)
	}
	url := s.Store.URL(key)
	if err := s.Repo.UpdateAvatar(ctx, userID, url); err != nil {
		return "", err
	}
	return url, nil
}
