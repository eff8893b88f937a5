package users

import (
	"context"
	"errors"
	"strings"
	"testing"

	localstore "resume-critic/internal/shared/storage/object/local"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return &Service{Repo: NewMemoryRepo(), Store: localstore.New(t.TempDir())}
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "Jane@Example.com", "s3cret-password", "Jane")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Email != "jane@example.com" {
		t.Errorf("email = %q, want lowercased", user.Email)
	}
	if user.PasswordHash == "" || user.PasswordHash == "s3cret-password" {
		t.Errorf("password not hashed")
	}

	got, err := svc.Login(ctx, "jane@example.com", "s3cret-password")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("login returned wrong user")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "a@b.com", "correct-password", ""); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Login(ctx, "a@b.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Login(ctx, "unknown@b.com", "whatever1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email err = %v, want ErrInvalidCredentials", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "dup@b.com", "password-one", ""); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Register(ctx, "DUP@b.com", "password-two", ""); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("err = %v, want ErrEmailTaken", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "not-an-email", "long-enough-pw", ""); err == nil {
		t.Fatalf("expected error for invalid email")
	}
	if _, err := svc.Register(ctx, "ok@b.com", "short", ""); err == nil {
		t.Fatalf("expected error for short password")
	}
}

func TestUpsertGoogle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.UpsertGoogle(ctx, "g@example.com", "G User")
	if err != nil {
		t.Fatalf("UpsertGoogle: %v", err)
	}
	if first.PasswordHash != "" {
		t.Errorf("google account should have no password hash")
	}

	second, err := svc.UpsertGoogle(ctx, "G@example.com", "G User")
	if err != nil {
		t.Fatalf("UpsertGoogle repeat: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("repeat upsert created a new account")
	}

	// Google accounts cannot sign in with a password.
	if _, err := svc.Login(ctx, "g@example.com", "anything-goes"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestSetAvatar(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "ava@b.com", "long-enough-pw", "Ava")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	url, err := svc.SetAvatar(ctx, user.ID, "me.png", strings.NewReader("png-bytes"))
	if err != nil {
		t.Fatalf("SetAvatar: %v", err)
	}
	if url == "" {
		t.Fatalf("empty avatar url")
	}

	got, err := svc.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.AvatarURL != url {
		t.Errorf("avatar url = %q, want %q", got.AvatarURL, url)
	}
}
