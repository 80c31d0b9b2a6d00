package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.users.Register(ctx, RegisterInput{Email: " Ada@Example.com ", Name: "Ada", Password: "correct horse"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Email != "ada@example.com" {
		t.Errorf("email = %q", user.Email)
	}
	if user.PasswordHash == "correct horse" || user.PasswordHash == "" {
		t.Errorf("password not hashed")
	}

	got, err := f.users.Authenticate(ctx, "ADA@example.com", "correct horse")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("authenticated user = %d, want %d", got.ID, user.ID)
	}

	if _, err := f.users.Authenticate(ctx, "ada@example.com", "wrong password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := f.users.Authenticate(ctx, "nobody@example.com", "correct horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email: expected ErrInvalidCredentials, got %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.users.Register(ctx, RegisterInput{Email: "ada@example.com", Name: "Ada", Password: "password1"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err := f.users.Register(ctx, RegisterInput{Email: "ADA@example.com", Name: "Other", Password: "password2"})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)
	_, err := f.users.Register(context.Background(), RegisterInput{Email: "not-an-email", Password: "short"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	for _, field := range []string{"email", "name", "password"} {
		if !verr.Has(field) {
			t.Errorf("missing error for %s: %v", field, verr)
		}
	}
}

func TestLinkTelegram(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.user(t, "first@example.com")
	second := f.user(t, "second@example.com")

	code, err := f.users.IssueLinkCode(ctx, first.ID)
	if err != nil {
		t.Fatalf("issue code: %v", err)
	}
	linked, err := f.users.LinkTelegram(ctx, code, 42)
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	if linked.ID != first.ID || linked.TelegramID == nil || *linked.TelegramID != 42 {
		t.Fatalf("unexpected link %+v", linked)
	}
	if _, err := f.users.LinkTelegram(ctx, code, 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("reused code: expected ErrNotFound, got %v", err)
	}

	code, err = f.users.IssueLinkCode(ctx, second.ID)
	if err != nil {
		t.Fatalf("issue code: %v", err)
	}
	if _, err := f.users.LinkTelegram(ctx, code, 42); err != nil {
		t.Fatalf("relink: %v", err)
	}

	owner, err := f.users.FindByTelegramID(ctx, 42)
	if err != nil {
		t.Fatalf("find by telegram id: %v", err)
	}
	if owner.ID != second.ID {
		t.Errorf("chat owner = %d, want %d", owner.ID, second.ID)
	}
	linkedUsers, err := f.users.ListLinked(ctx)
	if err != nil {
		t.Fatalf("list linked: %v", err)
	}
	if len(linkedUsers) != 1 {
		t.Errorf("linked users = %d, want 1", len(linkedUsers))
	}
}

func TestRegisterLosingRaceReportsEmailTaken(t *testing.T) {
	f := newFixture(t)
	inserted := false
	err := f.db.Callback().Create().Before("gorm:create").Register("test:concurrent_signup", func(tx *gorm.DB) {
		if tx.Statement.Table != "users" || inserted {
			return
		}
		inserted = true
		now := time.Now()
		err := tx.Session(&gorm.Session{NewDB: true}).
			Exec("INSERT INTO users (email, name, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
				"ada@example.com", "First", "x", now, now).Error
		if err != nil {
			_ = tx.AddError(err)
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}

	_, err = f.users.Register(context.Background(), RegisterInput{Email: "ada@example.com", Name: "Second", Password: "password1"})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if errors.Is(err, ErrWriteFailed) {
		t.Fatalf("duplicate email reported as write failure: %v", err)
	}
}
