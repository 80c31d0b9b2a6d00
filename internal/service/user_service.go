package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"time-tracker/internal/model"
	"time-tracker/internal/repository"
)

const passwordMinLen = 8

// RegisterInput is the data needed to open an account.
type RegisterInput struct {
	Email    string
	Name     string
	Password string
}

// UserService manages accounts, credentials and Telegram links.
type UserService struct {
	repo *repository.UserRepository
	cost int
}

func NewUserService(repo *repository.UserRepository) *UserService {
	return &UserService{repo: repo, cost: bcrypt.DefaultCost}
}

// WithHashCost overrides the bcrypt cost; tests use bcrypt.MinCost.
func (s *UserService) WithHashCost(cost int) *UserService {
	s.cost = cost
	return s
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	verr := &ValidationError{}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		verr.Add("email", "The email field is required.")
	} else if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		verr.Add("email", "The email field must be a valid email address.")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		verr.Add("name", "The name field is required.")
	}
	if len(in.Password) < passwordMinLen {
		verr.Add("password", "The password field must be at least 8 characters.")
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	_, err := s.repo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, ErrEmailTaken
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("find user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := model.User{Email: email, Name: name, PasswordHash: string(hash)}
	if err := s.repo.Create(ctx, &user); err != nil {
		// a concurrent registration won the unique index
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, writeFailed("register user", err)
	}
	log.Printf("[info] user registered id=%d", user.ID)
	return &user, nil
}

// Authenticate checks credentials. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id uint) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

// IssueLinkCode stores and returns a fresh one-time code for the Telegram bot.
func (s *UserService) IssueLinkCode(ctx context.Context, userID uint) (string, error) {
	code := uuid.NewString()
	if err := s.repo.SetLinkCode(ctx, userID, code); err != nil {
		return "", writeFailed("issue link code", err)
	}
	return code, nil
}

// LinkTelegram exchanges a link code for a binding between the chat and user.
func (s *UserService) LinkTelegram(ctx context.Context, code string, telegramID int64) (*model.User, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("link code: %w", ErrNotFound)
	}
	user, err := s.repo.LinkTelegram(ctx, code, telegramID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("link code: %w", ErrNotFound)
	}
	if err != nil {
		return nil, writeFailed("link telegram", err)
	}
	log.Printf("[info] telegram linked user=%d", user.ID)
	return user, nil
}

func (s *UserService) FindByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	user, err := s.repo.FindByTelegramID(ctx, telegramID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("telegram user %d: %w", telegramID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (s *UserService) ListLinked(ctx context.Context) ([]model.User, error) {
	return s.repo.ListLinked(ctx)
}
