package repository

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"time-tracker/internal/model"
)

// UserRepository handles CRUD for users.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	user.Email = normalizeEmail(user.Email)
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// SetLinkCode stores a one-time code the Telegram bot exchanges for a chat link.
func (r *UserRepository) SetLinkCode(ctx context.Context, userID uint, code string) error {
	if err := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).
		Update("telegram_link_code", code).Error; err != nil {
		return fmt.Errorf("set link code: %w", err)
	}
	return nil
}

// LinkTelegram binds telegramID to the user holding code and clears the code.
// Any previous owner of the Telegram id is unlinked first.
func (r *UserRepository) LinkTelegram(ctx context.Context, code string, telegramID int64) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("telegram_link_code = ?", code).First(&user).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.User{}).Where("telegram_id = ? AND id <> ?", telegramID, user.ID).
			Update("telegram_id", nil).Error; err != nil {
			return fmt.Errorf("unlink previous user: %w", err)
		}
		updates := map[string]interface{}{
			"telegram_id":        telegramID,
			"telegram_link_code": nil,
		}
		if err := tx.Model(&user).Updates(updates).Error; err != nil {
			return fmt.Errorf("link telegram: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	user.TelegramID = &telegramID
	user.TelegramLinkCode = nil
	return &user, nil
}

// ListLinked returns users with a Telegram chat attached.
func (r *UserRepository) ListLinked(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).Where("telegram_id IS NOT NULL").Order("id ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
