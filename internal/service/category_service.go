package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"time-tracker/internal/model"
	"time-tracker/internal/repository"
)

// CategoryService provides helpers around categories.
type CategoryService struct {
	repo *repository.CategoryRepository
}

func NewCategoryService(repo *repository.CategoryRepository) *CategoryService {
	return &CategoryService{repo: repo}
}

func (s *CategoryService) List(ctx context.Context) ([]model.Category, error) {
	return s.repo.List(ctx)
}

func (s *CategoryService) Create(ctx context.Context, name string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return nil, fieldError("name", "The name field is required.")
	case utf8.RuneCountInString(name) > titleMaxLen:
		return nil, fieldError("name", "The name field must not be greater than 255 characters.")
	}

	category := model.Category{Name: name}
	if err := s.repo.Create(ctx, &category); err != nil {
		return nil, writeFailed("create category", err)
	}
	return &category, nil
}

// Delete soft-deletes the category. Tasks already tagged with it keep the tag.
func (s *CategoryService) Delete(ctx context.Context, id uint) error {
	removed, err := s.repo.Delete(ctx, id)
	if err != nil {
		return writeFailed("delete category", err)
	}
	if !removed {
		return fmt.Errorf("category %d: %w", id, ErrNotFound)
	}
	return nil
}
