package service

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestCategoryLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	work := f.category(t, "Work")
	f.category(t, "Admin")

	categories, err := f.categories.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(categories) != 2 || categories[0].Name != "Admin" {
		t.Fatalf("unexpected categories %+v", categories)
	}

	if err := f.categories.Delete(ctx, work.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := f.categories.Delete(ctx, work.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}

	categories, err = f.categories.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(categories) != 1 {
		t.Fatalf("categories = %d, want 1", len(categories))
	}
}

func TestCategoryCreateValidation(t *testing.T) {
	f := newFixture(t)
	for _, name := range []string{"   ", strings.Repeat("x", 256)} {
		_, err := f.categories.Create(context.Background(), name)
		var verr *ValidationError
		if !errors.As(err, &verr) || !verr.Has("name") {
			t.Errorf("Create(%d chars): expected name error, got %v", len(name), err)
		}
	}
}
