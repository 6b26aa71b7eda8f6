package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"receiptly/internal/dto"
	"receiptly/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type fakeCategoryStore struct {
	categories []*models.Category
	itemCounts map[uuid.UUID]int64
}

func (f *fakeCategoryStore) Create(_ context.Context, c *models.Category) error {
	f.categories = append(f.categories, c)
	return nil
}

func (f *fakeCategoryStore) CreateBatch(_ context.Context, cs []*models.Category) error {
	f.categories = append(f.categories, cs...)
	return nil
}

func (f *fakeCategoryStore) GetByID(_ context.Context, id uuid.UUID) (*models.Category, error) {
	for _, c := range f.categories {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, errors.New("no rows in result set")
}

func (f *fakeCategoryStore) ListByUserID(_ context.Context, userID uuid.UUID) ([]*models.Category, error) {
	var out []*models.Category
	for _, c := range f.categories {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCategoryStore) Update(_ context.Context, c *models.Category) error { return nil }

func (f *fakeCategoryStore) Delete(_ context.Context, userID, id uuid.UUID) error {
	for i, c := range f.categories {
		if c.ID == id && c.UserID == userID {
			f.categories = append(f.categories[:i], f.categories[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeCategoryStore) CountItemsUsing(_ context.Context, categoryID uuid.UUID) (int64, error) {
	return f.itemCounts[categoryID], nil
}

func seedCategory(store *fakeCategoryStore, userID uuid.UUID, name string) *models.Category {
	c := &models.Category{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      name,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	store.categories = append(store.categories, c)
	return c
}

func TestCategoryCreateRejectsNormalizedDuplicate(t *testing.T) {
	store := &fakeCategoryStore{itemCounts: map[uuid.UUID]int64{}}
	userID := uuid.New()
	seedCategory(store, userID, "Dairy")

	svc := NewCategoryService(store, zap.NewNop())
	_, err := svc.Create(context.Background(), userID, &dto.CreateCategoryRequest{Name: "  dairy "})
	if !errors.Is(err, ErrCategoryExists) {
		t.Fatalf("expected ErrCategoryExists, got %v", err)
	}

	// A different user is free to use the same name.
	if _, err := svc.Create(context.Background(), uuid.New(), &dto.CreateCategoryRequest{Name: "Dairy"}); err != nil {
		t.Fatalf("create for other user: %v", err)
	}
}

func TestCategoryDeleteGuardsItemsInUse(t *testing.T) {
	store := &fakeCategoryStore{itemCounts: map[uuid.UUID]int64{}}
	userID := uuid.New()
	used := seedCategory(store, userID, "Produce")
	unused := seedCategory(store, userID, "Frozen")
	store.itemCounts[used.ID] = 3

	svc := NewCategoryService(store, zap.NewNop())

	if err := svc.Delete(context.Background(), userID, used.ID); !errors.Is(err, ErrCategoryInUse) {
		t.Fatalf("expected ErrCategoryInUse, got %v", err)
	}
	if err := svc.Delete(context.Background(), userID, unused.ID); err != nil {
		t.Fatalf("delete unused: %v", err)
	}
	if len(store.categories) != 1 {
		t.Fatalf("expected 1 category left, got %d", len(store.categories))
	}
}

func TestCategoryDeleteHidesOtherUsersCategories(t *testing.T) {
	store := &fakeCategoryStore{itemCounts: map[uuid.UUID]int64{}}
	owner := uuid.New()
	c := seedCategory(store, owner, "Household")

	svc := NewCategoryService(store, zap.NewNop())
	if err := svc.Delete(context.Background(), uuid.New(), c.ID); !errors.Is(err, ErrCategoryNotFound) {
		t.Fatalf("expected ErrCategoryNotFound, got %v", err)
	}
}

func TestCategoryUpdateRejectsCollisionWithSibling(t *testing.T) {
	store := &fakeCategoryStore{itemCounts: map[uuid.UUID]int64{}}
	userID := uuid.New()
	seedCategory(store, userID, "Snacks")
	target := seedCategory(store, userID, "Beverages")

	svc := NewCategoryService(store, zap.NewNop())
	_, err := svc.Update(context.Background(), userID, target.ID, &dto.UpdateCategoryRequest{Name: "SNACKS"})
	if !errors.Is(err, ErrCategoryExists) {
		t.Fatalf("expected ErrCategoryExists, got %v", err)
	}

	// Renaming to itself with different casing is allowed.
	if _, err := svc.Update(context.Background(), userID, target.ID, &dto.UpdateCategoryRequest{Name: "beverages"}); err != nil {
		t.Fatalf("self rename: %v", err)
	}
}
