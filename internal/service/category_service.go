package service

import (
	"context"
	"errors"
	"time"

	"receiptly/internal/dto"
	"receiptly/internal/extraction"
	"receiptly/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrCategoryExists   = errors.New("category already exists")
	ErrCategoryInUse    = errors.New("category is referenced by receipt items")
)

// categoryStore is the slice of the category repository this service needs.
type categoryStore interface {
	Create(ctx context.Context, category *models.Category) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Category, error)
	Update(ctx context.Context, category *models.Category) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
	CountItemsUsing(ctx context.Context, categoryID uuid.UUID) (int64, error)
}

type CategoryService struct {
	catRepo categoryStore
	logger  *zap.Logger
}

func NewCategoryService(catRepo categoryStore, logger *zap.Logger) *CategoryService {
	return &CategoryService{
		catRepo: catRepo,
		logger:  logger,
	}
}

func (s *CategoryService) Create(ctx context.Context, userID uuid.UUID, req *dto.CreateCategoryRequest) (*dto.CategoryResponse, error) {
	existing, err := s.catRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Uniqueness is on the normalized name so "Dairy" and " dairy " collide.
	key := extraction.NormalizeCategoryName(req.Name)
	for _, c := range existing {
		if extraction.NormalizeCategoryName(c.Name) == key {
			return nil, ErrCategoryExists
		}
	}

	now := time.Now()
	category := &models.Category{
		ID:          uuid.New(),
		UserID:      userID,
		Name:        req.Name,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.catRepo.Create(ctx, category); err != nil {
		return nil, err
	}

	return categoryToResponse(category), nil
}

func (s *CategoryService) List(ctx context.Context, userID uuid.UUID) ([]*dto.CategoryResponse, error) {
	categories, err := s.catRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	responses := make([]*dto.CategoryResponse, len(categories))
	for i, c := range categories {
		responses[i] = categoryToResponse(c)
	}

	return responses, nil
}

func (s *CategoryService) Update(ctx context.Context, userID, id uuid.UUID, req *dto.UpdateCategoryRequest) (*dto.CategoryResponse, error) {
	category, err := s.catRepo.GetByID(ctx, id)
	if err != nil || category.UserID != userID {
		return nil, ErrCategoryNotFound
	}

	key := extraction.NormalizeCategoryName(req.Name)
	existing, err := s.catRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, c := range existing {
		if c.ID != id && extraction.NormalizeCategoryName(c.Name) == key {
			return nil, ErrCategoryExists
		}
	}

	category.Name = req.Name
	category.Description = req.Description
	category.UpdatedAt = time.Now()

	if err := s.catRepo.Update(ctx, category); err != nil {
		return nil, err
	}

	return categoryToResponse(category), nil
}

func (s *CategoryService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	category, err := s.catRepo.GetByID(ctx, id)
	if err != nil || category.UserID != userID {
		return ErrCategoryNotFound
	}

	count, err := s.catRepo.CountItemsUsing(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrCategoryInUse
	}

	return s.catRepo.Delete(ctx, userID, id)
}

func categoryToResponse(c *models.Category) *dto.CategoryResponse {
	return &dto.CategoryResponse{
		ID:          c.ID.String(),
		Name:        c.Name,
		Description: c.Description,
		CreatedAt:   c.CreatedAt.Format(time.RFC3339),
	}
}
