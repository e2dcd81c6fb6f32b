package service

import (
	"context"
	"fmt"

	"catalog-api/internal/domain"
	"catalog-api/internal/repository"
)

// CreateCategoryInput carries the fields of a category create request
type CreateCategoryInput struct {
	Name     string
	ParentID *int64
}

// UpdateCategoryInput carries a sparse partial update: nil fields are left
// untouched on the stored entity.
type UpdateCategoryInput struct {
	Name     *string
	ParentID *int64
}

// CategoryService defines the interface for category business logic,
// including the hierarchy rules on parent assignment.
type CategoryService interface {
	List(ctx context.Context) ([]*domain.Category, error)
	Get(ctx context.Context, id int64) (*domain.Category, error)
	Create(ctx context.Context, input CreateCategoryInput) (*domain.Category, error)
	Update(ctx context.Context, id int64, input UpdateCategoryInput) (*domain.Category, error)
	Delete(ctx context.Context, id int64) error
}

type categoryService struct {
	categories repository.CategoryRepository
	validator  *Validator
}

// NewCategoryService creates a new instance of CategoryService
func NewCategoryService(categories repository.CategoryRepository, validator *Validator) CategoryService {
	return &categoryService{categories: categories, validator: validator}
}

// List returns all categories, flat, ordered by id
func (s *categoryService) List(ctx context.Context) ([]*domain.Category, error) {
	return s.categories.List(ctx)
}

// Get returns a category with its direct children materialized. Only one
// level is loaded; grandchildren stay lazy.
func (s *categoryService) Get(ctx context.Context, id int64) (*domain.Category, error) {
	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	children, err := s.categories.FindChildren(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load category children: %w", err)
	}
	category.Children = children

	return category, nil
}

// Create validates and persists a new category. A supplied parent must
// exist.
func (s *categoryService) Create(ctx context.Context, input CreateCategoryInput) (*domain.Category, error) {
	var errs ValidationErrors

	if input.ParentID != nil {
		fieldErr, err := s.validator.ParentExists(ctx, *input.ParentID)
		if err != nil {
			return nil, err
		}
		if fieldErr != nil {
			errs = append(errs, *fieldErr)
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}

	category := &domain.Category{
		Name:     input.Name,
		ParentID: input.ParentID,
	}

	if err := s.categories.Create(ctx, category); err != nil {
		return nil, err
	}

	return category, nil
}

// Update applies a partial update. When a new parent is supplied, the
// parent-exists and self-parent checks both run unconditionally so one
// request can report both violations at once.
func (s *categoryService) Update(ctx context.Context, id int64, input UpdateCategoryInput) (*domain.Category, error) {
	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var errs ValidationErrors

	if input.ParentID != nil {
		fieldErr, err := s.validator.ParentExists(ctx, *input.ParentID)
		if err != nil {
			return nil, err
		}
		if fieldErr != nil {
			errs = append(errs, *fieldErr)
		}

		if *input.ParentID == id {
			errs = append(errs, FieldError{
				Field:   "parent_id",
				Message: "category cannot be its own parent",
			})
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}

	if input.Name != nil {
		category.Name = *input.Name
	}
	if input.ParentID != nil {
		category.ParentID = input.ParentID
	}

	if err := s.categories.Update(ctx, category); err != nil {
		return nil, err
	}

	return category, nil
}

// Delete removes a category by id. The store detaches children and rejects
// the delete while products still reference the category; the latter comes
// back as a conflict.
func (s *categoryService) Delete(ctx context.Context, id int64) error {
	return s.categories.Delete(ctx, id)
}
