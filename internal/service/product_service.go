package service

import (
	"context"
	"fmt"

	"catalog-api/internal/domain"
	"catalog-api/internal/repository"

	"github.com/shopspring/decimal"
)

const (
	DefaultSearchLimit  = 100
	DefaultSearchOffset = 0
)

// CreateProductInput carries the fields of a product create request
type CreateProductInput struct {
	SKU         string
	Title       string
	Description *string
	Image       *string
	Price       decimal.Decimal
	CategoryID  int64
}

// UpdateProductInput carries a sparse partial update: nil fields are left
// untouched on the stored entity.
type UpdateProductInput struct {
	SKU         *string
	Title       *string
	Description *string
	Image       *string
	Price       *decimal.Decimal
	CategoryID  *int64
}

// SearchInput holds the optional search filters as received from transport
type SearchInput struct {
	Title      *string
	SKU        *string
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	CategoryID *int64
	Limit      *int
	Offset     *int
}

// ProductService defines the interface for product business logic
type ProductService interface {
	List(ctx context.Context) ([]*domain.Product, error)
	Get(ctx context.Context, id int64) (*domain.Product, error)
	Create(ctx context.Context, input CreateProductInput) (*domain.Product, error)
	Update(ctx context.Context, id int64, input UpdateProductInput) (*domain.Product, error)
	Delete(ctx context.Context, id int64) error
	Search(ctx context.Context, input SearchInput) ([]*domain.Product, error)
}

type productService struct {
	products  repository.ProductRepository
	validator *Validator
}

// NewProductService creates a new instance of ProductService
func NewProductService(products repository.ProductRepository, validator *Validator) ProductService {
	return &productService{products: products, validator: validator}
}

// List returns all products with their category summaries
func (s *productService) List(ctx context.Context) ([]*domain.Product, error) {
	return s.products.List(ctx)
}

// Get returns a single product by id
func (s *productService) Get(ctx context.Context, id int64) (*domain.Product, error) {
	return s.products.FindByID(ctx, id)
}

// Create validates and persists a new product. All rule violations are
// collected and returned as one batch; storage is not touched unless the
// batch is empty.
func (s *productService) Create(ctx context.Context, input CreateProductInput) (*domain.Product, error) {
	var errs ValidationErrors

	if fieldErr := checkPrice(input.Price); fieldErr != nil {
		errs = append(errs, *fieldErr)
	}

	fieldErr, err := s.validator.SKUUnique(ctx, input.SKU, 0)
	if err != nil {
		return nil, err
	}
	if fieldErr != nil {
		errs = append(errs, *fieldErr)
	}

	fieldErr, err = s.validator.CategoryExists(ctx, input.CategoryID)
	if err != nil {
		return nil, err
	}
	if fieldErr != nil {
		errs = append(errs, *fieldErr)
	}

	image := input.Image
	if input.Image != nil {
		canonical, fieldErr := canonicalizeImage(*input.Image)
		if fieldErr != nil {
			errs = append(errs, *fieldErr)
		} else {
			image = &canonical
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}

	product := &domain.Product{
		SKU:         input.SKU,
		Title:       input.Title,
		Description: input.Description,
		Image:       image,
		Price:       input.Price,
		CategoryID:  input.CategoryID,
	}

	if err := product.ValidatePrice(); err != nil {
		return nil, ValidationErrors{{Field: "price", Message: err.Error()}}
	}

	if err := s.products.Create(ctx, product); err != nil {
		return nil, err
	}

	return s.products.FindByID(ctx, product.ID)
}

// Update applies a partial update to an existing product. Only fields
// present in the input are re-validated and changed; the sku uniqueness
// check excludes the product's own row.
func (s *productService) Update(ctx context.Context, id int64, input UpdateProductInput) (*domain.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var errs ValidationErrors

	if input.SKU != nil {
		fieldErr, err := s.validator.SKUUnique(ctx, *input.SKU, id)
		if err != nil {
			return nil, err
		}
		if fieldErr != nil {
			errs = append(errs, *fieldErr)
		}
	}

	if input.CategoryID != nil {
		fieldErr, err := s.validator.CategoryExists(ctx, *input.CategoryID)
		if err != nil {
			return nil, err
		}
		if fieldErr != nil {
			errs = append(errs, *fieldErr)
		}
	}

	if input.Price != nil {
		if fieldErr := checkPrice(*input.Price); fieldErr != nil {
			errs = append(errs, *fieldErr)
		}
	}

	image := input.Image
	if input.Image != nil {
		canonical, fieldErr := canonicalizeImage(*input.Image)
		if fieldErr != nil {
			errs = append(errs, *fieldErr)
		} else {
			image = &canonical
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}

	if input.SKU != nil {
		product.SKU = *input.SKU
	}
	if input.Title != nil {
		product.Title = *input.Title
	}
	if input.Description != nil {
		product.Description = input.Description
	}
	if image != nil {
		product.Image = image
	}
	if input.Price != nil {
		product.Price = *input.Price
	}
	if input.CategoryID != nil {
		product.CategoryID = *input.CategoryID
	}

	if err := product.ValidatePrice(); err != nil {
		return nil, ValidationErrors{{Field: "price", Message: err.Error()}}
	}

	if err := s.products.Update(ctx, product); err != nil {
		return nil, err
	}

	return s.products.FindByID(ctx, id)
}

// Delete removes a product by id
func (s *productService) Delete(ctx context.Context, id int64) error {
	return s.products.Delete(ctx, id)
}

// Search validates the filter set and executes the composed query. An
// inconsistent price range fails before any store access. Results are
// always ordered ascending by id for stable pagination.
func (s *productService) Search(ctx context.Context, input SearchInput) ([]*domain.Product, error) {
	if errs := checkPriceRange(input.MinPrice, input.MaxPrice); len(errs) > 0 {
		return nil, errs
	}

	filter := repository.SearchFilter{
		Title:      input.Title,
		SKU:        input.SKU,
		MinPrice:   input.MinPrice,
		MaxPrice:   input.MaxPrice,
		CategoryID: input.CategoryID,
		Limit:      DefaultSearchLimit,
		Offset:     DefaultSearchOffset,
	}
	if input.Limit != nil {
		filter.Limit = *input.Limit
	}
	if input.Offset != nil {
		filter.Offset = *input.Offset
	}

	products, err := s.products.Search(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("product search failed: %w", err)
	}

	return products, nil
}
