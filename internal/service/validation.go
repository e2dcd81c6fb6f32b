package service

import (
	"context"
	"fmt"
	"net/url"

	"catalog-api/internal/repository"

	"github.com/shopspring/decimal"
)

// FieldError describes a single field-scoped rule violation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is the aggregated batch of field violations for one
// request. Callers collect every applicable violation before returning, so a
// client sees all of them in a single round trip instead of one at a time.
type ValidationErrors []FieldError

func (e ValidationErrors) Error() string {
	return "validation failed"
}

// Validator runs cross-entity referential and uniqueness checks against the
// store before a mutation is attempted. These checks are advisory: the
// database constraints remain the source of truth, and a concurrent writer
// slipping between check and commit is caught there and reported as a
// conflict.
type Validator struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
}

// NewValidator creates a Validator backed by the given repositories
func NewValidator(products repository.ProductRepository, categories repository.CategoryRepository) *Validator {
	return &Validator{products: products, categories: categories}
}

// SKUUnique fails when a product other than excludeID already holds the sku.
// Pass excludeID 0 on create. Excluding the current row on update keeps a
// same-value resubmission from colliding with itself.
func (v *Validator) SKUUnique(ctx context.Context, sku string, excludeID int64) (*FieldError, error) {
	exists, err := v.products.ExistsBySKU(ctx, sku, excludeID)
	if err != nil {
		return nil, fmt.Errorf("failed to validate sku uniqueness: %w", err)
	}
	if exists {
		return &FieldError{Field: "sku", Message: fmt.Sprintf("sku=%s already exists", sku)}, nil
	}
	return nil, nil
}

// CategoryExists fails when no category row has the given id
func (v *Validator) CategoryExists(ctx context.Context, categoryID int64) (*FieldError, error) {
	exists, err := v.categories.ExistsByID(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to validate category existence: %w", err)
	}
	if !exists {
		return &FieldError{Field: "category_id", Message: fmt.Sprintf("category_id=%d does not exist", categoryID)}, nil
	}
	return nil, nil
}

// ParentExists is the category-existence check reused for parent assignment,
// reported against the parent_id field.
func (v *Validator) ParentExists(ctx context.Context, parentID int64) (*FieldError, error) {
	exists, err := v.categories.ExistsByID(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to validate parent existence: %w", err)
	}
	if !exists {
		return &FieldError{Field: "parent_id", Message: fmt.Sprintf("parent_id=%d does not exist", parentID)}, nil
	}
	return nil, nil
}

// checkPrice enforces the price rules at the schema level: non-negative,
// at most two fractional digits.
func checkPrice(price decimal.Decimal) *FieldError {
	if price.IsNegative() {
		return &FieldError{Field: "price", Message: "price must be greater than or equal to zero"}
	}
	if !price.Equal(price.Round(2)) {
		return &FieldError{Field: "price", Message: "price must have at most two decimal places"}
	}
	return nil
}

// checkPriceRange validates filter-range consistency before any query runs
func checkPriceRange(minPrice, maxPrice *decimal.Decimal) ValidationErrors {
	var errs ValidationErrors

	if minPrice != nil && minPrice.IsNegative() {
		errs = append(errs, FieldError{Field: "min_price", Message: "min_price must be greater than or equal to zero"})
	}
	if maxPrice != nil && maxPrice.IsNegative() {
		errs = append(errs, FieldError{Field: "max_price", Message: "max_price must be greater than or equal to zero"})
	}
	if minPrice != nil && maxPrice != nil && minPrice.GreaterThan(*maxPrice) {
		errs = append(errs, FieldError{
			Field:   "min_price & max_price",
			Message: "min_price cannot be greater than max_price",
		})
	}

	return errs
}

// canonicalizeImage normalizes an image reference to its canonical URL
// string form.
func canonicalizeImage(raw string) (string, *FieldError) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", &FieldError{Field: "image", Message: "image must be a valid http(s) URL"}
	}
	return u.String(), nil
}
