package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"catalog-api/internal/domain"

	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound = errors.New("product not found")
)

// SearchFilter holds the optional, conjunctive product search predicates.
// Nil fields are omitted from the query. Limit and Offset are applied at the
// storage layer after filtering and ordering.
type SearchFilter struct {
	Title      *string
	SKU        *string
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	CategoryID *int64
	Limit      int
	Offset     int
}

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (*domain.Product, error)
	List(ctx context.Context) ([]*domain.Product, error)
	Search(ctx context.Context, filter SearchFilter) ([]*domain.Product, error)
	ExistsBySKU(ctx context.Context, sku string, excludeID int64) (bool, error)
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

const productColumns = `p.id, p.sku, p.title, p.description, p.image, p.price, p.category_id, c.id, c.name`

func scanProduct(scanner interface{ Scan(dest ...any) error }) (*domain.Product, error) {
	product := &domain.Product{}
	summary := &domain.CategorySummary{}

	err := scanner.Scan(
		&product.ID,
		&product.SKU,
		&product.Title,
		&product.Description,
		&product.Image,
		&product.Price,
		&product.CategoryID,
		&summary.ID,
		&summary.Name,
	)
	if err != nil {
		return nil, err
	}

	product.Category = summary
	return product, nil
}

// Create inserts a new product and assigns its generated id. Unique
// constraint violations are surfaced as *ConflictError.
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (sku, title, description, image, price, category_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		product.SKU,
		product.Title,
		product.Description,
		product.Image,
		product.Price,
		product.CategoryID,
	).Scan(&product.ID)

	if err != nil {
		if conflict, ok := translateConflict(err); ok {
			return conflict
		}
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// Update replaces the stored row with the given entity inside a single
// transaction. The caller is expected to have merged partial changes onto a
// freshly loaded entity first.
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE products
		SET sku = $2, title = $3, description = $4, image = $5, price = $6, category_id = $7
		WHERE id = $1
	`

	result, err := tx.ExecContext(
		ctx,
		query,
		product.ID,
		product.SKU,
		product.Title,
		product.Description,
		product.Image,
		product.Price,
		product.CategoryID,
	)
	if err != nil {
		if conflict, ok := translateConflict(err); ok {
			return conflict
		}
		return fmt.Errorf("failed to update product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	if err := tx.Commit(); err != nil {
		if conflict, ok := translateConflict(err); ok {
			return conflict
		}
		return fmt.Errorf("failed to commit product update: %w", err)
	}

	return nil
}

// Delete removes a product by id
func (r *productRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		if conflict, ok := translateConflict(err); ok {
			return conflict
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// FindByID retrieves a product by id with its category summary eager-loaded
func (r *productRepository) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM products p
		JOIN categories c ON c.id = p.category_id
		WHERE p.id = $1
	`, productColumns)

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// List retrieves all products with their category summaries, ordered by id
func (r *productRepository) List(ctx context.Context) ([]*domain.Product, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM products p
		JOIN categories c ON c.id = p.category_id
		ORDER BY p.id ASC
	`, productColumns)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

// Search executes a filtered product query. All supplied predicates are
// combined with AND. Ordering is always ascending by id so that repeated
// calls with the same filters paginate stably.
func (r *productRepository) Search(ctx context.Context, filter SearchFilter) ([]*domain.Product, error) {
	conditions := []string{}
	args := []interface{}{}
	argIndex := 1

	if filter.Title != nil {
		conditions = append(conditions, fmt.Sprintf("p.title ILIKE $%d", argIndex))
		args = append(args, "%"+*filter.Title+"%")
		argIndex++
	}

	if filter.SKU != nil {
		conditions = append(conditions, fmt.Sprintf("p.sku = $%d", argIndex))
		args = append(args, *filter.SKU)
		argIndex++
	}

	if filter.MinPrice != nil {
		conditions = append(conditions, fmt.Sprintf("p.price >= $%d", argIndex))
		args = append(args, *filter.MinPrice)
		argIndex++
	}

	if filter.MaxPrice != nil {
		conditions = append(conditions, fmt.Sprintf("p.price <= $%d", argIndex))
		args = append(args, *filter.MaxPrice)
		argIndex++
	}

	if filter.CategoryID != nil {
		conditions = append(conditions, fmt.Sprintf("p.category_id = $%d", argIndex))
		args = append(args, *filter.CategoryID)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM products p
		JOIN categories c ON c.id = p.category_id
		%s
		ORDER BY p.id ASC
		LIMIT $%d OFFSET $%d
	`, productColumns, whereClause, argIndex, argIndex+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

// ExistsBySKU reports whether any product other than excludeID already holds
// the given sku. Pass excludeID 0 on create, where no row is exempt.
func (r *productRepository) ExistsBySKU(ctx context.Context, sku string, excludeID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM products WHERE sku = $1 AND id <> $2)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, sku, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check sku existence: %w", err)
	}

	return exists, nil
}

func collectProducts(rows *sql.Rows) ([]*domain.Product, error) {
	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}
