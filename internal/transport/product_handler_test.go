package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"catalog-api/internal/domain"
	"catalog-api/internal/repository"
	"catalog-api/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Mock repositories for testing

type stubCategoryRepository struct {
	categories map[int64]*domain.Category
	nextID     int64
	deleteErr  error
}

func newStubCategoryRepository() *stubCategoryRepository {
	return &stubCategoryRepository{categories: make(map[int64]*domain.Category), nextID: 1}
}

func (m *stubCategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	category.ID = m.nextID
	m.nextID++
	stored := *category
	m.categories[category.ID] = &stored
	return nil
}

func (m *stubCategoryRepository) Update(ctx context.Context, category *domain.Category) error {
	if _, ok := m.categories[category.ID]; !ok {
		return repository.ErrCategoryNotFound
	}
	stored := *category
	m.categories[category.ID] = &stored
	return nil
}

func (m *stubCategoryRepository) Delete(ctx context.Context, id int64) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.categories[id]; !ok {
		return repository.ErrCategoryNotFound
	}
	delete(m.categories, id)
	return nil
}

func (m *stubCategoryRepository) FindByID(ctx context.Context, id int64) (*domain.Category, error) {
	category, ok := m.categories[id]
	if !ok {
		return nil, repository.ErrCategoryNotFound
	}
	found := *category
	return &found, nil
}

func (m *stubCategoryRepository) FindChildren(ctx context.Context, parentID int64) ([]*domain.Category, error) {
	children := []*domain.Category{}
	for id := int64(1); id < m.nextID; id++ {
		category, ok := m.categories[id]
		if !ok || category.ParentID == nil || *category.ParentID != parentID {
			continue
		}
		child := *category
		children = append(children, &child)
	}
	return children, nil
}

func (m *stubCategoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	categories := []*domain.Category{}
	for id := int64(1); id < m.nextID; id++ {
		if category, ok := m.categories[id]; ok {
			found := *category
			categories = append(categories, &found)
		}
	}
	return categories, nil
}

func (m *stubCategoryRepository) ExistsByID(ctx context.Context, id int64) (bool, error) {
	_, ok := m.categories[id]
	return ok, nil
}

type stubProductRepository struct {
	products   map[int64]*domain.Product
	categories *stubCategoryRepository
	nextID     int64
	createErr  error
	lastFilter *repository.SearchFilter
}

func newStubProductRepository(categories *stubCategoryRepository) *stubProductRepository {
	return &stubProductRepository{
		products:   make(map[int64]*domain.Product),
		categories: categories,
		nextID:     1,
	}
}

func (m *stubProductRepository) withSummary(product *domain.Product) *domain.Product {
	found := *product
	if category, ok := m.categories.categories[product.CategoryID]; ok {
		found.Category = &domain.CategorySummary{ID: category.ID, Name: category.Name}
	}
	return &found
}

func (m *stubProductRepository) Create(ctx context.Context, product *domain.Product) error {
	if m.createErr != nil {
		return m.createErr
	}
	product.ID = m.nextID
	m.nextID++
	stored := *product
	m.products[product.ID] = &stored
	return nil
}

func (m *stubProductRepository) Update(ctx context.Context, product *domain.Product) error {
	if _, ok := m.products[product.ID]; !ok {
		return repository.ErrProductNotFound
	}
	stored := *product
	m.products[product.ID] = &stored
	return nil
}

func (m *stubProductRepository) Delete(ctx context.Context, id int64) error {
	if _, ok := m.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *stubProductRepository) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	product, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return m.withSummary(product), nil
}

func (m *stubProductRepository) List(ctx context.Context) ([]*domain.Product, error) {
	products := []*domain.Product{}
	for id := int64(1); id < m.nextID; id++ {
		if product, ok := m.products[id]; ok {
			products = append(products, m.withSummary(product))
		}
	}
	return products, nil
}

func (m *stubProductRepository) Search(ctx context.Context, filter repository.SearchFilter) ([]*domain.Product, error) {
	m.lastFilter = &filter

	products := []*domain.Product{}
	for id := int64(1); id < m.nextID; id++ {
		product, ok := m.products[id]
		if !ok {
			continue
		}
		if filter.Title != nil && !strings.Contains(strings.ToLower(product.Title), strings.ToLower(*filter.Title)) {
			continue
		}
		if filter.SKU != nil && product.SKU != *filter.SKU {
			continue
		}
		if filter.MinPrice != nil && product.Price.LessThan(*filter.MinPrice) {
			continue
		}
		if filter.MaxPrice != nil && product.Price.GreaterThan(*filter.MaxPrice) {
			continue
		}
		if filter.CategoryID != nil && product.CategoryID != *filter.CategoryID {
			continue
		}
		products = append(products, m.withSummary(product))
	}

	if filter.Offset >= len(products) {
		return []*domain.Product{}, nil
	}
	products = products[filter.Offset:]
	if filter.Limit < len(products) {
		products = products[:filter.Limit]
	}
	return products, nil
}

func (m *stubProductRepository) ExistsBySKU(ctx context.Context, sku string, excludeID int64) (bool, error) {
	for id, product := range m.products {
		if product.SKU == sku && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

type testEnv struct {
	router     chi.Router
	products   *stubProductRepository
	categories *stubCategoryRepository
}

func newTestEnv() *testEnv {
	categories := newStubCategoryRepository()
	products := newStubProductRepository(categories)
	validator := service.NewValidator(products, categories)
	logger := zap.NewNop()

	router := chi.NewRouter()
	NewProductHandler(service.NewProductService(products, validator), logger).RegisterRoutes(router)
	NewCategoryHandler(service.NewCategoryService(categories, validator), logger).RegisterRoutes(router)

	return &testEnv{router: router, products: products, categories: categories}
}

func (e *testEnv) seedCategory(t *testing.T, name string) *domain.Category {
	t.Helper()
	category := &domain.Category{Name: name}
	require.NoError(t, e.categories.Create(context.Background(), category))
	return category
}

func (e *testEnv) do(t *testing.T, method, target string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeValidationFields(t *testing.T, w *httptest.ResponseRecorder) []string {
	t.Helper()

	var response struct {
		Error struct {
			Message string `json:"message"`
			Details struct {
				ValidationErrors []struct {
					Field   string `json:"field"`
					Message string `json:"message"`
				} `json:"validation_errors"`
			} `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "validation failed", response.Error.Message)

	fields := make([]string, 0, len(response.Error.Details.ValidationErrors))
	for _, v := range response.Error.Details.ValidationErrors {
		fields = append(fields, v.Field)
	}
	return fields
}

func price(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestCreateProduct_ReturnsCreatedWithCategorySummary(t *testing.T) {
	env := newTestEnv()
	category := env.seedCategory(t, "Electronics")

	w := env.do(t, http.MethodPost, "/products", CreateProductRequest{
		SKU:        "SKU-001",
		Title:      "Smart Phone",
		Price:      price("499.99"),
		CategoryID: category.ID,
	})

	require.Equal(t, http.StatusCreated, w.Code)

	var resp ProductResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.NotZero(t, resp.ID)
	assert.Equal(t, "SKU-001", resp.SKU)
	assert.True(t, resp.Price.Equal(decimal.RequireFromString("499.99")))
	require.NotNil(t, resp.Category)
	assert.Equal(t, "Electronics", resp.Category.Name)
}

func TestCreateProduct_AggregatedViolationsInOneResponse(t *testing.T) {
	env := newTestEnv()
	category := env.seedCategory(t, "Electronics")

	first := env.do(t, http.MethodPost, "/products", CreateProductRequest{
		SKU:        "SKU-DUP",
		Title:      "First",
		Price:      price("10.00"),
		CategoryID: category.ID,
	})
	require.Equal(t, http.StatusCreated, first.Code)

	// duplicate sku, missing category, negative price in one request
	w := env.do(t, http.MethodPost, "/products", CreateProductRequest{
		SKU:        "SKU-DUP",
		Title:      "Second",
		Price:      price("-1.00"),
		CategoryID: category.ID + 100,
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	fields := decodeValidationFields(t, w)
	assert.ElementsMatch(t, []string{"sku", "category_id", "price"}, fields)
}

func TestCreateProduct_MissingRequiredFieldsRejected(t *testing.T) {
	env := newTestEnv()

	w := env.do(t, http.MethodPost, "/products", map[string]any{
		"title": "No SKU",
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	fields := decodeValidationFields(t, w)
	assert.Contains(t, fields, "sku")
	assert.Contains(t, fields, "price")
	assert.Contains(t, fields, "category_id")
}

func TestCreateProduct_MalformedBodyRejected(t *testing.T) {
	env := newTestEnv()

	req := httptest.NewRequest(http.MethodPost, "/products", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateProduct_StorageConflictIsConflictStatus(t *testing.T) {
	env := newTestEnv()
	category := env.seedCategory(t, "Electronics")

	// Simulates a concurrent writer slipping past the advisory sku check
	env.products.createErr = &repository.ConflictError{
		Kind:       repository.ConflictUnique,
		Constraint: "products_sku_key",
		Message:    `duplicate value violates unique constraint "products_sku_key"`,
	}

	w := env.do(t, http.MethodPost, "/products", CreateProductRequest{
		SKU:        "SKU-RACE",
		Title:      "Raced",
		Price:      price("10.00"),
		CategoryID: category.ID,
	})

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestGetProduct_NotFound(t *testing.T) {
	env := newTestEnv()

	w := env.do(t, http.MethodGet, "/products/42", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetProduct_InvalidIDRejected(t *testing.T) {
	env := newTestEnv()

	w := env.do(t, http.MethodGet, "/products/abc", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateProduct_PartialBodyLeavesOtherFieldsIntact(t *testing.T) {
	env := newTestEnv()
	category := env.seedCategory(t, "Electronics")

	created := env.do(t, http.MethodPost, "/products", CreateProductRequest{
		SKU:        "SKU-001",
		Title:      "Old Title",
		Price:      price("99.50"),
		CategoryID: category.ID,
	})
	require.Equal(t, http.StatusCreated, created.Code)

	var product ProductResponse
	require.NoError(t, json.NewDecoder(created.Body).Decode(&product))

	w := env.do(t, http.MethodPatch, "/products/1", map[string]any{
		"title": "New Title",
	})

	require.Equal(t, http.StatusOK, w.Code)

	var updated ProductResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&updated))
	assert.Equal(t, "New Title", updated.Title)
	assert.Equal(t, "SKU-001", updated.SKU)
	assert.True(t, updated.Price.Equal(decimal.RequireFromString("99.50")))
}

func TestUpdateProduct_NotFound(t *testing.T) {
	env := newTestEnv()

	w := env.do(t, http.MethodPatch, "/products/42", map[string]any{
		"title": "New Title",
	})

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteProduct_NoContentThenGone(t *testing.T) {
	env := newTestEnv()
	category := env.seedCategory(t, "Electronics")

	created := env.do(t, http.MethodPost, "/products", CreateProductRequest{
		SKU:        "SKU-001",
		Title:      "Phone",
		Price:      price("10.00"),
		CategoryID: category.ID,
	})
	require.Equal(t, http.StatusCreated, created.Code)

	w := env.do(t, http.MethodDelete, "/products/1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodDelete, "/products/1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSearchProducts_InconsistentPriceRangeRejected(t *testing.T) {
	env := newTestEnv()

	w := env.do(t, http.MethodGet, "/products/search?min_price=50&max_price=10", nil)

	require.Equal(t, http.StatusBadRequest, w.Code)
	fields := decodeValidationFields(t, w)
	assert.Contains(t, fields, "min_price & max_price")
	assert.Nil(t, env.products.lastFilter)
}

func TestSearchProducts_MalformedValuesCollected(t *testing.T) {
	env := newTestEnv()

	w := env.do(t, http.MethodGet, "/products/search?min_price=abc&category_id=xyz&limit=0", nil)

	require.Equal(t, http.StatusBadRequest, w.Code)
	fields := decodeValidationFields(t, w)
	assert.Contains(t, fields, "min_price")
	assert.Contains(t, fields, "category_id")
	assert.Contains(t, fields, "limit")
}

func TestSearchProducts_DefaultsAndFiltersApplied(t *testing.T) {
	env := newTestEnv()
	category := env.seedCategory(t, "Electronics")

	for _, p := range []struct {
		sku, title, price string
	}{
		{"SKU-CASE-001", "Phone Case", "10.00"},
		{"SKU-PHONE-001", "Smart Phone", "500.00"},
	} {
		w := env.do(t, http.MethodPost, "/products", CreateProductRequest{
			SKU:        p.sku,
			Title:      p.title,
			Price:      price(p.price),
			CategoryID: category.ID,
		})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := env.do(t, http.MethodGet, "/products/search?title=phone&max_price=100", nil)

	require.Equal(t, http.StatusOK, w.Code)

	var products []ProductResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&products))
	require.Len(t, products, 1)
	assert.Equal(t, "SKU-CASE-001", products[0].SKU)

	require.NotNil(t, env.products.lastFilter)
	assert.Equal(t, service.DefaultSearchLimit, env.products.lastFilter.Limit)
	assert.Equal(t, service.DefaultSearchOffset, env.products.lastFilter.Offset)
}

func TestListProducts_EmptyStoreIsEmptyArray(t *testing.T) {
	env := newTestEnv()

	w := env.do(t, http.MethodGet, "/products", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]\n", w.Body.String())
}

// Feature: catalog, Property 4: Invalid product payloads never reach storage
func TestProperty_InvalidProductPayloadsNeverReachStorage(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("creation with invalid data returns a validation batch", prop.ForAll(
		func(invalidCase int) bool {
			env := newTestEnv()
			category := env.seedCategory(t, "Electronics")

			var reqBody CreateProductRequest

			switch invalidCase % 4 {
			case 0:
				// Missing sku
				reqBody = CreateProductRequest{
					Title:      "No SKU",
					Price:      price("10.00"),
					CategoryID: category.ID,
				}
			case 1:
				// Negative price
				reqBody = CreateProductRequest{
					SKU:        "SKU-001",
					Title:      "Negative",
					Price:      price("-0.01"),
					CategoryID: category.ID,
				}
			case 2:
				// Unknown category
				reqBody = CreateProductRequest{
					SKU:        "SKU-001",
					Title:      "Orphan",
					Price:      price("10.00"),
					CategoryID: category.ID + 999,
				}
			case 3:
				// Malformed image reference
				image := "not-a-url"
				reqBody = CreateProductRequest{
					SKU:        "SKU-001",
					Title:      "Bad Image",
					Image:      &image,
					Price:      price("10.00"),
					CategoryID: category.ID,
				}
			}

			w := env.do(t, http.MethodPost, "/products", reqBody)

			if w.Code != http.StatusBadRequest {
				t.Logf("FAIL: Expected 400 status code, got %d", w.Code)
				return false
			}

			if len(env.products.products) != 0 {
				t.Logf("FAIL: Invalid payload reached storage")
				return false
			}

			return true
		},
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
