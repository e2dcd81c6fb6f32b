package transport

import (
	"net/http"
	"strconv"

	"catalog-api/internal/domain"
	"catalog-api/internal/middleware"
	"catalog-api/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateProductRequest represents the product creation payload
type CreateProductRequest struct {
	SKU         string           `json:"sku" validate:"required,min=1,max=64"`
	Title       string           `json:"title" validate:"required,min=1,max=255"`
	Description *string          `json:"description"`
	Image       *string          `json:"image" validate:"omitempty,url"`
	Price       *decimal.Decimal `json:"price" validate:"required"`
	CategoryID  int64            `json:"category_id" validate:"required,gt=0"`
}

// UpdateProductRequest represents a partial product update payload. Absent
// fields leave the stored values untouched.
type UpdateProductRequest struct {
	SKU         *string          `json:"sku" validate:"omitempty,min=1,max=64"`
	Title       *string          `json:"title" validate:"omitempty,min=1,max=255"`
	Description *string          `json:"description"`
	Image       *string          `json:"image" validate:"omitempty,url"`
	Price       *decimal.Decimal `json:"price"`
	CategoryID  *int64           `json:"category_id" validate:"omitempty,gt=0"`
}

// searchQuery carries the parsed search parameters for bounds validation
type searchQuery struct {
	Title      *string `json:"title" validate:"omitempty,min=1,max=255"`
	SKU        *string `json:"sku" validate:"omitempty,min=1,max=64"`
	CategoryID *int64  `json:"category_id" validate:"omitempty,gt=0"`
	Limit      *int    `json:"limit" validate:"omitempty,gte=1,lte=100"`
	Offset     *int    `json:"offset" validate:"omitempty,gte=0"`
}

// CategorySummaryResponse is the compact category shape on product reads
type CategorySummaryResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ProductResponse represents a product in API responses
type ProductResponse struct {
	ID          int64                    `json:"id"`
	SKU         string                   `json:"sku"`
	Title       string                   `json:"title"`
	Description *string                  `json:"description"`
	Image       *string                  `json:"image"`
	Price       decimal.Decimal          `json:"price"`
	CategoryID  int64                    `json:"category_id"`
	Category    *CategorySummaryResponse `json:"category,omitempty"`
}

func toProductResponse(product *domain.Product) ProductResponse {
	resp := ProductResponse{
		ID:          product.ID,
		SKU:         product.SKU,
		Title:       product.Title,
		Description: product.Description,
		Image:       product.Image,
		Price:       product.Price,
		CategoryID:  product.CategoryID,
	}
	if product.Category != nil {
		resp.Category = &CategorySummaryResponse{
			ID:   product.Category.ID,
			Name: product.Category.Name,
		}
	}
	return resp
}

func toProductResponses(products []*domain.Product) []ProductResponse {
	responses := make([]ProductResponse, 0, len(products))
	for _, product := range products {
		responses = append(responses, toProductResponse(product))
	}
	return responses
}

// ProductHandler handles HTTP requests for product operations
type ProductHandler struct {
	productService service.ProductService
	logger         *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService service.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		logger:         logger,
	}
}

// RegisterRoutes registers all product routes
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/search", h.Search)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Patch("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

// List handles listing all products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.productService.List(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toProductResponses(products))
}

// Search handles the filtered, paginated product search
func (h *ProductHandler) Search(w http.ResponseWriter, r *http.Request) {
	input, validationErrs := parseSearchQuery(r)
	if len(validationErrs) > 0 {
		middleware.RespondWithValidationErrors(w, validationErrs)
		return
	}

	products, err := h.productService.Search(r.Context(), input)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toProductResponses(products))
}

// Get handles retrieving a single product by id
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	product, err := h.productService.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toProductResponse(product))
}

// Create handles product creation
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Product create validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.productService.Create(r.Context(), service.CreateProductInput{
		SKU:         req.SKU,
		Title:       req.Title,
		Description: req.Description,
		Image:       req.Image,
		Price:       *req.Price,
		CategoryID:  req.CategoryID,
	})
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Product created", zap.Int64("product_id", product.ID), zap.String("sku", product.SKU))
	middleware.RespondWithJSON(w, http.StatusCreated, toProductResponse(product))
}

// Update handles partial product updates
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	var req UpdateProductRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Product update validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.productService.Update(r.Context(), id, service.UpdateProductInput{
		SKU:         req.SKU,
		Title:       req.Title,
		Description: req.Description,
		Image:       req.Image,
		Price:       req.Price,
		CategoryID:  req.CategoryID,
	})
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Product updated", zap.Int64("product_id", product.ID))
	middleware.RespondWithJSON(w, http.StatusOK, toProductResponse(product))
}

// Delete handles product deletion
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	if err := h.productService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Product deleted", zap.Int64("product_id", id))
	w.WriteHeader(http.StatusNoContent)
}

// parseIDParam extracts and parses the {id} route parameter. On failure it
// writes a 400 response and returns ok=false.
func parseIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

// parseSearchQuery reads the search filters from the query string. Malformed
// values and out-of-bounds pagination are collected as field errors so the
// caller sees every problem at once.
func parseSearchQuery(r *http.Request) (service.SearchInput, []middleware.ValidationError) {
	query := r.URL.Query()

	var input service.SearchInput
	var errs []middleware.ValidationError

	if query.Has("title") {
		title := query.Get("title")
		input.Title = &title
	}

	if query.Has("sku") {
		sku := query.Get("sku")
		input.SKU = &sku
	}

	if raw := query.Get("min_price"); raw != "" {
		minPrice, err := decimal.NewFromString(raw)
		if err != nil {
			errs = append(errs, middleware.ValidationError{Field: "min_price", Message: "must be a valid decimal number"})
		} else {
			input.MinPrice = &minPrice
		}
	}

	if raw := query.Get("max_price"); raw != "" {
		maxPrice, err := decimal.NewFromString(raw)
		if err != nil {
			errs = append(errs, middleware.ValidationError{Field: "max_price", Message: "must be a valid decimal number"})
		} else {
			input.MaxPrice = &maxPrice
		}
	}

	if raw := query.Get("category_id"); raw != "" {
		categoryID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			errs = append(errs, middleware.ValidationError{Field: "category_id", Message: "must be a valid integer"})
		} else {
			input.CategoryID = &categoryID
		}
	}

	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, middleware.ValidationError{Field: "limit", Message: "must be a valid integer"})
		} else {
			input.Limit = &limit
		}
	}

	if raw := query.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, middleware.ValidationError{Field: "offset", Message: "must be a valid integer"})
		} else {
			input.Offset = &offset
		}
	}

	bounds := searchQuery{
		Title:      input.Title,
		SKU:        input.SKU,
		CategoryID: input.CategoryID,
		Limit:      input.Limit,
		Offset:     input.Offset,
	}
	if err := middleware.ValidateRequest(bounds); err != nil {
		errs = append(errs, middleware.FormatValidationErrors(err)...)
	}

	return input, errs
}
