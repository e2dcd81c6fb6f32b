package transport

import (
	"errors"
	"net/http"

	"catalog-api/internal/middleware"
	"catalog-api/internal/repository"
	"catalog-api/internal/service"

	"go.uber.org/zap"
)

// respondServiceError translates service-layer failures into structured
// responses: aggregated validation errors map to 400, missing entities to
// 404, storage constraint violations to 409, anything else to 500.
func respondServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var validationErrs service.ValidationErrors
	if errors.As(err, &validationErrs) {
		formatted := make([]middleware.ValidationError, 0, len(validationErrs))
		for _, fieldErr := range validationErrs {
			formatted = append(formatted, middleware.ValidationError{
				Field:   fieldErr.Field,
				Message: fieldErr.Message,
			})
		}
		middleware.RespondWithValidationErrors(w, formatted)
		return
	}

	if errors.Is(err, repository.ErrProductNotFound) {
		middleware.RespondWithError(w, http.StatusNotFound, "Product not found")
		return
	}
	if errors.Is(err, repository.ErrCategoryNotFound) {
		middleware.RespondWithError(w, http.StatusNotFound, "Category not found")
		return
	}

	var conflict *repository.ConflictError
	if errors.As(err, &conflict) {
		middleware.RespondWithError(w, http.StatusConflict, conflict.Message)
		return
	}

	logger.Error("Unhandled service error", zap.Error(err))
	middleware.RespondWithError(w, http.StatusInternalServerError, "internal server error")
}
