package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/linemk/storefront/internal/domain/models"
	"github.com/linemk/storefront/internal/service"
)

// CategoryResponse - цена отдаётся строкой с двумя знаками
type CategoryResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	Price       string `json:"price"`
	Product     int64  `json:"product"`
}

func toCategoryResponse(c *models.Category) CategoryResponse {
	return CategoryResponse{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		Quantity:    c.Quantity,
		Price:       c.Price.StringFixed(2),
		Product:     c.ProductID,
	}
}

// ListProductsHandler обрабатывает GET /products/
func ListProductsHandler(log *slog.Logger, catalog service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListProductsHandler"
		logger := log.With(slog.String("op", op))

		products, err := catalog.ListProducts(r.Context())
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		if products == nil {
			products = []*models.Product{}
		}
		writeJSON(w, logger, http.StatusOK, products)
	}
}

// ListCategoriesHandler обрабатывает GET /categories/; покупателю видны только категории в наличии
func ListCategoriesHandler(log *slog.Logger, catalog service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListCategoriesHandler"
		logger := log.With(slog.String("op", op))

		categories, err := catalog.ListCategories(r.Context(), true)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		resp := make([]CategoryResponse, 0, len(categories))
		for _, c := range categories {
			resp = append(resp, toCategoryResponse(c))
		}
		writeJSON(w, logger, http.StatusOK, resp)
	}
}

// GetCategoryHandler обрабатывает GET /categories/{id}
func GetCategoryHandler(log *slog.Logger, catalog service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetCategoryHandler"
		logger := log.With(slog.String("op", op))

		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			writeError(w, logger, http.StatusNotFound, "not_found", map[string]string{nonFieldErrors: "Not found."})
			return
		}

		category, err := catalog.GetCategory(r.Context(), id)
		if err != nil {
			var categoryErr *service.CategoryNotFoundError
			if errors.As(err, &categoryErr) {
				writeError(w, logger, http.StatusNotFound, "not_found", map[string]string{nonFieldErrors: "Not found."})
				return
			}
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, toCategoryResponse(category))
	}
}
