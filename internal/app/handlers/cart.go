package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/linemk/storefront/internal/domain/models"
	"github.com/linemk/storefront/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/storefront/internal/service"
)

// CartRequest - строка корзины; повторная отправка той же категории заменяет количество
type CartRequest struct {
	Category int64 `json:"category" validate:"required"`
	Quantity int   `json:"quantity" validate:"required,gt=0"`
}

type CartLineResponse struct {
	ID       int64 `json:"id"`
	Category int64 `json:"category"`
	Quantity int   `json:"quantity"`
}

func toCartLineResponse(l *models.CartLine) CartLineResponse {
	return CartLineResponse{ID: l.ID, Category: l.CategoryID, Quantity: l.Quantity}
}

// AddToCartHandler обрабатывает POST /cart/
func AddToCartHandler(log *slog.Logger, catalog service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.AddToCartHandler"
		logger := log.With(slog.String("op", op))

		customerID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("customerID not found in context")
			writeError(w, logger, http.StatusUnauthorized, "not_authenticated", map[string]string{nonFieldErrors: "unauthorized"})
			return
		}

		var req CartRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			writeInvalidBody(w, logger)
			return
		}
		if err := validate.Struct(req); err != nil {
			writeValidationErrors(w, logger, err)
			return
		}

		line, err := catalog.AddToCart(r.Context(), customerID, req.Category, req.Quantity)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusCreated, toCartLineResponse(line))
	}
}

// ListCartHandler обрабатывает GET /cart/
func ListCartHandler(log *slog.Logger, catalog service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListCartHandler"
		logger := log.With(slog.String("op", op))

		customerID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("customerID not found in context")
			writeError(w, logger, http.StatusUnauthorized, "not_authenticated", map[string]string{nonFieldErrors: "unauthorized"})
			return
		}

		lines, err := catalog.ListCart(r.Context(), customerID)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		resp := make([]CartLineResponse, 0, len(lines))
		for _, l := range lines {
			resp = append(resp, toCartLineResponse(l))
		}
		writeJSON(w, logger, http.StatusOK, resp)
	}
}
