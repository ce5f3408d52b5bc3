package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/linemk/storefront/internal/domain/models"
	"github.com/linemk/storefront/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/storefront/internal/service"
)

// CheckoutRequest - тело POST /order/; детали проверяет сервис
type CheckoutRequest struct {
	Details models.DeliveryDetails `json:"details"`
}

// OrderResponse - amount строкой с двумя знаками
type OrderResponse struct {
	ID        int64                  `json:"id"`
	Details   models.DeliveryDetails `json:"details"`
	Amount    string                 `json:"amount"`
	CreatedAt time.Time              `json:"created_at"`
}

func toOrderResponse(o *models.Order) OrderResponse {
	return OrderResponse{
		ID:        o.ID,
		Details:   o.Details,
		Amount:    o.Amount.StringFixed(2),
		CreatedAt: o.CreatedAt,
	}
}

// CheckoutHandler обрабатывает POST /order/: оформляет корзину в заказ
func CheckoutHandler(log *slog.Logger, checkout service.CheckoutService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CheckoutHandler"
		logger := log.With(slog.String("op", op))

		customerID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("customerID not found in context")
			writeError(w, logger, http.StatusUnauthorized, "not_authenticated", map[string]string{nonFieldErrors: "unauthorized"})
			return
		}

		var req CheckoutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			writeInvalidBody(w, logger)
			return
		}

		order, err := checkout.Checkout(r.Context(), customerID, req.Details)
		if err != nil {
			logger.Info("checkout failed", slog.Int64("customerID", customerID), slog.Any("error", err))
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusCreated, toOrderResponse(order))
	}
}

// ListOrdersHandler обрабатывает GET /order/
func ListOrdersHandler(log *slog.Logger, catalog service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListOrdersHandler"
		logger := log.With(slog.String("op", op))

		customerID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			writeError(w, logger, http.StatusUnauthorized, "not_authenticated", map[string]string{nonFieldErrors: "unauthorized"})
			return
		}

		orders, err := catalog.ListOrders(r.Context(), customerID)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		resp := make([]OrderResponse, 0, len(orders))
		for _, o := range orders {
			resp = append(resp, toOrderResponse(o))
		}
		writeJSON(w, logger, http.StatusOK, resp)
	}
}

// GetOrderHandler обрабатывает GET /order/{id}
func GetOrderHandler(log *slog.Logger, catalog service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetOrderHandler"
		logger := log.With(slog.String("op", op))

		customerID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			writeError(w, logger, http.StatusUnauthorized, "not_authenticated", map[string]string{nonFieldErrors: "unauthorized"})
			return
		}

		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			writeError(w, logger, http.StatusNotFound, "not_found", map[string]string{nonFieldErrors: "Not found."})
			return
		}

		order, err := catalog.GetOrder(r.Context(), customerID, id)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, toOrderResponse(order))
	}
}
