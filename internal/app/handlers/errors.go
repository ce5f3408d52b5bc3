package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/linemk/storefront/internal/service"
	"github.com/linemk/storefront/internal/storage"
)

const nonFieldErrors = "non_field_errors"

// ErrorResponse - общий формат ошибки: код причины и сообщения по полям
type ErrorResponse struct {
	Code   string            `json:"code"`
	Errors map[string]string `json:"errors"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", slog.Any("error", err))
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, code string, fields map[string]string) {
	writeJSON(w, logger, status, ErrorResponse{Code: code, Errors: fields})
}

func writeInvalidBody(w http.ResponseWriter, logger *slog.Logger) {
	writeError(w, logger, http.StatusBadRequest, "parse_error", map[string]string{nonFieldErrors: "Malformed request body."})
}

// writeValidationErrors раскладывает ошибки validator по json-именам полей
func writeValidationErrors(w http.ResponseWriter, logger *slog.Logger, err error) {
	fields := make(map[string]string)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			fields[fe.Field()] = fieldMessage(fe)
		}
	} else {
		fields[nonFieldErrors] = "Invalid request."
	}
	writeError(w, logger, http.StatusBadRequest, "invalid", fields)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "min":
		return "Ensure this field has at least " + fe.Param() + " characters."
	case "gt":
		return "Ensure this value is greater than " + fe.Param() + "."
	default:
		return "Invalid value."
	}
}

// writeServiceError переводит ошибки сервисов в статус и тело ответа.
// Внутренние ошибки наружу не раскрываются
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var (
		validationErr *service.ValidationError
		stockErr      *service.InsufficientStockError
		categoryErr   *service.CategoryNotFoundError
	)
	switch {
	case errors.As(err, &validationErr):
		writeError(w, logger, http.StatusBadRequest, "invalid", map[string]string{validationErr.Field: validationErr.Message})
	case errors.Is(err, service.ErrEmptyCart):
		writeError(w, logger, http.StatusBadRequest, "empty_cart", map[string]string{nonFieldErrors: "Your cart is empty."})
	case errors.Is(err, service.ErrAmountTooLarge):
		writeError(w, logger, http.StatusBadRequest, "amount_too_large", map[string]string{nonFieldErrors: "Order total exceeds the maximum allowed amount."})
	case errors.As(err, &stockErr):
		writeError(w, logger, http.StatusBadRequest, "insufficient_stock", map[string]string{"quantity": stockErr.Error()})
	case errors.As(err, &categoryErr):
		writeError(w, logger, http.StatusBadRequest, "category_not_found", map[string]string{"category": "Category not found."})
	case errors.Is(err, service.ErrLockTimeout):
		w.Header().Set("Retry-After", "1")
		writeError(w, logger, http.StatusServiceUnavailable, "lock_timeout", map[string]string{nonFieldErrors: storage.ErrLockTimeout.Error()})
	case errors.Is(err, storage.ErrOrderNotFound):
		writeError(w, logger, http.StatusNotFound, "not_found", map[string]string{nonFieldErrors: "Not found."})
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, logger, http.StatusUnauthorized, "authentication_failed", map[string]string{nonFieldErrors: "Invalid credentials."})
	default:
		logger.Error("internal error", slog.Any("error", err))
		writeError(w, logger, http.StatusInternalServerError, "internal_error", map[string]string{nonFieldErrors: "internal server error"})
	}
}
