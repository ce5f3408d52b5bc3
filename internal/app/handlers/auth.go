package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/linemk/storefront/internal/service"
)

// AuthRequest представляет структуру запроса для аутентификации с тегами валидации
type AuthRequest struct {
	Username string `json:"username" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// AuthResponse представляет структуру ответа с JWT-токеном
type AuthResponse struct {
	Token string `json:"token"`
}

// AuthHandler – HTTP-обработчик для аутентификации, принимает логгер и экземпляр AuthService
func AuthHandler(log *slog.Logger, authService service.AuthServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.AuthHandler"
		logger := log.With(slog.String("op", op))

		var req AuthRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			writeInvalidBody(w, logger)
			return
		}

		if err := validate.Struct(req); err != nil {
			logger.Info("invalid request: validation error", slog.Any("error", err))
			writeValidationErrors(w, logger, err)
			return
		}

		token, err := authService.Login(r.Context(), req.Username, req.Password)
		if err != nil {
			logger.Warn("login failed", slog.Any("error", err))
			writeError(w, logger, http.StatusUnauthorized, "authentication_failed", map[string]string{nonFieldErrors: "Invalid credentials."})
			return
		}

		writeJSON(w, logger, http.StatusOK, AuthResponse{Token: token})
	}
}
