package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/linemk/storefront/internal/domain/models"
	security "github.com/linemk/storefront/internal/jwt-new"
	"github.com/linemk/storefront/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	log          *slog.Logger
	customerRepo storage.CustomerStorage
	secret       string
	tokenTTL     time.Duration
}

func NewAuthService(log *slog.Logger, customerRepo storage.CustomerStorage, secret string, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		log:          log,
		customerRepo: customerRepo,
		secret:       secret,
		tokenTTL:     tokenTTL,
	}
}

type AuthServiceInterface interface {
	Login(ctx context.Context, email, password string) (string, error)
}

// Login аутентифицирует покупателя по email и паролю.
// Новый email регистрируется сразу (bcrypt), для существующего пароль сверяется с хэшем.
// Неактивный покупатель войти не может
func (a *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	const op = "auth.Login"
	logger := a.log.With(
		slog.String("op", op),
		slog.String("email", email),
	)
	logger.Info("checking customer")

	customer, err := a.customerRepo.GetCustomerByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, storage.ErrCustomerNotFound) {
			logger.Error("failed to get customer", slog.Any("error", err))
			return "", fmt.Errorf("%s: failed to get customer: %w", op, err)
		}

		logger.Info("customer not found, registering")
		passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			logger.Error("failed to hash password", slog.Any("error", err))
			return "", fmt.Errorf("%s: failed to hash password: %w", op, err)
		}
		customer, err = a.customerRepo.CreateCustomer(ctx, &models.Customer{
			Email:    email,
			PassHash: passHash,
		})
		if err != nil {
			logger.Error("failed to create customer", slog.Any("error", err))
			return "", fmt.Errorf("%s: failed to create customer: %w", op, err)
		}
	} else {
		if err := bcrypt.CompareHashAndPassword(customer.PassHash, []byte(password)); err != nil {
			logger.Warn("invalid password")
			return "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		if !customer.IsActive {
			logger.Warn("customer is inactive")
			return "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
	}

	token, err := security.NewToken(customer, a.secret, a.tokenTTL)
	if err != nil {
		logger.Error("failed to generate token", slog.Any("error", err))
		return "", fmt.Errorf("%s: failed to generate token: %w", op, err)
	}

	logger.Info("customer logged in successfully", slog.Int64("customerID", customer.ID))
	return token, nil
}
