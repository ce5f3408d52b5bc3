package app

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/linemk/storefront/internal/app/handlers"
	"github.com/linemk/storefront/internal/config"
	"github.com/linemk/storefront/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/storefront/internal/lib/logger/handlers/urllog"
	"github.com/linemk/storefront/internal/metrics"
	"github.com/linemk/storefront/internal/service"
	"github.com/linemk/storefront/internal/storage"
)

// NewRouter связывает репозитории, сервисы и обработчики
func NewRouter(log *slog.Logger, cfg *config.Config, db *sql.DB, orderNotifier service.OrderNotifier) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(urllog.CustomLoggerMiddleware(log))
	router.Use(metrics.Middleware)
	router.Use(middleware.Recoverer)

	// слои по работе с БД
	customerRepo := storage.NewCustomerRepository(db)
	productRepo := storage.NewProductRepository(db)
	categoryRepo := storage.NewCategoryRepository(db)
	cartRepo := storage.NewCartRepository(db)
	orderRepo := storage.NewOrderRepository(db)

	authService := service.NewAuthService(log, customerRepo, cfg.JWT.Secret, time.Duration(cfg.JWT.TokenTTL)*time.Minute)
	catalogService := service.NewCatalogService(log, productRepo, categoryRepo, cartRepo, orderRepo)
	checkoutService := service.NewCheckoutService(log, db, cartRepo, categoryRepo, orderRepo, orderNotifier, cfg.Checkout.LockTimeout)

	router.Get("/health", handlers.HealthHandler(log, db))
	router.Handle("/metrics", metrics.Handler())
	router.Post("/api/auth", handlers.AuthHandler(log, authService))

	router.Group(func(r chi.Router) {
		r.Use(jwtmiddleware.NewJWTMiddleware(cfg.JWT.Secret))

		r.Get("/products/", handlers.ListProductsHandler(log, catalogService))
		r.Get("/categories/", handlers.ListCategoriesHandler(log, catalogService))
		r.Get("/categories/{id}", handlers.GetCategoryHandler(log, catalogService))

		r.Post("/cart/", handlers.AddToCartHandler(log, catalogService))
		r.Get("/cart/", handlers.ListCartHandler(log, catalogService))

		r.Post("/order/", handlers.CheckoutHandler(log, checkoutService))
		r.Get("/order/", handlers.ListOrdersHandler(log, catalogService))
		r.Get("/order/{id}", handlers.GetOrderHandler(log, catalogService))
	})

	return router
}
