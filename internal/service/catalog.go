package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/linemk/storefront/internal/domain/models"
	"github.com/linemk/storefront/internal/storage"
)

// CatalogService - витрина, корзина и история заказов покупателя
type CatalogService interface {
	ListProducts(ctx context.Context) ([]*models.Product, error)
	ListCategories(ctx context.Context, inStockOnly bool) ([]*models.Category, error)
	GetCategory(ctx context.Context, id int64) (*models.Category, error)
	AddToCart(ctx context.Context, customerID, categoryID int64, quantity int) (*models.CartLine, error)
	ListCart(ctx context.Context, customerID int64) ([]*models.CartLine, error)
	ListOrders(ctx context.Context, customerID int64) ([]*models.Order, error)
	GetOrder(ctx context.Context, customerID, orderID int64) (*models.Order, error)
}

type catalogService struct {
	log          *slog.Logger
	productRepo  storage.ProductStorage
	categoryRepo storage.CategoryStorage
	cartRepo     storage.CartStorage
	orderRepo    storage.OrderStorage
}

func NewCatalogService(
	log *slog.Logger,
	productRepo storage.ProductStorage,
	categoryRepo storage.CategoryStorage,
	cartRepo storage.CartStorage,
	orderRepo storage.OrderStorage,
) CatalogService {
	return &catalogService{
		log:          log,
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		cartRepo:     cartRepo,
		orderRepo:    orderRepo,
	}
}

func (s *catalogService) ListProducts(ctx context.Context) ([]*models.Product, error) {
	const op = "service.CatalogService.ListProducts"

	products, err := s.productRepo.ListProducts(ctx)
	if err != nil {
		s.log.Error("failed to list products", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return products, nil
}

func (s *catalogService) ListCategories(ctx context.Context, inStockOnly bool) ([]*models.Category, error) {
	const op = "service.CatalogService.ListCategories"

	categories, err := s.categoryRepo.ListCategories(ctx, inStockOnly)
	if err != nil {
		s.log.Error("failed to list categories", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return categories, nil
}

func (s *catalogService) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	const op = "service.CatalogService.GetCategory"

	category, err := s.categoryRepo.GetCategory(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrCategoryNotFound) {
			return nil, &CategoryNotFoundError{CategoryID: id}
		}
		s.log.Error("failed to get category", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return category, nil
}

// AddToCart кладёт категорию в корзину или заменяет количество в уже лежащей строке.
// Остаток проверяется без блокировки; окончательная проверка - в Checkout
func (s *catalogService) AddToCart(ctx context.Context, customerID, categoryID int64, quantity int) (*models.CartLine, error) {
	const op = "service.CatalogService.AddToCart"
	logger := s.log.With(
		slog.String("op", op),
		slog.Int64("customerID", customerID),
		slog.Int64("categoryID", categoryID),
	)

	if quantity <= 0 {
		return nil, &ValidationError{Field: "quantity", Message: "Value must be a positive integer"}
	}

	category, err := s.categoryRepo.GetCategory(ctx, categoryID)
	if err != nil {
		if errors.Is(err, storage.ErrCategoryNotFound) {
			return nil, &ValidationError{Field: "category", Message: "Category not found."}
		}
		logger.Error("failed to get category", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get category: %w", op, err)
	}

	if quantity > category.Quantity {
		logger.Info("requested more than in stock", slog.Int("available", category.Quantity), slog.Int("requested", quantity))
		return nil, &ValidationError{
			Field:   "quantity",
			Message: category.Name + " has less stock than the chosen amount.",
		}
	}

	line, err := s.cartRepo.UpsertCartLine(ctx, customerID, categoryID, quantity)
	if err != nil {
		logger.Error("failed to upsert cart line", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logger.Info("cart line saved", slog.Int("quantity", line.Quantity))
	return line, nil
}

func (s *catalogService) ListCart(ctx context.Context, customerID int64) ([]*models.CartLine, error) {
	const op = "service.CatalogService.ListCart"

	lines, err := s.cartRepo.ListPendingLines(ctx, customerID)
	if err != nil {
		s.log.Error("failed to list cart", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return lines, nil
}

func (s *catalogService) ListOrders(ctx context.Context, customerID int64) ([]*models.Order, error) {
	const op = "service.CatalogService.ListOrders"

	orders, err := s.orderRepo.GetOrdersByCustomerID(ctx, customerID)
	if err != nil {
		s.log.Error("failed to list orders", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return orders, nil
}

// GetOrder отдаёт заказ только его владельцу; чужой заказ неотличим от несуществующего
func (s *catalogService) GetOrder(ctx context.Context, customerID, orderID int64) (*models.Order, error) {
	const op = "service.CatalogService.GetOrder"

	order, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			return nil, storage.ErrOrderNotFound
		}
		s.log.Error("failed to get order", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if order.CustomerID != customerID {
		return nil, storage.ErrOrderNotFound
	}
	return order, nil
}
