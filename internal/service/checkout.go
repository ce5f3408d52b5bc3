package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/linemk/storefront/internal/domain/models"
	"github.com/linemk/storefront/internal/metrics"
	"github.com/linemk/storefront/internal/storage"
	"github.com/shopspring/decimal"
)

const enqueueTimeout = 5 * time.Second

// MaxOrderAmount - наибольшее значение orders.amount NUMERIC(10,2)
var MaxOrderAmount = decimal.RequireFromString("99999999.99")

// OrderNotifier ставит уведомление о новом заказе в очередь
type OrderNotifier interface {
	Enqueue(ctx context.Context, orderID int64) error
}

type CheckoutService interface {
	Checkout(ctx context.Context, customerID int64, details models.DeliveryDetails) (*models.Order, error)
}

type checkoutService struct {
	log          *slog.Logger
	db           *sql.DB
	cartRepo     storage.CartStorage
	categoryRepo storage.CategoryStorage
	orderRepo    storage.OrderStorage
	notifier     OrderNotifier
	lockTimeout  time.Duration
}

func NewCheckoutService(
	log *slog.Logger,
	db *sql.DB,
	cartRepo storage.CartStorage,
	categoryRepo storage.CategoryStorage,
	orderRepo storage.OrderStorage,
	notifier OrderNotifier,
	lockTimeout time.Duration,
) CheckoutService {
	return &checkoutService{
		log:          log,
		db:           db,
		cartRepo:     cartRepo,
		categoryRepo: categoryRepo,
		orderRepo:    orderRepo,
		notifier:     notifier,
		lockTimeout:  lockTimeout,
	}
}

// Checkout оформляет все неоформленные строки корзины в один заказ.
// Строки и категории блокируются до проверки остатков; любая ошибка откатывает транзакцию целиком.
// Уведомление ставится в очередь только после коммита, и его ошибка заказ не отменяет
func (s *checkoutService) Checkout(ctx context.Context, customerID int64, details models.DeliveryDetails) (order *models.Order, err error) {
	const op = "service.CheckoutService.Checkout"
	logger := s.log.With(slog.String("op", op), slog.Int64("customerID", customerID))
	started := time.Now()
	defer func() {
		metrics.ObserveCheckout(checkoutOutcome(err), started)
	}()

	details, err = ValidateDeliveryDetails(details)
	if err != nil {
		logger.Info("invalid delivery details", slog.Any("error", err))
		return nil, err
	}

	logger.Info("starting checkout transaction")
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	rollback := func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
	}

	if err := storage.SetLockTimeoutTx(ctx, tx, s.lockTimeout); err != nil {
		rollback()
		logger.Error("failed to set lock timeout", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lines, err := s.cartRepo.LockPendingLinesTx(ctx, tx, customerID)
	if err != nil {
		rollback()
		logger.Error("failed to lock cart lines", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to lock cart lines: %w", op, err)
	}
	if len(lines) == 0 {
		rollback()
		logger.Info("cart is empty")
		return nil, ErrEmptyCart
	}

	categoryIDs := make([]int64, 0, len(lines))
	lineIDs := make([]int64, 0, len(lines))
	seen := make(map[int64]bool, len(lines))
	for _, l := range lines {
		lineIDs = append(lineIDs, l.ID)
		if !seen[l.CategoryID] {
			seen[l.CategoryID] = true
			categoryIDs = append(categoryIDs, l.CategoryID)
		}
	}

	categories, err := s.categoryRepo.LockCategoriesTx(ctx, tx, categoryIDs)
	if err != nil {
		rollback()
		logger.Error("failed to lock categories", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to lock categories: %w", op, err)
	}

	report, err := CheckStock(lines, categories)
	if err != nil {
		rollback()
		logger.Warn("cart references a missing category", slog.Any("error", err))
		return nil, err
	}
	if shortage := report.Shortage(); shortage != nil {
		rollback()
		logger.Warn("insufficient stock",
			slog.Int64("categoryID", shortage.CategoryID),
			slog.Int("available", shortage.Available),
			slog.Int("requested", shortage.Requested),
		)
		return nil, shortage
	}

	if report.Total.GreaterThan(MaxOrderAmount) {
		rollback()
		logger.Warn("order total too large", slog.String("total", report.Total.StringFixed(2)))
		return nil, ErrAmountTooLarge
	}

	order, err = s.orderRepo.CreateOrderTx(ctx, tx, customerID, details, report.Total)
	if err != nil {
		rollback()
		logger.Error("failed to create order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to create order: %w", op, err)
	}

	attached, err := s.cartRepo.AttachToOrderTx(ctx, tx, order.ID, lineIDs)
	if err != nil {
		rollback()
		logger.Error("failed to attach cart lines", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to attach cart lines: %w", op, err)
	}
	if attached != int64(len(lineIDs)) {
		rollback()
		logger.Error("cart lines changed during checkout", slog.Int64("attached", attached), slog.Int("locked", len(lineIDs)))
		return nil, fmt.Errorf("%s: attached %d of %d cart lines", op, attached, len(lineIDs))
	}

	// одно списание на категорию
	for _, id := range categoryIDs {
		qty := 0
		for _, lc := range report.Lines {
			if lc.Category.ID == id {
				qty += lc.Line.Quantity
			}
		}
		if err := s.categoryRepo.DecrementQuantityTx(ctx, tx, id, qty); err != nil {
			rollback()
			logger.Error("failed to decrement stock", slog.Int64("categoryID", id), slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to decrement stock: %w", op, err)
		}
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	logger.Info("order committed",
		slog.Int64("orderID", order.ID),
		slog.String("amount", order.Amount.StringFixed(2)),
	)
	s.enqueueNotification(ctx, logger, order.ID)
	return order, nil
}

// enqueueNotification не зависит от отмены запроса и не влияет на результат checkout
func (s *checkoutService) enqueueNotification(ctx context.Context, logger *slog.Logger, orderID int64) {
	if s.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), enqueueTimeout)
	defer cancel()

	if err := s.notifier.Enqueue(ctx, orderID); err != nil {
		logger.Error("failed to enqueue order notification", slog.Int64("orderID", orderID), slog.Any("error", err))
		metrics.ObserveNotification(metrics.NotificationEnqueueFailed)
	}
}

func checkoutOutcome(err error) string {
	var (
		validationErr *ValidationError
		stockErr      *InsufficientStockError
		categoryErr   *CategoryNotFoundError
	)
	switch {
	case err == nil:
		return metrics.OutcomeCommitted
	case errors.As(err, &validationErr):
		return metrics.OutcomeValidation
	case errors.Is(err, ErrAmountTooLarge):
		return metrics.OutcomeValidation
	case errors.Is(err, ErrEmptyCart):
		return metrics.OutcomeEmptyCart
	case errors.As(err, &stockErr):
		return metrics.OutcomeInsufficientStock
	case errors.As(err, &categoryErr):
		return metrics.OutcomeCategoryNotFound
	case errors.Is(err, ErrLockTimeout):
		return metrics.OutcomeLockTimeout
	default:
		return metrics.OutcomeError
	}
}
