package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/linemk/storefront/internal/domain/models"
	"github.com/shopspring/decimal"
)

// OrderStorage описывает методы для работы с заказами.
type OrderStorage interface {
	// CreateOrderTx вставляет новый заказ в таблицу orders с использованием транзакции.
	CreateOrderTx(ctx context.Context, tx *sql.Tx, customerID int64, details models.DeliveryDetails, amount decimal.Decimal) (*models.Order, error)
	// GetOrderByID возвращает заказ по идентификатору.
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	// GetOrdersByCustomerID возвращает заказы покупателя, новые первыми.
	GetOrdersByCustomerID(ctx context.Context, customerID int64) ([]*models.Order, error)
}

// orderRepository - конкретная реализация OrderStorage.
type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт новый репозиторий заказов.
func NewOrderRepository(db *sql.DB) OrderStorage {
	return &orderRepository{db: db}
}

// CreateOrderTx вставляет новый заказ и возвращает его с id и created_at.
func (r *orderRepository) CreateOrderTx(ctx context.Context, tx *sql.Tx, customerID int64, details models.DeliveryDetails, amount decimal.Decimal) (*models.Order, error) {
	raw, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("failed to encode order details: %w", err)
	}

	order := &models.Order{
		CustomerID: customerID,
		Details:    details,
		Amount:     amount,
	}
	query := `INSERT INTO orders (customer_id, details, amount, created_at)
	          VALUES ($1, $2, $3, NOW())
	          RETURNING id, created_at`
	if err := tx.QueryRowContext(ctx, query, customerID, raw, amount).Scan(&order.ID, &order.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	return order, nil
}

func scanOrder(row rowScanner) (*models.Order, error) {
	order := &models.Order{}
	var raw []byte
	if err := row.Scan(&order.ID, &order.CustomerID, &raw, &order.Amount, &order.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &order.Details); err != nil {
		return nil, fmt.Errorf("failed to decode order details: %w", err)
	}
	return order, nil
}

func (r *orderRepository) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	query := `SELECT id, customer_id, details, amount, created_at FROM orders WHERE id = $1 AND deleted_at IS NULL`
	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

// GetOrdersByCustomerID возвращает список заказов покупателя.
func (r *orderRepository) GetOrdersByCustomerID(ctx context.Context, customerID int64) ([]*models.Order, error) {
	query := `
		SELECT id, customer_id, details, amount, created_at
		FROM orders
		WHERE customer_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}
