package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/linemk/storefront/internal/domain/models"
)

// CartStorage описывает методы для работы со строками корзины (таблица order_categories).
type CartStorage interface {
	// UpsertCartLine создаёт строку корзины или заменяет количество у уже существующей
	// неоформленной строки той же категории.
	UpsertCartLine(ctx context.Context, customerID, categoryID int64, quantity int) (*models.CartLine, error)
	// ListPendingLines возвращает неоформленные строки покупателя.
	ListPendingLines(ctx context.Context, customerID int64) ([]*models.CartLine, error)
	// LockPendingLinesTx блокирует (FOR UPDATE) неоформленные строки покупателя.
	LockPendingLinesTx(ctx context.Context, tx *sql.Tx, customerID int64) ([]*models.CartLine, error)
	// AttachToOrderTx переносит строки в заказ; возвращает число перенесённых строк.
	AttachToOrderTx(ctx context.Context, tx *sql.Tx, orderID int64, lineIDs []int64) (int64, error)
}

type cartRepository struct {
	db *sql.DB
}

func NewCartRepository(db *sql.DB) CartStorage {
	return &cartRepository{db: db}
}

const cartLineColumns = "id, customer_id, category_id, quantity, order_id, created_at"

func scanCartLines(rows *sql.Rows) ([]*models.CartLine, error) {
	var lines []*models.CartLine
	for rows.Next() {
		l := &models.CartLine{}
		if err := rows.Scan(&l.ID, &l.CustomerID, &l.CategoryID, &l.Quantity, &l.OrderID, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cart line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, nil
}

func (r *cartRepository) UpsertCartLine(ctx context.Context, customerID, categoryID int64, quantity int) (*models.CartLine, error) {
	query := `INSERT INTO order_categories (customer_id, category_id, quantity)
	          VALUES ($1, $2, $3)
	          ON CONFLICT (customer_id, category_id) WHERE order_id IS NULL
	          DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = NOW()
	          RETURNING ` + cartLineColumns
	l := &models.CartLine{}
	err := r.db.QueryRowContext(ctx, query, customerID, categoryID, quantity).
		Scan(&l.ID, &l.CustomerID, &l.CategoryID, &l.Quantity, &l.OrderID, &l.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert cart line: %w", err)
	}
	return l, nil
}

func (r *cartRepository) ListPendingLines(ctx context.Context, customerID int64) ([]*models.CartLine, error) {
	query := "SELECT " + cartLineColumns + ` FROM order_categories
	          WHERE customer_id = $1 AND order_id IS NULL AND deleted_at IS NULL
	          ORDER BY category_id`
	rows, err := r.db.QueryContext(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart lines: %w", err)
	}
	defer rows.Close()

	lines, err := scanCartLines(rows)
	if err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *cartRepository) LockPendingLinesTx(ctx context.Context, tx *sql.Tx, customerID int64) ([]*models.CartLine, error) {
	query := "SELECT " + cartLineColumns + ` FROM order_categories
	          WHERE customer_id = $1 AND order_id IS NULL AND deleted_at IS NULL
	          ORDER BY category_id
	          FOR UPDATE`
	rows, err := tx.QueryContext(ctx, query, customerID)
	if err != nil {
		return nil, wrapLockError(err)
	}
	defer rows.Close()

	lines, err := scanCartLines(rows)
	if err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, wrapLockError(err)
	}
	return lines, nil
}

func (r *cartRepository) AttachToOrderTx(ctx context.Context, tx *sql.Tx, orderID int64, lineIDs []int64) (int64, error) {
	res, err := tx.ExecContext(ctx,
		"UPDATE order_categories SET order_id = $1, updated_at = NOW() WHERE id = ANY($2) AND order_id IS NULL",
		orderID, pq.Array(lineIDs))
	if err != nil {
		return 0, fmt.Errorf("failed to attach cart lines: %w", err)
	}
	return res.RowsAffected()
}
