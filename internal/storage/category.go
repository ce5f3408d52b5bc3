package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/linemk/storefront/internal/domain/models"
)

// CategoryStorage описывает методы для работы со складом (таблица categories).
type CategoryStorage interface {
	// GetCategory возвращает категорию без блокировки.
	GetCategory(ctx context.Context, id int64) (*models.Category, error)
	// ListCategories возвращает категории; inStockOnly оставляет только quantity > 0.
	ListCategories(ctx context.Context, inStockOnly bool) ([]*models.Category, error)
	// LockCategoriesTx блокирует (FOR UPDATE) категории по id в порядке возрастания id.
	// Удалённые и несуществующие категории в результат не попадают.
	LockCategoriesTx(ctx context.Context, tx *sql.Tx, ids []int64) ([]*models.Category, error)
	// DecrementQuantityTx списывает qty единиц; остаток не может уйти в минус.
	DecrementQuantityTx(ctx context.Context, tx *sql.Tx, id int64, qty int) error
}

type categoryRepository struct {
	db *sql.DB
}

func NewCategoryRepository(db *sql.DB) CategoryStorage {
	return &categoryRepository{db: db}
}

const categoryColumns = "id, name, description, quantity, price, product_id"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCategory(row rowScanner) (*models.Category, error) {
	c := &models.Category{}
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Quantity, &c.Price, &c.ProductID); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *categoryRepository) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	query := "SELECT " + categoryColumns + " FROM categories WHERE id = $1 AND deleted_at IS NULL"
	c, err := scanCategory(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *categoryRepository) ListCategories(ctx context.Context, inStockOnly bool) ([]*models.Category, error) {
	query := "SELECT " + categoryColumns + " FROM categories WHERE deleted_at IS NULL"
	if inStockOnly {
		query += " AND quantity > 0"
	}
	query += " ORDER BY id"

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *categoryRepository) LockCategoriesTx(ctx context.Context, tx *sql.Tx, ids []int64) ([]*models.Category, error) {
	query := "SELECT " + categoryColumns + ` FROM categories
	          WHERE id = ANY($1) AND deleted_at IS NULL
	          ORDER BY id
	          FOR UPDATE`
	rows, err := tx.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, wrapLockError(err)
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapLockError(err)
	}
	return categories, nil
}

func (r *categoryRepository) DecrementQuantityTx(ctx context.Context, tx *sql.Tx, id int64, qty int) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE categories SET quantity = quantity - $1, updated_at = NOW() WHERE id = $2 AND quantity >= $1",
		qty, id)
	if err != nil {
		return wrapLockError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("failed to decrement category %d by %d: %w", id, qty, ErrCategoryNotFound)
	}
	return nil
}
