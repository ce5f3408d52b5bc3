package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/linemk/storefront/internal/domain/models"
)

type CustomerStorage interface {
	GetCustomerByEmail(ctx context.Context, email string) (*models.Customer, error)
	GetCustomerByID(ctx context.Context, id int64) (*models.Customer, error)
	CreateCustomer(ctx context.Context, customer *models.Customer) (*models.Customer, error)
	// GetNotificationRecipient возвращает первого активного сотрудника магазина
	GetNotificationRecipient(ctx context.Context) (*models.Customer, error)
}

type customerRepository struct {
	db *sql.DB
}

func NewCustomerRepository(db *sql.DB) *customerRepository {
	return &customerRepository{db: db}
}

const customerColumns = "id, email, pass_hash, is_active, is_staff"

func scanCustomer(row *sql.Row) (*models.Customer, error) {
	customer := &models.Customer{}
	if err := row.Scan(&customer.ID, &customer.Email, &customer.PassHash, &customer.IsActive, &customer.IsStaff); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	return customer, nil
}

// получение уже существующего покупателя
func (r *customerRepository) GetCustomerByEmail(ctx context.Context, email string) (*models.Customer, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+customerColumns+" FROM customers WHERE email = $1 AND deleted_at IS NULL", email)
	return scanCustomer(row)
}

func (r *customerRepository) GetCustomerByID(ctx context.Context, id int64) (*models.Customer, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+customerColumns+" FROM customers WHERE id = $1 AND deleted_at IS NULL", id)
	return scanCustomer(row)
}

func (r *customerRepository) CreateCustomer(ctx context.Context, customer *models.Customer) (*models.Customer, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		"INSERT INTO customers (email, pass_hash) VALUES ($1, $2) RETURNING id",
		customer.Email, customer.PassHash,
	).Scan(&id)
	if err != nil {
		return nil, err
	}
	customer.ID = id
	customer.IsActive = true
	return customer, nil
}

func (r *customerRepository) GetNotificationRecipient(ctx context.Context) (*models.Customer, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+customerColumns+" FROM customers WHERE is_staff AND is_active AND deleted_at IS NULL ORDER BY id LIMIT 1")
	return scanCustomer(row)
}
