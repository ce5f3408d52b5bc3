package storage_test

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/linemk/storefront/internal/domain/models"
	"github.com/linemk/storefront/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var categoryCols = []string{"id", "name", "description", "quantity", "price", "product_id"}
var cartCols = []string{"id", "customer_id", "category_id", "quantity", "order_id", "created_at"}

func TestGetCustomerByEmail_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewCustomerRepository(db)
	email := "test@example.com"

	rows := sqlmock.NewRows([]string{"id", "email", "pass_hash", "is_active", "is_staff"}).
		AddRow(1, email, []byte("hashed-password"), true, false)
	query := regexp.QuoteMeta("SELECT id, email, pass_hash, is_active, is_staff FROM customers WHERE email = $1")
	mock.ExpectQuery(query).WithArgs(email).WillReturnRows(rows)

	customer, err := repo.GetCustomerByEmail(context.Background(), email)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), customer.ID)
	assert.Equal(t, email, customer.Email)
	assert.Equal(t, []byte("hashed-password"), customer.PassHash)
	assert.True(t, customer.IsActive)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCustomerByEmail_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewCustomerRepository(db)

	// запрос возвращает 0 строк
	rows := sqlmock.NewRows([]string{"id", "email", "pass_hash", "is_active", "is_staff"})
	mock.ExpectQuery("FROM customers WHERE email = \\$1").WithArgs("nobody@example.com").WillReturnRows(rows)

	customer, err := repo.GetCustomerByEmail(context.Background(), "nobody@example.com")
	assert.Nil(t, customer)
	assert.True(t, errors.Is(err, storage.ErrCustomerNotFound))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateCustomer_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewCustomerRepository(db)
	passHash := []byte("hashed")

	query := regexp.QuoteMeta("INSERT INTO customers (email, pass_hash) VALUES ($1, $2) RETURNING id")
	mock.ExpectQuery(query).WithArgs("create@example.com", passHash).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))

	created, err := repo.CreateCustomer(context.Background(), &models.Customer{Email: "create@example.com", PassHash: passHash})
	assert.NoError(t, err)
	assert.Equal(t, int64(5), created.ID)
	assert.True(t, created.IsActive)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetNotificationRecipient(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewCustomerRepository(db)

	rows := sqlmock.NewRows([]string{"id", "email", "pass_hash", "is_active", "is_staff"}).
		AddRow(2, "admin@shop.test", []byte("x"), true, true)
	mock.ExpectQuery("WHERE is_staff AND is_active").WillReturnRows(rows)

	admin, err := repo.GetNotificationRecipient(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "admin@shop.test", admin.Email)
	assert.True(t, admin.IsStaff)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListProducts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewProductRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "description", "created_at"}).
		AddRow(1, "Bedroom furniture", "Stuff that belongs to the bedroom", now).
		AddRow(2, "Kitchenware", "Pans", now)
	mock.ExpectQuery("SELECT id, name, description, created_at FROM products").WillReturnRows(rows)

	products, err := repo.ListProducts(context.Background())
	assert.NoError(t, err)
	assert.Len(t, products, 2)
	assert.Equal(t, "Kitchenware", products[1].Name)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCategory_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewCategoryRepository(db)
	rows := sqlmock.NewRows(categoryCols).AddRow(3, "Bedding", "Sheets", 10, "2500.00", 1)
	mock.ExpectQuery(regexp.QuoteMeta("FROM categories WHERE id = $1 AND deleted_at IS NULL")).
		WithArgs(int64(3)).WillReturnRows(rows)

	category, err := repo.GetCategory(context.Background(), 3)
	assert.NoError(t, err)
	assert.Equal(t, "Bedding", category.Name)
	assert.Equal(t, 10, category.Quantity)
	assert.True(t, decimal.RequireFromString("2500").Equal(category.Price))
	assert.Equal(t, int64(1), category.ProductID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCategory_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewCategoryRepository(db)
	mock.ExpectQuery("FROM categories WHERE id = \\$1").
		WithArgs(int64(99)).WillReturnRows(sqlmock.NewRows(categoryCols))

	category, err := repo.GetCategory(context.Background(), 99)
	assert.Nil(t, category)
	assert.True(t, errors.Is(err, storage.ErrCategoryNotFound))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListCategories_InStockOnly(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewCategoryRepository(db)
	rows := sqlmock.NewRows(categoryCols).AddRow(1, "Pillows", "Foam", 4, "850.50", 1)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE deleted_at IS NULL AND quantity > 0 ORDER BY id")).WillReturnRows(rows)

	categories, err := repo.ListCategories(context.Background(), true)
	assert.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, "850.5", categories[0].Price.String())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockCategoriesTx_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewCategoryRepository(db)

	mock.ExpectBegin()
	tx, err := db.Begin()
	require.NoError(t, err)

	rows := sqlmock.NewRows(categoryCols).
		AddRow(1, "Bedding", "", 5, "5.00", 1).
		AddRow(2, "Pillows", "", 7, "10.00", 1)
	mock.ExpectQuery("FROM categories WHERE id = ANY\\(\\$1\\) AND deleted_at IS NULL ORDER BY id FOR UPDATE").
		WithArgs(sqlmock.AnyArg()).WillReturnRows(rows)

	categories, err := repo.LockCategoriesTx(context.Background(), tx, []int64{1, 2})
	assert.NoError(t, err)
	assert.Len(t, categories, 2)

	mock.ExpectCommit()
	assert.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockCategoriesTx_LockNotAvailable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewCategoryRepository(db)

	mock.ExpectBegin()
	tx, err := db.Begin()
	require.NoError(t, err)

	mock.ExpectQuery("FOR UPDATE").WithArgs(sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: "55P03", Message: "canceling statement due to lock timeout"})

	categories, err := repo.LockCategoriesTx(context.Background(), tx, []int64{1})
	assert.Nil(t, categories)
	assert.True(t, errors.Is(err, storage.ErrLockTimeout))

	mock.ExpectRollback()
	assert.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecrementQuantityTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewCategoryRepository(db)

	mock.ExpectBegin()
	tx, err := db.Begin()
	require.NoError(t, err)

	query := regexp.QuoteMeta("UPDATE categories SET quantity = quantity - $1, updated_at = NOW() WHERE id = $2 AND quantity >= $1")
	mock.ExpectExec(query).WithArgs(2, int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(query).WithArgs(9, int64(1)).WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, repo.DecrementQuantityTx(context.Background(), tx, 1, 2))

	// остатка не хватает - строка не обновлена
	err = repo.DecrementQuantityTx(context.Background(), tx, 1, 9)
	assert.Error(t, err)

	mock.ExpectRollback()
	assert.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertCartLine(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewCartRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows(cartCols).AddRow(11, 1, 3, 4, nil, now)
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (customer_id, category_id) WHERE order_id IS NULL DO UPDATE SET quantity = EXCLUDED.quantity")).
		WithArgs(int64(1), int64(3), 4).WillReturnRows(rows)

	line, err := repo.UpsertCartLine(context.Background(), 1, 3, 4)
	assert.NoError(t, err)
	assert.Equal(t, int64(11), line.ID)
	assert.Equal(t, 4, line.Quantity)
	assert.True(t, line.Pending())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockPendingLinesTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewCartRepository(db)

	mock.ExpectBegin()
	tx, err := db.Begin()
	require.NoError(t, err)

	now := time.Now()
	rows := sqlmock.NewRows(cartCols).
		AddRow(1, 7, 1, 2, nil, now).
		AddRow(2, 7, 2, 3, nil, now)
	mock.ExpectQuery("WHERE customer_id = \\$1 AND order_id IS NULL AND deleted_at IS NULL ORDER BY category_id FOR UPDATE").
		WithArgs(int64(7)).WillReturnRows(rows)

	lines, err := repo.LockPendingLinesTx(context.Background(), tx, 7)
	assert.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Nil(t, lines[0].OrderID)
	assert.Equal(t, 3, lines[1].Quantity)

	mock.ExpectCommit()
	assert.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPendingLines(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewCartRepository(db)
	rows := sqlmock.NewRows(cartCols).AddRow(1, 7, 1, 2, nil, time.Now())
	mock.ExpectQuery("FROM order_categories WHERE customer_id = \\$1 AND order_id IS NULL").
		WithArgs(int64(7)).WillReturnRows(rows)

	lines, err := repo.ListPendingLines(context.Background(), 7)
	assert.NoError(t, err)
	assert.Len(t, lines, 1)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachToOrderTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewCartRepository(db)

	mock.ExpectBegin()
	tx, err := db.Begin()
	require.NoError(t, err)

	query := regexp.QuoteMeta("UPDATE order_categories SET order_id = $1, updated_at = NOW() WHERE id = ANY($2) AND order_id IS NULL")
	mock.ExpectExec(query).WithArgs(int64(42), sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.AttachToOrderTx(context.Background(), tx, 42, []int64{1, 2})
	assert.NoError(t, err)
	assert.Equal(t, int64(2), n)

	mock.ExpectCommit()
	assert.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrderTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewOrderRepository(db)

	mock.ExpectBegin()
	tx, err := db.Begin()
	require.NoError(t, err)

	now := time.Now()
	details := models.DeliveryDetails{PhoneNumber: "0712345678", Address: "Moi Avenue 1"}
	query := regexp.QuoteMeta("INSERT INTO orders (customer_id, details, amount, created_at) VALUES ($1, $2, $3, NOW()) RETURNING id, created_at")
	mock.ExpectQuery(query).
		WithArgs(int64(7), jsonArg(`{"phone_number":"0712345678","address":"Moi Avenue 1"}`), "40").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(42, now))

	order, err := repo.CreateOrderTx(context.Background(), tx, 7, details, decimal.RequireFromString("40.00"))
	assert.NoError(t, err)
	assert.Equal(t, int64(42), order.ID)
	assert.Equal(t, now, order.CreatedAt)
	assert.Equal(t, "40.00", order.Amount.StringFixed(2))

	mock.ExpectCommit()
	assert.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrderByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewOrderRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "customer_id", "details", "amount", "created_at"}).
		AddRow(42, 7, []byte(`{"phone_number":"0712345678","address":"Moi Avenue 1","other_details":"gate B"}`), "10.00", now)
	mock.ExpectQuery("FROM orders WHERE id = \\$1").WithArgs(int64(42)).WillReturnRows(rows)

	order, err := repo.GetOrderByID(context.Background(), 42)
	assert.NoError(t, err)
	assert.Equal(t, "gate B", order.Details.OtherDetails)
	assert.Equal(t, "10.00", order.Amount.StringFixed(2))

	mock.ExpectQuery("FROM orders WHERE id = \\$1").WithArgs(int64(43)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "customer_id", "details", "amount", "created_at"}))
	_, err = repo.GetOrderByID(context.Background(), 43)
	assert.True(t, errors.Is(err, storage.ErrOrderNotFound))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrdersByCustomerID_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewOrderRepository(db)
	expectedErr := errors.New("query error")
	mock.ExpectQuery("FROM orders WHERE customer_id = \\$1").WithArgs(int64(7)).WillReturnError(expectedErr)

	orders, err := repo.GetOrdersByCustomerID(context.Background(), 7)
	assert.Error(t, err)
	assert.Nil(t, orders)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetLockTimeoutTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	tx, err := db.Begin()
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("SELECT set_config('lock_timeout', $1, true)")).
		WithArgs("1500ms").WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, storage.SetLockTimeoutTx(context.Background(), tx, 1500*time.Millisecond))
	// нулевой таймаут - без запроса
	assert.NoError(t, storage.SetLockTimeoutTx(context.Background(), tx, 0))

	mock.ExpectCommit()
	assert.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

// jsonArg сравнивает аргумент запроса с ожидаемым JSON
type jsonArg string

func (j jsonArg) Match(v driver.Value) bool {
	b, ok := v.([]byte)
	return ok && string(b) == string(j)
}
