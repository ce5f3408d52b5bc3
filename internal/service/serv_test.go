package service_test

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/linemk/storefront/internal/domain/models"
	"github.com/linemk/storefront/internal/service"
	"github.com/linemk/storefront/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "testsecret"

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeCustomerRepo struct {
	customers map[string]*models.Customer // ключ - email
}

var _ storage.CustomerStorage = (*fakeCustomerRepo)(nil)

func newFakeCustomerRepo() *fakeCustomerRepo {
	return &fakeCustomerRepo{customers: make(map[string]*models.Customer)}
}

func (f *fakeCustomerRepo) GetCustomerByEmail(ctx context.Context, email string) (*models.Customer, error) {
	c, ok := f.customers[email]
	if !ok {
		return nil, storage.ErrCustomerNotFound
	}
	return c, nil
}

func (f *fakeCustomerRepo) GetCustomerByID(ctx context.Context, id int64) (*models.Customer, error) {
	for _, c := range f.customers {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, storage.ErrCustomerNotFound
}

func (f *fakeCustomerRepo) CreateCustomer(ctx context.Context, customer *models.Customer) (*models.Customer, error) {
	customer.ID = int64(len(f.customers) + 1)
	customer.IsActive = true
	f.customers[customer.Email] = customer
	return customer, nil
}

func (f *fakeCustomerRepo) GetNotificationRecipient(ctx context.Context) (*models.Customer, error) {
	return nil, storage.ErrCustomerNotFound
}

type fakeProductRepo struct {
	products []*models.Product
}

var _ storage.ProductStorage = (*fakeProductRepo)(nil)

func (f *fakeProductRepo) ListProducts(ctx context.Context) ([]*models.Product, error) {
	return f.products, nil
}

type fakeCategoryRepo struct {
	categories map[int64]*models.Category
	lockErr    error
	decrements map[int64]int
}

var _ storage.CategoryStorage = (*fakeCategoryRepo)(nil)

func newFakeCategoryRepo(categories ...*models.Category) *fakeCategoryRepo {
	f := &fakeCategoryRepo{categories: make(map[int64]*models.Category), decrements: make(map[int64]int)}
	for _, c := range categories {
		f.categories[c.ID] = c
	}
	return f
}

func (f *fakeCategoryRepo) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	c, ok := f.categories[id]
	if !ok {
		return nil, storage.ErrCategoryNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCategoryRepo) ListCategories(ctx context.Context, inStockOnly bool) ([]*models.Category, error) {
	var out []*models.Category
	for _, c := range f.categories {
		if inStockOnly && c.Quantity == 0 {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeCategoryRepo) LockCategoriesTx(ctx context.Context, tx *sql.Tx, ids []int64) ([]*models.Category, error) {
	if f.lockErr != nil {
		return nil, f.lockErr
	}
	var out []*models.Category
	for _, id := range ids {
		if c, ok := f.categories[id]; ok {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeCategoryRepo) DecrementQuantityTx(ctx context.Context, tx *sql.Tx, id int64, qty int) error {
	c, ok := f.categories[id]
	if !ok || c.Quantity < qty {
		return storage.ErrCategoryNotFound
	}
	c.Quantity -= qty
	f.decrements[id]++
	return nil
}

type fakeCartRepo struct {
	lines     []*models.CartLine
	nextID    int64
	lockErr   error
	attachCap int // > 0 - переносить не больше attachCap строк
}

var _ storage.CartStorage = (*fakeCartRepo)(nil)

func (f *fakeCartRepo) add(customerID, categoryID int64, qty int) *models.CartLine {
	f.nextID++
	l := &models.CartLine{ID: f.nextID, CustomerID: customerID, CategoryID: categoryID, Quantity: qty, CreatedAt: time.Now()}
	f.lines = append(f.lines, l)
	return l
}

func (f *fakeCartRepo) UpsertCartLine(ctx context.Context, customerID, categoryID int64, quantity int) (*models.CartLine, error) {
	for _, l := range f.lines {
		if l.CustomerID == customerID && l.CategoryID == categoryID && l.Pending() {
			l.Quantity = quantity
			return l, nil
		}
	}
	return f.add(customerID, categoryID, quantity), nil
}

func (f *fakeCartRepo) pending(customerID int64) []*models.CartLine {
	var out []*models.CartLine
	for _, l := range f.lines {
		if l.CustomerID == customerID && l.Pending() {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CategoryID < out[j].CategoryID })
	return out
}

func (f *fakeCartRepo) ListPendingLines(ctx context.Context, customerID int64) ([]*models.CartLine, error) {
	return f.pending(customerID), nil
}

func (f *fakeCartRepo) LockPendingLinesTx(ctx context.Context, tx *sql.Tx, customerID int64) ([]*models.CartLine, error) {
	if f.lockErr != nil {
		return nil, f.lockErr
	}
	return f.pending(customerID), nil
}

func (f *fakeCartRepo) AttachToOrderTx(ctx context.Context, tx *sql.Tx, orderID int64, lineIDs []int64) (int64, error) {
	var n int64
	for _, id := range lineIDs {
		if f.attachCap > 0 && n >= int64(f.attachCap) {
			break
		}
		for _, l := range f.lines {
			if l.ID == id && l.Pending() {
				oid := orderID
				l.OrderID = &oid
				n++
			}
		}
	}
	return n, nil
}

type fakeOrderRepo struct {
	orders map[int64]*models.Order
	nextID int64
}

var _ storage.OrderStorage = (*fakeOrderRepo)(nil)

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[int64]*models.Order)}
}

func (f *fakeOrderRepo) CreateOrderTx(ctx context.Context, tx *sql.Tx, customerID int64, details models.DeliveryDetails, amount decimal.Decimal) (*models.Order, error) {
	f.nextID++
	o := &models.Order{ID: f.nextID, CustomerID: customerID, Details: details, Amount: amount, CreatedAt: time.Now()}
	f.orders[o.ID] = o
	return o, nil
}

func (f *fakeOrderRepo) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, storage.ErrOrderNotFound
	}
	return o, nil
}

func (f *fakeOrderRepo) GetOrdersByCustomerID(ctx context.Context, customerID int64) ([]*models.Order, error) {
	var out []*models.Order
	for _, o := range f.orders {
		if o.CustomerID == customerID {
			out = append(out, o)
		}
	}
	return out, nil
}

type fakeNotifier struct {
	mu        sync.Mutex
	ids       []int64
	err       error
	onEnqueue func()
	ctxErr    error
}

func (f *fakeNotifier) Enqueue(ctx context.Context, orderID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.onEnqueue != nil {
		f.onEnqueue()
	}
	f.ctxErr = ctx.Err()
	if f.err != nil {
		return f.err
	}
	f.ids = append(f.ids, orderID)
	return nil
}

func TestAuthService_Login_NewCustomer(t *testing.T) {
	fakeRepo := newFakeCustomerRepo()
	authSvc := service.NewAuthService(discardLogger, fakeRepo, testSecret, 60*time.Minute)
	ctx := context.Background()

	email := "newcustomer@example.com"
	password := "password123"

	token, err := authSvc.Login(ctx, email, password)
	assert.NoError(t, err, "Login should succeed for a new customer")
	assert.NotEmpty(t, token, "Token should not be empty")

	customer, err := fakeRepo.GetCustomerByEmail(ctx, email)
	assert.NoError(t, err, "Customer should exist after creation")
	// пароль хранится только в виде хэша
	assert.NotEqual(t, password, string(customer.PassHash), "Password should be hashed")
}

func TestAuthService_Login_ExistingCustomer_CorrectPassword(t *testing.T) {
	fakeRepo := newFakeCustomerRepo()
	authSvc := service.NewAuthService(discardLogger, fakeRepo, testSecret, 60*time.Minute)
	ctx := context.Background()

	email := "existing@example.com"
	password := "password123"
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	assert.NoError(t, err)
	_, err = fakeRepo.CreateCustomer(ctx, &models.Customer{Email: email, PassHash: hashed})
	assert.NoError(t, err)

	token, err := authSvc.Login(ctx, email, password)
	assert.NoError(t, err, "Login should succeed with correct password")
	assert.NotEmpty(t, token, "Token should be returned")
}

func TestAuthService_Login_ExistingCustomer_WrongPassword(t *testing.T) {
	fakeRepo := newFakeCustomerRepo()
	authSvc := service.NewAuthService(discardLogger, fakeRepo, testSecret, 60*time.Minute)
	ctx := context.Background()

	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	assert.NoError(t, err)
	_, err = fakeRepo.CreateCustomer(ctx, &models.Customer{Email: "existing@example.com", PassHash: hashed})
	assert.NoError(t, err)

	token, err := authSvc.Login(ctx, "existing@example.com", "wrongpassword")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials, "Login should fail with incorrect password")
	assert.Empty(t, token, "Token should be empty on failed login")
}

func TestAuthService_Login_InactiveCustomer(t *testing.T) {
	fakeRepo := newFakeCustomerRepo()
	authSvc := service.NewAuthService(discardLogger, fakeRepo, testSecret, 60*time.Minute)
	ctx := context.Background()

	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	assert.NoError(t, err)
	c, err := fakeRepo.CreateCustomer(ctx, &models.Customer{Email: "gone@example.com", PassHash: hashed})
	assert.NoError(t, err)
	c.IsActive = false

	_, err = authSvc.Login(ctx, "gone@example.com", "password123")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
}
