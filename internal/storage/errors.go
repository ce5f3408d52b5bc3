package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

var (
	ErrCustomerNotFound = errors.New("customer not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrOrderNotFound    = errors.New("order not found")
	// ErrLockTimeout - строки не удалось заблокировать за lock_timeout (или взаимоблокировка);
	// транзакцию можно повторить целиком
	ErrLockTimeout = errors.New("resource is locked, please try again")
)

const (
	codeLockNotAvailable = "55P03"
	codeDeadlockDetected = "40P01"
)

// wrapLockError переводит ошибки ожидания блокировки Postgres в ErrLockTimeout
func wrapLockError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code == codeLockNotAvailable || pqErr.Code == codeDeadlockDetected {
			return fmt.Errorf("%w: %s", ErrLockTimeout, pqErr.Message)
		}
	}
	return err
}

// SetLockTimeoutTx ограничивает ожидание блокировок строк до конца транзакции
func SetLockTimeoutTx(ctx context.Context, tx *sql.Tx, timeout time.Duration) error {
	if timeout <= 0 {
		return nil
	}
	ms := fmt.Sprintf("%dms", timeout.Milliseconds())
	if _, err := tx.ExecContext(ctx, "SELECT set_config('lock_timeout', $1, true)", ms); err != nil {
		return fmt.Errorf("failed to set lock timeout: %w", err)
	}
	return nil
}
