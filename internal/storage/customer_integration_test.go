package storage_test

import (
	"context"
	"testing"

	"github.com/linemk/storefront/internal/storage"
	"github.com/linemk/storefront/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetNotificationRecipient_SeededDatabase(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := storage.NewCustomerRepository(db)
	ctx := context.Background()

	_, err := repo.GetNotificationRecipient(ctx)
	assert.ErrorIs(t, err, storage.ErrCustomerNotFound)

	testutil.ApplySeed(t, db, "000003_seed_staff_recipient.up.sql")

	recipient, err := repo.GetNotificationRecipient(ctx)
	require.NoError(t, err)
	assert.Equal(t, "orders@storefront.local", recipient.Email)
	assert.True(t, recipient.IsStaff)
	assert.True(t, recipient.IsActive)
}

func TestGetNotificationRecipient_SkipsInactiveStaff(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := storage.NewCustomerRepository(db)

	inactive := testutil.InsertCustomer(t, db, "former@storefront.local", true)
	_, err := db.Exec(`UPDATE customers SET is_active = FALSE WHERE id = $1`, inactive)
	require.NoError(t, err)
	testutil.InsertCustomer(t, db, "buyer@example.com", false)
	testutil.InsertCustomer(t, db, "manager@storefront.local", true)

	recipient, err := repo.GetNotificationRecipient(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "manager@storefront.local", recipient.Email)
}
