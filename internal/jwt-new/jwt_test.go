package security_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/linemk/storefront/internal/domain/models"
	security "github.com/linemk/storefront/internal/jwt-new"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewToken(t *testing.T) {
	customer := &models.Customer{ID: 42, Email: "buyer@example.com"}

	tokenStr, err := security.NewToken(customer, "testsecret", time.Hour)
	require.NoError(t, err)

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return []byte("testsecret"), nil
	})
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, "42", claims["sub"])
	assert.Equal(t, "buyer@example.com", claims["email"])
}

func TestNewToken_EmptySecret(t *testing.T) {
	_, err := security.NewToken(&models.Customer{ID: 1}, "", time.Hour)
	assert.ErrorIs(t, err, security.ErrEmptySecret)
}
