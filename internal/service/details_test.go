package service_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/linemk/storefront/internal/domain/models"
	"github.com/linemk/storefront/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDeliveryDetails(t *testing.T) {
	tests := []struct {
		name    string
		details models.DeliveryDetails
		field   string
	}{
		{name: "international", details: models.DeliveryDetails{PhoneNumber: "+254712345678", Address: "Nairobi"}},
		{name: "local 07", details: models.DeliveryDetails{PhoneNumber: "0712345678", Address: "Nairobi"}},
		{name: "local 01", details: models.DeliveryDetails{PhoneNumber: "0112345678", Address: "Nairobi", OtherDetails: "gate B"}},
		{name: "wrong prefix", details: models.DeliveryDetails{PhoneNumber: "0812345678", Address: "Nairobi"}, field: "phone_number"},
		{name: "too short", details: models.DeliveryDetails{PhoneNumber: "+2547123", Address: "Nairobi"}, field: "phone_number"},
		{name: "missing phone", details: models.DeliveryDetails{Address: "Nairobi"}, field: "phone_number"},
		{name: "blank address", details: models.DeliveryDetails{PhoneNumber: "0712345678", Address: "   "}, field: "address"},
		{name: "long other details", details: models.DeliveryDetails{PhoneNumber: "0712345678", Address: "Nairobi", OtherDetails: strings.Repeat("x", 1001)}, field: "other_details"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.ValidateDeliveryDetails(tt.details)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var vErr *service.ValidationError
			require.True(t, errors.As(err, &vErr), "expected validation error, got %v", err)
			assert.Equal(t, tt.field, vErr.Field)
			assert.NotEmpty(t, vErr.Message)
		})
	}
}

func TestValidateDeliveryDetails_Trims(t *testing.T) {
	details, err := service.ValidateDeliveryDetails(models.DeliveryDetails{
		PhoneNumber: " 0712345678 ",
		Address:     "  Moi Avenue 1 ",
	})
	require.NoError(t, err)
	assert.Equal(t, "0712345678", details.PhoneNumber)
	assert.Equal(t, "Moi Avenue 1", details.Address)
}
