package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DeliveryDetails хранится в orders.details как JSON
type DeliveryDetails struct {
	PhoneNumber  string `json:"phone_number" validate:"required,ke_phone"`
	Address      string `json:"address" validate:"required"`
	OtherDetails string `json:"other_details,omitempty" validate:"omitempty,max=1000"`
}

// Order представляет заказ, созданный при оформлении корзины.
// Amount вычисляется сервером и после создания не меняется
type Order struct {
	ID         int64           `json:"id"`
	CustomerID int64           `json:"customer"`
	Details    DeliveryDetails `json:"details"`
	Amount     decimal.Decimal `json:"amount"`
	CreatedAt  time.Time       `json:"created_at"`
}
