package models

import "time"

// CartLine - строка корзины покупателя.
// OrderID == nil, пока строка не оформлена в заказ; после checkout указывает на заказ
type CartLine struct {
	ID         int64     `json:"id"`
	CustomerID int64     `json:"customer"`
	CategoryID int64     `json:"category"`
	Quantity   int       `json:"quantity"`
	OrderID    *int64    `json:"order,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Pending сообщает, что строка ещё в корзине
func (l CartLine) Pending() bool {
	return l.OrderID == nil
}
