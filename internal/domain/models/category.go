package models

import "github.com/shopspring/decimal"

// Category - единица склада: остаток и цена за штуку.
// Quantity >= 0, Price > 0 (ограничения таблицы categories)
type Category struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	ProductID   int64           `json:"product"`
}
