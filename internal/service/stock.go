package service

import (
	"github.com/linemk/storefront/internal/domain/models"
	"github.com/shopspring/decimal"
)

// LineCheck - результат проверки одной строки корзины
type LineCheck struct {
	Line     *models.CartLine
	Category *models.Category
	Amount   decimal.Decimal
	InStock  bool
}

// StockReport - проверка всей корзины по заблокированному снимку склада
type StockReport struct {
	Lines []LineCheck
	Total decimal.Decimal
}

// Shortage возвращает первую строку, которой не хватает остатка, или nil
func (r StockReport) Shortage() *InsufficientStockError {
	for _, lc := range r.Lines {
		if !lc.InStock {
			return &InsufficientStockError{
				CategoryID:   lc.Category.ID,
				CategoryName: lc.Category.Name,
				Available:    lc.Category.Quantity,
				Requested:    lc.Line.Quantity,
			}
		}
	}
	return nil
}

// CheckStock сопоставляет строки с категориями и считает сумму.
// Чистая функция: ничего не пишет и не блокирует
func CheckStock(lines []*models.CartLine, categories []*models.Category) (StockReport, error) {
	byID := make(map[int64]*models.Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}

	report := StockReport{
		Lines: make([]LineCheck, 0, len(lines)),
		Total: decimal.Zero,
	}
	for _, l := range lines {
		c, ok := byID[l.CategoryID]
		if !ok {
			return StockReport{}, &CategoryNotFoundError{CategoryID: l.CategoryID}
		}
		amount := c.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
		report.Lines = append(report.Lines, LineCheck{
			Line:     l,
			Category: c,
			Amount:   amount,
			InStock:  c.Quantity >= l.Quantity,
		})
		report.Total = report.Total.Add(amount)
	}
	return report, nil
}
