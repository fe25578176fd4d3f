// Package pricing считает производные суммы заказа по провалидированным
// записям каталога. Чистые функции без I/O: цены берутся только из
// переданного набора товаров и фиксируются как снимок.
package pricing

import (
	"fmt"

	"github.com/vladislavdragonenkov/orders-ms/internal/domain"
)

// ItemRequest — запрошенная позиция: товар и количество.
type ItemRequest struct {
	ProductID string
	Qty       int32
}

// Line — оценённая позиция с зафиксированной ценой за единицу.
type Line struct {
	ProductID  string
	Qty        int32
	PriceMinor int64
}

// Quote — итог оценки заказа.
type Quote struct {
	Lines            []Line
	TotalAmountMinor int64
	TotalItems       int32
}

// Price оценивает запрошенные позиции по набору товаров из каталога.
// Каждая позиция обязана найтись в наборе: отсутствие товара означает, что
// вызывающий код обошёл валидацию, и оценка прерывается ошибкой, а не
// подстановкой нулевой цены. Дубли product id оцениваются отдельными строками.
func Price(items []ItemRequest, products []domain.Product) (Quote, error) {
	if len(items) == 0 {
		return Quote{}, domain.ErrItemsRequired
	}

	byID := make(map[string]domain.Product, len(products))
	for _, product := range products {
		byID[product.ID] = product
	}

	quote := Quote{Lines: make([]Line, 0, len(items))}
	for _, item := range items {
		if item.Qty <= 0 {
			return Quote{}, fmt.Errorf("%w: product %s", domain.ErrItemQtyInvalid, item.ProductID)
		}
		product, ok := byID[item.ProductID]
		if !ok {
			return Quote{}, fmt.Errorf("%w: %s", domain.ErrProductMissing, item.ProductID)
		}

		quote.Lines = append(quote.Lines, Line{
			ProductID:  item.ProductID,
			Qty:        item.Qty,
			PriceMinor: product.PriceMinor,
		})
		quote.TotalAmountMinor += int64(item.Qty) * product.PriceMinor
		quote.TotalItems += item.Qty
	}

	return quote, nil
}

// DistinctProductIDs возвращает уникальные идентификаторы товаров,
// сохраняя порядок первого появления.
func DistinctProductIDs(items []ItemRequest) []string {
	seen := make(map[string]struct{}, len(items))
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}
