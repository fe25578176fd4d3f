package domain

import "errors"

var (
	// Ошибка отсутствия хотя бы одного товара в заказе.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка отрицательной суммы заказа.
	ErrAmountNegative = errors.New("total amount must be non-negative")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrItemQtyInvalid = errors.New("item quantity must be greater than zero")
	// Ошибка, если цена позиции отрицательная.
	ErrItemPriceInvalid = errors.New("item price must be non-negative")
	// Ошибка несоответствия суммы заказа и сумм позиций.
	ErrAmountMismatch = errors.New("order amount does not match items sum")
	// Ошибка несоответствия количества единиц и сумм позиций.
	ErrTotalItemsMismatch = errors.New("order total items does not match items sum")
	// Ошибка отсутствующего идентификатора товара в позиции.
	ErrProductIDRequired = errors.New("item product id is required")
	// ErrStatusUnknown возвращается для статуса вне закрытого множества.
	ErrStatusUnknown = errors.New("unknown order status")

	// ErrInvalidPagination возвращается при page/limit <= 0.
	ErrInvalidPagination = errors.New("page and limit must be positive")
	// ErrProductsInvalid — каталог не знает один или несколько запрошенных товаров.
	ErrProductsInvalid = errors.New("some products were not found in catalog")
	// ErrCatalogUnavailable — каталог недоступен или не ответил вовремя.
	// Запрос безопасно повторить: записи в БД не было.
	ErrCatalogUnavailable = errors.New("product catalog is unavailable")
	// ErrProductMissing — позиция ссылается на товар вне провалидированного набора.
	// Это дефект вызывающего кода, а не пользовательская ошибка.
	ErrProductMissing = errors.New("product is missing from validated set")
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrInvalidTransition — запрошенный переход статуса запрещён таблицей переходов.
	ErrInvalidTransition = errors.New("order status transition is not allowed")
	// ErrOrderVersionConflict сигнализирует о конфликте версий при сохранении.
	ErrOrderVersionConflict = errors.New("order version conflict")
	// ErrOrderCreationFailed — обобщённая ошибка создания заказа; причина
	// остаётся в логах и не уходит вызывающей стороне.
	ErrOrderCreationFailed = errors.New("order creation failed")
)
