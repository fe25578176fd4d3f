package domain

// Product — запись внешнего каталога товаров. Сервис заказов её только читает:
// авторитетный источник цен и названий — каталог.
type Product struct {
	ID   string
	Name string
	// PriceMinor — текущая цена каталога в минимальных денежных единицах.
	PriceMinor int64
}
