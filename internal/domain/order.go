package domain

import "time"

// OrderItem представляет одну позицию заказа.
type OrderItem struct {
	// ID позиции нужен для однозначной идентификации и аудита.
	ID string
	// ProductID — идентификатор товара во внешнем каталоге.
	ProductID string
	// Qty — количество единиц товара.
	Qty int32
	// PriceMinor — снимок цены за единицу на момент создания заказа,
	// в минимальных денежных единицах. После записи не пересчитывается.
	PriceMinor int64
	// Name не хранится в БД; подтягивается из каталога при чтении
	// и отражает текущее название товара, в отличие от замороженной цены.
	Name string
	// CreatedAt фиксирует момент добавления позиции в заказ.
	CreatedAt time.Time
}

// Order агрегирует состояние заказа и его позиции.
type Order struct {
	ID string
	// Status меняется только через таблицу переходов, см. status.go.
	Status OrderStatus
	// TotalAmountMinor — сумма price*qty по позициям, фиксируется при создании.
	TotalAmountMinor int64
	// TotalItems — суммарное количество единиц по позициям.
	TotalItems int32
	Items      []OrderItem
	// Version используется для optimistic locking при смене статуса.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	if o.TotalAmountMinor < 0 {
		errs = append(errs, ErrAmountNegative)
	}
	if !o.Status.Valid() {
		errs = append(errs, ErrStatusUnknown)
	}

	// Сверяем производные суммы с позициями: qty * price и сумма qty.
	var amount int64
	var count int32
	for _, item := range o.Items {
		if item.ProductID == "" {
			errs = append(errs, ErrProductIDRequired)
		}
		if item.Qty <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.PriceMinor < 0 {
			errs = append(errs, ErrItemPriceInvalid)
		}
		amount += int64(item.Qty) * item.PriceMinor
		count += item.Qty
	}
	if amount != o.TotalAmountMinor {
		errs = append(errs, ErrAmountMismatch)
	}
	if count != o.TotalItems {
		errs = append(errs, ErrTotalItemsMismatch)
	}

	return errs
}
