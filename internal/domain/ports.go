package domain

import "context"

// ProductValidator резолвит идентификаторы товаров в записи внешнего каталога.
type ProductValidator interface {
	// Validate возвращает записи для всех переданных идентификаторов.
	// Любой неизвестный каталогу идентификатор — ErrProductsInvalid,
	// таймаут или отказ транспорта — ErrCatalogUnavailable.
	Validate(ctx context.Context, productIDs []string) ([]Product, error)
}

// ListFilter задаёт выборку заказов: опциональный фильтр по статусу
// и 1-based пагинация.
type ListFilter struct {
	Status *OrderStatus
	Page   int
	Limit  int
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет заказ вместе с позициями атомарно: либо записано всё,
	// либо ничего. Событие OrderCreated попадает в outbox той же транзакцией.
	Create(ctx context.Context, order Order) error
	// Get возвращает заказ с позициями или ErrOrderNotFound, если его нет.
	Get(ctx context.Context, id string) (Order, error)
	// List возвращает страницу заказов (без позиций) и общее количество
	// под фильтром независимо от пагинации. page/limit <= 0 — ErrInvalidPagination.
	List(ctx context.Context, filter ListFilter) ([]Order, int, error)
	// UpdateStatus записывает новый статус и updated_at с проверкой версии.
	// Несовпадение версии — ErrOrderVersionConflict, отсутствие заказа —
	// ErrOrderNotFound. Событие OrderStatusChanged пишется той же транзакцией.
	UpdateStatus(ctx context.Context, id string, status OrderStatus, version int64) (Order, error)
}

// EventPublisher публикует события из transactional outbox; должен быть идемпотентным.
type EventPublisher interface {
	Publish(msg OutboxMessage) error
}

// OutboxRepository хранит события для последующей публикации.
type OutboxRepository interface {
	Enqueue(ctx context.Context, msg OutboxMessage) error
	PullPending(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
	Stats(ctx context.Context) (OutboxStats, error)
}
