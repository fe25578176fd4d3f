package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/orders-ms/internal/domain"
)

// orderRepositoryInMemory — простая in-memory реализация OrderRepository.
type orderRepositoryInMemory struct {
	mu     sync.RWMutex
	items  map[string]domain.Order
	outbox domain.OutboxRepository
}

// NewOrderRepository возвращает in-memory репозиторий для локальной разработки
// и тестов. outbox может быть nil — тогда события не регистрируются.
func NewOrderRepository(outbox domain.OutboxRepository) domain.OrderRepository {
	return &orderRepositoryInMemory{
		items:  make(map[string]domain.Order),
		outbox: outbox,
	}
}

// Create сохраняет новый заказ, если ID ещё не занят.
func (r *orderRepositoryInMemory) Create(ctx context.Context, order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[order.ID]; exists {
		return domain.ErrOrderVersionConflict
	}

	// Снимки позиций без транзитных названий: имена не часть хранимого агрегата.
	stored := order
	stored.Items = make([]domain.OrderItem, len(order.Items))
	copy(stored.Items, order.Items)
	for i := range stored.Items {
		stored.Items[i].Name = ""
	}
	r.items[order.ID] = stored

	if r.outbox != nil {
		msg, err := domain.NewOrderCreatedMessage(stored)
		if err != nil {
			return err
		}
		if err := r.outbox.Enqueue(ctx, msg); err != nil {
			// In-memory аналог rollback: запись заказа без события не оставляем.
			delete(r.items, order.ID)
			return err
		}
	}

	return nil
}

// Get возвращает заказ или ErrOrderNotFound, если его нет.
func (r *orderRepositoryInMemory) Get(_ context.Context, id string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.items[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}

	// Возвращаем копию позиций, чтобы избежать непредсказуемых мутаций извне.
	result := order
	result.Items = make([]domain.OrderItem, len(order.Items))
	copy(result.Items, order.Items)
	return result, nil
}

// List возвращает страницу заказов (без позиций) и общее число под фильтром.
func (r *orderRepositoryInMemory) List(_ context.Context, filter domain.ListFilter) ([]domain.Order, int, error) {
	if filter.Page <= 0 || filter.Limit <= 0 {
		return nil, 0, domain.ErrInvalidPagination
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]domain.Order, 0, len(r.items))
	for _, order := range r.items {
		if filter.Status != nil && order.Status != *filter.Status {
			continue
		}
		order.Items = nil
		matched = append(matched, order)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)
	offset := (filter.Page - 1) * filter.Limit
	if offset >= total {
		return []domain.Order{}, total, nil
	}
	end := offset + filter.Limit
	if end > total {
		end = total
	}

	page := make([]domain.Order, end-offset)
	copy(page, matched[offset:end])
	return page, total, nil
}

// UpdateStatus перезаписывает статус заказа, проверяя версию (optimistic locking).
func (r *orderRepositoryInMemory) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus, version int64) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if current.Version != version {
		return domain.Order{}, domain.ErrOrderVersionConflict
	}

	previous := current.Status
	updated := current
	updated.Status = status
	updated.Version++
	updated.UpdatedAt = time.Now().UTC()
	r.items[id] = updated

	if r.outbox != nil {
		msg, err := domain.NewOrderStatusChangedMessage(updated, previous)
		if err != nil {
			r.items[id] = current
			return domain.Order{}, err
		}
		if err := r.outbox.Enqueue(ctx, msg); err != nil {
			r.items[id] = current
			return domain.Order{}, err
		}
	}

	result := updated
	result.Items = make([]domain.OrderItem, len(updated.Items))
	copy(result.Items, updated.Items)
	return result, nil
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
