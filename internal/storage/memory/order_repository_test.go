package memory_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/orders-ms/internal/domain"
	"github.com/vladislavdragonenkov/orders-ms/internal/storage/memory"
)

func newOrder() domain.Order {
	now := time.Now().UTC()
	return domain.Order{
		ID:               uuid.NewString(),
		Status:           domain.OrderStatusPending,
		TotalAmountMinor: 4500,
		TotalItems:       3,
		Items: []domain.OrderItem{
			{ID: uuid.NewString(), ProductID: "p1", Qty: 2, PriceMinor: 1000, CreatedAt: now},
			{ID: uuid.NewString(), ProductID: "p2", Qty: 1, PriceMinor: 2500, CreatedAt: now},
		},
		Version:   0,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestOrderRepository_CreateGet(t *testing.T) {
	outbox := memory.NewOutboxRepository()
	repo := memory.NewOrderRepository(outbox)
	ctx := context.Background()
	order := newOrder()

	if err := repo.Create(ctx, order); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	stored, err := repo.Get(ctx, order.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.ID != order.ID {
		t.Fatalf("expected id %s, got %s", order.ID, stored.ID)
	}
	if stored.TotalAmountMinor != 4500 || stored.TotalItems != 3 {
		t.Fatalf("persisted totals mismatch: %+v", stored)
	}
	if len(stored.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(stored.Items))
	}

	// Событие OrderCreated записано вместе с заказом.
	pending, err := outbox.PullPending(ctx, 10)
	if err != nil {
		t.Fatalf("pull pending failed: %v", err)
	}
	if len(pending) != 1 || pending[0].EventType != domain.EventTypeOrderCreated {
		t.Fatalf("expected one OrderCreated outbox message, got %+v", pending)
	}
}

func TestOrderRepository_GetNotFound(t *testing.T) {
	repo := memory.NewOrderRepository(nil)

	_, err := repo.Get(context.Background(), uuid.NewString())
	if !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderRepository_ListPagination(t *testing.T) {
	repo := memory.NewOrderRepository(nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		order := newOrder()
		order.CreatedAt = time.Now().UTC().Add(time.Duration(i) * time.Second)
		if err := repo.Create(ctx, order); err != nil {
			t.Fatalf("create %d failed: %v", i, err)
		}
	}

	// Закон пагинации: сумма размеров страниц равна total.
	var seen int
	limit := 2
	for page := 1; ; page++ {
		orders, total, err := repo.List(ctx, domain.ListFilter{Page: page, Limit: limit})
		if err != nil {
			t.Fatalf("list page %d failed: %v", page, err)
		}
		if total != 5 {
			t.Fatalf("expected total 5, got %d", total)
		}
		if len(orders) == 0 {
			break
		}
		seen += len(orders)
	}
	if seen != 5 {
		t.Fatalf("expected to page through 5 orders, got %d", seen)
	}

	// Страница за пределами выборки возвращает пустой срез с тем же total.
	orders, total, err := repo.List(ctx, domain.ListFilter{Page: 99, Limit: limit})
	if err != nil {
		t.Fatalf("list out of range failed: %v", err)
	}
	if len(orders) != 0 || total != 5 {
		t.Fatalf("expected empty page with total 5, got %d orders, total %d", len(orders), total)
	}
}

func TestOrderRepository_ListStatusFilter(t *testing.T) {
	outbox := memory.NewOutboxRepository()
	repo := memory.NewOrderRepository(outbox)
	ctx := context.Background()

	pendingOrder := newOrder()
	if err := repo.Create(ctx, pendingOrder); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	delivered := newOrder()
	if err := repo.Create(ctx, delivered); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := repo.UpdateStatus(ctx, delivered.ID, domain.OrderStatusDelivered, 0); err != nil {
		t.Fatalf("update status failed: %v", err)
	}

	status := domain.OrderStatusDelivered
	orders, total, err := repo.List(ctx, domain.ListFilter{Status: &status, Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 1 || len(orders) != 1 {
		t.Fatalf("expected single delivered order, got total=%d len=%d", total, len(orders))
	}
	if orders[0].ID != delivered.ID {
		t.Fatalf("expected order %s, got %s", delivered.ID, orders[0].ID)
	}
}

func TestOrderRepository_ListInvalidPagination(t *testing.T) {
	repo := memory.NewOrderRepository(nil)

	for _, filter := range []domain.ListFilter{
		{Page: 0, Limit: 10},
		{Page: 1, Limit: 0},
		{Page: -1, Limit: -1},
	} {
		if _, _, err := repo.List(context.Background(), filter); !errors.Is(err, domain.ErrInvalidPagination) {
			t.Fatalf("expected ErrInvalidPagination for %+v, got %v", filter, err)
		}
	}
}

func TestOrderRepository_UpdateStatus(t *testing.T) {
	outbox := memory.NewOutboxRepository()
	repo := memory.NewOrderRepository(outbox)
	ctx := context.Background()

	order := newOrder()
	if err := repo.Create(ctx, order); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	updated, err := repo.UpdateStatus(ctx, order.ID, domain.OrderStatusDelivered, 0)
	if err != nil {
		t.Fatalf("update status failed: %v", err)
	}
	if updated.Status != domain.OrderStatusDelivered {
		t.Fatalf("expected DELIVERED, got %s", updated.Status)
	}
	if updated.Version != 1 {
		t.Fatalf("expected version bump to 1, got %d", updated.Version)
	}

	// Повторная запись со старой версией — конфликт.
	if _, err := repo.UpdateStatus(ctx, order.ID, domain.OrderStatusCancelled, 0); !errors.Is(err, domain.ErrOrderVersionConflict) {
		t.Fatalf("expected ErrOrderVersionConflict, got %v", err)
	}

	if _, err := repo.UpdateStatus(ctx, uuid.NewString(), domain.OrderStatusDelivered, 0); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}

	pending, err := outbox.PullPending(ctx, 10)
	if err != nil {
		t.Fatalf("pull pending failed: %v", err)
	}
	var statusChanged int
	for _, msg := range pending {
		if msg.EventType == domain.EventTypeOrderStatusChanged {
			statusChanged++
		}
	}
	if statusChanged != 1 {
		t.Fatalf("expected exactly one OrderStatusChanged message, got %d", statusChanged)
	}
}

func TestOutboxRepository_Lifecycle(t *testing.T) {
	outbox := memory.NewOutboxRepository()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		msg := domain.OutboxMessage{
			ID:            uuid.NewString(),
			AggregateType: domain.AggregateTypeOrder,
			AggregateID:   fmt.Sprintf("order-%d", i),
			EventType:     domain.EventTypeOrderCreated,
			Payload:       []byte(`{}`),
			CreatedAt:     time.Now().UTC().Add(time.Duration(i) * time.Millisecond),
		}
		if err := outbox.Enqueue(ctx, msg); err != nil {
			t.Fatalf("enqueue failed: %v", err)
		}
	}

	pending, err := outbox.PullPending(ctx, 2)
	if err != nil {
		t.Fatalf("pull pending failed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected batch of 2, got %d", len(pending))
	}

	if err := outbox.MarkSent(ctx, pending[0].ID); err != nil {
		t.Fatalf("mark sent failed: %v", err)
	}
	if err := outbox.MarkFailed(ctx, pending[1].ID); err != nil {
		t.Fatalf("mark failed failed: %v", err)
	}

	stats, err := outbox.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.PendingCount != 1 {
		t.Fatalf("expected 1 pending record, got %d", stats.PendingCount)
	}
	if stats.OldestPendingAt.IsZero() {
		t.Fatal("expected oldest pending timestamp to be set")
	}
}
