package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/orders-ms/internal/domain"
)

func sampleOrder(createdAt time.Time) domain.Order {
	return domain.Order{
		ID:               uuid.NewString(),
		Status:           domain.OrderStatusPending,
		TotalAmountMinor: 4500,
		TotalItems:       3,
		Items: []domain.OrderItem{
			{ID: uuid.NewString(), ProductID: "p1", Qty: 2, PriceMinor: 1000, CreatedAt: createdAt},
			{ID: uuid.NewString(), ProductID: "p2", Qty: 1, PriceMinor: 2500, CreatedAt: createdAt},
		},
		Version:   0,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestOrderRepository_PostgresCreateGetList(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOrderRepository(store)
	ctx := context.Background()

	now := time.Now().UTC().Round(time.Microsecond)
	order1 := sampleOrder(now.Add(-2 * time.Minute))
	order2 := sampleOrder(now.Add(-time.Minute))

	if err := repo.Create(ctx, order1); err != nil {
		t.Fatalf("create order1: %v", err)
	}
	if err := repo.Create(ctx, order2); err != nil {
		t.Fatalf("create order2: %v", err)
	}

	got, err := repo.Get(ctx, order1.ID)
	if err != nil {
		t.Fatalf("get order1: %v", err)
	}
	if got.ID != order1.ID || got.Status != order1.Status {
		t.Fatalf("unexpected order payload: %+v", got)
	}
	if got.TotalAmountMinor != 4500 || got.TotalItems != 3 {
		t.Fatalf("persisted totals mismatch: %+v", got)
	}
	if len(got.Items) != 2 {
		t.Fatalf("unexpected items count: got=%d want=2", len(got.Items))
	}

	page, total, err := repo.List(ctx, domain.ListFilter{Page: 1, Limit: 1})
	if err != nil {
		t.Fatalf("list page 1: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected total 2, got %d", total)
	}
	if len(page) != 1 || page[0].ID != order2.ID {
		t.Fatalf("expected newest order first, got %+v", page)
	}

	empty, total, err := repo.List(ctx, domain.ListFilter{Page: 3, Limit: 1})
	if err != nil {
		t.Fatalf("list out of range: %v", err)
	}
	if len(empty) != 0 || total != 2 {
		t.Fatalf("expected empty page with total 2, got len=%d total=%d", len(empty), total)
	}
}

func TestOrderRepository_PostgresUpdateStatusAndOutbox(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOrderRepository(store)
	outbox := NewOutboxRepository(store)
	ctx := context.Background()

	order := sampleOrder(time.Now().UTC().Round(time.Microsecond))
	if err := repo.Create(ctx, order); err != nil {
		t.Fatalf("create order: %v", err)
	}

	updated, err := repo.UpdateStatus(ctx, order.ID, domain.OrderStatusDelivered, 0)
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if updated.Status != domain.OrderStatusDelivered || updated.Version != 1 {
		t.Fatalf("unexpected updated order: %+v", updated)
	}

	if _, err := repo.UpdateStatus(ctx, order.ID, domain.OrderStatusCancelled, 0); !errors.Is(err, domain.ErrOrderVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}

	if _, err := repo.UpdateStatus(ctx, uuid.NewString(), domain.OrderStatusDelivered, 0); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}

	pending, err := outbox.PullPending(ctx, 10)
	if err != nil {
		t.Fatalf("pull pending outbox: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected OrderCreated and OrderStatusChanged in outbox, got %d", len(pending))
	}
	if pending[0].EventType != domain.EventTypeOrderCreated || pending[1].EventType != domain.EventTypeOrderStatusChanged {
		t.Fatalf("unexpected outbox event order: %s, %s", pending[0].EventType, pending[1].EventType)
	}
}

func TestOrderRepository_PostgresCreateIsAtomic(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOrderRepository(store)
	ctx := context.Background()

	// Вторая позиция нарушает CHECK (qty > 0): транзакция обязана откатиться целиком.
	order := sampleOrder(time.Now().UTC().Round(time.Microsecond))
	order.Items[1].Qty = -1

	if err := repo.Create(ctx, order); err == nil {
		t.Fatal("expected create to fail on invalid item")
	}

	if _, err := repo.Get(ctx, order.ID); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected no partial order after rollback, got %v", err)
	}

	var itemCount int
	if err := store.DB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM order_items WHERE order_id = $1", order.ID,
	).Scan(&itemCount); err != nil {
		t.Fatalf("count items: %v", err)
	}
	if itemCount != 0 {
		t.Fatalf("expected no order items after rollback, got %d", itemCount)
	}
}
