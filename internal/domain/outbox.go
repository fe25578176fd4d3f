package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	// AggregateTypeOrder — тип агрегата для событий заказа.
	AggregateTypeOrder = "order"

	// EventTypeOrderCreated публикуется после фиксации транзакции создания.
	EventTypeOrderCreated = "OrderCreated"
	// EventTypeOrderStatusChanged публикуется после фиксации смены статуса.
	EventTypeOrderStatusChanged = "OrderStatusChanged"
)

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}

type orderCreatedPayload struct {
	OrderID          string    `json:"order_id"`
	Status           string    `json:"status"`
	TotalAmountMinor int64     `json:"total_amount_minor"`
	TotalItems       int32     `json:"total_items"`
	CreatedAt        time.Time `json:"created_at"`
}

type orderStatusChangedPayload struct {
	OrderID    string    `json:"order_id"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	ChangedAt  time.Time `json:"changed_at"`
}

// NewOrderCreatedMessage собирает outbox-событие о создании заказа.
func NewOrderCreatedMessage(order Order) (OutboxMessage, error) {
	payload, err := json.Marshal(orderCreatedPayload{
		OrderID:          order.ID,
		Status:           string(order.Status),
		TotalAmountMinor: order.TotalAmountMinor,
		TotalItems:       order.TotalItems,
		CreatedAt:        order.CreatedAt,
	})
	if err != nil {
		return OutboxMessage{}, fmt.Errorf("marshal order created payload: %w", err)
	}

	return OutboxMessage{
		ID:            uuid.NewString(),
		AggregateType: AggregateTypeOrder,
		AggregateID:   order.ID,
		EventType:     EventTypeOrderCreated,
		Payload:       payload,
		CreatedAt:     order.CreatedAt,
	}, nil
}

// NewOrderStatusChangedMessage собирает outbox-событие о смене статуса.
func NewOrderStatusChangedMessage(order Order, from OrderStatus) (OutboxMessage, error) {
	payload, err := json.Marshal(orderStatusChangedPayload{
		OrderID:    order.ID,
		FromStatus: string(from),
		ToStatus:   string(order.Status),
		ChangedAt:  order.UpdatedAt,
	})
	if err != nil {
		return OutboxMessage{}, fmt.Errorf("marshal status changed payload: %w", err)
	}

	return OutboxMessage{
		ID:            uuid.NewString(),
		AggregateType: AggregateTypeOrder,
		AggregateID:   order.ID,
		EventType:     EventTypeOrderStatusChanged,
		Payload:       payload,
		CreatedAt:     order.UpdatedAt,
	}, nil
}
