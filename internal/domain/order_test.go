package domain_test

import (
	"testing"
	"time"

	"github.com/vladislavdragonenkov/orders-ms/internal/domain"
)

// helper для создания базового заказа с двумя позициями.
func makeOrder() domain.Order {
	now := time.Now().UTC()
	return domain.Order{
		ID:               "order-1",
		Status:           domain.OrderStatusPending,
		TotalAmountMinor: 4500,
		TotalItems:       3,
		Items: []domain.OrderItem{
			{ID: "item-1", ProductID: "p1", Qty: 2, PriceMinor: 1000, CreatedAt: now},
			{ID: "item-2", ProductID: "p2", Qty: 1, PriceMinor: 2500, CreatedAt: now},
		},
		Version:   0,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestOrderValidateInvariants_Ok(t *testing.T) {
	order := makeOrder()
	if errs := order.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("expected no validation errors, got %v", errs)
	}
}

func TestOrderValidateInvariants_Errors(t *testing.T) {
	cases := []struct {
		name string
		mut  func(o *domain.Order)
	}{
		{
			name: "no items",
			mut: func(o *domain.Order) {
				o.Items = nil
				o.TotalAmountMinor = 0
				o.TotalItems = 0
			},
		},
		{
			name: "negative amount",
			mut: func(o *domain.Order) {
				o.TotalAmountMinor = -1
			},
		},
		{
			name: "qty invalid",
			mut: func(o *domain.Order) {
				o.Items[0].Qty = 0
			},
		},
		{
			name: "price invalid",
			mut: func(o *domain.Order) {
				o.Items[0].PriceMinor = -5
			},
		},
		{
			name: "amount mismatch",
			mut: func(o *domain.Order) {
				o.TotalAmountMinor = 999
			},
		},
		{
			name: "total items mismatch",
			mut: func(o *domain.Order) {
				o.TotalItems = 42
			},
		},
		{
			name: "missing product id",
			mut: func(o *domain.Order) {
				o.Items[1].ProductID = ""
			},
		},
		{
			name: "unknown status",
			mut: func(o *domain.Order) {
				o.Status = "SHIPPED"
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order := makeOrder()
			tc.mut(&order)

			if len(order.ValidateInvariants()) == 0 {
				t.Fatalf("expected validation errors for case %s", tc.name)
			}
		})
	}
}
