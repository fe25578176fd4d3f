package rabbit

import (
	"context"
	"time"

	"github.com/vladislavdragonenkov/orders-ms/internal/domain"
	"github.com/vladislavdragonenkov/orders-ms/internal/service/orders"
	"github.com/vladislavdragonenkov/orders-ms/internal/service/pricing"
)

// Паттерны входящих RPC-запросов; имя паттерна совпадает с именем очереди.
const (
	PatternOrdersCreate       = "orders.create"
	PatternOrdersFindAll      = "orders.find_all"
	PatternOrdersFindOne      = "orders.find_one"
	PatternOrdersChangeStatus = "orders.change_status"
)

const (
	defaultPage  = 1
	defaultLimit = 10
)

type createOrderRequest struct {
	Items []createOrderItem `json:"items"`
}

type createOrderItem struct {
	ProductID string `json:"productId"`
	Quantity  int32  `json:"quantity"`
}

type findAllRequest struct {
	Status string `json:"status,omitempty"`
	Page   int    `json:"page,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

type findOneRequest struct {
	ID string `json:"id"`
}

type changeStatusRequest struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Денежные поля ответов — в минорных единицах валюты.
type orderItemResponse struct {
	ID        string `json:"id"`
	ProductID string `json:"productId"`
	Quantity  int32  `json:"quantity"`
	Price     int64  `json:"price"`
	Name      string `json:"name,omitempty"`
}

type orderResponse struct {
	ID          string              `json:"id"`
	Status      string              `json:"status"`
	TotalAmount int64               `json:"totalAmount"`
	TotalItems  int32               `json:"totalItems"`
	Items       []orderItemResponse `json:"items"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

type pageMetaResponse struct {
	Total    int `json:"total"`
	Page     int `json:"page"`
	LastPage int `json:"lastPage"`
}

type pageResponse struct {
	Data []orderResponse  `json:"data"`
	Meta pageMetaResponse `json:"meta"`
}

// OrderHandlers привязывает паттерны заказов к прикладному сервису.
type OrderHandlers struct {
	svc *orders.Service
}

// NewOrderHandlers создаёт обработчики RPC-паттернов заказов.
func NewOrderHandlers(svc *orders.Service) *OrderHandlers {
	return &OrderHandlers{svc: svc}
}

// Register регистрирует все паттерны в роутере.
func (h *OrderHandlers) Register(router *Router) {
	router.Register(PatternOrdersCreate, JSONHandler[createOrderRequest]{HandleFunc: h.create})
	router.Register(PatternOrdersFindAll, JSONHandler[findAllRequest]{HandleFunc: h.findAll})
	router.Register(PatternOrdersFindOne, JSONHandler[findOneRequest]{HandleFunc: h.findOne})
	router.Register(PatternOrdersChangeStatus, JSONHandler[changeStatusRequest]{HandleFunc: h.changeStatus})
}

func (h *OrderHandlers) create(ctx context.Context, req createOrderRequest) (any, error) {
	items := make([]pricing.ItemRequest, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, pricing.ItemRequest{
			ProductID: item.ProductID,
			Qty:       item.Quantity,
		})
	}

	order, err := h.svc.Create(ctx, orders.CreateRequest{Items: items})
	if err != nil {
		return nil, err
	}
	return toOrderResponse(order), nil
}

func (h *OrderHandlers) findAll(ctx context.Context, req findAllRequest) (any, error) {
	// Дефолты пагинации применяются на границе транспорта.
	filter := domain.ListFilter{
		Page:  req.Page,
		Limit: req.Limit,
	}
	if filter.Page == 0 {
		filter.Page = defaultPage
	}
	if filter.Limit == 0 {
		filter.Limit = defaultLimit
	}
	if req.Status != "" {
		status, err := domain.ParseOrderStatus(req.Status)
		if err != nil {
			return nil, err
		}
		filter.Status = &status
	}

	page, err := h.svc.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}

	data := make([]orderResponse, 0, len(page.Data))
	for _, order := range page.Data {
		data = append(data, toOrderResponse(order))
	}
	return pageResponse{
		Data: data,
		Meta: pageMetaResponse{
			Total:    page.Meta.Total,
			Page:     page.Meta.Page,
			LastPage: page.Meta.LastPage,
		},
	}, nil
}

func (h *OrderHandlers) findOne(ctx context.Context, req findOneRequest) (any, error) {
	order, err := h.svc.FindOne(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	return toOrderResponse(order), nil
}

func (h *OrderHandlers) changeStatus(ctx context.Context, req changeStatusRequest) (any, error) {
	status, err := domain.ParseOrderStatus(req.Status)
	if err != nil {
		return nil, err
	}

	order, err := h.svc.ChangeStatus(ctx, req.ID, status)
	if err != nil {
		return nil, err
	}
	return toOrderResponse(order), nil
}

func toOrderResponse(order domain.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemResponse{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Qty,
			Price:     item.PriceMinor,
			Name:      item.Name,
		})
	}
	return orderResponse{
		ID:          order.ID,
		Status:      string(order.Status),
		TotalAmount: order.TotalAmountMinor,
		TotalItems:  order.TotalItems,
		Items:       items,
		CreatedAt:   order.CreatedAt,
		UpdatedAt:   order.UpdatedAt,
	}
}
