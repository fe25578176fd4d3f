// Package orders реализует прикладные операции над заказами: создание,
// выборку и смену статуса. Сервис не ходит в каталог за ценами повторно:
// цена фиксируется один раз при создании, названия товаров — транзитные
// и резолвятся заново на каждом чтении.
package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders-ms/internal/domain"
	"github.com/vladislavdragonenkov/orders-ms/internal/service/pricing"
)

// Service — оркестратор заказов поверх репозитория и клиента каталога.
type Service struct {
	repo    domain.OrderRepository
	catalog domain.ProductValidator
	logger  *log.Entry
}

// NewService конструирует сервис с зависимостями.
func NewService(repo domain.OrderRepository, catalog domain.ProductValidator, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "order-service")
	}
	return &Service{
		repo:    repo,
		catalog: catalog,
		logger:  logger,
	}
}

// CreateRequest — запрошенные позиции нового заказа.
type CreateRequest struct {
	Items []pricing.ItemRequest
}

// PageMeta описывает пагинацию выборки.
type PageMeta struct {
	Total    int
	Page     int
	LastPage int
}

// Page — страница заказов с метаданными выборки.
type Page struct {
	Data []domain.Order
	Meta PageMeta
}

// Create валидирует позиции через каталог, считает суммы и атомарно сохраняет
// заказ. Любой сбой до фиксации транзакции означает, что записи не было.
// Названия товаров в ответе берутся из уже полученного набора каталога,
// второго похода в каталог на этом пути нет.
func (s *Service) Create(ctx context.Context, req CreateRequest) (domain.Order, error) {
	if len(req.Items) == 0 {
		return domain.Order{}, domain.ErrItemsRequired
	}

	products, err := s.catalog.Validate(ctx, pricing.DistinctProductIDs(req.Items))
	if err != nil {
		s.logger.WithError(err).Warn("product validation failed")
		return domain.Order{}, err
	}

	quote, err := pricing.Price(req.Items, products)
	if err != nil {
		return domain.Order{}, err
	}

	now := time.Now().UTC()
	items := make([]domain.OrderItem, 0, len(quote.Lines))
	for _, line := range quote.Lines {
		items = append(items, domain.OrderItem{
			ID:         uuid.NewString(),
			ProductID:  line.ProductID,
			Qty:        line.Qty,
			PriceMinor: line.PriceMinor,
			CreatedAt:  now,
		})
	}

	order := domain.Order{
		ID:               uuid.NewString(),
		Status:           domain.OrderStatusPending,
		TotalAmountMinor: quote.TotalAmountMinor,
		TotalItems:       quote.TotalItems,
		Items:            items,
		Version:          0,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if errs := order.ValidateInvariants(); len(errs) > 0 {
		s.logger.WithField("violations", errs).Error("constructed order violates invariants")
		return domain.Order{}, domain.ErrOrderCreationFailed
	}

	if err := s.repo.Create(ctx, order); err != nil {
		// Причина остаётся в логах; вызывающей стороне уходит обобщённая ошибка.
		s.logger.WithError(err).WithField("order_id", order.ID).Error("failed to persist order")
		return domain.Order{}, domain.ErrOrderCreationFailed
	}

	attachNames(order.Items, products)
	return order, nil
}

// FindAll возвращает страницу заказов под опциональным фильтром по статусу.
func (s *Service) FindAll(ctx context.Context, filter domain.ListFilter) (Page, error) {
	if filter.Page <= 0 || filter.Limit <= 0 {
		return Page{}, domain.ErrInvalidPagination
	}

	orders, total, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.WithError(err).Error("failed to list orders")
		return Page{}, err
	}

	return Page{
		Data: orders,
		Meta: PageMeta{
			Total:    total,
			Page:     filter.Page,
			LastPage: (total + filter.Limit - 1) / filter.Limit,
		},
	}, nil
}

// FindOne возвращает заказ с позициями, заново резолвя названия товаров
// из каталога. Исторический заказ показывает текущее название товара,
// цена при этом остаётся зафиксированной на момент создания.
func (s *Service) FindOne(ctx context.Context, id string) (domain.Order, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrOrderNotFound) {
			s.logger.WithError(err).WithField("order_id", id).Error("failed to load order")
		}
		return domain.Order{}, err
	}

	ids := make([]string, 0, len(order.Items))
	seen := make(map[string]struct{}, len(order.Items))
	for _, item := range order.Items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}

	products, err := s.catalog.Validate(ctx, ids)
	if err != nil {
		s.logger.WithError(err).WithField("order_id", id).Warn("failed to resolve product names")
		return domain.Order{}, err
	}

	attachNames(order.Items, products)
	return order, nil
}

// ChangeStatus применяет переход статуса. Совпадение текущего и запрошенного
// статуса — идемпотентный no-op без записи в БД: повторная доставка того же
// запроса не считается ошибкой. Запрещённый таблицей переход отклоняется до
// обращения к хранилищу.
func (s *Service) ChangeStatus(ctx context.Context, id string, status domain.OrderStatus) (domain.Order, error) {
	if !status.Valid() {
		return domain.Order{}, domain.ErrStatusUnknown
	}

	order, err := s.FindOne(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}

	if order.Status == status {
		return order, nil
	}

	if !order.Status.CanTransitionTo(status) {
		return domain.Order{}, domain.ErrInvalidTransition
	}

	updated, err := s.repo.UpdateStatus(ctx, id, status, order.Version)
	if err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id": id,
			"status":   status,
		}).Error("failed to update order status")
		return domain.Order{}, err
	}

	// Названия уже зарезолвлены в FindOne; переносим их в обновлённый снимок.
	names := make(map[string]string, len(order.Items))
	for _, item := range order.Items {
		names[item.ProductID] = item.Name
	}
	for i := range updated.Items {
		updated.Items[i].Name = names[updated.Items[i].ProductID]
	}

	return updated, nil
}

func attachNames(items []domain.OrderItem, products []domain.Product) {
	byID := make(map[string]string, len(products))
	for _, product := range products {
		byID[product.ID] = product.Name
	}
	for i := range items {
		items[i].Name = byID[items[i].ProductID]
	}
}
