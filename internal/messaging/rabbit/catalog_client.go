package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders-ms/internal/domain"
	"github.com/vladislavdragonenkov/orders-ms/internal/metrics"
)

const (
	catalogQueue = "catalog.validate_products"

	// Псевдоочередь RabbitMQ для direct reply-to; consume обязан быть в auto-ack.
	directReplyToQueue = "amq.rabbitmq.reply-to"

	defaultCatalogTimeout = 5 * time.Second
)

type catalogRequest struct {
	IDs []string `json:"ids"`
}

type catalogProduct struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// Price — в минорных единицах валюты.
	Price int64 `json:"price"`
}

type catalogResponse struct {
	Products []catalogProduct `json:"products"`
	Error    *rpcError        `json:"error,omitempty"`
}

// CatalogClient валидирует товары во внешнем каталоге через RPC с direct
// reply-to: один consumer псевдоочереди, ответы разбираются по correlation id.
type CatalogClient struct {
	ch         *amqp.Channel
	logger     *log.Entry
	rpcMetrics *metrics.RPCMetrics
	timeout    time.Duration
	queue      string

	mu      sync.Mutex
	pending map[string]chan catalogResponse
}

// CatalogOption настраивает CatalogClient.
type CatalogOption func(*CatalogClient)

// WithCatalogTimeout задаёт предельное время ожидания ответа каталога.
func WithCatalogTimeout(d time.Duration) CatalogOption {
	return func(c *CatalogClient) { c.timeout = d }
}

// WithCatalogQueue задаёт очередь каталога.
func WithCatalogQueue(queue string) CatalogOption {
	return func(c *CatalogClient) { c.queue = queue }
}

// WithCatalogMetrics подключает метрики вызовов каталога.
func WithCatalogMetrics(m *metrics.RPCMetrics) CatalogOption {
	return func(c *CatalogClient) { c.rpcMetrics = m }
}

// NewCatalogClient создаёт клиент и подписывается на reply-to псевдоочередь.
func NewCatalogClient(ch *amqp.Channel, opts ...CatalogOption) (*CatalogClient, error) {
	c := &CatalogClient{
		ch:      ch,
		logger:  log.WithField("component", "catalog-client"),
		timeout: defaultCatalogTimeout,
		queue:   catalogQueue,
		pending: make(map[string]chan catalogResponse),
	}
	for _, opt := range opts {
		opt(c)
	}

	deliveries, err := ch.Consume(
		directReplyToQueue,
		"",    // consumer tag
		true,  // auto-ack: требование direct reply-to
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("consume direct reply-to: %w", err)
	}

	go c.dispatchReplies(deliveries)
	return c, nil
}

func (c *CatalogClient) dispatchReplies(deliveries <-chan amqp.Delivery) {
	for d := range deliveries {
		c.mu.Lock()
		ch, ok := c.pending[d.CorrelationId]
		if ok {
			delete(c.pending, d.CorrelationId)
		}
		c.mu.Unlock()

		if !ok {
			// Ответ на уже отменённый запрос.
			c.logger.WithField("correlation_id", d.CorrelationId).Debug("dropping unmatched catalog reply")
			continue
		}

		var resp catalogResponse
		if err := json.Unmarshal(d.Body, &resp); err != nil {
			c.logger.WithError(err).Warn("malformed catalog reply")
			resp = catalogResponse{Error: &rpcError{Status: 502, Message: "malformed catalog reply"}}
		}
		ch <- resp
	}
	c.logger.Info("catalog reply consumer stopped")
}

// Validate резолвит идентификаторы в записи каталога. Дубликаты схлопываются
// до запроса; любой неразрешённый идентификатор — ErrProductsInvalid, таймаут
// и транспортные сбои — ErrCatalogUnavailable.
func (c *CatalogClient) Validate(ctx context.Context, productIDs []string) ([]domain.Product, error) {
	started := time.Now()
	products, err := c.validate(ctx, productIDs)
	c.rpcMetrics.RecordCatalogCall(catalogCallResult(err), time.Since(started))
	return products, err
}

func (c *CatalogClient) validate(ctx context.Context, productIDs []string) ([]domain.Product, error) {
	ids := distinct(productIDs)
	if len(ids) == 0 {
		return nil, domain.ErrItemsRequired
	}

	body, err := json.Marshal(catalogRequest{IDs: ids})
	if err != nil {
		return nil, fmt.Errorf("marshal catalog request: %w", err)
	}

	corrID := uuid.NewString()
	replyCh := make(chan catalogResponse, 1)
	c.mu.Lock()
	c.pending[corrID] = replyCh
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, corrID)
		c.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.ch.PublishWithContext(
		ctx,
		"",      // default exchange
		c.queue, // catalog request queue
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			CorrelationId: corrID,
			ReplyTo:       directReplyToQueue,
			Body:          body,
		},
	); err != nil {
		c.logger.WithError(err).Warn("failed to publish catalog request")
		return nil, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
	}

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, ctx.Err())
	case resp := <-replyCh:
		return c.toProducts(ids, resp)
	}
}

func (c *CatalogClient) toProducts(ids []string, resp catalogResponse) ([]domain.Product, error) {
	if resp.Error != nil {
		if resp.Error.Status == 400 || resp.Error.Status == 404 {
			return nil, fmt.Errorf("%w: %s", domain.ErrProductsInvalid, resp.Error.Message)
		}
		return nil, fmt.Errorf("%w: catalog replied %d: %s",
			domain.ErrCatalogUnavailable, resp.Error.Status, resp.Error.Message)
	}

	byID := make(map[string]catalogProduct, len(resp.Products))
	for _, p := range resp.Products {
		byID[p.ID] = p
	}

	products := make([]domain.Product, 0, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: product %q not found in catalog", domain.ErrProductsInvalid, id)
		}
		products = append(products, domain.Product{
			ID:         p.ID,
			Name:       p.Name,
			PriceMinor: p.Price,
		})
	}
	return products, nil
}

func catalogCallResult(err error) string {
	switch statusFromError(err) {
	case 400, 404:
		return "invalid"
	case 503:
		return "unavailable"
	default:
		if err != nil {
			return "error"
		}
		return "ok"
	}
}

func distinct(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}

var _ domain.ProductValidator = (*CatalogClient)(nil)
