package rabbit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders-ms/internal/metrics"
)

const (
	defaultPrefetch    = 50
	defaultCallTimeout = 10 * time.Second
)

// errMalformedRequest сигнализирует, что тело запроса не разобралось.
var errMalformedRequest = errors.New("malformed request payload")

// Handler обрабатывает тело одного запроса и возвращает полезную нагрузку ответа.
type Handler interface {
	Handle(ctx context.Context, body []byte) (any, error)
}

// JSONHandler адаптирует типизированную функцию в Handler: тело запроса
// декодируется в T, результат уходит в data-конверт ответа.
type JSONHandler[T any] struct {
	HandleFunc func(ctx context.Context, req T) (any, error)
}

func (h JSONHandler[T]) Handle(ctx context.Context, body []byte) (any, error) {
	var req T
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, fmt.Errorf("%w: %v", errMalformedRequest, err)
		}
	}
	return h.HandleFunc(ctx, req)
}

type registration struct {
	pattern string
	handler Handler
}

// Router раздаёт входящие RPC-паттерны по обработчикам: одна durable-очередь
// на паттерн, ручной ack, ответ уходит в reply-to с correlation id запроса.
type Router struct {
	ch            *amqp.Channel
	logger        *log.Entry
	rpcMetrics    *metrics.RPCMetrics
	prefetch      int
	callTimeout   time.Duration
	registrations []registration
}

// RouterOption настраивает Router.
type RouterOption func(*Router)

// WithPrefetch задаёт QoS prefetch канала.
func WithPrefetch(n int) RouterOption {
	return func(r *Router) { r.prefetch = n }
}

// WithCallTimeout задаёт таймаут обработки одной доставки.
func WithCallTimeout(d time.Duration) RouterOption {
	return func(r *Router) { r.callTimeout = d }
}

// WithRPCMetrics подключает метрики обработки запросов.
func WithRPCMetrics(m *metrics.RPCMetrics) RouterOption {
	return func(r *Router) { r.rpcMetrics = m }
}

// WithRouterLogger задаёт logger.
func WithRouterLogger(logger *log.Entry) RouterOption {
	return func(r *Router) { r.logger = logger }
}

// NewRouter создаёт Router поверх открытого канала.
func NewRouter(ch *amqp.Channel, opts ...RouterOption) *Router {
	r := &Router{
		ch:          ch,
		prefetch:    defaultPrefetch,
		callTimeout: defaultCallTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = log.WithField("component", "rabbit-router")
	}
	return r
}

// Register связывает паттерн с обработчиком. Вызывается до Start.
func (r *Router) Register(pattern string, h Handler) {
	r.registrations = append(r.registrations, registration{pattern: pattern, handler: h})
}

// Start объявляет очереди и запускает по одному consumer-горутине на паттерн.
// Неблокирующий: consumers живут до закрытия канала.
func (r *Router) Start(ctx context.Context) error {
	if err := r.ch.Qos(r.prefetch, 0, false); err != nil {
		return fmt.Errorf("set channel qos: %w", err)
	}

	for _, reg := range r.registrations {
		if _, err := r.ch.QueueDeclare(
			reg.pattern,
			true,  // durable
			false, // auto-delete
			false, // exclusive
			false, // no-wait
			nil,
		); err != nil {
			return fmt.Errorf("declare queue %s: %w", reg.pattern, err)
		}

		deliveries, err := r.ch.Consume(
			reg.pattern,
			"c_"+reg.pattern,
			false, // manual ack
			false, // exclusive
			false, // no-local
			false, // no-wait
			nil,
		)
		if err != nil {
			return fmt.Errorf("consume queue %s: %w", reg.pattern, err)
		}

		go r.consumeLoop(ctx, reg, deliveries)
	}

	return nil
}

func (r *Router) consumeLoop(ctx context.Context, reg registration, deliveries <-chan amqp.Delivery) {
	logger := r.logger.WithField("pattern", reg.pattern)

	for d := range deliveries {
		started := time.Now()

		callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
		payload, err := reg.handler.Handle(callCtx, d.Body)
		cancel()

		var reply []byte
		result := "ok"
		if err != nil {
			status := statusFromError(err)
			result = strconv.Itoa(status)
			if status == 500 {
				logger.WithError(err).Error("rpc handler failed")
			} else {
				logger.WithError(err).WithField("status", status).Debug("rpc request rejected")
			}
			reply = newErrorEnvelope(err)
		} else {
			reply, err = newSuccessEnvelope(payload)
			if err != nil {
				logger.WithError(err).Error("failed to encode rpc reply")
				result = "500"
				reply = newErrorEnvelope(err)
			}
		}

		r.rpcMetrics.RecordHandled(reg.pattern, result, time.Since(started))

		if d.ReplyTo != "" {
			if err := r.publishReply(ctx, d, reply); err != nil {
				// Запрос не переигрывается: клиент дождётся таймаута и повторит сам.
				logger.WithError(err).Warn("failed to publish rpc reply")
			}
		}

		if err := d.Ack(false); err != nil {
			logger.WithError(err).Warn("failed to ack delivery")
		}
	}

	logger.Info("consumer stopped")
}

func (r *Router) publishReply(ctx context.Context, d amqp.Delivery, body []byte) error {
	return r.ch.PublishWithContext(
		ctx,
		"",        // default exchange
		d.ReplyTo, // reply queue
		false,     // mandatory
		false,     // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			CorrelationId: d.CorrelationId,
			Body:          body,
		},
	)
}
