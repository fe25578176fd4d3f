package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RPCMetrics содержит метрики обработки входящих RPC и вызовов каталога.
type RPCMetrics struct {
	// Счётчик обработанных запросов по паттерну и результату
	handledTotal *prometheus.CounterVec

	// Гистограмма времени обработки по паттерну
	handleDuration *prometheus.HistogramVec

	// Вызовы каталога
	catalogCalls    *prometheus.CounterVec
	catalogDuration prometheus.Histogram
}

// NewRPCMetrics создаёт метрики RPC в default registerer.
func NewRPCMetrics() *RPCMetrics {
	return newRPCMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newRPCMetricsWithRegisterer(registerer prometheus.Registerer) *RPCMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &RPCMetrics{
		handledTotal: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "orders_rpc_handled_total",
			Help: "Total number of handled RPC requests grouped by pattern and result",
		}, []string{"pattern", "result"}),
		handleDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "orders_rpc_handle_duration_seconds",
			Help:    "Duration of RPC request handling in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"pattern"}),
		catalogCalls: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "orders_catalog_calls_total",
			Help: "Total number of product catalog validation calls grouped by result",
		}, []string{"result"}),
		catalogDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "orders_catalog_call_duration_seconds",
			Help:    "Duration of product catalog validation calls in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}),
	}
}

// RecordHandled фиксирует обработанный запрос.
func (m *RPCMetrics) RecordHandled(pattern, result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.handledTotal.WithLabelValues(pattern, result).Inc()
	m.handleDuration.WithLabelValues(pattern).Observe(duration.Seconds())
}

// RecordCatalogCall фиксирует вызов каталога.
func (m *RPCMetrics) RecordCatalogCall(result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.catalogCalls.WithLabelValues(result).Inc()
	m.catalogDuration.Observe(duration.Seconds())
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}
