package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNewRPCMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := newRPCMetricsWithRegisterer(registry)

	if metrics == nil {
		t.Fatal("newRPCMetricsWithRegisterer should not return nil")
	}
	if metrics.handledTotal == nil {
		t.Error("handledTotal counter vec should not be nil")
	}
	if metrics.handleDuration == nil {
		t.Error("handleDuration histogram vec should not be nil")
	}
	if metrics.catalogCalls == nil {
		t.Error("catalogCalls counter vec should not be nil")
	}
	if metrics.catalogDuration == nil {
		t.Error("catalogDuration histogram should not be nil")
	}
}

func TestRPCMetrics_RecordHandled(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := newRPCMetricsWithRegisterer(registry)

	metrics.RecordHandled("orders.create", "ok", 15*time.Millisecond)
	metrics.RecordHandled("orders.create", "ok", 5*time.Millisecond)
	metrics.RecordHandled("orders.create", "400", time.Millisecond)

	counter, err := metrics.handledTotal.GetMetricWithLabelValues("orders.create", "ok")
	if err != nil {
		t.Fatalf("get counter: %v", err)
	}

	var m dto.Metric
	if err := counter.Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if got := m.GetCounter().GetValue(); got != 2 {
		t.Fatalf("expected 2 ok requests, got %v", got)
	}
}

func TestRPCMetrics_RecordCatalogCall(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := newRPCMetricsWithRegisterer(registry)

	metrics.RecordCatalogCall("ok", 10*time.Millisecond)
	metrics.RecordCatalogCall("unavailable", time.Second)

	counter, err := metrics.catalogCalls.GetMetricWithLabelValues("unavailable")
	if err != nil {
		t.Fatalf("get counter: %v", err)
	}

	var m dto.Metric
	if err := counter.Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if got := m.GetCounter().GetValue(); got != 1 {
		t.Fatalf("expected 1 unavailable call, got %v", got)
	}
}

func TestRPCMetrics_ReuseOnDoubleRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()

	first := newRPCMetricsWithRegisterer(registry)
	second := newRPCMetricsWithRegisterer(registry)

	// Повторная инициализация переиспользует уже зарегистрированные коллекторы.
	if first.handledTotal != second.handledTotal {
		t.Error("expected handledTotal to be reused")
	}
	if first.catalogCalls != second.catalogCalls {
		t.Error("expected catalogCalls to be reused")
	}
}

func TestRPCMetrics_NilReceiverIsNoop(t *testing.T) {
	var metrics *RPCMetrics

	// Не должно паниковать: транспорт может работать без метрик.
	metrics.RecordHandled("orders.create", "ok", time.Millisecond)
	metrics.RecordCatalogCall("ok", time.Millisecond)
}
