package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aidar/seminar-service/internal/domain"
)

const namespace = "seminar_service"

// Metrics собирает метрики сервиса в собственном реестре
type Metrics struct {
	registry    *prometheus.Registry
	operations  *prometheus.CounterVec
	txRetries   *prometheus.CounterVec
	httpReqs    *prometheus.CounterVec
	httpLatency *prometheus.HistogramVec
}

// New создает реестр и регистрирует все метрики
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrollment_operations_total",
			Help:      "Enrollment engine operations by outcome.",
		}, []string{"operation", "outcome"}),
		txRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrollment_tx_retries_total",
			Help:      "Transactions retried after a serialization failure or deadlock.",
		}, []string{"operation"}),
		httpReqs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	registry.MustRegister(
		m.operations,
		m.txRetries,
		m.httpReqs,
		m.httpLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler отдает метрики в формате Prometheus для GET /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry возвращает реестр (используется в тестах)
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveOperation учитывает результат операции движка записи
func (m *Metrics) ObserveOperation(operation string, err error) {
	m.operations.WithLabelValues(operation, Outcome(err)).Inc()
}

// ObserveRetry учитывает повтор транзакции
func (m *Metrics) ObserveRetry(operation string) {
	m.txRetries.WithLabelValues(operation).Inc()
}

// ObserveHTTP учитывает обработанный HTTP запрос
func (m *Metrics) ObserveHTTP(method, route string, status int, seconds float64) {
	m.httpReqs.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(method, route).Observe(seconds)
}

// Outcome превращает ошибку в значение метки: ok, вид доменной ошибки или error
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return strings.ToLower(string(de.Kind))
	}
	return "error"
}
