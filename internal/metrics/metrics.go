// Package metrics holds the prometheus collectors of the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"splitledger/internal/domain/ledger"
)

const namespace = "splitledger"

// Metrics implements ledger.Recorder and balances.EdgeObserver.
type Metrics struct {
	registry        *prometheus.Registry
	transitions     *prometheus.CounterVec
	expensesCreated *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	simplifiedEdges prometheus.Histogram
}

// New registers the collectors on a fresh registry together with the
// go runtime and process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "approval_transitions_total",
			Help:      "Approval request votes by request kind and resulting outcome.",
		}, []string{"kind", "outcome"}),
		expensesCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expenses_created_total",
			Help:      "Expenses created by split type.",
		}, []string{"split_type"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method, route pattern and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		simplifiedEdges: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "simplified_edges",
			Help:      "Number of debts left after simplifying a group.",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32, 64},
		}),
	}
}

func (m *Metrics) ExpenseCreated(splitType string) {
	m.expensesCreated.WithLabelValues(splitType).Inc()
}

func (m *Metrics) ApprovalTransition(kind ledger.Kind, outcome ledger.Outcome) {
	m.transitions.WithLabelValues(string(kind), string(outcome)).Inc()
}

func (m *Metrics) SimplifiedEdges(count int) {
	m.simplifiedEdges.Observe(float64(count))
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware observes request latency labelled with the chi route pattern,
// so path parameters do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requestDuration.WithLabelValues(r.Method, route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	})
}
