// Package metrics holds the server's Prometheus instrumentation: a
// Collector of connection/statement counters on a private registry,
// served over a small gorilla/mux HTTP server. Grounded on
// JeelKantaria-db-bouncer's internal/metrics and internal/api packages.
package metrics

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds every metric minipgd exposes.
type Collector struct {
	Registry *prometheus.Registry

	connectionsActive prometheus.Gauge
	connectionsTotal  prometheus.Counter
	statementsTotal   *prometheus.CounterVec
	statementErrors   *prometheus.CounterVec
	statementDuration *prometheus.HistogramVec
	rowsReturned      prometheus.Counter
	rowsInserted      prometheus.Counter
}

// New creates and registers every metric on a fresh, independent
// registry — safe to call repeatedly, e.g. once per test, without
// colliding with prometheus's global default registry.
func New() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		Registry: reg,
		connectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "minipg_connections_active",
			Help: "Number of currently open client connections",
		}),
		connectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "minipg_connections_total",
			Help: "Total number of client connections accepted",
		}),
		statementsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "minipg_statements_total",
			Help: "Total number of statements executed by kind",
		}, []string{"kind"}),
		statementErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "minipg_statement_errors_total",
			Help: "Total number of statement executions that returned an error, by SQLSTATE",
		}, []string{"sqlstate"}),
		statementDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "minipg_statement_duration_seconds",
			Help:    "Statement execution duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
		}, []string{"kind"}),
		rowsReturned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "minipg_rows_returned_total",
			Help: "Total number of rows returned by SELECT statements",
		}),
		rowsInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "minipg_rows_inserted_total",
			Help: "Total number of rows appended by INSERT statements",
		}),
	}

	reg.MustRegister(
		c.connectionsActive,
		c.connectionsTotal,
		c.statementsTotal,
		c.statementErrors,
		c.statementDuration,
		c.rowsReturned,
		c.rowsInserted,
	)
	return c
}

// ConnectionOpened records a new accepted connection.
func (c *Collector) ConnectionOpened() {
	c.connectionsTotal.Inc()
	c.connectionsActive.Inc()
}

// ConnectionClosed records a connection teardown.
func (c *Collector) ConnectionClosed() {
	c.connectionsActive.Dec()
}

// StatementExecuted records one executed statement's kind and duration.
func (c *Collector) StatementExecuted(kind string, d time.Duration) {
	c.statementsTotal.WithLabelValues(kind).Inc()
	c.statementDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// StatementFailed records a statement execution that produced a domain
// or system error, keyed by SQLSTATE.
func (c *Collector) StatementFailed(sqlstate string) {
	c.statementErrors.WithLabelValues(sqlstate).Inc()
}

// RowsReturned adds n to the SELECT row counter.
func (c *Collector) RowsReturned(n int) {
	c.rowsReturned.Add(float64(n))
}

// RowsInserted adds n to the INSERT row counter.
func (c *Collector) RowsInserted(n int) {
	c.rowsInserted.Add(float64(n))
}

// Server is the small HTTP server that exposes a Collector's registry at
// /metrics.
type Server struct {
	httpServer *http.Server
	log        *slog.Logger
}

// NewServer builds (but does not start) a metrics HTTP server bound to
// addr, using logger (or slog.Default() if nil) for lifecycle logging.
func NewServer(addr string, collector *Collector, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(collector.Registry, promhttp.HandlerOpts{}))

	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		log: logger,
	}
}

// Start begins serving in the background. Errors after a graceful Stop
// are not logged.
func (s *Server) Start() {
	s.log.Info("metrics server listening", slog.String("addr", s.httpServer.Addr))
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("metrics server error", slog.Any("err", err))
		}
	}()
}

// Stop gracefully shuts the metrics server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
