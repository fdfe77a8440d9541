// Package observability exposes Prometheus metrics and the gRPC health service.
package observability

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics holds the ticket counters. A nil *Metrics is a valid no-op recorder.
type Metrics struct {
	registry        *prometheus.Registry
	ticketsOpened   prometheus.Counter
	ticketsClosed   prometheus.Counter
	actions         *prometheus.CounterVec
	ratings         *prometheus.CounterVec
	channelDeletion *prometheus.CounterVec
}

// NewMetrics registers the collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		ticketsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ticketbot_tickets_opened_total",
			Help: "Tickets opened.",
		}),
		ticketsClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ticketbot_tickets_closed_total",
			Help: "Tickets closed.",
		}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ticketbot_ticket_actions_total",
			Help: "Ticket actions by outcome.",
		}, []string{"action", "result"}),
		ratings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ticketbot_ratings_total",
			Help: "Ratings received by score.",
		}, []string{"rating"}),
		channelDeletion: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ticketbot_channel_deletions_total",
			Help: "Ticket channel deletions by outcome.",
		}, []string{"result"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ticketsOpened,
		m.ticketsClosed,
		m.actions,
		m.ratings,
		m.channelDeletion,
	)
	return m
}

func (m *Metrics) TicketOpened() {
	if m == nil {
		return
	}
	m.ticketsOpened.Inc()
}

func (m *Metrics) TicketClosed() {
	if m == nil {
		return
	}
	m.ticketsClosed.Inc()
}

// Action records the outcome of a lifecycle action; result is "ok" or an error code.
func (m *Metrics) Action(action, result string) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(action, result).Inc()
}

func (m *Metrics) Rating(score int) {
	if m == nil {
		return
	}
	m.ratings.WithLabelValues(strconv.Itoa(score)).Inc()
}

func (m *Metrics) ChannelDeletion(result string) {
	if m == nil {
		return
	}
	m.channelDeletion.WithLabelValues(result).Inc()
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// MetricsServer serves /metrics over HTTP.
type MetricsServer struct {
	srv    *http.Server
	logger *zap.Logger
}

// NewMetricsServer builds the HTTP server for addr.
func NewMetricsServer(addr string, m *Metrics, logger *zap.Logger) *MetricsServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	return &MetricsServer{
		srv:    &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		logger: logger,
	}
}

// Start listens in the background.
func (s *MetricsServer) Start() {
	go func() {
		s.logger.Info("metrics server listening", zap.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server failed", zap.Error(err))
		}
	}()
}

// Stop shuts the server down.
func (s *MetricsServer) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
