// Package metrics - счётчики Prometheus для процессов площадки.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics хранит все коллекторы сервиса в собственном реестре.
type Metrics struct {
	registry *prometheus.Registry

	CompetitionTransitions *prometheus.CounterVec
	WinnersSelected        prometheus.Counter
	SweepMoved             prometheus.Counter
	RemindersSent          prometheus.Counter
	NotificationsCreated   *prometheus.CounterVec
	OutboxPublished        prometheus.Counter
	OutboxFailed           prometheus.Counter
	RequestDuration        *prometheus.HistogramVec
}

// New регистрирует коллекторы.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		CompetitionTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "competitions_transitioned_total",
			Help: "Competition status transitions by target status.",
		}, []string{"status"}),
		WinnersSelected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "competition_winners_selected_total",
			Help: "Completed winner selections.",
		}),
		SweepMoved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "deadline_sweep_moved_total",
			Help: "Competitions moved to review by the deadline sweep.",
		}),
		RemindersSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "deadline_reminders_sent_total",
			Help: "Deadline reminder notifications created.",
		}),
		NotificationsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_created_total",
			Help: "Notifications created by type.",
		}, []string{"type"}),
		OutboxPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "outbox_events_published_total",
			Help: "Outbox events delivered to the broker.",
		}),
		OutboxFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "outbox_events_failed_total",
			Help: "Outbox publish attempts that failed.",
		}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	m.registry.MustRegister(
		m.CompetitionTransitions,
		m.WinnersSelected,
		m.SweepMoved,
		m.RemindersSent,
		m.NotificationsCreated,
		m.OutboxPublished,
		m.OutboxFailed,
		m.RequestDuration,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler отдаёт метрики в формате Prometheus.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware замеряет длительность запросов по шаблону маршрута.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		m.RequestDuration.
			WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).
			Observe(time.Since(start).Seconds())
	})
}
