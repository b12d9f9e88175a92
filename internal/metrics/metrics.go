// Package metrics expone contadores Prometheus del servicio.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "market"

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	loginAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "Total number of login attempts",
		},
		[]string{"status"}, // success, invalid_credentials, role_mismatch
	)

	registrationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Total number of user registrations",
		},
	)

	passwordResetsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "password_resets_total",
			Help:      "Password reset lifecycle events",
		},
		[]string{"event"}, // requested, consumed, rejected, delivery_failed
	)

	invoicesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoices_total",
			Help:      "Invoice lifecycle events",
		},
		[]string{"event"}, // created, paid, cancelled
	)

	chatConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "chat_connections",
			Help:      "Number of live chat connections",
		},
	)

	chatBroadcastsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_broadcasts_total",
			Help:      "Total number of broadcast messages",
		},
	)

	chatEvictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_evictions_total",
			Help:      "Connections evicted after a failed send",
		},
	)
)

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func RecordLogin(status string) {
	loginAttemptsTotal.WithLabelValues(status).Inc()
}

func RecordRegistration() {
	registrationsTotal.Inc()
}

func RecordPasswordReset(event string) {
	passwordResetsTotal.WithLabelValues(event).Inc()
}

func RecordInvoice(event string) {
	invoicesTotal.WithLabelValues(event).Inc()
}

func SetChatConnections(n int) {
	chatConnections.Set(float64(n))
}

func RecordBroadcast(evicted int) {
	chatBroadcastsTotal.Inc()
	if evicted > 0 {
		chatEvictionsTotal.Add(float64(evicted))
	}
}

// Handler devuelve el handler de exposición de Prometheus.
func Handler() http.Handler {
	return promhttp.Handler()
}
