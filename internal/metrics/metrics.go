package metrics

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the console.
//
// Every Observe* helper is safe on a nil receiver so callers that were built
// without metrics need no checks.
type Metrics struct {
	// Backend API metrics
	APIRequests   *prometheus.CounterVec
	APILatency    *prometheus.HistogramVec
	ForcedLogouts prometheus.Counter

	// Session metrics
	Logins  *prometheus.CounterVec
	Logouts *prometheus.CounterVec

	// Resource controller metrics
	Loads     *prometheus.CounterVec
	Mutations *prometheus.CounterVec

	// Notification metrics
	Notifications *prometheus.CounterVec

	// Command execution metrics
	CommandExecutions *prometheus.CounterVec
	CommandDuration   *prometheus.HistogramVec

	// Error metrics (by error code from structured errors)
	Errors *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		APIRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "afyadmin_api_requests_total",
				Help: "Total number of backend API requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		APILatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "afyadmin_api_latency_seconds",
				Help:    "Backend API request latency in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method", "endpoint"},
		),
		ForcedLogouts: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "afyadmin_forced_logouts_total",
				Help: "Total number of sessions ended by a backend 401",
			},
		),

		Logins: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "afyadmin_logins_total",
				Help: "Total number of sign-in attempts",
			},
			[]string{"result"},
		),
		Logouts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "afyadmin_logouts_total",
				Help: "Total number of sessions ended",
			},
			[]string{"reason"},
		),

		Loads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "afyadmin_resource_loads_total",
				Help: "Total number of resource list loads",
			},
			[]string{"resource", "success"},
		),
		Mutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "afyadmin_resource_mutations_total",
				Help: "Total number of create, update and delete operations",
			},
			[]string{"resource", "operation", "success"},
		),

		Notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "afyadmin_notifications_total",
				Help: "Total number of operator notifications",
			},
			[]string{"severity"},
		),

		CommandExecutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "afyadmin_command_executions_total",
				Help: "Total number of command executions",
			},
			[]string{"command", "success"},
		),
		CommandDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "afyadmin_command_duration_seconds",
				Help:    "Command execution duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"command"},
		),

		Errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "afyadmin_errors_total",
				Help: "Total number of errors by error code",
			},
			[]string{"error_code", "component"},
		),
	}
}

// ObserveRequest records one backend request. status 0 means no response.
func (m *Metrics) ObserveRequest(method, path string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	endpoint := Endpoint(path)
	m.APIRequests.WithLabelValues(method, endpoint, statusLabel(status)).Inc()
	m.APILatency.WithLabelValues(method, endpoint).Observe(elapsed.Seconds())
}

// ObserveForcedLogout records a session ended by the backend.
func (m *Metrics) ObserveForcedLogout() {
	if m == nil {
		return
	}
	m.ForcedLogouts.Inc()
}

// ObserveLogin records a sign-in attempt: "ok", "rejected" or "error".
func (m *Metrics) ObserveLogin(result string) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(result).Inc()
}

// ObserveLogout records a session end.
func (m *Metrics) ObserveLogout(reason string) {
	if m == nil {
		return
	}
	m.Logouts.WithLabelValues(reason).Inc()
}

// ObserveLoad records a list load for resource.
func (m *Metrics) ObserveLoad(resource string, success bool) {
	if m == nil {
		return
	}
	m.Loads.WithLabelValues(resource, strconv.FormatBool(success)).Inc()
}

// ObserveMutation records a create, update or delete.
func (m *Metrics) ObserveMutation(resource, operation string, success bool) {
	if m == nil {
		return
	}
	m.Mutations.WithLabelValues(resource, operation, strconv.FormatBool(success)).Inc()
}

// ObserveNotification records a notification by severity.
func (m *Metrics) ObserveNotification(severity string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(severity).Inc()
}

// ObserveCommand records a CLI command run.
func (m *Metrics) ObserveCommand(command string, success bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.CommandExecutions.WithLabelValues(command, strconv.FormatBool(success)).Inc()
	m.CommandDuration.WithLabelValues(command).Observe(elapsed.Seconds())
}

// ObserveError records an error by its structured code.
func (m *Metrics) ObserveError(code, component string) {
	if m == nil || code == "" {
		return
	}
	m.Errors.WithLabelValues(code, component).Inc()
}

// Endpoint reduces a request path to a low-cardinality label: the first path
// segment, or the host for absolute URLs.
func Endpoint(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		if u, err := url.Parse(path); err == nil {
			return u.Host
		}
		return "external"
	}
	trimmed := strings.TrimLeft(path, "/")
	if i := strings.IndexAny(trimmed, "/?"); i >= 0 {
		trimmed = trimmed[:i]
	}
	if trimmed == "" {
		return "/"
	}
	return trimmed
}

func statusLabel(status int) string {
	if status == 0 {
		return "none"
	}
	return strconv.Itoa(status)
}
