package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Inventory metrics
	ServersTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hostkeeper_servers_total",
			Help: "Total number of registered servers by role",
		},
		[]string{"role"},
	)

	ServersNotReady = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hostkeeper_servers_not_ready",
			Help: "Registered servers flagged unreachable or unusable, by role",
		},
		[]string{"role"},
	)

	Containers = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hostkeeper_containers",
			Help: "Containers observed during the last status propagation, by server and state",
		},
		[]string{"server_id", "state"},
	)

	// Server check metrics
	ServerChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hostkeeper_server_checks_total",
			Help: "Total number of server check runs by result",
		},
		[]string{"result"},
	)

	ServerCheckDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hostkeeper_server_check_duration_seconds",
			Help:    "Server check run duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ServerChecksSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hostkeeper_server_checks_skipped_total",
			Help: "Scheduled server checks that were not started, by reason",
		},
		[]string{"reason"},
	)

	ProxyStartsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hostkeeper_proxy_starts_total",
			Help: "Proxy start attempts by result",
		},
		[]string{"result"},
	)

	// Background task metrics
	TasksSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hostkeeper_tasks_submitted_total",
			Help: "Total number of background tasks accepted by kind",
		},
		[]string{"kind"},
	)

	TasksFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hostkeeper_tasks_failed_total",
			Help: "Total number of failed background tasks by kind",
		},
		[]string{"kind"},
	)

	TasksDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hostkeeper_tasks_dropped_total",
			Help: "Background tasks not queued, by kind and reason",
		},
		[]string{"kind", "reason"},
	)

	TaskDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hostkeeper_task_duration_seconds",
			Help:    "Background task duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hostkeeper_api_requests_total",
			Help: "Total number of API requests by route and status",
		},
		[]string{"route", "status"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(ServersTotal)
	prometheus.MustRegister(ServersNotReady)
	prometheus.MustRegister(Containers)
	prometheus.MustRegister(ServerChecksTotal)
	prometheus.MustRegister(ServerCheckDuration)
	prometheus.MustRegister(ServerChecksSkipped)
	prometheus.MustRegister(ProxyStartsTotal)
	prometheus.MustRegister(TasksSubmitted)
	prometheus.MustRegister(TasksFailed)
	prometheus.MustRegister(TasksDropped)
	prometheus.MustRegister(TaskDuration)
	prometheus.MustRegister(APIRequestsTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
