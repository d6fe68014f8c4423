// Package metrics holds the Prometheus instruments exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "yearlist"

var (
	// rankingCommands counts engine commands.
	// Labels: command (promote, demote, ...), result (ok, noop, error code)
	rankingCommands = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ranking",
		Name:      "commands_total",
		Help:      "Ranking engine commands by outcome",
	}, []string{"command", "result"})

	// persistDuration measures remote writes issued by ranking sessions.
	// Labels: status (success, error)
	persistDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "persist_duration_seconds",
		Help:      "Latency of partial update persistence",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"status"})

	// remoteSnapshots counts remote snapshots seen by sessions.
	// Labels: outcome (applied, echo)
	remoteSnapshots = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "remote_snapshots_total",
		Help:      "Remote snapshots received by ranking sessions",
	}, []string{"outcome"})

	// activeSessions tracks open ranking sessions.
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ranking",
		Name:      "active_sessions",
		Help:      "Open ranking sessions",
	})

	// poolAdds counts pool contributions.
	// Labels: result (ok, duplicate, error)
	poolAdds = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pool",
		Name:      "adds_total",
		Help:      "Pool add attempts by outcome",
	}, []string{"result"})

	// catalogRequests measures catalog provider searches.
	// Labels: provider, status (success, empty, unavailable, rate_limited)
	catalogRequests = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "catalog",
		Name:      "request_duration_seconds",
		Help:      "Catalog provider search latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"provider", "status"})

	// streamClients tracks connected SSE clients.
	streamClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "stream",
		Name:      "clients",
		Help:      "Connected real-time stream clients",
	})
)

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordCommand records the outcome of an engine command.
func RecordCommand(command, result string) {
	rankingCommands.WithLabelValues(command, result).Inc()
}

// RecordPersist records a persist attempt and its duration in seconds.
func RecordPersist(status string, durationSec float64) {
	persistDuration.WithLabelValues(status).Observe(durationSec)
}

// RecordRemoteSnapshot records whether a remote snapshot was applied or skipped as an echo.
func RecordRemoteSnapshot(outcome string) {
	remoteSnapshots.WithLabelValues(outcome).Inc()
}

// SessionOpened increments the open session gauge.
func SessionOpened() { activeSessions.Inc() }

// SessionClosed decrements the open session gauge.
func SessionClosed() { activeSessions.Dec() }

// RecordPoolAdd records a pool add outcome.
func RecordPoolAdd(result string) {
	poolAdds.WithLabelValues(result).Inc()
}

// RecordCatalogRequest records a catalog search.
func RecordCatalogRequest(provider, status string, durationSec float64) {
	catalogRequests.WithLabelValues(provider, status).Observe(durationSec)
}

// StreamConnected increments the stream client gauge.
func StreamConnected() { streamClients.Inc() }

// StreamDisconnected decrements the stream client gauge.
func StreamDisconnected() { streamClients.Dec() }
