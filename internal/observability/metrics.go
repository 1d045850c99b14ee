package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "fabricctl"

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"server", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"server", "method", "path", "status"},
	)
	switchesConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "openflow",
			Name:      "switches_connected",
			Help:      "Switches with a live control channel.",
		},
	)
	packetIns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "openflow",
			Name:      "packet_in_total",
			Help:      "Packet-in events by forwarding mode and verdict.",
		},
		[]string{"mode", "verdict"},
	)
	rulesEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "routing",
			Name:      "rules_total",
			Help:      "Flow rules sent to switches by decision kind.",
		},
		[]string{"kind"},
	)
	floods = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "routing",
			Name:      "floods_total",
			Help:      "Packets flooded instead of routed, by reason.",
		},
		[]string{"reason"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, switchesConnected, packetIns, rulesEmitted, floods)
	})
}

func RecordHTTPRequest(server, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(server, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(server, method, path, statusLabel).Observe(duration.Seconds())
}

func SetSwitchesConnected(n int) {
	RegisterMetrics()
	switchesConnected.Set(float64(n))
}

func RecordPacketIn(mode, verdict string) {
	RegisterMetrics()
	packetIns.WithLabelValues(mode, verdict).Inc()
}

func RecordRules(kind string, n int) {
	if n <= 0 {
		return
	}
	RegisterMetrics()
	rulesEmitted.WithLabelValues(kind).Add(float64(n))
}

func RecordFlood(reason string) {
	RegisterMetrics()
	floods.WithLabelValues(reason).Inc()
}
