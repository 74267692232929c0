// Package metrics exposes Prometheus collectors for the request gateway and
// the notification channel. A nil *Collector is valid and records nothing.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "retail"

// Collector groups the client's Prometheus metrics
type Collector struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	refreshes       *prometheus.CounterVec
	connected       prometheus.Gauge
	reconnects      prometheus.Counter
	frames          *prometheus.CounterVec
}

// New creates a collector and registers it with reg. A nil reg leaves the
// collectors unregistered, which is what tests usually want.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Outbound API requests by method and status code (0 for no response).",
		}, []string{"method", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Outbound API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "refresh_total",
			Help:      "Access token refresh attempts by result.",
		}, []string{"result"}),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "connected",
			Help:      "1 while the notification channel is connected.",
		}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "reconnects_total",
			Help:      "Scheduled automatic reconnect attempts.",
		}),
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "frames_total",
			Help:      "Inbound push frames by type.",
		}, []string{"type"}),
	}

	if reg != nil {
		for _, col := range []prometheus.Collector{
			c.requests, c.requestDuration, c.refreshes, c.connected, c.reconnects, c.frames,
		} {
			if err := reg.Register(col); err != nil {
				return nil, err
			}
		}
	}

	return c, nil
}

// ObserveRequest records one completed send. status is 0 when no response arrived.
func (c *Collector) ObserveRequest(method string, status int, d time.Duration) {
	if c == nil {
		return
	}
	c.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	c.requestDuration.WithLabelValues(method).Observe(d.Seconds())
}

// ObserveRefresh records the outcome of a shared refresh
func (c *Collector) ObserveRefresh(ok bool) {
	if c == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	c.refreshes.WithLabelValues(result).Inc()
}

// SetConnected tracks the channel connection state
func (c *Collector) SetConnected(connected bool) {
	if c == nil {
		return
	}
	if connected {
		c.connected.Set(1)
		return
	}
	c.connected.Set(0)
}

// IncReconnect counts a scheduled reconnect
func (c *Collector) IncReconnect() {
	if c == nil {
		return
	}
	c.reconnects.Inc()
}

// ObserveFrame counts an inbound frame by type
func (c *Collector) ObserveFrame(frameType string) {
	if c == nil {
		return
	}
	if frameType == "" {
		frameType = "unknown"
	}
	c.frames.WithLabelValues(frameType).Inc()
}
