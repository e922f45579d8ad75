// Package metrics provides a Prometheus-backed longpoll.MetricsCollector.
package metrics

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vovakirdan/longpoll-sdk-go/longpoll"
)

// PrometheusCollector implements longpoll.MetricsCollector backed by Prometheus.
// Metrics are registered lazily on first use.
type PrometheusCollector struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	polls        *prometheus.CounterVec
	pollDuration *prometheus.HistogramVec
	merges       *prometheus.CounterVec
	backoffs     prometheus.Counter
	backoffDelay prometheus.Histogram
	publishes    *prometheus.CounterVec
	publishDur   prometheus.Histogram
	storeSize    prometheus.Gauge
}

var _ longpoll.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheus creates a new Prometheus-backed metrics collector.
//
// Parameters:
//   - reg: Prometheus registerer (prometheus.DefaultRegisterer if nil)
//   - namespace: metrics namespace ("longpoll" if empty)
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "longpoll"
	}
	return &PrometheusCollector{reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.polls = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "subscription",
			Name:      "polls_total",
			Help:      "Fetches completed, by result (message, empty, error).",
		}, []string{"result"})
		p.pollDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "subscription",
			Name:      "poll_duration_seconds",
			Help:      "Time each fetch was outstanding, by result.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60},
		}, []string{"result"})
		p.merges = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "subscription",
			Name:      "merges_total",
			Help:      "Fetched messages by merge outcome (added, duplicate).",
		}, []string{"outcome"})
		p.backoffs = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "subscription",
			Name:      "retries_total",
			Help:      "Retry waits scheduled after failed fetches.",
		})
		p.backoffDelay = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "subscription",
			Name:      "retry_delay_seconds",
			Help:      "Scheduled retry delays in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5},
		})
		p.publishes = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "publish",
			Name:      "requests_total",
			Help:      "Publish attempts by result (success, failure).",
		}, []string{"result"})
		p.publishDur = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "publish",
			Name:      "duration_seconds",
			Help:      "Publish request latency in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms .. ~2.5s
		})
		p.storeSize = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "store",
			Name:      "messages",
			Help:      "Messages held by the active store.",
		})

		p.polls = mustRegister(p.reg, p.polls)
		p.pollDuration = mustRegister(p.reg, p.pollDuration)
		p.merges = mustRegister(p.reg, p.merges)
		p.backoffs = mustRegister(p.reg, p.backoffs)
		p.backoffDelay = mustRegister(p.reg, p.backoffDelay)
		p.publishes = mustRegister(p.reg, p.publishes)
		p.publishDur = mustRegister(p.reg, p.publishDur)
		p.storeSize = mustRegister(p.reg, p.storeSize)
	})
}

// mustRegister registers c on reg. If an identical collector is already
// registered, the existing one is returned so several PrometheusCollectors can
// share a registry. Any other registration error panics, as MustRegister does.
func mustRegister[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	err := reg.Register(c)
	if err == nil {
		return c
	}
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(T); ok {
			return existing
		}
	}
	panic(err)
}

// RecordPoll implements longpoll.MetricsCollector.
func (p *PrometheusCollector) RecordPoll(result string, duration float64) {
	p.ensureRegistered()
	p.polls.WithLabelValues(result).Inc()
	p.pollDuration.WithLabelValues(result).Observe(duration)
}

// RecordMerge implements longpoll.MetricsCollector.
func (p *PrometheusCollector) RecordMerge(added bool) {
	p.ensureRegistered()
	outcome := "duplicate"
	if added {
		outcome = "added"
	}
	p.merges.WithLabelValues(outcome).Inc()
}

// RecordBackoff implements longpoll.MetricsCollector.
func (p *PrometheusCollector) RecordBackoff(delay float64) {
	p.ensureRegistered()
	p.backoffs.Inc()
	p.backoffDelay.Observe(delay)
}

// RecordPublish implements longpoll.MetricsCollector.
func (p *PrometheusCollector) RecordPublish(success bool, duration float64) {
	p.ensureRegistered()
	result := "failure"
	if success {
		result = "success"
	}
	p.publishes.WithLabelValues(result).Inc()
	p.publishDur.Observe(duration)
}

// SetStoreSize implements longpoll.MetricsCollector.
func (p *PrometheusCollector) SetStoreSize(n int) {
	p.ensureRegistered()
	p.storeSize.Set(float64(n))
}
