package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/longpoll-sdk-go/longpoll"
)

func TestNewPrometheus_Defaults(t *testing.T) {
	p := NewPrometheus(nil, "")
	require.Equal(t, prometheus.DefaultRegisterer, p.reg)
	require.Equal(t, "longpoll", p.namespace)
}

func TestPrometheusCollector_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg, "test")

	p.RecordPoll(longpoll.PollMessage, 0.2)
	p.RecordPoll(longpoll.PollError, 0.1)
	p.RecordPoll(longpoll.PollError, 0.1)
	p.RecordMerge(true)
	p.RecordMerge(false)
	p.RecordBackoff(0.5)
	p.RecordPublish(true, 0.01)
	p.SetStoreSize(3)

	require.InDelta(t, 1, testutil.ToFloat64(p.polls.WithLabelValues(longpoll.PollMessage)), 0)
	require.InDelta(t, 2, testutil.ToFloat64(p.polls.WithLabelValues(longpoll.PollError)), 0)
	require.InDelta(t, 1, testutil.ToFloat64(p.merges.WithLabelValues("added")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(p.merges.WithLabelValues("duplicate")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(p.backoffs), 0)
	require.InDelta(t, 1, testutil.ToFloat64(p.publishes.WithLabelValues("success")), 0)
	require.InDelta(t, 3, testutil.ToFloat64(p.storeSize), 0)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	require.True(t, names["test_subscription_polls_total"])
	require.True(t, names["test_store_messages"])
}

func TestPrometheusCollector_SharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := NewPrometheus(reg, "shared")
	second := NewPrometheus(reg, "shared")

	first.RecordBackoff(0.5)
	second.RecordBackoff(0.5)

	require.InDelta(t, 2, testutil.ToFloat64(first.backoffs), 0)
	require.Same(t, first.polls, second.polls)
}

func TestPrometheusCollector_ConflictingRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "clash",
		Subsystem: "subscription",
		Name:      "polls_total",
		Help:      "Fetches completed, by result (message, empty, error).",
	}))

	p := NewPrometheus(reg, "clash")
	require.Panics(t, func() { p.RecordPoll(longpoll.PollMessage, 0.1) })
}
