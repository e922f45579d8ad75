package longpoll

// Poll outcomes reported to MetricsCollector.RecordPoll.
const (
	PollMessage = "message"
	PollEmpty   = "empty"
	PollError   = "error"
)

// MetricsCollector records subscription and publish activity.
//
// Implementations must be safe for concurrent use: the loop goroutine and
// publishing callers report independently.
type MetricsCollector interface {
	// RecordPoll records the outcome of one fetch (PollMessage, PollEmpty, PollError).
	RecordPoll(result string, duration float64)

	// RecordMerge records whether a fetched message was new or a duplicate.
	RecordMerge(added bool)

	// RecordBackoff records a retry wait in seconds.
	RecordBackoff(delay float64)

	// RecordPublish records one publish attempt.
	RecordPublish(success bool, duration float64)

	// SetStoreSize sets the number of messages in the active store.
	SetStoreSize(n int)
}

// NopMetrics discards all metrics.
type NopMetrics struct{}

var _ MetricsCollector = NopMetrics{}

func (NopMetrics) RecordPoll(string, float64)  {}
func (NopMetrics) RecordMerge(bool)            {}
func (NopMetrics) RecordBackoff(float64)       {}
func (NopMetrics) RecordPublish(bool, float64) {}
func (NopMetrics) SetStoreSize(int)            {}
