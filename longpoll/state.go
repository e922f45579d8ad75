package longpoll

// LoopState represents where a Subscription is in its poll cycle.
type LoopState int

const (
	// StateIdle means Start has not been called yet.
	StateIdle LoopState = iota

	// StatePolling means exactly one fetch is outstanding.
	StatePolling

	// StateMerging means a fetched message is being merged into the store.
	StateMerging

	// StateBackoff means a fetch failed and the retry timer is pending.
	StateBackoff

	// StateStopped is terminal: no further fetches, timers or merges.
	StateStopped
)

// String returns the string representation of a LoopState.
func (s LoopState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePolling:
		return "polling"
	case StateMerging:
		return "merging"
	case StateBackoff:
		return "backoff"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// StateEvent represents a state change event.
type StateEvent struct {
	OldState LoopState
	NewState LoopState
	Error    error // Fetch error that caused a transition into backoff
}
