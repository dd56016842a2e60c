package events

import "time"

// ResolverFinish is emitted after a resolver, node loader or checker call.
// Items is the batch size for batched shapes and 1 otherwise.
type ResolverFinish struct {
	Coordinate string
	Shape      string
	Items      int
	// Failed counts items that produced an error.
	Failed   int
	Kind     string
	Err      error
	Duration time.Duration
}

// WaveFinish is emitted after each wave of concurrent calls.
type WaveFinish struct {
	Wave     int
	Calls    int
	Duration time.Duration
}

// Bootstrap is emitted once the service has been validated.
type Bootstrap struct {
	Modules      int
	Bindings     int
	Checkers     int
	Requirements int
	Violations   int
	Duration     time.Duration
}
