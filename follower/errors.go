package follower

import "fmt"

// DiscoveryError reports that listing candidate streams failed. It aborts
// the whole follow operation before any stream is connected.
type DiscoveryError struct {
	Group string
	Err   error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discovering streams in %s: %v", e.Group, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// NoMatchError reports that the stream pattern matched none of the
// discovered streams. Raised before any poll is attempted.
type NoMatchError struct {
	Group   string
	Pattern string
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("no streams in %s match pattern %q", e.Group, e.Pattern)
}

// PollError reports a single failed poll. It is handed to
// OnStreamDisconnect and recovered via backoff until reconnects are
// exhausted.
type PollError struct {
	Stream string
	Err    error
}

func (e *PollError) Error() string {
	return fmt.Sprintf("polling stream %s: %v", e.Stream, e.Err)
}

func (e *PollError) Unwrap() error { return e.Err }

// StreamFatalError reports a stream abandoned after exhausting its
// reconnect budget. Isolated to that stream; siblings keep running.
type StreamFatalError struct {
	Stream   string
	Attempts int
	Err      error
}

func (e *StreamFatalError) Error() string {
	return fmt.Sprintf("stream %s abandoned after %d reconnect attempts: %v", e.Stream, e.Attempts, e.Err)
}

func (e *StreamFatalError) Unwrap() error { return e.Err }
