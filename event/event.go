// Package event defines the log event value type shared by the follower,
// the live-tail multiplexer, and the export sinks.
package event

import "time"

// Event is a single log record as received from the transport. Events are
// immutable once emitted: the core hands them to callbacks and never keeps
// a reference.
type Event struct {
	Timestamp  time.Time // When the record was emitted at the source
	Message    string    // Raw log line
	StreamName string    // Originating stream, when known
	ID         string    // Transport-assigned event ID, when present
}

// WellFormed reports whether the event carries both a timestamp and a
// message. Records missing either are dropped silently by consumers rather
// than aborting the stream that delivered them.
func (e Event) WellFormed() bool {
	return !e.Timestamp.IsZero() && e.Message != ""
}
