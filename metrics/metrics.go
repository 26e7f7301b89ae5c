// Package metrics collects counters for a follow, tail, or query operation
// and renders the final report printed when the operation ends.
package metrics

import (
	"fmt"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Metrics counts what happened during one operation. All counters use
// atomic updates so the per-stream loops can record without coordination.
type Metrics struct {
	eventsReceived  int64 // Well-formed events forwarded to callbacks
	eventsSkipped   int64 // Malformed or duplicate records dropped
	pollsIssued     int64 // PollEvents / GetQueryStatus calls made
	reconnects      int64 // Reconnect attempts across all streams
	streamsFollowed int64 // Streams that reached the connected state
	streamsFailed   int64 // Streams abandoned after reconnect exhaustion
	queriesRun      int64 // Queries driven to a terminal state

	operationID string
	startTime   time.Time
}

// NewMetrics creates a Metrics instance stamped with a fresh operation ID.
func NewMetrics() *Metrics {
	return &Metrics{
		operationID: uuid.NewString(),
		startTime:   time.Now(),
	}
}

// OperationID returns the unique ID assigned to this operation.
func (m *Metrics) OperationID() string { return m.operationID }

// RecordEvent increments the forwarded events counter.
func (m *Metrics) RecordEvent() {
	atomic.AddInt64(&m.eventsReceived, 1)
}

// RecordSkipped increments the dropped records counter.
func (m *Metrics) RecordSkipped() {
	atomic.AddInt64(&m.eventsSkipped, 1)
}

// RecordPoll increments the poll counter.
func (m *Metrics) RecordPoll() {
	atomic.AddInt64(&m.pollsIssued, 1)
}

// RecordReconnect increments the reconnect counter.
func (m *Metrics) RecordReconnect() {
	atomic.AddInt64(&m.reconnects, 1)
}

// RecordStreamFollowed increments the connected streams counter.
func (m *Metrics) RecordStreamFollowed() {
	atomic.AddInt64(&m.streamsFollowed, 1)
}

// RecordStreamFailed increments the abandoned streams counter.
func (m *Metrics) RecordStreamFailed() {
	atomic.AddInt64(&m.streamsFailed, 1)
}

// RecordQuery increments the completed queries counter.
func (m *Metrics) RecordQuery() {
	atomic.AddInt64(&m.queriesRun, 1)
}

// Report is the final summary of an operation, suitable for JSON output
// or human-readable printing.
type Report struct {
	OperationID     string        `json:"operationId"`
	StartTime       time.Time     `json:"startTime"`
	EndTime         time.Time     `json:"endTime"`
	Duration        time.Duration `json:"duration"`
	EventsReceived  int64         `json:"eventsReceived"`
	EventsSkipped   int64         `json:"eventsSkipped"`
	PollsIssued     int64         `json:"pollsIssued"`
	Reconnects      int64         `json:"reconnects"`
	StreamsFollowed int64         `json:"streamsFollowed"`
	StreamsFailed   int64         `json:"streamsFailed"`
	Throughput      float64       `json:"throughput"` // events per second
}

// GenerateReport snapshots all counters into a Report.
func (m *Metrics) GenerateReport() Report {
	endTime := time.Now()
	duration := endTime.Sub(m.startTime)

	received := atomic.LoadInt64(&m.eventsReceived)
	var throughput float64
	if duration > 0 {
		throughput = float64(received) / duration.Seconds()
	}

	return Report{
		OperationID:     m.operationID,
		StartTime:       m.startTime,
		EndTime:         endTime,
		Duration:        duration,
		EventsReceived:  received,
		EventsSkipped:   atomic.LoadInt64(&m.eventsSkipped),
		PollsIssued:     atomic.LoadInt64(&m.pollsIssued),
		Reconnects:      atomic.LoadInt64(&m.reconnects),
		StreamsFollowed: atomic.LoadInt64(&m.streamsFollowed),
		StreamsFailed:   atomic.LoadInt64(&m.streamsFailed),
		Throughput:      throughput,
	}
}

// MarshalJSON renders Duration as a human-readable string instead of
// nanosecond counts.
func (r Report) MarshalJSON() ([]byte, error) {
	type Alias Report
	return json.Marshal(&struct {
		Alias
		Duration string `json:"duration"`
	}{
		Alias:    Alias(r),
		Duration: r.Duration.String(),
	})
}

// String returns the console rendering of the report.
func (r Report) String() string {
	return fmt.Sprintf(
		"Operation %s finished in %s\n"+
			"Events: %d forwarded, %d skipped\n"+
			"Streams: %d followed, %d failed\n"+
			"Polls: %d, reconnects: %d\n"+
			"Throughput: %.2f events/sec",
		r.OperationID,
		r.Duration,
		r.EventsReceived,
		r.EventsSkipped,
		r.StreamsFollowed,
		r.StreamsFailed,
		r.PollsIssued,
		r.Reconnects,
		r.Throughput,
	)
}
