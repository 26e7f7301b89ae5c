package query

import (
	"fmt"
	"strings"
	"time"
)

// FailedError reports a query that reached the Failed or Cancelled state.
// It carries the original query for diagnostics.
type FailedError struct {
	QueryID string
	Status  Status
	Text    string
	Sources []string
	Start   time.Time
	End     time.Time
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("query %s ended %s (sources %s, window %s..%s): %s",
		e.QueryID,
		strings.ToLower(e.Status.String()),
		strings.Join(e.Sources, ","),
		e.Start.Format(time.RFC3339),
		e.End.Format(time.RFC3339),
		e.Text)
}

// TimeoutError reports a query still running after the poll budget was
// spent. A best-effort cancellation has already been issued by the time
// this error is returned.
type TimeoutError struct {
	QueryID  string
	Attempts int
	Elapsed  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("query %s still running after %d polls (%s); cancellation requested",
		e.QueryID, e.Attempts, e.Elapsed.Round(time.Second))
}
