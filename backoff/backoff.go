// Package backoff computes retry delays for the per-stream reconnect loops.
package backoff

import (
	"fmt"
	"time"
)

// Delay returns the wait before retry number attempt: base * 2^(attempt-1).
// The first retry waits exactly base. No jitter is applied so callers and
// tests can rely on exact delays.
//
// attempt is 1-indexed. Calling with attempt <= 0 is a programming error
// and panics; the reconnect loop always passes attempt >= 1.
func Delay(attempt int, base time.Duration) time.Duration {
	if attempt <= 0 {
		panic(fmt.Sprintf("backoff: attempt must be >= 1, got %d", attempt))
	}
	return base * time.Duration(1<<uint(attempt-1))
}
