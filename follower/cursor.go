package follower

import "time"

// seenWindow bounds how many recent event IDs a cursor remembers for
// dedup across the idle look-back overlap.
const seenWindow = 1024

// Cursor is the per-stream bookmark. Each follow loop owns exactly one
// cursor; nothing else touches it, so no locking is needed.
//
// The observed timestamp only moves forward. The look-back rewind affects
// the poll window, not the recorded high-water mark, so an event can be
// fetched twice but the cursor itself never regresses.
type Cursor struct {
	last     time.Time
	token    *string
	lookback time.Duration
	rewound  bool

	seen     map[string]struct{}
	seenFifo []string
}

// newCursor creates a cursor starting at start. Polls after an idle cycle
// reach back by lookback to cover clock and ingestion skew.
func newCursor(start time.Time, lookback time.Duration) *Cursor {
	return &Cursor{
		last:     start,
		lookback: lookback,
		seen:     make(map[string]struct{}, seenWindow),
	}
}

// Advance moves the high-water mark forward. Older timestamps are ignored.
func (c *Cursor) Advance(ts time.Time) {
	if ts.After(c.last) {
		c.last = ts
	}
	c.rewound = false
}

// Last returns the highest timestamp observed so far.
func (c *Cursor) Last() time.Time { return c.last }

// Since returns the timestamp the next poll should start from. After an
// idle poll this is the high-water mark minus the look-back window.
func (c *Cursor) Since() time.Time {
	if c.rewound {
		return c.last.Add(-c.lookback)
	}
	return c.last
}

// Rewind arms the look-back window for the next poll. Called after a poll
// that returned neither events nor a continuation token.
func (c *Cursor) Rewind() { c.rewound = true }

// Token returns the continuation token for the next poll, if any.
func (c *Cursor) Token() *string { return c.token }

// SetToken records the continuation token from the latest poll.
func (c *Cursor) SetToken(token *string) { c.token = token }

// Seen reports whether id was delivered recently and records it if not.
// The look-back rewind can re-fetch events inside the overlap window; this
// keeps them from being forwarded twice. Only the most recent seenWindow
// IDs are retained.
func (c *Cursor) Seen(id string) bool {
	if _, ok := c.seen[id]; ok {
		return true
	}
	c.seen[id] = struct{}{}
	c.seenFifo = append(c.seenFifo, id)
	if len(c.seenFifo) > seenWindow {
		delete(c.seen, c.seenFifo[0])
		c.seenFifo = c.seenFifo[1:]
	}
	return false
}
