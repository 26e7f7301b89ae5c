package export

import (
	"context"
	"sync"

	"github.com/cwtail/cwtail/event"
	"github.com/cwtail/cwtail/query"
)

// MemorySink implements the Sink interface in memory. It's primarily
// intended for testing purposes.
type MemorySink struct {
	mu      sync.Mutex
	Events  []event.Event
	Rows    []query.Row
	Flushes int
}

// NewMemorySink creates a new MemorySink instance
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// WriteEvents records the events.
func (m *MemorySink) WriteEvents(ctx context.Context, events []event.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, events...)
	return nil
}

// WriteRows records the rows.
func (m *MemorySink) WriteRows(ctx context.Context, rows []query.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Rows = append(m.Rows, rows...)
	return nil
}

// Flush counts flushes.
func (m *MemorySink) Flush(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Flushes++
	return nil
}
