// Package livetail consumes a push-based live session: a single ordered
// stream of chunks delivering session lifecycle notices and batches of log
// events. Exactly one goroutine iterates a session; the multiplexer holds
// no state shared across sessions.
package livetail

import (
	"context"
	"log/slog"

	"github.com/cwtail/cwtail/event"
	"github.com/cwtail/cwtail/metrics"
)

// ChunkKind discriminates the session chunk variants.
type ChunkKind int

const (
	KindSessionStart ChunkKind = iota
	KindSessionUpdate
	KindSessionStop
)

// Session identifies an established live-tail session.
type Session struct {
	ID            string
	Identifiers   []string // Log groups covered by the session
	FilterPattern string
}

// Chunk is one unit of the session stream. Session is populated on start
// chunks, Events on update chunks.
type Chunk struct {
	Kind    ChunkKind
	Session Session
	Events  []event.Event
}

// Stream yields session chunks in arrival order. Recv blocks until the
// next chunk is available or the transport fails.
type Stream interface {
	Recv() (Chunk, error)
}

// Handler receives the multiplexer's side effects. Nil members are
// skipped. Close is invoked on every exit path, success or error, exactly
// once per Run.
type Handler struct {
	SessionStart func(s Session)
	Event        func(ev event.Event)
	Error        func(err error)
	Close        func()
}

// Multiplexer dispatches one live session to a Handler.
type Multiplexer struct {
	handler Handler
	verbose bool
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewMultiplexer creates a Multiplexer. The SessionStart callback only
// fires when verbose is set. A nil meter gets a fresh one.
func NewMultiplexer(handler Handler, meter *metrics.Metrics, verbose bool) *Multiplexer {
	if meter == nil {
		meter = metrics.NewMetrics()
	}
	return &Multiplexer{
		handler: handler,
		verbose: verbose,
		metrics: meter,
		logger:  slog.Default(),
	}
}

// Run processes chunks until the session stops, the transport fails, or
// ctx is cancelled. Malformed events inside update chunks are dropped
// silently; they never abort the session. Transport errors reach the Error
// callback first and are then returned, after Close has fired.
func (m *Multiplexer) Run(ctx context.Context, stream Stream) error {
	defer func() {
		if m.handler.Close != nil {
			m.handler.Close()
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		chunk, err := stream.Recv()
		if err != nil {
			if m.handler.Error != nil {
				m.handler.Error(err)
			}
			return err
		}

		switch chunk.Kind {
		case KindSessionStart:
			m.logger.Debug("live session started",
				"sessionId", chunk.Session.ID,
				"identifiers", chunk.Session.Identifiers)
			if m.verbose && m.handler.SessionStart != nil {
				m.handler.SessionStart(chunk.Session)
			}

		case KindSessionUpdate:
			for _, ev := range chunk.Events {
				if !ev.WellFormed() {
					m.metrics.RecordSkipped()
					continue
				}
				if m.handler.Event != nil {
					m.handler.Event(ev)
				}
				m.metrics.RecordEvent()
			}

		case KindSessionStop:
			m.logger.Debug("live session stopped", "sessionId", chunk.Session.ID)
			return nil
		}
	}
}
