// Package follower locates the streams of a log group that match a name
// pattern and runs one independent poll/reconnect loop per stream. Each
// loop owns its cursor and reconnect budget; one stream exhausting its
// retries never affects its siblings.
package follower

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cwtail/cwtail/backoff"
	"github.com/cwtail/cwtail/event"
	"github.com/cwtail/cwtail/match"
	"github.com/cwtail/cwtail/metrics"
)

// StreamInfo describes a discovered stream.
type StreamInfo struct {
	Name         string
	LastActivity time.Time
}

// PollResult is one page of events from a stream.
type PollResult struct {
	Events    []event.Event
	NextToken *string
}

// LogSource is the transport the follower polls. The CloudWatch adapter
// implements it; tests supply fakes.
type LogSource interface {
	// ListStreams returns up to limit streams of the group, ordered by
	// most recent activity first.
	ListStreams(ctx context.Context, group string, limit int32) ([]StreamInfo, error)
	// PollEvents fetches events of one stream at or after since,
	// optionally filtered server-side and resumed from a continuation
	// token.
	PollEvents(ctx context.Context, group, stream string, since time.Time, filter string, token *string, limit int32) (PollResult, error)
}

// Options configures a follow operation.
type Options struct {
	Group          string        // Log group to follow (required)
	StreamPattern  string        // Stream name pattern; empty follows every stream
	PatternIsRegex bool          // Treat StreamPattern as a regex instead of a glob
	FilterPattern  string        // Server-side event filter, passed through verbatim
	Start          time.Time     // Follow events at or after this instant (default: now)
	PageSize       int32         // Events per poll (default 50)
	MaxReconnects  int           // Reconnect budget per stream (default 5)
	BaseDelay      time.Duration // First backoff delay (default 1s)
	IdleWait       time.Duration // Sleep after an empty poll (default 2s)
	LookBack       time.Duration // Overlap window after an idle poll (default 10s)
	MaxConcurrent  int           // Cap on simultaneously polled streams (default: no cap)
}

// StreamResult is the settled outcome of one stream's follow loop. Err is
// nil when the loop ended by cancellation rather than reconnect
// exhaustion.
type StreamResult struct {
	Name   string
	Events int64
	Err    error
}

// Follower runs the follow operation.
type Follower struct {
	source  LogSource
	obs     Observer
	opts    Options
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewFollower creates a Follower. A nil meter gets a fresh one; missing
// option values fall back to defaults.
func NewFollower(source LogSource, obs Observer, meter *metrics.Metrics, opts Options) *Follower {
	if opts.PageSize <= 0 {
		opts.PageSize = 50
	}
	if opts.MaxReconnects <= 0 {
		opts.MaxReconnects = 5
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = time.Second
	}
	if opts.IdleWait <= 0 {
		opts.IdleWait = 2 * time.Second
	}
	if opts.LookBack <= 0 {
		opts.LookBack = 10 * time.Second
	}
	if opts.Start.IsZero() {
		opts.Start = time.Now()
	}
	if meter == nil {
		meter = metrics.NewMetrics()
	}
	return &Follower{
		source:  source,
		obs:     obs,
		opts:    opts,
		metrics: meter,
		logger:  slog.Default(),
	}
}

// Run discovers and filters the group's streams, then follows each
// matching stream until it settles. Only discovery, pattern compilation,
// and zero-match failures make Run itself fail, and all of them happen
// before any stream is polled. Per-stream failures are reported through
// the observer and the returned StreamResults.
func (f *Follower) Run(ctx context.Context) ([]StreamResult, error) {
	pred, err := match.Compile(f.opts.StreamPattern, f.opts.PatternIsRegex)
	if err != nil {
		return nil, err
	}

	streams, err := f.source.ListStreams(ctx, f.opts.Group, f.opts.PageSize)
	if err != nil {
		return nil, &DiscoveryError{Group: f.opts.Group, Err: err}
	}

	matched := streams[:0:0]
	for _, s := range streams {
		if pred(s.Name) {
			matched = append(matched, s)
		}
	}
	if len(matched) == 0 {
		return nil, &NoMatchError{Group: f.opts.Group, Pattern: f.opts.StreamPattern}
	}

	f.logger.Info("following streams",
		"group", f.opts.Group,
		"matched", len(matched),
		"discovered", len(streams),
		"operation", f.metrics.OperationID())

	// Settle-all join: workers report outcomes through results and the
	// observer, never through the group, so one stream's permanent
	// failure cannot cancel its siblings.
	results := make([]StreamResult, len(matched))
	g := new(errgroup.Group)
	if f.opts.MaxConcurrent > 0 {
		g.SetLimit(f.opts.MaxConcurrent)
	}
	for i, s := range matched {
		i, s := i, s
		g.Go(func() error {
			results[i] = f.followStream(ctx, s.Name)
			return nil
		})
	}
	_ = g.Wait()

	f.obs.OnClose()
	return results, nil
}

// followState is the per-stream loop state.
type followState int

const (
	stateConnect followState = iota
	statePoll
	stateBackoff
	stateDone
)

// followStream runs one stream's loop to a terminal state. The cursor and
// reconnect counter live on this goroutine's stack; nothing is shared with
// sibling streams.
func (f *Follower) followStream(ctx context.Context, name string) StreamResult {
	cur := newCursor(f.opts.Start, f.opts.LookBack)
	attempts := 0
	var forwarded int64
	var lastErr error

	state := stateConnect
	for state != stateDone {
		switch state {
		case stateConnect:
			f.obs.OnStreamConnect(name)
			f.metrics.RecordStreamFollowed()
			state = statePoll

		case statePoll:
			if ctx.Err() != nil {
				state = stateDone
				continue
			}
			res, err := f.source.PollEvents(ctx, f.opts.Group, name, cur.Since(), f.opts.FilterPattern, cur.Token(), f.opts.PageSize)
			f.metrics.RecordPoll()
			if err != nil {
				pollErr := &PollError{Stream: name, Err: err}
				f.obs.OnStreamDisconnect(name, pollErr)
				attempts++
				if attempts <= f.opts.MaxReconnects {
					state = stateBackoff
					continue
				}
				fatal := &StreamFatalError{Stream: name, Attempts: attempts - 1, Err: err}
				f.obs.OnError(fatal, name)
				f.metrics.RecordStreamFailed()
				f.logger.Warn("stream abandoned", "stream", name, "attempts", attempts-1, "error", err)
				lastErr = fatal
				state = stateDone
				continue
			}
			attempts = 0

			for _, ev := range res.Events {
				if !ev.WellFormed() {
					f.metrics.RecordSkipped()
					continue
				}
				if ev.ID != "" && cur.Seen(ev.ID) {
					f.metrics.RecordSkipped()
					continue
				}
				cur.Advance(ev.Timestamp)
				f.obs.OnEvent(ev, name)
				f.metrics.RecordEvent()
				forwarded++
			}
			cur.SetToken(res.NextToken)

			if len(res.Events) == 0 && res.NextToken == nil {
				if !sleepCtx(ctx, f.opts.IdleWait) {
					state = stateDone
					continue
				}
				// Reach back over the idle gap to cover clock and
				// ingestion skew; the seen-ID set absorbs re-fetches.
				cur.Rewind()
			}

		case stateBackoff:
			f.obs.OnReconnect(name, attempts)
			f.metrics.RecordReconnect()
			if !sleepCtx(ctx, backoff.Delay(attempts, f.opts.BaseDelay)) {
				state = stateDone
				continue
			}
			state = statePoll
		}
	}

	return StreamResult{Name: name, Events: forwarded, Err: lastErr}
}

// sleepCtx waits for d, returning false if the context is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
