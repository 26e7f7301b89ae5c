// Package query drives an asynchronous log query job to a terminal state:
// submit, poll on a fixed interval, and finish on completion, failure, or a
// bounded timeout with best-effort cancellation.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cwtail/cwtail/metrics"
)

// Status is the lifecycle state of a query job. Transitions only move
// forward; a job never returns to Running once terminal.
type Status int

const (
	StatusUnknown Status = iota
	StatusRunning
	StatusComplete
	StatusFailed
	StatusCancelled
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "Running"
	case StatusComplete:
		return "Complete"
	case StatusFailed:
		return "Failed"
	case StatusCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Terminal reports whether the status ends the poll loop.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusFailed || s == StatusCancelled
}

// Field is one column of a result row.
type Field struct {
	Name  string
	Value string
}

// Row is one result row.
type Row []Field

// Statistics summarizes query execution, when the backend reports it.
type Statistics struct {
	RecordsMatched float64
	RecordsScanned float64
	BytesScanned   float64
}

// Params describes the query to submit.
type Params struct {
	Sources []string  // Log groups to search
	Text    string    // Query text
	Start   time.Time // Window start, inclusive
	End     time.Time // Window end, inclusive
	Limit   int32     // Max result rows; 0 uses the backend default
}

// Snapshot is the backend's view of a job at one poll.
type Snapshot struct {
	Status Status
	Rows   []Row
	Stats  *Statistics
}

// Client is the transport the poller drives. CancelQuery is best-effort:
// the poller swallows its errors so a cancellation failure never masks the
// timeout being reported.
type Client interface {
	SubmitQuery(ctx context.Context, p Params) (string, error)
	GetQueryStatus(ctx context.Context, queryID string) (Snapshot, error)
	CancelQuery(ctx context.Context, queryID string) error
}

// Result is a completed query.
type Result struct {
	QueryID string
	Rows    []Row
	Stats   Statistics
	Polls   int
}

// Options tunes the poll loop. The defaults bound a query to 120 polls of
// 5 seconds, ten minutes total.
type Options struct {
	PollInterval time.Duration // Default 5s
	MaxPolls     int           // Default 120
	// OnProgress is invoked after each poll that finds the job still
	// running. Progress is cosmetic; correctness never depends on it.
	OnProgress func(attempt int, status Status)
}

// Poller runs queries to completion.
type Poller struct {
	client  Client
	opts    Options
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewPoller creates a Poller. A nil meter gets a fresh one; zero option
// values fall back to defaults.
func NewPoller(client Client, meter *metrics.Metrics, opts Options) *Poller {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	if opts.MaxPolls <= 0 {
		opts.MaxPolls = 120
	}
	if meter == nil {
		meter = metrics.NewMetrics()
	}
	return &Poller{
		client:  client,
		opts:    opts,
		metrics: meter,
		logger:  slog.Default(),
	}
}

// Run submits the query and polls until it completes, fails, times out, or
// ctx is cancelled. Transient transport errors during submit or poll
// propagate directly; retrying the whole query is the caller's decision.
func (p *Poller) Run(ctx context.Context, params Params) (*Result, error) {
	if params.Text == "" {
		return nil, fmt.Errorf("query text is required")
	}
	if !params.End.After(params.Start) {
		return nil, fmt.Errorf("query window end must be after start")
	}

	queryID, err := p.client.SubmitQuery(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("submitting query: %w", err)
	}
	started := time.Now()
	p.logger.Info("query submitted", "queryId", queryID, "sources", params.Sources)

	for attempt := 1; attempt <= p.opts.MaxPolls; attempt++ {
		select {
		case <-time.After(p.opts.PollInterval):
		case <-ctx.Done():
			p.cancelQuietly(queryID)
			return nil, ctx.Err()
		}

		snap, err := p.client.GetQueryStatus(ctx, queryID)
		p.metrics.RecordPoll()
		if err != nil {
			return nil, fmt.Errorf("polling query %s: %w", queryID, err)
		}

		switch snap.Status {
		case StatusRunning, StatusUnknown:
			if p.opts.OnProgress != nil {
				p.opts.OnProgress(attempt, snap.Status)
			}

		case StatusComplete:
			p.metrics.RecordQuery()
			result := &Result{QueryID: queryID, Rows: snap.Rows, Polls: attempt}
			if snap.Stats != nil {
				result.Stats = *snap.Stats
			}
			return result, nil

		case StatusFailed, StatusCancelled:
			return nil, &FailedError{
				QueryID: queryID,
				Status:  snap.Status,
				Text:    params.Text,
				Sources: params.Sources,
				Start:   params.Start,
				End:     params.End,
			}
		}
	}

	// Attempts exhausted: stop the remote job so it does not keep
	// consuming scan capacity, then report the timeout.
	p.cancelQuietly(queryID)
	return nil, &TimeoutError{
		QueryID:  queryID,
		Attempts: p.opts.MaxPolls,
		Elapsed:  time.Since(started),
	}
}

// cancelQuietly issues a best-effort cancellation. Errors are logged and
// dropped so they cannot mask the error Run is about to return.
func (p *Poller) cancelQuietly(queryID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.client.CancelQuery(ctx, queryID); err != nil {
		p.logger.Warn("query cancellation failed", "queryId", queryID, "error", err)
	}
}
