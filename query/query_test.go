package query

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// scriptedClient returns snapshots in order; the last one repeats forever.
type scriptedClient struct {
	submitErr   error
	snapshots   []Snapshot
	statusErr   error
	cancelErr   error
	statusCalls int
	cancelCalls int
}

func (c *scriptedClient) SubmitQuery(ctx context.Context, p Params) (string, error) {
	if c.submitErr != nil {
		return "", c.submitErr
	}
	return "query-1", nil
}

func (c *scriptedClient) GetQueryStatus(ctx context.Context, queryID string) (Snapshot, error) {
	c.statusCalls++
	if c.statusErr != nil {
		return Snapshot{}, c.statusErr
	}
	i := c.statusCalls - 1
	if i >= len(c.snapshots) {
		i = len(c.snapshots) - 1
	}
	return c.snapshots[i], nil
}

func (c *scriptedClient) CancelQuery(ctx context.Context, queryID string) error {
	c.cancelCalls++
	return c.cancelErr
}

func testParams() Params {
	return Params{
		Sources: []string{"/aws/lambda/app"},
		Text:    "fields @timestamp, @message | limit 10",
		Start:   time.Unix(1000, 0),
		End:     time.Unix(2000, 0),
	}
}

func fastPoller(c Client, maxPolls int) *Poller {
	return NewPoller(c, nil, Options{PollInterval: time.Microsecond, MaxPolls: maxPolls})
}

func TestCompleteAfterRunning(t *testing.T) {
	rows := []Row{{{Name: "@message", Value: "hello"}}}
	client := &scriptedClient{
		snapshots: []Snapshot{
			{Status: StatusRunning},
			{Status: StatusRunning},
			{Status: StatusComplete, Rows: rows, Stats: &Statistics{RecordsMatched: 1, RecordsScanned: 40, BytesScanned: 512}},
		},
	}

	var progress []int
	p := NewPoller(client, nil, Options{
		PollInterval: time.Microsecond,
		MaxPolls:     10,
		OnProgress: func(attempt int, status Status) {
			if status != StatusRunning {
				t.Errorf("progress fired with status %v", status)
			}
			progress = append(progress, attempt)
		},
	})

	result, err := p.Run(context.Background(), testParams())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(result.Rows) != 1 || result.Rows[0][0].Value != "hello" {
		t.Errorf("unexpected rows: %v", result.Rows)
	}
	if result.Stats.RecordsMatched != 1 {
		t.Errorf("RecordsMatched = %v, want 1", result.Stats.RecordsMatched)
	}
	if result.Polls != 3 {
		t.Errorf("Polls = %d, want 3", result.Polls)
	}
	if len(progress) != 2 || progress[0] != 1 || progress[1] != 2 {
		t.Errorf("progress attempts = %v, want [1 2]", progress)
	}
}

func TestFailedStopsImmediately(t *testing.T) {
	client := &scriptedClient{
		snapshots: []Snapshot{
			{Status: StatusRunning},
			{Status: StatusFailed},
		},
	}
	p := fastPoller(client, 10)

	_, err := p.Run(context.Background(), testParams())
	var failed *FailedError
	if !errors.As(err, &failed) {
		t.Fatalf("expected *FailedError, got %v", err)
	}
	if failed.Status != StatusFailed {
		t.Errorf("Status = %v, want Failed", failed.Status)
	}
	if failed.Text != testParams().Text {
		t.Error("FailedError should carry the original query text")
	}
	if client.statusCalls != 2 {
		t.Errorf("status calls = %d, want 2 (no polling past terminal state)", client.statusCalls)
	}
	if client.cancelCalls != 0 {
		t.Error("terminal failure must not trigger cancellation")
	}
}

func TestTimeoutCancelsAndSwallowsCancelError(t *testing.T) {
	client := &scriptedClient{
		snapshots: []Snapshot{{Status: StatusRunning}},
		cancelErr: fmt.Errorf("cancel throttled"),
	}
	p := fastPoller(client, 7)

	_, err := p.Run(context.Background(), testParams())
	var timeout *TimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("expected *TimeoutError, got %v", err)
	}
	if timeout.Attempts != 7 {
		t.Errorf("Attempts = %d, want 7", timeout.Attempts)
	}
	if client.statusCalls != 7 {
		t.Errorf("status calls = %d, want 7", client.statusCalls)
	}
	if client.cancelCalls != 1 {
		t.Errorf("cancel calls = %d, want 1", client.cancelCalls)
	}
}

func TestDefaultsBoundTheLoop(t *testing.T) {
	p := NewPoller(&scriptedClient{}, nil, Options{})
	if p.opts.MaxPolls != 120 {
		t.Errorf("default MaxPolls = %d, want 120", p.opts.MaxPolls)
	}
	if p.opts.PollInterval != 5*time.Second {
		t.Errorf("default PollInterval = %v, want 5s", p.opts.PollInterval)
	}
}

func TestTransportErrorPropagates(t *testing.T) {
	client := &scriptedClient{statusErr: fmt.Errorf("throttled")}
	p := fastPoller(client, 10)

	_, err := p.Run(context.Background(), testParams())
	if err == nil || !errors.Is(err, client.statusErr) {
		t.Fatalf("expected wrapped transport error, got %v", err)
	}
	if client.statusCalls != 1 {
		t.Errorf("status calls = %d, want 1 (no retry inside the poller)", client.statusCalls)
	}
}

func TestSubmitErrorPropagates(t *testing.T) {
	client := &scriptedClient{submitErr: fmt.Errorf("invalid query")}
	p := fastPoller(client, 10)

	if _, err := p.Run(context.Background(), testParams()); err == nil {
		t.Fatal("expected submit error")
	}
	if client.statusCalls != 0 {
		t.Error("no polls should happen when submit fails")
	}
}

func TestCancelledContextCancelsQuery(t *testing.T) {
	client := &scriptedClient{snapshots: []Snapshot{{Status: StatusRunning}}}
	p := NewPoller(client, nil, Options{PollInterval: time.Hour, MaxPolls: 10})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx, testParams())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if client.cancelCalls != 1 {
		t.Errorf("cancel calls = %d, want 1 (remote job stopped on ctx cancel)", client.cancelCalls)
	}
}

func TestInvalidParamsRejectedBeforeSubmit(t *testing.T) {
	client := &scriptedClient{}
	p := fastPoller(client, 10)

	bad := testParams()
	bad.Text = ""
	if _, err := p.Run(context.Background(), bad); err == nil {
		t.Error("expected error for empty query text")
	}

	bad = testParams()
	bad.End = bad.Start
	if _, err := p.Run(context.Background(), bad); err == nil {
		t.Error("expected error for empty time window")
	}
}
