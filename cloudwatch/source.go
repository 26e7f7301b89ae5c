// Package cloudwatch adapts the CloudWatch Logs SDK client to the
// transport interfaces consumed by the follower, the query poller, and the
// live-tail multiplexer. All pointer/millisecond reshaping of SDK types
// happens here; the core packages only see plain values.
package cloudwatch

import (
	"context"
	"fmt"
	"time"

	sdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"

	"github.com/cwtail/cwtail/aws"
	"github.com/cwtail/cwtail/event"
	"github.com/cwtail/cwtail/follower"
	"github.com/cwtail/cwtail/query"
)

// Source implements the core transport interfaces against CloudWatch Logs.
type Source struct {
	client aws.CloudWatchLogsClient
}

// Compile-time checks that Source satisfies every consumer-side contract.
var (
	_ follower.LogSource = (*Source)(nil)
	_ query.Client       = (*Source)(nil)
)

// NewSource creates a Source backed by the given client.
func NewSource(client aws.CloudWatchLogsClient) *Source {
	return &Source{client: client}
}

// ListStreams returns up to limit streams of the group, most recently
// active first.
func (s *Source) ListStreams(ctx context.Context, group string, limit int32) ([]follower.StreamInfo, error) {
	out, err := s.client.DescribeLogStreams(ctx, &cloudwatchlogs.DescribeLogStreamsInput{
		LogGroupName: sdk.String(group),
		OrderBy:      types.OrderByLastEventTime,
		Descending:   sdk.Bool(true),
		Limit:        sdk.Int32(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("describing log streams: %w", err)
	}

	infos := make([]follower.StreamInfo, 0, len(out.LogStreams))
	for _, ls := range out.LogStreams {
		info := follower.StreamInfo{Name: sdk.ToString(ls.LogStreamName)}
		if ls.LastEventTimestamp != nil {
			info.LastActivity = time.UnixMilli(*ls.LastEventTimestamp)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// PollEvents fetches one page of events from a single stream. A
// continuation token resumes the previous page; otherwise the poll starts
// at since.
func (s *Source) PollEvents(ctx context.Context, group, stream string, since time.Time, filter string, token *string, limit int32) (follower.PollResult, error) {
	in := &cloudwatchlogs.FilterLogEventsInput{
		LogGroupName:   sdk.String(group),
		LogStreamNames: []string{stream},
		Limit:          sdk.Int32(limit),
	}
	if token != nil {
		in.NextToken = token
	} else {
		in.StartTime = sdk.Int64(since.UnixMilli())
	}
	if filter != "" {
		in.FilterPattern = sdk.String(filter)
	}

	out, err := s.client.FilterLogEvents(ctx, in)
	if err != nil {
		return follower.PollResult{}, fmt.Errorf("filtering log events: %w", err)
	}

	events := make([]event.Event, 0, len(out.Events))
	for _, fe := range out.Events {
		ev := event.Event{
			Message:    sdk.ToString(fe.Message),
			StreamName: sdk.ToString(fe.LogStreamName),
			ID:         sdk.ToString(fe.EventId),
		}
		if ev.StreamName == "" {
			ev.StreamName = stream
		}
		if fe.Timestamp != nil {
			ev.Timestamp = time.UnixMilli(*fe.Timestamp)
		}
		events = append(events, ev)
	}
	return follower.PollResult{Events: events, NextToken: out.NextToken}, nil
}

// SubmitQuery starts a Logs Insights query and returns its ID.
func (s *Source) SubmitQuery(ctx context.Context, p query.Params) (string, error) {
	in := &cloudwatchlogs.StartQueryInput{
		LogGroupNames: p.Sources,
		QueryString:   sdk.String(p.Text),
		StartTime:     sdk.Int64(p.Start.Unix()),
		EndTime:       sdk.Int64(p.End.Unix()),
	}
	if p.Limit > 0 {
		in.Limit = sdk.Int32(p.Limit)
	}

	out, err := s.client.StartQuery(ctx, in)
	if err != nil {
		return "", err
	}
	return sdk.ToString(out.QueryId), nil
}

// GetQueryStatus fetches the current state, rows, and statistics of a
// query job.
func (s *Source) GetQueryStatus(ctx context.Context, queryID string) (query.Snapshot, error) {
	out, err := s.client.GetQueryResults(ctx, &cloudwatchlogs.GetQueryResultsInput{
		QueryId: sdk.String(queryID),
	})
	if err != nil {
		return query.Snapshot{}, err
	}

	snap := query.Snapshot{Status: convertQueryStatus(out.Status)}
	for _, fields := range out.Results {
		row := make(query.Row, 0, len(fields))
		for _, f := range fields {
			row = append(row, query.Field{Name: sdk.ToString(f.Field), Value: sdk.ToString(f.Value)})
		}
		snap.Rows = append(snap.Rows, row)
	}
	if out.Statistics != nil {
		snap.Stats = &query.Statistics{
			RecordsMatched: out.Statistics.RecordsMatched,
			RecordsScanned: out.Statistics.RecordsScanned,
			BytesScanned:   out.Statistics.BytesScanned,
		}
	}
	return snap, nil
}

// CancelQuery stops a running query. Callers treat this as best-effort.
func (s *Source) CancelQuery(ctx context.Context, queryID string) error {
	_, err := s.client.StopQuery(ctx, &cloudwatchlogs.StopQueryInput{
		QueryId: sdk.String(queryID),
	})
	return err
}

// convertQueryStatus maps SDK query states onto the poller's lifecycle.
// Scheduled is reported as Running: the job exists and will be polled
// again. Timeout counts as Failed.
func convertQueryStatus(s types.QueryStatus) query.Status {
	switch s {
	case types.QueryStatusScheduled, types.QueryStatusRunning:
		return query.StatusRunning
	case types.QueryStatusComplete:
		return query.StatusComplete
	case types.QueryStatusFailed, types.QueryStatusTimeout:
		return query.StatusFailed
	case types.QueryStatusCancelled:
		return query.StatusCancelled
	default:
		return query.StatusUnknown
	}
}
