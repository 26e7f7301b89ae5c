package cloudwatch

import (
	"context"
	"fmt"
	"time"

	sdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"

	"github.com/cwtail/cwtail/event"
	"github.com/cwtail/cwtail/livetail"
)

// OpenLiveSession starts a live-tail session over the given log groups and
// returns the chunk stream plus a close function releasing the underlying
// event stream. The returned stream yields a session-stop chunk when the
// service closes the connection cleanly.
func (s *Source) OpenLiveSession(ctx context.Context, groups []string, filter string) (livetail.Stream, func(), error) {
	in := &cloudwatchlogs.StartLiveTailInput{
		LogGroupIdentifiers: groups,
	}
	if filter != "" {
		in.LogEventFilterPattern = sdk.String(filter)
	}

	out, err := s.client.StartLiveTail(ctx, in)
	if err != nil {
		return nil, nil, fmt.Errorf("starting live tail: %w", err)
	}

	es := out.GetStream()
	stream := &liveStream{stream: es}
	return stream, func() { _ = es.Close() }, nil
}

// liveStream wraps the SDK event stream as a livetail.Stream.
type liveStream struct {
	stream *cloudwatchlogs.StartLiveTailEventStream
}

// Recv blocks for the next event-stream member and converts it to a
// session chunk. A closed channel becomes either the transport error or a
// clean session-stop chunk.
func (l *liveStream) Recv() (livetail.Chunk, error) {
	member, ok := <-l.stream.Events()
	if !ok {
		if err := l.stream.Err(); err != nil {
			return livetail.Chunk{}, err
		}
		return livetail.Chunk{Kind: livetail.KindSessionStop}, nil
	}

	switch m := member.(type) {
	case *types.StartLiveTailResponseStreamMemberSessionStart:
		session := livetail.Session{
			Identifiers:   m.Value.LogGroupIdentifiers,
			FilterPattern: sdk.ToString(m.Value.LogEventFilterPattern),
		}
		if m.Value.SessionId != nil {
			session.ID = *m.Value.SessionId
		}
		return livetail.Chunk{Kind: livetail.KindSessionStart, Session: session}, nil

	case *types.StartLiveTailResponseStreamMemberSessionUpdate:
		return livetail.Chunk{
			Kind:   livetail.KindSessionUpdate,
			Events: convertLiveEvents(m.Value.SessionResults),
		}, nil

	default:
		// Unknown members are delivered as empty updates rather than
		// killing the session.
		return livetail.Chunk{Kind: livetail.KindSessionUpdate}, nil
	}
}

// convertLiveEvents reshapes live-tail log events into core events. Events
// missing fields come through as-is; the multiplexer decides what to drop.
func convertLiveEvents(results []types.LiveTailSessionLogEvent) []event.Event {
	events := make([]event.Event, 0, len(results))
	for _, r := range results {
		ev := event.Event{
			Message:    sdk.ToString(r.Message),
			StreamName: sdk.ToString(r.LogStreamName),
		}
		if r.Timestamp != nil {
			ev.Timestamp = time.UnixMilli(*r.Timestamp)
		}
		events = append(events, ev)
	}
	return events
}
