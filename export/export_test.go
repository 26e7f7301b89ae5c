package export

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	json "github.com/goccy/go-json"

	"github.com/cwtail/cwtail/event"
	"github.com/cwtail/cwtail/query"
)

func sampleEvents() []event.Event {
	return []event.Event{
		{Timestamp: time.Unix(100, 0).UTC(), Message: "first", StreamName: "app-1", ID: "ev-1"},
		{Timestamp: time.Unix(200, 0).UTC(), Message: "second", StreamName: "app-1"},
	}
}

func TestFileSinkWritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	sink, err := NewFileSink("file://" + path)
	if err != nil {
		t.Fatalf("creating sink: %v", err)
	}
	defer sink.Close()

	ctx := context.Background()
	if err := sink.WriteEvents(ctx, sampleEvents()); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := sink.WriteRows(ctx, []query.Row{{{Name: "@message", Value: "boom"}}}); err != nil {
		t.Fatalf("write rows failed: %v", err)
	}
	if err := sink.Flush(ctx); err != nil {
		t.Fatalf("flush failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer f.Close()

	var lines []map[string]interface{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec map[string]interface{}
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("line is not valid JSON: %v", err)
		}
		lines = append(lines, rec)
	}
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3", len(lines))
	}
	if lines[0]["message"] != "first" || lines[0]["id"] != "ev-1" {
		t.Errorf("unexpected first line: %v", lines[0])
	}
	if _, ok := lines[1]["id"]; ok {
		t.Error("empty event ID should be omitted")
	}
	if lines[2]["@message"] != "boom" {
		t.Errorf("unexpected row line: %v", lines[2])
	}
}

func TestFileSinkRejectsBadURIs(t *testing.T) {
	if _, err := NewFileSink("s3://bucket/key"); err == nil {
		t.Error("expected error for wrong scheme")
	}
	if _, err := NewFileSink("file://relative/path"); err == nil {
		t.Error("expected error for relative path")
	}
}

// mockS3 captures uploaded objects.
type mockS3 struct {
	bucket string
	key    string
	body   []byte
	puts   int
}

func (m *mockS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	m.puts++
	m.bucket = *params.Bucket
	m.key = *params.Key
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	m.body = data
	return &s3.PutObjectOutput{}, nil
}

func TestS3SinkUploadsOnFlush(t *testing.T) {
	mock := &mockS3{}
	sink, err := NewS3Sink(mock, "s3://my-bucket/exports/run-1.jsonl")
	if err != nil {
		t.Fatalf("creating sink: %v", err)
	}

	ctx := context.Background()
	if err := sink.WriteEvents(ctx, sampleEvents()); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if mock.puts != 0 {
		t.Error("writes must buffer, not upload")
	}
	if err := sink.Flush(ctx); err != nil {
		t.Fatalf("flush failed: %v", err)
	}

	if mock.bucket != "my-bucket" || mock.key != "exports/run-1.jsonl" {
		t.Errorf("uploaded to %s/%s, want my-bucket/exports/run-1.jsonl", mock.bucket, mock.key)
	}
	if got := strings.Count(string(mock.body), "\n"); got != 2 {
		t.Errorf("uploaded lines = %d, want 2", got)
	}
}

func TestS3SinkEmptyFlushIsNoop(t *testing.T) {
	mock := &mockS3{}
	sink, err := NewS3Sink(mock, "s3://my-bucket/exports/run-1.jsonl")
	if err != nil {
		t.Fatalf("creating sink: %v", err)
	}
	if err := sink.Flush(context.Background()); err != nil {
		t.Fatalf("flush failed: %v", err)
	}
	if mock.puts != 0 {
		t.Error("empty flush should not upload")
	}
}

func TestNewSinkDispatchesOnScheme(t *testing.T) {
	if _, err := NewSink(&mockS3{}, "s3://bucket/key"); err != nil {
		t.Errorf("s3 scheme rejected: %v", err)
	}
	if _, err := NewSink(nil, "http://example.com"); err == nil {
		t.Error("expected error for unsupported scheme")
	}
}
