// Package export writes followed events and query result rows out as JSON
// lines. Sinks are a CLI-layer concern: the core never persists anything
// itself, it just hands events to callbacks that may feed a sink.
package export

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	json "github.com/goccy/go-json"

	"github.com/cwtail/cwtail/aws"
	"github.com/cwtail/cwtail/event"
	"github.com/cwtail/cwtail/query"
)

// Sink receives events and rows during an operation. Flush makes
// everything written so far durable; callers flush once before exit.
type Sink interface {
	WriteEvents(ctx context.Context, events []event.Event) error
	WriteRows(ctx context.Context, rows []query.Row) error
	Flush(ctx context.Context) error
}

// eventRecord is the JSON-lines shape of an exported event.
type eventRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Stream    string    `json:"stream,omitempty"`
	Message   string    `json:"message"`
	ID        string    `json:"id,omitempty"`
}

func encodeEvents(buf *bytes.Buffer, events []event.Event) error {
	enc := json.NewEncoder(buf)
	for _, ev := range events {
		rec := eventRecord{
			Timestamp: ev.Timestamp,
			Stream:    ev.StreamName,
			Message:   ev.Message,
			ID:        ev.ID,
		}
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("encoding event: %w", err)
		}
	}
	return nil
}

func encodeRows(buf *bytes.Buffer, rows []query.Row) error {
	enc := json.NewEncoder(buf)
	for _, row := range rows {
		rec := make(map[string]string, len(row))
		for _, f := range row {
			rec[f.Name] = f.Value
		}
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("encoding row: %w", err)
		}
	}
	return nil
}

// NewSink builds a sink from a destination URI: s3://bucket/key or
// file:///path.
func NewSink(client aws.S3Client, uri string) (Sink, error) {
	switch {
	case strings.HasPrefix(uri, "s3://"):
		return NewS3Sink(client, uri)
	case strings.HasPrefix(uri, "file://"):
		return NewFileSink(uri)
	default:
		return nil, fmt.Errorf("unsupported export URI scheme: %s", uri)
	}
}

// FileSink appends JSON lines to a local file.
type FileSink struct {
	file *os.File
}

// NewFileSink creates a FileSink from a file URI. The path must be
// absolute; parent directories are created as needed.
func NewFileSink(uri string) (*FileSink, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid file URI: %w", err)
	}
	if u.Scheme != "file" {
		return nil, fmt.Errorf("invalid file URI scheme: %s", u.Scheme)
	}

	cleanPath := filepath.Clean(u.Path)
	if !filepath.IsAbs(cleanPath) {
		return nil, fmt.Errorf("export path must be absolute: %s", cleanPath)
	}
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.OpenFile(cleanPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open export file: %w", err)
	}
	return &FileSink{file: f}, nil
}

// WriteEvents appends the events as JSON lines.
func (f *FileSink) WriteEvents(ctx context.Context, events []event.Event) error {
	var buf bytes.Buffer
	if err := encodeEvents(&buf, events); err != nil {
		return err
	}
	_, err := f.file.Write(buf.Bytes())
	return err
}

// WriteRows appends the rows as JSON lines.
func (f *FileSink) WriteRows(ctx context.Context, rows []query.Row) error {
	var buf bytes.Buffer
	if err := encodeRows(&buf, rows); err != nil {
		return err
	}
	_, err := f.file.Write(buf.Bytes())
	return err
}

// Flush syncs the file to disk.
func (f *FileSink) Flush(ctx context.Context) error {
	return f.file.Sync()
}

// Close flushes and closes the underlying file.
func (f *FileSink) Close() error {
	return f.file.Close()
}

// S3Sink buffers JSON lines in memory and uploads the accumulated object
// on Flush. Each Flush rewrites the full object, so the destination always
// holds everything written during the operation.
type S3Sink struct {
	client aws.S3Client
	bucket string
	key    string
	buf    bytes.Buffer
}

// NewS3Sink creates an S3Sink from an s3:// URI.
func NewS3Sink(client aws.S3Client, uri string) (*S3Sink, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid S3 URI: %w", err)
	}
	if u.Scheme != "s3" {
		return nil, fmt.Errorf("invalid S3 URI scheme: %s", u.Scheme)
	}

	return &S3Sink{
		client: client,
		bucket: u.Host,
		key:    strings.TrimPrefix(u.Path, "/"),
	}, nil
}

// WriteEvents buffers the events as JSON lines.
func (s *S3Sink) WriteEvents(ctx context.Context, events []event.Event) error {
	return encodeEvents(&s.buf, events)
}

// WriteRows buffers the rows as JSON lines.
func (s *S3Sink) WriteRows(ctx context.Context, rows []query.Row) error {
	return encodeRows(&s.buf, rows)
}

// Flush uploads the buffered lines.
func (s *S3Sink) Flush(ctx context.Context) error {
	if s.buf.Len() == 0 {
		return nil
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &s.bucket,
		Key:    &s.key,
		Body:   bytes.NewReader(s.buf.Bytes()),
	})
	if err != nil {
		return fmt.Errorf("failed to upload export: %w", err)
	}
	return nil
}
