// Package config holds and validates the settings for a follow, tail, or
// query operation before any AWS client is constructed.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config collects everything the CLI can set. Each operation validates
// only the fields it uses.
type Config struct {
	Region string // AWS region for the operation

	// Follow options
	LogGroup       string        // Log group to follow
	StreamPattern  string        // Stream name pattern; empty follows all streams
	PatternIsRegex bool          // Treat StreamPattern as a regex instead of a glob
	FilterPattern  string        // Server-side event filter
	PageSize       int32         // Events/streams per page
	MaxReconnects  int           // Reconnect budget per stream
	BaseDelay      time.Duration // First backoff delay
	IdleWait       time.Duration // Sleep after an empty poll
	LookBack       time.Duration // Overlap window after an idle poll
	Since          time.Duration // Follow events from this long ago

	// Tail options
	Groups []string // Log groups for a live-tail session

	// Query options
	QueryText    string        // Insights query text
	QueryStart   time.Time     // Window start
	QueryEnd     time.Time     // Window end
	QueryLimit   int32         // Max result rows
	PollInterval time.Duration // Delay between status polls
	MaxPolls     int           // Poll budget before timing out

	// Shared options
	ExportURI    string // Optional s3:// or file:// destination for events/rows
	PreflightARN string // Optional principal ARN to simulate permissions for
	Verbose      bool   // Verbose callback output
}

// ValidateFollow checks the fields used by the follow operation.
func (c *Config) ValidateFollow() error {
	if err := c.validateCommon(); err != nil {
		return err
	}
	if c.LogGroup == "" {
		return fmt.Errorf("log group is required")
	}
	if c.PageSize < 1 || c.PageSize > 10000 {
		return fmt.Errorf("page size must be between 1 and 10000")
	}
	if c.MaxReconnects < 0 {
		return fmt.Errorf("max reconnects must not be negative")
	}
	if c.BaseDelay < 100*time.Millisecond {
		return fmt.Errorf("base delay must be at least 100ms")
	}
	if c.IdleWait < 0 || c.LookBack < 0 {
		return fmt.Errorf("idle wait and look-back must not be negative")
	}
	if c.Since < 0 {
		return fmt.Errorf("since must not be negative")
	}
	return nil
}

// ValidateTail checks the fields used by the live-tail operation.
func (c *Config) ValidateTail() error {
	if err := c.validateCommon(); err != nil {
		return err
	}
	if len(c.Groups) == 0 {
		return fmt.Errorf("at least one log group is required")
	}
	if len(c.Groups) > 10 {
		return fmt.Errorf("a live-tail session covers at most 10 log groups")
	}
	return nil
}

// ValidateQuery checks the fields used by the query operation.
func (c *Config) ValidateQuery() error {
	if err := c.validateCommon(); err != nil {
		return err
	}
	if len(c.Groups) == 0 {
		return fmt.Errorf("at least one log group is required")
	}
	if c.QueryText == "" {
		return fmt.Errorf("query text is required")
	}
	if !c.QueryEnd.After(c.QueryStart) {
		return fmt.Errorf("query window end must be after start")
	}
	if c.PollInterval < time.Second {
		return fmt.Errorf("poll interval must be at least 1 second")
	}
	if c.MaxPolls < 1 {
		return fmt.Errorf("max polls must be at least 1")
	}
	return nil
}

func (c *Config) validateCommon() error {
	if c.Region == "" {
		return fmt.Errorf("region is required")
	}
	if c.ExportURI != "" &&
		!strings.HasPrefix(c.ExportURI, "s3://") &&
		!strings.HasPrefix(c.ExportURI, "file://") {
		return fmt.Errorf("export URI must use the s3 or file scheme")
	}
	return nil
}
