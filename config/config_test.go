package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Region:        "eu-west-1",
		LogGroup:      "/aws/lambda/app",
		Groups:        []string{"/aws/lambda/app"},
		PageSize:      50,
		MaxReconnects: 5,
		BaseDelay:     time.Second,
		QueryText:     "fields @message",
		QueryStart:    time.Unix(1000, 0),
		QueryEnd:      time.Unix(2000, 0),
		PollInterval:  5 * time.Second,
		MaxPolls:      120,
	}
}

func TestValidConfigPasses(t *testing.T) {
	cfg := validConfig()
	if err := cfg.ValidateFollow(); err != nil {
		t.Errorf("follow validation failed: %v", err)
	}
	if err := cfg.ValidateTail(); err != nil {
		t.Errorf("tail validation failed: %v", err)
	}
	if err := cfg.ValidateQuery(); err != nil {
		t.Errorf("query validation failed: %v", err)
	}
}

func TestValidateFollow(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing region", func(c *Config) { c.Region = "" }},
		{"missing log group", func(c *Config) { c.LogGroup = "" }},
		{"zero page size", func(c *Config) { c.PageSize = 0 }},
		{"oversized page", func(c *Config) { c.PageSize = 10001 }},
		{"negative reconnects", func(c *Config) { c.MaxReconnects = -1 }},
		{"tiny base delay", func(c *Config) { c.BaseDelay = time.Millisecond }},
		{"negative idle wait", func(c *Config) { c.IdleWait = -time.Second }},
		{"negative look-back", func(c *Config) { c.LookBack = -time.Second }},
		{"negative since", func(c *Config) { c.Since = -time.Hour }},
		{"bad export scheme", func(c *Config) { c.ExportURI = "ftp://host/file" }},
	}
	for _, c := range cases {
		cfg := validConfig()
		c.mutate(cfg)
		if err := cfg.ValidateFollow(); err == nil {
			t.Errorf("%s: expected validation error", c.name)
		}
	}
}

func TestValidateTail(t *testing.T) {
	cfg := validConfig()
	cfg.Groups = nil
	if err := cfg.ValidateTail(); err == nil {
		t.Error("expected error for missing groups")
	}

	cfg = validConfig()
	cfg.Groups = make([]string, 11)
	if err := cfg.ValidateTail(); err == nil {
		t.Error("expected error for too many groups")
	}
}

func TestValidateQuery(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing text", func(c *Config) { c.QueryText = "" }},
		{"empty window", func(c *Config) { c.QueryEnd = c.QueryStart }},
		{"inverted window", func(c *Config) { c.QueryEnd = c.QueryStart.Add(-time.Hour) }},
		{"sub-second interval", func(c *Config) { c.PollInterval = 100 * time.Millisecond }},
		{"zero poll budget", func(c *Config) { c.MaxPolls = 0 }},
		{"no sources", func(c *Config) { c.Groups = nil }},
	}
	for _, c := range cases {
		cfg := validConfig()
		c.mutate(cfg)
		if err := cfg.ValidateQuery(); err == nil {
			t.Errorf("%s: expected validation error", c.name)
		}
	}
}

func TestExportURISchemes(t *testing.T) {
	for _, uri := range []string{"s3://bucket/key", "file:///tmp/out.jsonl", ""} {
		cfg := validConfig()
		cfg.ExportURI = uri
		if err := cfg.ValidateFollow(); err != nil {
			t.Errorf("uri %q rejected: %v", uri, err)
		}
	}
}
