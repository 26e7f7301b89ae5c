package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/cwtail/cwtail/aws"
	"github.com/cwtail/cwtail/cloudwatch"
	"github.com/cwtail/cwtail/config"
	"github.com/cwtail/cwtail/event"
	"github.com/cwtail/cwtail/export"
	"github.com/cwtail/cwtail/follower"
	"github.com/cwtail/cwtail/livetail"
	"github.com/cwtail/cwtail/metrics"
	"github.com/cwtail/cwtail/preflight"
	"github.com/cwtail/cwtail/query"
)

// --- follow ---

var followCmd = &cobra.Command{
	Use:   "follow <log-group>",
	Short: "Follow the streams of a log group",
	Long: `Follow the streams of a log group, one independent poll loop per
matching stream. Streams that exhaust their reconnect budget are
abandoned without affecting their siblings.

Examples:
  cwtail follow /aws/lambda/app
  cwtail follow /aws/lambda/app --stream-pattern "2024/01/15/*" --filter ERROR
  cwtail follow /aws/lambda/app --stream-pattern "prod-[0-9]+" --regex --since 30m`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := sharedConfig(cmd)
		cfg.LogGroup = args[0]
		cfg.StreamPattern, _ = cmd.Flags().GetString("stream-pattern")
		cfg.PatternIsRegex, _ = cmd.Flags().GetBool("regex")
		cfg.FilterPattern, _ = cmd.Flags().GetString("filter")
		cfg.PageSize, _ = cmd.Flags().GetInt32("page-size")
		cfg.MaxReconnects, _ = cmd.Flags().GetInt("max-reconnects")
		cfg.BaseDelay, _ = cmd.Flags().GetDuration("base-delay")
		cfg.IdleWait, _ = cmd.Flags().GetDuration("idle-wait")
		cfg.LookBack, _ = cmd.Flags().GetDuration("look-back")
		cfg.Since, _ = cmd.Flags().GetDuration("since")
		maxConcurrent, _ := cmd.Flags().GetInt("max-concurrent")

		if err := cfg.ValidateFollow(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		deps, err := buildDeps(ctx, cfg)
		if err != nil {
			return err
		}

		meter := metrics.NewMetrics()
		obs := &follower.Callbacks{
			Event: func(ev event.Event, stream string) {
				printEvent(ev)
				deps.export(ctx, ev)
			},
			Connect: func(stream string) {
				if cfg.Verbose {
					fmt.Fprintf(os.Stderr, "connected to %s\n", stream)
				}
			},
			Reconnect: func(stream string, attempt int) {
				fmt.Fprintf(os.Stderr, "reconnecting to %s (attempt %d)\n", stream, attempt)
			},
			Error: func(err error, stream string) {
				fmt.Fprintf(os.Stderr, "stream %s abandoned: %v\n", stream, err)
			},
		}

		f := follower.NewFollower(deps.source, obs, meter, follower.Options{
			Group:          cfg.LogGroup,
			StreamPattern:  cfg.StreamPattern,
			PatternIsRegex: cfg.PatternIsRegex,
			FilterPattern:  cfg.FilterPattern,
			Start:          time.Now().Add(-cfg.Since),
			PageSize:       cfg.PageSize,
			MaxReconnects:  cfg.MaxReconnects,
			BaseDelay:      cfg.BaseDelay,
			IdleWait:       cfg.IdleWait,
			LookBack:       cfg.LookBack,
			MaxConcurrent:  maxConcurrent,
		})

		results, err := f.Run(ctx)
		if err != nil {
			return err
		}
		if err := deps.flush(); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, meter.GenerateReport())

		var failed int
		for _, r := range results {
			if r.Err != nil {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d streams failed", failed, len(results))
		}
		return nil
	},
}

func init() {
	followCmd.Flags().String("stream-pattern", "", "stream name glob; matches the whole name")
	followCmd.Flags().Bool("regex", false, "treat --stream-pattern as a regular expression")
	followCmd.Flags().String("filter", "", "server-side event filter pattern")
	followCmd.Flags().Int32("page-size", 50, "events per poll")
	followCmd.Flags().Int("max-reconnects", 5, "reconnect budget per stream")
	followCmd.Flags().Duration("base-delay", time.Second, "first backoff delay; doubles per retry")
	followCmd.Flags().Duration("idle-wait", 2*time.Second, "sleep after a poll that returns nothing")
	followCmd.Flags().Duration("look-back", 10*time.Second, "overlap window re-fetched after an idle poll")
	followCmd.Flags().Duration("since", 0, "follow events from this long ago")
	followCmd.Flags().Int("max-concurrent", 0, "cap on simultaneously polled streams (0 = no cap)")
}

// --- tail ---

var tailCmd = &cobra.Command{
	Use:   "tail <log-group>...",
	Short: "Tail log groups live",
	Long: `Open a live-tail session over up to 10 log groups and print events as
they arrive.

Examples:
  cwtail tail /aws/lambda/app
  cwtail tail /aws/lambda/app /aws/lambda/worker --filter ERROR`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := sharedConfig(cmd)
		cfg.Groups = args
		cfg.FilterPattern, _ = cmd.Flags().GetString("filter")

		if err := cfg.ValidateTail(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		deps, err := buildDeps(ctx, cfg)
		if err != nil {
			return err
		}

		stream, closeStream, err := deps.source.OpenLiveSession(ctx, cfg.Groups, cfg.FilterPattern)
		if err != nil {
			return err
		}
		defer closeStream()

		meter := metrics.NewMetrics()
		handler := livetail.Handler{
			SessionStart: func(s livetail.Session) {
				fmt.Fprintf(os.Stderr, "session %s covering %s\n", s.ID, strings.Join(s.Identifiers, ", "))
			},
			Event: func(ev event.Event) {
				printEvent(ev)
				deps.export(ctx, ev)
			},
			Error: func(err error) {
				fmt.Fprintf(os.Stderr, "session error: %v\n", err)
			},
		}

		mux := livetail.NewMultiplexer(handler, meter, cfg.Verbose)
		runErr := mux.Run(ctx, stream)
		if err := deps.flush(); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, meter.GenerateReport())

		// A cancelled context is the normal way a tail ends.
		if runErr != nil && ctx.Err() == nil {
			return runErr
		}
		return nil
	},
}

func init() {
	tailCmd.Flags().String("filter", "", "server-side event filter pattern")
}

// --- query ---

var queryCmd = &cobra.Command{
	Use:   "query <log-group>...",
	Short: "Run a Logs Insights query to completion",
	Long: `Submit a Logs Insights query over one or more log groups and poll
until it completes, fails, or times out. A timed-out query is cancelled
on the backend before the timeout is reported.

Examples:
  cwtail query /aws/lambda/app --query "fields @timestamp, @message | limit 20"
  cwtail query /aws/lambda/app --query "stats count() by bin(5m)" --start -24h --end -1h`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := sharedConfig(cmd)
		cfg.Groups = args
		cfg.QueryText, _ = cmd.Flags().GetString("query")
		cfg.QueryLimit, _ = cmd.Flags().GetInt32("limit")
		cfg.PollInterval, _ = cmd.Flags().GetDuration("interval")
		cfg.MaxPolls, _ = cmd.Flags().GetInt("max-polls")

		startStr, _ := cmd.Flags().GetString("start")
		endStr, _ := cmd.Flags().GetString("end")
		now := time.Now()
		var err error
		if cfg.QueryStart, err = parseTimeFlag(startStr, now); err != nil {
			return fmt.Errorf("parsing --start: %w", err)
		}
		if cfg.QueryEnd, err = parseTimeFlag(endStr, now); err != nil {
			return fmt.Errorf("parsing --end: %w", err)
		}

		if err := cfg.ValidateQuery(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		deps, err := buildDeps(ctx, cfg)
		if err != nil {
			return err
		}

		meter := metrics.NewMetrics()
		opts := query.Options{
			PollInterval: cfg.PollInterval,
			MaxPolls:     cfg.MaxPolls,
		}
		if cfg.Verbose {
			opts.OnProgress = func(attempt int, status query.Status) {
				fmt.Fprintf(os.Stderr, "poll %d: %s\n", attempt, status)
			}
		}

		poller := query.NewPoller(deps.source, meter, opts)
		result, err := poller.Run(ctx, query.Params{
			Sources: cfg.Groups,
			Text:    cfg.QueryText,
			Start:   cfg.QueryStart,
			End:     cfg.QueryEnd,
			Limit:   cfg.QueryLimit,
		})
		if err != nil {
			return err
		}

		for _, row := range result.Rows {
			printRow(row)
		}
		if deps.sink != nil {
			if err := deps.sink.WriteRows(ctx, result.Rows); err != nil {
				return err
			}
		}
		if err := deps.flush(); err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "query %s: %d rows in %d polls (%.0f records scanned)\n",
			result.QueryID, len(result.Rows), result.Polls, result.Stats.RecordsScanned)
		return nil
	},
}

func init() {
	queryCmd.Flags().String("query", "", "Logs Insights query text (required)")
	queryCmd.Flags().Int32("limit", 0, "maximum result rows (0 = backend default)")
	queryCmd.Flags().Duration("interval", 5*time.Second, "delay between status polls")
	queryCmd.Flags().Int("max-polls", 120, "poll budget before the query times out")
	queryCmd.Flags().String("start", "-1h", "window start: RFC 3339 or a negative duration relative to now")
	queryCmd.Flags().String("end", "0s", "window end: RFC 3339 or a negative duration relative to now")
}

// --- shared wiring ---

// deps bundles the operation's transport and optional export sink.
type deps struct {
	source *cloudwatch.Source
	sink   export.Sink
	mu     sync.Mutex
}

// export writes one event to the sink, if any. Callbacks fire from
// concurrent stream loops, so writes are serialized here.
func (d *deps) export(ctx context.Context, ev event.Event) {
	if d.sink == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.sink.WriteEvents(ctx, []event.Event{ev}); err != nil {
		fmt.Fprintf(os.Stderr, "export failed: %v\n", err)
	}
}

func (d *deps) flush() error {
	if d.sink == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := d.sink.Flush(ctx); err != nil {
		return fmt.Errorf("flushing export sink: %w", err)
	}
	return nil
}

// sharedConfig reads the persistent flags every command starts from.
func sharedConfig(cmd *cobra.Command) *config.Config {
	cfg := &config.Config{}
	cfg.Region, _ = cmd.Flags().GetString("region")
	cfg.ExportURI, _ = cmd.Flags().GetString("export")
	cfg.PreflightARN, _ = cmd.Flags().GetString("preflight-arn")
	cfg.Verbose, _ = cmd.Flags().GetBool("verbose")
	return cfg
}

// buildDeps loads AWS credentials, runs the optional permission preflight,
// and opens the optional export sink.
func buildDeps(ctx context.Context, cfg *config.Config) (*deps, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	logsClient := aws.NewCloudWatchLogsClient(cloudwatchlogs.NewFromConfig(awsCfg))
	d := &deps{source: cloudwatch.NewSource(logsClient)}

	if cfg.PreflightARN != "" {
		checker := preflight.NewChecker(aws.NewIAMClient(iam.NewFromConfig(awsCfg)))
		if err := checker.Check(ctx, cfg.PreflightARN, nil); err != nil {
			return nil, err
		}
	}

	if cfg.ExportURI != "" {
		s3Client := aws.NewS3Client(s3.NewFromConfig(awsCfg))
		sink, err := export.NewSink(s3Client, cfg.ExportURI)
		if err != nil {
			return nil, err
		}
		d.sink = sink
	}
	return d, nil
}

// parseTimeFlag accepts an RFC 3339 timestamp or a duration offset from
// now ("-1h", "0s").
func parseTimeFlag(s string, now time.Time) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is neither RFC 3339 nor a duration", s)
	}
	return now.Add(d), nil
}

func printEvent(ev event.Event) {
	if ev.StreamName != "" {
		fmt.Printf("%s %s %s\n", ev.Timestamp.Format(time.RFC3339), ev.StreamName, ev.Message)
		return
	}
	fmt.Printf("%s %s\n", ev.Timestamp.Format(time.RFC3339), ev.Message)
}

func printRow(row query.Row) {
	parts := make([]string, 0, len(row))
	for _, f := range row {
		parts = append(parts, f.Value)
	}
	fmt.Println(strings.Join(parts, "\t"))
}
