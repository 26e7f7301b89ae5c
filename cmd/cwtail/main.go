package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "cwtail",
	Short: "Follow, tail, and query CloudWatch Logs",
	Long: `cwtail follows the streams of a log group, tails log groups live, and
runs Logs Insights queries to completion.

Examples:
  cwtail follow /aws/lambda/app --stream-pattern "2024/01/15/*"
  cwtail tail /aws/lambda/app /aws/lambda/worker --filter ERROR
  cwtail query /aws/lambda/app --query "fields @timestamp, @message | limit 20" --start -1h`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func init() {
	rootCmd.Version = version
	rootCmd.PersistentFlags().String("region", os.Getenv("AWS_REGION"), "AWS region")
	rootCmd.PersistentFlags().String("export", "", "export destination URI (s3://bucket/key or file:///path)")
	rootCmd.PersistentFlags().String("preflight-arn", "", "principal ARN to simulate required permissions for before starting")
	rootCmd.PersistentFlags().Bool("verbose", false, "verbose output")

	rootCmd.AddCommand(followCmd)
	rootCmd.AddCommand(tailCmd)
	rootCmd.AddCommand(queryCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
