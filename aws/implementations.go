// Package aws wraps the concrete SDK clients behind the interfaces defined
// in interfaces.go.
package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// CloudWatchLogsClientImpl implements CloudWatchLogsClient using the AWS SDK.
type CloudWatchLogsClientImpl struct {
	client *cloudwatchlogs.Client
}

// NewCloudWatchLogsClient creates a new CloudWatchLogsClientImpl instance
func NewCloudWatchLogsClient(client *cloudwatchlogs.Client) *CloudWatchLogsClientImpl {
	return &CloudWatchLogsClientImpl{client: client}
}

// DescribeLogStreams lists the log streams of a log group
func (c *CloudWatchLogsClientImpl) DescribeLogStreams(ctx context.Context, params *cloudwatchlogs.DescribeLogStreamsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DescribeLogStreamsOutput, error) {
	return c.client.DescribeLogStreams(ctx, params, optFns...)
}

// FilterLogEvents fetches log events matching a filter pattern
func (c *CloudWatchLogsClientImpl) FilterLogEvents(ctx context.Context, params *cloudwatchlogs.FilterLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.FilterLogEventsOutput, error) {
	return c.client.FilterLogEvents(ctx, params, optFns...)
}

// StartLiveTail opens a live-tail session event stream
func (c *CloudWatchLogsClientImpl) StartLiveTail(ctx context.Context, params *cloudwatchlogs.StartLiveTailInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.StartLiveTailOutput, error) {
	return c.client.StartLiveTail(ctx, params, optFns...)
}

// StartQuery submits a Logs Insights query
func (c *CloudWatchLogsClientImpl) StartQuery(ctx context.Context, params *cloudwatchlogs.StartQueryInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.StartQueryOutput, error) {
	return c.client.StartQuery(ctx, params, optFns...)
}

// GetQueryResults fetches the status and result rows of a query
func (c *CloudWatchLogsClientImpl) GetQueryResults(ctx context.Context, params *cloudwatchlogs.GetQueryResultsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.GetQueryResultsOutput, error) {
	return c.client.GetQueryResults(ctx, params, optFns...)
}

// StopQuery cancels a running query
func (c *CloudWatchLogsClientImpl) StopQuery(ctx context.Context, params *cloudwatchlogs.StopQueryInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.StopQueryOutput, error) {
	return c.client.StopQuery(ctx, params, optFns...)
}

// S3ClientImpl implements S3Client using the AWS SDK.
type S3ClientImpl struct {
	client *s3.Client
}

// NewS3Client creates a new S3ClientImpl instance
func NewS3Client(client *s3.Client) *S3ClientImpl {
	return &S3ClientImpl{client: client}
}

// PutObject implements the S3Client interface for writing objects
func (c *S3ClientImpl) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	return c.client.PutObject(ctx, params, optFns...)
}

// IAMClientImpl implements IAMClient using the AWS SDK.
type IAMClientImpl struct {
	client *iam.Client
}

// NewIAMClient creates a new IAMClientImpl instance
func NewIAMClient(client *iam.Client) *IAMClientImpl {
	return &IAMClientImpl{client: client}
}

// SimulatePrincipalPolicy implements the IAMClient interface for permission simulation
func (c *IAMClientImpl) SimulatePrincipalPolicy(ctx context.Context, params *iam.SimulatePrincipalPolicyInput, optFns ...func(*iam.Options)) (*iam.SimulatePrincipalPolicyOutput, error) {
	return c.client.SimulatePrincipalPolicy(ctx, params, optFns...)
}
