package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
)

// metricPeriodSeconds is the CloudWatch aggregation period for metric
// queries.
const metricPeriodSeconds = 300

// AWSAccountClient implements AccountClient on the CloudWatch, CloudWatch
// Logs and Lambda APIs for one account/region. The aws.Config it is built
// from already carries the right credentials (assumed role for remote
// accounts).
type AWSAccountClient struct {
	cloudwatch *cloudwatch.Client
	logs       *cloudwatchlogs.Client
	lambda     *lambda.Client
}

// NewAWSAccountClient builds an account client from an account-scoped
// AWS config.
func NewAWSAccountClient(cfg aws.Config) *AWSAccountClient {
	return &AWSAccountClient{
		cloudwatch: cloudwatch.NewFromConfig(cfg),
		logs:       cloudwatchlogs.NewFromConfig(cfg),
		lambda:     lambda.NewFromConfig(cfg),
	}
}

// ListFunctions lists every Lambda function in the account.
func (c *AWSAccountClient) ListFunctions(ctx context.Context) ([]FunctionInfo, error) {
	var functions []FunctionInfo

	paginator := lambda.NewListFunctionsPaginator(c.lambda, &lambda.ListFunctionsInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list functions: %w", err)
		}
		for _, fn := range page.Functions {
			functions = append(functions, FunctionInfo{
				Name:         aws.ToString(fn.FunctionName),
				Runtime:      string(fn.Runtime),
				MemoryMB:     aws.ToInt32(fn.MemorySize),
				TimeoutSec:   aws.ToInt32(fn.Timeout),
				LastModified: aws.ToString(fn.LastModified),
			})
		}
	}

	return functions, nil
}

// QueryMetric queries one AWS/Lambda metric for a function over the
// trailing window and returns the most recent datapoint, or zero when the
// metric has no data.
func (c *AWSAccountClient) QueryMetric(ctx context.Context, functionName, metricName string, window time.Duration) (float64, error) {
	now := time.Now()

	// Duration is averaged; count-style metrics are summed.
	stat := "Sum"
	if metricName == "Duration" {
		stat = "Average"
	}

	output, err := c.cloudwatch.GetMetricData(ctx, &cloudwatch.GetMetricDataInput{
		StartTime: aws.Time(now.Add(-window)),
		EndTime:   aws.Time(now),
		MetricDataQueries: []cwtypes.MetricDataQuery{
			{
				Id: aws.String("m0"),
				MetricStat: &cwtypes.MetricStat{
					Metric: &cwtypes.Metric{
						Namespace:  aws.String("AWS/Lambda"),
						MetricName: aws.String(metricName),
						Dimensions: []cwtypes.Dimension{
							{
								Name:  aws.String("FunctionName"),
								Value: aws.String(functionName),
							},
						},
					},
					Period: aws.Int32(metricPeriodSeconds),
					Stat:   aws.String(stat),
				},
			},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to query %s for %s: %w", metricName, functionName, err)
	}

	if len(output.MetricDataResults) == 0 || len(output.MetricDataResults[0].Values) == 0 {
		return 0, nil
	}
	return output.MetricDataResults[0].Values[0], nil
}

// FilterLogs returns log messages matching the filter pattern within the
// trailing window.
func (c *AWSAccountClient) FilterLogs(ctx context.Context, logGroup, pattern string, window time.Duration) ([]string, error) {
	output, err := c.logs.FilterLogEvents(ctx, &cloudwatchlogs.FilterLogEventsInput{
		LogGroupName:  aws.String(logGroup),
		FilterPattern: aws.String(pattern),
		StartTime:     aws.Int64(time.Now().Add(-window).UnixMilli()),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to filter log events in %s: %w", logGroup, err)
	}

	messages := make([]string, 0, len(output.Events))
	for _, event := range output.Events {
		messages = append(messages, aws.ToString(event.Message))
	}
	return messages, nil
}
