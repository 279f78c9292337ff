package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"lambda-fleet-monitor/internal/collector"
	"lambda-fleet-monitor/internal/extract"
	"lambda-fleet-monitor/internal/opensearch"
)

// LambdaHandler dispatches the two event shapes this function receives:
// CloudWatch Logs subscription batches (log ingestion) and scheduled
// events (collection cycles).
func LambdaHandler(ctx context.Context, event json.RawMessage) (interface{}, error) {
	var logsEvent events.CloudwatchLogsEvent
	if err := json.Unmarshal(event, &logsEvent); err == nil && logsEvent.AWSLogs.Data != "" {
		return handleLogsEvent(ctx, logsEvent)
	}

	return handleScheduledEvent(ctx)
}

// handleLogsEvent processes one CloudWatch Logs batch: decode the outer
// envelope, build metric records, and ship them to OpenSearch. The cycle
// reports failure through the result body, not through a handler error,
// so the subscription does not endlessly redeliver a poison batch.
func handleLogsEvent(ctx context.Context, logsEvent events.CloudwatchLogsEvent) (IngestResult, error) {
	config, configErr := LoadMonitorConfig(ctx)
	if configErr != nil {
		log.Printf("Failed to load configuration: %v", configErr)
		config = emptyConfig()
	}
	logger := newLogger(config.LogLevel)

	// Transport envelope decode (gzip + base64) happens here, outside
	// the extraction core.
	data, err := logsEvent.AWSLogs.Parse()
	if err != nil {
		logger.Error("failed to decode log envelope", "error", err)
		return IngestResult{Status: "error", Error: err.Error()}, nil
	}

	logEvents := make([]extract.LogEvent, 0, len(data.LogEvents))
	for _, entry := range data.LogEvents {
		logEvents = append(logEvents, extract.LogEvent{
			ID:        entry.ID,
			Timestamp: entry.Timestamp,
			Message:   entry.Message,
		})
	}

	builder := extract.NewBuilder(logger)
	records := builder.ProcessBatch(data.LogGroup, data.LogStream, logEvents)

	result := IngestResult{Status: "ok", Records: len(records)}

	endpoint := config.OpenSearchEndpoint
	if endpoint == "" {
		endpoint = os.Getenv("OPENSEARCH_ENDPOINT")
	}
	if endpoint == "" {
		logger.Warn("no opensearch endpoint configured, records not shipped")
		return result, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(config.AWSRegion))
	if err != nil {
		logger.Error("failed to load AWS config for sink", "error", err)
		result.Status = "error"
		result.Error = err.Error()
		return result, nil
	}

	sink := opensearch.NewClient(endpoint, config.AWSRegion, awsCfg.Credentials, nil, logger)
	if err := sink.BulkIndex(ctx, records); err != nil {
		logger.Error("bulk indexing failed", "error", err)
		result.Status = "error"
		result.Error = err.Error()
		return result, nil
	}

	result.Shipped = true
	return result, nil
}

// handleScheduledEvent runs one collection cycle using the invocation's
// remaining execution budget.
func handleScheduledEvent(ctx context.Context) (CycleResult, error) {
	config, configErr := LoadMonitorConfig(ctx)
	configDegraded := configErr != nil
	if configDegraded {
		log.Printf("Failed to load configuration, proceeding with empty thresholds: %v", configErr)
		config = emptyConfig()
	}
	logger := newLogger(config.LogLevel)

	budget := runtimeBudget(ctx, config)

	monitor, err := buildMonitor(ctx, config, configDegraded, budget, logger)
	if err != nil {
		// Cycle-level failure: nothing was collected.
		logger.Error("failed to build monitor", "error", err)
		return CycleResult{Status: "error", Error: err.Error()}, nil
	}

	return monitor.RunCycle(ctx), nil
}

// runtimeBudget derives the collection-time context from the Lambda
// environment: the configured memory ceiling and the time left before
// the invocation deadline.
func runtimeBudget(ctx context.Context, config *Config) collector.RuntimeBudget {
	budget := collector.RuntimeBudget{
		MemoryLimitMB: 128,
		RemainingTime: 60 * time.Second,
		MetricsWindow: time.Duration(config.MetricsWindowSeconds) * time.Second,
		HomeFunction:  os.Getenv("AWS_LAMBDA_FUNCTION_NAME"),
	}

	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.InvokedFunctionArn != "" {
		budget.MemoryLimitMB = lambdacontext.MemoryLimitInMB
	}
	if deadline, ok := ctx.Deadline(); ok {
		budget.RemainingTime = time.Until(deadline)
	}

	return budget
}

// runLambdaMode starts the Lambda handler
func runLambdaMode() {
	lambda.Start(LambdaHandler)
}
