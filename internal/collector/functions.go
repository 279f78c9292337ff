package collector

import (
	"context"
	"log/slog"
	"time"
)

// FunctionMetrics is one per-function metric record collected from
// CloudWatch for an account.
type FunctionMetrics struct {
	Timestamp    string  `json:"timestamp"`
	AccountID    string  `json:"account_id"`
	FunctionName string  `json:"function_name"`
	Runtime      string  `json:"runtime,omitempty"`
	MemoryMB     int32   `json:"memory"`
	TimeoutSec   int32   `json:"timeout"`
	LastModified string  `json:"last_modified,omitempty"`
	Invocations  float64 `json:"invocations"`
	Errors       float64 `json:"errors"`
	DurationMS   float64 `json:"duration_ms"`
}

// CollectFunctionMetrics lists every function in the account and queries
// its invocation, error and duration metrics over the trailing window.
// A metric query failure for one function logs a warning and zeroes that
// value; it does not abort the remaining functions.
func CollectFunctionMetrics(
	ctx context.Context,
	client AccountClient,
	accountID string,
	window time.Duration,
	logger *slog.Logger,
) ([]FunctionMetrics, error) {
	functions, err := client.ListFunctions(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	metrics := make([]FunctionMetrics, 0, len(functions))

	for _, fn := range functions {
		fm := FunctionMetrics{
			Timestamp:    now,
			AccountID:    accountID,
			FunctionName: fn.Name,
			Runtime:      fn.Runtime,
			MemoryMB:     fn.MemoryMB,
			TimeoutSec:   fn.TimeoutSec,
			LastModified: fn.LastModified,
		}

		fm.Invocations = queryOrZero(ctx, client, fn.Name, "Invocations", window, logger)
		fm.Errors = queryOrZero(ctx, client, fn.Name, "Errors", window, logger)
		fm.DurationMS = queryOrZero(ctx, client, fn.Name, "Duration", window, logger)

		metrics = append(metrics, fm)
	}

	return metrics, nil
}

func queryOrZero(
	ctx context.Context,
	client AccountClient,
	functionName, metricName string,
	window time.Duration,
	logger *slog.Logger,
) float64 {
	value, err := client.QueryMetric(ctx, functionName, metricName, window)
	if err != nil {
		logger.Warn("metric query failed",
			"function", functionName,
			"metric", metricName,
			"error", err)
		return 0
	}
	return value
}
