// Package collector gathers Lambda fleet metrics from monitored accounts
// through injected client capabilities and merges them into a fleet
// snapshot with per-account failure isolation.
package collector

import (
	"context"
	"time"
)

// Simplified Lambda pricing, dollars per GB-second.
const costPerGBSecond = 0.0000166667

// Health score penalties for account-level bundles.
const (
	bundleErrorPenalty  = 20
	bundleMemoryPenalty = 10
	highMemoryCeilingMB = 512
)

// FunctionInfo describes one Lambda function in a monitored account.
type FunctionInfo struct {
	Name         string `json:"function_name"`
	Runtime      string `json:"runtime,omitempty"`
	MemoryMB     int32  `json:"memory"`
	TimeoutSec   int32  `json:"timeout"`
	LastModified string `json:"last_modified,omitempty"`
}

// AccountClient is the injected capability for one account's data plane.
// Its concrete transport (API calls, credentials, role assumption) is
// owned by the caller.
type AccountClient interface {
	// ListFunctions lists the Lambda functions visible in the account.
	ListFunctions(ctx context.Context) ([]FunctionInfo, error)

	// QueryMetric queries a named AWS/Lambda metric for one function
	// over the trailing window and returns the latest datapoint.
	QueryMetric(ctx context.Context, functionName, metricName string, window time.Duration) (float64, error)

	// FilterLogs returns log entries from the log group matching the
	// filter pattern within the trailing window.
	FilterLogs(ctx context.Context, logGroup, pattern string, window time.Duration) ([]string, error)
}

// RuntimeBudget carries collection-time execution context: the invoking
// environment's memory ceiling and remaining execution budget.
type RuntimeBudget struct {
	MemoryLimitMB int
	RemainingTime time.Duration
	MetricsWindow time.Duration
	HomeFunction  string
}

// AccountBundle is the metric bundle collected for one account.
type AccountBundle struct {
	MemoryUsedMB float64 `json:"memory_used"`
	DurationMS   float64 `json:"execution_duration"`
	ErrorCount   float64 `json:"error_count"`
	CostEstimate float64 `json:"cost_estimate"`
	HealthScore  float64 `json:"health_score"`
}

// MetricValues returns the bundle as named metric values for threshold
// evaluation. Iteration order over the result is unspecified.
func (b AccountBundle) MetricValues() map[string]float64 {
	return map[string]float64{
		"memory_used":        b.MemoryUsedMB,
		"execution_duration": b.DurationMS,
		"error_count":        b.ErrorCount,
		"cost_estimate":      b.CostEstimate,
		"health_score":       b.HealthScore,
	}
}

// CollectAccount collects the metric bundle for a single account. Errors
// are returned to the aggregator, which records the account as failed
// without disturbing the other accounts.
func CollectAccount(ctx context.Context, client AccountClient, budget RuntimeBudget) (AccountBundle, error) {
	bundle := AccountBundle{
		MemoryUsedMB: float64(budget.MemoryLimitMB),
	}

	// Elapsed execution budget, derived the same way the reference
	// monitor did: total budget scales with the memory ceiling.
	totalMS := float64(budget.MemoryLimitMB) * 1000
	bundle.DurationMS = totalMS - float64(budget.RemainingTime.Milliseconds())
	if bundle.DurationMS < 0 {
		bundle.DurationMS = 0
	}

	logGroup := "/aws/lambda/" + budget.HomeFunction
	entries, err := client.FilterLogs(ctx, logGroup, "ERROR", budget.MetricsWindow)
	if err != nil {
		return AccountBundle{}, err
	}
	bundle.ErrorCount = float64(len(entries))

	memoryGB := float64(budget.MemoryLimitMB) / 1024
	bundle.CostEstimate = memoryGB * (bundle.DurationMS / 1000) * costPerGBSecond

	bundle.HealthScore = 100
	if bundle.ErrorCount > 0 {
		bundle.HealthScore -= bundleErrorPenalty
	}
	if bundle.MemoryUsedMB > highMemoryCeilingMB {
		bundle.HealthScore -= bundleMemoryPenalty
	}

	return bundle, nil
}
