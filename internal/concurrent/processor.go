// Package concurrent provides a bounded worker pool for fanning one
// operation across many accounts with per-account result isolation.
package concurrent

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// AccountResult represents the outcome of an operation for a single account.
type AccountResult struct {
	AccountID      string
	Success        bool
	Error          error
	Data           interface{}
	ProcessingTime time.Duration
	Abandoned      bool
}

// FanOutSummary aggregates results from a multi-account fan-out.
type FanOutSummary struct {
	TotalAccounts   int
	SuccessfulCount int
	FailedCount     int
	AbandonedCount  int
	Results         []AccountResult
	TotalDuration   time.Duration
}

// AccountOperation performs an operation against a single account and
// returns the collected data or an error.
type AccountOperation func(ctx context.Context, accountID string) (interface{}, error)

// ProcessAccountsConcurrently runs the operation for every account using a
// semaphore-bounded worker pool. A failure (or panic) in one account is
// captured in its result and never blocks the others. When the context is
// cancelled, accounts still waiting for a worker slot are marked abandoned
// instead of being awaited, so a cycle running out of budget still returns
// partial results.
func ProcessAccountsConcurrently(
	ctx context.Context,
	accountIDs []string,
	operation AccountOperation,
	maxConcurrency int,
) []AccountResult {
	if len(accountIDs) == 0 {
		return []AccountResult{}
	}

	if maxConcurrency <= 0 || maxConcurrency > len(accountIDs) {
		maxConcurrency = len(accountIDs)
	}

	semaphore := make(chan struct{}, maxConcurrency)
	results := make(chan AccountResult, len(accountIDs))
	var wg sync.WaitGroup

	for _, id := range accountIDs {
		wg.Add(1)
		go func(accountID string) {
			defer wg.Done()

			result := AccountResult{AccountID: accountID}

			// Wait for a worker slot unless the budget runs out first.
			select {
			case semaphore <- struct{}{}:
				defer func() { <-semaphore }()
			case <-ctx.Done():
				result.Abandoned = true
				result.Error = fmt.Errorf("collection abandoned: %w", ctx.Err())
				results <- result
				return
			}

			startTime := time.Now()

			defer func() {
				result.ProcessingTime = time.Since(startTime)
				if r := recover(); r != nil {
					result.Success = false
					result.Error = fmt.Errorf("panic: %v", r)
				}
				results <- result
			}()

			data, err := operation(ctx, accountID)
			if err != nil {
				result.Success = false
				result.Error = err
			} else {
				result.Success = true
				result.Data = data
			}
		}(id)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var allResults []AccountResult
	for result := range results {
		allResults = append(allResults, result)
	}

	return allResults
}

// AggregateResults folds a slice of AccountResult into a FanOutSummary.
func AggregateResults(results []AccountResult) FanOutSummary {
	summary := FanOutSummary{
		TotalAccounts: len(results),
		Results:       results,
	}

	var totalDuration time.Duration
	for _, result := range results {
		totalDuration += result.ProcessingTime
		switch {
		case result.Success:
			summary.SuccessfulCount++
		case result.Abandoned:
			summary.AbandonedCount++
		default:
			summary.FailedCount++
		}
	}
	summary.TotalDuration = totalDuration

	return summary
}
