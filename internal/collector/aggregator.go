package collector

import (
	"context"
	"log/slog"
	"time"

	"lambda-fleet-monitor/internal/awsx"
	"lambda-fleet-monitor/internal/concurrent"
)

// DefaultMaxConcurrency bounds the collection worker pool.
const DefaultMaxConcurrency = 10

// ClientFactory builds the data-plane client for one account. For remote
// accounts this is where role assumption happens; a factory error counts
// as a collection failure for that account only.
type ClientFactory func(ctx context.Context, accountID string) (AccountClient, error)

// FleetMetrics is the merged snapshot of one collection cycle. Every
// configured account appears either under Accounts or under Failures,
// never neither. Functions holds the per-function records of accounts
// collected with per-function detail enabled.
type FleetMetrics struct {
	CollectedAt string                       `json:"collected_at"`
	Accounts    map[string]AccountBundle     `json:"accounts"`
	Functions   map[string][]FunctionMetrics `json:"functions,omitempty"`
	Failures    map[string]string            `json:"failures,omitempty"`
}

// accountCollection is one account's successful collection output.
type accountCollection struct {
	bundle    AccountBundle
	functions []FunctionMetrics
}

// Aggregator fans account collection across a bounded worker pool.
type Aggregator struct {
	accounts       []string
	factory        ClientFactory
	budget         RuntimeBudget
	maxConcurrency int
	perFunction    bool
	logger         *slog.Logger
}

// NewAggregator creates an aggregator over the configured account IDs.
// maxConcurrency <= 0 falls back to DefaultMaxConcurrency. perFunction
// enables per-function metric records alongside each account bundle.
func NewAggregator(
	accounts []string,
	factory ClientFactory,
	budget RuntimeBudget,
	maxConcurrency int,
	perFunction bool,
	logger *slog.Logger,
) *Aggregator {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}
	return &Aggregator{
		accounts:       accounts,
		factory:        factory,
		budget:         budget,
		maxConcurrency: maxConcurrency,
		perFunction:    perFunction,
		logger:         logger,
	}
}

// Collect runs one collection cycle. It never returns an error: a failed
// account is recorded as an explicit failure marker and the remaining
// accounts proceed. Cancellation of ctx abandons accounts still queued
// and returns whatever was collected.
func (a *Aggregator) Collect(ctx context.Context) FleetMetrics {
	fleet := FleetMetrics{
		CollectedAt: time.Now().UTC().Format(time.RFC3339),
		Accounts:    make(map[string]AccountBundle),
		Failures:    make(map[string]string),
	}
	if a.perFunction {
		fleet.Functions = make(map[string][]FunctionMetrics)
	}

	operation := func(ctx context.Context, accountID string) (interface{}, error) {
		client, err := a.factory(ctx, accountID)
		if err != nil {
			return nil, err
		}

		bundle, err := CollectAccount(ctx, client, a.budget)
		if err != nil {
			return nil, err
		}

		collection := accountCollection{bundle: bundle}
		if a.perFunction {
			functions, err := CollectFunctionMetrics(ctx, client, accountID, a.budget.MetricsWindow, a.logger)
			if err != nil {
				// The account bundle stands on its own; missing function
				// detail does not fail the account.
				a.logger.Warn("per-function collection failed",
					"account_id", accountID,
					"error", err)
			} else {
				collection.functions = functions
			}
		}
		return collection, nil
	}

	results := concurrent.ProcessAccountsConcurrently(ctx, a.accounts, operation, a.maxConcurrency)

	for _, result := range results {
		if result.Success {
			collection := result.Data.(accountCollection)
			fleet.Accounts[result.AccountID] = collection.bundle
			if a.perFunction && collection.functions != nil {
				fleet.Functions[result.AccountID] = collection.functions
			}
			continue
		}

		fleet.Failures[result.AccountID] = awsx.Describe(result.Error)
		a.logger.Error("account collection failed",
			"account_id", result.AccountID,
			"abandoned", result.Abandoned,
			"throttled", awsx.IsThrottling(result.Error),
			"error", result.Error)
	}

	summary := concurrent.AggregateResults(results)
	a.logger.Info("collection cycle merged",
		"accounts", summary.TotalAccounts,
		"successful", summary.SuccessfulCount,
		"failed", summary.FailedCount,
		"abandoned", summary.AbandonedCount)

	return fleet
}
