package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"
)

// fakeClient is a test double for the account data plane.
type fakeClient struct {
	functions  []FunctionInfo
	metrics    map[string]float64
	logEntries []string
	listErr    error
	metricErr  error
	filterErr  error
}

func (f *fakeClient) ListFunctions(ctx context.Context) ([]FunctionInfo, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.functions, nil
}

func (f *fakeClient) QueryMetric(ctx context.Context, functionName, metricName string, window time.Duration) (float64, error) {
	if f.metricErr != nil {
		return 0, f.metricErr
	}
	return f.metrics[functionName+"/"+metricName], nil
}

func (f *fakeClient) FilterLogs(ctx context.Context, logGroup, pattern string, window time.Duration) ([]string, error) {
	if f.filterErr != nil {
		return nil, f.filterErr
	}
	return f.logEntries, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testBudget() RuntimeBudget {
	return RuntimeBudget{
		MemoryLimitMB: 256,
		RemainingTime: 200 * time.Second,
		MetricsWindow: 5 * time.Minute,
		HomeFunction:  "fleet-monitor",
	}
}

func TestCollectAccount(t *testing.T) {
	client := &fakeClient{logEntries: []string{"ERROR one", "ERROR two"}}

	bundle, err := CollectAccount(context.Background(), client, testBudget())
	if err != nil {
		t.Fatalf("CollectAccount() error = %v", err)
	}

	if bundle.MemoryUsedMB != 256 {
		t.Errorf("MemoryUsedMB = %v, want 256", bundle.MemoryUsedMB)
	}
	if bundle.ErrorCount != 2 {
		t.Errorf("ErrorCount = %v, want 2", bundle.ErrorCount)
	}
	// 256 MB ceiling with errors present: 100 - 20 = 80.
	if bundle.HealthScore != 80 {
		t.Errorf("HealthScore = %v, want 80", bundle.HealthScore)
	}
	if bundle.CostEstimate <= 0 {
		t.Errorf("CostEstimate = %v, want positive", bundle.CostEstimate)
	}
}

func TestCollectAccountHealthPenalties(t *testing.T) {
	tests := []struct {
		name      string
		memoryMB  int
		entries   []string
		wantScore float64
	}{
		{"clean small account", 256, nil, 100},
		{"errors only", 256, []string{"ERROR"}, 80},
		{"high memory only", 1024, nil, 90},
		{"errors and high memory", 1024, []string{"ERROR"}, 70},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			budget := testBudget()
			budget.MemoryLimitMB = tt.memoryMB
			client := &fakeClient{logEntries: tt.entries}

			bundle, err := CollectAccount(context.Background(), client, budget)
			if err != nil {
				t.Fatalf("CollectAccount() error = %v", err)
			}
			if bundle.HealthScore != tt.wantScore {
				t.Errorf("HealthScore = %v, want %v", bundle.HealthScore, tt.wantScore)
			}
		})
	}
}

func TestCollectAccountFilterFailure(t *testing.T) {
	client := &fakeClient{filterErr: errors.New("access denied")}

	_, err := CollectAccount(context.Background(), client, testBudget())
	if err == nil {
		t.Fatal("CollectAccount() error = nil, want failure")
	}
}

func TestCollectFunctionMetrics(t *testing.T) {
	client := &fakeClient{
		functions: []FunctionInfo{
			{Name: "billing-worker", Runtime: "go1.x", MemoryMB: 256, TimeoutSec: 30},
			{Name: "api-handler", Runtime: "python3.12", MemoryMB: 512, TimeoutSec: 15},
		},
		metrics: map[string]float64{
			"billing-worker/Invocations": 120,
			"billing-worker/Errors":      3,
			"billing-worker/Duration":    840.5,
		},
	}

	metrics, err := CollectFunctionMetrics(context.Background(), client, "111111111111", 5*time.Minute, testLogger())
	if err != nil {
		t.Fatalf("CollectFunctionMetrics() error = %v", err)
	}

	if len(metrics) != 2 {
		t.Fatalf("got %d records, want 2", len(metrics))
	}

	first := metrics[0]
	if first.FunctionName != "billing-worker" || first.Invocations != 120 || first.Errors != 3 || first.DurationMS != 840.5 {
		t.Errorf("unexpected first record: %+v", first)
	}
	if first.AccountID != "111111111111" {
		t.Errorf("AccountID = %s", first.AccountID)
	}

	// api-handler has no datapoints; values stay zero.
	if metrics[1].Invocations != 0 {
		t.Errorf("api-handler Invocations = %v, want 0", metrics[1].Invocations)
	}
}

func TestCollectFunctionMetricsQueryFailureIsolated(t *testing.T) {
	client := &fakeClient{
		functions: []FunctionInfo{{Name: "fn-a"}},
		metricErr: errors.New("throttled"),
	}

	metrics, err := CollectFunctionMetrics(context.Background(), client, "111111111111", 5*time.Minute, testLogger())
	if err != nil {
		t.Fatalf("CollectFunctionMetrics() error = %v, want per-metric isolation", err)
	}
	if len(metrics) != 1 || metrics[0].Invocations != 0 {
		t.Errorf("unexpected metrics: %+v", metrics)
	}
}

func TestAggregatorIsolatesFailures(t *testing.T) {
	accounts := []string{"111111111111", "222222222222", "333333333333"}

	factory := func(ctx context.Context, accountID string) (AccountClient, error) {
		if accountID == "222222222222" {
			return nil, errors.New("role assumption failed")
		}
		return &fakeClient{}, nil
	}

	aggregator := NewAggregator(accounts, factory, testBudget(), 10, false, testLogger())
	fleet := aggregator.Collect(context.Background())

	if len(fleet.Accounts)+len(fleet.Failures) != len(accounts) {
		t.Fatalf("fleet accounts for %d of %d configured accounts",
			len(fleet.Accounts)+len(fleet.Failures), len(accounts))
	}
	if _, ok := fleet.Failures["222222222222"]; !ok {
		t.Error("failing account missing from failure markers")
	}
	if _, ok := fleet.Accounts["111111111111"]; !ok {
		t.Error("healthy account missing from fleet")
	}
	if _, ok := fleet.Accounts["222222222222"]; ok {
		t.Error("failing account present in successful map")
	}
}

func TestAggregatorManyAccounts(t *testing.T) {
	var accounts []string
	for i := 0; i < 25; i++ {
		accounts = append(accounts, fmt.Sprintf("%012d", i))
	}

	factory := func(ctx context.Context, accountID string) (AccountClient, error) {
		return &fakeClient{}, nil
	}

	aggregator := NewAggregator(accounts, factory, testBudget(), 0, false, testLogger())
	fleet := aggregator.Collect(context.Background())

	if len(fleet.Accounts) != 25 {
		t.Errorf("collected %d accounts, want 25", len(fleet.Accounts))
	}
	if len(fleet.Failures) != 0 {
		t.Errorf("unexpected failures: %v", fleet.Failures)
	}
}

func TestAggregatorPerFunctionMetrics(t *testing.T) {
	clients := map[string]*fakeClient{
		"111111111111": {
			functions: []FunctionInfo{{Name: "billing-worker"}},
			metrics:   map[string]float64{"billing-worker/Invocations": 42},
		},
		"222222222222": {
			functions: []FunctionInfo{},
		},
	}

	factory := func(ctx context.Context, accountID string) (AccountClient, error) {
		return clients[accountID], nil
	}

	aggregator := NewAggregator([]string{"111111111111", "222222222222"}, factory, testBudget(), 10, true, testLogger())
	fleet := aggregator.Collect(context.Background())

	if len(fleet.Accounts) != 2 {
		t.Fatalf("collected %d accounts, want 2", len(fleet.Accounts))
	}
	functions := fleet.Functions["111111111111"]
	if len(functions) != 1 || functions[0].FunctionName != "billing-worker" || functions[0].Invocations != 42 {
		t.Errorf("unexpected function records: %+v", functions)
	}
	if len(fleet.Functions["222222222222"]) != 0 {
		t.Errorf("unexpected function records for empty account: %+v", fleet.Functions["222222222222"])
	}
}

func TestAggregatorPerFunctionFailureKeepsBundle(t *testing.T) {
	factory := func(ctx context.Context, accountID string) (AccountClient, error) {
		return &fakeClient{listErr: errors.New("throttled")}, nil
	}

	aggregator := NewAggregator([]string{"111111111111"}, factory, testBudget(), 10, true, testLogger())
	fleet := aggregator.Collect(context.Background())

	// Missing function detail never fails the account bundle.
	if _, ok := fleet.Accounts["111111111111"]; !ok {
		t.Fatal("account bundle missing after per-function failure")
	}
	if len(fleet.Failures) != 0 {
		t.Errorf("unexpected failure markers: %v", fleet.Failures)
	}
	if len(fleet.Functions["111111111111"]) != 0 {
		t.Errorf("unexpected function records: %+v", fleet.Functions["111111111111"])
	}
}

func TestAggregatorWithoutPerFunctionOmitsRecords(t *testing.T) {
	factory := func(ctx context.Context, accountID string) (AccountClient, error) {
		return &fakeClient{functions: []FunctionInfo{{Name: "fn-a"}}}, nil
	}

	aggregator := NewAggregator([]string{"111111111111"}, factory, testBudget(), 10, false, testLogger())
	fleet := aggregator.Collect(context.Background())

	if fleet.Functions != nil {
		t.Errorf("Functions = %v, want nil when per-function detail is disabled", fleet.Functions)
	}
}

func TestBundleMetricValues(t *testing.T) {
	bundle := AccountBundle{
		MemoryUsedMB: 256,
		DurationMS:   1200,
		ErrorCount:   4,
		CostEstimate: 0.5,
		HealthScore:  80,
	}

	values := bundle.MetricValues()

	if len(values) != 5 {
		t.Fatalf("got %d metric values, want 5", len(values))
	}
	if values["error_count"] != 4 || values["health_score"] != 80 {
		t.Errorf("unexpected values: %v", values)
	}
}
