package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"lambda-fleet-monitor/internal/alerting"
	"lambda-fleet-monitor/internal/collector"
)

// SnapshotWriter persists one fleet snapshot per cycle.
type SnapshotWriter interface {
	Store(ctx context.Context, fleet collector.FleetMetrics) (string, error)
}

// Monitor runs collection cycles: aggregate fleet metrics, persist a
// snapshot, evaluate thresholds, throttle, and route surviving alerts.
type Monitor struct {
	config         *Config
	configDegraded bool
	aggregator     *collector.Aggregator
	throttle       *alerting.Throttle
	router         *alerting.Router
	snapshots      SnapshotWriter
	logger         *slog.Logger
}

// NewMonitor assembles a monitor from its collaborators. snapshots may be
// nil when no snapshot bucket is configured.
func NewMonitor(
	config *Config,
	configDegraded bool,
	aggregator *collector.Aggregator,
	throttle *alerting.Throttle,
	router *alerting.Router,
	snapshots SnapshotWriter,
	logger *slog.Logger,
) *Monitor {
	return &Monitor{
		config:         config,
		configDegraded: configDegraded,
		aggregator:     aggregator,
		throttle:       throttle,
		router:         router,
		snapshots:      snapshots,
		logger:         logger,
	}
}

// RunCycle executes one collection cycle to completion. Per-account and
// per-channel failures are reported inside the result; the cycle itself
// only fails on construction problems handled before this point.
func (m *Monitor) RunCycle(ctx context.Context) CycleResult {
	result := CycleResult{
		Status:         "ok",
		ConfigDegraded: m.configDegraded,
	}

	if m.configDegraded {
		m.logger.Error("running with degraded empty configuration; no alerts will be generated")
	}

	fleet := m.aggregator.Collect(ctx)
	result.AccountsCollected = len(fleet.Accounts)
	result.AccountFailures = fleet.Failures

	if m.snapshots != nil {
		key, err := m.snapshots.Store(ctx, fleet)
		if err != nil {
			m.logger.Error("failed to store fleet snapshot", "error", err)
		} else {
			result.SnapshotKey = key
		}
	}

	values := make(map[string]map[string]float64, len(fleet.Accounts))
	for accountID, bundle := range fleet.Accounts {
		values[accountID] = bundle.MetricValues()
	}

	alerts := alerting.Evaluate(values, m.config.Alerting.Thresholds, time.Now().UTC())
	result.AlertsEvaluated = len(alerts)

	for _, alert := range alerts {
		if !m.throttle.Allow(alert) {
			result.AlertsSuppressed++
			m.logger.Info("alert suppressed by throttle",
				"account_id", alert.AccountID,
				"metric", alert.Metric,
				"severity", alert.Severity)
			continue
		}
		m.router.Dispatch(ctx, alert)
		result.AlertsEmitted++
	}

	m.logger.Info("collection cycle complete",
		"accounts_collected", result.AccountsCollected,
		"account_failures", len(result.AccountFailures),
		"alerts_emitted", result.AlertsEmitted,
		"alerts_suppressed", result.AlertsSuppressed)

	return result
}

// buildMonitor wires a monitor from configuration and ambient AWS
// credentials. A config load failure upstream arrives here as an empty
// config with configDegraded set.
func buildMonitor(ctx context.Context, config *Config, configDegraded bool, budget collector.RuntimeBudget, logger *slog.Logger) (*Monitor, error) {
	credentialManager, err := NewCredentialManager(ctx, config.AWSRegion, config.MonitoringRoleName)
	if err != nil {
		return nil, err
	}

	accounts := []string{credentialManager.HomeAccountID()}
	if config.DiscoverAccounts {
		discovered, err := credentialManager.DiscoverAccounts(ctx)
		if err != nil {
			// Discovery failure degrades to the static account list.
			logger.Error("account discovery failed, using configured accounts", "error", err)
		} else {
			accounts = append(accounts, discovered...)
		}
	}
	accounts = append(accounts, config.MonitoredAccounts...)
	accounts = dedupeAccounts(accounts)

	factory := func(ctx context.Context, accountID string) (collector.AccountClient, error) {
		// Home credentials were already proven at manager construction;
		// remote role assumption is checked before collection starts so a
		// broken trust policy surfaces as a clear failure marker.
		if accountID != credentialManager.HomeAccountID() {
			if err := credentialManager.ValidateAccountAccess(ctx, accountID); err != nil {
				return nil, err
			}
		}
		return collector.NewAWSAccountClient(credentialManager.AccountConfig(accountID)), nil
	}

	aggregator := collector.NewAggregator(accounts, factory, budget, config.MaxConcurrency, config.CollectPerFunction, logger)
	throttle := alerting.NewThrottle(time.Duration(config.Alerting.ThrottleWindowSeconds) * time.Second)

	homeConfig := credentialManager.AccountConfig(credentialManager.HomeAccountID())
	router := alerting.NewRouter(buildChannels(config, homeConfig, logger), logger)

	var snapshots SnapshotWriter
	if config.SnapshotBucket != "" {
		snapshots = NewSnapshotStore(s3.NewFromConfig(homeConfig), config.SnapshotBucket)
	}

	return NewMonitor(config, configDegraded, aggregator, throttle, router, snapshots, logger), nil
}

// buildChannels materializes the configured routing table. Channels with
// an unsupported type are logged and skipped rather than failing setup.
func buildChannels(config *Config, awsCfg aws.Config, logger *slog.Logger) map[alerting.Severity][]alerting.Channel {
	routes := make(map[alerting.Severity][]alerting.Channel)

	severities := map[string]alerting.Severity{
		"warning":  alerting.SeverityWarning,
		"critical": alerting.SeverityCritical,
	}

	for key, severity := range severities {
		for _, channelConfig := range config.Alerting.Routing[key] {
			switch channelConfig.Type {
			case "sns":
				routes[severity] = append(routes[severity],
					alerting.NewSNSChannel(sns.NewFromConfig(awsCfg), channelConfig.TopicARN))
			case "email":
				routes[severity] = append(routes[severity],
					alerting.NewEmailChannel(sesv2.NewFromConfig(awsCfg), channelConfig.Sender, channelConfig.Recipients))
			case "slack":
				routes[severity] = append(routes[severity],
					alerting.NewSlackChannel(channelConfig.WebhookURL, nil))
			default:
				logger.Warn("skipping unsupported channel type",
					"type", channelConfig.Type,
					"severity", key)
			}
		}
	}

	return routes
}

func dedupeAccounts(accounts []string) []string {
	seen := make(map[string]bool, len(accounts))
	var out []string
	for _, accountID := range accounts {
		if accountID == "" || seen[accountID] {
			continue
		}
		seen[accountID] = true
		out = append(out, accountID)
	}
	return out
}

// newLogger builds the process logger at the configured level.
func newLogger(level string) *slog.Logger {
	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slogLevel}))
}

