package main

import (
	"lambda-fleet-monitor/internal/alerting"
)

// Config is the top-level monitoring configuration, loaded from a JSON
// file or from SSM Parameter Store.
type Config struct {
	AWSRegion            string         `json:"aws_region"`
	LogLevel             string         `json:"log_level"`
	MonitoredAccounts    []string       `json:"monitored_accounts"`
	MonitoringRoleName   string         `json:"monitoring_role_name"`
	DiscoverAccounts     bool           `json:"discover_accounts"`
	MaxConcurrency       int            `json:"max_concurrency"`
	MetricsWindowSeconds int            `json:"metrics_window_seconds"`
	CollectPerFunction   bool           `json:"collect_per_function"`
	OpenSearchEndpoint   string         `json:"opensearch_endpoint"`
	SnapshotBucket       string         `json:"snapshot_bucket"`
	Alerting             AlertingConfig `json:"alerting"`
}

// AlertingConfig groups thresholds, throttling and routing.
type AlertingConfig struct {
	Thresholds            map[string]alerting.Threshold `json:"thresholds"`
	ThrottleWindowSeconds int                           `json:"throttle_window"`
	Routing               map[string][]ChannelConfig    `json:"routing"`
}

// ChannelConfig describes one notification channel. Type selects the
// implementation; the remaining fields are channel-specific addressing.
type ChannelConfig struct {
	Type       string   `json:"type"`
	TopicARN   string   `json:"topic_arn,omitempty"`
	WebhookURL string   `json:"webhook_url,omitempty"`
	Sender     string   `json:"sender,omitempty"`
	Recipients []string `json:"recipients,omitempty"`
}

// CycleResult is the user-visible outcome of one collection cycle.
// Partial sub-failures (failed accounts, undeliverable channels) are
// reported here without failing the cycle itself.
type CycleResult struct {
	Status            string            `json:"status"`
	Error             string            `json:"error,omitempty"`
	AccountsCollected int               `json:"accounts_collected"`
	AccountFailures   map[string]string `json:"account_failures,omitempty"`
	AlertsEvaluated   int               `json:"alerts_evaluated"`
	AlertsEmitted     int               `json:"alerts_emitted"`
	AlertsSuppressed  int               `json:"alerts_suppressed"`
	SnapshotKey       string            `json:"snapshot_key,omitempty"`
	ConfigDegraded    bool              `json:"config_degraded,omitempty"`
}

// IngestResult is the outcome of processing one CloudWatch Logs batch.
type IngestResult struct {
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Records int    `json:"records"`
	Shipped bool   `json:"shipped"`
}
