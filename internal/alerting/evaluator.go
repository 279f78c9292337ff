// Package alerting evaluates fleet metrics against configured thresholds
// and routes the surviving alerts to notification channels with
// per-channel failure isolation and time-window deduplication.
package alerting

import (
	"time"

	"github.com/google/uuid"
)

// Severity classifies an alert.
type Severity string

const (
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Threshold holds the warning and critical limits for one metric.
type Threshold struct {
	Warning  float64 `json:"warning"`
	Critical float64 `json:"critical"`
}

// Alert is an immutable classified threshold breach.
type Alert struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	Metric    string    `json:"metric"`
	Severity  Severity  `json:"severity"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// Evaluate classifies every (account, metric, value) triple that has a
// configured threshold: above critical is CRITICAL, else above warning is
// WARNING, else nothing. Metrics without a threshold never alert.
// Evaluation order across accounts and metrics is unspecified.
func Evaluate(values map[string]map[string]float64, thresholds map[string]Threshold, now time.Time) []Alert {
	var alerts []Alert

	for accountID, metrics := range values {
		for metric, value := range metrics {
			threshold, ok := thresholds[metric]
			if !ok {
				continue
			}

			var severity Severity
			switch {
			case value > threshold.Critical:
				severity = SeverityCritical
			case value > threshold.Warning:
				severity = SeverityWarning
			default:
				continue
			}

			alerts = append(alerts, Alert{
				ID:        uuid.NewString(),
				AccountID: accountID,
				Metric:    metric,
				Severity:  severity,
				Value:     value,
				Timestamp: now,
			})
		}
	}

	return alerts
}
