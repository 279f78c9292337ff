package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"lambda-fleet-monitor/internal/alerting"
)

// configCache holds the configuration loaded from Parameter Store for the
// lifetime of the process, so warm invocations skip the SSM round trip.
var configCache *Config

// LoadConfig loads configuration from a JSON file. An empty path returns
// the default configuration.
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		return getDefaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %v", configPath, err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %v", configPath, err)
	}

	applyDefaults(&config)
	return &config, nil
}

// LoadConfigFromSSM loads configuration from an SSM Parameter Store
// parameter holding the JSON document, caching it for warm invocations.
func LoadConfigFromSSM(ctx context.Context, parameterName string) (*Config, error) {
	if configCache != nil {
		return configCache, nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %v", err)
	}

	client := ssm.NewFromConfig(cfg)
	result, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(parameterName),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read parameter %s: %v", parameterName, err)
	}

	var config Config
	if err := json.Unmarshal([]byte(aws.ToString(result.Parameter.Value)), &config); err != nil {
		return nil, fmt.Errorf("failed to parse parameter %s: %v", parameterName, err)
	}

	applyDefaults(&config)
	configCache = &config
	return &config, nil
}

// LoadMonitorConfig resolves the configuration source from the
// environment: CONFIG_SSM_PARAMETER takes precedence, then CONFIG_FILE,
// then the bundled default path.
func LoadMonitorConfig(ctx context.Context) (*Config, error) {
	if parameter := os.Getenv("CONFIG_SSM_PARAMETER"); parameter != "" {
		return LoadConfigFromSSM(ctx, parameter)
	}

	configFile := os.Getenv("CONFIG_FILE")
	if configFile == "" {
		configFile = "lambda_monitor.json"
	}
	return LoadConfig(configFile)
}

// emptyConfig is the degraded configuration used when loading fails: no
// thresholds ever match, so no alerts are generated until configuration
// is restored. Callers must flag the degradation on the cycle result.
func emptyConfig() *Config {
	config := &Config{}
	applyDefaults(config)
	config.Alerting.Thresholds = map[string]alerting.Threshold{}
	return config
}

func applyDefaults(config *Config) {
	if config.AWSRegion == "" {
		config.AWSRegion = "us-east-1"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.MaxConcurrency == 0 {
		config.MaxConcurrency = 10
	}
	if config.MetricsWindowSeconds == 0 {
		config.MetricsWindowSeconds = 300
	}
	if config.Alerting.ThrottleWindowSeconds == 0 {
		config.Alerting.ThrottleWindowSeconds = 300
	}
	if config.MonitoringRoleName == "" {
		config.MonitoringRoleName = "LambdaMonitoringRole"
	}
}

// getDefaultConfig returns a default configuration
func getDefaultConfig() *Config {
	config := &Config{
		Alerting: AlertingConfig{
			Thresholds: map[string]alerting.Threshold{
				"error_count": {Warning: 5, Critical: 20},
			},
			Routing: map[string][]ChannelConfig{
				"critical": {},
				"warning":  {},
			},
		},
	}
	applyDefaults(config)
	return config
}

// ValidateConfig validates the configuration
func ValidateConfig(config *Config) error {
	if config.AWSRegion == "" {
		return fmt.Errorf("aws_region is required")
	}

	if len(config.MonitoredAccounts) > 0 && config.MonitoringRoleName == "" {
		return fmt.Errorf("monitoring_role_name is required when monitored_accounts is set")
	}

	for _, accountID := range config.MonitoredAccounts {
		if !isAccountID(accountID) {
			return fmt.Errorf("invalid account ID %q: must be 12 digits", accountID)
		}
	}

	for metric, threshold := range config.Alerting.Thresholds {
		if threshold.Critical < threshold.Warning {
			return fmt.Errorf("threshold for %s has critical (%v) below warning (%v)",
				metric, threshold.Critical, threshold.Warning)
		}
	}

	for severity, channels := range config.Alerting.Routing {
		if severity != "warning" && severity != "critical" {
			return fmt.Errorf("unknown routing severity %q", severity)
		}
		for _, channel := range channels {
			switch channel.Type {
			case "sns":
				if channel.TopicARN == "" {
					return fmt.Errorf("sns channel for %s requires topic_arn", severity)
				}
			case "slack":
				if channel.WebhookURL == "" {
					return fmt.Errorf("slack channel for %s requires webhook_url", severity)
				}
			case "email":
				if channel.Sender == "" || len(channel.Recipients) == 0 {
					return fmt.Errorf("email channel for %s requires sender and recipients", severity)
				}
			default:
				return fmt.Errorf("unknown channel type %q for %s", channel.Type, severity)
			}
		}
	}

	return nil
}

// isAccountID reports whether s is a 12-digit AWS account ID.
func isAccountID(s string) bool {
	if len(s) != 12 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
