package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"lambda-fleet-monitor/internal/collector"
	"lambda-fleet-monitor/internal/extract"
	"lambda-fleet-monitor/internal/opensearch"
)

// Version information
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Check if running in Lambda environment
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		// Running in Lambda - start Lambda handler immediately
		runLambdaMode()
		return
	}

	// Check for subcommands
	if len(os.Args) < 2 {
		showUsage()
		os.Exit(1)
	}

	subcommand := os.Args[1]

	switch subcommand {
	case "collect":
		handleCollectCommand()
	case "process-logs":
		handleProcessLogsCommand()
	case "function-stats":
		handleFunctionStatsCommand()
	case "validate-config":
		handleValidateConfigCommand()
	case "version":
		showVersion()
	case "help", "--help", "-h":
		showUsage()
	default:
		fmt.Printf("Unknown command: %s\n", subcommand)
		showUsage()
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Printf("Lambda Fleet Monitor\n\n")
	fmt.Printf("USAGE:\n")
	fmt.Printf("  lambda-fleet-monitor <command> [options]\n\n")
	fmt.Printf("COMMANDS:\n")
	fmt.Printf("  collect           Run one metric collection cycle\n")
	fmt.Printf("  process-logs      Process an execution-report log file into metric records\n")
	fmt.Printf("  function-stats    Query per-function aggregations from OpenSearch\n")
	fmt.Printf("  validate-config   Validate a configuration file\n")
	fmt.Printf("  version           Show version information\n")
	fmt.Printf("  help              Show this help message\n\n")
	fmt.Printf("Use 'lambda-fleet-monitor <command> --help' for command-specific help.\n")
}

func showVersion() {
	fmt.Printf("Lambda Fleet Monitor\n")
	fmt.Printf("Version: %s\n", Version)
	fmt.Printf("Build Time: %s\n", BuildTime)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}

// handleCollectCommand runs one collection cycle from the command line,
// with a fixed time budget in place of a Lambda deadline.
func handleCollectCommand() {
	fs := flag.NewFlagSet("collect", flag.ExitOnError)

	configFile := fs.String("config-file", "lambda_monitor.json", "Configuration file path")
	timeout := fs.Duration("timeout", 5*time.Minute, "Overall cycle timeout")
	dryRun := fs.Bool("dry-run", false, "Collect and evaluate without dispatching alerts")

	fs.Parse(os.Args[2:])

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	config, err := LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := ValidateConfig(config); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := newLogger(config.LogLevel)

	if *dryRun {
		// Dry runs evaluate against empty routing so nothing is sent.
		config.Alerting.Routing = nil
	}

	budget := collector.RuntimeBudget{
		MemoryLimitMB: 128,
		RemainingTime: *timeout,
		MetricsWindow: time.Duration(config.MetricsWindowSeconds) * time.Second,
	}

	monitor, err := buildMonitor(ctx, config, false, budget, logger)
	if err != nil {
		log.Fatalf("Failed to build monitor: %v", err)
	}

	result := monitor.RunCycle(ctx)

	output, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal cycle result: %v", err)
	}
	fmt.Println(string(output))

	if len(result.AccountFailures) > 0 {
		os.Exit(1)
	}
}

// handleProcessLogsCommand parses a local file of execution-report lines
// into metric records, optionally shipping them to OpenSearch. Useful for
// testing extraction against captured log output.
func handleProcessLogsCommand() {
	fs := flag.NewFlagSet("process-logs", flag.ExitOnError)

	inputFile := fs.String("input-file", "", "File with one log message per line (required)")
	logGroup := fs.String("log-group", "/aws/lambda/local-test", "Log group name to attribute records to")
	endpoint := fs.String("opensearch-endpoint", "", "OpenSearch endpoint to ship records to (omit to print)")
	region := fs.String("region", "us-east-1", "AWS region for request signing")
	logLevel := fs.String("log-level", "info", "Log level")

	fs.Parse(os.Args[2:])

	if *inputFile == "" {
		fmt.Printf("process-logs command usage:\n")
		fmt.Printf("  --input-file string           File with one log message per line (required)\n")
		fmt.Printf("  --log-group string            Log group name to attribute records to\n")
		fmt.Printf("  --opensearch-endpoint string  OpenSearch endpoint to ship records to (omit to print)\n")
		fmt.Printf("  --region string               AWS region for request signing\n")
		fmt.Printf("  --log-level string            Log level\n")
		return
	}

	logger := newLogger(*logLevel)

	data, err := os.ReadFile(*inputFile)
	if err != nil {
		log.Fatalf("Failed to read input file: %v", err)
	}

	now := time.Now().UTC().UnixMilli()
	var logEvents []extract.LogEvent
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		logEvents = append(logEvents, extract.LogEvent{
			ID:        fmt.Sprintf("local-%d", i),
			Timestamp: now,
			Message:   line,
		})
	}

	builder := extract.NewBuilder(logger)
	records := builder.ProcessBatch(*logGroup, "local", logEvents)

	if *endpoint == "" {
		output, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			log.Fatalf("Failed to marshal records: %v", err)
		}
		fmt.Println(string(output))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(*region))
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}

	sink := opensearch.NewClient(*endpoint, *region, awsCfg.Credentials, nil, logger)
	if err := sink.BulkIndex(ctx, records); err != nil {
		log.Fatalf("Failed to index records: %v", err)
	}

	fmt.Printf("Indexed %d records to %s\n", len(records), *endpoint)
}

// handleFunctionStatsCommand queries the per-function aggregations from
// the metric indices and prints the raw search response.
func handleFunctionStatsCommand() {
	fs := flag.NewFlagSet("function-stats", flag.ExitOnError)

	endpoint := fs.String("opensearch-endpoint", "", "OpenSearch endpoint to query (required)")
	region := fs.String("region", "us-east-1", "AWS region for request signing")
	functionName := fs.String("function", "", "Limit stats to one function name")
	window := fs.Duration("window", 24*time.Hour, "Trailing window to aggregate over")
	logLevel := fs.String("log-level", "info", "Log level")

	fs.Parse(os.Args[2:])

	if *endpoint == "" {
		fmt.Printf("function-stats command usage:\n")
		fmt.Printf("  --opensearch-endpoint string  OpenSearch endpoint to query (required)\n")
		fmt.Printf("  --region string               AWS region for request signing\n")
		fmt.Printf("  --function string             Limit stats to one function name\n")
		fmt.Printf("  --window duration             Trailing window to aggregate over\n")
		fmt.Printf("  --log-level string            Log level\n")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(*region))
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}

	client := opensearch.NewClient(*endpoint, *region, awsCfg.Credentials, nil, newLogger(*logLevel))

	now := time.Now().UTC()
	stats, err := client.FunctionStats(ctx, opensearch.StatsQuery{
		FunctionName: *functionName,
		StartTime:    now.Add(-*window),
		EndTime:      now,
	})
	if err != nil {
		log.Fatalf("Failed to query function stats: %v", err)
	}

	output, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal stats: %v", err)
	}
	fmt.Println(string(output))
}

// handleValidateConfigCommand checks a configuration file and reports the
// first problem found.
func handleValidateConfigCommand() {
	fs := flag.NewFlagSet("validate-config", flag.ExitOnError)

	configFile := fs.String("config-file", "lambda_monitor.json", "Configuration file path")

	fs.Parse(os.Args[2:])

	config, err := LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := ValidateConfig(config); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	fmt.Printf("Configuration %s is valid\n", *configFile)
	fmt.Printf("  Monitored accounts: %d\n", len(config.MonitoredAccounts))
	fmt.Printf("  Thresholds: %d\n", len(config.Alerting.Thresholds))
	fmt.Printf("  Throttle window: %ds\n", config.Alerting.ThrottleWindowSeconds)
}
