package extract

import (
	"encoding/json"
	"log/slog"
	"strings"
	"time"
)

// timestampLayout renders record timestamps as ISO-8601 UTC with
// millisecond precision, matching the index's date mapping.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// LogEvent is one entry of an already-decoded CloudWatch Logs batch.
// Immutable; the outer transport envelope is decoded by the caller.
type LogEvent struct {
	ID        string
	Timestamp int64 // milliseconds since epoch
	Message   string
}

// MetricRecord is the immutable per-invocation document emitted for each
// log line, composed of source coordinates, the raw and structured
// message, and the extracted and derived metric fields.
type MetricRecord struct {
	Timestamp    string      `json:"timestamp"`
	FunctionName string      `json:"function_name"`
	LogGroup     string      `json:"log_group"`
	LogStream    string      `json:"log_stream"`
	Message      interface{} `json:"message"`
	RawMessage   string      `json:"raw_message"`

	PerformanceMetrics
	ErrorInfo
	Derived
}

// Builder composes metric records from log events. The logger is injected
// so field-level parse warnings surface through the caller's handler.
type Builder struct {
	logger *slog.Logger
}

// NewBuilder creates a record builder.
func NewBuilder(logger *slog.Logger) *Builder {
	return &Builder{logger: logger}
}

// BuildRecord processes one log event into a metric record. Extraction is
// best-effort and idempotent: re-running it on the same message yields
// identical field values.
func (b *Builder) BuildRecord(logGroup, logStream string, event LogEvent) MetricRecord {
	record := MetricRecord{
		Timestamp:    time.UnixMilli(event.Timestamp).UTC().Format(timestampLayout),
		FunctionName: functionNameFromLogGroup(logGroup),
		LogGroup:     logGroup,
		LogStream:    logStream,
		Message:      parseMessagePayload(event.Message),
		RawMessage:   event.Message,
	}

	record.PerformanceMetrics = ExtractPerformance(event.Message, b.logger)
	record.ErrorInfo = DetectError(event.Message)
	record.Derived = Derive(record.PerformanceMetrics, record.ErrorInfo)

	return record
}

// ProcessBatch processes every event of one batch. A record that fails to
// process is logged at error level and replaced with a placeholder so the
// output count always matches the input count.
func (b *Builder) ProcessBatch(logGroup, logStream string, events []LogEvent) []MetricRecord {
	records := make([]MetricRecord, 0, len(events))
	for _, event := range events {
		records = append(records, b.buildSafe(logGroup, logStream, event))
	}
	return records
}

// buildSafe shields batch processing from a single bad record.
func (b *Builder) buildSafe(logGroup, logStream string, event LogEvent) (record MetricRecord) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("failed to process log event",
				"event_id", event.ID,
				"log_group", logGroup,
				"panic", r)
			record = MetricRecord{
				Timestamp:    time.UnixMilli(event.Timestamp).UTC().Format(timestampLayout),
				FunctionName: functionNameFromLogGroup(logGroup),
				LogGroup:     logGroup,
				LogStream:    logStream,
				Derived:      Derived{HealthScore: healthBase},
			}
		}
	}()
	return b.BuildRecord(logGroup, logStream, event)
}

// parseMessagePayload returns the message parsed as JSON when possible,
// otherwise the raw text under a fallback key.
func parseMessagePayload(message string) interface{} {
	var payload interface{}
	if err := json.Unmarshal([]byte(message), &payload); err == nil {
		return payload
	}
	return map[string]interface{}{"raw_message": message}
}

// functionNameFromLogGroup extracts the function name as the last path
// segment of the log group (e.g. /aws/lambda/billing-worker).
func functionNameFromLogGroup(logGroup string) string {
	parts := strings.Split(logGroup, "/")
	return parts[len(parts)-1]
}
