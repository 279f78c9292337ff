// Package extract parses Lambda execution-report log lines into structured
// performance and error fields and derives per-invocation metrics from them.
package extract

import (
	"log/slog"
	"strconv"
	"strings"
)

// Markers recognized in execution-report lines. The parser only knows this
// fixed set of literals; it is not a general log-format grammar.
const (
	markerDuration      = "Duration:"
	markerMemoryUsed    = "Memory Used:"
	markerMaxMemoryUsed = "Max Memory Used:"
	markerInitDuration  = "Init Duration:"
)

// Error markers that flag an invocation as failed.
var errorMarkers = []string{"ERROR", "Exception", "Task timed out"}

// PerformanceMetrics holds the raw numeric fields extracted from one
// report line. Nil pointers mean the field was not present in the line;
// absence is distinct from zero.
type PerformanceMetrics struct {
	DurationMS   *float64 `json:"duration,omitempty"`
	MemoryUsedMB *int     `json:"memory_used,omitempty"`
	MaxMemoryMB  *int     `json:"max_memory,omitempty"`
	ColdStart    bool     `json:"cold_start"`
}

// ErrorInfo holds error detection results for one log message.
type ErrorInfo struct {
	HasError     bool    `json:"has_error"`
	ErrorType    *string `json:"error_type,omitempty"`
	ErrorMessage *string `json:"error_message,omitempty"`
}

// ExtractPerformance extracts duration, memory and cold-start fields from a
// raw log message. It never fails: a field whose content does not parse is
// logged at warning level and reported as absent, and extraction of the
// remaining fields continues.
func ExtractPerformance(message string, logger *slog.Logger) PerformanceMetrics {
	var metrics PerformanceMetrics

	if raw, ok := sliceBetween(message, markerDuration, "ms"); ok {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			metrics.DurationMS = &v
		} else {
			logger.Warn("failed to parse duration field",
				"value", raw,
				"error", err)
		}
	}

	if raw, ok := sliceBetween(message, markerMemoryUsed, "MB"); ok {
		if v, err := strconv.Atoi(raw); err == nil {
			metrics.MemoryUsedMB = &v
		} else {
			logger.Warn("failed to parse memory used field",
				"value", raw,
				"error", err)
		}
	}

	if raw, ok := sliceBetween(message, markerMaxMemoryUsed, "MB"); ok {
		if v, err := strconv.Atoi(raw); err == nil {
			metrics.MaxMemoryMB = &v
		} else {
			logger.Warn("failed to parse max memory field",
				"value", raw,
				"error", err)
		}
	}

	metrics.ColdStart = strings.Contains(message, markerInitDuration)

	return metrics
}

// DetectError scans a raw message for error markers. When the message also
// carries an "Exception:" marker, the error type is the last
// whitespace-delimited token before it. The error message is always the
// entire raw message, not an excerpt.
func DetectError(message string) ErrorInfo {
	var info ErrorInfo

	for _, marker := range errorMarkers {
		if strings.Contains(message, marker) {
			info.HasError = true
			break
		}
	}
	if !info.HasError {
		return info
	}

	if idx := strings.Index(message, "Exception:"); idx >= 0 {
		tokens := strings.Fields(message[:idx])
		if len(tokens) > 0 {
			errType := tokens[len(tokens)-1]
			info.ErrorType = &errType
		}
	}

	msg := message
	info.ErrorMessage = &msg

	return info
}

// sliceBetween returns the trimmed text between the first occurrence of
// marker and the next occurrence of terminator. When the terminator never
// appears, the remainder of the line is returned and left to the numeric
// parse to reject.
func sliceBetween(message, marker, terminator string) (string, bool) {
	idx := strings.Index(message, marker)
	if idx < 0 {
		return "", false
	}
	rest := message[idx+len(marker):]
	if end := strings.Index(rest, terminator); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest), true
}
