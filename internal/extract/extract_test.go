package extract

import (
	"io"
	"log/slog"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestExtractPerformanceDuration(t *testing.T) {
	tests := []struct {
		name         string
		message      string
		wantPresent  bool
		wantDuration float64
	}{
		{
			"report line",
			"REPORT RequestId: abc Duration: 123.45 ms Billed Duration: 124 ms",
			true, 123.45,
		},
		{
			"integer duration",
			"REPORT Duration: 2500 ms Memory Used: 200 MB",
			true, 2500,
		},
		{
			"no marker",
			"START RequestId: abc Version: $LATEST",
			false, 0,
		},
		{
			"non-numeric content",
			"Duration: oops ms",
			false, 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractPerformance(tt.message, discardLogger())
			if (got.DurationMS != nil) != tt.wantPresent {
				t.Fatalf("DurationMS present = %v, want %v", got.DurationMS != nil, tt.wantPresent)
			}
			if tt.wantPresent && *got.DurationMS != tt.wantDuration {
				t.Errorf("DurationMS = %v, want %v", *got.DurationMS, tt.wantDuration)
			}
		})
	}
}

func TestExtractPerformanceMemory(t *testing.T) {
	message := "REPORT Duration: 102.1 ms Billed Duration: 103 ms Memory Size: 256 MB Memory Used: 64 MB Max Memory Used: 128 MB"

	got := ExtractPerformance(message, discardLogger())

	if got.MemoryUsedMB == nil || *got.MemoryUsedMB != 64 {
		t.Errorf("MemoryUsedMB = %v, want 64", got.MemoryUsedMB)
	}
	if got.MaxMemoryMB == nil || *got.MaxMemoryMB != 128 {
		t.Errorf("MaxMemoryMB = %v, want 128", got.MaxMemoryMB)
	}
}

func TestExtractPerformanceMemoryMarkerOverlap(t *testing.T) {
	// "Memory Used:" is a substring of "Max Memory Used:". When the max
	// marker appears first, first-occurrence extraction reads both fields
	// from it.
	message := "REPORT Max Memory Used: 128 MB Memory Used: 64 MB"

	got := ExtractPerformance(message, discardLogger())

	if got.MemoryUsedMB == nil || *got.MemoryUsedMB != 128 {
		t.Errorf("MemoryUsedMB = %v, want 128", got.MemoryUsedMB)
	}
	if got.MaxMemoryMB == nil || *got.MaxMemoryMB != 128 {
		t.Errorf("MaxMemoryMB = %v, want 128", got.MaxMemoryMB)
	}
}

func TestExtractPerformanceColdStart(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    bool
	}{
		{"with init duration", "REPORT Duration: 50 ms Init Duration: 135.2 ms", true},
		{"without init duration", "REPORT Duration: 50 ms", false},
		{"plain line", "processing request", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractPerformance(tt.message, discardLogger())
			if got.ColdStart != tt.want {
				t.Errorf("ColdStart = %v, want %v", got.ColdStart, tt.want)
			}
		})
	}
}

func TestExtractPerformancePartialFailure(t *testing.T) {
	// A bad memory field must not abort extraction of the other fields.
	message := "REPORT Duration: 99.9 ms Memory Used: garbage MB Max Memory Used: 128 MB"

	got := ExtractPerformance(message, discardLogger())

	if got.DurationMS == nil || *got.DurationMS != 99.9 {
		t.Errorf("DurationMS = %v, want 99.9", got.DurationMS)
	}
	if got.MemoryUsedMB != nil {
		t.Errorf("MemoryUsedMB = %v, want absent", *got.MemoryUsedMB)
	}
	if got.MaxMemoryMB == nil || *got.MaxMemoryMB != 128 {
		t.Errorf("MaxMemoryMB = %v, want 128", got.MaxMemoryMB)
	}
}

func TestDetectError(t *testing.T) {
	tests := []struct {
		name         string
		message      string
		wantHasError bool
		wantType     string
	}{
		{"error marker", "ERROR something broke", true, ""},
		{"timeout marker", "2026-08-23 Task timed out after 3.00 seconds", true, ""},
		{"exception with type", "Unhandled ValueError Exception: bad input", true, "ValueError"},
		{"plain line", "request handled successfully", false, ""},
		{"lowercase error", "error: not a marker", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectError(tt.message)
			if got.HasError != tt.wantHasError {
				t.Fatalf("HasError = %v, want %v", got.HasError, tt.wantHasError)
			}
			if tt.wantType == "" {
				if got.ErrorType != nil {
					t.Errorf("ErrorType = %v, want absent", *got.ErrorType)
				}
			} else if got.ErrorType == nil || *got.ErrorType != tt.wantType {
				t.Errorf("ErrorType = %v, want %s", got.ErrorType, tt.wantType)
			}
			if tt.wantHasError {
				if got.ErrorMessage == nil || *got.ErrorMessage != tt.message {
					t.Errorf("ErrorMessage = %v, want full raw message", got.ErrorMessage)
				}
			}
		})
	}
}

func TestExtractIdempotence(t *testing.T) {
	message := "REPORT Duration: 321.5 ms Memory Used: 100 MB Max Memory Used: 128 MB Init Duration: 200 ms"

	first := ExtractPerformance(message, discardLogger())
	second := ExtractPerformance(message, discardLogger())

	if *first.DurationMS != *second.DurationMS ||
		*first.MemoryUsedMB != *second.MemoryUsedMB ||
		*first.MaxMemoryMB != *second.MaxMemoryMB ||
		first.ColdStart != second.ColdStart {
		t.Errorf("repeated extraction diverged: %+v vs %+v", first, second)
	}
}
