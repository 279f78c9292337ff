package awsx

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aws/smithy-go"
)

func TestErrorCode(t *testing.T) {
	apiErr := &smithy.GenericAPIError{Code: "ThrottlingException", Message: "rate exceeded"}

	if got := ErrorCode(apiErr); got != "ThrottlingException" {
		t.Errorf("ErrorCode() = %s, want ThrottlingException", got)
	}
	if got := ErrorCode(fmt.Errorf("wrapped: %w", apiErr)); got != "ThrottlingException" {
		t.Errorf("ErrorCode() on wrapped error = %s, want ThrottlingException", got)
	}
	if got := ErrorCode(errors.New("plain")); got != "" {
		t.Errorf("ErrorCode() on plain error = %s, want empty", got)
	}
	if got := ErrorCode(nil); got != "" {
		t.Errorf("ErrorCode(nil) = %s, want empty", got)
	}
}

func TestIsThrottling(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"Throttling", true},
		{"ThrottlingException", true},
		{"TooManyRequestsException", true},
		{"AccessDenied", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			var err error
			if tt.code != "" {
				err = &smithy.GenericAPIError{Code: tt.code}
			} else {
				err = errors.New("plain")
			}
			if got := IsThrottling(err); got != tt.want {
				t.Errorf("IsThrottling(%s) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestIsAccessDenied(t *testing.T) {
	denied := &smithy.GenericAPIError{Code: "AccessDenied", Message: "not authorized"}
	if !IsAccessDenied(denied) {
		t.Error("IsAccessDenied() = false for AccessDenied")
	}
	if IsAccessDenied(errors.New("network down")) {
		t.Error("IsAccessDenied() = true for plain error")
	}
}

func TestDescribe(t *testing.T) {
	apiErr := &smithy.GenericAPIError{Code: "AccessDenied", Message: "not authorized"}
	if got := Describe(apiErr); got != "[AccessDenied] not authorized" {
		t.Errorf("Describe() = %s", got)
	}
	if got := Describe(errors.New("dial timeout")); got != "dial timeout" {
		t.Errorf("Describe() = %s", got)
	}
}
