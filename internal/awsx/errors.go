// Package awsx provides AWS API error classification helpers used when
// recording per-account collection failures.
package awsx

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

// ErrorCode extracts the service error code from an AWS SDK error, or
// returns the empty string for non-API errors.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}

	return ""
}

// IsThrottling reports whether an error is an API throttling error.
// Throttled accounts are recorded as failed for this cycle; the next
// scheduled cycle is the retry mechanism.
func IsThrottling(err error) bool {
	switch ErrorCode(err) {
	case "Throttling",
		"ThrottlingException",
		"TooManyRequestsException",
		"RequestLimitExceeded":
		return true
	}
	return false
}

// IsAccessDenied reports whether an error is an authorization failure,
// typically a missing or misconfigured monitoring role in the target
// account.
func IsAccessDenied(err error) bool {
	switch ErrorCode(err) {
	case "AccessDenied",
		"AccessDeniedException",
		"UnauthorizedOperation",
		"ExpiredToken":
		return true
	}
	return false
}

// Describe renders an AWS error as a compact diagnostic string for
// failure markers and logs.
func Describe(err error) string {
	if err == nil {
		return ""
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("[%s] %s", apiErr.ErrorCode(), apiErr.ErrorMessage())
	}

	return err.Error()
}
