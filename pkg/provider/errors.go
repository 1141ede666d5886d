package provider

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrAuthentication = errors.New("authentication error")
	ErrRateLimit      = errors.New("rate limit error")
	ErrProvider       = errors.New("provider error")
)

const unknownErrorMessage = "Unknown error occurred"

// Error carries a classified provider failure. Kind is one of the exported
// sentinels; StatusCode is zero when no HTTP response was received.
type Error struct {
	Kind       error
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = unknownErrorMessage
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%v (%d): %s", e.Kind, e.StatusCode, msg)
	}
	return fmt.Sprintf("%v: %s", e.Kind, msg)
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// StatusCode reports the HTTP status attached to err, or zero.
func StatusCode(err error) int {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.StatusCode
	}
	return 0
}

func classifyStatus(status int, message string) *Error {
	switch status {
	case http.StatusUnauthorized:
		return &Error{Kind: ErrAuthentication, StatusCode: status, Message: "Authentication failed: " + message}
	case http.StatusTooManyRequests:
		return &Error{Kind: ErrRateLimit, StatusCode: status, Message: "Rate limit exceeded: " + message}
	default:
		return &Error{Kind: ErrProvider, StatusCode: status, Message: "API request failed: " + message}
	}
}
