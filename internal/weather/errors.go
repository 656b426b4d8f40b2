package weather

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/i474232898/pws-history/internal/common"
)

var (
	// ErrValidation is returned for malformed or missing station/date input.
	ErrValidation = errors.New("validation error")
	// ErrMalformedResponse is returned when an upstream payload is unusable as a whole.
	ErrMalformedResponse = errors.New("malformed upstream response")
	// ErrNetwork wraps transport-level failures: timeouts, DNS, resets, open breaker.
	ErrNetwork = errors.New("network error")
)

// ErrorClass is the coarse category reported to API clients.
type ErrorClass string

const (
	ClassValidation        ErrorClass = "validation"
	ClassUpstreamHTTP      ErrorClass = "upstream-http"
	ClassNetwork           ErrorClass = "network"
	ClassMalformedResponse ErrorClass = "malformed-response"
	ClassInternal          ErrorClass = "internal"
)

// UpstreamHTTPError is returned when the provider answers with a non-success status.
type UpstreamHTTPError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamHTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("upstream returned HTTP %d: %s", e.StatusCode, e.Body)
}

// DayError identifies the day whose fetch failed during a range retrieval.
type DayError struct {
	Date time.Time
	Err  error
}

func (e *DayError) Error() string {
	return fmt.Sprintf("fetch %s: %v", common.CompactDate(e.Date), e.Err)
}

func (e *DayError) Unwrap() error {
	return e.Err
}

// ClassOf maps an error chain onto its ErrorClass.
func ClassOf(err error) ErrorClass {
	var httpErr *UpstreamHTTPError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation), errors.Is(err, common.ErrInvalidDate):
		return ClassValidation
	case errors.As(err, &httpErr):
		return ClassUpstreamHTTP
	case errors.Is(err, ErrMalformedResponse):
		return ClassMalformedResponse
	case errors.Is(err, ErrNetwork), errors.Is(err, context.DeadlineExceeded):
		return ClassNetwork
	default:
		return ClassInternal
	}
}
