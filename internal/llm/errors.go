package llm

import (
	"fmt"
	"strings"
)

// Stage names the gateway call a failure belongs to.
type Stage string

const (
	StageOCR         Stage = "ocr"
	StageStructuring Stage = "structuring"
)

// StatusTransport marks request failures that never produced an HTTP status:
// network errors and timeouts.
const StatusTransport = 0

// RequestError is a transport-level or non-2xx failure from the model gateway.
// Raw carries whatever response text was available.
type RequestError struct {
	Stage  Stage
	Status int
	Raw    string
	Cause  error
}

func (e *RequestError) Error() string {
	if e.Status == StatusTransport {
		return fmt.Sprintf("%s request failed: %v", e.Stage, e.Cause)
	}
	return fmt.Sprintf("%s request failed: status %d", e.Stage, e.Status)
}

func (e *RequestError) Unwrap() error { return e.Cause }

// Transient reports whether a second attempt is worthwhile: server-side errors
// and rate limiting only. Transport failures and 4xx are not retried.
func (e *RequestError) Transient() bool {
	return e.Status >= 500 || e.Status == 429
}

// EmptyResponseError means the gateway call completed but returned no usable choice.
type EmptyResponseError struct {
	Stage Stage
	Raw   string
}

func (e *EmptyResponseError) Error() string {
	return fmt.Sprintf("%s response contained no usable choice", e.Stage)
}

// ParseError means model content could not be recovered as JSON even after
// stripping wrapping text. Cause is the original direct-parse error.
type ParseError struct {
	Cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("content is not recoverable JSON: %v", e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// ValidationError means recovered JSON does not satisfy the target schema.
// Paths lists the offending instance locations, for diagnosing model drift.
type ValidationError struct {
	Paths []string
	Cause error
}

func (e *ValidationError) Error() string {
	if len(e.Paths) == 0 {
		return fmt.Sprintf("schema validation failed: %v", e.Cause)
	}
	return fmt.Sprintf("schema validation failed at %s: %v", strings.Join(e.Paths, ", "), e.Cause)
}

func (e *ValidationError) Unwrap() error { return e.Cause }
