package pipeline

// DigitizationError is the orchestrator's terminal failure. It carries the
// best-available raw payloads from both model calls so the caller can persist
// diagnostics even when the attempt failed.
type DigitizationError struct {
	Message string
	RawOCR  string
	RawLLM  string
	Cause   error
}

func (e *DigitizationError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *DigitizationError) Unwrap() error { return e.Cause }
