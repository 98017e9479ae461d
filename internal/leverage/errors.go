package leverage

import "fmt"

// ValidationError reports malformed input to Query. It is returned to the
// caller immediately and never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("leverage: invalid %s: %s", e.Field, e.Reason)
}

// UpstreamError reports a failing collaborator (the embedding provider).
// The pipeline does not retry; retry policy belongs to the caller.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("leverage: %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
