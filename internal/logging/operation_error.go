package logging

import "fmt"

// OperationError records which step of an analysis failed and for which request.
type OperationError struct {
	Operation string
	RequestID string
	Err       error
}

// Error formats the operation, the request id when set, and the cause.
func (e *OperationError) Error() string {
	if e == nil || e.Err == nil {
		return ""
	}
	if e.RequestID == "" {
		return fmt.Sprintf("%s: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Operation, e.RequestID, e.Err)
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewOperationError wraps err, returning nil when err is nil so call sites
// can wrap unconditionally.
func NewOperationError(operation, requestID string, err error) error {
	if err == nil {
		return nil
	}
	return &OperationError{Operation: operation, RequestID: requestID, Err: err}
}
