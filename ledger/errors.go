package ledger

import "fmt"

// ValidationError reports caller-supplied input that fails allocation
// rules. It is always returned before any state is touched.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationErrorf(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
