package helper

import "fmt"

// Error wraps an error with the operation that failed.
// The original error stays reachable through errors.Is and errors.As.
type Error struct {
	Op  string
	Err error
}

// NewError returns err wrapped with the operation op.
// It returns nil if err is nil so it can be used directly on return values.
func NewError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
