package errors

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// PanicError carries a recovered panic value and the stack it was raised on.
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// RecoverPanic converts a recovered panic value into an internal error. Call it
// from the deferred function so the captured stack includes the panic site.
func RecoverPanic(r interface{}) error {
	if r == nil {
		return nil
	}
	return ErrInternal.WithCause(&PanicError{Value: r, Stack: debug.Stack()})
}

// PanicStack returns the stack captured by RecoverPanic, or "" when err did not
// come from a panic.
func PanicStack(err error) string {
	var p *PanicError
	if errors.As(err, &p) {
		return string(p.Stack)
	}
	return ""
}
