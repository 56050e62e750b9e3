package device

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure in the evaluation pipeline.
type ErrorKind int

// Failure kinds surfaced to callers.
const (
	NoDeviceFound ErrorKind = iota + 1
	BuildFailure
	AllocationFailure
	ArgumentBindingFailure
	EnqueueFailure
	EventWaitFailure
	ConfigurationError
)

// String returns a human-readable name for the error kind.
func (k ErrorKind) String() string {
	switch k {
	case NoDeviceFound:
		return "no device found"
	case BuildFailure:
		return "build failure"
	case AllocationFailure:
		return "allocation failure"
	case ArgumentBindingFailure:
		return "argument binding failure"
	case EnqueueFailure:
		return "enqueue failure"
	case EventWaitFailure:
		return "event wait failure"
	case ConfigurationError:
		return "configuration error"
	default:
		return "unknown error"
	}
}

// Sentinels matched by errors.Is against any *Error of the same kind.
var (
	ErrNoDeviceFound     = errors.New(NoDeviceFound.String())
	ErrBuildFailure      = errors.New(BuildFailure.String())
	ErrAllocation        = errors.New(AllocationFailure.String())
	ErrArgumentBinding   = errors.New(ArgumentBindingFailure.String())
	ErrEnqueue           = errors.New(EnqueueFailure.String())
	ErrEventWait         = errors.New(EventWaitFailure.String())
	ErrConfiguration     = errors.New(ConfigurationError.String())
	ErrBorrowViolated    = errors.New("borrowed storage modified while in use")
	ErrReleased          = errors.New("resource already released")
	ErrHazard            = errors.New("read of a buffer with a pending writer outside the wait list")
	ErrForeignEvent      = errors.New("event belongs to another queue")
	ErrUnsupportedSource = errors.New("program source not supported by device")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case NoDeviceFound:
		return ErrNoDeviceFound
	case BuildFailure:
		return ErrBuildFailure
	case AllocationFailure:
		return ErrAllocation
	case ArgumentBindingFailure:
		return ErrArgumentBinding
	case EnqueueFailure:
		return ErrEnqueue
	case EventWaitFailure:
		return ErrEventWait
	case ConfigurationError:
		return ErrConfiguration
	default:
		return nil
	}
}

// Error is the terminal error returned by every stage of an evaluation.
type Error struct {
	Kind ErrorKind
	// Op names the failing operation (e.g. "build", "write", "dispatch").
	Op string
	// Log carries the compiler output for BuildFailure.
	Log string
	Err error
}

// Errorf creates an *Error of the given kind with a formatted cause.
func Errorf(kind ErrorKind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap creates an *Error of the given kind around err.
func Wrap(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Log != "" {
		msg += "\n" + e.Log
	}
	return msg
}

// Unwrap exposes both the kind sentinel and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s := e.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return 0
}
