package compute

import (
	"errors"
	"fmt"
)

// Package errors. Pipeline stages wrap these with fmt.Errorf("...: %w")
// so callers can classify failures with errors.Is.
var (
	// ErrNoBackend is returned when no HAL backend is registered for the
	// requested API. Backends register through blank imports.
	ErrNoBackend = errors.New("compute: no GPU backend available")

	// ErrNoAdapter is returned when the instance enumerates zero adapters.
	ErrNoAdapter = errors.New("compute: no GPU adapters found")

	// ErrDeviceOpen is returned when the selected adapter refuses to
	// open a device.
	ErrDeviceOpen = errors.New("compute: device open failed")

	// ErrContextClosed is returned when an operation is attempted on a
	// closed device context.
	ErrContextClosed = errors.New("compute: device context closed")

	// ErrEntryPointNotFound is returned when the kernel source does not
	// declare the requested compute entry point.
	ErrEntryPointNotFound = errors.New("compute: entry point not found")

	// ErrInvalidElementCount is returned for negative element counts or
	// counts whose buffer size would exceed the device limit.
	ErrInvalidElementCount = errors.New("compute: invalid element count")

	// ErrArgumentMismatch is returned when a buffer set disagrees with
	// the kernel's argument signature in role, element type, or length.
	ErrArgumentMismatch = errors.New("compute: buffer does not match kernel signature")

	// ErrSequenceConsumed is returned when a one-shot command sequence
	// is reused after submission or release.
	ErrSequenceConsumed = errors.New("compute: command sequence already consumed")

	// ErrSequenceState is returned when a sequence operation is called
	// out of order, such as dispatching before binding buffers.
	ErrSequenceState = errors.New("compute: invalid command sequence state")

	// ErrWaitTimeout is returned when the completion fence does not
	// signal within the wait deadline.
	ErrWaitTimeout = errors.New("compute: timed out waiting for GPU")
)

// CompilationError reports a kernel that failed to compile. It carries
// the kernel name and the compiler diagnostics so the failing construct
// can be located in the source.
type CompilationError struct {
	Kernel     string
	Diagnostic string
	Err        error
}

func (e *CompilationError) Error() string {
	if e.Diagnostic != "" {
		return fmt.Sprintf("compute: kernel %q failed to compile: %s", e.Kernel, e.Diagnostic)
	}
	return fmt.Sprintf("compute: kernel %q failed to compile: %v", e.Kernel, e.Err)
}

func (e *CompilationError) Unwrap() error { return e.Err }
