package bridge

import (
	"errors"
	"fmt"

	"github.com/tliron/commonlog"
)

var (
	// ErrNotFound reports a dotted name that does not resolve.
	ErrNotFound = errors.New("name not found")
	// ErrNotCallable reports a resolved value that cannot be invoked.
	ErrNotCallable = errors.New("value is not callable")
	// ErrConversion reports a value that cannot cross the marshaling boundary.
	ErrConversion = errors.New("conversion failed")
	// ErrScript reports an error raised by the scripting runtime.
	ErrScript = errors.New("script error")
	// ErrStaleHandle reports access through a wrapper whose native object
	// has been destroyed or released.
	ErrStaleHandle = errors.New("stale handle")
	// ErrUnwrappable reports a foreign pointer no wrapper factory accepts.
	ErrUnwrappable = errors.New("no wrapper available")
	// ErrUnrelatedType reports a pointer whose runtime class does not derive
	// from the declared class.
	ErrUnrelatedType = errors.New("runtime type unrelated to declared type")
	// ErrNoSuchSignal reports an unknown signal name.
	ErrNoSuchSignal = errors.New("no such signal")
)

// ErrorSink receives script errors discharged by the error bridge.
type ErrorSink interface {
	ScriptError(err error)
}

// ErrorSinkFunc adapts a function to ErrorSink.
type ErrorSinkFunc func(err error)

func (f ErrorSinkFunc) ScriptError(err error) { f(err) }

type logSink struct {
	log commonlog.Logger
}

func (s logSink) ScriptError(err error) {
	s.log.Errorf("%s", err)
}

// ---------------------------------------------------------------------------
// errorState: the runtime's pending error
// ---------------------------------------------------------------------------

// errorState holds at most one pending runtime error. Components record
// failures with raise and discharge them through the Bridge's
// CheckAndClearError.
type errorState struct {
	pending error
	sink    ErrorSink
}

func (e *errorState) raise(err error) {
	if err != nil {
		e.pending = err
	}
}

func (e *errorState) checkAndClear() bool {
	if e.pending == nil {
		return false
	}
	err := e.pending
	e.pending = nil
	e.sink.ScriptError(err)
	return true
}

// CheckAndClearError reports and clears a pending script error. It returns
// false when no error is pending.
func (b *Bridge) CheckAndClearError() bool {
	return b.errs.checkAndClear()
}

// fail records err as the pending runtime error, discharges it and returns
// it wrapped in ErrScript for the caller.
func (b *Bridge) fail(err error) error {
	b.errs.raise(err)
	b.CheckAndClearError()
	return fmt.Errorf("%w: %w", ErrScript, err)
}
