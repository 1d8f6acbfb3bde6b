// Package werrors holds the error taxonomy the worker surfaces, per
// spec §7: configuration/key errors are fatal at startup, slot overflow
// is fatal to the query that raised it, communication errors are fatal
// to the run loop, send-channel errors are logged and swallowed, and
// collaborator errors are wrapped and propagated.
package werrors

import "errors"

// Sentinel errors the caller of Run can type-switch or errors.Is on.
var (
	// ErrSlotOverflow is returned whenever period/thread arithmetic would wrap.
	ErrSlotOverflow = errors.New("slot arithmetic overflow")

	// ErrMissingKey is returned at startup when the local node index has
	// no corresponding private key in the configured roster.
	ErrMissingKey = errors.New("missing or invalid local node key")

	// ErrCommunication marks the protocol event stream as closed or failed.
	ErrCommunication = errors.New("protocol event stream failed")

	// ErrShutdown is returned to a command-channel caller whose request
	// raced Worker.Shutdown: the management channel closed before Run
	// picked up the command, so no reply will ever arrive.
	ErrShutdown = errors.New("worker is shutting down")
)

// SendChannelError wraps a failure to deliver a reply on a single-shot
// channel. It is always non-fatal: the worker logs it and keeps running.
type SendChannelError struct {
	Reason string
}

func (e *SendChannelError) Error() string {
	return "send on reply channel failed: " + e.Reason
}

// CollaboratorError wraps any error surfaced by BlockGraph, Pool or
// Storage, tagging which collaborator raised it.
type CollaboratorError struct {
	Collaborator string
	Err          error
}

func (e *CollaboratorError) Error() string {
	return e.Collaborator + ": " + e.Err.Error()
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

// Collaborator wraps err as a CollaboratorError attributed to name.
func Collaborator(name string, err error) error {
	if err == nil {
		return nil
	}
	return &CollaboratorError{Collaborator: name, Err: err}
}
