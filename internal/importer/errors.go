package importer

import "errors"

var (
	// ErrJobActive is the admission-control rejection: a mapping job is
	// already queued or running for the file.
	ErrJobActive = errors.New("a mapping job is already running for this file")

	// ErrMutationInFlight rejects a second mutating operation while one
	// is still outstanding for the same file.
	ErrMutationInFlight = errors.New("another operation is still in progress for this file")

	// ErrNoFile means no file has been loaded into the controller yet.
	ErrNoFile = errors.New("no file loaded")

	// ErrNoThread rejects conversation calls before Start succeeded.
	ErrNoThread = errors.New("no interactive thread is active")

	// ErrTurnInFlight rejects a Send while a prior turn is outstanding.
	ErrTurnInFlight = errors.New("a conversation turn is already in flight")

	// ErrCannotExecute rejects Execute while the assistant has not
	// produced an executable plan.
	ErrCannotExecute = errors.New("the assistant has not produced an executable plan yet")

	// ErrRecoveryExhausted means automatic recovery ran and still failed.
	ErrRecoveryExhausted = errors.New("automatic recovery failed")
)
