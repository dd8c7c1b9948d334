package collector

import "errors"

// Sentinel error kinds for this package.
var (
	// ErrUnresolvable means the subject cannot be scored at all. It is fatal to a run.
	ErrUnresolvable = errors.New("subject cannot be resolved")
	// ErrUnexpectedStatus is returned by the HTTP source for non-2xx answers.
	ErrUnexpectedStatus = errors.New("unexpected metrics source status")
)
