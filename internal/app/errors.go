package service

import "errors"

// Sentinel error kinds for this package.
var (
	ErrInvalidSubject = errors.New("invalid subject")
	ErrNotStarted     = errors.New("service not started")
)
