package grading

import "errors"

// Error taxonomy shared by the session and the backend clients.
var (
	// ErrNetworkFailure covers transport errors and non-2xx responses.
	ErrNetworkFailure = errors.New("network failure")
	// ErrNotFound means a submission, assignment or file is absent.
	ErrNotFound = errors.New("not found")
	// ErrMalformedResponse means a response was missing required fields or could not be decoded.
	ErrMalformedResponse = errors.New("malformed response")
)
