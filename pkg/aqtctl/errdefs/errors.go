package errdefs

import (
	"errors"
	"fmt"
)

var (
	// ErrTokenValidation reports a token that failed signature, issuer,
	// audience or expiry checks.
	ErrTokenValidation = errors.New("token validation failed")
	// ErrAuthentication reports that the identity provider rejected an
	// authentication attempt.
	ErrAuthentication = errors.New("authentication failed")
	// ErrNotAuthenticated reports that no usable token could be resolved or
	// that the API rejected the token.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrRequest is the transient, network level failure kind.
	ErrRequest = errors.New("request failed")
	// ErrJobNotFound is returned when the API has no job with the given ID.
	ErrJobNotFound = errors.New("job not found")
	// ErrJobExpired is returned when the job's results are no longer kept.
	ErrJobExpired = errors.New("job expired")
	// ErrInvalidJobID is returned when the API rejects the job ID.
	ErrInvalidJobID = errors.New("invalid job id")
	// ErrUnknownServer covers 5xx responses.
	ErrUnknownServer = errors.New("unknown server error")
	// ErrTimeout is returned when polling exhausted its attempt budget.
	ErrTimeout = errors.New("timed out")
)

// RequestError wraps a network failure. It is the only error kind the job
// polling loop recovers from.
type RequestError struct {
	Err error
}

func (e *RequestError) Error() string {
	if e.Err == nil {
		return ErrRequest.Error()
	}
	return e.Err.Error()
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

func (e *RequestError) Is(target error) bool {
	return target == ErrRequest
}

// NewRequestError wraps err as a transient request failure.
func NewRequestError(err error) error {
	return &RequestError{Err: err}
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrRequest)
}

// TimeoutError carries the number of attempts made before giving up.
type TimeoutError struct {
	Attempts int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out after %d attempts waiting for job to finish", e.Attempts)
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}
