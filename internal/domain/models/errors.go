package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for the sync core. Callers test with errors.Is.
var (
	// ErrValidation marks bad input (range, mode, granularity). Never retried.
	ErrValidation = errors.New("validation")

	// ErrOperationFailed marks a sync that obtained zero fresh segments when
	// the loading mode required fresh data.
	ErrOperationFailed = errors.New("operation failed")

	// ErrCancelled marks an explicit cancellation, distinct from failure.
	ErrCancelled = errors.New("cancelled")
)

// FetchError is the provider's error envelope: a numeric code plus free-form
// message. The same code is reused by the provider for several unrelated
// conditions, so classification needs the request context too.
type FetchError struct {
	Code    int
	Message string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

// AsFetchError unwraps err to a *FetchError if there is one in the chain.
func AsFetchError(err error) (*FetchError, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
