package review

import (
	"errors"
	"fmt"
)

// ErrConnection marks transport-level failures reaching the review API
// (DNS, timeout, connection reset). Wrapped with the underlying cause.
var ErrConnection = errors.New("review api unreachable")

// StatusError reports a non-200 answer from the review API.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("review api returned status %d", e.Code)
}

// ShapeError reports a response body that fails structural validation:
// wrong type, missing key, or a non-list homeworks value.
type ShapeError struct {
	Reason string
}

func (e *ShapeError) Error() string {
	return "unexpected response shape: " + e.Reason
}

// UnknownStatusError reports a homework status outside the known set.
// This is a hard stop: an unrecognized code likely means the API contract
// changed under us.
type UnknownStatusError struct {
	Status string
}

func (e *UnknownStatusError) Error() string {
	return fmt.Sprintf("unknown homework status %q", e.Status)
}
