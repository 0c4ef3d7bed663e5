package loadingstream

import "errors"

// ErrOperationFailed is reported when a fetch completes with neither a response nor a failure.
var ErrOperationFailed = errors.New("operation failed")

// Result is the outcome of a fetch: either a response or a failure.
// The zero value holds neither and reports ErrOperationFailed.
type Result[V any] struct {
	value V
	err   error
	ok    bool
}

// Success returns a successful result with the given response.
func Success[V any](v V) Result[V] {
	return Result[V]{value: v, ok: true}
}

// Failure returns a failed result with the given error.
// A nil error is treated as ErrOperationFailed.
func Failure[V any](err error) Result[V] {
	return Result[V]{err: err}
}

// Get returns the response or the failure.
// The failure is returned as is, without wrapping.
func (r Result[V]) Get() (V, error) {
	if r.ok {
		return r.value, nil
	}
	var zero V
	if r.err == nil {
		return zero, ErrOperationFailed
	}
	return zero, r.err
}

// IsSuccess reports whether the result holds a response.
func (r Result[V]) IsSuccess() bool {
	return r.ok
}
