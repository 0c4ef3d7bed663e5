package loadingstream

import (
	"context"
	"errors"

	"github.com/cilium/stream"
)

// OrEmpty returns a stream that never fails because of the fetch.
// It emits the response and completes if the single succeeds, and completes without emitting if it fails.
// Cancelling the context still disposes the underlying subscription and completes with ctx.Err().
func (s *Single[V]) OrEmpty() stream.Observable[V] {
	return stream.FuncObservable[V](func(ctx context.Context, next func(V), complete func(error)) {
		s.Observe(ctx, next, func(err error) {
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
					complete(err)
					return
				}
			}
			complete(nil)
		})
	})
}
