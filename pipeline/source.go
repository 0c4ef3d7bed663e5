package pipeline

import (
	"context"

	loadingstream "github.com/karupanerura/loading-stream"
)

// Source is an interface for loading a response from its origin.
// Implementations must be thread-safe.
type Source[V any] interface {
	// Load loads the response for the request.
	// It should return promptly with an error once the context is done.
	Load(context.Context, loadingstream.Request) (V, error)
}

// SourceFunc is a function type that implements the Source interface.
type SourceFunc[V any] func(context.Context, loadingstream.Request) (V, error)

var _ Source[struct{}] = (SourceFunc[struct{}])(nil)

// Load calls the function.
func (f SourceFunc[V]) Load(ctx context.Context, req loadingstream.Request) (V, error) {
	return f(ctx, req)
}
