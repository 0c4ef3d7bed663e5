package loadingstream

// Cancellable is a handle of an in-flight operation that can be told to stop.
// Cancel must be idempotent.
type Cancellable interface {
	Cancel()
}

// CancellableFunc is a function type that implements the Cancellable interface.
type CancellableFunc func()

// Cancel calls the function.
func (f CancellableFunc) Cancel() {
	f()
}

// Fetcher is an interface for the callback-based loading API of an image pipeline.
// Implementations must be thread-safe.
type Fetcher[V any] interface {
	// Fetch starts loading the response for the given request and returns a handle to cancel it.
	// The completion must be called exactly once with either a success or a non-nil failure,
	// unless the returned handle is cancelled first; in that case the completion may be suppressed.
	// The handle must be returned before the completion can be observed by another goroutine.
	// The completion may be called on any goroutine, including the calling one.
	Fetch(Request, func(Result[V])) Cancellable
}

// MemoryCache is an interface for the synchronous memory cache lookup of an image pipeline.
// Implementations must be thread-safe.
type MemoryCache[V any] interface {
	// CachedResponse returns the cached response for the given request, if any.
	// It must not block and must not start any asynchronous work.
	CachedResponse(Request) (V, bool)
}

// Pipeline is an image pipeline that has both a memory cache and a fetcher.
type Pipeline[V any] interface {
	Fetcher[V]
	MemoryCache[V]
}

// Loader is an interface for loading responses as single-value streams.
type Loader[V any] interface {
	// Load returns a cold single-value stream of the response for the given request.
	Load(Request) *Single[V]
}
