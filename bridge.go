package loadingstream

import (
	"log/slog"
	"net/http"
	"net/url"
)

// Bridge is a Loader that adapts the callback-based API of an image pipeline into single-value streams.
type Bridge[V any] struct {
	fetcher Fetcher[V]
	cache   MemoryCache[V]
	logger  *slog.Logger
}

var _ Loader[struct{}] = (*Bridge[struct{}])(nil)

// NewBridge creates a new Bridge that loads responses with the given fetcher.
// It does not probe any memory cache unless WithMemoryCache is given.
func NewBridge[V any](fetcher Fetcher[V], opts ...Option[V]) *Bridge[V] {
	b := &Bridge[V]{
		fetcher: fetcher,
	}
	for _, opt := range opts {
		opt.apply(b)
	}
	if b.logger == nil {
		b.logger = slog.New(slog.DiscardHandler)
	}
	return b
}

// NewPipelineBridge creates a new Bridge that probes the memory cache of the pipeline
// before fetching with it.
func NewPipelineBridge[V any](p Pipeline[V], opts ...Option[V]) *Bridge[V] {
	return NewBridge[V](p, append([]Option[V]{WithMemoryCache[V](p)}, opts...)...)
}

// Option is the interface for the options of the Bridge.
type Option[V any] interface {
	apply(*Bridge[V])
}

type optionFunc[V any] func(*Bridge[V])

func (f optionFunc[V]) apply(b *Bridge[V]) {
	f(b)
}

// WithMemoryCache sets the memory cache probed before fetching.
func WithMemoryCache[V any](cache MemoryCache[V]) Option[V] {
	return optionFunc[V](func(b *Bridge[V]) {
		b.cache = cache
	})
}

// WithLogger sets the logger to the bridge.
// The default logger discards all records.
func WithLogger[V any](logger *slog.Logger) Option[V] {
	return optionFunc[V](func(b *Bridge[V]) {
		b.logger = logger
	})
}

// Load returns a cold single-value stream of the response for the given request.
//
// On each subscription the memory cache is probed first if the request allows reading it.
// On a hit the response is emitted before Subscribe returns and nothing is fetched.
// Otherwise the response is fetched and the subscription cancels the fetch when it is disposed.
// Fetch failures are delivered as is.
func (b *Bridge[V]) Load(req Request) *Single[V] {
	return NewSingle(func(complete func(Result[V])) Cancellable {
		if v, ok := b.cachedResponse(req); ok {
			b.logger.Debug("memory cache hit", slog.String("key", req.CacheKey()))
			complete(Success(v))
			return nil
		}

		b.logger.Debug("fetch started", slog.String("key", req.CacheKey()))
		h := b.fetcher.Fetch(req, complete)
		if h == nil {
			return nil
		}
		return CancellableFunc(func() {
			b.logger.Debug("fetch cancelled", slog.String("key", req.CacheKey()))
			h.Cancel()
		})
	})
}

// LoadURL returns a cold single-value stream of the response for the given URL.
// It is equivalent to Load(NewRequest(u)).
func (b *Bridge[V]) LoadURL(u *url.URL) *Single[V] {
	return b.Load(NewRequest(u))
}

// LoadHTTPRequest returns a cold single-value stream of the response for the given HTTP request.
// It is equivalent to Load(NewHTTPRequest(r)).
func (b *Bridge[V]) LoadHTTPRequest(r *http.Request) *Single[V] {
	return b.Load(NewHTTPRequest(r))
}

func (b *Bridge[V]) cachedResponse(req Request) (v V, ok bool) {
	if b.cache == nil || !req.MemoryCacheOptions.ReadAllowed {
		return
	}
	return b.cache.CachedResponse(req)
}
