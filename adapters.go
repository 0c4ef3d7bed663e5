package loadingstream

import (
	"sync/atomic"
)

// FunctionsPipeline is a Pipeline that uses functions to fetch and to probe the memory cache.
type FunctionsPipeline[V any] struct {
	// FetchFunc starts loading the response for the request.
	// It must follow the contract of Fetcher.Fetch.
	FetchFunc func(Request, func(Result[V])) Cancellable

	// CachedResponseFunc returns the cached response for the request, if any.
	// If nil, the memory cache always misses.
	CachedResponseFunc func(Request) (V, bool)
}

var _ Pipeline[struct{}] = (*FunctionsPipeline[struct{}])(nil)

// Fetch calls the FetchFunc function.
func (p *FunctionsPipeline[V]) Fetch(req Request, completion func(Result[V])) Cancellable {
	return p.FetchFunc(req, completion)
}

// CachedResponse calls the CachedResponseFunc function.
func (p *FunctionsPipeline[V]) CachedResponse(req Request) (v V, ok bool) {
	if p.CachedResponseFunc == nil {
		return
	}
	return p.CachedResponseFunc(req)
}

// LintFetcher is a fetcher that is used for linting purposes.
// It uses a fetcher to load the responses.
type LintFetcher[V any] struct {
	Fetcher Fetcher[V]
}

var _ Fetcher[struct{}] = (*LintFetcher[struct{}])(nil)

// Fetch starts loading the response with the underlying fetcher.
// It validates the behavior of the fetcher implementation, ensuring it properly follows the Fetcher contract.
// In particular, it checks that a handle is returned and the completion is called at most once.
func (f *LintFetcher[V]) Fetch(req Request, completion func(Result[V])) Cancellable {
	var called atomic.Bool
	h := f.Fetcher.Fetch(req, func(r Result[V]) {
		if !called.CompareAndSwap(false, true) {
			panic("completion is called more than once")
		}
		if !r.ok && r.err == nil {
			panic("completion is called with neither a response nor a failure")
		}
		completion(r)
	})
	if h == nil {
		panic("missing cancellable handle")
	}
	return h
}
