// Package loadingstreamtest provides a controllable pipeline for testing code built on loadingstream.
package loadingstreamtest

import (
	"sync"
	"sync/atomic"

	loadingstream "github.com/karupanerura/loading-stream"
)

// FakePipeline is a loadingstream.Pipeline whose fetches are completed by the test.
// It records every fetch as a Call.
type FakePipeline[V any] struct {
	mu     sync.Mutex
	cached map[string]V
	calls  []*Call[V]
	probes atomic.Int64
}

var _ loadingstream.Pipeline[struct{}] = (*FakePipeline[struct{}])(nil)

// NewFakePipeline creates a new FakePipeline with an empty memory cache.
func NewFakePipeline[V any]() *FakePipeline[V] {
	return &FakePipeline[V]{cached: map[string]V{}}
}

// SetCached stores the response for the request in the memory cache.
func (p *FakePipeline[V]) SetCached(req loadingstream.Request, v V) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cached[req.CacheKey()] = v
}

// CachedResponse returns the response stored by SetCached.
// It honors MemoryCacheOptions.ReadAllowed of the request.
func (p *FakePipeline[V]) CachedResponse(req loadingstream.Request) (v V, ok bool) {
	p.probes.Add(1)
	if !req.MemoryCacheOptions.ReadAllowed {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok = p.cached[req.CacheKey()]
	return
}

// Fetch records the fetch and returns its handle.
// The completion is called only when the test completes the call.
func (p *FakePipeline[V]) Fetch(req loadingstream.Request, completion func(loadingstream.Result[V])) loadingstream.Cancellable {
	c := &Call[V]{Request: req, completion: completion}

	p.mu.Lock()
	p.calls = append(p.calls, c)
	p.mu.Unlock()
	return loadingstream.CancellableFunc(c.cancel)
}

// Calls returns the recorded fetches in order.
func (p *FakePipeline[V]) Calls() []*Call[V] {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*Call[V](nil), p.calls...)
}

// FetchCount returns the number of fetches.
func (p *FakePipeline[V]) FetchCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

// ProbeCount returns the number of memory cache lookups.
func (p *FakePipeline[V]) ProbeCount() int {
	return int(p.probes.Load())
}

// LastCall returns the latest fetch, or nil if nothing has been fetched.
func (p *FakePipeline[V]) LastCall() *Call[V] {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.calls) == 0 {
		return nil
	}
	return p.calls[len(p.calls)-1]
}

// Call is a fetch recorded by FakePipeline.
type Call[V any] struct {
	// Request is the fetched request.
	Request loadingstream.Request

	completion func(loadingstream.Result[V])
	cancels    atomic.Int64
}

// Succeed completes the fetch with the response.
func (c *Call[V]) Succeed(v V) {
	c.Complete(loadingstream.Success(v))
}

// Fail completes the fetch with the failure.
func (c *Call[V]) Fail(err error) {
	c.Complete(loadingstream.Failure[V](err))
}

// Complete calls the completion of the fetch with the result.
// It does not prevent completing a call twice or after it is cancelled, so tests can violate the contract on purpose.
func (c *Call[V]) Complete(r loadingstream.Result[V]) {
	c.completion(r)
}

// CancelCount returns how many times the handle of the fetch has been cancelled.
func (c *Call[V]) CancelCount() int {
	return int(c.cancels.Load())
}

func (c *Call[V]) cancel() {
	c.cancels.Add(1)
}
