package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	loadingstream "github.com/karupanerura/loading-stream"
	"github.com/karupanerura/loading-stream/internal/panicutil"
	"github.com/sourcegraph/conc/panics"
	"golang.org/x/sync/semaphore"
)

// ErrSourceGoexit is delivered to the fetches of a load whose source called runtime.Goexit.
var ErrSourceGoexit = errors.New("source called runtime.Goexit")

// Pipeline is an image pipeline that loads responses from a Source and keeps them in memory.
type Pipeline[V any] struct {
	source  Source[V]
	cache   *memoryCache[string, V]
	sem     *semaphore.Weighted
	context func() context.Context
	logger  *slog.Logger

	mu      sync.Mutex
	flights map[string]*flight[V]
}

var _ loadingstream.Pipeline[struct{}] = (*Pipeline[struct{}])(nil)

// flight is a load shared by the fetches of the same cache key.
type flight[V any] struct {
	cancel  context.CancelFunc
	waiters map[*waiter[V]]struct{}

	// write is set when any fetch of the flight allows writing the memory cache.
	write bool
}

type waiter[V any] struct {
	completion func(loadingstream.Result[V])
}

// New creates a new Pipeline that loads responses from the given source.
func New[V any](source Source[V], opts ...Option) *Pipeline[V] {
	o := defaultOptions()
	for _, opt := range opts {
		opt.apply(&o)
	}

	p := &Pipeline[V]{
		source:  source,
		cache:   newMemoryCache[string, V](&o),
		context: o.context,
		logger:  o.logger,
		flights: map[string]*flight[V]{},
	}
	if o.maxConcurrentLoads > 0 {
		p.sem = semaphore.NewWeighted(o.maxConcurrentLoads)
	}
	return p
}

// CachedResponse returns the response kept in the memory cache, if the request allows reading it.
func (p *Pipeline[V]) CachedResponse(req loadingstream.Request) (v V, ok bool) {
	if !req.MemoryCacheOptions.ReadAllowed {
		return
	}
	return p.cache.get(req.CacheKey())
}

// Fetch starts loading the response for the request and calls the completion with the result on another goroutine.
// If a load of the same cache key is in flight, the fetch joins it.
// Cancelling the returned handle detaches this fetch only; the load is cancelled once no fetch is waiting for it.
func (p *Pipeline[V]) Fetch(req loadingstream.Request, completion func(loadingstream.Result[V])) loadingstream.Cancellable {
	key := req.CacheKey()
	w := &waiter[V]{completion: completion}

	p.mu.Lock()
	f, ok := p.flights[key]
	if ok {
		p.logger.Debug("joined in-flight load", slog.String("key", key))
	} else {
		ctx, cancel := context.WithCancel(p.context())
		f = &flight[V]{cancel: cancel, waiters: map[*waiter[V]]struct{}{}}
		p.flights[key] = f
		go p.load(ctx, key, req, f)
	}
	f.waiters[w] = struct{}{}
	f.write = f.write || req.MemoryCacheOptions.WriteAllowed
	p.mu.Unlock()

	return loadingstream.CancellableFunc(func() {
		p.detach(key, f, w)
	})
}

func (p *Pipeline[V]) detach(key string, f *flight[V], w *waiter[V]) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := f.waiters[w]; !ok {
		// already completed or detached
		return
	}
	delete(f.waiters, w)
	if len(f.waiters) != 0 {
		return
	}

	f.cancel()
	if p.flights[key] == f {
		delete(p.flights, key)
	}
	p.logger.Debug("load cancelled", slog.String("key", key))
}

func (p *Pipeline[V]) load(ctx context.Context, key string, req loadingstream.Request, f *flight[V]) {
	defer f.cancel()

	if p.sem != nil {
		if err := p.sem.Acquire(ctx, 1); err != nil {
			p.finish(key, f, loadingstream.Failure[V](err))
			return
		}
		defer p.sem.Release(1)
	}

	begin := time.Now()
	v, err := panicutil.Call(func() (V, error) {
		return p.source.Load(ctx, req)
	}, func() {
		p.finish(key, f, loadingstream.Failure[V](ErrSourceGoexit))
	})
	if err != nil {
		var recovered *panics.ErrRecovered
		if errors.As(err, &recovered) {
			p.logger.Error("source panicked", slog.String("key", key), slog.Any("error", err))
		} else {
			p.logger.Debug("load failed", slog.String("key", key), slog.Any("error", err))
		}
		p.finish(key, f, loadingstream.Failure[V](err))
		return
	}

	p.logger.Debug("load succeeded", slog.String("key", key), slog.Duration("elapsed", time.Since(begin)))
	p.finish(key, f, loadingstream.Success(v))
}

// finish stores a successful result if any fetch of the flight allows it,
// and delivers the result to the fetches still waiting for the load.
func (p *Pipeline[V]) finish(key string, f *flight[V], r loadingstream.Result[V]) {
	p.mu.Lock()
	if p.flights[key] == f {
		delete(p.flights, key)
	}
	if v, err := r.Get(); err == nil && f.write {
		p.cache.set(key, v)
	}
	waiters := f.waiters
	f.waiters = nil
	p.mu.Unlock()

	for w := range waiters {
		w.completion(r)
	}
}

// Invalidate removes the cached response of the request.
func (p *Pipeline[V]) Invalidate(req loadingstream.Request) {
	p.cache.remove(req.CacheKey())
}

// RemoveAll removes all the cached responses.
func (p *Pipeline[V]) RemoveAll() {
	p.cache.removeAll()
}

// PurgeExpired removes the expired responses from the memory cache and returns how many were removed.
func (p *Pipeline[V]) PurgeExpired() int {
	n := p.cache.purgeExpired()
	if n > 0 {
		p.logger.Debug("purged expired responses", slog.Int("count", n))
	}
	return n
}
