package loadingstream

import (
	"context"
	"sync/atomic"

	"github.com/cilium/stream"
)

// Single is a cold stream that terminates with exactly one response or exactly one error.
// No work begins until it is subscribed, and each subscription runs independently.
type Single[V any] struct {
	subscribe func(complete func(Result[V])) Cancellable
}

var _ stream.Observable[struct{}] = (*Single[struct{}])(nil)

// NewSingle creates a Single from the given subscribe function.
// The subscribe function is called once per subscription with the completion of that subscription,
// and returns a handle to cancel the started work, or nil when nothing needs to be cancelled.
// Calls of the completion after the first one, or after the subscription is disposed, are ignored.
func NewSingle[V any](subscribe func(complete func(Result[V])) Cancellable) *Single[V] {
	return &Single[V]{subscribe: subscribe}
}

// Disposable represents a consumer's interest in a subscription.
type Disposable interface {
	// Dispose cancels the subscription.
	// No event is delivered after it returns. It is safe to call it multiple times,
	// and it is a no-op after the subscription is terminated.
	Dispose()
}

const (
	stateActive int32 = iota
	stateTerminated
	stateDisposed
)

type subscription[V any] struct {
	state     atomic.Int32
	handle    atomic.Pointer[Cancellable]
	cancelled atomic.Bool
	onSuccess func(V)
	onError   func(error)
}

var _ Disposable = (*subscription[struct{}])(nil)

// complete delivers the first terminal event and drops the rest.
func (s *subscription[V]) complete(r Result[V]) {
	if !s.state.CompareAndSwap(stateActive, stateTerminated) {
		return
	}
	v, err := r.Get()
	if err != nil {
		s.onError(err)
		return
	}
	s.onSuccess(v)
}

// attach stores the handle of the started work.
// The handle may arrive after the subscription is disposed by another goroutine.
func (s *subscription[V]) attach(h Cancellable) {
	if h == nil {
		return
	}
	s.handle.Store(&h)
	if s.state.Load() == stateDisposed {
		s.cancelHandle()
	}
}

func (s *subscription[V]) Dispose() {
	s.dispose()
}

// dispose reports whether the subscription was active.
func (s *subscription[V]) dispose() bool {
	if !s.state.CompareAndSwap(stateActive, stateDisposed) {
		return false
	}
	s.cancelHandle()
	return true
}

func (s *subscription[V]) cancelHandle() {
	h := s.handle.Load()
	if h == nil {
		return
	}
	if s.cancelled.CompareAndSwap(false, true) {
		(*h).Cancel()
	}
}

func (s *subscription[V]) terminated() bool {
	return s.state.Load() == stateTerminated
}

// Subscribe starts a new subscription.
// Exactly one of onSuccess or onError is called, unless the subscription is disposed first.
// They may be called before Subscribe returns (e.g. on a memory cache hit) or on any other goroutine.
func (s *Single[V]) Subscribe(onSuccess func(V), onError func(error)) Disposable {
	return s.start(onSuccess, onError)
}

func (s *Single[V]) start(onSuccess func(V), onError func(error)) *subscription[V] {
	if onSuccess == nil {
		onSuccess = func(V) {}
	}
	if onError == nil {
		onError = func(error) {}
	}
	sub := &subscription[V]{onSuccess: onSuccess, onError: onError}
	sub.attach(s.subscribe(sub.complete))
	return sub
}

// Observe subscribes to the single as a stream.Observable.
// On success it calls next once and then complete with nil. On failure it calls complete with the error.
// If ctx is cancelled before the terminal event, the subscription is disposed and complete is called with ctx.Err().
//
// Like the observables of the stream package, it subscribes on a new goroutine and returns immediately,
// so next and complete are never called before Observe returns, even on a memory cache hit.
func (s *Single[V]) Observe(ctx context.Context, next func(V), complete func(error)) {
	go s.observe(ctx, next, complete)
}

func (s *Single[V]) observe(ctx context.Context, next func(V), complete func(error)) {
	if err := ctx.Err(); err != nil {
		complete(err)
		return
	}

	var stop atomic.Pointer[func() bool]
	release := func() {
		if f := stop.Load(); f != nil {
			(*f)()
		}
	}
	sub := s.start(func(v V) {
		release()
		next(v)
		complete(nil)
	}, func(err error) {
		release()
		complete(err)
	})

	f := context.AfterFunc(ctx, func() {
		if sub.dispose() {
			complete(ctx.Err())
		}
	})
	stop.Store(&f)
	if sub.terminated() {
		f()
	}
}

// Get subscribes and waits for the terminal event.
// If ctx is cancelled first, the subscription is disposed and ctx.Err() is returned.
func (s *Single[V]) Get(ctx context.Context) (V, error) {
	ch := make(chan Result[V], 1)
	sub := s.start(func(v V) {
		ch <- Success(v)
	}, func(err error) {
		ch <- Failure[V](err)
	})

	select {
	case r := <-ch:
		return r.Get()
	default:
	}

	select {
	case r := <-ch:
		return r.Get()
	case <-ctx.Done():
		if !sub.dispose() {
			// terminated concurrently
			return (<-ch).Get()
		}
		var zero V
		return zero, ctx.Err()
	}
}
