package loadingstream_test

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cilium/stream"
	"github.com/google/go-cmp/cmp"
	loadingstream "github.com/karupanerura/loading-stream"
	"github.com/karupanerura/loading-stream/loadingstreamtest"
)

type Image struct {
	ID   string
	Data []byte
}

var errNetworkTimeout = errors.New("network timeout")

// recorder collects the events of a subscription.
type recorder[V any] struct {
	mu     sync.Mutex
	values []V
	errs   []error
}

func (r *recorder[V]) onSuccess(v V) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
}

func (r *recorder[V]) onError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recorder[V]) events() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.values) + len(r.errs)
}

func mustParseURL(t testing.TB, s string) *url.URL {
	t.Helper()
	u, err := url.Parse(s)
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func TestBridge_Load_MemoryCacheHit(t *testing.T) {
	t.Parallel()

	fake := loadingstreamtest.NewFakePipeline[*Image]()
	req := loadingstream.NewRequest(mustParseURL(t, "https://example.com/cats.png"))
	cached := &Image{ID: "cats.png", Data: []byte{0x89, 0x50, 0x4e, 0x47}}
	fake.SetCached(req, cached)

	bridge := loadingstream.NewPipelineBridge[*Image](fake)

	var rec recorder[*Image]
	d := bridge.Load(req).Subscribe(rec.onSuccess, rec.onError)

	// delivered within Subscribe
	if diff := cmp.Diff([]*Image{cached}, rec.values); diff != "" {
		t.Errorf("unexpected values (-want +got):\n%s", diff)
	}
	if len(rec.errs) != 0 {
		t.Errorf("unexpected errors: %v", rec.errs)
	}
	if rec.values[0] != cached {
		t.Error("the cached response must be emitted as is")
	}
	if got := fake.FetchCount(); got != 0 {
		t.Errorf("unexpected fetch count: %d (expected: 0)", got)
	}

	d.Dispose()
	d.Dispose()
	if got := rec.events(); got != 1 {
		t.Errorf("unexpected event count: %d (expected: 1)", got)
	}
}

func TestBridge_Load_MemoryCacheMiss(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		cached    bool
		options   loadingstream.MemoryCacheOptions
		wantProbe int
		wantFetch int
	}{
		{
			name:      "no cache entry",
			cached:    false,
			options:   loadingstream.DefaultMemoryCacheOptions,
			wantProbe: 1,
			wantFetch: 1,
		},
		{
			name:      "cache read disallowed",
			cached:    true,
			options:   loadingstream.MemoryCacheOptions{ReadAllowed: false, WriteAllowed: true},
			wantProbe: 0,
			wantFetch: 1,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fake := loadingstreamtest.NewFakePipeline[string]()
			req := loadingstream.NewRequest(mustParseURL(t, "https://example.com/dogs.png"))
			req.MemoryCacheOptions = tt.options
			if tt.cached {
				fake.SetCached(req, "cached")
			}

			bridge := loadingstream.NewPipelineBridge[string](fake)
			var rec recorder[string]
			bridge.Load(req).Subscribe(rec.onSuccess, rec.onError)

			if got := fake.ProbeCount(); got != tt.wantProbe {
				t.Errorf("unexpected probe count: %d (expected: %d)", got, tt.wantProbe)
			}
			if got := fake.FetchCount(); got != tt.wantFetch {
				t.Errorf("unexpected fetch count: %d (expected: %d)", got, tt.wantFetch)
			}
			if got := rec.events(); got != 0 {
				t.Errorf("unexpected event count before completion: %d", got)
			}

			fake.LastCall().Succeed("fetched")
			if diff := cmp.Diff([]string{"fetched"}, rec.values); diff != "" {
				t.Errorf("unexpected values (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBridge_Load_WithoutMemoryCache(t *testing.T) {
	t.Parallel()

	fake := loadingstreamtest.NewFakePipeline[string]()
	req := loadingstream.NewRequest(mustParseURL(t, "https://example.com/cats.png"))
	fake.SetCached(req, "cached")

	bridge := loadingstream.NewBridge[string](fake)
	var rec recorder[string]
	bridge.Load(req).Subscribe(rec.onSuccess, rec.onError)

	if got := fake.ProbeCount(); got != 0 {
		t.Errorf("unexpected probe count: %d (expected: 0)", got)
	}
	if got := fake.FetchCount(); got != 1 {
		t.Errorf("unexpected fetch count: %d (expected: 1)", got)
	}
}

func TestBridge_Load_Completion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		result     loadingstream.Result[string]
		wantValues []string
		wantErr    error
	}{
		{
			name:       "success",
			result:     loadingstream.Success("fetched"),
			wantValues: []string{"fetched"},
		},
		{
			name:    "failure",
			result:  loadingstream.Failure[string](errNetworkTimeout),
			wantErr: errNetworkTimeout,
		},
		{
			name:    "neither response nor failure",
			result:  loadingstream.Result[string]{},
			wantErr: loadingstream.ErrOperationFailed,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fake := loadingstreamtest.NewFakePipeline[string]()
			bridge := loadingstream.NewPipelineBridge[string](fake)

			var rec recorder[string]
			d := bridge.LoadURL(mustParseURL(t, "https://example.com/cats.png")).Subscribe(rec.onSuccess, rec.onError)

			call := fake.LastCall()
			call.Complete(tt.result)

			// contract violations of the pipeline must not leak further events
			call.Succeed("late")
			call.Fail(errors.New("late"))
			d.Dispose()

			if diff := cmp.Diff(tt.wantValues, rec.values); diff != "" {
				t.Errorf("unexpected values (-want +got):\n%s", diff)
			}
			if tt.wantErr == nil {
				if len(rec.errs) != 0 {
					t.Errorf("unexpected errors: %v", rec.errs)
				}
			} else {
				if len(rec.errs) != 1 {
					t.Fatalf("unexpected errors: %v (expected: [%v])", rec.errs, tt.wantErr)
				}
				if rec.errs[0] != tt.wantErr {
					t.Errorf("unexpected error: %v (expected: %v)", rec.errs[0], tt.wantErr)
				}
			}
			if got := call.CancelCount(); got != 0 {
				t.Errorf("unexpected cancel count after completion: %d (expected: 0)", got)
			}
		})
	}
}

func TestBridge_Load_Dispose(t *testing.T) {
	t.Parallel()

	fake := loadingstreamtest.NewFakePipeline[string]()
	bridge := loadingstream.NewPipelineBridge[string](fake)

	var rec recorder[string]
	d := bridge.LoadURL(mustParseURL(t, "https://example.com/cats.png")).Subscribe(rec.onSuccess, rec.onError)
	call := fake.LastCall()

	d.Dispose()
	d.Dispose()
	if got := call.CancelCount(); got != 1 {
		t.Errorf("unexpected cancel count: %d (expected: 1)", got)
	}

	call.Succeed("late")
	if got := rec.events(); got != 0 {
		t.Errorf("unexpected event count: %d (expected: 0)", got)
	}
}

func TestBridge_Load_ColdPerSubscription(t *testing.T) {
	t.Parallel()

	fake := loadingstreamtest.NewFakePipeline[string]()
	bridge := loadingstream.NewPipelineBridge[string](fake)
	single := bridge.LoadURL(mustParseURL(t, "https://example.com/cats.png"))

	if got := fake.FetchCount(); got != 0 {
		t.Fatalf("fetch must not begin before subscription, but got %d fetches", got)
	}

	var first, second recorder[string]
	d1 := single.Subscribe(first.onSuccess, first.onError)
	single.Subscribe(second.onSuccess, second.onError)
	if got := fake.FetchCount(); got != 2 {
		t.Fatalf("unexpected fetch count: %d (expected: 2)", got)
	}

	calls := fake.Calls()
	d1.Dispose()
	calls[1].Succeed("second")

	if got := calls[0].CancelCount(); got != 1 {
		t.Errorf("unexpected cancel count of the first fetch: %d (expected: 1)", got)
	}
	if got := calls[1].CancelCount(); got != 0 {
		t.Errorf("unexpected cancel count of the second fetch: %d (expected: 0)", got)
	}
	if got := first.events(); got != 0 {
		t.Errorf("unexpected event count of the first subscription: %d", got)
	}
	if diff := cmp.Diff([]string{"second"}, second.values); diff != "" {
		t.Errorf("unexpected values (-want +got):\n%s", diff)
	}
}

func TestBridge_LoadHTTPRequest(t *testing.T) {
	t.Parallel()

	fake := loadingstreamtest.NewFakePipeline[string]()
	bridge := loadingstream.NewPipelineBridge[string](fake)

	r, err := http.NewRequest(http.MethodGet, "https://example.com/cats.png?size=large", nil)
	if err != nil {
		t.Fatal(err)
	}
	r.Header.Set("Accept", "image/webp")

	bridge.LoadHTTPRequest(r).Subscribe(nil, nil)
	r.Header.Set("Accept", "image/png")

	got := fake.LastCall().Request
	if got.URL.String() != "https://example.com/cats.png?size=large" {
		t.Errorf("unexpected url: %s", got.URL)
	}
	if v := got.Header.Get("Accept"); v != "image/webp" {
		t.Errorf("unexpected accept header: %q (expected: %q)", v, "image/webp")
	}
	if diff := cmp.Diff(loadingstream.DefaultMemoryCacheOptions, got.MemoryCacheOptions); diff != "" {
		t.Errorf("unexpected memory cache options (-want +got):\n%s", diff)
	}
}

func TestBridge_Load_AsynchronousFailure(t *testing.T) {
	t.Parallel()

	var cancels atomic.Int64
	pipeline := &loadingstream.FunctionsPipeline[*Image]{
		FetchFunc: func(_ loadingstream.Request, completion func(loadingstream.Result[*Image])) loadingstream.Cancellable {
			timer := time.AfterFunc(10*time.Millisecond, func() {
				completion(loadingstream.Failure[*Image](errNetworkTimeout))
			})
			return loadingstream.CancellableFunc(func() {
				cancels.Add(1)
				timer.Stop()
			})
		},
	}
	bridge := loadingstream.NewPipelineBridge[*Image](pipeline, loadingstream.WithLogger[*Image](slog.New(slog.DiscardHandler)))
	u := mustParseURL(t, "https://example.com/cats.png")

	if _, err := bridge.LoadURL(u).Get(t.Context()); !errors.Is(err, errNetworkTimeout) {
		t.Errorf("unexpected error: %v (expected: %v)", err, errNetworkTimeout)
	}

	values, err := stream.ToSlice(t.Context(), bridge.LoadURL(u).OrEmpty())
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if len(values) != 0 {
		t.Errorf("unexpected values: %v", values)
	}
	if got := cancels.Load(); got != 0 {
		t.Errorf("unexpected cancel count: %d (expected: 0)", got)
	}
}

func TestBridge_Load_DisposeRacesCompletion(t *testing.T) {
	t.Parallel()

	for i := 0; i < 100; i++ {
		fake := loadingstreamtest.NewFakePipeline[int]()
		bridge := loadingstream.NewBridge[int](fake)

		var rec recorder[int]
		d := bridge.LoadURL(mustParseURL(t, "https://example.com/cats.png")).Subscribe(rec.onSuccess, rec.onError)
		call := fake.LastCall()

		var wg sync.WaitGroup
		wg.Add(3)
		go func() {
			defer wg.Done()
			call.Succeed(i)
		}()
		go func() {
			defer wg.Done()
			call.Fail(errNetworkTimeout)
		}()
		go func() {
			defer wg.Done()
			d.Dispose()
		}()
		wg.Wait()

		events := rec.events()
		if events > 1 {
			t.Fatalf("more than one terminal event: values=%v errors=%v", rec.values, rec.errs)
		}
		// the handle is cancelled only when the dispose won the race
		if wantCancels := 1 - events; call.CancelCount() != wantCancels {
			t.Fatalf("unexpected cancel count: %d (expected: %d)", call.CancelCount(), wantCancels)
		}
	}
}
