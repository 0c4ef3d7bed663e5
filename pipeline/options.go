package pipeline

import (
	"context"
	"log/slog"
	"time"
)

// DefaultTTL is the default duration a loaded response stays in the memory cache.
var DefaultTTL = time.Hour

// DefaultBucketsSize is the default number of shards of the memory cache.
var DefaultBucketsSize = 64

// Option is the interface for the options of the Pipeline.
type Option interface {
	apply(*options)
}

type optionFunc func(*options)

func (f optionFunc) apply(o *options) {
	f(o)
}

// WithTTL sets how long a loaded response stays in the memory cache.
func WithTTL(ttl time.Duration) Option {
	return optionFunc(func(o *options) {
		o.ttl = ttl
	})
}

// WithExpirationPolicy sets the expiration policy of the memory cache.
// The default policy is GeneralExpirationPolicy.
func WithExpirationPolicy(policy ExpirationPolicy) Option {
	return optionFunc(func(o *options) {
		o.policy = policy
	})
}

// WithClock sets the clock of the memory cache.
func WithClock(clock Clock) Option {
	return optionFunc(func(o *options) {
		o.clock = clock
	})
}

// WithBucketsSize sets the number of shards of the memory cache.
// The number of buckets must be a natural number.
func WithBucketsSize(bucketsSize int) Option {
	if bucketsSize <= 0 {
		panic("bucketsSize must be natural number")
	}
	return optionFunc(func(o *options) {
		o.bucketsSize = bucketsSize
	})
}

// WithMaxConcurrentLoads bounds the number of loads running at the same time.
// Loads are not bounded by default.
func WithMaxConcurrentLoads(n int) Option {
	if n <= 0 {
		panic("max concurrent loads must be natural number")
	}
	return optionFunc(func(o *options) {
		o.maxConcurrentLoads = int64(n)
	})
}

// WithBackgroundContextProvider sets the context provider of the loads.
// The provider must return a new context for each call.
// The default context provider is context.Background.
func WithBackgroundContextProvider(provider func() context.Context) Option {
	return optionFunc(func(o *options) {
		o.context = provider
	})
}

// WithLogger sets the logger to the pipeline.
// The default logger discards all records.
func WithLogger(logger *slog.Logger) Option {
	return optionFunc(func(o *options) {
		o.logger = logger
	})
}

type options struct {
	ttl                time.Duration
	policy             ExpirationPolicy
	clock              Clock
	bucketsSize        int
	maxConcurrentLoads int64
	context            func() context.Context
	logger             *slog.Logger
}

func defaultOptions() options {
	return options{
		ttl:         DefaultTTL,
		policy:      GeneralExpirationPolicy{},
		clock:       SystemClock,
		bucketsSize: DefaultBucketsSize,
		context:     context.Background,
		logger:      slog.New(slog.DiscardHandler),
	}
}
