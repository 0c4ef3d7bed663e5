// Package pipeline provides an image pipeline that can be adapted with loadingstream.Bridge.
//
// The pipeline loads responses from a Source and keeps them in a sharded in-memory cache.
// Concurrent fetches of the same cache key share one load, and each fetch can be cancelled independently;
// the load itself is cancelled when the last fetch sharing it is cancelled.
//
// The Pipeline can be configured with options:
//   - WithTTL: Sets how long a loaded response stays in the memory cache
//   - WithExpirationPolicy: Sets how the expiration time of a cached response is checked
//   - WithClock: Sets the clock used for the expiration
//   - WithBucketsSize: Sets the number of shards of the memory cache
//   - WithMaxConcurrentLoads: Bounds the number of loads running at the same time
//   - WithBackgroundContextProvider: Sets the parent context of the loads
//   - WithLogger: Sets the logger
package pipeline
