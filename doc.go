// Package loadingstream adapts the callback-based API of an image pipeline into single-value streams.
//
// A Bridge wraps a Fetcher (and optionally a MemoryCache) and returns a cold Single for each request.
// Subscribing to the Single probes the memory cache synchronously, and fetches the response only on a miss.
// Disposing the subscription cancels the in-flight fetch. Single implements stream.Observable of
// github.com/cilium/stream, so it composes with the operators of that package, and OrEmpty turns a
// failing Single into an empty stream.
package loadingstream
