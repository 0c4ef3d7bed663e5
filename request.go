package loadingstream

import (
	"net/http"
	"net/url"
)

// MemoryCacheOptions controls how a request interacts with the memory cache of the pipeline.
type MemoryCacheOptions struct {
	// ReadAllowed indicates whether the cached response can be used for the request.
	ReadAllowed bool

	// WriteAllowed indicates whether the loaded response can be stored in the memory cache.
	WriteAllowed bool
}

// DefaultMemoryCacheOptions allows both reading from and writing to the memory cache.
var DefaultMemoryCacheOptions = MemoryCacheOptions{
	ReadAllowed:  true,
	WriteAllowed: true,
}

// Request describes what to load.
// A request is treated as immutable once it is passed to a Loader.
type Request struct {
	// URL is the location of the resource.
	URL *url.URL

	// Header is the additional header sent along with the request.
	// It is optional.
	Header http.Header

	// MemoryCacheOptions controls the memory cache usage of the request.
	MemoryCacheOptions MemoryCacheOptions
}

// NewRequest creates a request for the given URL with the default memory cache options.
// The URL is cloned, so the caller may reuse it.
func NewRequest(u *url.URL) Request {
	return Request{
		URL:                cloneURL(u),
		MemoryCacheOptions: DefaultMemoryCacheOptions,
	}
}

// NewHTTPRequest creates a request from the given HTTP request with the default memory cache options.
// The URL and the header are cloned, so the caller may reuse them.
func NewHTTPRequest(r *http.Request) Request {
	return Request{
		URL:                cloneURL(r.URL),
		Header:             r.Header.Clone(),
		MemoryCacheOptions: DefaultMemoryCacheOptions,
	}
}

// CacheKey returns the key that identifies the response of the request.
// Requests for the same URL share the key regardless of their header.
func (r Request) CacheKey() string {
	if r.URL == nil {
		return ""
	}
	return r.URL.String()
}

func cloneURL(u *url.URL) *url.URL {
	if u == nil {
		return nil
	}
	c := *u
	if u.User != nil {
		user := *u.User
		c.User = &user
	}
	return &c
}
