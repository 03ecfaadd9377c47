package graph

import (
	"context"
	"sync"
)

// Fetcher retrieves one raw object by id. Implementations may be slow or
// remote; the only error kinds they should surface are NotFound,
// FetchTimeout, and Transient.
type Fetcher interface {
	Fetch(ctx context.Context, objectID string) (*Object, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, objectID string) (*Object, error)

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context, objectID string) (*Object, error) {
	return f(ctx, objectID)
}

// RequestCache memoizes fetched objects for the duration of one
// top-level resolution. Each distinct id is fetched at most once; when
// independent branches race for the same id, the first requester fetches
// and the others wait for that flight to finish. Failed fetches are not
// cached, so a later access for the same id fetches again.
//
// A RequestCache is private to one request and discarded with it.
type RequestCache struct {
	fetcher Fetcher

	mu      sync.Mutex
	entries map[string]*cacheEntry
}

type cacheEntry struct {
	done chan struct{}
	obj  *Object
	err  error
}

// NewRequestCache creates a cache backed by the given fetcher.
func NewRequestCache(fetcher Fetcher) *RequestCache {
	return &RequestCache{
		fetcher: fetcher,
		entries: make(map[string]*cacheEntry),
	}
}

// Get returns the object for id, fetching it on first access.
func (c *RequestCache) Get(ctx context.Context, objectID string) (*Object, error) {
	c.mu.Lock()
	if e, ok := c.entries[objectID]; ok {
		c.mu.Unlock()
		select {
		case <-e.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return e.obj, e.err
	}

	e := &cacheEntry{done: make(chan struct{})}
	c.entries[objectID] = e
	c.mu.Unlock()

	e.obj, e.err = c.fetcher.Fetch(ctx, objectID)
	if e.err != nil {
		// Failures are not cached: drop the entry so a retried access
		// attempts the fetch again. Waiters already joined to this
		// flight still observe the error.
		c.mu.Lock()
		delete(c.entries, objectID)
		c.mu.Unlock()
	}
	close(e.done)

	return e.obj, e.err
}

// Len returns the number of objects currently cached.
func (c *RequestCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
