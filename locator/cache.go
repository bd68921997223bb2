package locator

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"runtime"
	"slices"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	ag "github.com/rhansen/artifactgraph"
	"github.com/rhansen/artifactgraph/internal/syncmap"
)

type answer struct {
	deps  []ag.DeclaredDependency
	props map[string]string
}

// Cached wraps a [ag.Locator] and remembers its successful answers in a bounded LRU cache.
// Concurrent queries for the same coordinate share a single call to the wrapped Locator.  Failed
// queries are not cached, so a later query retries.
//
// Unlike [ag.Resolve], which keeps no state between calls, a Cached locator is meant to be shared
// by many resolutions.
type Cached struct {
	next     ag.Locator
	cache    *lru.Cache[ag.Coordinate, *answer]
	inflight syncmap.Map[ag.Coordinate, func() (*answer, error)]
}

var _ ag.Locator = (*Cached)(nil)

// NewCached returns a [Cached] locator holding at most size answers.
func NewCached(next ag.Locator, size int) (*Cached, error) {
	cache, err := lru.New[ag.Coordinate, *answer](size)
	if err != nil {
		return nil, fmt.Errorf("locator cache: %w", err)
	}
	return &Cached{next: next, cache: cache}, nil
}

// Len returns the number of cached answers.
func (c *Cached) Len() int {
	return c.cache.Len()
}

// Pending returns the number of fetches from the wrapped Locator currently in flight.
func (c *Cached) Pending() int {
	return c.inflight.Len()
}

// Purge drops every cached answer.
func (c *Cached) Purge() {
	c.cache.Purge()
}

func (c *Cached) get(ctx context.Context, coord ag.Coordinate) (*answer, error) {
	if a, ok := c.cache.Get(coord); ok {
		return a, nil
	}
	for {
		fn, loaded := c.inflight.Load(coord)
		if !loaded {
			fn, loaded = c.inflight.LoadOrStore(coord, sync.OnceValues(func() (*answer, error) {
				return c.fetch(ctx, coord)
			}))
		}
		a, err := fn()
		if !loaded {
			c.inflight.Delete(coord)
		}
		if err == nil {
			return a, nil
		}
		if !loaded || context.Cause(ctx) != nil {
			return nil, err
		}
		// Another query's fetch failed, possibly because its own context was canceled.  Retry with
		// this query's context once that query has removed its entry.
		slog.DebugContext(ctx, "locator cache: retrying after shared fetch failed", "coordinate", coord, "err", err)
		runtime.Gosched()
	}
}

func (c *Cached) fetch(ctx context.Context, coord ag.Coordinate) (*answer, error) {
	// A fetch that finished between the caller's cache miss and now has left its answer behind.
	if a, ok := c.cache.Get(coord); ok {
		return a, nil
	}
	deps, err := c.next.DirectDependencies(ctx, coord)
	if err != nil {
		return nil, err
	}
	props, err := c.next.Properties(ctx, coord)
	if err != nil {
		return nil, err
	}
	a := &answer{deps: deps, props: props}
	c.cache.Add(coord, a)
	return a, nil
}

func (c *Cached) DirectDependencies(ctx context.Context, coord ag.Coordinate) ([]ag.DeclaredDependency, error) {
	a, err := c.get(ctx, coord)
	if err != nil {
		return nil, err
	}
	return slices.Clone(a.deps), nil
}

func (c *Cached) Properties(ctx context.Context, coord ag.Coordinate) (map[string]string, error) {
	a, err := c.get(ctx, coord)
	if err != nil {
		return nil, err
	}
	return maps.Clone(a.props), nil
}
