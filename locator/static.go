// Package locator provides implementations of [artifactgraph.Locator].
//
// [Static] answers from an in-memory table, typically loaded from a repository file with
// [DecodeFile].  [Cached] and [Instrumented] wrap another Locator to add an answer cache and
// Prometheus metrics respectively.
package locator

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	ag "github.com/rhansen/artifactgraph"
)

// ErrNotFound is wrapped by errors returned from [Static] for unknown coordinates.
var ErrNotFound = fmt.Errorf("artifact not found")

// An Entry is everything a [Static] locator knows about one coordinate.
type Entry struct {
	Dependencies []ag.DeclaredDependency
	Properties   map[string]string
	// Err, if non-nil, is returned from every query for the coordinate.
	Err error
}

// A Static locator answers from a fixed table.  It is safe for concurrent use, including
// concurrent calls to [Static.Add].
type Static struct {
	mu      sync.RWMutex
	entries map[ag.Coordinate]*Entry
}

var _ ag.Locator = (*Static)(nil)

// NewStatic returns an empty [Static] locator.
func NewStatic() *Static {
	return &Static{entries: map[ag.Coordinate]*Entry{}}
}

// Add registers (or replaces) the entry for c.
func (s *Static) Add(c ag.Coordinate, e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.Dependencies = slices.Clone(e.Dependencies)
	e.Properties = maps.Clone(e.Properties)
	s.entries[c] = &e
}

// Coordinates returns every registered coordinate, sorted.
func (s *Static) Coordinates() []ag.Coordinate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.SortedFunc(maps.Keys(s.entries), ag.CoordinateCompare)
}

func (s *Static) lookup(ctx context.Context, c ag.Coordinate) (*Entry, error) {
	if err := context.Cause(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e := s.entries[c]
	switch {
	case e == nil:
		return nil, fmt.Errorf("%v: %w", c, ErrNotFound)
	case e.Err != nil:
		return nil, e.Err
	}
	return e, nil
}

func (s *Static) DirectDependencies(ctx context.Context, c ag.Coordinate) ([]ag.DeclaredDependency, error) {
	e, err := s.lookup(ctx, c)
	if err != nil {
		return nil, err
	}
	return slices.Clone(e.Dependencies), nil
}

func (s *Static) Properties(ctx context.Context, c ag.Coordinate) (map[string]string, error) {
	e, err := s.lookup(ctx, c)
	if err != nil {
		return nil, err
	}
	return maps.Clone(e.Properties), nil
}
