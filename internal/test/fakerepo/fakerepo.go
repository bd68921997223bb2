// Package fakerepo makes it easy to populate an in-memory artifact repository with fake artifacts
// to facilitate testing.
package fakerepo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"testing"

	ag "github.com/rhansen/artifactgraph"
	"github.com/rhansen/artifactgraph/locator"
)

type config struct {
	ag.Coordinate
	entry locator.Entry
}

func (cfg *config) Check() error {
	if cfg.Coordinate == (ag.Coordinate{}) {
		return errors.New("fake artifact has no coordinate")
	}
	return cfg.Coordinate.Check()
}

// An Option controls the creation of a fake artifact.
type Option func(*config) error

// Coordinate returns an option that sets the fake artifact's coordinate.
func Coordinate(c ag.Coordinate) Option {
	return func(cfg *config) error {
		cfg.Coordinate = c
		return nil
	}
}

// Id returns an option that sets the fake artifact's coordinate.  The given string is parsed with
// [ag.ParseCoordinate], e.g., "com.example:foo:1.2.3".
func Id(coord string) Option {
	return func(cfg *config) error {
		c, err := ag.ParseCoordinate(coord)
		if err != nil {
			return err
		}
		return Coordinate(c)(cfg)
	}
}

// A DepOption adjusts a dependency added with [Depends].
type DepOption func(*ag.DeclaredDependency) error

// Optional marks the dependency optional.
func Optional() DepOption {
	return func(d *ag.DeclaredDependency) error {
		d.Optional = true
		return nil
	}
}

// Excludes adds exclusion patterns of the form "group:name" to the dependency.
func Excludes(patterns ...string) DepOption {
	return func(d *ag.DeclaredDependency) error {
		for _, p := range patterns {
			k, err := ag.ParseExclusion(p)
			if err != nil {
				return err
			}
			d.Exclusions = append(d.Exclusions, k)
		}
		return nil
	}
}

// Depends returns an [Option] that appends a declared dependency on coord to the fake artifact.
// Pass [ag.NoScope] to declare the dependency without a scope.
func Depends(coord string, scope ag.Scope, opts ...DepOption) Option {
	return func(cfg *config) error {
		c, err := ag.ParseCoordinate(coord)
		if err != nil {
			return err
		}
		d := ag.DeclaredDependency{Coordinate: c, Scope: scope}
		for _, opt := range opts {
			if err := opt(&d); err != nil {
				return fmt.Errorf("dependency %v: %w", c, err)
			}
		}
		cfg.entry.Dependencies = append(cfg.entry.Dependencies, d)
		return nil
	}
}

// Property returns an [Option] that sets an entry in the fake artifact's property bag.
func Property(name, value string) Option {
	return func(cfg *config) error {
		if cfg.entry.Properties == nil {
			cfg.entry.Properties = map[string]string{}
		}
		cfg.entry.Properties[name] = value
		return nil
	}
}

// Fat returns an [Option] that marks the fake artifact as bundling its own dependencies.
func Fat(fat bool) Option {
	return Property(ag.PropertyIncludesDependencies, strconv.FormatBool(fat))
}

// Fails returns an [Option] that makes every query for the fake artifact fail with err.
func Fails(err error) Option {
	return func(cfg *config) error {
		cfg.entry.Err = err
		return nil
	}
}

// Add is a low-level function that creates a new fake artifact in the given locator.
//
// See [FakeRepo.Add] for a more ergonomic interface.
func Add(ctx context.Context, s *locator.Static, opts ...Option) error {
	cfg := &config{}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return err
		}
	}
	if err := cfg.Check(); err != nil {
		return err
	}
	slog.DebugContext(ctx, "creating fake artifact", "coordinate", cfg.Coordinate,
		"deps", len(cfg.entry.Dependencies))
	s.Add(cfg.Coordinate, cfg.entry)
	return nil
}

// A FakeRepo is an in-memory repository of fake artifacts.
//
// This is meant for testable example functions; test functions should use [TestFakeRepo]
// instead.
type FakeRepo struct {
	*locator.Static
}

// NewFakeRepo creates an empty [FakeRepo].
func NewFakeRepo() *FakeRepo {
	return &FakeRepo{Static: locator.NewStatic()}
}

// Add creates a new fake artifact in the [FakeRepo].  It is a convenience wrapper around [Add],
// with the same semantics.
func (r *FakeRepo) Add(ctx context.Context, opts ...Option) error {
	return Add(ctx, r.Static, opts...)
}

// AddAll is a convenience method to make it easier to add many artifacts at a time.
func (r *FakeRepo) AddAll(ctx context.Context, optss ...[]Option) error {
	for _, opts := range optss {
		if err := r.Add(ctx, opts...); err != nil {
			return err
		}
	}
	return nil
}

// A TestFakeRepo is like [FakeRepo] but with a more ergonomic interface meant for unit tests.
type TestFakeRepo struct {
	FakeRepo
	t *testing.T
}

func NewTestFakeRepo(t *testing.T) *TestFakeRepo {
	t.Helper()
	return &TestFakeRepo{FakeRepo: *NewFakeRepo(), t: t}
}

func (r *TestFakeRepo) Add(opts ...Option) *TestFakeRepo {
	r.t.Helper()
	if err := r.FakeRepo.Add(r.t.Context(), opts...); err != nil {
		r.t.Fatal(err)
	}
	return r
}

func (r *TestFakeRepo) AddAll(optss ...[]Option) *TestFakeRepo {
	r.t.Helper()
	if err := r.FakeRepo.AddAll(r.t.Context(), optss...); err != nil {
		r.t.Fatal(err)
	}
	return r
}
