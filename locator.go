package artifactgraph

import (
	"context"
)

// A DeclaredDependency is one entry in an artifact's own dependency list, exactly as its
// declaration states it.
type DeclaredDependency struct {
	Coordinate Coordinate
	// Scope is the declared scope.  [NoScope] means the declaration omitted it, which is treated
	// as [Compile].
	Scope    Scope
	Optional bool
	// Exclusions are patterns (see [PackageKey.Matches]) that must not be resolved anywhere below
	// this dependency.
	Exclusions []PackageKey
}

// A Locator provides the metadata of artifacts.  Fetching, parsing and caching that metadata is the
// Locator's business; [Resolve] only asks questions.  See package
// [github.com/rhansen/artifactgraph/locator] for implementations.
//
// Every error returned by a Locator is final for that coordinate and makes the resolution fail
// with [ErrMissingArtifact].  Implementations should retry transient failures themselves.
// Implementations must be safe for concurrent use.
type Locator interface {
	// DirectDependencies returns the artifact's own declared dependencies, in declaration order.
	DirectDependencies(ctx context.Context, c Coordinate) ([]DeclaredDependency, error)

	// Properties returns the artifact's property bag (see [PropertyIncludesDependencies]).  A nil
	// map is the same as an empty one.
	Properties(ctx context.Context, c Coordinate) (map[string]string, error)
}
