// Package artifactgraph resolves the declared dependency tree of an artifact into a build graph
// with exactly one version of every package.
//
// # Quick Start
//
// (The following is also available as a package-level example.)
//
// Implement a [Locator], or use one from package [github.com/rhansen/artifactgraph/locator], that
// reports each artifact's declared dependencies and properties.  Then resolve a root coordinate:
//
//	root := artifactgraph.MustParseCoordinate("com.example:app:1.0")
//	g, err := artifactgraph.Resolve(ctx, root, nil, nil, loc)
//	if err != nil {
//		return err
//	}
//	for a := range g.Artifacts() {
//		fmt.Println(a.Coordinate, a.Scope)
//	}
//
// # Terminology
//
//   - A [Coordinate] names one version of a package: group, name, version, classifier and type.
//   - A [PackageKey] is a coordinate without its version.  Coordinates with the same key are
//     different versions of the same package and compete for a single place in the graph.
//   - A [Scope] says when a dependency is visible: at compile time, at run time, only in tests,
//     provided by the environment, or as a fixed file on the system.
//   - An edge's depth is its distance from the root.  The root's own dependencies have depth 0.
//   - A fat artifact bundles its dependencies in its own archive (property
//     [PropertyIncludesDependencies]).
//   - A managed dependency is a caller-supplied override of the version and scope of a package,
//     wherever it appears in the graph.
//
// # Resolution
//
// [Resolve] walks the tree breadth first.  Each declared edge passes through these steps:
//
//  1. Exclusions.  A dependency may exclude packages from everything below it.  An excluded edge is
//     dropped before anything else happens to it.
//  2. Scope.  [ResolveScope] combines the declared scope with the scope of the declaring artifact.
//     Test dependencies of test dependencies are pruned here.
//  3. Management.  The [ManagedVersionMap] replaces the version and scope.  This happens after the
//     scope rule, so management never changes which rule fired.
//  4. Cycle guard.  An edge back to a package on its own path is pruned when the version differs and
//     fails the resolution with [ErrSelfCycle] when the coordinate is the same.
//  5. Conflict.  If the package is already in the graph, a [ConflictResolutionPolicy] picks the
//     winning edge.  The default is nearest wins, newest breaks ties.
//
// [FatArtifactTraverser] decides whether the winner's own dependencies are visited: fat, optional
// and System artifacts are leaves.
//
// When an artifact is replaced by a conflict winner after its dependencies were already visited,
// those dependencies stay in the graph; only the artifact itself changes.
//
// # Determinism
//
// [Locator] calls for one level of the walk run concurrently, but their results are applied in
// declaration order, so the same inputs always produce the same graph.  [ResolvedGraph.WriteTo]
// writes the graph in a fixed order (depth of first discovery, then coordinate) suitable for golden
// file comparisons.
//
// # Errors
//
// There is no partial result.  A [Locator] error fails the whole resolution with
// [ErrMissingArtifact], a self-referencing cycle with [ErrSelfCycle], and cancellation of the
// context with [ErrResolutionAborted].  The returned [*ResolutionError] carries the path from the
// root to the failing coordinate.
package artifactgraph
