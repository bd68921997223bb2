package artifactgraph

import (
	"fmt"
)

// A DependencyEdge is one declared dependency as it was reached during a resolution: the
// declaring artifact, the target after the managed-version overlay, the scope and optional flag it
// was declared with, and its distance from the root (0 for the root's own dependencies).
//
// Target is the artifact the edge would contribute to the [ResolvedGraph] if it wins: To with its
// resolved scope and properties.
type DependencyEdge struct {
	From          Coordinate
	To            Coordinate
	DeclaredScope Scope
	Optional      bool
	Depth         uint32
	Target        Artifact
}

func (e *DependencyEdge) String() string {
	opt := ""
	if e.Optional {
		opt = ", optional"
	}
	return fmt.Sprintf("%v -> %v [%v%s, depth %d]", e.From, e.To, e.DeclaredScope, opt, e.Depth)
}
