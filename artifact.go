package artifactgraph

import (
	"maps"
	"strings"
)

// Well-known keys in an artifact's property bag.
const (
	// PropertyIncludesDependencies marks a "fat" artifact that bundles its own dependencies.
	PropertyIncludesDependencies = "includesDependencies"
	// PropertyConstitutesBuildPath marks an artifact that belongs on the build path.
	PropertyConstitutesBuildPath = "constitutesBuildPath"
)

// An Artifact is a node in a [ResolvedGraph]: a [Coordinate] together with the [Scope] it was
// resolved to and the metadata the [Locator] reported for it.
//
// The fat and build-path flags are decoded from [Artifact.Properties] once, when the artifact is
// constructed by [NewArtifact]; the bag itself is kept for any other metadata.
type Artifact struct {
	Coordinate
	Scope Scope

	// Optional is true if the edge that contributed this artifact was declared optional.
	Optional bool

	IncludesDependencies bool
	ConstitutesBuildPath bool

	Properties map[string]string
}

// NewArtifact constructs an [Artifact] and decodes its typed flags from props.  The map is
// copied.
func NewArtifact(c Coordinate, scope Scope, props map[string]string) Artifact {
	a := Artifact{Coordinate: c, Scope: scope, Properties: maps.Clone(props)}
	a.IncludesDependencies = boolProperty(props, PropertyIncludesDependencies)
	a.ConstitutesBuildPath = boolProperty(props, PropertyConstitutesBuildPath)
	return a
}

// boolProperty is true only for a case-insensitive "true"; anything else, including a missing
// key, is false.
func boolProperty(props map[string]string, name string) bool {
	return strings.EqualFold(strings.TrimSpace(props[name]), "true")
}

// Property returns the value of the named entry in the property bag, or "" if there is none.
func (a Artifact) Property(name string) string {
	return a.Properties[name]
}

func (a Artifact) String() string {
	return a.Coordinate.String() + " (" + a.Scope.String() + ")"
}

