package artifactgraph

// DescentVeto says why [FatArtifactTraverser] refused to descend into an artifact.
type DescentVeto uint8

const (
	// Descend means there is no veto.
	Descend DescentVeto = iota
	// VetoFat means the artifact bundles its own dependencies.
	VetoFat
	// VetoOptional means the artifact was reached through an optional edge.
	VetoOptional
	// VetoSystem means the artifact has System scope and denotes a caller-supplied file.
	VetoSystem
)

func (v DescentVeto) String() string {
	switch v {
	case Descend:
		return "descend"
	case VetoFat:
		return "fat"
	case VetoOptional:
		return "optional"
	case VetoSystem:
		return "system"
	}
	return "unknown"
}

// A FatArtifactTraverser decides whether the dependencies of an artifact in the graph are
// visited.  Artifacts it refuses are still added to the [ResolvedGraph]; they become leaves.
//
// A fat artifact (one with [PropertyIncludesDependencies] set) already carries its dependencies
// inside its own archive, so resolving them again would duplicate or conflict with that content.
// Optional and System artifacts are leaves for similar reasons.
type FatArtifactTraverser struct{}

// ShouldDescend reports whether the dependencies of a should be visited.
func (t FatArtifactTraverser) ShouldDescend(a *Artifact) bool {
	return t.Reason(a) == Descend
}

// Reason is like [FatArtifactTraverser.ShouldDescend] but reports which rule applied.
func (FatArtifactTraverser) Reason(a *Artifact) DescentVeto {
	switch {
	case a.IncludesDependencies:
		return VetoFat
	case a.Optional:
		return VetoOptional
	case a.Scope == System:
		return VetoSystem
	}
	return Descend
}
