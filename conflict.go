package artifactgraph

import (
	"github.com/rhansen/artifactgraph/internal/version"
)

// EdgeChoice is the decision of a [ConflictResolutionPolicy].
type EdgeChoice uint8

const (
	ChooseFirst EdgeChoice = iota
	ChooseSecond
)

func (c EdgeChoice) String() string {
	if c == ChooseSecond {
		return "second"
	}
	return "first"
}

// A ConflictResolutionPolicy picks which of two edges targeting the same package key wins.  During
// a resolution e1 is always the edge of the current winner and e2 the newly arrived edge.
//
// A policy must be deterministic, and it must select the same target coordinate when its arguments
// are swapped.
type ConflictResolutionPolicy func(e1, e2 *DependencyEdge) EdgeChoice

// Apply returns whichever of e1 and e2 the policy selects.
func (p ConflictResolutionPolicy) Apply(e1, e2 *DependencyEdge) *DependencyEdge {
	if p(e1, e2) == ChooseSecond {
		return e2
	}
	return e1
}

// ConflictResolutionPolicyConfig configures the standard depth-then-version policy.
type ConflictResolutionPolicyConfig struct {
	// CloserFirst makes the edge nearer to the root win when the depths differ; otherwise the
	// farther edge wins.
	CloserFirst bool
	// NewerFirst makes the greater version win when the depths are equal; otherwise the lesser
	// version wins.
	NewerFirst bool
}

// DefaultPolicyConfig is "nearest wins, newest breaks ties".
var DefaultPolicyConfig = ConflictResolutionPolicyConfig{CloserFirst: true, NewerFirst: true}

// Policy returns the [ConflictResolutionPolicy] described by cfg.
func (cfg ConflictResolutionPolicyConfig) Policy() ConflictResolutionPolicy {
	return func(e1, e2 *DependencyEdge) EdgeChoice {
		if e1.Depth != e2.Depth {
			if (e2.Depth < e1.Depth) == cfg.CloserFirst {
				return ChooseSecond
			}
			return ChooseFirst
		}
		return byVersion(e1, e2, cfg.NewerFirst)
	}
}

// NewestWins is a [ConflictResolutionPolicy] that ignores depth and selects the greater version.
func NewestWins(e1, e2 *DependencyEdge) EdgeChoice {
	return byVersion(e1, e2, true)
}

// byVersion selects the strictly greater (newer) or strictly lesser version, and e1 on a tie.
func byVersion(e1, e2 *DependencyEdge, newer bool) EdgeChoice {
	c := version.Compare(e1.To.Version, e2.To.Version)
	switch {
	case c == 0:
		return ChooseFirst
	case (c < 0) == newer:
		return ChooseSecond
	}
	return ChooseFirst
}
