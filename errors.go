package artifactgraph

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors matched with [errors.Is] against the error returned from [Resolve].
var (
	// ErrMissingArtifact indicates the [Locator] could not provide an artifact's metadata.
	ErrMissingArtifact = errors.New("missing artifact")

	// ErrSelfCycle indicates an artifact transitively depends on its exact own coordinate.
	ErrSelfCycle = errors.New("dependency cycle")

	// ErrResolutionAborted indicates the resolution was canceled or timed out before finishing.
	ErrResolutionAborted = errors.New("resolution aborted")
)

// A ResolutionError is a terminal failure of [Resolve].  Path lists the coordinates from the root
// to the coordinate the failure concerns (inclusive), so the reason a package was considered at
// all is visible.
type ResolutionError struct {
	Kind       error // One of the sentinel errors.
	Coordinate Coordinate
	Path       []Coordinate
	Err        error // Underlying cause, if any.
}

func (e *ResolutionError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%v: %v", e.Kind, e.Coordinate)
	if len(e.Path) > 1 {
		sb.WriteString(" (via ")
		for i, c := range e.Path {
			if i > 0 {
				sb.WriteString(" -> ")
			}
			sb.WriteString(c.String())
		}
		sb.WriteString(")")
	}
	if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}
	return sb.String()
}

func (e *ResolutionError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newResolutionError(kind error, c Coordinate, path []Coordinate, err error) *ResolutionError {
	return &ResolutionError{
		Kind:       kind,
		Coordinate: c,
		Path:       append(append([]Coordinate(nil), path...), c),
		Err:        err,
	}
}
