package artifactgraph

import (
	"context"
	"log/slog"
)

// A ManagedDependency is one entry of a caller's dependency-management section: every occurrence
// of Key in the graph is forced to Version and, if Scope is not [NoScope], to Scope.
type ManagedDependency struct {
	Key     PackageKey
	Version string
	Scope   Scope
}

// A ManagementDeclaration is the pre-parsed dependency-management section supplied to [Resolve].
type ManagementDeclaration []ManagedDependency

type managedOverride struct {
	version string
	scope   Scope
}

// A ManagedVersionMap overrides the version and scope of artifacts by package key.  It is built
// once per resolution and never modified afterward.
type ManagedVersionMap struct {
	m map[PackageKey]managedOverride
}

// NewManagedVersionMap converts a [ManagementDeclaration] into a lookup table.  If a key is
// declared more than once the last declaration wins.  Entries with an empty version only
// override the scope.
func NewManagedVersionMap(ctx context.Context, decl ManagementDeclaration) *ManagedVersionMap {
	mvm := &ManagedVersionMap{m: make(map[PackageKey]managedOverride, len(decl))}
	for _, md := range decl {
		if prev, ok := mvm.m[md.Key]; ok {
			slog.WarnContext(ctx, "duplicate managed dependency; the last declaration wins",
				"key", md.Key, "old", prev.version, "new", md.Version)
		}
		mvm.m[md.Key] = managedOverride{version: md.Version, scope: md.Scope}
	}
	return mvm
}

// without returns a copy of the map that has no entry for key, or mvm itself if there is no such
// entry.  The root artifact is removed from the map this way so that management never rewrites
// the artifact being resolved.
func (mvm *ManagedVersionMap) without(key PackageKey) *ManagedVersionMap {
	if _, ok := mvm.m[key]; !ok {
		return mvm
	}
	ret := &ManagedVersionMap{m: make(map[PackageKey]managedOverride, len(mvm.m)-1)}
	for k, v := range mvm.m {
		if k != key {
			ret.m[k] = v
		}
	}
	return ret
}

// Len returns the number of managed package keys.
func (mvm *ManagedVersionMap) Len() int {
	if mvm == nil {
		return 0
	}
	return len(mvm.m)
}

// Lookup returns the managed version and scope for the given key.
func (mvm *ManagedVersionMap) Lookup(key PackageKey) (version string, scope Scope, ok bool) {
	if mvm == nil {
		return "", NoScope, false
	}
	o, ok := mvm.m[key]
	return o.version, o.scope, ok
}

// Apply returns a with its version and scope replaced by the managed values for its package key.
// All other fields are untouched.  Apply is the identity when no entry matches, and applying it
// twice is the same as applying it once.
//
// Apply runs after [ResolveScope]: the override decides the final scope, but it never changes
// which scope rule fired for the edge.
func (mvm *ManagedVersionMap) Apply(a Artifact) Artifact {
	v, s, ok := mvm.Lookup(a.Key())
	if !ok {
		return a
	}
	if v != "" {
		a.Version = v
	}
	if s != NoScope {
		a.Scope = s
	}
	return a
}
