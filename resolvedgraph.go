package artifactgraph

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"slices"

	"github.com/rhansen/artifactgraph/internal/itertools"
)

// A ResolvedEntry is one line of the serialized form of a [ResolvedGraph].
type ResolvedEntry struct {
	Coordinate Coordinate
	Scope      Scope
}

func (e ResolvedEntry) String() string {
	return e.Coordinate.String() + " " + e.Scope.String()
}

type resolvedNode struct {
	edge       DependencyEdge // Winning edge; edge.Target is the artifact.
	firstDepth uint32
	contenders []DependencyEdge
}

// A ResolvedGraph is the result of [Resolve]: exactly one [Artifact] per [PackageKey] reachable
// from the root, plus the edges that competed for each key.  The root itself is not an entry.
// A ResolvedGraph is immutable and safe for concurrent use.
//
// The depth of first discovery of a package key is the depth of the first edge that brought the key
// into the graph, in walk order.  It does not change when a later edge wins the key, even when
// that edge is shallower (a replaced winner's dependencies can arrive a level late).
type ResolvedGraph struct {
	root     Coordinate
	nodes    []resolvedNode // In serialization order.
	index    map[PackageKey]int
	children map[PackageKey][]int
}

// newResolvedGraph sorts the nodes into serialization order (ascending depth of first discovery,
// then [CoordinateCompare]) and indexes them.
func newResolvedGraph(root Coordinate, nodes []resolvedNode) *ResolvedGraph {
	slices.SortStableFunc(nodes, func(a, b resolvedNode) int {
		switch {
		case a.firstDepth < b.firstDepth:
			return -1
		case a.firstDepth > b.firstDepth:
			return 1
		}
		return CoordinateCompare(a.edge.To, b.edge.To)
	})
	g := &ResolvedGraph{
		root:     root,
		nodes:    nodes,
		index:    make(map[PackageKey]int, len(nodes)),
		children: map[PackageKey][]int{},
	}
	for i, n := range nodes {
		g.index[n.edge.To.Key()] = i
		p := n.edge.From.Key()
		g.children[p] = append(g.children[p], i)
	}
	return g
}

// Root returns the coordinate the graph was resolved from.
func (g *ResolvedGraph) Root() Coordinate {
	return g.root
}

// Len returns the number of resolved artifacts.
func (g *ResolvedGraph) Len() int {
	return len(g.nodes)
}

// Get returns the winning artifact for the given package key.
func (g *ResolvedGraph) Get(key PackageKey) (Artifact, bool) {
	i, ok := g.index[key]
	if !ok {
		return Artifact{}, false
	}
	return g.nodes[i].edge.Target, true
}

// Edge returns the edge that contributed the winning artifact for the given package key.
func (g *ResolvedGraph) Edge(key PackageKey) (DependencyEdge, bool) {
	i, ok := g.index[key]
	if !ok {
		return DependencyEdge{}, false
	}
	return g.nodes[i].edge, true
}

// Contenders returns every edge that targeted the given package key during the resolution, in the
// order they arrived, including the winner.  Edges that were pruned or excluded are not included.
func (g *ResolvedGraph) Contenders(key PackageKey) []DependencyEdge {
	i, ok := g.index[key]
	if !ok {
		return nil
	}
	return slices.Clone(g.nodes[i].contenders)
}

// Artifacts yields the resolved artifacts in serialization order.
func (g *ResolvedGraph) Artifacts() iter.Seq[Artifact] {
	return itertools.Map(slices.Values(g.nodes), func(n resolvedNode) Artifact { return n.edge.Target })
}

// DirectDeps yields the artifacts whose winning edge was declared by the package with the given
// key, in serialization order.  Pass the root's key to get the root's direct dependencies.
//
// The declaring artifact may have lost a conflict after its dependencies were expanded, so the
// winning edge's From coordinate can have a different version than [ResolvedGraph.Get] returns for
// the key.
func (g *ResolvedGraph) DirectDeps(key PackageKey) iter.Seq[Artifact] {
	return itertools.Map(slices.Values(g.children[key]), func(i int) Artifact { return g.nodes[i].edge.Target })
}

// MaxDepth returns the greatest depth at which a package was first discovered.
func (g *ResolvedGraph) MaxDepth() uint32 {
	if len(g.nodes) == 0 {
		return 0
	}
	return g.nodes[len(g.nodes)-1].firstDepth
}

// Level yields the artifacts whose package key was first discovered at the given depth.
func (g *ResolvedGraph) Level(depth uint32) iter.Seq[Artifact] {
	return itertools.Map(
		itertools.Filter(slices.Values(g.nodes), func(n resolvedNode) bool { return n.firstDepth == depth }),
		func(n resolvedNode) Artifact { return n.edge.Target })
}

// Entries returns the serialized form of the graph: one (coordinate, scope) pair per package key,
// ordered by ascending depth of first discovery, then lexicographically by coordinate.
func (g *ResolvedGraph) Entries() []ResolvedEntry {
	ret := make([]ResolvedEntry, 0, len(g.nodes))
	for a := range g.Artifacts() {
		ret = append(ret, ResolvedEntry{Coordinate: a.Coordinate, Scope: a.Scope})
	}
	return ret
}

// WriteTo writes [ResolvedGraph.Entries] to w, one "coordinate scope" line per entry.
func (g *ResolvedGraph) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64
	for _, e := range g.Entries() {
		m, err := fmt.Fprintln(bw, e)
		n += int64(m)
		if err != nil {
			return n, err
		}
	}
	return n, bw.Flush()
}
