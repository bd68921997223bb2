package artifactgraph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/rhansen/artifactgraph/internal/logging"
)

type options struct {
	concurrency   int
	mediateScopes bool
}

// An Option adjusts the behavior of [Resolve].
type Option func(*options)

// WithConcurrency bounds the number of concurrent [Locator] calls.  The default is
// [runtime.GOMAXPROCS].  Values less than 1 are treated as 1.
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.concurrency = max(n, 1)
	}
}

// WithScopeMediation enables scope widening on conflicts: when the winning edge's scope is
// narrower than a losing edge's scope, the winner takes the broader scope ([Compile] is broader
// than everything, [Runtime] is broader than [Test] and [Provided]).  Winners that are direct
// dependencies of the root keep their scope.  The winner's already-resolved dependencies are not
// revisited.
func WithScopeMediation(enable bool) Option {
	return func(o *options) {
		o.mediateScopes = enable
	}
}

type slotState uint8

const (
	// slotPending: in the graph and queued for expansion.
	slotPending slotState = iota
	// slotVisited: in the graph and not queued.  expanded records the winners whose dependencies
	// were fetched; leaves (fat, optional, System) are visited without being expanded.
	slotVisited
	// slotPruned: only reached through pruned edges so far; not in the graph.
	slotPruned
)

func (s slotState) String() string {
	switch s {
	case slotPending:
		return "pending"
	case slotVisited:
		return "visited"
	case slotPruned:
		return "pruned"
	}
	return fmt.Sprintf("slotState(%d)", uint8(s))
}

// A slot is the arena cell for one package key.  The fields other than key and state are only
// meaningful when state is not slotPruned.
type slot struct {
	key        PackageKey
	state      slotState
	expanded   mapset.Set[Coordinate]
	firstDepth uint32
	edge       DependencyEdge
	contenders []DependencyEdge
	// path is the chain of coordinates from the root to the winner's declaring artifact.
	path []Coordinate
	// ancestors holds the package keys on path plus the winner's own key.
	ancestors mapset.Set[PackageKey]
	// exclusions accumulates the exclusion patterns of every edge on the winner's path, including
	// the winning edge itself.
	exclusions []PackageKey
}

// A candidate is a child edge as computed by the concurrent phase of a frontier.  Everything that
// does not depend on the graph has already been decided: exclusions, scope, overlay, cycle guard,
// properties.
type candidate struct {
	key        PackageKey
	pruned     bool
	edge       DependencyEdge
	exclusions []PackageKey
}

// An expansion is the result of loading one slot: the artifact whose dependencies were loaded
// and the resulting candidates, in declaration order.
type expansion struct {
	parent Artifact
	cands  []candidate
}

type graphBuilder struct {
	root      Coordinate
	rootSlot  *slot
	loc       Locator
	managed   *ManagedVersionMap
	policy    ConflictResolutionPolicy
	traverser FatArtifactTraverser
	opts      options

	slots []*slot
	index map[PackageKey]int
}

// Resolve walks the dependency tree of root, as reported by loc, and resolves it into a
// [ResolvedGraph] with one artifact per package key.
//
// For every declared dependency edge, in order: the exclusions accumulated along the path veto the
// edge; [ResolveScope] computes its scope (possibly pruning it); the [ManagedVersionMap] built from
// management overrides its version and scope; the cycle guard rejects or prunes it; then, if the
// package key is already in the graph, policy decides which edge wins.  [FatArtifactTraverser]
// decides whether an artifact's own dependencies are visited.  A nil policy means
// [DefaultPolicyConfig].
//
// The walk is breadth first.  The [Locator] calls of each level run concurrently (see
// [WithConcurrency]); their results are applied to the graph serially in declaration order, so the
// result does not depend on timing.
//
// Errors are terminal: Resolve returns either a complete graph or a [*ResolutionError] matching
// [ErrMissingArtifact], [ErrSelfCycle] or [ErrResolutionAborted].
func Resolve(ctx context.Context, root Coordinate, management ManagementDeclaration,
	policy ConflictResolutionPolicy, loc Locator, opts ...Option) (*ResolvedGraph, error) {

	if err := root.Check(); err != nil {
		return nil, fmt.Errorf("invalid root coordinate %v: %w", root, err)
	}
	if policy == nil {
		policy = DefaultPolicyConfig.Policy()
	}
	b := &graphBuilder{
		root:    root,
		loc:     loc,
		managed: NewManagedVersionMap(ctx, management).without(root.Key()),
		policy:  policy,
		opts:    options{concurrency: runtime.GOMAXPROCS(0)},
		index:   map[PackageKey]int{},
	}
	for _, o := range opts {
		o(&b.opts)
	}
	b.rootSlot = &slot{
		key:       root.Key(),
		state:     slotPending,
		edge:      DependencyEdge{To: root, Target: Artifact{Coordinate: root}},
		expanded:  mapset.NewThreadUnsafeSet[Coordinate](),
		ancestors: mapset.NewThreadUnsafeSet(root.Key()),
	}
	slog.DebugContext(ctx, "resolving", "root", root, "managed", b.managed.Len(),
		"concurrency", b.opts.concurrency)
	if err := walkLevels(ctx, []*slot{b.rootSlot}, b.opts.concurrency, b.load, b.visit); err != nil {
		if cause := context.Cause(ctx); cause != nil {
			return nil, &ResolutionError{Kind: ErrResolutionAborted, Coordinate: root,
				Path: []Coordinate{root}, Err: cause}
		}
		var rErr *ResolutionError
		if !errors.As(err, &rErr) {
			err = newResolutionError(ErrMissingArtifact, root, nil, err)
		}
		return nil, err
	}
	return b.freeze(), nil
}

// isRoot reports whether s is the pseudo-slot of the root artifact.
func (b *graphBuilder) isRoot(s *slot) bool {
	return s == b.rootSlot
}

// childDepth returns the depth of the edges declared by the winner of s.
func (b *graphBuilder) childDepth(s *slot) uint32 {
	if b.isRoot(s) {
		return 0
	}
	return s.edge.Depth + 1
}

// inheritedScope returns the scope the winner of s passes to its own dependencies.
func (b *graphBuilder) inheritedScope(s *slot) Scope {
	if b.isRoot(s) {
		return NoScope
	}
	return s.edge.Target.Scope
}

// load runs concurrently for every slot of a frontier.  It only reads s, which visit does not
// modify while loads are in flight.
func (b *graphBuilder) load(ctx context.Context, s *slot) (*expansion, error) {
	parent := s.edge.Target
	exp := &expansion{parent: parent}
	if !b.isRoot(s) && !b.traverser.ShouldDescend(&parent) {
		// The winner changed to a leaf after the slot was queued.
		return exp, nil
	}
	parentPath := append(slices.Clip(s.path), parent.Coordinate)
	decls, err := b.loc.DirectDependencies(ctx, parent.Coordinate)
	if err != nil {
		return nil, b.locatorError(ctx, parent.Coordinate, s.path, err)
	}
	depth := b.childDepth(s)
	inherited := b.inheritedScope(s)
	exp.cands = make([]candidate, 0, len(decls))
	for _, d := range decls {
		key := d.Coordinate.Key()
		if i := slices.IndexFunc(s.exclusions, func(p PackageKey) bool { return p.Matches(key) }); i >= 0 {
			slog.Log(ctx, logging.LevelTrace, "excluded", "from", parent.Coordinate,
				"to", d.Coordinate, "pattern", s.exclusions[i])
			continue
		}
		declared := d.Scope
		if declared == NoScope {
			declared = Compile
		}
		scope, ok := ResolveScope(declared, inherited)
		if !ok {
			slog.Log(ctx, logging.LevelTrace, "pruned by scope", "from", parent.Coordinate,
				"to", d.Coordinate, "declared", declared, "inherited", inherited)
			exp.cands = append(exp.cands, candidate{key: key, pruned: true})
			continue
		}
		target := b.managed.Apply(Artifact{Coordinate: d.Coordinate, Scope: scope, Optional: d.Optional})
		if s.ancestors.Contains(key) {
			i := slices.IndexFunc(parentPath, func(c Coordinate) bool { return c.Key() == key })
			if parentPath[i] == target.Coordinate {
				return nil, newResolutionError(ErrSelfCycle, target.Coordinate, parentPath, nil)
			}
			slog.Log(ctx, logging.LevelTrace, "pruned by cycle guard", "from", parent.Coordinate,
				"to", target.Coordinate, "ancestor", parentPath[i])
			exp.cands = append(exp.cands, candidate{key: key, pruned: true})
			continue
		}
		props, err := b.loc.Properties(ctx, target.Coordinate)
		if err != nil {
			return nil, b.locatorError(ctx, target.Coordinate, parentPath, err)
		}
		artifact := NewArtifact(target.Coordinate, target.Scope, props)
		artifact.Optional = d.Optional
		exp.cands = append(exp.cands, candidate{
			key: key,
			edge: DependencyEdge{
				From:          parent.Coordinate,
				To:            target.Coordinate,
				DeclaredScope: declared,
				Optional:      d.Optional,
				Depth:         depth,
				Target:        artifact,
			},
			exclusions: append(slices.Clip(s.exclusions), d.Exclusions...),
		})
	}
	return exp, nil
}

func (b *graphBuilder) locatorError(ctx context.Context, c Coordinate, path []Coordinate, err error) error {
	if cause := context.Cause(ctx); cause != nil {
		return cause
	}
	return newResolutionError(ErrMissingArtifact, c, path, err)
}

// visit applies the candidates of one expanded slot to the graph and returns the slots to expand
// in the next frontier.
func (b *graphBuilder) visit(ctx context.Context, s *slot, exp *expansion) ([]*slot, error) {
	switch s.state {
	case slotPending:
		if !b.isRoot(s) && (exp.parent.Coordinate != s.edge.To || exp.parent.Scope != s.edge.Target.Scope) {
			// An earlier slot of this frontier replaced the winner (or widened its scope) after the
			// dependencies were loaded.  The new winner has never been expanded; try again.
			slog.DebugContext(ctx, "winner changed before expansion; requeueing",
				"old", exp.parent, "new", s.edge.Target)
			return []*slot{s}, nil
		}
		s.state = slotVisited
		if b.isRoot(s) || b.traverser.ShouldDescend(&s.edge.Target) {
			s.expanded.Add(s.edge.To)
		}
	case slotVisited, slotPruned:
		panic(fmt.Errorf("bug: expanding %v slot %v", s.state, s.key))
	}
	var next []*slot
	for _, c := range exp.cands {
		i, ok := b.index[c.key]
		if !ok {
			// A new slot starts out empty, which is the same as pruned.
			i = len(b.slots)
			b.index[c.key] = i
			b.slots = append(b.slots, &slot{key: c.key, state: slotPruned})
		}
		if c.pruned {
			continue
		}
		if n := b.offer(ctx, s, b.slots[i], c); n != nil {
			next = append(next, n)
		}
	}
	return next, nil
}

// offer hands candidate c, declared by the winner of parent, to slot t.  It returns t if t must be
// expanded in the next frontier.
func (b *graphBuilder) offer(ctx context.Context, parent, t *slot, c candidate) *slot {
	switch t.state {
	case slotPruned:
		t.firstDepth = c.edge.Depth
		t.contenders = []DependencyEdge{c.edge}
		t.expanded = mapset.NewThreadUnsafeSet[Coordinate]()
		b.install(parent, t, c)
		if b.traverser.ShouldDescend(&t.edge.Target) {
			t.state = slotPending
			return t
		}
		slog.Log(ctx, logging.LevelTrace, "leaf", "artifact", t.edge.Target,
			"reason", b.traverser.Reason(&t.edge.Target))
		t.state = slotVisited
		return nil
	case slotPending, slotVisited:
		t.contenders = append(t.contenders, c.edge)
		winner, loser := &t.edge, &c.edge
		if b.policy(&t.edge, &c.edge) == ChooseSecond {
			slog.DebugContext(ctx, "conflict: replacing winner", "old", t.edge.String(), "new", c.edge.String())
			old := t.edge
			b.install(parent, t, c)
			winner, loser = &t.edge, &old
		} else {
			slog.Log(ctx, logging.LevelTrace, "conflict: keeping winner", "winner", t.edge.String(), "loser", c.edge.String())
		}
		if b.opts.mediateScopes && winner.Depth > 0 && broaderScope(loser.Target.Scope, winner.Target.Scope) {
			slog.DebugContext(ctx, "conflict: widening scope", "artifact", winner.To,
				"old", winner.Target.Scope, "new", loser.Target.Scope)
			winner.Target.Scope = loser.Target.Scope
		}
		// A new winner whose own dependencies were never fetched is expanded in the next frontier;
		// its dependencies then compete like any others.  The loser's dependencies stay.
		if t.state == slotVisited && !t.expanded.Contains(t.edge.To) && b.traverser.ShouldDescend(&t.edge.Target) {
			slog.DebugContext(ctx, "conflict: expanding new winner", "artifact", t.edge.Target)
			t.state = slotPending
			return t
		}
		return nil
	}
	panic(fmt.Errorf("bug: unknown slot state %v", t.state))
}

// install makes c the winning edge of t.
func (b *graphBuilder) install(parent, t *slot, c candidate) {
	t.edge = c.edge
	t.path = append(slices.Clip(parent.path), c.edge.From)
	t.ancestors = parent.ancestors.Clone()
	t.ancestors.Add(c.key)
	t.exclusions = c.exclusions
}

// broaderScope reports whether a is strictly more visible than b for scope mediation.
func broaderScope(a, b Scope) bool {
	switch a {
	case Compile:
		return b != Compile && b != System
	case Runtime:
		return b == Test || b == Provided
	}
	return false
}

// freeze copies the surviving slots into an immutable [ResolvedGraph].
func (b *graphBuilder) freeze() *ResolvedGraph {
	nodes := make([]resolvedNode, 0, len(b.slots))
	for _, s := range b.slots {
		switch s.state {
		case slotPruned:
			continue
		case slotPending:
			panic(fmt.Errorf("bug: slot %v still pending after the walk", s.key))
		case slotVisited:
			nodes = append(nodes, resolvedNode{
				edge:       s.edge,
				firstDepth: s.firstDepth,
				contenders: slices.Clone(s.contenders),
			})
		}
	}
	return newResolvedGraph(b.root, nodes)
}
