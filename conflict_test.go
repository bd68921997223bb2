package artifactgraph_test

import (
	"fmt"
	"slices"
	"testing"

	. "github.com/rhansen/artifactgraph"
)

func edge(from, to string, depth uint32) *DependencyEdge {
	c := MustParseCoordinate(to)
	return &DependencyEdge{
		From:          MustParseCoordinate(from),
		To:            c,
		DeclaredScope: Compile,
		Depth:         depth,
		Target:        NewArtifact(c, Compile, nil),
	}
}

func TestConflictResolutionPolicy(t *testing.T) {
	t.Parallel()
	near1 := edge("g:a:1", "g:x:1.0", 0)
	near2 := edge("g:b:1", "g:x:2.0", 0)
	far1 := edge("g:c:1", "g:x:1.0", 3)
	far2 := edge("g:d:1", "g:x:2.0", 3)
	for _, tc := range []struct {
		cfg          ConflictResolutionPolicyConfig
		e1, e2, want *DependencyEdge
	}{
		{DefaultPolicyConfig, near1, far2, near1},
		{DefaultPolicyConfig, near1, near2, near2},
		{DefaultPolicyConfig, far1, far2, far2},
		{ConflictResolutionPolicyConfig{CloserFirst: false, NewerFirst: true}, near1, far2, far2},
		{ConflictResolutionPolicyConfig{CloserFirst: false, NewerFirst: true}, near2, far1, far1},
		{ConflictResolutionPolicyConfig{CloserFirst: true, NewerFirst: false}, near1, near2, near1},
		{ConflictResolutionPolicyConfig{CloserFirst: true, NewerFirst: false}, near2, far1, near2},
		{ConflictResolutionPolicyConfig{CloserFirst: false, NewerFirst: false}, far1, far2, far1},
		{ConflictResolutionPolicyConfig{CloserFirst: false, NewerFirst: false}, near2, far1, far1},
	} {
		t.Run(fmt.Sprintf("%+v/%v/%v", tc.cfg, tc.e1, tc.e2), func(t *testing.T) {
			t.Parallel()
			if got := tc.cfg.Policy().Apply(tc.e1, tc.e2); got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestConflictResolutionPolicy_EqualVersionsKeepFirst(t *testing.T) {
	t.Parallel()
	e1 := edge("g:a:1", "g:x:1.0", 1)
	e2 := edge("g:b:1", "g:x:1.0", 1)
	for _, cfg := range allPolicyConfigs() {
		if got := cfg.Policy()(e1, e2); got != ChooseFirst {
			t.Errorf("%+v: got %v, want %v", cfg, got, ChooseFirst)
		}
	}
	if got := NewestWins(e1, e2); got != ChooseFirst {
		t.Errorf("NewestWins: got %v, want %v", got, ChooseFirst)
	}
}

func allPolicyConfigs() []ConflictResolutionPolicyConfig {
	var ret []ConflictResolutionPolicyConfig
	for _, closer := range []bool{true, false} {
		for _, newer := range []bool{true, false} {
			ret = append(ret, ConflictResolutionPolicyConfig{CloserFirst: closer, NewerFirst: newer})
		}
	}
	return ret
}

func TestConflictResolutionPolicy_Symmetry(t *testing.T) {
	t.Parallel()
	versions := []string{"1.0", "1.0.1", "1.1-SNAPSHOT", "1.1", "1.10", "2.0-rc1", "2.0", "2.0.0.Final"}
	var edges []*DependencyEdge
	for _, v := range versions {
		for depth := range uint32(3) {
			edges = append(edges, edge(fmt.Sprintf("g:p%d:1", depth), "g:x:"+v, depth))
		}
	}
	policies := map[string]ConflictResolutionPolicy{"NewestWins": NewestWins}
	for _, cfg := range allPolicyConfigs() {
		policies[fmt.Sprintf("%+v", cfg)] = cfg.Policy()
	}
	for name, p := range policies {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			for _, e1 := range edges {
				for _, e2 := range edges {
					a, b := p.Apply(e1, e2), p.Apply(e2, e1)
					if a.To != b.To {
						t.Errorf("Apply(%v, %v) selects %v but the swapped call selects %v", e1, e2, a.To, b.To)
					}
				}
			}
		})
	}
}

func TestConflictResolutionPolicy_OrderIndependent(t *testing.T) {
	t.Parallel()
	versions := []string{"1.0.0-SNAPSHOT", "1.0.0-rc1", "1.0.0-rc1.x_y", "1.0", "1.0.0.Final", "1.0-sp1"}
	policies := map[string]ConflictResolutionPolicy{"NewestWins": NewestWins}
	for _, cfg := range allPolicyConfigs() {
		policies[fmt.Sprintf("%+v", cfg)] = cfg.Policy()
	}
	for name, p := range policies {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			for _, vs := range [][]string{versions[:3], versions[3:], versions} {
				var want Coordinate
				for i, perm := range permutations(len(vs)) {
					var winner *DependencyEdge
					for _, j := range perm {
						e := edge(fmt.Sprintf("g:p%d:1", j), "g:x:"+vs[j], 1)
						if winner == nil {
							winner = e
						} else {
							winner = p.Apply(winner, e)
						}
					}
					if i == 0 {
						want = winner.To
					} else if winner.To != want {
						t.Errorf("versions %v in order %v: got winner %v, want %v", vs, perm, winner.To, want)
					}
				}
			}
		})
	}
}

// permutations returns every ordering of 0..n-1.
func permutations(n int) [][]int {
	if n == 0 {
		return [][]int{nil}
	}
	var ret [][]int
	for _, p := range permutations(n - 1) {
		for i := 0; i <= len(p); i++ {
			q := append(append(slices.Clone(p[:i]), n-1), p[i:]...)
			ret = append(ret, q)
		}
	}
	return ret
}
