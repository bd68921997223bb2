package artifactgraph_test

import (
	"fmt"
	"testing"

	. "github.com/rhansen/artifactgraph"
)

func TestResolveScope(t *testing.T) {
	t.Parallel()
	const pruned = Scope(255)
	// want[declared][inherited]; pruned means the edge is dropped.
	want := map[Scope]map[Scope]Scope{
		Compile: {
			NoScope:  Compile,
			Compile:  Compile,
			Runtime:  Runtime,
			Test:     Test,
			Provided: Runtime,
			System:   Runtime,
		},
		Runtime: {
			NoScope:  Runtime,
			Compile:  Runtime,
			Runtime:  Runtime,
			Test:     Test,
			Provided: Runtime,
			System:   Runtime,
		},
		Test: {
			NoScope:  Test,
			Compile:  Test,
			Runtime:  Test,
			Test:     pruned,
			Provided: Test,
			System:   Test,
		},
		Provided: {
			NoScope:  Runtime,
			Compile:  Runtime,
			Runtime:  Runtime,
			Test:     Test,
			Provided: Runtime,
			System:   Runtime,
		},
		System: {
			NoScope:  System,
			Compile:  System,
			Runtime:  System,
			Test:     System,
			Provided: System,
			System:   System,
		},
	}
	n := 0
	for _, declared := range AllScopes {
		for _, inherited := range append([]Scope{NoScope}, AllScopes[:]...) {
			n++
			t.Run(fmt.Sprintf("%v/%v", declared, inherited), func(t *testing.T) {
				t.Parallel()
				got, ok := ResolveScope(declared, inherited)
				w := want[declared][inherited]
				if w == pruned {
					if ok {
						t.Errorf("got %v, want pruned", got)
					}
					return
				}
				if !ok || got != w {
					t.Errorf("got (%v, %v), want (%v, true)", got, ok, w)
				}
			})
		}
	}
	if n != 30 {
		t.Errorf("checked %v combinations, want 30", n)
	}
}

func TestResolveScope_NoScopeIsCompile(t *testing.T) {
	t.Parallel()
	for _, inherited := range append([]Scope{NoScope}, AllScopes[:]...) {
		got, gotOK := ResolveScope(NoScope, inherited)
		want, wantOK := ResolveScope(Compile, inherited)
		if got != want || gotOK != wantOK {
			t.Errorf("inherited %v: got (%v, %v), want (%v, %v)", inherited, got, gotOK, want, wantOK)
		}
	}
}

func TestParseScope(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		in      string
		want    Scope
		wantErr bool
	}{
		{"compile", Compile, false},
		{"Runtime", Runtime, false},
		{" TEST ", Test, false},
		{"provided", Provided, false},
		{"system", System, false},
		{"", Compile, false},
		{"none", NoScope, true},
		{"import", NoScope, true},
	} {
		got, err := ParseScope(tc.in)
		if (err != nil) != tc.wantErr || got != tc.want {
			t.Errorf("ParseScope(%q) = (%v, %v), want (%v, error: %v)", tc.in, got, err, tc.want, tc.wantErr)
		}
	}
	for _, s := range AllScopes {
		b, err := s.MarshalText()
		if err != nil {
			t.Fatal(err)
		}
		var got Scope
		if err := got.UnmarshalText(b); err != nil || got != s {
			t.Errorf("round trip of %v: got (%v, %v)", s, got, err)
		}
	}
	if _, err := NoScope.MarshalText(); err == nil {
		t.Errorf("marshaling NoScope succeeded")
	}
}
