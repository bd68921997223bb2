package artifactgraph

import (
	"fmt"
	"strings"
)

// A Scope is the visibility category a dependency contributes under.  The zero value, [NoScope],
// means "absent" (e.g., the inherited scope of a direct dependency of the root).
type Scope uint8

const (
	NoScope Scope = iota
	Compile
	Runtime
	Test
	Provided
	System
)

// AllScopes lists every scope other than [NoScope], in declaration order.
var AllScopes = [...]Scope{Compile, Runtime, Test, Provided, System}

var scopeNames = [...]string{
	NoScope:  "",
	Compile:  "compile",
	Runtime:  "runtime",
	Test:     "test",
	Provided: "provided",
	System:   "system",
}

func (s Scope) String() string {
	if int(s) < len(scopeNames) {
		if s == NoScope {
			return "none"
		}
		return scopeNames[s]
	}
	return fmt.Sprintf("Scope(%d)", uint8(s))
}

// ParseScope parses a scope name case-insensitively.  The empty string parses as [Compile], the
// scope a dependency gets when its declaration does not name one.
func ParseScope(s string) (Scope, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Compile, nil
	}
	for i, n := range scopeNames {
		if i != int(NoScope) && n == s {
			return Scope(i), nil
		}
	}
	return NoScope, fmt.Errorf("invalid scope %q; expected one of: compile, runtime, test, provided, system", s)
}

func (s Scope) MarshalText() ([]byte, error) {
	if s == NoScope || int(s) >= len(scopeNames) {
		return nil, fmt.Errorf("cannot marshal %v", s)
	}
	return []byte(scopeNames[s]), nil
}

func (s *Scope) UnmarshalText(b []byte) error {
	v, err := ParseScope(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ResolveScope computes the scope of a transitive dependency from the scope it was declared with
// and the scope inherited from its parent edge ([NoScope] for direct dependencies of the root).
// The boolean result is false if the edge must be pruned.
//
// A declared [NoScope] is treated as [Compile].
//
// The rules, first match wins:
//
//  1. A System dependency stays System regardless of its ancestry.
//  2. A Test dependency reached through a Test parent is pruned.
//  3. Compile stays Compile when declared on a direct dependency or reached through a Compile
//     parent; everything else starts out as Runtime.
//  4. Test in either position makes the result Test.
//
// Provided is never produced here; it can only come from the managed-version overlay.
func ResolveScope(declared, inherited Scope) (Scope, bool) {
	if declared == NoScope {
		declared = Compile
	}
	if declared == System {
		return System, true
	}
	if declared == Test && inherited == Test {
		return NoScope, false
	}
	working := Runtime
	if declared == Compile && (inherited == NoScope || inherited == Compile) {
		working = Compile
	}
	if declared == Test || inherited == Test {
		working = Test
	}
	return working, true
}
