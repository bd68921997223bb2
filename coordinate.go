package artifactgraph

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultType is the packaging type assumed when a coordinate does not name one.
const DefaultType = "jar"

// A Coordinate identifies one specific version of a package: (group, name, version, classifier,
// type).  Coordinates are comparable values and are never mutated after construction.
type Coordinate struct {
	Group      string
	Name       string
	Version    string
	Classifier string
	Type       string
}

// A PackageKey is a [Coordinate] without its version.  Two coordinates with the same key are the
// same package, and at most one of them survives in a [ResolvedGraph].
//
// When used as an exclusion pattern, a Group or Name of "*" matches anything; see
// [PackageKey.Matches].
type PackageKey struct {
	Group      string
	Name       string
	Classifier string
	Type       string
}

// NewCoordinate constructs a [Coordinate] with no classifier and the [DefaultType].
func NewCoordinate(group, name, version string) Coordinate {
	return Coordinate{Group: group, Name: name, Version: version, Type: DefaultType}
}

// ParseCoordinate parses "group:name:version", "group:name:type:version" or
// "group:name:type:classifier:version".
func ParseCoordinate(s string) (Coordinate, error) {
	parts := strings.Split(s, ":")
	var c Coordinate
	switch len(parts) {
	case 3:
		c = Coordinate{Group: parts[0], Name: parts[1], Version: parts[2], Type: DefaultType}
	case 4:
		c = Coordinate{Group: parts[0], Name: parts[1], Type: parts[2], Version: parts[3]}
	case 5:
		c = Coordinate{Group: parts[0], Name: parts[1], Type: parts[2], Classifier: parts[3], Version: parts[4]}
	default:
		return Coordinate{}, fmt.Errorf("invalid coordinate %q: want group:name[:type[:classifier]]:version", s)
	}
	if err := c.Check(); err != nil {
		return Coordinate{}, fmt.Errorf("invalid coordinate %q: %w", s, err)
	}
	return c, nil
}

// MustParseCoordinate is like [ParseCoordinate] but panics on error.
func MustParseCoordinate(s string) Coordinate {
	c, err := ParseCoordinate(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Check asserts that the group, name, version and type are non-empty.
func (c Coordinate) Check() error {
	switch {
	case c.Group == "":
		return errors.New("group is the empty string")
	case c.Name == "":
		return errors.New("name is the empty string")
	case c.Version == "":
		return errors.New("version is the empty string")
	case c.Type == "":
		return errors.New("type is the empty string")
	}
	return nil
}

// Key returns the version-independent identity of the coordinate.
func (c Coordinate) Key() PackageKey {
	return PackageKey{Group: c.Group, Name: c.Name, Classifier: c.Classifier, Type: c.Type}
}

// WithVersion returns a copy of c with its version replaced.
func (c Coordinate) WithVersion(v string) Coordinate {
	c.Version = v
	return c
}

func (c Coordinate) String() string {
	var sb strings.Builder
	sb.WriteString(c.Group)
	sb.WriteByte(':')
	sb.WriteString(c.Name)
	if c.Type != DefaultType || c.Classifier != "" {
		sb.WriteByte(':')
		sb.WriteString(c.Type)
		if c.Classifier != "" {
			sb.WriteByte(':')
			sb.WriteString(c.Classifier)
		}
	}
	sb.WriteByte(':')
	sb.WriteString(c.Version)
	return sb.String()
}

// CoordinateCompare orders coordinates lexicographically by group, name, version, classifier and
// type, in that order.  It is the secondary sort key of [ResolvedGraph.Entries].
func CoordinateCompare(a, b Coordinate) int {
	for _, p := range [...][2]string{
		{a.Group, b.Group},
		{a.Name, b.Name},
		{a.Version, b.Version},
		{a.Classifier, b.Classifier},
		{a.Type, b.Type},
	} {
		if c := strings.Compare(p[0], p[1]); c != 0 {
			return c
		}
	}
	return 0
}

// ParsePackageKey parses "group:name", "group:name:type" or "group:name:type:classifier".  A
// missing type defaults to [DefaultType]; "*" is accepted for the group and name.
func ParsePackageKey(s string) (PackageKey, error) {
	parts := strings.Split(s, ":")
	k := PackageKey{Type: DefaultType}
	switch len(parts) {
	case 4:
		k.Classifier = parts[3]
		fallthrough
	case 3:
		k.Type = parts[2]
		fallthrough
	case 2:
		k.Group, k.Name = parts[0], parts[1]
	default:
		return PackageKey{}, fmt.Errorf("invalid package key %q: want group:name[:type[:classifier]]", s)
	}
	if k.Group == "" || k.Name == "" || k.Type == "" {
		return PackageKey{}, fmt.Errorf("invalid package key %q: empty component", s)
	}
	return k, nil
}

// MustParsePackageKey is like [ParsePackageKey] but panics on error.
func MustParsePackageKey(s string) PackageKey {
	k, err := ParsePackageKey(s)
	if err != nil {
		panic(err)
	}
	return k
}

// ParseExclusion parses an exclusion pattern of the form "group:name".  Unlike [ParsePackageKey],
// the type and classifier are left empty so the pattern matches every type and classifier.
func ParseExclusion(s string) (PackageKey, error) {
	group, name, ok := strings.Cut(s, ":")
	if !ok || group == "" || name == "" || strings.Contains(name, ":") {
		return PackageKey{}, fmt.Errorf("invalid exclusion %q: want group:name", s)
	}
	return PackageKey{Group: group, Name: name}, nil
}

// Matches reports whether the exclusion pattern k matches the package key o.  A "*" group or name
// matches any value; an empty type or classifier in the pattern matches any value too, so that
// excluding "g:n" covers every classifier and type of that package.
func (k PackageKey) Matches(o PackageKey) bool {
	match := func(pat, v string, emptyIsWild bool) bool {
		return pat == "*" || pat == v || (emptyIsWild && pat == "")
	}
	return match(k.Group, o.Group, false) &&
		match(k.Name, o.Name, false) &&
		match(k.Type, o.Type, true) &&
		match(k.Classifier, o.Classifier, true)
}

func (k PackageKey) String() string {
	s := k.Group + ":" + k.Name
	if k.Type != DefaultType || k.Classifier != "" {
		s += ":" + k.Type
		if k.Classifier != "" {
			s += ":" + k.Classifier
		}
	}
	return s
}
