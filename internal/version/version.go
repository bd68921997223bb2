// Package version orders artifact version strings.
//
// Every version string is first reduced to a list of numeric and qualifier tokens, and all
// versions are ordered by comparing those lists; there is exactly one order, whatever the shape of
// the strings.  Semantic versions (with or without a leading "v", including loose forms such as
// "1.2-beta") are parsed by [github.com/Masterminds/semver/v3]; everything else ("1.0.0.Final",
// "r09") is split on separators and digit/letter transitions.  Release versions that are valid
// for [golang.org/x/mod/semver] on both sides are compared by it directly, which agrees with the
// token order.
//
// Zero components before a qualifier or at the end are insignificant ("1.0-rc" equals "1-rc"), as
// are trailing release qualifiers ("1.0.Final" equals "1").  Known qualifiers are ordered alpha <
// beta < milestone < rc < snapshot < release < sp < anything else.
package version

import (
	"strconv"
	"strings"

	mm "github.com/Masterminds/semver/v3"
	"golang.org/x/mod/semver"
)

// Compare returns -1, 0, or +1 depending on whether a is older than, equal to, or newer than b.
// The order is total: distinct strings that denote the same version ("1.0" and "1.0.0") are
// ordered by plain string comparison, so Compare returns 0 only for identical strings.
func Compare(a, b string) int {
	if a == b {
		return 0
	}
	if sa, sb := release(a), release(b); sa != "" && sb != "" {
		if c := semver.Compare(sa, sb); c != 0 {
			return c
		}
		// "1.2" and "1.2.0" are equal according to semver but they are still different strings;
		// keep the ordering total.
		return strings.Compare(a, b)
	}
	if c := compareTokens(parse(a), parse(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// Less reports whether a is strictly older than b.
func Less(a, b string) bool {
	return Compare(a, b) < 0
}

func trimV(v string) string {
	return strings.TrimPrefix(v, "v")
}

// release returns v in canonical x/mod form if it is a semantic version without prerelease or
// build suffixes whose components fit in a token, or "" otherwise.
func release(v string) string {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) || semver.Prerelease(v) != "" || semver.Build(v) != "" {
		return ""
	}
	for _, c := range strings.Split(trimV(v), ".") {
		if _, err := strconv.ParseUint(c, 10, 64); err != nil {
			return ""
		}
	}
	return v
}

// hasExtraComponents reports whether the numeric part of v has more than three dot-separated
// components, which Masterminds would otherwise reject or silently misread.
func hasExtraComponents(v string) bool {
	core, _, _ := strings.Cut(trimV(v), "-")
	core, _, _ = strings.Cut(core, "+")
	return strings.Count(core, ".") > 2
}

// parse reduces v to its normalized token list.
func parse(v string) []token {
	if !hasExtraComponents(v) {
		if sv, err := mm.NewVersion(v); err == nil {
			toks := []token{numToken(sv.Major()), numToken(sv.Minor()), numToken(sv.Patch())}
			if pre := sv.Prerelease(); pre != "" {
				toks = append(toks, tokenize(pre)...)
			}
			return normalize(toks)
		}
	}
	return normalize(tokenize(trimV(v)))
}

type token struct {
	num bool
	n   uint64
	s   string
}

func numToken(n uint64) token {
	return token{num: true, n: n, s: strconv.FormatUint(n, 10)}
}

func tokenize(v string) []token {
	var toks []token
	cur := strings.Builder{}
	flush := func() {
		if cur.Len() == 0 {
			return
		}
		s := cur.String()
		t := token{s: strings.ToLower(s)}
		if n, err := strconv.ParseUint(s, 10, 64); err == nil {
			t.num, t.n = true, n
		}
		toks = append(toks, t)
		cur.Reset()
	}
	prevDigit := false
	for _, r := range v {
		isDigit := r >= '0' && r <= '9'
		switch {
		case r == '.' || r == '-' || r == '_' || r == '+':
			flush()
		case cur.Len() > 0 && isDigit != prevDigit:
			// Transitions between digits and letters split tokens ("1alpha2" -> 1, alpha, 2).
			flush()
			cur.WriteRune(r)
		default:
			cur.WriteRune(r)
		}
		prevDigit = isDigit
	}
	flush()
	return toks
}

// normalize drops the insignificant tokens of toks: zeros followed by a qualifier or by nothing,
// and release qualifiers followed by nothing.
func normalize(toks []token) []token {
	var keep []token
	qualifierOrEnd := true
	for i := len(toks) - 1; i >= 0; i-- {
		t := toks[i]
		zero := t.num && t.n == 0
		if qualifierOrEnd && (zero || (len(keep) == 0 && isReleaseQualifier(t))) {
			continue
		}
		keep = append(keep, t)
		qualifierOrEnd = !t.num
	}
	for i, j := 0, len(keep)-1; i < j; i, j = i+1, j-1 {
		keep[i], keep[j] = keep[j], keep[i]
	}
	return keep
}

// qualifierRank follows the usual well-known qualifier order; unknown qualifiers sort after all
// known ones, alphabetically.
var qualifierRank = map[string]int{
	"alpha":     1,
	"a":         1,
	"beta":      2,
	"b":         2,
	"milestone": 3,
	"m":         3,
	"rc":        4,
	"cr":        4,
	"snapshot":  5,
	"":          6,
	"ga":        6,
	"final":     6,
	"release":   6,
	"sp":        7,
}

func isReleaseQualifier(t token) bool {
	return !t.num && qualifierRank[t.s] == 6 && t.s != ""
}

func rank(t token) int {
	if r, ok := qualifierRank[t.s]; ok {
		return r
	}
	return 8
}

func compareToken(a, b token) int {
	switch {
	case a.num && b.num:
		switch {
		case a.n < b.n:
			return -1
		case a.n > b.n:
			return 1
		}
		return 0
	case a.num:
		// Numbers are newer than qualifiers ("1.1" > "1-rc").
		return 1
	case b.num:
		return -1
	}
	if ra, rb := rank(a), rank(b); ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	return strings.Compare(a.s, b.s)
}

func compareTokens(a, b []token) int {
	for i := 0; i < len(a) || i < len(b); i++ {
		switch {
		case i >= len(a):
			return -compareToken(b[i], token{})
		case i >= len(b):
			return compareToken(a[i], token{})
		}
		if c := compareToken(a[i], b[i]); c != 0 {
			return c
		}
	}
	return 0
}
