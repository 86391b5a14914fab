// Package constraint implements the bpkg dependency version-constraint
// language: closed/open range endpoints, shortcut operators ~/^ that expand
// to standard-version windows, comparison operators, and dependent-relative
// $ endpoints that require a later effective() completion.
package constraint

import (
	"strings"

	"github.com/blang/semver/v4"

	"github.com/build2/libbpkg-sub000/bpkgerror"
	"github.com/build2/libbpkg-sub000/version"
)

// Constraint is a version range (min, max), each endpoint either absent
// (open to infinity), present and concrete, or present-and-empty, which is
// the "$" sentinel meaning "the dependent package's own version" and must
// be resolved via Effective before use.
type Constraint struct {
	Min     *version.Version
	MinOpen bool
	Max     *version.Version
	MaxOpen bool
}

func vbad(format string, args ...any) error {
	return bpkgerror.New(bpkgerror.Value, format, args...)
}

// isDependent reports whether v is the "$" sentinel (an empty version used as
// a placeholder endpoint).
func isDependent(v *version.Version) bool {
	return v != nil && v.IsEmpty()
}

// New constructs and validates a Constraint the way the parser does,
// enforcing the invariants of spec.md §4.2.
func New(min *version.Version, minOpen bool, max *version.Version, maxOpen bool) (Constraint, error) {
	if min == nil && max == nil {
		return Constraint{}, vbad("min and max versions can't both be absent")
	}
	if min == nil && !minOpen {
		return Constraint{}, vbad("absent min endpoint must be open")
	}
	if max == nil && !maxOpen {
		return Constraint{}, vbad("absent max endpoint must be open")
	}

	c := Constraint{Min: min, MinOpen: minOpen, Max: max, MaxOpen: maxOpen}

	if min != nil && max != nil {
		maxEmpty := max.IsEmpty()

		if min.Compare(*max, false, false) > 0 && !maxEmpty {
			// Allow the (X+Y X] / [X+Y X] corner case: any revision of
			// version X greater than or equal to X.
			ok := !maxOpen && max.Revision == nil &&
				max.Compare(*min, true, false) == 0
			if !ok {
				return Constraint{}, vbad("min version is greater than max version")
			}
		}

		if min.Compare(*max, false, false) == 0 {
			if !maxEmpty && (minOpen || maxOpen) {
				return Constraint{}, vbad("equal version endpoints not closed")
			}
			if maxEmpty && minOpen && maxOpen {
				return Constraint{}, vbad("equal version endpoints not closed")
			}
			if !maxEmpty && max.Release.Kind == version.ReleaseEarliest {
				return Constraint{}, vbad("equal version endpoints are earliest")
			}
		}
	}

	return c, nil
}

// Empty reports whether the constraint carries no endpoints at all. A
// validly-constructed Constraint is never empty; this mirrors the source's
// defensive accessor for a zero-value Constraint{}.
func (c Constraint) Empty() bool { return c.Min == nil && c.Max == nil }

// Complete reports whether neither endpoint is the "$" dependent sentinel.
func (c Constraint) Complete() bool {
	return (c.Min == nil || !c.Min.IsEmpty()) && (c.Max == nil || !c.Max.IsEmpty())
}

func endpointFlags() version.ParseFlags {
	return version.ParseFlags{FoldZeroRevision: false, AllowIteration: false}
}

func parseEndpoint(s string) (*version.Version, error) {
	if s == "$" {
		e := version.Empty()
		return &e, nil
	}
	v, err := version.Parse(s, endpointFlags())
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Parse parses one of the constraint syntax forms: a range "(A B)" / "(A B]"
// / "[A B)" / "[A B]"; a comparison "== v" / ">= v" / "<= v" / "> v" / "< v";
// or a shortcut "~v" / "^v" (over a standard version) / "~$" / "^$" (over
// the dependent version).
func Parse(text string) (Constraint, error) {
	if text == "" {
		return Constraint{}, vbad("empty constraint")
	}

	switch text[0] {
	case '(', '[':
		return parseRange(text)
	case '~', '^':
		return parseShortcut(text)
	default:
		return parseComparison(text)
	}
}

func parseRange(text string) (Constraint, error) {
	minOpen := text[0] == '('
	rest := strings.TrimLeft(text[1:], " \t")
	if rest == "" {
		return Constraint{}, vbad("no min version specified")
	}

	sp := strings.IndexAny(rest, " \t")
	if sp < 0 {
		return Constraint{}, vbad("no max version specified")
	}
	minText := rest[:sp]
	rest = strings.TrimLeft(rest[sp:], " \t")
	if rest == "" {
		return Constraint{}, vbad("no max version specified")
	}

	end := strings.IndexAny(rest, " \t])")
	if end < 0 {
		return Constraint{}, vbad("invalid version range")
	}
	maxText := rest[:end]

	closer := strings.TrimLeft(rest[end:], " \t")
	if closer == "" || (closer[0] != ')' && closer[0] != ']') {
		return Constraint{}, vbad("invalid version range")
	}
	if len(closer) != 1 {
		return Constraint{}, vbad("unexpected text after version range")
	}
	maxOpen := closer[0] == ')'

	min, err := parseEndpoint(minText)
	if err != nil {
		return Constraint{}, vbad("invalid min version: %s", err)
	}
	max, err := parseEndpoint(maxText)
	if err != nil {
		return Constraint{}, vbad("invalid max version: %s", err)
	}

	return New(min, minOpen, max, maxOpen)
}

func parseComparison(text string) (Constraint, error) {
	var op string
	var rest string

	switch {
	case strings.HasPrefix(text, "=="):
		op, rest = "==", text[2:]
	case strings.HasPrefix(text, ">="):
		op, rest = ">=", text[2:]
	case strings.HasPrefix(text, "<="):
		op, rest = "<=", text[2:]
	case text[0] == '>':
		op, rest = ">", text[1:]
	case text[0] == '<':
		op, rest = "<", text[1:]
	default:
		return Constraint{}, vbad("invalid version comparison")
	}

	rest = strings.TrimLeft(rest, " \t")
	if rest == "" {
		return Constraint{}, vbad("no version specified")
	}

	v, err := parseEndpoint(rest)
	if err != nil {
		return Constraint{}, vbad("invalid version: %s", err)
	}

	switch op {
	case "==":
		return New(v, false, v, false)
	case "<":
		return New(nil, true, v, true)
	case "<=":
		return New(nil, true, v, false)
	case ">":
		return New(v, true, nil, true)
	case ">=":
		return New(v, false, nil, true)
	}
	panic("unreachable")
}

func parseShortcut(text string) (Constraint, error) {
	op := text[0]
	rest := strings.TrimLeft(text[1:], " \t")

	if rest == "$" {
		e := version.Empty()
		return New(&e, op == '~', &e, op == '^')
	}

	sv, err := semver.Parse(rest)
	if err != nil {
		return Constraint{}, vbad("invalid standard version for shortcut operator: %s", err)
	}

	minV, err := version.Parse(sv.String(), endpointFlags())
	if err != nil {
		return Constraint{}, vbad("invalid standard version for shortcut operator: %s", err)
	}

	var bumped semver.Version
	if op == '~' {
		bumped = semver.Version{Major: sv.Major, Minor: sv.Minor + 1, Patch: 0}
	} else {
		bumped = semver.Version{Major: sv.Major + 1, Minor: 0, Patch: 0}
	}

	maxV, err := version.Parse(bumped.String()+"-", endpointFlags())
	if err != nil {
		return Constraint{}, vbad("invalid standard version for shortcut operator: %s", err)
	}

	return New(&minV, false, &maxV, true)
}

// Effective returns the completed constraint if it refers to the dependent
// package version, or a copy of itself otherwise.
func (c Constraint) Effective(dependent version.Version) (Constraint, error) {
	if dependent.IsEmpty() {
		return Constraint{}, vbad("dependent version is empty")
	}
	if dependent.Release.Kind == version.ReleaseEarliest {
		return Constraint{}, vbad("dependent version is earliest")
	}

	stripped, err := version.New(dependent.Epoch, dependent.Upstream, dependent.Release, nil, 0)
	if err != nil {
		return Constraint{}, err
	}

	// Shortcut-over-dependent case: both endpoints are the "$" sentinel and
	// exactly one side is open.
	if isDependent(c.Min) && isDependent(c.Max) && (c.MinOpen || c.MaxOpen) {
		op := byte('~')
		if c.MaxOpen {
			op = '^'
		}
		shortcut := string(op) + stripped.String(false, false)
		return Parse(shortcut)
	}

	min, max := c.Min, c.Max
	if isDependent(min) {
		v := stripped
		min = &v
	}
	if isDependent(max) {
		v := stripped
		max = &v
	}

	return New(min, c.MinOpen, max, c.MaxOpen)
}

// String renders the constraint back to its canonical textual form.
func (c Constraint) String() string {
	if c.Empty() {
		bpkgerror.Logicf("empty constraint")
	}

	render := func(v *version.Version) string {
		if v.IsEmpty() {
			return "$"
		}
		return v.String(false, false)
	}

	if c.Min == nil {
		op := "<= "
		if c.MaxOpen {
			op = "< "
		}
		return op + render(c.Max)
	}
	if c.Max == nil {
		op := ">= "
		if c.MinOpen {
			op = "> "
		}
		return op + render(c.Min)
	}
	if c.Min.Equal(*c.Max) && !c.Min.IsEmpty() {
		return "== " + render(c.Min)
	}
	if isDependent(c.Min) && isDependent(c.Max) {
		if c.MinOpen {
			return "~$"
		}
		if c.MaxOpen {
			return "^$"
		}
		return "== $"
	}

	open, close := "[", "]"
	if c.MinOpen {
		open = "("
	}
	if c.MaxOpen {
		close = ")"
	}
	return open + render(c.Min) + " " + render(c.Max) + close
}

// Equal reports structural equality of the two constraints.
func (c Constraint) Equal(o Constraint) bool {
	eqv := func(a, b *version.Version) bool {
		if a == nil || b == nil {
			return a == b
		}
		return a.Equal(*b)
	}
	return eqv(c.Min, o.Min) && eqv(c.Max, o.Max) && c.MinOpen == o.MinOpen && c.MaxOpen == o.MaxOpen
}

// Contains reports whether v satisfies a complete (non-dependent)
// constraint. An endpoint without a revision stands for any revision: it
// is compared ignoring revision on an open min or a closed max side.
func (c Constraint) Contains(v version.Version) bool {
	if c.Min != nil {
		cmp := v.Compare(*c.Min, c.Min.Revision == nil && c.MinOpen, false)
		if cmp < 0 || (cmp == 0 && c.MinOpen) {
			return false
		}
	}
	if c.Max != nil {
		cmp := v.Compare(*c.Max, c.Max.Revision == nil && !c.MaxOpen, false)
		if cmp > 0 || (cmp == 0 && c.MaxOpen) {
			return false
		}
	}
	return true
}
