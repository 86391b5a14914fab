// Package version implements the bpkg version grammar: a multi-component
// version with epoch, upstream, release, revision, and iteration parts, its
// canonical form, and the total order derived from that form.
//
// Textual form: [+<epoch>-]<upstream>[-<release>][+<revision>][#<iteration>]
package version

import (
	"strconv"
	"strings"

	"github.com/build2/libbpkg-sub000/bpkgerror"
)

// componentWidth is the zero-padding width used for the canonical form of a
// numeric version component. Two dialects of the manifest format coexist in
// the wild (8 and 16 digits); this package implements the newer, 16-digit
// dialect (spec.md §9 Open Questions).
const componentWidth = 16

// ReleaseKind distinguishes the three release slots a version can occupy.
type ReleaseKind int

const (
	// ReleaseFinal means no release part was given ("-" suffix absent). It
	// canonicalizes to "~", sorting after any named release.
	ReleaseFinal ReleaseKind = iota
	// ReleaseEarliest means the release part was given and empty ("-"
	// followed immediately by another separator or end of string). It
	// canonicalizes to "", sorting before any named release.
	ReleaseEarliest
	// ReleaseNamed means a non-empty release string was given.
	ReleaseNamed
)

// Release is the release slot of a Version.
type Release struct {
	Kind ReleaseKind
	Name string // meaningful only when Kind == ReleaseNamed
}

func (r Release) String() string {
	switch r.Kind {
	case ReleaseEarliest:
		return ""
	case ReleaseNamed:
		return r.Name
	default:
		return ""
	}
}

// ParseFlags controls optional grammar behavior of Parse.
type ParseFlags struct {
	// FoldZeroRevision folds an explicit "+0" revision to absent. Defaults
	// to on for a full parse in the CLI and manifest layers; tests that
	// need the un-folded form pass it explicitly as false.
	FoldZeroRevision bool
	// AllowIteration permits the "#<iteration>" suffix. When false (the
	// default for dependency constraint endpoints), a version carrying an
	// iteration suffix is a parse error.
	AllowIteration bool
}

// Version is a single parsed/constructed bpkg version.
//
// The zero Version{} is NOT the empty version; use Empty() (Parse rejects "").
type Version struct {
	Epoch     uint16
	Upstream  string
	Release   Release
	Revision  *uint16 // nil means "no revision" (or, in a constraint endpoint, "any revision")
	Iteration uint32

	canonicalUpstream string
	canonicalRelease  string
}

// Empty returns the canonical empty ("bottom") version: the tuple
// (0, "", Earliest(""), nil, 0). It compares strictly less than any
// non-empty version.
func Empty() Version {
	return Version{Release: Release{Kind: ReleaseEarliest}}
}

// IsEmpty reports whether v is the empty version. Per the source this is
// purely an upstream-emptiness check; New/the parser never produce an
// inconsistent Version with an empty upstream and something else set.
func (v Version) IsEmpty() bool {
	return v.Upstream == "" && v.canonicalUpstream == ""
}

// IsStub reports whether v has no real upstream/release content (spec.md
// GLOSSARY "Stub version"): canonical upstream is empty and there is no
// release part at all (final). "0" and "0.0.0" are stubs (their numeric
// components canonicalize away); the empty version, whose release is
// earliest, is not.
func (v Version) IsStub() bool {
	return v.canonicalUpstream == "" && v.Release.Kind == ReleaseFinal
}

func defaultEpoch(canonicalUpstream string, release Release) uint16 {
	if canonicalUpstream == "" && release.Kind == ReleaseFinal {
		return 0
	}
	return 1
}

// New directly constructs a Version, validating the same invariants the
// parser enforces.
func New(epoch uint16, upstream string, release Release, revision *uint16, iteration uint32) (Version, error) {
	canonU, err := canonicalizeUpstream(upstream)
	if err != nil {
		return Version{}, bpkgerror.New(bpkgerror.Value, "invalid upstream: %s", err)
	}
	canonR, err := canonicalizeRelease(release)
	if err != nil {
		return Version{}, bpkgerror.New(bpkgerror.Value, "invalid release: %s", err)
	}

	v := Version{
		Epoch:             epoch,
		Upstream:          upstream,
		Release:           release,
		Revision:          revision,
		Iteration:         iteration,
		canonicalUpstream: canonU,
		canonicalRelease:  canonR,
	}

	if upstream == "" {
		if epoch != 0 {
			return Version{}, bpkgerror.New(bpkgerror.Validation, "epoch for empty version")
		}
		if release.Kind != ReleaseEarliest {
			return Version{}, bpkgerror.New(bpkgerror.Validation, "non-empty release for empty version")
		}
		if revision != nil {
			return Version{}, bpkgerror.New(bpkgerror.Validation, "revision for empty version")
		}
		if iteration != 0 {
			return Version{}, bpkgerror.New(bpkgerror.Validation, "iteration for empty version")
		}
	} else if release.Kind == ReleaseEarliest && (revision != nil || iteration != 0) {
		return Version{}, bpkgerror.New(bpkgerror.Validation, "revision for earliest possible release")
	}

	return v, nil
}

// CanonicalUpstream returns the canonical (padded, lower-cased, zero-component
// stripped) upstream string.
func (v Version) CanonicalUpstream() string { return v.canonicalUpstream }

// CanonicalRelease returns the canonical release string: "~" for a final
// release, "" for earliest, or the padded/lower-cased named release.
func (v Version) CanonicalRelease() string { return v.canonicalRelease }

// EffectiveRevision returns the revision, treating an absent revision as
// zero. This is purely a comparison convenience; it never affects equality
// of the structural record itself (spec.md §4.1).
func (v Version) EffectiveRevision() uint16 {
	if v.Revision == nil {
		return 0
	}
	return *v.Revision
}

// Compare implements the total order over (epoch, canonical_upstream,
// canonical_release, revision_or_zero, iteration).
func (v Version) Compare(o Version, ignoreRevision, ignoreIteration bool) int {
	if v.Epoch != o.Epoch {
		if v.Epoch < o.Epoch {
			return -1
		}
		return 1
	}
	if c := strings.Compare(v.canonicalUpstream, o.canonicalUpstream); c != 0 {
		return c
	}
	if c := strings.Compare(v.canonicalRelease, o.canonicalRelease); c != 0 {
		return c
	}
	if ignoreRevision {
		return 0
	}
	vr, or := v.EffectiveRevision(), o.EffectiveRevision()
	if vr != or {
		if vr < or {
			return -1
		}
		return 1
	}
	if ignoreIteration {
		return 0
	}
	if v.Iteration != o.Iteration {
		if v.Iteration < o.Iteration {
			return -1
		}
		return 1
	}
	return 0
}

// Equal reports whether v and o compare equal (ignoring neither revision nor
// iteration).
func (v Version) Equal(o Version) bool { return v.Compare(o, false, false) == 0 }

// String renders v in canonical textual form. It panics (a logic error,
// spec.md §7) if v is empty.
func (v Version) String(ignoreRevision, ignoreIteration bool) string {
	if v.IsEmpty() {
		bpkgerror.Logicf("empty version")
	}

	var b strings.Builder
	if de := defaultEpoch(v.canonicalUpstream, v.Release); v.Epoch != de {
		b.WriteByte('+')
		b.WriteString(strconv.FormatUint(uint64(v.Epoch), 10))
		b.WriteByte('-')
	}
	b.WriteString(v.Upstream)

	switch v.Release.Kind {
	case ReleaseEarliest:
		b.WriteByte('-')
	case ReleaseNamed:
		b.WriteByte('-')
		b.WriteString(v.Release.Name)
	}

	if !ignoreRevision {
		if v.Revision != nil {
			b.WriteByte('+')
			b.WriteString(strconv.FormatUint(uint64(*v.Revision), 10))
		}
		if !ignoreIteration && v.Iteration != 0 {
			b.WriteByte('#')
			b.WriteString(strconv.FormatUint(uint64(v.Iteration), 10))
		}
	}

	return b.String()
}
