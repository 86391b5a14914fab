package version

import (
	"strconv"

	"github.com/build2/libbpkg-sub000/bpkgerror"
)

type parseScope int

const (
	scopeFull parseScope = iota
	scopeUpstream
	scopeRelease
)

// Parse parses the full textual version grammar:
//
//	[+<epoch>-]<upstream>[-<release>][+<revision>][#<iteration>]
func Parse(text string, flags ParseFlags) (Version, error) {
	return parse(text, scopeFull, flags)
}

// ParseUpstream parses just the upstream sub-grammar (a bare
// component-dotted string, no epoch/release/revision/iteration). Used by
// callers that already split a compound string (e.g. dependency name
// splitting) and only need the upstream canonical form.
func ParseUpstream(text string) (Version, error) {
	return parse(text, scopeUpstream, ParseFlags{})
}

// ParseRelease parses just the release sub-grammar. An empty string means
// the earliest release; the absent/final release has no text form here.
func ParseRelease(text string) (Version, error) {
	return parse(text, scopeRelease, ParseFlags{})
}

func bad(reason string) error {
	return bpkgerror.New(bpkgerror.Value, "%s", reason)
}

func parse(text string, scope parseScope, flags ParseFlags) (Version, error) {
	if scope == scopeRelease {
		return parseRelease(text)
	}

	rest := text
	var epoch uint16
	var haveEpoch bool

	if scope == scopeFull && len(text) > 0 && text[0] == '+' {
		i := 1
		for i < len(text) && text[i] != '-' && text[i] != '.' && text[i] != '+' && text[i] != '#' {
			i++
		}
		if i >= len(text) || text[i] != '-' {
			return Version{}, bad("epoch must be followed by upstream")
		}
		epStr := text[1:i]
		if epStr == "" {
			return Version{}, bad("empty epoch")
		}
		ep, err := strconv.ParseUint(epStr, 10, 16)
		if err != nil {
			return Version{}, bad("epoch should be 2-byte unsigned integer")
		}
		epoch = uint16(ep)
		haveEpoch = true
		rest = text[i+1:]
	}

	// rest: <upstream>[-<release>][+<revision>][#<iteration>]
	upstreamEnd := len(rest)
	releaseStart, releaseEnd := -1, -1
	revisionStart, revisionEnd := -1, -1
	iterationStart := -1

	i := 0
	seenHyphen := false
	seenPlus := false
	seenHash := false
	for i < len(rest) {
		c := rest[i]
		switch {
		case c == '-' && !seenHyphen && !seenPlus && !seenHash:
			upstreamEnd = i
			seenHyphen = true
			releaseStart = i + 1
			releaseEnd = len(rest)
			i++
		case c == '+' && !seenPlus && !seenHash:
			if !seenHyphen {
				upstreamEnd = i
			} else {
				releaseEnd = i
			}
			seenPlus = true
			revisionStart = i + 1
			revisionEnd = len(rest)
			i++
		case c == '#' && !seenHash:
			if scope != scopeFull || !flags.AllowIteration {
				return Version{}, bad("unexpected '#' character")
			}
			if !seenPlus {
				if !seenHyphen {
					upstreamEnd = i
				} else {
					releaseEnd = i
				}
			} else {
				revisionEnd = i
			}
			seenHash = true
			iterationStart = i + 1
			i++
		case c == '.':
			i++
		case isAlnum(rune(c)):
			i++
		default:
			return Version{}, bad("alpha-numeric characters expected in a component")
		}
	}

	if scope == scopeUpstream && (releaseStart >= 0 || revisionStart >= 0) {
		return Version{}, bad("release and revision not allowed in upstream version")
	}

	upstream := rest[:upstreamEnd]
	if upstream == "" {
		return Version{}, bad("empty version")
	}
	if err := validateDotted(upstream); err != nil {
		return Version{}, err
	}
	canonU, err := canonicalizeUpstream(upstream)
	if err != nil {
		return Version{}, err
	}

	var release Release
	if releaseStart >= 0 {
		rtext := rest[releaseStart:releaseEnd]
		if rtext == "" {
			release = Release{Kind: ReleaseEarliest}
		} else {
			if err := validateDotted(rtext); err != nil {
				return Version{}, err
			}
			release = Release{Kind: ReleaseNamed, Name: rtext}
		}
	} else {
		release = Release{Kind: ReleaseFinal}
	}
	canonR, err := canonicalizeRelease(release)
	if err != nil {
		return Version{}, err
	}

	var revision *uint16
	if revisionStart >= 0 {
		rtext := rest[revisionStart:revisionEnd]
		if rtext == "" || !isNumericComponent(rtext) {
			return Version{}, bad("revision should be 2-byte unsigned integer")
		}
		rv, err := strconv.ParseUint(rtext, 10, 16)
		if err != nil {
			return Version{}, bad("revision should be 2-byte unsigned integer")
		}
		r := uint16(rv)
		if r != 0 || !flags.FoldZeroRevision {
			revision = &r
		}
	}

	var iteration uint32
	if iterationStart >= 0 {
		itext := rest[iterationStart:]
		if itext == "" || !isNumericComponent(itext) {
			return Version{}, bad("iteration should be 4-byte unsigned integer")
		}
		it, err := strconv.ParseUint(itext, 10, 32)
		if err != nil {
			return Version{}, bad("iteration should be 4-byte unsigned integer")
		}
		iteration = uint32(it)
	}

	if release.Kind == ReleaseEarliest && (revision != nil || iteration != 0) {
		return Version{}, bad("revision for earliest possible release")
	}

	epoch = func() uint16 {
		if haveEpoch {
			return epoch
		}
		return defaultEpoch(canonU, release)
	}()

	if epoch == 0 && canonU == "" && canonR == "" {
		return Version{}, bad("empty version")
	}

	return Version{
		Epoch:             epoch,
		Upstream:          upstream,
		Release:           release,
		Revision:          revision,
		Iteration:         iteration,
		canonicalUpstream: canonU,
		canonicalRelease:  canonR,
	}, nil
}

func parseRelease(text string) (Version, error) {
	var release Release
	if text == "" {
		release = Release{Kind: ReleaseEarliest}
	} else {
		if err := validateDotted(text); err != nil {
			return Version{}, err
		}
		release = Release{Kind: ReleaseNamed, Name: text}
	}
	canonR, err := canonicalizeRelease(release)
	if err != nil {
		return Version{}, err
	}
	return Version{Release: release, canonicalRelease: canonR}, nil
}

func validateDotted(s string) error {
	for _, comp := range splitComponents(s) {
		if err := validateComponent(comp); err != nil {
			return bad(err.Error())
		}
	}
	return nil
}
