package repository

import (
	"strconv"
	"strings"

	"github.com/build2/libbpkg-sub000/bpkgerror"
)

// Type identifies the shape of a repository: a pkg archive index, a plain
// directory tree, or a git repository.
type Type string

const (
	TypePkg Type = "pkg"
	TypeDir Type = "dir"
	TypeGit Type = "git"
)

func parseType(s string) (Type, bool) {
	switch strings.ToLower(s) {
	case "pkg":
		return TypePkg, true
	case "dir":
		return TypeDir, true
	case "git":
		return TypeGit, true
	default:
		return "", false
	}
}

// Location is a fully-resolved repository location: its URL, its type, and
// the canonical name derived from stripping cosmetic host/path prefixes.
type Location struct {
	Type          Type
	URL           URL
	CanonicalName string
}

// New constructs a Location from a URL already completed against a base
// (see Complete), validating the type-vs-scheme combination and deriving
// the canonical name.
func New(t Type, u URL) (Location, error) {
	if u.IsEmpty() {
		return Location{}, bpkgerror.New(bpkgerror.Value, "empty repository location")
	}

	if t == "" {
		if u.Scheme == SchemeGit {
			t = TypeGit
		} else {
			t = TypePkg
		}
	}

	switch t {
	case TypePkg:
		if u.Scheme == SchemeGit || u.Scheme == SchemeSSH {
			return Location{}, bpkgerror.New(bpkgerror.Value, "pkg repository forbids the %s scheme", u.Scheme)
		}
		if u.HasFragment {
			return Location{}, bpkgerror.New(bpkgerror.Value, "pkg repository forbids a URL fragment")
		}

	case TypeDir:
		if u.Scheme != SchemeFile {
			return Location{}, bpkgerror.New(bpkgerror.Value, "dir repository requires the file scheme")
		}

	case TypeGit:
		if u.Scheme != SchemeGit && u.Scheme != SchemeHTTP && u.Scheme != SchemeHTTPS &&
			u.Scheme != SchemeSSH && u.Scheme != SchemeFile {
			return Location{}, bpkgerror.New(bpkgerror.Value, "invalid scheme for git repository type")
		}
	}

	name, err := canonicalName(t, u)
	if err != nil {
		return Location{}, err
	}

	return Location{Type: t, URL: u, CanonicalName: name}, nil
}

// Parse parses a typed or untyped repository location string.
func Parse(text string) (Location, error) {
	t, u, err := ParseTypedURL(text)
	if err != nil {
		return Location{}, err
	}
	return New(t, u)
}

// Complete resolves a (possibly relative) location against a base location,
// the way a manifest's repository-url entries are completed against the
// manifest's own location. If loc is already absolute/remote, base is
// ignored and loc is returned unchanged (modulo validation).
func Complete(loc Location, base Location) (Location, error) {
	if loc.URL.IsRemote() || loc.URL.IsAbsolute() {
		return loc, nil
	}
	if base.URL.IsEmpty() {
		return Location{}, bpkgerror.New(bpkgerror.Value, "relative repository location without base")
	}

	completed := base.URL
	completed.Path = joinPath(base.URL.Path, loc.URL.Path)
	if loc.URL.HasFragment {
		completed.HasFragment = true
		completed.Fragment = loc.URL.Fragment
	}

	t := loc.Type
	if t == "" {
		t = base.Type
	}
	return New(t, completed)
}

func joinPath(base, rel string) string {
	if base == "" {
		return normalizePath(rel)
	}
	b := strings.TrimSuffix(base, "/")
	return normalizePath(b + "/" + rel)
}

// canonicalName computes the repository's stable canonical name:
// "<type>:<stripped-host>[:<port>]/<stripped-path>[#<fragment>]", the way
// repository_location::repository_location assembles canonical_name_ in
// the original source, with the port and path parts each optional. This
// applies to remote URLs only: for a local (file-scheme) location the
// canonical name is the normalized path as is, with no type prefix, no
// path stripping and no fragment.
func canonicalName(t Type, u URL) (string, error) {
	if !u.IsRemote() {
		return u.Path, nil
	}

	var host string
	host = string(t) + ":" + stripDomain(t, u.Host)
	if u.Port != 0 && u.Port != u.Scheme.defaultPort() {
		host += ":" + strconv.FormatUint(uint64(u.Port), 10)
	}

	path, err := stripPath(t, u.Path)
	if err != nil {
		return "", err
	}

	name := host
	if path != "" {
		name += "/" + path
	}
	if name == string(t)+":" {
		return "", bpkgerror.New(bpkgerror.Value, "empty repository name")
	}
	if u.HasFragment {
		name += "#" + u.Fragment
	}
	return name, nil
}

// stripDomain removes cosmetic subdomain prefixes: www./pkg./bpkg. for pkg
// repositories, www./git./scm. for git repositories.
func stripDomain(t Type, host string) string {
	prefixes := []string{"www."}
	switch t {
	case TypePkg, TypeDir:
		prefixes = append(prefixes, "pkg.", "bpkg.")
	case TypeGit:
		prefixes = append(prefixes, "git.", "scm.")
	}
	for _, p := range prefixes {
		if strings.HasPrefix(host, p) {
			host = host[len(p):]
			break
		}
	}
	return host
}

// stripPath computes the repository_location path part of the canonical
// name per type:
//
//   - pkg: locate the path's version component (the rightmost all-digit
//     segment; currently only "1" is supported), drop it, and drop the
//     "pkg"/"bpkg" segment immediately preceding it if present. Everything
//     else (both before and after the version segment) is kept.
//   - dir: the normalized path is used as-is.
//   - git: the trailing ".git" extension of the last segment is dropped.
func stripPath(t Type, path string) (string, error) {
	segs := splitSegments(path)

	switch t {
	case TypeDir:
		return strings.Join(segs, "/"), nil

	case TypeGit:
		if n := len(segs); n > 0 {
			segs[n-1] = strings.TrimSuffix(segs[n-1], ".git")
		}
		return strings.Join(segs, "/"), nil

	default: // TypePkg
		if len(segs) == 0 {
			return "", bpkgerror.New(bpkgerror.Value, "missing repository version")
		}

		vi := -1
		for i := len(segs) - 1; i >= 0; i-- {
			if isNumericSegment(segs[i]) {
				vi = i
				break
			}
		}
		if vi < 0 {
			return "", bpkgerror.New(bpkgerror.Value, "missing repository version")
		}
		if segs[vi] != "1" {
			return "", bpkgerror.New(bpkgerror.Value, "unsupported repository version %q", segs[vi])
		}

		prefix := segs[:vi]
		if len(prefix) > 0 && (prefix[len(prefix)-1] == "pkg" || prefix[len(prefix)-1] == "bpkg") {
			prefix = prefix[:len(prefix)-1]
		}
		suffix := segs[vi+1:]

		out := append(append([]string{}, prefix...), suffix...)
		return strings.Join(out, "/"), nil
	}
}

func splitSegments(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func isNumericSegment(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// String renders the full location URL, prefixed with the type where it
// isn't implied by the scheme.
func (l Location) String() string {
	s := l.URL.String()
	if l.Type == TypeGit && l.URL.Scheme == SchemeGit {
		return s
	}
	if l.Type == TypePkg {
		return s
	}
	return string(l.Type) + "+" + s
}
