package repository

import (
	"strings"

	"github.com/build2/libbpkg-sub000/bpkgerror"
)

// RefFilter is one entry of a git repository URL's ref-filter fragment:
// "[+|-][<name>][@<commit>]". A filter with neither name nor commit (the
// default, unqualified fragment) selects the repository's default refs.
type RefFilter struct {
	Exclude bool
	Name    string
	Commit  string
}

// IsDefault reports whether f carries neither a name nor a commit, meaning
// "the default set of refs" (an empty git URL fragment, or a bare '#').
func (f RefFilter) IsDefault() bool { return f.Name == "" && f.Commit == "" }

func is40Hex(s string) bool {
	if len(s) != 40 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

// ParseRefFilters parses a git repository URL fragment into its
// comma-separated list of ref filters. An empty fragment yields a single
// default filter. A fragment beginning with '#' (a doubled '#' in the
// original URL) requests the default refs in addition to the filters that
// follow, e.g. "#tag" yields [default-refs, +tag].
func ParseRefFilters(fragment string) ([]RefFilter, error) {
	if fragment == "" {
		return []RefFilter{{}}, nil
	}

	var filters []RefFilter
	if fragment[0] == '#' {
		filters = append(filters, RefFilter{})
		fragment = fragment[1:]
	}

	parts := strings.Split(fragment, ",")
	for _, p := range parts {
		f, err := parseRefFilter(p)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	return filters, nil
}

func parseRefFilter(s string) (RefFilter, error) {
	if s == "" {
		return RefFilter{}, nil
	}

	var f RefFilter
	switch s[0] {
	case '+':
		s = s[1:]
	case '-':
		f.Exclude = true
		s = s[1:]
	}

	if is40Hex(s) {
		f.Commit = strings.ToLower(s)
		return f, nil
	}

	name, commit, hasCommit := strings.Cut(s, "@")
	f.Name = name
	if hasCommit {
		if !is40Hex(commit) {
			return RefFilter{}, bpkgerror.New(bpkgerror.Value, "invalid commit id %q in ref filter", commit)
		}
		f.Commit = strings.ToLower(commit)
	}

	if f.Name == "" && f.Commit == "" {
		return RefFilter{}, bpkgerror.New(bpkgerror.Value, "empty ref filter")
	}

	return f, nil
}

// String renders a ref filter back to its fragment syntax.
func (f RefFilter) String() string {
	if f.IsDefault() {
		return ""
	}
	var b strings.Builder
	if f.Exclude {
		b.WriteByte('-')
	}
	b.WriteString(f.Name)
	if f.Commit != "" {
		b.WriteByte('@')
		b.WriteString(f.Commit)
	}
	return b.String()
}

// FormatRefFilters renders a list of ref filters back to a URL fragment.
func FormatRefFilters(filters []RefFilter) string {
	parts := make([]string, 0, len(filters))
	for _, f := range filters {
		parts = append(parts, f.String())
	}
	return strings.Join(parts, ",")
}
