// Package repository implements the bpkg repository location model: a
// URL-or-path value with a typed protocol, a repository kind (archive
// index / directory tree / git tree), host normalization, path stripping
// rules that produce a stable canonical name, and relative-to-base
// completion.
package repository

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/build2/libbpkg-sub000/bpkgerror"
)

// Scheme is one of the five protocols a repository URL may use.
type Scheme string

const (
	SchemeFile  Scheme = "file"
	SchemeHTTP  Scheme = "http"
	SchemeHTTPS Scheme = "https"
	SchemeGit   Scheme = "git"
	SchemeSSH   Scheme = "ssh"
)

func parseScheme(s string) (Scheme, bool) {
	switch strings.ToLower(s) {
	case "file":
		return SchemeFile, true
	case "http":
		return SchemeHTTP, true
	case "https":
		return SchemeHTTPS, true
	case "git":
		return SchemeGit, true
	case "ssh":
		return SchemeSSH, true
	default:
		return "", false
	}
}

// defaultPort returns the scheme's default port, or 0 if the scheme has
// none (file).
func (s Scheme) defaultPort() uint16 {
	switch s {
	case SchemeHTTP:
		return 80
	case SchemeHTTPS:
		return 443
	case SchemeGit:
		return 9418
	case SchemeSSH:
		return 22
	default:
		return 0
	}
}

// URL is a parsed repository location URL.
//
// Path is always POSIX-style (forward-slash separated), normalized, and for
// remote schemes is stored relative to the authority (no leading '/').
type URL struct {
	Scheme      Scheme
	User        string
	Host        string // lower-cased for remote schemes
	Port        uint16 // 0 means "use the scheme default" / unspecified
	Path        string
	HasQuery    bool
	Query       string
	HasFragment bool
	Fragment    string
}

// IsEmpty reports whether u is the zero-value sentinel URL used as the
// "no base" default for repository location construction.
func (u URL) IsEmpty() bool {
	return u.Scheme == "" && u.Host == "" && u.Path == ""
}

// IsRemote reports whether u uses a network scheme (as opposed to file).
func (u URL) IsRemote() bool { return u.Scheme != "" && u.Scheme != SchemeFile }

// IsAbsolute reports whether a file-scheme URL's path is rooted.
func (u URL) IsAbsolute() bool {
	return u.Scheme == SchemeFile && strings.HasPrefix(u.Path, "/")
}

// IsRelative reports whether a file-scheme URL's path is not rooted.
func (u URL) IsRelative() bool {
	return u.Scheme == SchemeFile && !strings.HasPrefix(u.Path, "/")
}

func vbad(format string, args ...any) error {
	return bpkgerror.New(bpkgerror.Value, format, args...)
}

// ParseURL parses scheme://[user@]host[:port]/path[?q][#frag], and, as a
// deliberate fallback, a bare path classified as the file scheme.
func ParseURL(text string) (URL, error) {
	if text == "" {
		return URL{}, nil
	}

	if idx := strings.Index(text, "://"); idx > 0 && isSchemeToken(text[:idx]) {
		return parseNetURL(text)
	}

	// Bare path fallback: file scheme.
	path, query, hasQuery, frag, hasFrag := splitQueryFragment(text)
	path = normalizePath(path)
	return URL{Scheme: SchemeFile, Path: path, HasQuery: hasQuery, Query: query, HasFragment: hasFrag, Fragment: frag}, nil
}

func isSchemeToken(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		isLetter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		if i == 0 && !isLetter {
			return false
		}
		if !isLetter && !isDigit && r != '+' && r != '-' && r != '.' {
			return false
		}
	}
	return true
}

func splitQueryFragment(s string) (path, query string, hasQuery bool, frag string, hasFrag bool) {
	if i := strings.IndexByte(s, '#'); i >= 0 {
		frag = s[i+1:]
		hasFrag = true
		s = s[:i]
	}
	if i := strings.IndexByte(s, '?'); i >= 0 {
		query = s[i+1:]
		hasQuery = true
		s = s[:i]
	}
	path = s
	return
}

func parseNetURL(text string) (URL, error) {
	scheme, ok := parseScheme(text[:strings.Index(text, "://")])
	if !ok {
		return URL{}, vbad("unknown URL scheme")
	}

	u, err := url.Parse(text)
	if err != nil {
		return URL{}, vbad("invalid URL: %s", err)
	}

	result := URL{Scheme: scheme}

	if u.User != nil {
		result.User = u.User.Username()
	}

	host := u.Hostname()
	if scheme != SchemeFile {
		if host == "" {
			return URL{}, vbad("no authority")
		}
		result.Host = strings.ToLower(host)

		if p := u.Port(); p != "" {
			pn, err := strconv.ParseUint(p, 10, 16)
			if err != nil {
				return URL{}, vbad("invalid port")
			}
			result.Port = uint16(pn)
		}
	} else {
		result.Host = host
	}

	path := u.Path
	if scheme != SchemeFile {
		// Remote schemes store the path relative to the authority (no
		// leading '/').
		path = strings.TrimPrefix(path, "/")
		if strings.HasPrefix(path, "../") || path == ".." {
			return URL{}, vbad("invalid path: escapes server root")
		}
	}
	result.Path = normalizePath(path)

	if u.RawQuery != "" {
		result.HasQuery = true
		result.Query = u.RawQuery
	}
	if u.Fragment != "" {
		result.HasFragment = true
		result.Fragment = u.Fragment
	}

	return result, nil
}

// normalizePath collapses "." and ".." components POSIX-style without
// escaping past the root, and removes duplicate slashes. A trailing slash
// marker is preserved.
func normalizePath(p string) string {
	if p == "" {
		return ""
	}

	leadingSlash := strings.HasPrefix(p, "/")
	trailingSlash := strings.HasSuffix(p, "/") && p != "/"

	parts := strings.Split(p, "/")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		switch part {
		case "", ".":
			continue
		case "..":
			if len(out) > 0 && out[len(out)-1] != ".." {
				out = out[:len(out)-1]
			} else if !leadingSlash {
				out = append(out, "..")
			}
			// Escaping past an absolute root collapses to root (caller
			// validates remote escapes separately).
		default:
			out = append(out, part)
		}
	}

	res := strings.Join(out, "/")
	if leadingSlash {
		res = "/" + res
	}
	if trailingSlash && res != "" && !strings.HasSuffix(res, "/") {
		res += "/"
	}
	return res
}

// String renders u back to its canonical textual form.
func (u URL) String() string {
	if u.IsEmpty() {
		return ""
	}

	var b strings.Builder
	if u.Scheme == SchemeFile && u.Host == "" {
		b.WriteString(u.Path)
	} else {
		b.WriteString(string(u.Scheme))
		b.WriteString("://")
		if u.User != "" {
			b.WriteString(u.User)
			b.WriteByte('@')
		}
		b.WriteString(u.Host)
		if u.Port != 0 {
			b.WriteByte(':')
			b.WriteString(strconv.FormatUint(uint64(u.Port), 10))
		}
		b.WriteByte('/')
		b.WriteString(u.Path)
	}
	if u.HasQuery {
		b.WriteByte('?')
		b.WriteString(u.Query)
	}
	if u.HasFragment {
		b.WriteByte('#')
		b.WriteString(u.Fragment)
	}
	return b.String()
}

// ParseTypedURL parses a "<type>+<scheme>://..." string, where <type> is
// one of pkg/dir/git. If either half is invalid, the whole string is parsed
// as a plain, untyped URL instead (declaredType is the zero Type).
func ParseTypedURL(text string) (declaredType Type, u URL, err error) {
	if p := strings.IndexAny(text, "+:"); p >= 0 && text[p] == '+' {
		if t, ok := parseType(text[:p]); ok {
			rest := text[p+1:]
			if idx := strings.Index(rest, "://"); idx > 0 {
				if parsed, perr := parseNetURL(rest); perr == nil {
					return t, parsed, nil
				}
			}
		}
	}
	u, err = ParseURL(text)
	return "", u, err
}
