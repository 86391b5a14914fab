package repository_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/build2/libbpkg-sub000/repository"
)

func TestParseURLRemote(t *testing.T) {
	u, err := repository.ParseURL("https://WWW.Example.Com:443/foo/bar")
	require.NoError(t, err)
	require.Equal(t, repository.SchemeHTTPS, u.Scheme)
	require.Equal(t, "www.example.com", u.Host)
	require.Equal(t, "foo/bar", u.Path)
}

func TestParseURLFile(t *testing.T) {
	u, err := repository.ParseURL("/var/repo/1")
	require.NoError(t, err)
	require.Equal(t, repository.SchemeFile, u.Scheme)
	require.True(t, u.IsAbsolute())
	require.Equal(t, "/var/repo/1", u.Path)
}

func TestParseTypedURLGit(t *testing.T) {
	typ, u, err := repository.ParseTypedURL("git+https://example.com/foo.git")
	require.NoError(t, err)
	require.Equal(t, repository.TypeGit, typ)
	require.Equal(t, repository.SchemeHTTPS, u.Scheme)
}

func TestCanonicalNamePkg(t *testing.T) {
	loc, err := repository.Parse("https://pkg.example.com/test/1")
	require.NoError(t, err)
	require.Equal(t, repository.TypePkg, loc.Type)
	require.Equal(t, "pkg:example.com/test", loc.CanonicalName)
}

func TestCanonicalNamePkgDefaultPort(t *testing.T) {
	loc, err := repository.Parse("https://example.com:443/1")
	require.NoError(t, err)
	require.Equal(t, "pkg:example.com", loc.CanonicalName)
}

func TestCanonicalNameRejectsBadVersion(t *testing.T) {
	_, err := repository.Parse("https://example.com/test/2")
	require.Error(t, err)
}

func TestCanonicalNameGit(t *testing.T) {
	loc, err := repository.Parse("git+https://git.example.com/foo.git")
	require.NoError(t, err)
	require.Equal(t, "git:example.com/foo", loc.CanonicalName)
}

// Canonical name is scheme/host-cosmetic-insensitive within a type (spec.md
// §8 boundary scenario 6): http://www.cppget.org/1/misc and
// http://pkg.cppget.org/1/misc both yield "pkg:cppget.org/misc".
func TestCanonicalNameDeCosmetic(t *testing.T) {
	a, err := repository.Parse("http://www.cppget.org/1/misc")
	require.NoError(t, err)
	b, err := repository.Parse("http://pkg.cppget.org/1/misc")
	require.NoError(t, err)
	require.Equal(t, "pkg:cppget.org/misc", a.CanonicalName)
	require.Equal(t, a.CanonicalName, b.CanonicalName)
}

func TestRefFilterParsing(t *testing.T) {
	filters, err := repository.ParseRefFilters("master,-bad,@1234567890123456789012345678901234567890")
	require.NoError(t, err)
	require.Len(t, filters, 3)
	require.Equal(t, "master", filters[0].Name)
	require.True(t, filters[1].Exclude)
	require.Equal(t, "bad", filters[1].Name)
	require.Equal(t, "1234567890123456789012345678901234567890", filters[2].Commit)
}

func TestRefFilterDefault(t *testing.T) {
	filters, err := repository.ParseRefFilters("")
	require.NoError(t, err)
	require.Len(t, filters, 1)
	require.True(t, filters[0].IsDefault())
}

func TestRefFilterLeadingHashIncludesDefault(t *testing.T) {
	filters, err := repository.ParseRefFilters("#tag")
	require.NoError(t, err)
	require.Len(t, filters, 2)
	require.True(t, filters[0].IsDefault())
	require.Equal(t, "tag", filters[1].Name)
}

func TestCompleteRelative(t *testing.T) {
	base, err := repository.Parse("https://example.com/base/1")
	require.NoError(t, err)

	relURL, err := repository.ParseURL("../other/1")
	require.NoError(t, err)
	rel := repository.Location{Type: repository.TypePkg, URL: relURL}

	completed, err := repository.Complete(rel, base)
	require.NoError(t, err)
	require.True(t, completed.URL.IsRemote())
}
