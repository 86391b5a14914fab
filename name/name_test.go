package name_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/build2/libbpkg-sub000/name"
)

func TestParsePackageValid(t *testing.T) {
	p, err := name.ParsePackage("libfoo")
	require.NoError(t, err)
	require.Equal(t, "libfoo", p.String())
}

func TestParsePackageReserved(t *testing.T) {
	_, err := name.ParsePackage("CON")
	require.Error(t, err)

	_, err = name.ParsePackage("build")
	require.Error(t, err)
}

func TestParsePackageTooShort(t *testing.T) {
	_, err := name.ParsePackage("a")
	require.Error(t, err)
}

func TestParsePackageBadFirstChar(t *testing.T) {
	_, err := name.ParsePackage("1foo")
	require.Error(t, err)
}

func TestParsePackageBadLastChar(t *testing.T) {
	_, err := name.ParsePackage("foo-")
	require.Error(t, err)

	_, err = name.ParsePackage("foo.")
	require.Error(t, err)
}

func TestPackageBaseExtension(t *testing.T) {
	p, err := name.ParsePackage("libfoo.bar")
	require.NoError(t, err)
	require.Equal(t, "libfoo", p.Base())
	require.Equal(t, "bar", p.Extension())
}

func TestPackageVariable(t *testing.T) {
	p, err := name.ParsePackage("libfoo-bar.baz")
	require.NoError(t, err)
	require.Equal(t, "libfoo_bar_baz", p.Variable())
}

func TestParseBuildClass(t *testing.T) {
	c, err := name.ParseBuildClass("default")
	require.NoError(t, err)
	require.False(t, c.Reserved())

	c, err = name.ParseBuildClass("_all")
	require.NoError(t, err)
	require.True(t, c.Reserved())
}

func TestParseBuildClassInvalid(t *testing.T) {
	_, err := name.ParseBuildClass("")
	require.Error(t, err)

	_, err = name.ParseBuildClass("+bad")
	require.Error(t, err)
}
