package buildclass_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/build2/libbpkg-sub000/buildclass"
)

func classSet(members ...string) map[string]bool {
	set := map[string]bool{}
	for _, m := range members {
		set[m] = true
	}
	return set
}

func TestSimpleAdd(t *testing.T) {
	e, err := buildclass.Parse("+gcc")
	require.NoError(t, err)
	require.True(t, buildclass.Match(e, classSet("gcc"), nil, false))
	require.False(t, buildclass.Match(e, classSet("clang"), nil, false))
}

func TestSubtract(t *testing.T) {
	e, err := buildclass.Parse("+all -windows")
	require.NoError(t, err)
	require.True(t, buildclass.Match(e, classSet("all"), nil, false))
	require.False(t, buildclass.Match(e, classSet("all", "windows"), nil, false))
}

func TestIntersect(t *testing.T) {
	e, err := buildclass.Parse("+all &gcc")
	require.NoError(t, err)
	require.True(t, buildclass.Match(e, classSet("all", "gcc"), nil, false))
	require.False(t, buildclass.Match(e, classSet("all"), nil, false))
}

func TestNegation(t *testing.T) {
	e, err := buildclass.Parse("+all &!windows")
	require.NoError(t, err)
	require.True(t, buildclass.Match(e, classSet("all"), nil, false))
	require.False(t, buildclass.Match(e, classSet("all", "windows"), nil, false))
}

func TestNestedExpression(t *testing.T) {
	e, err := buildclass.Parse("+(+gcc -old)")
	require.NoError(t, err)
	require.True(t, buildclass.Match(e, classSet("gcc"), nil, false))
	require.False(t, buildclass.Match(e, classSet("gcc", "old"), nil, false))
}

func TestNestedMustStartWithPlus(t *testing.T) {
	_, err := buildclass.Parse("+(-gcc)")
	require.Error(t, err)
}

func TestUnderlyingClassSet(t *testing.T) {
	e, err := buildclass.Parse("default legacy : +gcc")
	require.NoError(t, err)
	require.Equal(t, []string{"default", "legacy"}, e.Underlying)
}

func TestRootFirstTermAnyOp(t *testing.T) {
	e, err := buildclass.Parse("-windows")
	require.NoError(t, err)
	require.False(t, buildclass.Match(e, classSet("windows"), nil, true))
}

func TestUnbalancedParens(t *testing.T) {
	_, err := buildclass.Parse("+(+gcc")
	require.Error(t, err)
}

func TestStringRoundTrip(t *testing.T) {
	e, err := buildclass.Parse("+all -windows")
	require.NoError(t, err)
	require.Equal(t, "+all -windows", e.String())
}

func TestMatchWalksInheritanceChain(t *testing.T) {
	e, err := buildclass.Parse("+gcc")
	require.NoError(t, err)

	inherits := map[string]string{"gcc-static": "gcc", "gcc": "default"}
	require.True(t, buildclass.Match(e, classSet("gcc-static"), inherits, false))
	require.False(t, buildclass.Match(e, classSet("clang"), inherits, false))
}

func TestMatchDoesNotWalkUnrelatedClasses(t *testing.T) {
	e, err := buildclass.Parse("+gcc")
	require.NoError(t, err)

	inherits := map[string]string{"clang-static": "clang"}
	require.False(t, buildclass.Match(e, classSet("clang-static"), inherits, false))
}
