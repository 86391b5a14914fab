package constraint_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/build2/libbpkg-sub000/constraint"
	"github.com/build2/libbpkg-sub000/version"
)

func mustParseC(t *testing.T, s string) constraint.Constraint {
	t.Helper()
	c, err := constraint.Parse(s)
	require.NoErrorf(t, err, "parsing %q", s)
	return c
}

func mustParseV(t *testing.T, s string) version.Version {
	t.Helper()
	v, err := version.Parse(s, version.ParseFlags{})
	require.NoErrorf(t, err, "parsing %q", s)
	return v
}

func TestRangeRoundTrip(t *testing.T) {
	c := mustParseC(t, "[1.0 2.0)")
	require.Equal(t, "[1.0 2.0)", c.String())
	require.True(t, c.Contains(mustParseV(t, "1.5")))
	require.False(t, c.Contains(mustParseV(t, "2.0")))
}

func TestComparisonOperators(t *testing.T) {
	cases := map[string]string{
		"== 1.0": "== 1.0",
		">= 1.0": ">= 1.0",
		"<= 1.0": "<= 1.0",
		"> 1.0":  "> 1.0",
		"< 1.0":  "< 1.0",
	}
	for in, want := range cases {
		c := mustParseC(t, in)
		require.Equal(t, want, c.String())
	}
}

func TestRangeWithDependentEffective(t *testing.T) {
	c := mustParseC(t, "[1.0 $]")
	eff, err := c.Effective(mustParseV(t, "2.0"))
	require.NoError(t, err)
	require.Equal(t, "[1.0 2.0]", eff.String())
}

func TestShortcutOnDependentEffective(t *testing.T) {
	c := mustParseC(t, "~$")
	eff, err := c.Effective(mustParseV(t, "1.2.3"))
	require.NoError(t, err)

	want := mustParseC(t, "[1.2.3 1.3.0-)")
	wantEff, err := want.Effective(mustParseV(t, "1.2.3"))
	require.NoError(t, err)

	require.True(t, eff.Equal(wantEff))
}

func TestCaretShortcut(t *testing.T) {
	c := mustParseC(t, "^1.2.3")
	require.Equal(t, "[1.2.3 2.0.0-)", c.String())
}

func TestTildeShortcut(t *testing.T) {
	c := mustParseC(t, "~1.2.3")
	require.Equal(t, "[1.2.3 1.3.0-)", c.String())
}

func TestEqualityShortcutDependent(t *testing.T) {
	c := mustParseC(t, "== $")
	require.Equal(t, "== $", c.String())
	require.False(t, c.Complete())
}

func TestInvalidConstraints(t *testing.T) {
	cases := []string{
		"[2.0 1.0]",  // min greater than max
		"(1.0 1.0)",  // equal endpoints, both open
		"[1.0 1.0-)", // min greater than max (1.0 sorts after its earliest release 1.0-)
		"",
		"[1.0",
	}
	for _, c := range cases {
		_, err := constraint.Parse(c)
		require.Errorf(t, err, "expected error parsing %q", c)
	}
}

func TestEqualConstraints(t *testing.T) {
	a := mustParseC(t, "[1.0 2.0)")
	b := mustParseC(t, "[1.0 2.0)")
	c := mustParseC(t, "[1.0 2.0]")
	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))
}

func TestRevisionEqualEndpointException(t *testing.T) {
	c, err := constraint.Parse("[1.0+1 1.0]")
	require.NoError(t, err)
	require.Equal(t, "[1.0+1 1.0]", c.String())
}
