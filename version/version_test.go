package version_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/build2/libbpkg-sub000/version"
)

func mustParse(t *testing.T, s string, flags version.ParseFlags) version.Version {
	t.Helper()
	v, err := version.Parse(s, flags)
	require.NoErrorf(t, err, "parsing %q", s)
	return v
}

func TestStubEquality(t *testing.T) {
	a := mustParse(t, "0", version.ParseFlags{})
	b := mustParse(t, "0.0.0", version.ParseFlags{})

	require.Zero(t, a.Compare(b, false, false))
	require.Equal(t, uint16(0), a.Epoch)
	require.Equal(t, uint16(0), b.Epoch)
	require.True(t, a.IsStub())
}

func TestEarliestReleaseOrdering(t *testing.T) {
	earliest := mustParse(t, "1.0-", version.ParseFlags{})
	alpha := mustParse(t, "1.0-alpha", version.ParseFlags{})
	final := mustParse(t, "1.0", version.ParseFlags{})

	require.Negative(t, earliest.Compare(alpha, false, false))
	require.Negative(t, alpha.Compare(final, false, false))
}

func TestRevisionFolding(t *testing.T) {
	folded := mustParse(t, "1.0+0", version.ParseFlags{FoldZeroRevision: true})
	require.Equal(t, "1.0", folded.String(false, false))
	require.Nil(t, folded.Revision)

	unfolded := mustParse(t, "1.0+0", version.ParseFlags{FoldZeroRevision: false})
	require.Equal(t, "1.0+0", unfolded.String(false, false))
	require.NotNil(t, unfolded.Revision)
}

func TestEpochRoundTrip(t *testing.T) {
	v := mustParse(t, "+1-1.0", version.ParseFlags{})
	require.Equal(t, uint16(1), v.Epoch)
	require.Equal(t, "1.0", v.String(false, false))

	v2 := mustParse(t, "+0-1.0", version.ParseFlags{})
	require.Equal(t, uint16(0), v2.Epoch)
	require.Equal(t, "+0-1.0", v2.String(false, false))
}

func TestIterationSuffix(t *testing.T) {
	v, err := version.Parse("1.0#3", version.ParseFlags{AllowIteration: true})
	require.NoError(t, err)
	require.Equal(t, uint32(3), v.Iteration)
	require.Equal(t, "1.0#3", v.String(false, false))

	_, err = version.Parse("1.0#3", version.ParseFlags{AllowIteration: false})
	require.Error(t, err)
}

func TestEmptyVersion(t *testing.T) {
	e := version.Empty()
	require.True(t, e.IsEmpty())

	v := mustParse(t, "1.0", version.ParseFlags{})
	require.Negative(t, e.Compare(v, false, false))
}

func TestInvalidVersions(t *testing.T) {
	cases := []string{
		"",
		"-1",
		"1..2",
		".1",
		"1.",
		"+3.5-1.4", // components in epoch
		"+-3.5",    // empty epoch
	}
	for _, c := range cases {
		_, err := version.Parse(c, version.ParseFlags{})
		require.Errorf(t, err, "expected error parsing %q", c)
	}
}

func TestCanonicalEquivalence(t *testing.T) {
	a := mustParse(t, "1.2.3+1#4", version.ParseFlags{AllowIteration: true})
	b := mustParse(t, "1.2.3+1#4", version.ParseFlags{AllowIteration: true})
	require.True(t, a.Equal(b))
	require.Equal(t, a.CanonicalUpstream(), b.CanonicalUpstream())
	require.Equal(t, a.CanonicalRelease(), b.CanonicalRelease())
}

func TestCompareIgnoreFlags(t *testing.T) {
	a := mustParse(t, "1.0+1#5", version.ParseFlags{AllowIteration: true})
	b := mustParse(t, "1.0+2#1", version.ParseFlags{AllowIteration: true})

	require.NotZero(t, a.Compare(b, false, false))
	require.Zero(t, a.Compare(b, true, false))
	require.Zero(t, a.Compare(b, true, true))
}

func TestMixedCaseLowercased(t *testing.T) {
	v := mustParse(t, "1.0-ALPHA", version.ParseFlags{})
	require.Equal(t, "alpha", v.CanonicalRelease())
}
