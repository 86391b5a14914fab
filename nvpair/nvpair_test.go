package nvpair_test

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/build2/libbpkg-sub000/nvpair"
)

func TestScanBasicPairs(t *testing.T) {
	s := nvpair.NewScanner(strings.NewReader("name: libfoo\nversion: 1.0\n"))

	p1, err := s.Next()
	require.NoError(t, err)
	require.Equal(t, "name", p1.Name)
	require.Equal(t, "libfoo", p1.Value)

	p2, err := s.Next()
	require.NoError(t, err)
	require.Equal(t, "version", p2.Name)
	require.Equal(t, "1.0", p2.Value)

	_, err = s.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestScanEmptySeparator(t *testing.T) {
	s := nvpair.NewScanner(strings.NewReader("name: libfoo\n\nname: libbar\n"))

	_, err := s.Next()
	require.NoError(t, err)

	sep, err := s.Next()
	require.NoError(t, err)
	require.True(t, sep.IsEnd())

	p, err := s.Next()
	require.NoError(t, err)
	require.Equal(t, "libbar", p.Value)
}

func TestScanContinuationLine(t *testing.T) {
	s := nvpair.NewScanner(strings.NewReader("summary: a long\n  description\n"))
	p, err := s.Next()
	require.NoError(t, err)
	require.Equal(t, "a long\ndescription", p.Value)
}

func TestScanMissingColon(t *testing.T) {
	s := nvpair.NewScanner(strings.NewReader("badline\n"))
	_, err := s.Next()
	require.Error(t, err)
}

func TestSplitComment(t *testing.T) {
	val, comment := nvpair.SplitComment("1.0 # initial release")
	require.Equal(t, "1.0", val)
	require.Equal(t, "initial release", comment)

	val, comment = nvpair.SplitComment("1.0")
	require.Equal(t, "1.0", val)
	require.Equal(t, "", comment)
}

func TestMergeComment(t *testing.T) {
	require.Equal(t, "1.0 # note", nvpair.MergeComment("1.0", "note"))
	require.Equal(t, "1.0", nvpair.MergeComment("1.0", ""))
}

func TestWriterRoundTrip(t *testing.T) {
	var b strings.Builder
	w := nvpair.NewWriter(&b)
	require.NoError(t, w.Write("name", "libfoo"))
	require.NoError(t, w.Close())
	require.Equal(t, "name: libfoo\n\n", b.String())
}
