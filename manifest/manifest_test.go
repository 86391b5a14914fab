package manifest_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/build2/libbpkg-sub000/manifest"
)

const samplePackage = `: 1
name: libfoo
version: 1.0.0
summary: The foo library
license: MIT
depends: libbar >= 1.2.0
tests: libfoo-tests == 1.0.0
builds: +gcc
build-include: linux

`

func TestParsePackageBasic(t *testing.T) {
	p, err := manifest.ParsePackage(strings.NewReader(samplePackage), manifest.PackageFlags{})
	require.NoError(t, err)
	require.Equal(t, "libfoo", p.Name)
	require.Equal(t, "1.0.0", p.Version.String(false, false))
	require.Equal(t, "The foo library", p.Summary)
	require.Len(t, p.Licenses, 1)
	require.Equal(t, []string{"MIT"}, p.Licenses[0])
	require.Len(t, p.Depends, 1)
	require.Equal(t, "libbar", p.Depends[0].Alternatives[0].Name)
	require.Len(t, p.Tests, 1)
	require.Equal(t, manifest.TestKindTests, p.Tests[0].Kind)
	require.Len(t, p.Builds, 1)
	require.Len(t, p.BuildConstraints, 1)
}

func TestParsePackageMissingName(t *testing.T) {
	text := ": 1\nversion: 1.0\nsummary: x\nlicense: MIT\n\n"
	_, err := manifest.ParsePackage(strings.NewReader(text), manifest.PackageFlags{})
	require.Error(t, err)
}

func TestParsePackageRedefinition(t *testing.T) {
	text := ": 1\nname: libfoo\nname: libbar\nversion: 1.0\nsummary: x\nlicense: MIT\n\n"
	_, err := manifest.ParsePackage(strings.NewReader(text), manifest.PackageFlags{})
	require.Error(t, err)
}

func TestParsePackageUpstreamVersionOnStub(t *testing.T) {
	text := ": 1\nname: libfoo\nversion: 0\nupstream-version: 1.2\nsummary: x\nlicense: MIT\n\n"
	_, err := manifest.ParsePackage(strings.NewReader(text), manifest.PackageFlags{})
	require.Error(t, err)
}

func TestPackageSerializeRoundTrip(t *testing.T) {
	p, err := manifest.ParsePackage(strings.NewReader(samplePackage), manifest.PackageFlags{})
	require.NoError(t, err)

	var b strings.Builder
	require.NoError(t, p.Serialize(&b))

	p2, err := manifest.ParsePackage(strings.NewReader(b.String()), manifest.PackageFlags{})
	require.NoError(t, err)
	require.Equal(t, p.Name, p2.Name)
	require.Equal(t, p.Summary, p2.Summary)
}

func TestOverrideResetsGroup(t *testing.T) {
	p, err := manifest.ParsePackage(strings.NewReader(samplePackage), manifest.PackageFlags{})
	require.NoError(t, err)

	require.NoError(t, p.Override([]manifest.NameValue{{Name: "builds", Value: "+gcc"}}))
	require.Len(t, p.Builds, 1)
	require.Empty(t, p.BuildConstraints)

	require.NoError(t, p.Override([]manifest.NameValue{{Name: "build-exclude", Value: "foo"}}))
	require.Len(t, p.Builds, 1) // preserved from the previous override call
	require.Len(t, p.BuildConstraints, 1)
}

func TestOverrideRejectsUnknownField(t *testing.T) {
	var p manifest.Package
	err := p.Override([]manifest.NameValue{{Name: "summary", Value: "nope"}})
	require.Error(t, err)
}

func TestValidateOverrides(t *testing.T) {
	require.NoError(t, manifest.ValidateOverrides([]manifest.NameValue{
		{Name: "build-email", Value: "build@example.com"},
	}))
	require.Error(t, manifest.ValidateOverrides([]manifest.NameValue{
		{Name: "name", Value: "libfoo"},
	}))
}

func TestLoadFilesInfersType(t *testing.T) {
	text := ": 1\nname: libfoo\nversion: 1.0\nsummary: x\nlicense: MIT\ndescription-file: README.md\n\n"
	p, err := manifest.ParsePackage(strings.NewReader(text), manifest.PackageFlags{})
	require.NoError(t, err)

	err = p.LoadFiles(func(path string) ([]byte, error) {
		require.Equal(t, "README.md", path)
		return []byte("# Foo\n"), nil
	})
	require.NoError(t, err)
	require.Equal(t, "github-markdown", p.DescriptionType)
	require.Equal(t, "# Foo\n", p.Description.Inline)
}

const sampleRepository = `: 1
role: prerequisite

`

func TestParseRepositoryBasic(t *testing.T) {
	m, err := manifest.ParseRepository(strings.NewReader(sampleRepository))
	require.NoError(t, err)
	require.Equal(t, manifest.RolePrerequisite, m.Role)
	require.False(t, m.HasLocation)
}

func TestParseRepositoryBaseOnlyFields(t *testing.T) {
	text := ": 1\nlocation: https://example.com/1\nrole: complement\nsummary: nope\n\n"
	_, err := manifest.ParseRepository(strings.NewReader(text))
	require.Error(t, err)
}

func TestParseRepositoryList(t *testing.T) {
	text := ": 1\nlocation: https://example.com/1\nrole: base\nsummary: base repo\n\n" +
		": 1\nlocation: https://example.com/prereq/1\nrole: prerequisite\n\n"
	list, err := manifest.ParseRepositoryList(strings.NewReader(text))
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, manifest.RoleBase, list[0].EffectiveRole())
}

func TestParseRepositoryListRejectsMultipleBase(t *testing.T) {
	text := ": 1\nlocation: https://example.com/1\nrole: base\n\n" +
		": 1\nlocation: https://example.com/other/1\nrole: base\n\n"
	_, err := manifest.ParseRepositoryList(strings.NewReader(text))
	require.Error(t, err)
}

const sampleSignature = `: 1
sha256sum: 000000000000000000000000000000000000000000000000000000000000000
signature: aGVsbG8=

`

func TestParseSignature(t *testing.T) {
	// sha256sum must be exactly 64 hex chars; sampleSignature's is one short,
	// so build a valid manifest here.
	text := ": 1\nsha256sum: " + strings.Repeat("a", 64) + "\nsignature: aGVsbG8=\n\n"
	m, err := manifest.ParseSignature(strings.NewReader(text))
	require.NoError(t, err)
	require.Equal(t, "hello", string(m.Signature))
}

func TestParseSignatureInvalidSHA(t *testing.T) {
	_, err := manifest.ParseSignature(strings.NewReader(sampleSignature))
	require.Error(t, err)
}

func TestParsePackageList(t *testing.T) {
	header := ": 1\nsha256sum: " + strings.Repeat("a", 64) + "\n\n"
	pkg := ": 1\nname: libfoo\nversion: 1.0\nsummary: x\nlicense: MIT\n" +
		"location: libfoo-1.0.tar.gz\nsha256sum: " + strings.Repeat("b", 64) + "\n\n"

	hdr, pkgs, err := manifest.ParsePackageList(strings.NewReader(header + pkg))
	require.NoError(t, err)
	require.Equal(t, strings.Repeat("a", 64), hdr.SHA256Sum)
	require.Len(t, pkgs, 1)
	require.Equal(t, "libfoo", pkgs[0].Name)
}
