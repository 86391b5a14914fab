// Package manifest implements the package, repository, and signature
// manifest record types: parsing from an nvpair name/value stream,
// cross-field validation, override application, and serialization back to
// name/value pairs.
package manifest

import (
	"io"
	"strings"

	"github.com/build2/libbpkg-sub000/bpkgerror"
	"github.com/build2/libbpkg-sub000/buildclass"
	"github.com/build2/libbpkg-sub000/constraint"
	pkgname "github.com/build2/libbpkg-sub000/name"
	"github.com/build2/libbpkg-sub000/nvpair"
	"github.com/build2/libbpkg-sub000/version"
)

// PriorityKind orders a package's suggested build priority.
type PriorityKind int

const (
	PriorityLow PriorityKind = iota
	PriorityMedium
	PriorityHigh
	PrioritySecurity
)

var priorityNames = [...]string{"low", "medium", "high", "security"}

func (p PriorityKind) String() string {
	if int(p) < len(priorityNames) {
		return priorityNames[p]
	}
	return "low"
}

func parsePriority(s string) (PriorityKind, error) {
	for i, n := range priorityNames {
		if n == s {
			return PriorityKind(i), nil
		}
	}
	return 0, vbad("invalid priority %q", s)
}

// TextSource is a description/changes value that is either inline text
// (with an optional comment) or a reference to an external file.
type TextSource struct {
	Inline  string
	File    string
	Comment string
	IsFile  bool
}

// DependencyAlternative is one "depends" manifest value: a package name,
// an optional version constraint, and optionally a build-class expression
// restricting which configurations the dependency applies in.
type DependencyAlternative struct {
	Name       string
	Constraint *constraint.Constraint
	Enable     *buildclass.Expr
	Comment    string
}

// DependencyGroup is one or more '|'-separated alternatives sharing a
// single manifest "depends" value.
type DependencyGroup struct {
	Alternatives []DependencyAlternative
	BuildtimeOf  string // target build configuration class, "" for host
}

// TestDependency is a tests/examples/benchmarks manifest value.
type TestDependency struct {
	DependencyAlternative
	Kind TestKind
}

// TestKind classifies a TestDependency.
type TestKind int

const (
	TestKindTests TestKind = iota
	TestKindExamples
	TestKindBenchmarks
)

// PackageFlags controls context-sensitive parsing behavior.
type PackageFlags struct {
	ForbidFile                   bool
	RequireLocation              bool
	RequireSHA256Sum             bool
	ForbidFragment               bool
	RequireDescriptionType       bool
	ForbidIncompleteDependencies bool
	CompleteDepends              bool
	TranslateVersion             func(version.Version) (version.Version, error)
}

// Package is a parsed and validated package manifest.
type Package struct {
	Name              string
	Version           version.Version
	UpstreamVersion   string
	Project           string
	Priority          *PriorityKind
	PriorityComment   string
	Summary           string
	Licenses          [][]string        // each element is an alternative group ('or')
	LicenseComments   []string
	Topics            []string
	Keywords          []string
	Description       *TextSource
	DescriptionType   string
	Changes           []TextSource
	URL               string
	DocURL            string
	SrcURL            string
	PackageURL        string
	Email             string
	PackageEmail      string
	BuildEmail        string
	BuildWarningEmail string
	BuildErrorEmail   string
	Depends           []DependencyGroup
	Requires          []DependencyGroup
	Tests             []TestDependency
	Builds            []buildclass.Expr
	BuildConstraints  []buildclass.Expr // build-include/build-exclude, in document order

	// List-context-only fields.
	Location  string
	SHA256Sum string
	Fragment  string

	seen map[string]bool
}

func vbad(format string, args ...any) error {
	return bpkgerror.New(bpkgerror.Validation, format, args...)
}

func vval(format string, args ...any) error {
	return bpkgerror.New(bpkgerror.Value, format, args...)
}

// ParsePackage reads one package manifest from r.
func ParsePackage(r io.Reader, flags PackageFlags) (*Package, error) {
	s := nvpair.NewScanner(r)

	first, err := s.Next()
	if err != nil {
		return nil, bpkgerror.New(bpkgerror.Parse, "failed to read manifest header: %s", err)
	}
	if first.Name != "" || first.Value != "1" {
		return nil, bpkgerror.New(bpkgerror.Parse, "expected format version '1' as the first manifest entry")
	}

	p := &Package{seen: map[string]bool{}}

	var rawDepends, rawTests, rawRequires []rawTestOrDepend
	var rawDescription, rawDescriptionFile, rawDescriptionType, rawDescriptionComment string
	haveDescription, haveDescriptionFile := false, false

	for {
		pair, err := s.Next()
		if err == io.EOF {
			return nil, bpkgerror.New(bpkgerror.Parse, "unterminated package manifest")
		}
		if err != nil {
			return nil, err
		}
		if pair.IsEnd() {
			break
		}

		name := pair.Name
		value, comment := nvpair.SplitComment(pair.Value)

		redefine := func() error {
			if p.seen[name] {
				return vbad("package %s redefinition", name)
			}
			p.seen[name] = true
			return nil
		}

		switch name {
		case "name":
			if err := redefine(); err != nil {
				return nil, err
			}
			pn, err := pkgname.ParsePackage(value)
			if err != nil {
				return nil, vval("invalid package name: %s", err)
			}
			p.Name = pn.String()

		case "version":
			if err := redefine(); err != nil {
				return nil, err
			}
			v, err := version.Parse(value, version.ParseFlags{FoldZeroRevision: true})
			if err != nil {
				return nil, vval("invalid package version: %s", err)
			}
			if flags.TranslateVersion != nil {
				v, err = flags.TranslateVersion(v)
				if err != nil {
					return nil, err
				}
			}
			if v.IsEmpty() || v.Release.Kind == version.ReleaseEarliest {
				return nil, vval("invalid package version")
			}
			p.Version = v

		case "upstream-version":
			if err := redefine(); err != nil {
				return nil, err
			}
			if value == "" {
				return nil, vbad("empty upstream-version")
			}
			p.UpstreamVersion = value

		case "project":
			if err := redefine(); err != nil {
				return nil, err
			}
			pn, err := pkgname.ParsePackage(value)
			if err != nil {
				return nil, vval("invalid project name: %s", err)
			}
			p.Project = pn.String()

		case "priority":
			if err := redefine(); err != nil {
				return nil, err
			}
			kind, err := parsePriority(value)
			if err != nil {
				return nil, err
			}
			p.Priority = &kind
			p.PriorityComment = comment

		case "summary":
			if err := redefine(); err != nil {
				return nil, err
			}
			if value == "" {
				return nil, vbad("empty package summary")
			}
			p.Summary = value

		case "license":
			if value == "" {
				return nil, vbad("empty license")
			}
			alts := strings.Split(value, "|")
			for i := range alts {
				alts[i] = strings.TrimSpace(alts[i])
			}
			p.Licenses = append(p.Licenses, alts)
			p.LicenseComments = append(p.LicenseComments, comment)

		case "topics":
			p.Topics = append(p.Topics, splitCommaList(value)...)

		case "keywords":
			p.Keywords = append(p.Keywords, splitCommaList(value)...)

		case "description":
			if haveDescription || haveDescriptionFile {
				return nil, vbad("description/description-file redefinition")
			}
			haveDescription = true
			rawDescription = value
			rawDescriptionComment = comment

		case "description-file":
			if flags.ForbidFile {
				return nil, vbad("description-file not allowed in this context")
			}
			if haveDescription || haveDescriptionFile {
				return nil, vbad("description/description-file redefinition")
			}
			haveDescriptionFile = true
			rawDescriptionFile = value
			rawDescriptionComment = comment

		case "description-type":
			if err := redefine(); err != nil {
				return nil, err
			}
			rawDescriptionType = value

		case "changes":
			p.Changes = append(p.Changes, TextSource{Inline: value, Comment: comment})

		case "changes-file":
			if flags.ForbidFile {
				return nil, vbad("changes-file not allowed in this context")
			}
			p.Changes = append(p.Changes, TextSource{File: value, Comment: comment, IsFile: true})

		case "url":
			if err := redefine(); err != nil {
				return nil, err
			}
			p.URL = value
		case "doc-url":
			if err := redefine(); err != nil {
				return nil, err
			}
			p.DocURL = value
		case "src-url":
			if err := redefine(); err != nil {
				return nil, err
			}
			p.SrcURL = value
		case "package-url":
			if err := redefine(); err != nil {
				return nil, err
			}
			p.PackageURL = value
		case "email":
			if err := redefine(); err != nil {
				return nil, err
			}
			p.Email = value
		case "package-email":
			if err := redefine(); err != nil {
				return nil, err
			}
			p.PackageEmail = value
		case "build-email":
			if err := redefine(); err != nil {
				return nil, err
			}
			p.BuildEmail = value
		case "build-warning-email":
			if err := redefine(); err != nil {
				return nil, err
			}
			p.BuildWarningEmail = value
		case "build-error-email":
			if err := redefine(); err != nil {
				return nil, err
			}
			p.BuildErrorEmail = value

		case "depends":
			rawDepends = append(rawDepends, rawTestOrDepend{value, comment, ""})

		case "requires":
			rawRequires = append(rawRequires, rawTestOrDepend{value, comment, ""})

		case "tests", "examples", "benchmarks":
			rawTests = append(rawTests, rawTestOrDepend{value, comment, name})

		case "builds":
			e, err := buildclass.Parse(value)
			if err != nil {
				return nil, err
			}
			p.Builds = append(p.Builds, e)

		case "build-include", "build-exclude":
			op := byte('+')
			if name == "build-exclude" {
				op = '-'
			}
			e, err := buildclass.Parse(string(op) + value)
			if err != nil {
				return nil, err
			}
			p.BuildConstraints = append(p.BuildConstraints, e)

		case "location":
			if err := redefine(); err != nil {
				return nil, err
			}
			p.Location = value

		case "sha256sum":
			if err := redefine(); err != nil {
				return nil, err
			}
			if len(value) != 64 {
				return nil, vval("invalid sha256sum")
			}
			p.SHA256Sum = value

		case "fragment":
			if flags.ForbidFragment {
				return nil, vbad("fragment not allowed in this context")
			}
			if err := redefine(); err != nil {
				return nil, err
			}
			p.Fragment = value

		default:
			return nil, bpkgerror.New(bpkgerror.Parse, "unknown package manifest entry %q", name)
		}
	}

	if p.Name == "" {
		return nil, vbad("no package name specified")
	}
	if p.Version.IsEmpty() {
		return nil, vbad("no package version specified")
	}
	if p.Summary == "" {
		return nil, vbad("no package summary specified")
	}
	if len(p.Licenses) == 0 {
		return nil, vbad("no package license specified")
	}
	if flags.RequireLocation && p.Location == "" {
		return nil, vbad("no package location specified")
	}
	if flags.RequireSHA256Sum && p.SHA256Sum == "" {
		return nil, vbad("no package sha256sum specified")
	}

	if p.UpstreamVersion != "" && p.Version.IsStub() {
		return nil, vbad("upstream-version specified for a stub package version")
	}

	if haveDescription {
		p.Description = &TextSource{Inline: rawDescription, Comment: rawDescriptionComment}
	} else if haveDescriptionFile {
		p.Description = &TextSource{File: rawDescriptionFile, Comment: rawDescriptionComment, IsFile: true}
	}
	if rawDescriptionType != "" {
		if p.Description == nil {
			return nil, vbad("description-type specified without description")
		}
		p.DescriptionType = rawDescriptionType
	}

	for _, rd := range rawDepends {
		g, err := parseDependencyGroup(rd.value, rd.comment, p.Version, flags)
		if err != nil {
			return nil, err
		}
		p.Depends = append(p.Depends, g)
	}
	for _, rd := range rawRequires {
		g, err := parseDependencyGroup(rd.value, rd.comment, p.Version, flags)
		if err != nil {
			return nil, err
		}
		p.Requires = append(p.Requires, g)
	}
	for _, rt := range rawTests {
		alt, err := parseDependencyAlternative(rt.value, rt.comment, p.Version, flags)
		if err != nil {
			return nil, err
		}
		kind := TestKindTests
		switch rt.name {
		case "examples":
			kind = TestKindExamples
		case "benchmarks":
			kind = TestKindBenchmarks
		}
		p.Tests = append(p.Tests, TestDependency{DependencyAlternative: alt, Kind: kind})
	}

	return p, nil
}

type rawTestOrDepend struct {
	value   string
	comment string
	name    string
}

func splitCommaList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseDependencyGroup parses a "depends" or "requires" value: one or more
// '|'-separated alternatives, each parsed by parseDependencyAlternative. A
// leading "?" marker or a trailing "{...}" build-class clause is not
// recognized; such text stays part of the name or constraint text.
func parseDependencyGroup(value, comment string, dependent version.Version, flags PackageFlags) (DependencyGroup, error) {
	var g DependencyGroup

	for _, alt := range strings.Split(value, "|") {
		a, err := parseDependencyAlternative(strings.TrimSpace(alt), comment, dependent, flags)
		if err != nil {
			return DependencyGroup{}, err
		}
		g.Alternatives = append(g.Alternatives, a)
	}
	return g, nil
}

// parseDependencyAlternative parses one alternative: the package name, up
// to the first of "=<>([~^", followed by an optional constraint.
func parseDependencyAlternative(value, comment string, dependent version.Version, flags PackageFlags) (DependencyAlternative, error) {
	if value == "" {
		return DependencyAlternative{}, vbad("empty dependency")
	}

	idx := strings.IndexAny(value, "=<>([~^")
	var name, constrText string
	if idx < 0 {
		name = strings.TrimSpace(value)
	} else {
		name = strings.TrimSpace(value[:idx])
		constrText = strings.TrimSpace(value[idx:])
	}
	if name == "" {
		return DependencyAlternative{}, vbad("missing dependency package name")
	}

	a := DependencyAlternative{Name: name, Comment: comment}

	if constrText != "" {
		c, err := constraint.Parse(constrText)
		if err != nil {
			return DependencyAlternative{}, err
		}
		if flags.ForbidIncompleteDependencies && !c.Complete() {
			return DependencyAlternative{}, vbad("incomplete dependency constraint for %q", name)
		}
		if flags.CompleteDepends && !c.Complete() {
			eff, err := c.Effective(dependent)
			if err != nil {
				return DependencyAlternative{}, err
			}
			c = eff
		}
		a.Constraint = &c
	}

	return a, nil
}

// Override applies a vector of additional name/value pairs on top of an
// already-parsed manifest. Only the override-eligible field groups are
// accepted: {builds, build-include, build-exclude} and {build-email,
// build-warning-email, build-error-email}. Within one call, the first
// "builds" override resets both builds and build constraints, the first
// build-include/build-exclude override resets only the build constraints,
// and the first build email override resets all three emails.
func (p *Package) Override(nvs []NameValue) error {
	resetBuilds, resetConstraints, resetEmails := false, false, false
	for _, nv := range nvs {
		switch nv.Name {
		case "builds", "build-include", "build-exclude":
			if nv.Name == "builds" && !resetBuilds {
				p.Builds = nil
				resetBuilds = true
			}
			if !resetConstraints {
				p.BuildConstraints = nil
				resetConstraints = true
			}
			switch nv.Name {
			case "builds":
				e, err := buildclass.Parse(nv.Value)
				if err != nil {
					return err
				}
				p.Builds = append(p.Builds, e)
			case "build-include", "build-exclude":
				op := byte('+')
				if nv.Name == "build-exclude" {
					op = '-'
				}
				e, err := buildclass.Parse(string(op) + nv.Value)
				if err != nil {
					return err
				}
				p.BuildConstraints = append(p.BuildConstraints, e)
			}

		case "build-email", "build-warning-email", "build-error-email":
			if !resetEmails {
				p.BuildEmail, p.BuildWarningEmail, p.BuildErrorEmail = "", "", ""
				resetEmails = true
			}
			switch nv.Name {
			case "build-email":
				p.BuildEmail = nv.Value
			case "build-warning-email":
				p.BuildWarningEmail = nv.Value
			case "build-error-email":
				p.BuildErrorEmail = nv.Value
			}

		default:
			return vbad("%q is not an override-eligible manifest entry", nv.Name)
		}
	}
	return nil
}

// NameValue is one override input entry.
type NameValue struct {
	Name  string
	Value string
}

// ValidateOverrides exercises Override's acceptance logic against a
// throwaway manifest, without needing an already-parsed one on hand.
func ValidateOverrides(nvs []NameValue) error {
	var throwaway Package
	return throwaway.Override(nvs)
}

// FileLoader resolves a description-file or changes-file reference to its
// contents.
type FileLoader func(path string) ([]byte, error)

// LoadFiles resolves description-file and changes-file references via
// loader, and finalizes the description type: if absent, it is inferred
// from the file extension (md/markdown -> github-markdown; txt/none ->
// plain).
func (p *Package) LoadFiles(loader FileLoader) error {
	if p.Description != nil && p.Description.IsFile {
		data, err := loader(p.Description.File)
		if err != nil {
			return err
		}
		if len(data) == 0 {
			return vbad("empty description file %q", p.Description.File)
		}
		p.Description.Inline = string(data)
		if p.DescriptionType == "" {
			p.DescriptionType = inferTextType(p.Description.File)
		}
	}

	for i := range p.Changes {
		c := &p.Changes[i]
		if c.IsFile {
			data, err := loader(c.File)
			if err != nil {
				return err
			}
			if len(data) == 0 {
				return vbad("empty changes file %q", c.File)
			}
			c.Inline = string(data)
		}
	}

	return nil
}

func inferTextType(path string) string {
	ext := ""
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		ext = strings.ToLower(path[i+1:])
	}
	switch ext {
	case "md", "markdown":
		return "github-markdown"
	case "txt", "":
		return "plain"
	default:
		return "text/unknown; extension=" + ext
	}
}

// Serialize writes the package manifest back out in the canonical field
// order.
func (p *Package) Serialize(w io.Writer) error {
	nw := nvpair.NewWriter(w)
	if err := nw.Write("", "1"); err != nil {
		return err
	}

	write := func(name, value string) error {
		if value == "" {
			return nil
		}
		return nw.Write(name, value)
	}

	if err := write("name", p.Name); err != nil {
		return err
	}
	if err := nw.Write("version", p.Version.String(false, false)); err != nil {
		return err
	}
	if err := write("upstream-version", p.UpstreamVersion); err != nil {
		return err
	}
	if err := write("project", p.Project); err != nil {
		return err
	}
	if p.Priority != nil {
		if err := nw.Write("priority", nvpair.MergeComment(p.Priority.String(), p.PriorityComment)); err != nil {
			return err
		}
	}
	if err := write("summary", p.Summary); err != nil {
		return err
	}
	for i, alt := range p.Licenses {
		comment := ""
		if i < len(p.LicenseComments) {
			comment = p.LicenseComments[i]
		}
		if err := nw.Write("license", nvpair.MergeComment(strings.Join(alt, " | "), comment)); err != nil {
			return err
		}
	}
	if len(p.Topics) > 0 {
		if err := nw.Write("topics", strings.Join(p.Topics, ", ")); err != nil {
			return err
		}
	}
	if len(p.Keywords) > 0 {
		if err := nw.Write("keywords", strings.Join(p.Keywords, ", ")); err != nil {
			return err
		}
	}
	if p.Description != nil {
		if p.Description.IsFile {
			if err := nw.Write("description-file", nvpair.MergeComment(p.Description.File, p.Description.Comment)); err != nil {
				return err
			}
		} else {
			if err := nw.Write("description", nvpair.MergeComment(p.Description.Inline, p.Description.Comment)); err != nil {
				return err
			}
		}
		if err := write("description-type", p.DescriptionType); err != nil {
			return err
		}
	}
	for _, c := range p.Changes {
		name, val := "changes", c.Inline
		if c.IsFile {
			name, val = "changes-file", c.File
		}
		if err := nw.Write(name, nvpair.MergeComment(val, c.Comment)); err != nil {
			return err
		}
	}
	if err := write("url", p.URL); err != nil {
		return err
	}
	if err := write("doc-url", p.DocURL); err != nil {
		return err
	}
	if err := write("src-url", p.SrcURL); err != nil {
		return err
	}
	if err := write("package-url", p.PackageURL); err != nil {
		return err
	}
	if err := write("email", p.Email); err != nil {
		return err
	}
	if err := write("package-email", p.PackageEmail); err != nil {
		return err
	}
	if err := write("build-email", p.BuildEmail); err != nil {
		return err
	}
	if err := write("build-warning-email", p.BuildWarningEmail); err != nil {
		return err
	}
	if err := write("build-error-email", p.BuildErrorEmail); err != nil {
		return err
	}
	for _, g := range p.Depends {
		if err := nw.Write("depends", formatDependencyGroup(g)); err != nil {
			return err
		}
	}
	for _, g := range p.Requires {
		if err := nw.Write("requires", formatDependencyGroup(g)); err != nil {
			return err
		}
	}
	for _, t := range p.Tests {
		name := [...]string{"tests", "examples", "benchmarks"}[t.Kind]
		if err := nw.Write(name, formatDependencyAlternative(t.DependencyAlternative)); err != nil {
			return err
		}
	}
	for _, e := range p.Builds {
		if err := nw.Write("builds", e.String()); err != nil {
			return err
		}
	}
	for _, e := range p.BuildConstraints {
		name, text := "build-include", e.String()
		if strings.HasPrefix(text, "-") {
			name = "build-exclude"
		}
		if err := nw.Write(name, strings.TrimPrefix(strings.TrimPrefix(text, "+"), "-")); err != nil {
			return err
		}
	}

	listContext := p.Location != "" || p.SHA256Sum != ""
	if listContext {
		if p.Location == "" {
			return vbad("missing location in list-context serialization")
		}
		if p.SHA256Sum == "" {
			return vbad("missing sha256sum in list-context serialization")
		}
		if p.Description != nil && p.Description.IsFile {
			return vbad("file-referenced description in list-context serialization")
		}
		if err := nw.Write("location", p.Location); err != nil {
			return err
		}
		if err := nw.Write("sha256sum", p.SHA256Sum); err != nil {
			return err
		}
		if err := write("fragment", p.Fragment); err != nil {
			return err
		}
	}

	return nw.Close()
}

func formatDependencyGroup(g DependencyGroup) string {
	parts := make([]string, len(g.Alternatives))
	for i, a := range g.Alternatives {
		parts[i] = formatDependencyAlternative(a)
	}
	return strings.Join(parts, " | ")
}

func formatDependencyAlternative(a DependencyAlternative) string {
	s := a.Name
	if a.Constraint != nil {
		s += " " + a.Constraint.String()
	}
	return nvpair.MergeComment(s, a.Comment)
}
