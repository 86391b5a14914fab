// Package name validates and decomposes bpkg package names and build-class
// names.
package name

import (
	"strings"

	"github.com/build2/libbpkg-sub000/bpkgerror"
)

var reservedPackageNames = map[string]bool{
	"con": true, "prn": true, "aux": true, "nul": true, "build": true,
	"com1": true, "com2": true, "com3": true, "com4": true, "com5": true,
	"com6": true, "com7": true, "com8": true, "com9": true,
	"lpt1": true, "lpt2": true, "lpt3": true, "lpt4": true, "lpt5": true,
	"lpt6": true, "lpt7": true, "lpt8": true, "lpt9": true,
}

func isLetter(r rune) bool { return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') }
func isDigit(r rune) bool  { return r >= '0' && r <= '9' }
func isAlnum(r rune) bool  { return isLetter(r) || isDigit(r) }

func vbad(format string, args ...any) error {
	return bpkgerror.New(bpkgerror.Value, format, args...)
}

// Package is a validated package name.
type Package struct {
	text string
}

// ParsePackage validates s as a package name: at least two characters,
// first character a letter, interior characters alphanumeric plus
// '_', '+', '-', '.', last character alphanumeric or '+', and not one of
// the platform-reserved names (case-insensitively).
func ParsePackage(s string) (Package, error) {
	if len(s) < 2 {
		return Package{}, vbad("package name %q too short", s)
	}

	runes := []rune(s)
	if !isLetter(runes[0]) {
		return Package{}, vbad("package name %q must start with a letter", s)
	}
	last := runes[len(runes)-1]
	if !isAlnum(last) && last != '+' {
		return Package{}, vbad("package name %q has invalid last character", s)
	}
	for _, r := range runes {
		if !isAlnum(r) && r != '_' && r != '+' && r != '-' && r != '.' {
			return Package{}, vbad("package name %q has invalid character %q", s, r)
		}
	}

	if reservedPackageNames[strings.ToLower(s)] {
		return Package{}, vbad("package name %q is reserved", s)
	}

	return Package{text: s}, nil
}

// String returns the original (non-canonicalized) spelling of the name.
func (p Package) String() string { return p.text }

// Base returns the name with the last dot-separated extension removed, or
// the whole name if it has none.
func (p Package) Base() string {
	if i := strings.LastIndexByte(p.text, '.'); i > 0 {
		return p.text[:i]
	}
	return p.text
}

// Extension returns the last dot-separated extension, or "" if the name has
// none.
func (p Package) Extension() string {
	if i := strings.LastIndexByte(p.text, '.'); i > 0 {
		return p.text[i+1:]
	}
	return ""
}

// Variable returns the name transliterated for use as a build system
// variable/macro name: every character outside [A-Za-z0-9_] becomes '_'.
func (p Package) Variable() string {
	b := []byte(p.text)
	for i, c := range b {
		if !isAlnum(rune(c)) && c != '_' {
			b[i] = '_'
		}
	}
	return string(b)
}

// BuildClass is a validated build-class name.
type BuildClass struct {
	text     string
	reserved bool
}

// ParseBuildClass validates s as a build-class name: non-empty, first
// character alphanumeric or '_', interior characters alphanumeric plus
// '+', '-', '_', '.'. A leading underscore marks the class as
// implementation-reserved.
func ParseBuildClass(s string) (BuildClass, error) {
	if s == "" {
		return BuildClass{}, vbad("empty build class name")
	}
	runes := []rune(s)
	if !isAlnum(runes[0]) && runes[0] != '_' {
		return BuildClass{}, vbad("build class name %q must start with an alphanumeric or '_'", s)
	}
	for _, r := range runes[1:] {
		if !isAlnum(r) && r != '+' && r != '-' && r != '_' && r != '.' {
			return BuildClass{}, vbad("build class name %q has invalid character %q", s, r)
		}
	}
	return BuildClass{text: s, reserved: runes[0] == '_'}, nil
}

// String returns the class name text.
func (c BuildClass) String() string { return c.text }

// Reserved reports whether the class name is reserved for the build system
// implementation (starts with '_').
func (c BuildClass) Reserved() bool { return c.reserved }
