package manifest

import (
	"encoding/base64"
	"io"
	"strings"

	"github.com/build2/libbpkg-sub000/bpkgerror"
	"github.com/build2/libbpkg-sub000/nvpair"
)

// Signature is a parsed and validated signature manifest: a sha256 digest
// of the repository manifest file it accompanies, and a base64-decoded
// signature over that digest.
type Signature struct {
	SHA256Sum string
	Signature []byte
}

func isHex64(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

// ParseSignature reads one signature manifest from r.
func ParseSignature(r io.Reader) (*Signature, error) {
	s := nvpair.NewScanner(r)

	first, err := s.Next()
	if err != nil {
		return nil, bpkgerror.New(bpkgerror.Parse, "failed to read manifest header: %s", err)
	}
	if first.Name != "" || first.Value != "1" {
		return nil, bpkgerror.New(bpkgerror.Parse, "expected format version '1' as the first manifest entry")
	}

	m := &Signature{}
	var rawSig string
	seen := map[string]bool{}

	for {
		pair, err := s.Next()
		if err == io.EOF {
			return nil, bpkgerror.New(bpkgerror.Parse, "unterminated signature manifest")
		}
		if err != nil {
			return nil, err
		}
		if pair.IsEnd() {
			break
		}

		switch pair.Name {
		case "sha256sum":
			if seen["sha256sum"] {
				return nil, vbad("sha256sum redefinition")
			}
			seen["sha256sum"] = true
			if !isHex64(pair.Value) {
				return nil, vval("invalid sha256sum")
			}
			m.SHA256Sum = pair.Value

		case "signature":
			if seen["signature"] {
				return nil, vbad("signature redefinition")
			}
			seen["signature"] = true
			rawSig = pair.Value

		default:
			return nil, bpkgerror.New(bpkgerror.Parse, "unknown signature manifest entry %q", pair.Name)
		}
	}

	if m.SHA256Sum == "" {
		return nil, vbad("no sha256sum specified")
	}
	if rawSig == "" {
		return nil, vbad("no signature specified")
	}
	sig, err := base64.StdEncoding.DecodeString(rawSig)
	if err != nil {
		return nil, vval("invalid base64 signature: %s", err)
	}
	m.Signature = sig

	return m, nil
}

// Serialize writes the signature manifest back out.
func (m *Signature) Serialize(w io.Writer) error {
	nw := nvpair.NewWriter(w)
	if err := nw.Write("", "1"); err != nil {
		return err
	}
	if err := nw.Write("sha256sum", m.SHA256Sum); err != nil {
		return err
	}
	if err := nw.Write("signature", base64.StdEncoding.EncodeToString(m.Signature)); err != nil {
		return err
	}
	return nw.Close()
}

// PackageListHeader is the first manifest of a package list: the sha256sum
// of the repository manifest file the list accompanies.
type PackageListHeader struct {
	SHA256Sum string
}

// ParsePackageList reads a package list manifest stream: a header manifest
// carrying sha256sum, then a sequence of package manifests, each of which
// must carry location and sha256sum and must not carry file-referenced
// text.
func ParsePackageList(r io.Reader) (*PackageListHeader, []*Package, error) {
	dec := &multiManifestReader{r: r}

	headerText, ok := dec.next()
	if !ok {
		return nil, nil, bpkgerror.New(bpkgerror.Parse, "empty package list manifest")
	}

	header, err := parsePackageListHeader(headerText)
	if err != nil {
		return nil, nil, err
	}

	var packages []*Package
	flags := PackageFlags{ForbidFile: true, RequireLocation: true, RequireSHA256Sum: true}
	for {
		section, ok := dec.next()
		if !ok {
			break
		}
		p, err := ParsePackage(strings.NewReader(section), flags)
		if err != nil {
			return nil, nil, err
		}
		packages = append(packages, p)
	}

	return header, packages, nil
}

func parsePackageListHeader(text string) (*PackageListHeader, error) {
	s := nvpair.NewScanner(strings.NewReader(text))

	first, err := s.Next()
	if err != nil {
		return nil, bpkgerror.New(bpkgerror.Parse, "failed to read package list header: %s", err)
	}
	if first.Name != "" || first.Value != "1" {
		return nil, bpkgerror.New(bpkgerror.Parse, "expected format version '1' as the first manifest entry")
	}

	h := &PackageListHeader{}
	for {
		pair, err := s.Next()
		if err == io.EOF {
			return nil, bpkgerror.New(bpkgerror.Parse, "unterminated package list header")
		}
		if err != nil {
			return nil, err
		}
		if pair.IsEnd() {
			break
		}
		if pair.Name != "sha256sum" {
			return nil, bpkgerror.New(bpkgerror.Parse, "unknown package list header entry %q", pair.Name)
		}
		if !isHex64(pair.Value) {
			return nil, vval("invalid sha256sum")
		}
		h.SHA256Sum = pair.Value
	}

	if h.SHA256Sum == "" {
		return nil, vbad("no sha256sum specified in package list header")
	}
	return h, nil
}
