package manifest

import (
	"io"
	"strings"

	"github.com/build2/libbpkg-sub000/bpkgerror"
	"github.com/build2/libbpkg-sub000/nvpair"
	"github.com/build2/libbpkg-sub000/repository"
)

// Role is a repository manifest's relation to the repository it appears
// in.
type Role int

const (
	RoleBase Role = iota
	RolePrerequisite
	RoleComplement
)

var roleNames = [...]string{"base", "prerequisite", "complement"}

func (r Role) String() string { return roleNames[r] }

func parseRole(s string) (Role, error) {
	for i, n := range roleNames {
		if n == s {
			return Role(i), nil
		}
	}
	return 0, vbad("invalid repository role %q", s)
}

// Repository is a parsed and validated repository manifest.
type Repository struct {
	Location        repository.Location
	HasLocation     bool
	Role            Role
	URL             string
	Email           string
	Summary         string
	Description     string
	Certificate     string
	Trust           string
	Fragment        string
}

// EffectiveRole is Role unless Location is absent, in which case the
// manifest is implicitly the base of its own list.
func (r *Repository) EffectiveRole() Role {
	if !r.HasLocation {
		return RoleBase
	}
	return r.Role
}

// ParseRepository reads one repository manifest from r.
func ParseRepository(r io.Reader) (*Repository, error) {
	s := nvpair.NewScanner(r)

	first, err := s.Next()
	if err != nil {
		return nil, bpkgerror.New(bpkgerror.Parse, "failed to read manifest header: %s", err)
	}
	if first.Name != "" || first.Value != "1" {
		return nil, bpkgerror.New(bpkgerror.Parse, "expected format version '1' as the first manifest entry")
	}

	m := &Repository{Role: RoleBase}
	seen := map[string]bool{}
	haveRole := false

	for {
		pair, err := s.Next()
		if err == io.EOF {
			return nil, bpkgerror.New(bpkgerror.Parse, "unterminated repository manifest")
		}
		if err != nil {
			return nil, err
		}
		if pair.IsEnd() {
			break
		}

		name := pair.Name
		value, _ := nvpair.SplitComment(pair.Value)

		redefine := func() error {
			if seen[name] {
				return vbad("repository %s redefinition", name)
			}
			seen[name] = true
			return nil
		}

		switch name {
		case "location":
			if err := redefine(); err != nil {
				return nil, err
			}
			loc, err := repository.Parse(value)
			if err != nil {
				return nil, err
			}
			m.Location = loc
			m.HasLocation = true

		case "role":
			if err := redefine(); err != nil {
				return nil, err
			}
			role, err := parseRole(value)
			if err != nil {
				return nil, err
			}
			m.Role = role
			haveRole = true

		case "url":
			if err := redefine(); err != nil {
				return nil, err
			}
			m.URL = value
		case "email":
			if err := redefine(); err != nil {
				return nil, err
			}
			m.Email = value
		case "summary":
			if err := redefine(); err != nil {
				return nil, err
			}
			m.Summary = value
		case "description":
			if err := redefine(); err != nil {
				return nil, err
			}
			m.Description = value
		case "certificate":
			if err := redefine(); err != nil {
				return nil, err
			}
			m.Certificate = value
		case "trust":
			if err := redefine(); err != nil {
				return nil, err
			}
			m.Trust = value
		case "fragment":
			if err := redefine(); err != nil {
				return nil, err
			}
			m.Fragment = value

		default:
			return nil, bpkgerror.New(bpkgerror.Parse, "unknown repository manifest entry %q", name)
		}
	}

	eff := m.EffectiveRole()
	if eff != RoleBase {
		if m.Summary != "" || m.Description != "" || m.Certificate != "" {
			return nil, vbad("summary/description/certificate only allowed for base repository role")
		}
	}
	if eff == RoleBase && m.Trust != "" {
		return nil, vbad("trust not allowed for base repository role")
	}
	if m.Certificate != "" && m.Location.Type != repository.TypePkg {
		return nil, vbad("certificate only allowed for pkg repository type")
	}
	_ = haveRole

	return m, nil
}

// EffectiveURL computes a web-interface URL from a manifest whose URL
// begins with "./.." or "./.": the two leading dot-components toggle
// "strip domain prefix" and "strip pkg-version-or-component" respectively;
// the remainder is appended to the stripped repository URL.
func (r *Repository) EffectiveURL() (repository.URL, error) {
	if r.URL == "" {
		return repository.URL{}, bpkgerror.New(bpkgerror.Logic, "no url specified for repository manifest")
	}
	if !r.HasLocation {
		return repository.URL{}, bpkgerror.New(bpkgerror.Logic, "effective_url requires a repository location")
	}

	rest := r.URL
	stripDomain, stripComponent := false, false

	if strings.HasPrefix(rest, "./..") {
		stripDomain, stripComponent = true, true
		rest = strings.TrimPrefix(rest, "./..")
	} else if strings.HasPrefix(rest, "./.") {
		stripComponent = true
		rest = strings.TrimPrefix(rest, "./.")
	}

	base := r.Location.URL
	if stripDomain {
		base.Host = stripToRootDomain(base.Host)
	}
	if stripComponent {
		if i := strings.LastIndexByte(base.Path, '/'); i >= 0 {
			base.Path = base.Path[:i]
		} else {
			base.Path = ""
		}
	}

	rest = strings.TrimPrefix(rest, "/")
	if rest != "" {
		if base.Path != "" {
			base.Path = strings.TrimSuffix(base.Path, "/") + "/" + rest
		} else {
			base.Path = rest
		}
	}

	return base, nil
}

func stripToRootDomain(host string) string {
	parts := strings.Split(host, ".")
	if len(parts) <= 2 {
		return host
	}
	return strings.Join(parts[len(parts)-2:], ".")
}

// Serialize writes the repository manifest back out.
func (r *Repository) Serialize(w io.Writer) error {
	nw := nvpair.NewWriter(w)
	if err := nw.Write("", "1"); err != nil {
		return err
	}
	if r.HasLocation {
		if err := nw.Write("location", r.Location.String()); err != nil {
			return err
		}
	}
	if r.Role != RoleBase || !r.HasLocation {
		if err := nw.Write("role", r.Role.String()); err != nil {
			return err
		}
	}
	write := func(name, value string) error {
		if value == "" {
			return nil
		}
		return nw.Write(name, value)
	}
	if err := write("url", r.URL); err != nil {
		return err
	}
	if err := write("email", r.Email); err != nil {
		return err
	}
	if err := write("summary", r.Summary); err != nil {
		return err
	}
	if err := write("description", r.Description); err != nil {
		return err
	}
	if err := write("certificate", r.Certificate); err != nil {
		return err
	}
	if err := write("trust", r.Trust); err != nil {
		return err
	}
	if err := write("fragment", r.Fragment); err != nil {
		return err
	}
	return nw.Close()
}

// ParseRepositoryList reads a sequence of repository manifests, each
// preceded by its own format-version header. At most one may have
// effective-role base.
func ParseRepositoryList(r io.Reader) ([]*Repository, error) {
	var list []*Repository
	baseSeen := false

	dec := &multiManifestReader{r: r}
	for {
		section, ok := dec.next()
		if !ok {
			break
		}
		m, err := ParseRepository(strings.NewReader(section))
		if err != nil {
			return nil, err
		}
		if m.EffectiveRole() == RoleBase {
			if baseSeen {
				return nil, vbad("more than one base repository in list")
			}
			baseSeen = true
		}
		list = append(list, m)
	}
	return list, nil
}
