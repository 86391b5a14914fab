package version

import "strings"

// canonicalPart builds the canonical representation of either the upstream
// or the release component-dotted string: numeric components are
// left-padded with '0' to componentWidth digits, non-numeric components are
// ASCII lower-cased, components are joined with '.', and trailing all-zero
// numeric components are dropped so that "1.0.0" == "1.0" == "1".
type canonicalPart struct {
	b   strings.Builder
	len int // length without the trailing all-zero numeric components
}

func (c *canonicalPart) empty() bool { return c.b.Len() == 0 }

func (c *canonicalPart) final() string { return c.b.String()[:c.len] }

func (c *canonicalPart) add(s string, numeric bool) error {
	if c.b.Len() > 0 {
		c.b.WriteByte('.')
	}

	zeroOnly := false
	if numeric {
		if len(s) > componentWidth {
			return errComponentTooLong
		}
		for i := 0; i < componentWidth-len(s); i++ {
			c.b.WriteByte('0')
		}
		c.b.WriteString(s)

		zeroOnly = true
		for _, r := range s {
			if r != '0' {
				zeroOnly = false
				break
			}
		}
	} else {
		c.b.WriteString(asciiLower(s))
	}

	if !zeroOnly {
		c.len = c.b.Len()
	}
	return nil
}

var errComponentTooLong = errComponentTooLongErr{}

type errComponentTooLongErr struct{}

func (errComponentTooLongErr) Error() string {
	return "component exceeds 16 digits"
}

func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c - 'A' + 'a'
		}
	}
	return string(b)
}

// splitComponents splits a component-dotted string on '.'; callers classify
// each component with isNumericComponent.
func splitComponents(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ".")
}

func isNumericComponent(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isAlnum(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// canonicalizeUpstream computes the canonical form of a bare upstream
// string (used both by the parser, via the state machine in parse.go, and
// by New/direct construction).
func canonicalizeUpstream(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	var cp canonicalPart
	for _, comp := range splitComponents(s) {
		if err := validateComponent(comp); err != nil {
			return "", err
		}
		if err := cp.add(comp, isNumericComponent(comp)); err != nil {
			return "", err
		}
	}
	if cp.empty() {
		return "", nil
	}
	return cp.final(), nil
}

// canonicalizeRelease computes the canonical form of a Release value.
func canonicalizeRelease(r Release) (string, error) {
	switch r.Kind {
	case ReleaseFinal:
		return "~", nil
	case ReleaseEarliest:
		return "", nil
	default:
		if r.Name == "" {
			return "", nil
		}
		var cp canonicalPart
		for _, comp := range splitComponents(r.Name) {
			if err := validateComponent(comp); err != nil {
				return "", err
			}
			if err := cp.add(comp, isNumericComponent(comp)); err != nil {
				return "", err
			}
		}
		if cp.empty() {
			return "", nil
		}
		return cp.final(), nil
	}
}

// validateComponent enforces the component grammar: non-empty,
// alphanumeric only (the dots/plus/minus/tilde are structural separators
// handled by the caller, never part of a component itself).
func validateComponent(s string) error {
	if s == "" {
		return errEmptyComponent
	}
	for _, r := range s {
		if !isAlnum(r) {
			return errBadComponentChar
		}
	}
	return nil
}

var (
	errEmptyComponent   = simpleErr("empty version component")
	errBadComponentChar = simpleErr("alpha-numeric characters expected in a component")
)

type simpleErr string

func (e simpleErr) Error() string { return string(e) }
