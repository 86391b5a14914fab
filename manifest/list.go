package manifest

import (
	"bufio"
	"io"
	"strings"
)

// multiManifestReader splits a concatenated stream of "<version-header>
// ... <blank-terminator>" manifest blocks into individual sections, each
// re-fed through the single-manifest parser.
type multiManifestReader struct {
	r    io.Reader
	br   *bufio.Reader
	done bool
}

// next returns the text of the following manifest section, including its
// own format-version header and terminating blank line (so the section can
// be re-parsed standalone), or ok=false once the stream is exhausted.
func (m *multiManifestReader) next() (string, bool) {
	if m.done {
		return "", false
	}
	if m.br == nil {
		m.br = bufio.NewReader(m.r)
	}

	var b strings.Builder
	sawContent := false
	for {
		line, err := m.br.ReadString('\n')
		if line == "" && err != nil {
			m.done = true
			if sawContent {
				b.WriteByte('\n')
				return b.String(), true
			}
			return "", false
		}

		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed == "" {
			if sawContent {
				b.WriteByte('\n')
				return b.String(), true
			}
			// Leading blank lines between sections are ignored.
			if err != nil {
				m.done = true
				return "", false
			}
			continue
		}

		sawContent = true
		b.WriteString(line)
		if !strings.HasSuffix(line, "\n") {
			b.WriteByte('\n')
		}

		if err != nil {
			m.done = true
			b.WriteByte('\n')
			return b.String(), true
		}
	}
}
