// Package nvpair implements the name/value-pair tokenizer and serializer
// that underlies the bpkg manifest text format: one "name: value" pair per
// logical line, continuation lines indented with leading whitespace, an
// empty name/value pair as the manifest separator, and a trailing "#
// comment" on values split out on demand.
package nvpair

import (
	"bufio"
	"io"
	"strings"

	"github.com/build2/libbpkg-sub000/bpkgerror"
)

// Pair is one scanned name/value entry and its source position.
type Pair struct {
	Name      string
	Value     string
	NameLine  int
	NameCol   int
	ValueLine int
	ValueCol  int
}

// IsEnd reports whether p is the empty ("", "") pair that separates or
// terminates manifest sections.
func (p Pair) IsEnd() bool { return p.Name == "" && p.Value == "" }

// Scanner reads a sequence of name/value pairs from a manifest-formatted
// stream.
type Scanner struct {
	r    *bufio.Reader
	line int
	err  error
}

// NewScanner wraps r for name/value pair scanning.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{r: bufio.NewReader(r)}
}

func perr(format string, args ...any) error {
	return bpkgerror.New(bpkgerror.Parse, format, args...)
}

// Next reads and returns the following pair. At end of stream it returns
// the io.EOF sentinel error.
func (s *Scanner) Next() (Pair, error) {
	if s.err != nil {
		return Pair{}, s.err
	}

	line, eof, err := s.readLine()
	if err != nil {
		s.err = err
		return Pair{}, err
	}
	if eof {
		s.err = io.EOF
		return Pair{}, io.EOF
	}

	if strings.TrimSpace(line) == "" {
		return Pair{NameLine: s.line, ValueLine: s.line}, nil
	}

	colon := strings.IndexByte(line, ':')
	if colon < 0 {
		return Pair{}, perr("expected ':' after name on line %d", s.line)
	}

	name := strings.TrimSpace(line[:colon])
	valueStart := colon + 1
	col := valueStart

	value := strings.TrimLeft(line[valueStart:], " \t")
	col += len(line[valueStart:]) - len(value)
	value = strings.TrimRight(value, " \t")

	var b strings.Builder
	b.WriteString(value)

	for {
		peek, err := s.r.Peek(1)
		if err != nil {
			break
		}
		if peek[0] != ' ' && peek[0] != '\t' {
			break
		}
		cont, eof, err := s.readLine()
		if err != nil {
			return Pair{}, err
		}
		if eof {
			break
		}
		b.WriteByte('\n')
		b.WriteString(strings.TrimSpace(cont))
	}

	return Pair{
		Name:      name,
		Value:     b.String(),
		NameLine:  s.line,
		NameCol:   1,
		ValueLine: s.line,
		ValueCol:  col,
	}, nil
}

func (s *Scanner) readLine() (line string, eof bool, err error) {
	raw, rerr := s.r.ReadString('\n')
	if rerr != nil && rerr != io.EOF {
		return "", false, rerr
	}
	if raw == "" && rerr == io.EOF {
		return "", true, nil
	}
	s.line++
	return strings.TrimRight(raw, "\r\n"), false, nil
}

// SplitComment splits a value at the first '#' that starts the value or
// follows a space or tab, returning the value proper and the trailing
// comment (without the marker). If there is no comment, comment is "".
func SplitComment(value string) (val, comment string) {
	for i := 0; i+1 < len(value); i++ {
		if value[i] == '#' && (i == 0 || value[i-1] == ' ' || value[i-1] == '\t') {
			return strings.TrimRight(value[:i], " \t"), strings.TrimSpace(value[i+1:])
		}
	}
	return value, ""
}

// MergeComment re-attaches a comment to a value for serialization.
func MergeComment(value, comment string) string {
	if comment == "" {
		return value
	}
	return value + " # " + comment
}

// Writer serializes name/value pairs back to manifest text.
type Writer struct {
	w   io.Writer
	err error
}

// NewWriter wraps w for name/value pair serialization.
func NewWriter(w io.Writer) *Writer { return &Writer{w: w} }

// Write emits one "name: value" pair. Writing the empty pair emits a blank
// separator line.
func (wr *Writer) Write(name, value string) error {
	if wr.err != nil {
		return wr.err
	}
	var line string
	if name == "" && value == "" {
		line = "\n"
	} else {
		line = name + ": " + value + "\n"
	}
	_, err := io.WriteString(wr.w, line)
	if err != nil {
		wr.err = err
	}
	return err
}

// Close writes the manifest-terminating blank pair.
func (wr *Writer) Close() error {
	return wr.Write("", "")
}
