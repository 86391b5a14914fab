// Package buildclass implements the bpkg build-class boolean expression
// language used by a package's builds/build-include/build-exclude manifest
// values: an optional underlying class set, followed by a sequence of
// add/subtract/intersect terms over class names or parenthesized
// sub-expressions, evaluated left to right into a single accumulator.
package buildclass

import (
	"strings"

	"github.com/build2/libbpkg-sub000/bpkgerror"
	"github.com/build2/libbpkg-sub000/name"
)

// Term is one element of a term sequence: an operator, an optional
// negation, and either a leaf class name or a nested sub-expression.
type Term struct {
	Op     byte // '+', '-', or '&'
	Negate bool
	Name   string
	Nested *Expr
}

// Expr is a parsed build-class expression.
type Expr struct {
	Underlying []string
	Terms      []Term
}

func perr(format string, args ...any) error {
	return bpkgerror.New(bpkgerror.Parse, format, args...)
}

// Parse parses a root-level expression, where the first term's operator may
// be any of +/-/&.
func Parse(text string) (Expr, error) {
	return parse(text, true)
}

func parse(text string, root bool) (Expr, error) {
	underlying, terms := splitUnderlying(text)

	var e Expr
	if underlying != "" {
		for _, field := range strings.Fields(underlying) {
			n := strings.Trim(field, ",")
			if _, err := name.ParseBuildClass(n); err != nil {
				return Expr{}, perr("invalid underlying build class name: %s", err)
			}
			e.Underlying = append(e.Underlying, n)
		}
	}

	p := &parser{s: terms}
	p.skipSpace()
	if p.eof() {
		return Expr{}, perr("empty build class expression")
	}

	first := true
	for !p.eof() {
		t, err := p.parseTerm(root && first)
		if err != nil {
			return Expr{}, err
		}
		e.Terms = append(e.Terms, t)
		first = false
		p.skipSpace()
	}

	return e, nil
}

// splitUnderlying splits text on the first top-level ':' (not nested inside
// parentheses) into the underlying class set text and the term sequence
// text. If there is no top-level ':', the whole text is the term sequence.
func splitUnderlying(text string) (underlying, terms string) {
	depth := 0
	for i, r := range text {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ':':
			if depth == 0 {
				return strings.TrimSpace(text[:i]), text[i+1:]
			}
		}
	}
	return "", text
}

type parser struct {
	s   string
	pos int
}

func (p *parser) eof() bool { return p.pos >= len(p.s) }

func (p *parser) skipSpace() {
	for !p.eof() && (p.s[p.pos] == ' ' || p.s[p.pos] == '\t') {
		p.pos++
	}
}

func (p *parser) parseTerm(firstAnyOp bool) (Term, error) {
	if p.eof() {
		return Term{}, perr("expected build class term")
	}

	op := p.s[p.pos]
	switch op {
	case '+', '-', '&':
		p.pos++
	default:
		if firstAnyOp {
			return Term{}, perr("expected '+', '-', or '&' at start of build class expression")
		}
		return Term{}, perr("expected '+', '-', or '&' before build class term")
	}
	p.skipSpace()

	negate := false
	if !p.eof() && p.s[p.pos] == '!' {
		negate = true
		p.pos++
	}

	if p.eof() {
		return Term{}, perr("expected build class name or '(' after operator")
	}

	if p.s[p.pos] == '(' {
		depth := 1
		start := p.pos + 1
		i := start
		for i < len(p.s) && depth > 0 {
			switch p.s[i] {
			case '(':
				depth++
			case ')':
				depth--
			}
			i++
		}
		if depth != 0 {
			return Term{}, perr("unbalanced parentheses in build class expression")
		}
		inner := p.s[start : i-1]
		nested, err := parseNested(inner)
		if err != nil {
			return Term{}, err
		}
		p.pos = i
		return Term{Op: op, Negate: negate, Nested: &nested}, nil
	}

	start := p.pos
	for !p.eof() && p.s[p.pos] != ' ' && p.s[p.pos] != '\t' && p.s[p.pos] != '(' && p.s[p.pos] != ')' {
		p.pos++
	}
	text := p.s[start:p.pos]
	if text == "" {
		return Term{}, perr("expected build class name after operator")
	}
	if _, err := name.ParseBuildClass(text); err != nil {
		return Term{}, perr("invalid build class name: %s", err)
	}

	return Term{Op: op, Negate: negate, Name: text}, nil
}

// parseNested parses a parenthesized sub-expression, where the first term's
// operator must be '+'.
func parseNested(text string) (Expr, error) {
	var e Expr
	p := &parser{s: text}
	p.skipSpace()
	if p.eof() {
		return Expr{}, perr("empty nested build class expression")
	}

	if p.s[p.pos] != '+' {
		return Expr{}, perr("nested build class expression must start with '+'")
	}

	for !p.eof() {
		t, err := p.parseTerm(false)
		if err != nil {
			return Expr{}, err
		}
		e.Terms = append(e.Terms, t)
		p.skipSpace()
	}
	return e, nil
}

// Match evaluates e against a build configuration's classes, starting from
// the given initial accumulator value (normally false at the root, or the
// caller's running value when evaluating chained manifest values such as
// build-include followed by build-exclude). classes is the set of classes
// the configuration directly belongs to; inherits is the child-to-parent
// class inheritance map. A leaf term matches if its name equals one of
// classes or a class reachable by walking inherits from one of classes.
func Match(e Expr, classes map[string]bool, inherits map[string]string, initial bool) bool {
	acc := initial
	for _, t := range e.Terms {
		// '+' can only invert a false accumulator, '-' and '&' can only
		// invert a true one; skip terms that cannot change the result.
		if (t.Op == '+') == acc {
			continue
		}

		var m bool
		if t.Nested != nil {
			m = Match(*t.Nested, classes, inherits, false)
		} else {
			m = matchName(classes, inherits, t.Name)
		}
		if t.Negate {
			m = !m
		}

		switch t.Op {
		case '+':
			if m {
				acc = true
			}
		case '-':
			if m {
				acc = false
			}
		case '&':
			acc = acc && m
		}
	}
	return acc
}

// matchName reports whether name equals a class the configuration belongs
// to, or an ancestor of one reached by walking the single-parent
// inheritance chain.
func matchName(classes map[string]bool, inherits map[string]string, name string) bool {
	for c, member := range classes {
		if !member {
			continue
		}
		if c == name {
			return true
		}
		for base, ok := inherits[c]; ok; base, ok = inherits[base] {
			if base == name {
				return true
			}
		}
	}
	return false
}

// String renders e back to its textual form.
func (e Expr) String() string {
	var b strings.Builder
	if len(e.Underlying) > 0 {
		b.WriteString(strings.Join(e.Underlying, " "))
		b.WriteString(" : ")
	}
	for i, t := range e.Terms {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteByte(t.Op)
		if t.Negate {
			b.WriteByte('!')
		}
		if t.Nested != nil {
			b.WriteByte('(')
			b.WriteString(t.Nested.String())
			b.WriteByte(')')
		} else {
			b.WriteString(t.Name)
		}
	}
	return b.String()
}
