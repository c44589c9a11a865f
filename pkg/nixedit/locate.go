package nixedit

import (
	"strconv"
	"strings"
)

// parser walks the token stream looking for a binding by attribute path.
// It understands just enough structure to follow nested attribute sets:
// function headers, with/let/rec/assert prefixes and dotted attribute
// paths. Anything else is skipped as an opaque expression.
type parser struct {
	src  string
	toks []token
}

func newParser(src string) *parser {
	return &parser{src: src, toks: scan(src)}
}

// binding is the value of one attribute assignment, as token indices.
// valueEnd is the index of the terminating ';' or the bound of the
// enclosing scope when the semicolon is missing.
type binding struct {
	valueStart int
	valueEnd   int
}

func (p *parser) nextSig(i int) int {
	for i < len(p.toks) && !p.toks[i].significant() {
		i++
	}
	return i
}

func (p *parser) prevSig(i int) int {
	for i >= 0 && !p.toks[i].significant() {
		i--
	}
	return i
}

func (p *parser) isPunct(i int, text string) bool {
	return i < len(p.toks) && p.toks[i].is(tokPunct, text)
}

func (p *parser) isKeyword(i int, word string) bool {
	return i < len(p.toks) && p.toks[i].is(tokIdent, word)
}

func isOpen(t token) bool {
	return t.kind == tokPunct && (t.text == "{" || t.text == "[" || t.text == "(")
}

func isClose(t token) bool {
	return t.kind == tokPunct && (t.text == "}" || t.text == "]" || t.text == ")")
}

// matchClose returns the index of the bracket closing the one at i, or
// len(toks) when it is never closed.
func (p *parser) matchClose(i int) int {
	depth := 0
	for j := i; j < len(p.toks); j++ {
		switch {
		case isOpen(p.toks[j]):
			depth++
		case isClose(p.toks[j]):
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return len(p.toks)
}

// skipExpr returns the index of the ';' ending the expression starting at
// i, the index of an unbalanced closing bracket, or end. The ';' of a
// with or assert clause is part of the expression.
func (p *parser) skipExpr(i, end int) int {
	for i < end {
		t := p.toks[i]
		switch {
		case isOpen(t):
			i = p.matchClose(i) + 1
		case isClose(t):
			return i
		case t.is(tokPunct, ";"):
			return i
		case t.is(tokIdent, "let"):
			i = p.skipLetBindings(i+1, end) + 1
		case t.is(tokIdent, "with"), t.is(tokIdent, "assert"):
			// the clause's own ';' does not end the enclosing expression
			j := p.skipExpr(i+1, end)
			if j >= end || !p.isPunct(j, ";") {
				return j
			}
			i = j + 1
		default:
			i++
		}
	}
	return end
}

// skipLetBindings returns the index of the "in" closing a let block whose
// bindings start at i.
func (p *parser) skipLetBindings(i, end int) int {
	for {
		i = p.nextSig(i)
		if i >= end {
			return end
		}
		if p.isKeyword(i, "in") {
			return i
		}
		j := p.skipExpr(i, end)
		if j >= end || !p.isPunct(j, ";") {
			return j
		}
		i = j + 1
	}
}

// find locates the binding whose full attribute path equals target
func (p *parser) find(target []string) (binding, bool) {
	return p.walkExpr(0, len(p.toks), nil, target)
}

// walkExpr descends into the expression at i when it evaluates directly
// to an attribute set, and searches that set's bindings.
func (p *parser) walkExpr(i, end int, prefix, target []string) (binding, bool) {
	for {
		i = p.nextSig(i)
		if i >= end {
			return binding{}, false
		}
		t := p.toks[i]

		switch {
		case t.is(tokPunct, "{"):
			closing := p.matchClose(i)
			after := p.nextSig(closing + 1)
			switch {
			case p.isPunct(after, ":"):
				i = after + 1
				continue
			case p.isPunct(after, "@"):
				i = p.skipLambdaBinder(after+1, end)
				continue
			}
			if closing > end {
				closing = end
			}
			return p.walkBindings(i+1, closing, prefix, target)

		case t.kind == tokIdent && t.text == "with", t.kind == tokIdent && t.text == "assert":
			i = p.skipExpr(i+1, end) + 1

		case t.kind == tokIdent && t.text == "let":
			i = p.skipLetBindings(i+1, end) + 1

		case t.kind == tokIdent && t.text == "rec":
			i++

		case t.kind == tokIdent:
			after := p.nextSig(i + 1)
			switch {
			case p.isPunct(after, ":"):
				i = after + 1
			case p.isPunct(after, "@"):
				i = p.skipLambdaBinder(after+1, end)
			default:
				return binding{}, false
			}

		default:
			return binding{}, false
		}
	}
}

// skipLambdaBinder skips the part of "x @ { ... }:" or "{ ... } @ x:" that
// follows the @ and returns the index after the ':'.
func (p *parser) skipLambdaBinder(i, end int) int {
	i = p.nextSig(i)
	if p.isPunct(i, "{") {
		i = p.matchClose(i)
	}
	i = p.nextSig(i + 1)
	if p.isPunct(i, ":") {
		return i + 1
	}
	return end
}

// walkBindings scans the bindings of an attribute set body in [i, end)
func (p *parser) walkBindings(i, end int, prefix, target []string) (binding, bool) {
	for {
		i = p.nextSig(i)
		if i >= end {
			return binding{}, false
		}

		if p.isKeyword(i, "inherit") {
			i = p.skipExpr(i+1, end) + 1
			continue
		}

		path, eq, ok := p.attrPath(i, end)
		if !ok {
			i = p.skipExpr(i, end) + 1
			continue
		}

		valStart := p.nextSig(eq + 1)
		valEnd := p.skipExpr(valStart, end)
		full := append(append([]string(nil), prefix...), path...)

		if equalPath(full, target) {
			return binding{valueStart: valStart, valueEnd: valEnd}, true
		}
		if len(full) < len(target) && equalPath(full, target[:len(full)]) {
			if b, found := p.walkExpr(valStart, valEnd, full, target); found {
				return b, true
			}
		}

		i = valEnd + 1
	}
}

// attrPath reads "a.b.\"c\" =" starting at i and returns the path plus the
// index of the '=' token.
func (p *parser) attrPath(i, end int) ([]string, int, bool) {
	var path []string
	for i < end {
		t := p.toks[i]
		switch t.kind {
		case tokIdent:
			path = append(path, t.text)
		case tokString:
			name, err := strconv.Unquote(t.text)
			if err != nil {
				name = strings.Trim(t.text, `"`)
			}
			path = append(path, name)
		default:
			return nil, 0, false
		}

		next := p.nextSig(i + 1)
		switch {
		case p.isPunct(next, "."):
			i = p.nextSig(next + 1)
		case p.isPunct(next, "="):
			return path, next, true
		default:
			return nil, 0, false
		}
	}
	return nil, 0, false
}

func equalPath(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func splitPath(attr string) []string {
	return strings.Split(attr, ".")
}
