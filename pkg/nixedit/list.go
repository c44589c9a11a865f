package nixedit

import (
	"strings"

	"github.com/arthur-debert/npkg/pkg/errors"
)

// Qualifier is the namespace prefix package attributes carry when no
// "with pkgs;" scope covers the list.
const Qualifier = "pkgs."

const qualifierScope = "pkgs"

// element is one entry of a list literal: a run of tokens with no
// whitespace between them, bracketed groups counted as a single token.
type element struct {
	start, end       int // byte offsets
	firstTok, lastTok int
	text             string
}

// listValue is a located package list
type listValue struct {
	scopes   []string
	open     int // token index of '['
	close    int // token index of ']'
	elements []element
}

// covered reports whether a with-scope brings name into scope for the list
func (l *listValue) covered(name string) bool {
	for _, s := range l.scopes {
		if s == name {
			return true
		}
	}
	return false
}

// locate finds attr in src and parses its value as a list literal
func locate(src, attr string) (*parser, *listValue, error) {
	p := newParser(src)
	b, ok := p.find(splitPath(attr))
	if !ok {
		return nil, nil, errors.Newf(errors.ErrMalformedDocument, "attribute %s not found", attr).
			WithDetail("attribute", attr)
	}

	lv, err := p.parseList(b)
	if err != nil {
		return nil, nil, errors.Wrapf(err, errors.ErrMalformedDocument, "attribute %s is not a list", attr).
			WithDetail("attribute", attr)
	}
	return p, lv, nil
}

// parseList accepts: (with EXPR;)* ["("] (with EXPR;)* "[" elements "]"
func (p *parser) parseList(b binding) (*listValue, error) {
	lv := &listValue{}
	i := b.valueStart
	parens := 0

	for {
		i = p.nextSig(i)
		if i >= b.valueEnd {
			return nil, errors.New(errors.ErrMalformedDocument, "value has no list literal")
		}
		t := p.toks[i]

		switch {
		case t.is(tokIdent, "with"):
			exprStart := p.nextSig(i + 1)
			semi := p.skipExpr(exprStart, b.valueEnd)
			if semi >= b.valueEnd || !p.isPunct(semi, ";") {
				return nil, errors.New(errors.ErrMalformedDocument, "unterminated with expression")
			}
			last := p.prevSig(semi - 1)
			if last >= exprStart {
				lv.scopes = append(lv.scopes, p.src[p.toks[exprStart].start:p.toks[last].end])
			}
			i = semi + 1

		case t.is(tokPunct, "(") && parens == 0:
			parens++
			i++

		case t.is(tokPunct, "["):
			closing := p.matchClose(i)
			if closing >= b.valueEnd || !p.toks[closing].is(tokPunct, "]") {
				return nil, errors.New(errors.ErrMalformedDocument, "unbalanced list literal")
			}
			lv.open = i
			lv.close = closing
			lv.elements = p.elements(i+1, closing)
			return lv, nil

		default:
			return nil, errors.Newf(errors.ErrMalformedDocument, "unexpected %s %q before list literal", t.kind, t.text)
		}
	}
}

// elements splits the list interior [i, end) into entries
func (p *parser) elements(i, end int) []element {
	var out []element
	for i < end {
		if !p.toks[i].significant() {
			i++
			continue
		}
		first := i
		for i < end && p.toks[i].significant() {
			if isOpen(p.toks[i]) {
				i = p.matchClose(i)
			}
			i++
		}
		if i > end {
			i = end
		}
		last := i - 1
		el := element{
			start:    p.toks[first].start,
			end:      p.toks[last].end,
			firstTok: first,
			lastTok:  last,
		}
		el.text = p.src[el.start:el.end]
		out = append(out, el)
	}
	return out
}

// Bare strips the namespace qualifier from a package identifier
func Bare(name string) string {
	return strings.TrimPrefix(name, Qualifier)
}
