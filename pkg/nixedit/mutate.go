package nixedit

import (
	"sort"
	"strings"

	"github.com/arthur-debert/npkg/pkg/errors"
	"github.com/arthur-debert/npkg/pkg/types"
)

// Mutate adds or removes packages from the list literal bound to attr.
// All text outside the edited list is preserved byte for byte.
func Mutate(src, attr string, pkgs []string, action types.Action) (string, error) {
	switch action {
	case types.ActionInstall:
		return Install(src, attr, pkgs)
	case types.ActionRemove:
		return Remove(src, attr, pkgs)
	default:
		return "", errors.Newf(errors.ErrInvalidInput, "unknown action %q", action)
	}
}

// Install appends packages missing from the list. New entries get the
// "pkgs." qualifier unless a "with pkgs;" scope covers the list.
func Install(src, attr string, pkgs []string) (string, error) {
	p, lv, err := locate(src, attr)
	if err != nil {
		return "", err
	}

	present := make(map[string]bool, len(lv.elements))
	for _, el := range lv.elements {
		present[Bare(el.text)] = true
	}

	qualify := !lv.covered(qualifierScope)
	var add []string
	for _, pkg := range pkgs {
		bare := Bare(strings.TrimSpace(pkg))
		if bare == "" || present[bare] {
			continue
		}
		present[bare] = true
		if qualify {
			add = append(add, Qualifier+bare)
		} else {
			add = append(add, bare)
		}
	}
	if len(add) == 0 {
		return src, nil
	}

	at, text := p.insertion(lv, add)
	return src[:at] + text + src[at:], nil
}

// insertion computes where and what to splice so the list keeps its
// single-line or one-entry-per-line layout.
func (p *parser) insertion(lv *listValue, add []string) (int, string) {
	open := p.toks[lv.open]
	closing := p.toks[lv.close]
	interior := p.src[open.end:closing.start]
	eol := "\n"
	if strings.Contains(interior, "\r\n") {
		eol = "\r\n"
	}

	if !strings.Contains(interior, "\n") {
		if len(lv.elements) == 0 && strings.TrimSpace(interior) == "" {
			// "[]" and "[ ]" both become "[ a b ]"
			text := " " + strings.Join(add, " ")
			if interior == "" {
				text += " "
			}
			return open.end, text
		}
		anchor := p.lastContentEnd(lv)
		return anchor, " " + strings.Join(add, " ")
	}

	var anchorTok int
	if n := len(lv.elements); n > 0 {
		anchorTok = lv.elements[n-1].lastTok
	} else {
		anchorTok = p.prevSigOrComment(lv.close-1, lv.open)
	}

	if anchorTok <= lv.open {
		// empty multi-line list: indent one level past the closing bracket
		indent := lineIndent(p.src, closing.start) + "  "
		return open.end, joinLines(add, indent, eol)
	}

	anchorStart := p.toks[anchorTok].start
	if n := len(lv.elements); n > 0 {
		anchorStart = lv.elements[n-1].start
	}
	indent := lineIndent(p.src, anchorStart)
	if lineOf(p.src, anchorStart) <= open.start {
		// entries start on the bracket line: line up with the first one
		indent = columnIndent(p.src, anchorStart)
	}

	// insert at the end of the anchor's line, after any trailing comment
	for j := anchorTok + 1; j < lv.close; j++ {
		t := p.toks[j]
		if t.kind == tokSpace {
			if nl := strings.IndexByte(t.text, '\n'); nl >= 0 {
				if nl > 0 && t.text[nl-1] == '\r' {
					nl--
				}
				return t.start + nl, joinLines(add, indent, eol)
			}
		}
	}
	return p.toks[anchorTok].end, joinLines(add, indent, eol)
}

// lastContentEnd is the end offset of the last element, else of the last
// comment inside the list, else just after '['.
func (p *parser) lastContentEnd(lv *listValue) int {
	if n := len(lv.elements); n > 0 {
		return lv.elements[n-1].end
	}
	j := p.prevSigOrComment(lv.close-1, lv.open)
	if j <= lv.open {
		return p.toks[lv.open].end
	}
	return p.toks[j].end
}

// prevSigOrComment walks back from i to the first non-whitespace token,
// stopping at floor.
func (p *parser) prevSigOrComment(i, floor int) int {
	for i > floor && p.toks[i].kind == tokSpace {
		i--
	}
	return i
}

func joinLines(items []string, indent, eol string) string {
	var b strings.Builder
	for _, it := range items {
		b.WriteString(eol)
		b.WriteString(indent)
		b.WriteString(it)
	}
	return b.String()
}

// lineOf returns the offset where the line containing off starts
func lineOf(src string, off int) int {
	return strings.LastIndexByte(src[:off], '\n') + 1
}

// lineIndent returns the leading whitespace of the line containing off
func lineIndent(src string, off int) string {
	start := lineOf(src, off)
	end := start
	for end < len(src) && (src[end] == ' ' || src[end] == '\t') {
		end++
	}
	return src[start:end]
}

// columnIndent returns whitespace that lines text up with off. When off is
// the first thing on its line that is the line's own indentation.
func columnIndent(src string, off int) string {
	start := lineOf(src, off)
	var b strings.Builder
	for _, c := range []byte(src[start:off]) {
		if c == '\t' {
			b.WriteByte('\t')
		} else {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

// Remove deletes every list entry whose bare name matches one of pkgs.
// Requested packages that are absent are ignored.
func Remove(src, attr string, pkgs []string) (string, error) {
	p, lv, err := locate(src, attr)
	if err != nil {
		return "", err
	}

	drop := make(map[string]bool, len(pkgs))
	for _, pkg := range pkgs {
		drop[Bare(strings.TrimSpace(pkg))] = true
	}

	var removed []element
	for _, el := range lv.elements {
		if drop[Bare(el.text)] {
			removed = append(removed, el)
		}
	}
	if len(removed) == 0 {
		return src, nil
	}

	var spans []span
	for _, el := range removed {
		if s, ok := p.wholeLine(lv, el, removed); ok {
			spans = append(spans, s)
			continue
		}
		spans = append(spans, p.elementSpan(el))
	}

	out := src
	for _, s := range mergeSpans(spans) {
		out = out[:s.start] + out[s.end:]
	}
	return out, nil
}

type span struct{ start, end int }

// wholeLine returns the span of el's line, newline included, when that
// line holds nothing but removed entries, whitespace and comments.
func (p *parser) wholeLine(lv *listValue, el element, removed []element) (span, bool) {
	if strings.Contains(el.text, "\n") {
		return span{}, false
	}
	lineStart := strings.LastIndexByte(p.src[:el.start], '\n') + 1
	nl := strings.IndexByte(p.src[el.end:], '\n')
	if nl < 0 {
		return span{}, false
	}
	lineEnd := el.end + nl

	if lineStart <= p.toks[lv.open].start || lineEnd >= p.toks[lv.close].end {
		return span{}, false
	}

	for j := lv.open + 1; j < lv.close; j++ {
		t := p.toks[j]
		if t.end <= lineStart || t.start >= lineEnd {
			continue
		}
		switch t.kind {
		case tokSpace:
			continue
		case tokComment:
			if t.start < lineStart || t.end > lineEnd {
				return span{}, false
			}
			continue
		}
		if !within(t, removed) {
			return span{}, false
		}
	}
	return span{start: lineStart, end: lineEnd + 1}, true
}

func within(t token, els []element) bool {
	for _, el := range els {
		if t.start >= el.start && t.end <= el.end {
			return true
		}
	}
	return false
}

// elementSpan covers el plus the horizontal whitespace after it, or before
// it when nothing follows on the line.
func (p *parser) elementSpan(el element) span {
	end := el.end
	for end < len(p.src) && (p.src[end] == ' ' || p.src[end] == '\t') {
		end++
	}
	if end > el.end && end < len(p.src) && p.src[end] != '\n' && p.src[end] != '\r' {
		return span{start: el.start, end: end}
	}

	start := el.start
	for start > 0 && (p.src[start-1] == ' ' || p.src[start-1] == '\t') {
		start--
	}
	if start < el.start {
		return span{start: start, end: el.end}
	}
	return span{start: el.start, end: end}
}

// mergeSpans merges overlapping spans and orders them last-first so they
// can be cut without shifting earlier offsets.
func mergeSpans(spans []span) []span {
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	var merged []span
	for _, s := range spans {
		if n := len(merged); n > 0 && s.start <= merged[n-1].end {
			if s.end > merged[n-1].end {
				merged[n-1].end = s.end
			}
			continue
		}
		merged = append(merged, s)
	}
	for i, j := 0, len(merged)-1; i < j; i, j = i+1, j-1 {
		merged[i], merged[j] = merged[j], merged[i]
	}
	return merged
}
