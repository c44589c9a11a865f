package nixedit

import "strings"

type tokenKind int

const (
	tokSpace tokenKind = iota
	tokComment
	tokIdent
	tokString
	tokPunct
	tokOther
)

func (k tokenKind) String() string {
	switch k {
	case tokSpace:
		return "space"
	case tokComment:
		return "comment"
	case tokIdent:
		return "ident"
	case tokString:
		return "string"
	case tokPunct:
		return "punct"
	default:
		return "other"
	}
}

// token is a half-open byte range [start, end) of the source
type token struct {
	kind  tokenKind
	start int
	end   int
	text  string
}

func (t token) is(kind tokenKind, text string) bool {
	return t.kind == kind && t.text == text
}

func (t token) significant() bool {
	return t.kind != tokSpace && t.kind != tokComment
}

const punctChars = "{}[]();=.:,@?"

// scan splits src into tokens. It never fails: unterminated strings and
// comments run to the end of the input.
func scan(src string) []token {
	s := &scanner{src: src}
	for s.pos < len(src) {
		s.next()
	}
	return s.toks
}

type scanner struct {
	src  string
	pos  int
	toks []token
}

func (s *scanner) emit(kind tokenKind, start int) {
	s.toks = append(s.toks, token{kind: kind, start: start, end: s.pos, text: s.src[start:s.pos]})
}

func (s *scanner) peek(off int) byte {
	if s.pos+off < len(s.src) {
		return s.src[s.pos+off]
	}
	return 0
}

func (s *scanner) next() {
	start := s.pos
	c := s.src[s.pos]

	switch {
	case isSpace(c):
		for s.pos < len(s.src) && isSpace(s.src[s.pos]) {
			s.pos++
		}
		s.emit(tokSpace, start)

	case c == '#':
		for s.pos < len(s.src) && s.src[s.pos] != '\n' {
			s.pos++
		}
		s.emit(tokComment, start)

	case c == '/' && s.peek(1) == '*':
		end := strings.Index(s.src[s.pos+2:], "*/")
		if end < 0 {
			s.pos = len(s.src)
		} else {
			s.pos += 2 + end + 2
		}
		s.emit(tokComment, start)

	case c == '"':
		s.pos = skipDoubleQuoted(s.src, s.pos)
		s.emit(tokString, start)

	case c == '\'' && s.peek(1) == '\'':
		s.pos = skipIndented(s.src, s.pos)
		s.emit(tokString, start)

	case isIdentStart(c):
		for s.pos < len(s.src) && isIdentChar(s.src[s.pos]) {
			s.pos++
		}
		s.emit(tokIdent, start)

	case (c == '=' || c == '!' || c == '<' || c == '>') && s.peek(1) == '=':
		s.pos += 2
		s.emit(tokOther, start)

	case strings.IndexByte(punctChars, c) >= 0:
		s.pos++
		s.emit(tokPunct, start)

	default:
		s.pos++
		s.emit(tokOther, start)
	}
}

// skipDoubleQuoted returns the offset just past the "..." string at pos
func skipDoubleQuoted(src string, pos int) int {
	i := pos + 1
	for i < len(src) {
		switch {
		case src[i] == '\\':
			i += 2
		case src[i] == '"':
			return i + 1
		case src[i] == '$' && i+1 < len(src) && src[i+1] == '{':
			i = skipInterpolation(src, i+2)
		default:
			i++
		}
	}
	return len(src)
}

// skipIndented returns the offset just past the ''...'' string at pos
func skipIndented(src string, pos int) int {
	i := pos + 2
	for i < len(src) {
		switch {
		case strings.HasPrefix(src[i:], "'''"):
			i += 3
		case strings.HasPrefix(src[i:], "''$"):
			i += 3
		case strings.HasPrefix(src[i:], "''\\"):
			i += 4
		case strings.HasPrefix(src[i:], "''"):
			return i + 2
		case src[i] == '$' && i+1 < len(src) && src[i+1] == '{':
			i = skipInterpolation(src, i+2)
		default:
			i++
		}
	}
	return len(src)
}

// skipInterpolation returns the offset just past the } closing a ${ whose
// body starts at pos.
func skipInterpolation(src string, pos int) int {
	depth := 1
	i := pos
	for i < len(src) {
		c := src[i]
		switch {
		case c == '{':
			depth++
			i++
		case c == '}':
			depth--
			i++
			if depth == 0 {
				return i
			}
		case c == '"':
			i = skipDoubleQuoted(src, i)
		case c == '\'' && i+1 < len(src) && src[i+1] == '\'':
			i = skipIndented(src, i)
		case c == '#':
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				return len(src)
			}
			i += 2 + end + 2
		default:
			i++
		}
	}
	return len(src)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || c == '-' || c == '\''
}
