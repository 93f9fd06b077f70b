package jscc

import (
	"sort"
	"strings"
)

// Kind is the keyword of a directive line.
type Kind int

const (
	KindIf Kind = iota + 1
	KindElif
	KindElse
	KindEndif
	KindIfset
	KindIfnset
	KindSet
	KindUnset
	KindError
)

var keywords = map[string]Kind{
	"if":     KindIf,
	"elif":   KindElif,
	"else":   KindElse,
	"endif":  KindEndif,
	"ifset":  KindIfset,
	"ifnset": KindIfnset,
	"set":    KindSet,
	"unset":  KindUnset,
	"error":  KindError,
}

func (k Kind) String() string {
	for kw, kind := range keywords {
		if kind == k {
			return kw
		}
	}
	return "unknown"
}

// closers maps prefixes that open a block comment to their terminator.
var closers = map[string]string{
	"/*":   "*/",
	"<!--": "-->",
}

// DefaultPrefixes are used when Options.Prefixes is empty.
var DefaultPrefixes = []string{"//", "/*"}

// Directive is one recognized directive line.
type Directive struct {
	Kind Kind
	// Arg is the argument text, trimmed, without any trailing comment.
	Arg    string
	Line   int
	Prefix string
	// Closer is the block comment terminator the prefix requires, if any.
	Closer string
	// Open is set when the prefix opened a block comment the line never
	// closes.
	Open bool
}

type scanner struct {
	prefixes []string
}

func newScanner(prefixes []string) *scanner {
	if len(prefixes) == 0 {
		prefixes = DefaultPrefixes
	}
	ps := append([]string(nil), prefixes...)
	// Longest first, so "<!--" is tried before a shorter "<!".
	sort.SliceStable(ps, func(i, j int) bool { return len(ps[i]) > len(ps[j]) })
	return &scanner{prefixes: ps}
}

// scan classifies line. It reports false for ordinary text, including lines
// with an unknown #keyword after a valid prefix.
func (s *scanner) scan(line string, lineNo int) (Directive, bool) {
	rest := strings.TrimLeft(line, " \t")
	for _, prefix := range s.prefixes {
		if !strings.HasPrefix(rest, prefix+"#") {
			continue
		}
		body := rest[len(prefix)+1:]
		n := 0
		for n < len(body) && isIdentChar(body[n]) {
			n++
		}
		kind, ok := keywords[body[:n]]
		if !ok {
			continue
		}

		arg, tail := splitArgument(body[n:])
		d := Directive{Kind: kind, Line: lineNo, Prefix: prefix, Arg: strings.TrimSpace(arg)}
		if closer, ok := closers[prefix]; ok {
			d.Closer = closer
			switch {
			case strings.HasSuffix(d.Arg, closer):
				d.Arg = strings.TrimSpace(strings.TrimSuffix(d.Arg, closer))
			case strings.Contains(tail, closer):
			default:
				d.Open = true
			}
		}
		return d, true
	}
	return Directive{}, false
}

type argState int

const (
	inCode argState = iota
	inSingle
	inDouble
	inBacktick
	inComment
)

// splitArgument cuts s at the first "//" that is neither inside a string
// literal nor inside a /* */ comment. tail starts at that "//".
func splitArgument(s string) (arg, tail string) {
	state := inCode
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch state {
		case inCode:
			switch {
			case c == '\'':
				state = inSingle
			case c == '"':
				state = inDouble
			case c == '`':
				state = inBacktick
			case c == '/' && i+1 < len(s) && s[i+1] == '/':
				return s[:i], s[i:]
			case c == '/' && i+1 < len(s) && s[i+1] == '*':
				state = inComment
				i++
			}
		case inSingle, inDouble, inBacktick:
			if c == '\\' {
				i++
				continue
			}
			if c == '\'' && state == inSingle || c == '"' && state == inDouble || c == '`' && state == inBacktick {
				state = inCode
			}
		case inComment:
			if c == '*' && i+1 < len(s) && s[i+1] == '/' {
				state = inCode
				i++
			}
		}
	}
	return s, ""
}

func isIdentStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9'
}

// identifierAt returns the length of the identifier starting at s[0], or 0.
func identifierAt(s string) int {
	if s == "" || !isIdentStart(s[0]) {
		return 0
	}
	n := 1
	for n < len(s) && isIdentChar(s[n]) {
		n++
	}
	return n
}
