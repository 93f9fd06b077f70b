package expr

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/alecthomas/participle/v2/lexer"
)

// Program is a parsed expression ready for evaluation.
type Program struct {
	src  string
	root Node
}

// Source returns the expression text the program was parsed from.
func (p *Program) Source() string { return p.src }

// Parse parses src as a single expression.
func Parse(src string) (*Program, error) {
	root, err := parseSource(src)
	if err != nil {
		return nil, err
	}
	return &Program{src: src, root: root}, nil
}

func parseSource(src string) (Node, error) {
	tokens, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: tokens}
	n, err := p.expression()
	if err != nil {
		return nil, err
	}
	if !p.atEnd() {
		return nil, p.unexpected()
	}
	return n, nil
}

type parser struct {
	toks []lexer.Token
	i    int
}

// Words that start statements or need constructs outside the grammar.
var reservedWords = map[string]bool{
	"new": true, "delete": true, "function": true, "class": true,
	"var": true, "let": true, "const": true, "return": true,
	"if": true, "else": true, "for": true, "while": true, "do": true,
	"in": true, "instanceof": true, "yield": true, "await": true,
	"throw": true, "try": true, "catch": true, "switch": true,
}

func (p *parser) peek() lexer.Token { return p.toks[p.i] }

func (p *parser) next() lexer.Token {
	t := p.toks[p.i]
	if !t.EOF() {
		p.i++
	}
	return t
}

func (p *parser) atEnd() bool { return p.peek().EOF() }

func (p *parser) isPunct(value string) bool {
	t := p.peek()
	return t.Type == tokPunct && t.Value == value
}

func (p *parser) isWord(value string) bool {
	t := p.peek()
	return t.Type == tokIdent && t.Value == value
}

func (p *parser) match(value string) bool {
	if p.isPunct(value) {
		p.next()
		return true
	}
	return false
}

func (p *parser) need(value string) error {
	if !p.match(value) {
		return p.unexpected()
	}
	return nil
}

func (p *parser) unexpected() *SyntaxError {
	t := p.peek()
	if t.EOF() {
		return syntaxErrorf(t.Pos.Offset, "Unexpected end of input")
	}
	switch t.Type {
	case tokNumber:
		return syntaxErrorf(t.Pos.Offset, "Unexpected number")
	case tokString, tokTemplate:
		return syntaxErrorf(t.Pos.Offset, "Unexpected string")
	case tokIdent:
		if reservedWords[t.Value] {
			return syntaxErrorf(t.Pos.Offset, "Unexpected token '%s'", t.Value)
		}
		return syntaxErrorf(t.Pos.Offset, "Unexpected identifier '%s'", t.Value)
	}
	return syntaxErrorf(t.Pos.Offset, "Unexpected token '%s'", t.Value)
}

// expression parses a comma separated sequence.
func (p *parser) expression() (Node, error) {
	first, err := p.conditional()
	if err != nil {
		return nil, err
	}
	if !p.isPunct(",") {
		return first, nil
	}
	seq := sequenceNode{list: []Node{first}}
	for p.match(",") {
		n, err := p.conditional()
		if err != nil {
			return nil, err
		}
		seq.list = append(seq.list, n)
	}
	return seq, nil
}

func (p *parser) conditional() (Node, error) {
	test, err := p.binary(0)
	if err != nil {
		return nil, err
	}
	if !p.match("?") {
		return test, nil
	}
	yes, err := p.conditional()
	if err != nil {
		return nil, err
	}
	if err := p.need(":"); err != nil {
		return nil, err
	}
	no, err := p.conditional()
	if err != nil {
		return nil, err
	}
	return conditionalNode{test: test, consequent: yes, alternate: no}, nil
}

// binaryPrec returns the binding power of a binary operator token.
func binaryPrec(t lexer.Token) (int, bool) {
	if t.Type == tokIdent {
		if t.Value == "in" {
			return 10, true
		}
		return 0, false
	}
	if t.Type != tokPunct {
		return 0, false
	}
	switch t.Value {
	case "??":
		return 1, true
	case "||":
		return 2, true
	case "&&":
		return 3, true
	case "|":
		return 4, true
	case "^":
		return 5, true
	case "&":
		return 6, true
	case "==", "!=", "===", "!==":
		return 7, true
	case "<", ">", "<=", ">=":
		return 10, true
	case "<<", ">>", ">>>":
		return 11, true
	case "+", "-":
		return 12, true
	case "*", "/", "%":
		return 13, true
	case "**":
		return 14, true
	}
	return 0, false
}

// binary is a precedence climbing loop over binaryPrec.
func (p *parser) binary(minPrec int) (Node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		prec, ok := binaryPrec(t)
		if !ok || prec < minPrec {
			return left, nil
		}
		p.next()
		nextMin := prec + 1
		if t.Value == "**" {
			nextMin = prec
		}
		right, err := p.binary(nextMin)
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: t.Value, left: left, right: right}
	}
}

func (p *parser) unary() (Node, error) {
	t := p.peek()
	if isUnaryOp(t) {
		p.next()
		operand, err := p.unary()
		if err != nil {
			return nil, err
		}
		return unaryNode{op: t.Value, operand: operand}, nil
	}
	n, err := p.primary()
	if err != nil {
		return nil, err
	}
	return p.postfix(n)
}

func isUnaryOp(t lexer.Token) bool {
	switch t.Type {
	case tokPunct:
		switch t.Value {
		case "!", "-", "+", "~":
			return true
		}
	case tokIdent:
		return t.Value == "typeof" || t.Value == "void"
	}
	return false
}

// memberName consumes the identifier after "." or "?.".
func (p *parser) memberName() (string, error) {
	if p.peek().Type != tokIdent {
		return "", p.unexpected()
	}
	return p.next().Value, nil
}

func (p *parser) postfix(n Node) (Node, error) {
	for {
		switch {
		case p.match("."):
			name, err := p.memberName()
			if err != nil {
				return nil, err
			}
			n = memberNode{object: n, name: name}
		case p.match("?."):
			switch {
			case p.match("["):
				key, err := p.expression()
				if err != nil {
					return nil, err
				}
				if err := p.need("]"); err != nil {
					return nil, err
				}
				n = memberNode{object: n, computed: key, optional: true}
			case p.match("("):
				args, err := p.arguments()
				if err != nil {
					return nil, err
				}
				n = callNode{callee: n, args: args, optional: true}
			default:
				name, err := p.memberName()
				if err != nil {
					return nil, err
				}
				n = memberNode{object: n, name: name, optional: true}
			}
		case p.match("["):
			key, err := p.expression()
			if err != nil {
				return nil, err
			}
			if err := p.need("]"); err != nil {
				return nil, err
			}
			n = memberNode{object: n, computed: key}
		case p.match("("):
			args, err := p.arguments()
			if err != nil {
				return nil, err
			}
			n = callNode{callee: n, args: args}
		default:
			return n, nil
		}
	}
}

// newExpression parses what follows new: a member expression and an
// optional argument list. Calls inside the callee need parentheses.
func (p *parser) newExpression() (Node, error) {
	callee, err := p.primary()
	if err != nil {
		return nil, err
	}
	for {
		if p.match(".") {
			name, err := p.memberName()
			if err != nil {
				return nil, err
			}
			callee = memberNode{object: callee, name: name}
			continue
		}
		if p.match("[") {
			key, err := p.expression()
			if err != nil {
				return nil, err
			}
			if err := p.need("]"); err != nil {
				return nil, err
			}
			callee = memberNode{object: callee, computed: key}
			continue
		}
		break
	}
	n := newNode{callee: callee}
	if p.match("(") {
		args, err := p.arguments()
		if err != nil {
			return nil, err
		}
		n.args = args
	}
	return n, nil
}

// arguments parses a call argument list after the opening parenthesis.
func (p *parser) arguments() ([]Node, error) {
	var args []Node
	for !p.match(")") {
		arg, err := p.conditional()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if !p.match(",") {
			if err := p.need(")"); err != nil {
				return nil, err
			}
			break
		}
	}
	return args, nil
}

func (p *parser) primary() (Node, error) {
	t := p.peek()
	switch t.Type {
	case tokNumber:
		p.next()
		return literalNode{value: parseNumber(t.Value)}, nil
	case tokString:
		p.next()
		return literalNode{value: unescape(t.Value[1 : len(t.Value)-1])}, nil
	case tokTemplate:
		p.next()
		return parseTemplate(t.Value[1:len(t.Value)-1], t.Pos.Offset+1)
	case tokIdent:
		switch t.Value {
		case "true":
			p.next()
			return literalNode{value: true}, nil
		case "false":
			p.next()
			return literalNode{value: false}, nil
		case "null":
			p.next()
			return literalNode{value: nil}, nil
		case "this":
			p.next()
			return literalNode{value: Undefined}, nil
		case "new":
			p.next()
			return p.newExpression()
		}
		if reservedWords[t.Value] {
			return nil, p.unexpected()
		}
		p.next()
		return identNode{name: t.Value}, nil
	case tokPunct:
		switch t.Value {
		case "(":
			p.next()
			n, err := p.expression()
			if err != nil {
				return nil, err
			}
			if err := p.need(")"); err != nil {
				return nil, err
			}
			return n, nil
		case "[":
			p.next()
			return p.array()
		case "{":
			p.next()
			return p.object()
		}
	}
	return nil, p.unexpected()
}

func (p *parser) array() (Node, error) {
	arr := arrayNode{}
	for !p.match("]") {
		if p.match(",") {
			arr.elems = append(arr.elems, literalNode{value: Undefined})
			continue
		}
		elem, err := p.conditional()
		if err != nil {
			return nil, err
		}
		arr.elems = append(arr.elems, elem)
		if !p.match(",") {
			if err := p.need("]"); err != nil {
				return nil, err
			}
			break
		}
	}
	return arr, nil
}

func (p *parser) object() (Node, error) {
	obj := objectNode{}
	for !p.match("}") {
		var prop property
		t := p.peek()
		if t.EOF() {
			return nil, p.unexpected()
		}
		p.next()
		switch {
		case t.Type == tokIdent:
			prop.key = t.Value
			if !p.isPunct(":") {
				// Shorthand {name}.
				prop.value = identNode{name: t.Value}
			}
		case t.Type == tokString:
			prop.key = unescape(t.Value[1 : len(t.Value)-1])
		case t.Type == tokNumber:
			prop.key = FormatNumber(parseNumber(t.Value))
		case t.Type == tokPunct && t.Value == "[":
			key, err := p.conditional()
			if err != nil {
				return nil, err
			}
			if err := p.need("]"); err != nil {
				return nil, err
			}
			prop.computed = key
		default:
			p.i--
			return nil, p.unexpected()
		}
		if prop.value == nil {
			if err := p.need(":"); err != nil {
				return nil, err
			}
			v, err := p.conditional()
			if err != nil {
				return nil, err
			}
			prop.value = v
		}
		obj.props = append(obj.props, prop)
		if !p.match(",") {
			if err := p.need("}"); err != nil {
				return nil, err
			}
			break
		}
	}
	return obj, nil
}

func parseNumber(s string) float64 {
	if len(s) > 2 && s[0] == '0' {
		base := 0
		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			n, _ := strconv.ParseUint(s[2:], base, 64)
			return float64(n)
		}
	}
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

// parseTemplate splits template literal text into its literal parts and
// ${...} substitutions. offset locates body within the whole expression.
func parseTemplate(body string, offset int) (Node, error) {
	tmpl := templateNode{}
	var quasi strings.Builder
	for i := 0; i < len(body); i++ {
		ch := body[i]
		if ch == '\\' && i+1 < len(body) {
			quasi.WriteByte(ch)
			quasi.WriteByte(body[i+1])
			i++
			continue
		}
		if ch != '$' || i+1 >= len(body) || body[i+1] != '{' {
			quasi.WriteByte(ch)
			continue
		}
		end := matchBrace(body, i+2)
		if end < 0 {
			return nil, syntaxErrorf(offset+i, "Unterminated template literal")
		}
		inner, err := parseSource(body[i+2 : end])
		if err != nil {
			if se, ok := err.(*SyntaxError); ok {
				se.Offset += offset + i + 2
			}
			return nil, err
		}
		tmpl.quasis = append(tmpl.quasis, unescape(quasi.String()))
		tmpl.exprs = append(tmpl.exprs, inner)
		quasi.Reset()
		i = end
	}
	tmpl.quasis = append(tmpl.quasis, unescape(quasi.String()))
	return tmpl, nil
}

// matchBrace returns the index of the '}' closing a substitution that starts
// at from, skipping nested braces and quoted strings.
func matchBrace(s string, from int) int {
	depth := 0
	var quote byte
	for i := from; i < len(s); i++ {
		ch := s[i]
		if quote != 0 {
			if ch == '\\' {
				i++
			} else if ch == quote {
				quote = 0
			}
			continue
		}
		switch ch {
		case '\'', '"':
			quote = ch
		case '{':
			depth++
		case '}':
			if depth == 0 {
				return i
			}
			depth--
		}
	}
	return -1
}

// unescape decodes JavaScript string escapes.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch != '\\' || i+1 >= len(s) {
			b.WriteByte(ch)
			continue
		}
		i++
		switch c := s[i]; c {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case '0':
			b.WriteByte(0)
		case '\n':
			// line continuation
		case 'x':
			if i+2 < len(s) {
				if n, err := strconv.ParseUint(s[i+1:i+3], 16, 8); err == nil {
					b.WriteRune(rune(n))
					i += 2
					continue
				}
			}
			b.WriteByte(c)
		case 'u':
			r, width := decodeUnicodeEscape(s[i+1:])
			if width == 0 {
				b.WriteByte(c)
				continue
			}
			b.WriteRune(r)
			i += width
		default:
			r, size := utf8.DecodeRuneInString(s[i:])
			b.WriteRune(r)
			i += size - 1
		}
	}
	return b.String()
}

// decodeUnicodeEscape reads the part after \u: either XXXX or {X...}.
func decodeUnicodeEscape(s string) (rune, int) {
	if strings.HasPrefix(s, "{") {
		end := strings.IndexByte(s, '}')
		if end < 0 {
			return 0, 0
		}
		n, err := strconv.ParseUint(s[1:end], 16, 32)
		if err != nil {
			return 0, 0
		}
		return rune(n), end + 1
	}
	if len(s) < 4 {
		return 0, 0
	}
	n, err := strconv.ParseUint(s[:4], 16, 16)
	if err != nil {
		return 0, 0
	}
	return rune(n), 4
}
