package expr

import (
	"errors"

	"github.com/alecthomas/participle/v2/lexer"
)

// Rules are tried in order, so Number must precede Punct for ".5".
var exprLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `[ \t\r\n\f\v]+`},
	{Name: "Comment", Pattern: `/\*[\s\S]*?\*/`},
	{Name: "Number", Pattern: `0[xX][0-9a-fA-F]+|0[oO][0-7]+|0[bB][01]+|(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?`},
	{Name: "String", Pattern: `"(?:[^"\\\n]|\\[\s\S])*"|'(?:[^'\\\n]|\\[\s\S])*'`},
	{Name: "Template", Pattern: "`(?:[^`\\\\]|\\\\[\\s\\S])*`"},
	{Name: "Ident", Pattern: `[A-Za-z_$][A-Za-z0-9_$]*`},
	{Name: "Punct", Pattern: `>>>|===|!==|\*\*|\?\?|\?\.|&&|\|\||==|!=|<=|>=|<<|>>|[-+*/%<>=!~&|^?:.,()\[\]{}]`},
})

var (
	tokWhitespace = exprLexer.Symbols()["Whitespace"]
	tokComment    = exprLexer.Symbols()["Comment"]
	tokNumber     = exprLexer.Symbols()["Number"]
	tokString     = exprLexer.Symbols()["String"]
	tokTemplate   = exprLexer.Symbols()["Template"]
	tokIdent      = exprLexer.Symbols()["Ident"]
	tokPunct      = exprLexer.Symbols()["Punct"]
)

// tokenize collects the significant tokens of src, ending with an EOF token.
func tokenize(src string) ([]lexer.Token, error) {
	lex, err := exprLexer.LexString("", src)
	if err != nil {
		return nil, syntaxErrorf(0, "Invalid or unexpected token")
	}

	var tokens []lexer.Token
	for {
		token, err := lex.Next()
		if err != nil {
			offset := 0
			var lerr *lexer.Error
			if errors.As(err, &lerr) {
				offset = lerr.Pos.Offset
			}
			return nil, syntaxErrorf(offset, "Invalid or unexpected token")
		}
		if token.Type == tokWhitespace || token.Type == tokComment {
			continue
		}
		tokens = append(tokens, token)
		if token.EOF() {
			return tokens, nil
		}
	}
}
