package jscc

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var pragmaRegex = regexp.MustCompile(`^<!--\s*@pragma\s+(\w+)\s*:\s*([^>]+?)\s*-->$`)

// DefaultLanguages are the fence languages extracted from markdown.
var DefaultLanguages = []string{"js", "javascript", "jsx"}

type Parser struct {
	gm        goldmark.Markdown
	languages map[string]bool
}

// NewParser returns a parser for the given fence languages, or
// DefaultLanguages when none are given.
func NewParser(languages ...string) *Parser {
	if len(languages) == 0 {
		languages = DefaultLanguages
	}
	langs := make(map[string]bool, len(languages))
	for _, l := range languages {
		langs[strings.ToLower(l)] = true
	}
	return &Parser{
		gm:        goldmark.New(),
		languages: langs,
	}
}

// ParseMarkdownDoc extracts the pragmas and code blocks of a markdown
// document. Code blocks keep their line positions so errors and keepLines
// output can point back at the markdown.
func (p *Parser) ParseMarkdownDoc(r io.Reader, md MetaData) (*Document, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		Metadata: md,
	}

	pastPreamble := false
	root := p.gm.Parser().Parse(text.NewReader(content))

	err = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Document:
		case *ast.HTMLBlock:
			// Pragmas are only read from comments before any other content
			if !pastPreamble && node.HTMLBlockType == ast.HTMLBlockType2 {
				if err := p.extractPragma(&doc.Pragmas, blockText(node, content)); err != nil {
					return ast.WalkStop, err
				}
			}
		case *ast.FencedCodeBlock:
			pastPreamble = true
			p.handleCodeBlock(node, content, doc)
		default:
			pastPreamble = true
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}

	if len(doc.Blocks) == 0 {
		return nil, fmt.Errorf("no js code blocks found in document")
	}

	return doc, nil
}

func getLineNumber(content []byte, byteOffset int) int {
	return bytes.Count(content[:byteOffset], []byte("\n")) + 1
}

func blockText(n ast.Node, content []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(content))
	}
	return buf.String()
}

func (p *Parser) handleCodeBlock(cb *ast.FencedCodeBlock, content []byte, doc *Document) {
	lang := string(cb.Language(content))
	if !p.languages[strings.ToLower(lang)] {
		return
	}

	lines := cb.Lines()
	if lines.Len() == 0 {
		slog.Debug("Skipping empty code block", "lang", lang)
		return
	}

	first, last := lines.At(0), lines.At(lines.Len()-1)
	pos := Position{
		StartLine: getLineNumber(content, first.Start),
		EndLine:   getLineNumber(content, first.Start) + lines.Len() - 1,
	}
	slog.Debug("Parsed code block", "lang", lang, "lines", lines.Len(), "start", pos.StartLine, "end", pos.EndLine, "stop", last.Stop)

	doc.Blocks = append(doc.Blocks, CodeBlock{
		Code:     blockText(cb, content),
		Lang:     lang,
		Position: pos,
	})
}

// extractPragma parses a pragma comment such as
//
//	<!-- @pragma output: dist/app.js -->
//
// into the matching Pragma field. Unknown keys are ignored, the last
// occurrence of a key wins.
func (p *Parser) extractPragma(pragma *Pragma, line string) error {
	line = strings.TrimSpace(line)

	matches := pragmaRegex.FindStringSubmatch(line)
	if len(matches) != 3 {
		slog.Debug("Ignoring html comment, not a pragma", "line", line)
		return nil
	}

	key, value := matches[1], matches[2]
	slog.Debug("Parsed pragma", "key", key, "value", value)

	switch PragmaKey(key) {
	case PragmaOutput:
		pragma.Output = value
	case PragmaKeepLines:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("could not parse keepLines pragma value: %w", err)
		}
		pragma.KeepLines = b
	default:
		slog.Debug("Unknown pragma key", "key", key)
	}
	return nil
}
