package lsp

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf16"

	"github.com/jwtly10/jscc"
	"github.com/jwtly10/jscc/internal/transformer"
	"github.com/sourcegraph/go-lsp"
)

// DiagnosticSource names this server in published diagnostics.
const DiagnosticSource = "jscc"

type DocumentServiceOptions struct {
	// Engine is used for every run. Its Store is ignored: each document gets
	// a fresh one.
	Engine jscc.Options
	// BuildOnSave writes outputs with these options when a document is saved.
	// Nil disables it.
	BuildOnSave *transformer.TransformOptions
}

func (o DocumentServiceOptions) Validate() error {
	if o.Engine.Store != nil {
		return fmt.Errorf("a shared store cannot be used across editor documents")
	}
	return o.Engine.Validate()
}

type document struct {
	text    string
	version int
	result  *jscc.Result
	err     error
}

// DocumentService keeps the open documents and their processed form
type DocumentService struct {
	mu     sync.Mutex
	docs   map[lsp.DocumentURI]*document
	opts   DocumentServiceOptions
	parser *jscc.Parser
}

func NewDocumentService(opts DocumentServiceOptions) (*DocumentService, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid document service options: %w", err)
	}

	return &DocumentService{
		docs:   make(map[lsp.DocumentURI]*document),
		opts:   opts,
		parser: jscc.NewParser(),
	}, nil
}

// SetRoot sets the directory _FILE and output mirroring are relative to,
// unless one was configured.
func (s *DocumentService) SetRoot(root string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opts.Engine.Root == "" {
		s.opts.Engine.Root = root
	}
}

// Update stores the latest text of a document, processes it, and returns the
// diagnostics to publish for it.
func (s *DocumentService) Update(uri lsp.DocumentURI, text string, version int) ([]lsp.Diagnostic, error) {
	path, err := s.URIToPath(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid document URI: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if doc, ok := s.docs[uri]; ok && version != 0 && version < doc.version {
		slog.Debug("ignoring stale document version", "uri", uri, "version", version, "current", doc.version)
		return diagnostics(doc.text, doc.err), nil
	}

	res, err := s.process(text, path)
	s.docs[uri] = &document{text: text, version: version, result: res, err: err}

	slog.Debug("processed document", "uri", uri, "version", version, "error", err)
	return diagnostics(text, err), nil
}

func (s *DocumentService) process(text, path string) (*jscc.Result, error) {
	opts := s.opts.Engine
	opts.Store = nil
	opts.Mapping = true

	if !jscc.IsMarkdown(path) {
		return jscc.Process([]byte(text), path, opts)
	}

	doc, err := s.parser.ParseMarkdownDoc(bytes.NewReader([]byte(text)), jscc.MetaData{AbsSource: path})
	if err != nil {
		// A markdown file without code has nothing to report.
		slog.Debug("skipping markdown document", "path", path, "reason", err)
		return &jscc.Result{}, nil
	}
	// Line numbers in the preview follow the markdown.
	opts.KeepLines = true
	return jscc.Tangle(doc, opts)
}

// Close forgets a document.
func (s *DocumentService) Close(uri lsp.DocumentURI) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, uri)
}

// Preview returns the processed text of an open document, or the error that
// stopped processing.
func (s *DocumentService) Preview(uri lsp.DocumentURI) (*jscc.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[uri]
	if !ok {
		return nil, fmt.Errorf("document %s is not open", uri)
	}
	if doc.err != nil {
		return nil, doc.err
	}
	return doc.result, nil
}

// Build writes the output of a saved document when build on save is on. It
// returns the output path, or an empty string when nothing was built.
func (s *DocumentService) Build(uri lsp.DocumentURI) (string, error) {
	path, err := s.URIToPath(uri)
	if err != nil {
		return "", fmt.Errorf("invalid document URI: %w", err)
	}

	s.mu.Lock()
	if s.opts.BuildOnSave == nil {
		s.mu.Unlock()
		return "", nil
	}
	// The engine options carry the workspace root set after startup.
	build := *s.opts.BuildOnSave
	build.Engine = s.opts.Engine
	doc, ok := s.docs[uri]
	s.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("document %s is not open", uri)
	}
	if doc.err != nil {
		return "", nil
	}

	outPath, err := transformer.NewTransformer(build).Transform(transformer.Source{
		Content:  strings.NewReader(doc.text),
		Metadata: jscc.MetaData{AbsSource: path},
	})
	if err != nil {
		return "", fmt.Errorf("transform error: %w", err)
	}
	return outPath, nil
}

// URIToPath converts an LSP URI to a filesystem path
func (s *DocumentService) URIToPath(uri lsp.DocumentURI) (string, error) {
	u, err := url.Parse(string(uri))
	if err != nil {
		return "", err
	}
	if u.Scheme != "" && u.Scheme != "file" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	return filepath.FromSlash(u.Path), nil
}

// PathToURI converts a filesystem path to an LSP URI
func (s *DocumentService) PathToURI(path string) lsp.DocumentURI {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return lsp.DocumentURI(u.String())
}

// diagnostics turns a processing error into at most one diagnostic covering
// the offending line.
func diagnostics(text string, err error) []lsp.Diagnostic {
	if err == nil {
		return []lsp.Diagnostic{}
	}

	msg := err.Error()
	line := 0
	if e, ok := jscc.AsError(err); ok {
		msg = e.Msg
		if e.Line > 0 {
			line = e.Line - 1
		}
	}

	width := 0
	if lines := strings.Split(text, "\n"); line < len(lines) {
		// LSP characters are UTF-16 code units.
		width = len(utf16.Encode([]rune(strings.TrimSuffix(lines[line], "\r"))))
	}

	return []lsp.Diagnostic{{
		Range: lsp.Range{
			Start: lsp.Position{Line: line, Character: 0},
			End:   lsp.Position{Line: line, Character: width},
		},
		Severity: lsp.Error,
		Source:   DiagnosticSource,
		Message:  msg,
	}}
}
