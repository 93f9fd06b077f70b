package jscc

import (
	"errors"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/jwtly10/jscc/internal/expr"
)

// Process runs the directive engine over src. file names the input; it is
// used for _FILE, for _VERSION lookup and in error messages.
//
// On error no output is returned. Every error is an *Error.
func Process(src []byte, file string, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	store := opts.Store
	if store == nil {
		store = NewStore()
	}
	seedBuiltins(store, file, opts)
	store.Merge(opts.Values)

	p := &processor{
		file:    file,
		store:   store,
		scanner: newScanner(opts.Prefixes),
		out:     &output{keepLines: opts.KeepLines, mapping: opts.Mapping},
	}
	res, err := p.run(string(src))
	if err != nil {
		var e *Error
		if errors.As(err, &e) && e.File == "" {
			e.File = displayPath(file, opts.Root)
		}
		return nil, err
	}
	return res, nil
}

type processor struct {
	file    string
	store   *Store
	scanner *scanner
	blocks  blockStack
	out     *output
	// hidden is the closer of a block comment left open by a directive line.
	hidden string
}

func (p *processor) run(text string) (*Result, error) {
	if text == "" {
		return &Result{}, nil
	}
	trailingNewline := strings.HasSuffix(text, "\n")
	if trailingNewline {
		text = text[:len(text)-1]
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lineNo := i + 1
		eol := trailingNewline || i < len(lines)-1

		if d, ok := p.scanner.scan(line, lineNo); ok {
			if err := p.directive(d); err != nil {
				return nil, err
			}
			if d.Open {
				p.hidden = d.Closer
			} else if p.hidden != "" && strings.Contains(line, p.hidden) {
				p.hidden = ""
			}
			p.out.drop(lineNo, line, eol)
			continue
		}

		if !p.blocks.live() {
			if p.hidden != "" && strings.Contains(line, p.hidden) {
				p.hidden = ""
			}
			p.out.drop(lineNo, line, eol)
			continue
		}

		if p.hidden != "" {
			if at := strings.Index(line, p.hidden); at >= 0 {
				line = line[:at] + line[at+len(p.hidden):]
				p.hidden = ""
			}
		}
		p.out.emit(lineNo, paste(line, p.store), eol)
	}

	if blk, open := p.blocks.unclosed(); open {
		return nil, newError(UnclosedBlockError, blk.line,
			"Unexpected end of file (unclosed #%s from line %d)", blk.kind, blk.line)
	}
	return p.out.result(), nil
}

func (p *processor) directive(d Directive) error {
	slog.Debug("Directive", "file", p.file, "line", d.Line, "kind", d.Kind.String(), "arg", d.Arg, "live", p.blocks.live())

	switch d.Kind {
	case KindIf:
		return p.blocks.push(d.Kind, d.Line, func() (bool, error) { return p.test(d) })
	case KindIfset, KindIfnset:
		return p.blocks.push(d.Kind, d.Line, func() (bool, error) {
			name, err := p.name(d)
			if err != nil {
				return false, err
			}
			return p.store.Has(name) == (d.Kind == KindIfset), nil
		})
	case KindElif:
		return p.blocks.elif(d.Kind, d.Line, func() (bool, error) { return p.test(d) })
	case KindElse:
		return p.blocks.elif(d.Kind, d.Line, func() (bool, error) { return true, nil })
	case KindEndif:
		return p.blocks.pop(d.Line)
	}

	if !p.blocks.live() {
		return nil
	}

	switch d.Kind {
	case KindSet:
		return p.set(d)
	case KindUnset:
		name, err := p.name(d)
		if err != nil {
			return err
		}
		p.store.Unset(name)
	case KindError:
		return newError(UserError, d.Line, "%s", p.errorMessage(d.Arg))
	}
	return nil
}

func (p *processor) test(d Directive) (bool, error) {
	v, err := p.eval(d.Arg, d.Line)
	if err != nil {
		return false, err
	}
	return expr.ToBoolean(v), nil
}

// name returns the argument of #ifset, #ifnset and #unset, which must be a
// single identifier.
func (p *processor) name(d Directive) (string, error) {
	if n := identifierAt(d.Arg); n == 0 || n != len(d.Arg) {
		return "", newError(ScanError, d.Line, "Invalid variable name %q in #%s", d.Arg, d.Kind)
	}
	return d.Arg, nil
}

// set handles "#set NAME", "#set NAME EXPR" and "#set NAME = EXPR".
func (p *processor) set(d Directive) error {
	n := identifierAt(d.Arg)
	if n == 0 {
		return newError(ScanError, d.Line, "Invalid variable name in #set %q", d.Arg)
	}
	name := d.Arg[:n]
	rest := strings.TrimSpace(d.Arg[n:])
	if strings.HasPrefix(rest, "=") && !strings.HasPrefix(rest, "==") {
		rest = strings.TrimSpace(rest[1:])
	}

	var v any = Undefined
	if rest != "" {
		var err error
		if v, err = p.eval(rest, d.Line); err != nil {
			return err
		}
	}
	p.store.Set(name, v)
	return nil
}

// errorMessage prefers the value of the #error argument and falls back to
// its raw text, so both #error "boom!" and #error boom! report boom!.
func (p *processor) errorMessage(arg string) string {
	v, err := expr.Eval(arg, p.store)
	if err != nil || expr.IsUndefined(v) {
		return arg
	}
	return expr.ToString(v)
}

func (p *processor) eval(src string, line int) (any, error) {
	v, err := expr.Eval(src, p.store)
	if err == nil {
		return v, nil
	}
	var syn *expr.SyntaxError
	if errors.As(err, &syn) {
		return nil, &Error{Kind: ExpressionSyntaxError, Line: line, Msg: syn.Msg + " in " + src, Err: err}
	}
	return nil, &Error{Kind: ExpressionRuntimeError, Line: line, Msg: err.Error(), Err: err}
}

func seedBuiltins(store *Store, file string, opts Options) {
	store.Set("_FILE", displayPath(file, opts.Root))
	version := opts.Version
	if version == "" {
		version = LookupVersion(filepath.Dir(file))
	}
	store.Set("_VERSION", version)
}

// displayPath is file relative to root (or the working directory), with
// forward slashes.
func displayPath(file, root string) string {
	if file == "" {
		return ""
	}
	if root == "" {
		root = "."
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return filepath.ToSlash(file)
	}
	absFile, err := filepath.Abs(file)
	if err != nil {
		return filepath.ToSlash(file)
	}
	rel, err := filepath.Rel(absRoot, absFile)
	if err != nil {
		return filepath.ToSlash(file)
	}
	return filepath.ToSlash(rel)
}
