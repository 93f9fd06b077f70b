package jscc

import (
	"errors"
	"strings"
)

// ProcessDocument runs the engine over every code block of doc, in order,
// with one store: a #set in one block is visible in the blocks after it. It
// returns a copy of doc whose blocks hold the processed code.
//
// Each block must close the conditional blocks it opens. Error lines are
// markdown line numbers.
func ProcessDocument(doc *Document, opts Options) (*Document, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	store := opts.Store
	if store == nil {
		store = NewStore()
	}
	seedBuiltins(store, doc.Metadata.AbsSource, opts)
	store.Merge(opts.Values)

	keepLines := opts.KeepLines || doc.Pragmas.KeepLines
	out := &Document{Metadata: doc.Metadata, Pragmas: doc.Pragmas}

	for _, block := range doc.Blocks {
		p := &processor{
			file:    doc.Metadata.AbsSource,
			store:   store,
			scanner: newScanner(opts.Prefixes),
			out:     &output{keepLines: keepLines, mapping: true},
		}
		res, err := p.run(block.Code)
		if err != nil {
			offset := block.Position.StartLine - 1
			var e *Error
			if errors.As(err, &e) {
				e.Line += offset
				e.File = displayPath(doc.Metadata.AbsSource, opts.Root)
			}
			return nil, err
		}

		lineMap := make([]int, len(res.LineMap))
		for i, line := range res.LineMap {
			lineMap[i] = line + block.Position.StartLine - 1
		}
		out.Blocks = append(out.Blocks, CodeBlock{
			Code:     res.Code,
			Lang:     block.Lang,
			Position: block.Position,
			LineMap:  lineMap,
		})
	}
	return out, nil
}

// Tangle processes doc and lays its blocks out as one file. With keepLines
// (from opts or the document pragma) code stays at its markdown lines.
func Tangle(doc *Document, opts Options) (*Result, error) {
	processed, err := ProcessDocument(doc, opts)
	if err != nil {
		return nil, err
	}

	mode := ModeCompact
	if opts.KeepLines || doc.Pragmas.KeepLines {
		mode = ModeShadow
	}

	var b strings.Builder
	lineMap, err := NewWriter(mode).WriteContent(processed, &b)
	if err != nil {
		return nil, err
	}
	res := &Result{Code: b.String()}
	if opts.Mapping {
		res.LineMap = lineMap
	}
	return res, nil
}
