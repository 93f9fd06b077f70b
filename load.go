package jscc

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/jwtly10/jscc/internal/selector"
)

// Preprocessor runs the engine on the files its selector accepts, the way a
// build tool transform hook would.
type Preprocessor struct {
	opts     Options
	selector *selector.Selector
}

func NewPreprocessor(opts Options, sel selector.Options) *Preprocessor {
	if sel.Root == "" {
		sel.Root = opts.Root
	}
	return &Preprocessor{opts: opts, selector: selector.New(sel)}
}

// Applies reports whether path would be processed.
func (p *Preprocessor) Applies(path string) bool {
	return p.selector.Match(path)
}

// Load processes the file at path. It returns nil and no error when the
// file is not selected, which is different from an empty result.
func (p *Preprocessor) Load(path string) (*Result, error) {
	if !p.selector.Match(path) {
		slog.Debug("Skipping unselected file", "path", path)
		return nil, nil
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}
	return Process(src, path, p.opts)
}

// Transform processes src, already read from path. Like Load it returns nil
// for unselected paths.
func (p *Preprocessor) Transform(src []byte, path string) (*Result, error) {
	if !p.selector.Match(path) {
		return nil, nil
	}
	return Process(src, path, p.opts)
}
