package cli

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jwtly10/jscc"
	"github.com/jwtly10/jscc/internal/selector"
	"github.com/jwtly10/jscc/internal/transformer"
)

const maxWorkers = 4

type TranspileResult struct {
	Path     string
	OutPath  string
	Duration time.Duration
}

type ProcessResult struct {
	Path     string
	OutPath  string
	Duration time.Duration
	Error    error
}

type Processor struct {
	transformer *transformer.Transformer
	selector    *selector.Selector
	opts        transformer.TransformOptions
}

func NewProcessor(opts transformer.TransformOptions, sel selector.Options) *Processor {
	if sel.Root == "" {
		sel.Root = opts.Engine.Root
	}
	return &Processor{
		transformer: transformer.NewTransformer(opts),
		selector:    selector.New(sel),
		opts:        opts,
	}
}

func (p *Processor) ProcessPath(path string) ([]TranspileResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("error accessing path: %w", err)
	}

	if info.IsDir() {
		return p.processDirectory(path)
	}

	if !jscc.IsMarkdown(path) && !p.selector.Match(path) {
		return nil, fmt.Errorf("file %s is not selected by the extension and include/exclude settings", path)
	}
	result := p.processFile(path)
	if result.Error != nil {
		return nil, result.Error
	}

	return []TranspileResult{{
		Path:     result.Path,
		OutPath:  result.OutPath,
		Duration: result.Duration,
	}}, nil
}

// workers is the pool size. A shared store makes runs order dependent, so
// they go one at a time.
func (p *Processor) workers() int {
	if p.opts.Engine.Store != nil {
		return 1
	}
	return maxWorkers
}

func (p *Processor) processDirectory(root string) ([]TranspileResult, error) {
	startTime := time.Now()
	slog.Debug("starting directory processing", "path", root)
	found, err := p.selector.Walk(root)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, f := range found {
		if p.isOutput(f) {
			slog.Debug("skipping generated file", "path", f)
			continue
		}
		files = append(files, f)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no matching files found in %s", root)
	}

	slog.Debug("found files to process", "count", len(files), "workers", p.workers(), "duration", time.Since(startTime))

	jobs := make(chan string, len(files))
	results := make(chan ProcessResult, len(files))

	var wg sync.WaitGroup
	for i := 0; i < p.workers(); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				results <- p.processFile(path)
			}
		}()
	}

	for _, file := range files {
		jobs <- file
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	var errs []error
	var transpileResults []TranspileResult

	absRoot, _ := filepath.Abs(root)
	for result := range results {
		if result.Error != nil {
			errs = append(errs, fmt.Errorf("failed to process %s: %w", result.Path, result.Error))
			slog.Error("failed to process file", "path", result.Path, "error", result.Error)
			continue
		}

		relSource, _ := filepath.Rel(absRoot, result.Path)
		relOut, _ := filepath.Rel(absRoot, result.OutPath)

		transpileResults = append(transpileResults, TranspileResult{
			Path:     relSource,
			OutPath:  relOut,
			Duration: result.Duration,
		})

		slog.Debug("file processed",
			"source", relSource,
			"output", relOut,
		)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("encountered %d errors during processing. Please rerun with --debug to see trace", len(errs))
	}

	sort.Slice(transpileResults, func(i, j int) bool { return transpileResults[i].Path < transpileResults[j].Path })
	slog.Debug("processing completed", "duration", time.Since(startTime), "processed", len(transpileResults))
	return transpileResults, nil
}

// isOutput reports whether path is something an earlier build wrote: a
// name.out.ext file or anything under the output directory.
func (p *Processor) isOutput(path string) bool {
	ext := filepath.Ext(path)
	if strings.HasSuffix(strings.TrimSuffix(path, ext), jscc.OutputSuffix) {
		return true
	}
	if p.opts.OutDir == "" {
		return false
	}
	rel, err := filepath.Rel(jscc.MustAbs(p.opts.OutDir), jscc.MustAbs(path))
	return err == nil && !strings.HasPrefix(rel, "..")
}

func (p *Processor) processFile(path string) ProcessResult {
	startTime := time.Now()
	var result ProcessResult

	absPath, err := filepath.Abs(path)
	if err != nil {
		result.Error = fmt.Errorf("failed to resolve absolute path: %w", err)
		return result
	}
	result.Path = absPath

	slog.Debug("processing file", "path", absPath)

	content, err := os.ReadFile(absPath)
	if err != nil {
		result.Error = fmt.Errorf("error reading file: %w", err)
		return result
	}

	src := transformer.Source{
		Content:  bytes.NewReader(content),
		Metadata: jscc.MetaData{AbsSource: absPath},
	}

	outPath, err := p.transformer.Transform(src)
	if err != nil {
		result.Error = err
		return result
	}

	result.OutPath = outPath
	result.Duration = time.Since(startTime)
	slog.Debug("file processed", "path", absPath, "duration", result.Duration)

	return result
}
