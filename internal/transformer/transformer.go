package transformer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jwtly10/jscc"
)

type TransformOptions struct {
	// Engine is passed to every run. Its Root also anchors OutDir mirroring.
	Engine jscc.Options
	// If true, no backup of an existing output is created
	NoBackup bool
	// OutDir, when set, receives outputs mirrored relative to Engine.Root
	OutDir string
	// WriteLineMap writes <output>.map.json next to every output
	WriteLineMap bool
}

func (t *TransformOptions) Pretty() string {
	outDir := t.OutDir
	if outDir == "" {
		outDir = "(next to source)"
	}
	return fmt.Sprintf("keep_lines=%s backup=%s out_dir=%s line_map=%s prefixes=%s",
		boolToText(t.Engine.KeepLines),
		boolToText(!t.NoBackup),
		outDir,
		boolToText(t.WriteLineMap),
		strings.Join(t.Engine.Prefixes, ","))
}

func boolToText(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

type Transformer struct {
	parser *jscc.Parser
	backup *jscc.BackupManager
	now    func() time.Time

	opts TransformOptions
}

// NewTransformer creates a new Transformer instance with the specified options [TransformOptions]
func NewTransformer(opts TransformOptions) *Transformer {
	return &Transformer{
		parser: jscc.NewParser(),
		backup: jscc.NewBackupManager(),
		now:    time.Now,
		opts:   opts,
	}
}

// Source is one input file. Markdown sources are tangled, anything else is
// preprocessed as is.
type Source struct {
	Content  io.Reader
	Metadata jscc.MetaData
}

// LineMap is the content of a line map sidecar file.
type LineMap struct {
	Source string `json:"source"`
	Output string `json:"output"`
	// Lines holds, per output line, the 1-based source line or 0.
	Lines []int `json:"lines"`
}

// Transform processes src and writes the output file, returning its path.
func (t *Transformer) Transform(src Source) (string, error) {
	slog.Debug("transforming document", "path", src.Metadata.AbsSource)
	if src.Metadata.AbsSource == "" {
		return "", fmt.Errorf("abs source metadata is required for transformation")
	}

	content, err := io.ReadAll(src.Content)
	if err != nil {
		return "", fmt.Errorf("error reading source: %w", err)
	}

	opts := t.opts.Engine
	opts.Mapping = opts.Mapping || t.opts.WriteLineMap

	var (
		res     *jscc.Result
		outPath string
		header  bool
	)
	if jscc.IsMarkdown(src.Metadata.AbsSource) {
		doc, err := t.parser.ParseMarkdownDoc(bytes.NewReader(content), src.Metadata)
		if err != nil {
			return "", fmt.Errorf("parse error: %w", err)
		}
		if res, err = jscc.Tangle(doc, opts); err != nil {
			return "", err
		}
		if outPath, err = jscc.ResolveOutputPath(src.Metadata.AbsSource, opts.Root, t.opts.OutDir, doc.Pragmas); err != nil {
			return "", fmt.Errorf("resolve output path error: %w", err)
		}
		// Shadow output must keep markdown line numbers, so it gets no header.
		header = !opts.KeepLines && !doc.Pragmas.KeepLines
	} else {
		if res, err = jscc.Process(content, src.Metadata.AbsSource, opts); err != nil {
			return "", err
		}
		if outPath, err = jscc.ResolveOutputPath(src.Metadata.AbsSource, opts.Root, t.opts.OutDir, jscc.Pragma{}); err != nil {
			return "", fmt.Errorf("resolve output path error: %w", err)
		}
	}

	if jscc.MustAbs(outPath) == jscc.MustAbs(src.Metadata.AbsSource) {
		return "", fmt.Errorf("output path %s would overwrite its source", outPath)
	}

	if !t.opts.NoBackup {
		bkPath, err := t.backup.CreateBackupOf(outPath)
		if err != nil {
			return "", fmt.Errorf("backup error: %w", err)
		}
		if bkPath != "" {
			slog.Info("file already existed. Created backup", "backup", bkPath, "original", outPath)
		}
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	lines := res.LineMap
	if header {
		metadata := jscc.WriterMetadata{
			Version:   jscc.VERSION,
			AbsSource: src.Metadata.AbsSource,
			Generated: t.now().Format(time.RFC3339),
		}
		if err := jscc.NewWriter(jscc.ModeCompact).WriteHeader(out, metadata); err != nil {
			return "", fmt.Errorf("write header error: %w", err)
		}
		lines = append(make([]int, jscc.HeaderLines), lines...)
	}

	if _, err := io.WriteString(out, res.Code); err != nil {
		return "", fmt.Errorf("write error: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("write error: %w", err)
	}

	if t.opts.WriteLineMap {
		if err := writeLineMap(outPath, LineMap{Source: src.Metadata.AbsSource, Output: outPath, Lines: lines}); err != nil {
			return "", err
		}
	}

	return outPath, nil
}

func writeLineMap(outPath string, lm LineMap) error {
	if lm.Lines == nil {
		lm.Lines = []int{}
	}
	data, err := json.MarshalIndent(lm, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding line map: %w", err)
	}
	if err := os.WriteFile(outPath+".map.json", append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing line map: %w", err)
	}
	return nil
}
