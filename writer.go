package jscc

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

type WriteMode int

const (
	// ModeCompact writes the processed blocks one after another.
	ModeCompact WriteMode = iota
	// ModeShadow places every block at its markdown line numbers, padding
	// with empty lines, so positions in the output match the markdown.
	ModeShadow
)

func (m WriteMode) String() string {
	switch m {
	case ModeCompact:
		return "Compact"
	case ModeShadow:
		return "Shadow"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

type WriterMetadata struct {
	Version   string
	AbsSource string
	Generated string
}

// Writer lays out the code blocks of a processed Document.
type Writer struct {
	mode WriteMode
}

func NewWriter(mode WriteMode) *Writer {
	return &Writer{mode: mode}
}

func (w *Writer) Mode() WriteMode {
	return w.mode
}

// HeaderLines is the number of lines WriteHeader writes.
const HeaderLines = 2

func (w *Writer) WriteHeader(output io.Writer, md WriterMetadata) error {
	_, err := fmt.Fprintf(output, "// Code generated by jscc %s from %s. DO NOT EDIT.\n// Generated: %s\n",
		md.Version, md.AbsSource, md.Generated)
	return err
}

// WriteContent writes the blocks of doc and returns, for each written line,
// the markdown line it came from (0 for padding).
func (w *Writer) WriteContent(doc *Document, output io.Writer) ([]int, error) {
	lines, lineMap, err := w.layout(doc)
	if err != nil {
		return nil, err
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(output, line); err != nil {
			return nil, fmt.Errorf("writing line: %w", err)
		}
	}
	return lineMap, nil
}

func (w *Writer) layout(doc *Document) ([]string, []int, error) {
	if w.mode == ModeCompact {
		var lines []string
		var lineMap []int
		for _, block := range doc.Blocks {
			if block.Code == "" {
				continue
			}
			lines = append(lines, strings.Split(strings.TrimSuffix(block.Code, "\n"), "\n")...)
			lineMap = append(lineMap, block.LineMap...)
		}
		return lines, lineMap, nil
	}

	if len(doc.Blocks) == 0 {
		return nil, nil, nil
	}
	maxLine := doc.Blocks[len(doc.Blocks)-1].Position.EndLine
	lines := make([]string, maxLine)
	lineMap := make([]int, maxLine)
	taken := make([]bool, maxLine)

	slog.Debug("Laying out shadow document", "blocks", len(doc.Blocks), "last_line", maxLine, "source", doc.Metadata.AbsSource)

	for _, block := range doc.Blocks {
		blockLines := strings.Split(strings.TrimSuffix(block.Code, "\n"), "\n")
		for i, line := range blockLines {
			idx := block.Position.StartLine + i - 1
			if idx >= maxLine || taken[idx] {
				return nil, nil, fmt.Errorf("line %d already contains code", idx+1)
			}
			taken[idx] = true
			lines[idx] = line
			lineMap[idx] = idx + 1
		}
	}
	return lines, lineMap, nil
}
