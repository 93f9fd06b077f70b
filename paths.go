package jscc

import (
	"fmt"
	"path/filepath"
	"strings"
)

// OutputSuffix is inserted before the extension of processed plain files
// written next to their source: app.js -> app.out.js.
const OutputSuffix = ".out"

// ResolveOutputPath determines where the processed form of src is written.
//
// With outDir the source is mirrored under it, relative to root. Otherwise
// markdown sources use their output pragma, or the same name with a .js
// extension, and plain files get OutputSuffix before their extension.
func ResolveOutputPath(src, root, outDir string, pragma Pragma) (string, error) {
	if IsMarkdown(src) && pragma.Output != "" {
		return filepath.Join(filepath.Dir(src), pragma.Output), nil
	}

	name := filepath.Base(src)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if IsMarkdown(src) {
		name = stem + ".js"
	} else if outDir == "" {
		name = stem + OutputSuffix + ext
	}

	if outDir == "" {
		return filepath.Join(filepath.Dir(src), name), nil
	}

	if root == "" {
		root = filepath.Dir(src)
	}
	rel, err := filepath.Rel(MustAbs(root), MustAbs(src))
	if err != nil {
		return "", fmt.Errorf("resolving %s against %s: %w", src, root, err)
	}
	if strings.HasPrefix(rel, "..") {
		rel = filepath.Base(src)
	}
	return filepath.Join(outDir, filepath.Dir(rel), name), nil
}

// IsMarkdown reports whether path is a literate markdown source.
func IsMarkdown(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return true
	}
	return false
}

func MustAbs(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		panic(err)
	}
	return abs
}
