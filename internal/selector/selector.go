// Package selector decides which files the preprocessor runs on.
package selector

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

const maxFiles = 1000

// DefaultExtensions are used when Options.Extensions is empty.
var DefaultExtensions = []string{"js", "jsx", "tag"}

type Options struct {
	// Extensions without the dot. "*" selects every file.
	Extensions []string
	// Include and Exclude are gitignore style globs, e.g. "**/fixtures/**".
	// An empty Include selects everything; Exclude wins over Include.
	Include []string
	Exclude []string
	// Root is the directory globs are matched relative to. Defaults to the
	// working directory.
	Root string
}

type Selector struct {
	extensions map[string]bool
	include    gitignore.Matcher
	hasInclude bool
	exclude    gitignore.Matcher
	root       string
}

func New(opts Options) *Selector {
	s := &Selector{root: opts.Root}

	exts := opts.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	s.extensions = make(map[string]bool, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext == "*" {
			s.extensions = nil
			break
		}
		s.extensions[ext] = true
	}

	s.include = gitignore.NewMatcher(parsePatterns(opts.Include))
	s.hasInclude = len(opts.Include) > 0
	s.exclude = gitignore.NewMatcher(parsePatterns(opts.Exclude))
	return s
}

func parsePatterns(globs []string) []gitignore.Pattern {
	var patterns []gitignore.Pattern
	for _, g := range globs {
		if g = strings.TrimSpace(g); g != "" {
			patterns = append(patterns, gitignore.ParsePattern(g, nil))
		}
	}
	return patterns
}

// Match reports whether path should be preprocessed.
func (s *Selector) Match(path string) bool {
	base := filepath.Base(path)
	// Names starting with NUL are virtual modules of the host build tool.
	if strings.HasPrefix(base, "\x00") {
		return false
	}

	if s.extensions != nil {
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(base), "."))
		if !s.extensions[ext] {
			return false
		}
	}

	parts := s.components(path)
	if s.hasInclude && !s.include.Match(parts, false) {
		return false
	}
	return !s.exclude.Match(parts, false)
}

// components splits path, relative to the selector root when possible.
func (s *Selector) components(path string) []string {
	root := s.root
	if root == "" {
		root = "."
	}
	p := path
	if absRoot, err := filepath.Abs(root); err == nil {
		if absPath, err := filepath.Abs(path); err == nil {
			if rel, err := filepath.Rel(absRoot, absPath); err == nil && !strings.HasPrefix(rel, "..") {
				p = rel
			}
		}
	}

	var parts []string
	for _, part := range strings.Split(filepath.ToSlash(p), "/") {
		if part != "" && part != "." {
			parts = append(parts, part)
		}
	}
	return parts
}

// Walk returns the selected files under root. When root holds a .git
// directory, the root .gitignore is honoured as well.
func (s *Selector) Walk(root string) ([]string, error) {
	var files []string
	var ignored []gitignore.Pattern

	if _, err := os.Stat(filepath.Join(root, ".git")); err == nil {
		ignored = append(ignored, gitignore.ParsePattern(".git/", nil))
		if data, err := os.ReadFile(filepath.Join(root, ".gitignore")); err == nil {
			for _, line := range strings.Split(string(data), "\n") {
				if line = strings.TrimSpace(line); line != "" && !strings.HasPrefix(line, "#") {
					ignored = append(ignored, gitignore.ParsePattern(line, nil))
				}
			}
		}
	}
	gitMatcher := gitignore.NewMatcher(ignored)

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if len(ignored) > 0 && rel != "." {
			if gitMatcher.Match(strings.Split(rel, string(os.PathSeparator)), info.IsDir()) {
				if info.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}
		if info.IsDir() || !s.Match(path) {
			return nil
		}
		if len(files) >= maxFiles {
			return fmt.Errorf("max files limit reached (%d)", maxFiles)
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
