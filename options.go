package jscc

import (
	"fmt"
	"strings"
)

// Options controls a run of the engine.
type Options struct {
	// Values are merged over the built-in variables before the run.
	Values map[string]any
	// Prefixes are the comment openers recognized before '#'. Defaults to
	// DefaultPrefixes. Given prefixes replace the defaults.
	Prefixes []string
	// KeepLines replaces every dropped line with an empty one, so the
	// output has as many lines as the input.
	KeepLines bool
	// Mapping asks for Result.LineMap.
	Mapping bool
	// Store, when set, is used instead of a fresh store so variables set in
	// one run are visible in the next.
	Store *Store
	// Root is the directory _FILE is relative to. Defaults to the working
	// directory.
	Root string
	// Version overrides the _VERSION lookup.
	Version string
}

// Result is the output of a successful run.
type Result struct {
	Code string
	// LineMap holds, for each output line, the 1-based input line it came
	// from. Only filled when Options.Mapping is set.
	LineMap []int
}

// Validate rejects options no run can use. An empty prefix would turn any
// line starting with '#' into a directive.
func (o Options) Validate() error {
	for _, p := range o.Prefixes {
		if strings.TrimSpace(p) == "" {
			return newError(OptionsError, 0, "invalid options: empty directive prefix")
		}
	}
	return nil
}

func (o Options) prefixes() []string {
	if len(o.Prefixes) == 0 {
		return DefaultPrefixes
	}
	return o.Prefixes
}

// Pretty renders the options for debug logs.
func (o Options) Pretty() string {
	return fmt.Sprintf(`Options:
  Prefixes: %s
  KeepLines: %v
  Mapping: %v
  Values: %d
  Shared store: %v
  Root: %s`,
		strings.Join(o.prefixes(), " "),
		o.KeepLines,
		o.Mapping,
		len(o.Values),
		o.Store != nil,
		o.Root,
	)
}
