package jscc

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
)

// VERSION is the version of the tool, used for _VERSION when no package.json
// is found.
const VERSION = "v0.4.0"

// LookupVersion returns the "version" field of the nearest package.json in
// dir or one of its parents, or VERSION.
func LookupVersion(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return VERSION
	}
	for {
		data, err := os.ReadFile(filepath.Join(abs, "package.json"))
		if err == nil {
			var pkg struct {
				Version string `json:"version"`
			}
			if err := json.Unmarshal(data, &pkg); err != nil {
				slog.Warn("Ignoring unreadable package.json", "dir", abs, "error", err)
			} else if pkg.Version != "" {
				return pkg.Version
			}
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return VERSION
		}
		abs = parent
	}
}
