package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), FileName), `
values:
  _DEBUG: true
  _LEVEL: 2
  _NAME: demo
  _OBJ: {a: [1, 2]}
prefixes: ["//", "<!--"]
keepLines: true
extensions: [js, html]
exclude: ["**/fixtures/**"]
outDir: dist
backup: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"_DEBUG": true,
		"_LEVEL": 2,
		"_NAME":  "demo",
		"_OBJ":   map[string]any{"a": []any{1, 2}},
	}, cfg.Values)
	assert.Equal(t, []string{"//", "<!--"}, cfg.Prefixes)
	assert.True(t, cfg.KeepLines)
	assert.Equal(t, []string{"js", "html"}, cfg.Extensions)
	assert.Equal(t, []string{"**/fixtures/**"}, cfg.Exclude)
	assert.Equal(t, "dist", cfg.OutDir)
	assert.False(t, cfg.BackupEnabled())
	assert.Equal(t, path, cfg.Path)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), FileName), "keeplines: true\n")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadEmptyFile(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), FileName), "")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.BackupEnabled())
}

func TestFind(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, FileName), "outDir: out\n")
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))

	cfg, err := Find(nested)
	require.NoError(t, err)
	assert.Equal(t, "out", cfg.OutDir)
	assert.Equal(t, filepath.Join(root, FileName), cfg.Path)
}

func TestLoadValues(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), "values.yaml"), "_A: 1\n_B: [x]\n")
	values, err := LoadValues(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"_A": 1, "_B": []any{"x"}}, values)

	_, err = LoadValues(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in      string
		name    string
		value   any
		wantErr bool
	}{
		{in: "_A=1", name: "_A", value: 1},
		{in: "_A=1.5", name: "_A", value: 1.5},
		{in: "_A=false", name: "_A", value: false},
		{in: "_A=null", name: "_A", value: nil},
		{in: `_A="x y"`, name: "_A", value: "x y"},
		{in: "_A=hello", name: "_A", value: "hello"},
		{in: `_A={"k": [1]}`, name: "_A", value: map[string]any{"k": []any{1}}},
		{in: "_A", name: "_A", value: true},
		{in: "_A=", name: "_A", value: true},
		{in: "=1", wantErr: true},
		{in: "_A=[1", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			name, value, err := ParseValue(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.value, value)
		})
	}
}

func TestMerge(t *testing.T) {
	cfg := &Config{Values: map[string]any{"_A": 1, "_B": 2}}
	got := cfg.Merge(map[string]any{"_B": 3})
	assert.Equal(t, map[string]any{"_A": 1, "_B": 3}, got)
	assert.Equal(t, 2, cfg.Values["_B"])
}
