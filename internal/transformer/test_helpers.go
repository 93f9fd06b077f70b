package transformer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testDir struct {
	path string
	t    *testing.T
}

func newTestDir(t *testing.T) *testDir {
	t.Helper()
	return &testDir{path: t.TempDir(), t: t}
}

// copyFixture copies a file from testdata into the test directory.
func (td *testDir) copyFixture(src, name string) string {
	td.t.Helper()
	content, err := os.ReadFile(src)
	require.NoError(td.t, err)
	return td.createFile(name, string(content))
}

func (td *testDir) createFile(name, content string) string {
	td.t.Helper()

	path := filepath.Join(td.path, name)
	require.NoError(td.t, os.MkdirAll(filepath.Dir(path), 0755))
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		td.t.Fatalf("failed to create test file: %v", err)
	}
	return path
}

func (td *testDir) read(path string) string {
	td.t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(td.t, err)
	return string(content)
}
