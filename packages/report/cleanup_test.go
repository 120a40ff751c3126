package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanRemovesStaleFiles(t *testing.T) {
	dir := t.TempDir()
	stale := []string{"run1.json", "run1.txt", "trace.attach", "env.properties"}
	kept := []string{"README.md", "history.db"}
	for _, name := range append(append([]string{}, stale...), kept...) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive.json"), 0o755))

	c := NewCleaner(dir, nil)
	removed, err := c.Clean()
	require.NoError(t, err)
	assert.Equal(t, len(stale), removed)

	for _, name := range stale {
		assert.NoFileExists(t, filepath.Join(dir, name))
	}
	for _, name := range kept {
		assert.FileExists(t, filepath.Join(dir, name))
	}
	// Directories are never touched, whatever their name.
	assert.DirExists(t, filepath.Join(dir, "archive.json"))
}

func TestCleanCreatesMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")

	c := NewCleaner(dir, nil)
	removed, err := c.Clean()
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.DirExists(t, dir)
}

func TestHook(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old.json"), []byte("x"), 0o644))

	hook := NewCleaner(dir, nil).Hook()
	require.NoError(t, hook())
	assert.NoFileExists(t, filepath.Join(dir, "old.json"))
}
