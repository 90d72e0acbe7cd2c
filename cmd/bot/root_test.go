package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestVersionCommand(t *testing.T) {
	assert.Contains(t, execute(t, "version"), "clipbot dev")
}

func TestSweepCommand(t *testing.T) {
	dir := t.TempDir()
	downloads := filepath.Join(dir, "downloads")
	require.NoError(t, os.MkdirAll(downloads, 0o755))

	old := filepath.Join(downloads, "old.mp4")
	fresh := filepath.Join(downloads, "fresh.mp4")
	require.NoError(t, os.WriteFile(old, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(fresh, []byte("x"), 0o644))
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("download:\n  dir: "+downloads+"\n"), 0o644))

	out := execute(t, "sweep", "--config", cfgPath)
	assert.Contains(t, out, "old.mp4")
	assert.Contains(t, out, "removed 1 files")
	assert.NoFileExists(t, old)
	assert.FileExists(t, fresh)
}
