package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWatch_ReloadsOnAtomicSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: info\n"), 0o644))

	_, err := Load(path)
	require.NoError(t, err)

	w, err := Watch(path, zap.NewNop())
	require.NoError(t, err)
	defer w.Close()

	reloaded := make(chan *AppConfig, 1)
	w.OnChange(func(old, new *AppConfig) {
		reloaded <- new
	})

	// Atomic save: write to a temp file in the same directory, then
	// rename over the watched path, matching how editors and config
	// management tools persist changes.
	tmp := path + ".tmp"
	require.NoError(t, os.WriteFile(tmp, []byte("log_level: debug\n"), 0o644))
	require.NoError(t, os.Rename(tmp, path))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, "debug", cfg.LogLevel)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}
}

func TestWatch_EmptyPathErrors(t *testing.T) {
	_, err := Watch("", zap.NewNop())
	assert.Error(t, err)
}

func TestWatch_IgnoresUnrelatedFilesInSameDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: info\n"), 0o644))

	w, err := Watch(path, zap.NewNop())
	require.NoError(t, err)
	defer w.Close()

	reloaded := make(chan struct{}, 1)
	w.OnChange(func(old, new *AppConfig) { reloaded <- struct{}{} })

	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated.txt"), []byte("noise"), 0o644))

	select {
	case <-reloaded:
		t.Fatal("reload fired for an unrelated file")
	case <-time.After(300 * time.Millisecond):
	}
}
