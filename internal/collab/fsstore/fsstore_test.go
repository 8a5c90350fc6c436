package fsstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_ValidateForDeleteAcceptsAllowedSubdir(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	meetingID := uuid.New()
	require.NoError(t, s.EnsureMeetingDirs(meetingID))

	err = s.ValidateForDelete(s.FramePath(meetingID, 1))
	assert.NoError(t, err)
}

func TestStore_ValidateForDeleteRejectsPathTraversal(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	escaped := filepath.Join(dir, "..", "outside.jpg")
	err = s.ValidateForDelete(escaped)
	assert.Error(t, err)
}

func TestStore_ValidateForDeleteRejectsNonAllowlistedSubdir(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "config"), 0o755))
	err = s.ValidateForDelete(filepath.Join(dir, "config", "settings.yaml"))
	assert.Error(t, err)
}

func TestStore_PathsAreNamespacedByMeeting(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	meetingID := uuid.New()
	assert.Contains(t, s.FramePath(meetingID, 3), meetingID.String())
	assert.Contains(t, s.VideoChunkPath(meetingID, 1), meetingID.String())
	assert.Contains(t, s.AudioChunkPath(meetingID, 0), meetingID.String())
}

func TestAudioChunkWriter_WriteAndReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chunk_000.mp3")
	w, err := NewAudioChunkWriter(path, 16_000, 1)
	require.NoError(t, err)

	samples := make([]float32, 16_000) // 1 second of silence
	require.NoError(t, w.Write(samples))
	require.NoError(t, w.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
