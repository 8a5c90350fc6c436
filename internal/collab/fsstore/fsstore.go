// Package fsstore manages the per-meeting filesystem layout named in spec
// §6.10 (frames/video/audio under an app-data root) and the path
// validation every delete must pass before it touches disk.
package fsstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// allowedSubdirs are the only top-level directories under the app-data
// root a delete may ever touch.
var allowedSubdirs = map[string]bool{
	"frames":     true,
	"video":      true,
	"audio":      true,
	"thumbnails": true,
}

// Store resolves and validates paths under one app-data root.
type Store struct {
	root string
}

// New constructs a store rooted at appDataDir. appDataDir is made absolute
// and symlink-resolved once up front so every later validation compares
// against a canonical root.
func New(appDataDir string) (*Store, error) {
	abs, err := filepath.Abs(appDataDir)
	if err != nil {
		return nil, fmt.Errorf("fsstore: resolve app data dir: %w", err)
	}
	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if os.IsNotExist(err) {
			if mkErr := os.MkdirAll(abs, 0o755); mkErr != nil {
				return nil, fmt.Errorf("fsstore: create app data dir: %w", mkErr)
			}
			canonical = abs
		} else {
			return nil, fmt.Errorf("fsstore: resolve app data dir: %w", err)
		}
	}
	return &Store{root: canonical}, nil
}

// FramePath returns the path for the nth captured frame of a meeting.
func (s *Store) FramePath(meetingID uuid.UUID, n int) string {
	return filepath.Join(s.root, "frames", meetingID.String(), fmt.Sprintf("frame_%d.jpg", n))
}

// VideoChunkPath returns the path for the nth video chunk of a meeting.
func (s *Store) VideoChunkPath(meetingID uuid.UUID, n int) string {
	return filepath.Join(s.root, "video", meetingID.String(), fmt.Sprintf("chunk_%03d.mov", n))
}

// AudioPath returns a meeting's audio directory.
func (s *Store) AudioPath(meetingID uuid.UUID) string {
	return filepath.Join(s.root, "audio", meetingID.String())
}

// AudioChunkPath returns the path for the nth MP3 chunk of a meeting's
// audio.
func (s *Store) AudioChunkPath(meetingID uuid.UUID, n int) string {
	return filepath.Join(s.AudioPath(meetingID), fmt.Sprintf("chunk_%03d.mp3", n))
}

// ThumbnailPath returns the path for a state's keyframe thumbnail.
func (s *Store) ThumbnailPath(meetingID, stateID uuid.UUID) string {
	return filepath.Join(s.root, "thumbnails", meetingID.String(), stateID.String()+".jpg")
}

// ValidateForDelete canonicalises path and confirms it falls under the
// app-data root inside one of the allow-listed subdirectories, per spec
// §6.10 and §7's "always require path validation regardless" rule. It
// never removes anything itself; callers call os.Remove after a nil
// error.
func (s *Store) ValidateForDelete(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("fsstore: resolve path: %w", err)
	}

	canonical := abs
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		canonical = resolved
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("fsstore: resolve path: %w", err)
	}

	rel, err := filepath.Rel(s.root, canonical)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("fsstore: path %q escapes app data root", path)
	}

	parts := strings.Split(filepath.ToSlash(rel), "/")
	if !allowedSubdirs[parts[0]] {
		return fmt.Errorf("fsstore: path %q is not under an allow-listed subdirectory", path)
	}
	return nil
}

// EnsureMeetingDirs creates the frame/video/audio/thumbnail directories
// for a meeting ahead of first use.
func (s *Store) EnsureMeetingDirs(meetingID uuid.UUID) error {
	dirs := []string{
		filepath.Join(s.root, "frames", meetingID.String()),
		filepath.Join(s.root, "video", meetingID.String()),
		s.AudioPath(meetingID),
		filepath.Join(s.root, "thumbnails", meetingID.String()),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("fsstore: create %s: %w", d, err)
		}
	}
	return nil
}
