package transcript

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TextHash hashes the lowercase-trimmed text of a final segment, the key
// persistence dedup keys on.
func TextHash(text string) string {
	normalized := strings.ToLower(strings.TrimSpace(text))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

type seenEntry struct {
	id   uuid.UUID
	hash string
	at   time.Time
}

// Deduper tracks recently-persisted final segment hashes per meeting so a
// duplicate final (the STT service sometimes redelivers the same final
// utterance) isn't written twice.
type Deduper struct {
	mu      sync.Mutex
	window  time.Duration
	entries []seenEntry
}

// NewDeduper constructs a deduper with the given lookback window.
func NewDeduper(window time.Duration) *Deduper {
	return &Deduper{window: window}
}

// CheckAndRecord looks for an existing entry with the same hash recorded
// within the window; if found, it returns that entry's id and false (not
// a fresh insert). Otherwise it records a new entry under the given id
// and returns (id, true).
func (d *Deduper) CheckAndRecord(id uuid.UUID, text string, now time.Time) (uuid.UUID, bool) {
	hash := TextHash(text)

	d.mu.Lock()
	defer d.mu.Unlock()

	d.evictLocked(now)

	for _, e := range d.entries {
		if e.hash == hash {
			return e.id, false
		}
	}

	d.entries = append(d.entries, seenEntry{id: id, hash: hash, at: now})
	return id, true
}

func (d *Deduper) evictLocked(now time.Time) {
	cutoff := now.Add(-d.window)
	kept := d.entries[:0]
	for _, e := range d.entries {
		if e.at.After(cutoff) {
			kept = append(kept, e)
		}
	}
	d.entries = kept
}
