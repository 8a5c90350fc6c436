// Package snapshot implements the Snapshot Extractor (spec §4.3): it pulls
// text out of the current screen state via OCR or accessibility APIs, scores
// its quality, and decides when a fresh checkpoint is worth taking.
package snapshot

import (
	"time"

	"github.com/google/uuid"
)

// Source identifies how a snapshot's text was obtained.
type Source int

const (
	SourceOCR Source = iota
	SourceAccessibility
	SourceDOM
	SourceClipboard
	SourceManual
)

func (s Source) String() string {
	switch s {
	case SourceAccessibility:
		return "accessibility"
	case SourceDOM:
		return "dom"
	case SourceClipboard:
		return "clipboard"
	case SourceManual:
		return "manual"
	default:
		return "ocr"
	}
}

// TextSnapshot is one piece of extracted screen text, scored and hashed.
type TextSnapshot struct {
	SnapshotID   uuid.UUID
	EpisodeID    *uuid.UUID
	StateID      *uuid.UUID
	Timestamp    time.Time
	Text         string
	TextHash     string
	QualityScore float64
	Source       Source
	WordCount    int
}

// ResultKind distinguishes the possible outcomes of an extraction attempt.
type ResultKind int

const (
	ResultSuccess ResultKind = iota
	ResultFailed
	ResultTooShort
	ResultLowQuality
	ResultDisabled
)

// Result is the outcome of one extraction attempt.
type Result struct {
	Kind     ResultKind
	Snapshot *TextSnapshot // set only when Kind == ResultSuccess
	Err      string        // set only when Kind == ResultFailed
	Quality  float64       // set when Kind == ResultLowQuality
}

// Config tunes extraction thresholds.
type Config struct {
	MinQualityScore      float64
	CheckpointIntervalMs int64
	MinTextLength        int
	OCREnabled           bool
}

// DefaultConfig matches spec §4.3's defaults.
func DefaultConfig() Config {
	return Config{
		MinQualityScore:      0.3,
		CheckpointIntervalMs: 30_000,
		MinTextLength:        10,
		OCREnabled:           true,
	}
}
