package snapshot

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"image"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// OCRProvider recognizes text in a captured frame. Implemented by the
// vision_ocr collaborator adapter.
type OCRProvider interface {
	ExtractText(ctx context.Context, img image.Image) (text string, confidence float64, err error)
}

// AccessibilityProvider reads text directly from the focused window's
// accessibility tree. Implemented by the accessibility collaborator
// adapter; trusted reports whether the OS granted accessibility
// permission at all.
type AccessibilityProvider interface {
	ExtractText(ctx context.Context) (text string, trusted bool, err error)
}

type checkpointTracker struct {
	lastCheckpointTS time.Time
	lastEpisodeID    *uuid.UUID
}

// Extractor runs OCR or accessibility extraction and tracks checkpoint
// cadence for one capture stream.
type Extractor struct {
	config        Config
	ocr           OCRProvider
	accessibility AccessibilityProvider

	mu         sync.Mutex
	checkpoint checkpointTracker
}

// New constructs an extractor. Either provider may be nil if that
// extraction path isn't available on the current platform.
func New(config Config, ocr OCRProvider, accessibility AccessibilityProvider) *Extractor {
	return &Extractor{config: config, ocr: ocr, accessibility: accessibility}
}

// Reset clears checkpoint tracking; the engine calls it on meeting start.
func (e *Extractor) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.checkpoint = checkpointTracker{}
}

// ExtractFromImage runs OCR over a frame and validates the result.
func (e *Extractor) ExtractFromImage(ctx context.Context, img image.Image, episodeID, stateID *uuid.UUID, ts time.Time) Result {
	if !e.config.OCREnabled {
		return Result{Kind: ResultDisabled}
	}
	if e.ocr == nil {
		return Result{Kind: ResultFailed, Err: "ocr provider not available on this platform"}
	}

	text, confidence, err := e.ocr.ExtractText(ctx, img)
	if err != nil {
		return Result{Kind: ResultFailed, Err: err.Error()}
	}

	textQuality := scoreQuality(text)
	combined := (textQuality + confidence) / 2.0
	return e.finish(text, combined, SourceOCR, episodeID, stateID, ts)
}

// ExtractFromAccessibility reads text from the accessibility tree and
// validates the result.
func (e *Extractor) ExtractFromAccessibility(ctx context.Context, episodeID, stateID *uuid.UUID, ts time.Time) Result {
	if e.accessibility == nil {
		return Result{Kind: ResultFailed, Err: "accessibility provider not available on this platform"}
	}

	text, trusted, err := e.accessibility.ExtractText(ctx)
	if err != nil {
		return Result{Kind: ResultFailed, Err: err.Error()}
	}
	if !trusted {
		return Result{Kind: ResultFailed, Err: "accessibility permission not granted"}
	}

	return e.finish(text, scoreQuality(text), SourceAccessibility, episodeID, stateID, ts)
}

func (e *Extractor) finish(text string, quality float64, source Source, episodeID, stateID *uuid.UUID, ts time.Time) Result {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < e.config.MinTextLength {
		return Result{Kind: ResultTooShort}
	}
	if quality < e.config.MinQualityScore {
		return Result{Kind: ResultLowQuality, Quality: quality}
	}

	snapshot := e.createSnapshot(trimmed, quality, source, episodeID, stateID, ts)
	return Result{Kind: ResultSuccess, Snapshot: &snapshot}
}

func (e *Extractor) createSnapshot(text string, quality float64, source Source, episodeID, stateID *uuid.UUID, ts time.Time) TextSnapshot {
	sum := sha256.Sum256([]byte(text))
	return TextSnapshot{
		SnapshotID:   uuid.New(),
		EpisodeID:    episodeID,
		StateID:      stateID,
		Timestamp:    ts,
		Text:         text,
		TextHash:     hex.EncodeToString(sum[:]),
		QualityScore: quality,
		Source:       source,
		WordCount:    len(strings.Fields(text)),
	}
}

// ShouldCheckpoint decides whether a fresh snapshot is worth taking: a new
// episode always warrants one; otherwise only once the checkpoint
// interval has elapsed since the last one.
func (e *Extractor) ShouldCheckpoint(episodeID *uuid.UUID, now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.checkpoint.lastEpisodeID == nil {
		return true
	}
	if episodeID == nil || *episodeID != *e.checkpoint.lastEpisodeID {
		return true
	}
	return now.Sub(e.checkpoint.lastCheckpointTS) >= time.Duration(e.config.CheckpointIntervalMs)*time.Millisecond
}

// RecordCheckpoint marks that a checkpoint was just taken.
func (e *Extractor) RecordCheckpoint(episodeID *uuid.UUID, ts time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.checkpoint.lastCheckpointTS = ts
	e.checkpoint.lastEpisodeID = episodeID
}

// scoreQuality scores extracted text on a 0-1 scale, weighting length,
// word density, ASCII ratio, and line structure.
func scoreQuality(text string) float64 {
	words := strings.Fields(text)
	wordCount := len(words)
	charCount := len([]rune(text))

	if charCount == 0 {
		return 0
	}

	lengthScore := min(float64(wordCount), 200) / 200 * 0.3

	wordDensity := min(float64(wordCount)*5/float64(charCount), 1.0)
	wordDensityScore := wordDensity * 0.3

	asciiCount := 0
	for _, r := range text {
		if r <= unicode.MaxASCII {
			asciiCount++
		}
	}
	asciiRatio := float64(asciiCount) / float64(charCount) * 0.2

	lineScore := 0.5
	if strings.Contains(text, "\n") {
		lineScore = 1.0
	}
	lineScore *= 0.2

	return lengthScore + wordDensityScore + asciiRatio + lineScore
}
