// Package episode implements the Episode Builder (spec §4.5): it groups
// ScreenState spans into DocumentEpisode spans — contiguous work on "the
// same document" across an app/title-stable stretch of screen states.
package episode

import (
	"time"

	"github.com/google/uuid"
)

// DocumentEpisode is a contiguous run of screen states judged to belong
// to the same document.
type DocumentEpisode struct {
	EpisodeID           uuid.UUID
	MeetingID           uuid.UUID
	StartTS             time.Time
	EndTS               time.Time
	AppName             *string
	WindowTitle         *string
	DocumentFingerprint *string
	StateIDs            []uuid.UUID
	StateCount          int
}

// DurationMs returns the episode's length in milliseconds.
func (e DocumentEpisode) DurationMs() int64 {
	return e.EndTS.Sub(e.StartTS).Milliseconds()
}

// ResultKind distinguishes the outcomes of processing one state.
type ResultKind int

const (
	// ResultExtended means the state was folded into the current episode.
	ResultExtended ResultKind = iota
	// ResultNewEpisode means a new episode was opened, completing the
	// previous one if one existed.
	ResultNewEpisode
	// ResultInactive means the builder has no active meeting.
	ResultInactive
)

// ProcessResult is the outcome of ProcessState.
type ProcessResult struct {
	Kind ResultKind

	// Set for ResultExtended and ResultNewEpisode.
	EpisodeID uuid.UUID
	// Set for ResultNewEpisode when a prior episode existed to close out.
	CompletedEpisode *DocumentEpisode
}

// State is the subset of a ScreenState the episode builder needs; kept
// narrow so this package doesn't import internal/state just for a few
// fields.
type State struct {
	StateID     uuid.UUID
	StartTS     time.Time
	EndTS       time.Time
	AppName     *string
	WindowTitle *string
	PHash       string
}

// Config tunes episode boundary detection.
type Config struct {
	MaxEpisodeDurationMs     int64
	TitleChangeIsBoundary    bool
	TitleSimilarityThreshold float64
}

// DefaultConfig matches spec §4.5's defaults.
func DefaultConfig() Config {
	return Config{
		MaxEpisodeDurationMs:     300_000,
		TitleChangeIsBoundary:    true,
		TitleSimilarityThreshold: 0.8,
	}
}
