// Package state implements the State Builder (spec §4.2): it consumes the
// Dedup Gate's per-frame verdicts and assembles them into ScreenState
// spans — contiguous periods where the screen held "the same" content.
package state

import (
	"image"
	"time"

	"github.com/google/uuid"

	"github.com/nofriction/meetings-engine/internal/dedup"
)

// Type classifies the kind of content a screen state shows.
type Type int

const (
	TypeOther Type = iota
	TypeTextDoc
	TypeBrowser
	TypeSlide
	TypeTerminal
	TypeVideo
)

func (t Type) String() string {
	switch t {
	case TypeTextDoc:
		return "text_doc"
	case TypeBrowser:
		return "browser"
	case TypeSlide:
		return "slide"
	case TypeTerminal:
		return "terminal"
	case TypeVideo:
		return "video"
	default:
		return "other"
	}
}

// Flags records qualitative signals about a state span that downstream
// consumers (snapshot extraction, importance scoring) use as hints.
type Flags struct {
	HighMotion bool
	Blurry     bool
	LowText    bool
	ScrollLike bool
}

// ScreenState is a contiguous span during which the screen was judged
// equivalent frame-to-frame by the dedup gate.
type ScreenState struct {
	StateID      uuid.UUID
	MeetingID    uuid.UUID
	StartTS      time.Time
	EndTS        time.Time
	AppName      *string
	WindowTitle  *string
	PHash        string
	DeltaScore   float64
	KeyframePath *string
	StateType    Type
	Flags        Flags
}

// DurationMs returns the span's length in milliseconds.
func (s ScreenState) DurationMs() int64 {
	return s.EndTS.Sub(s.StartTS).Milliseconds()
}

// Frame is one captured screen frame plus the window context it was taken
// under, as handed to the builder by the capture collaborator.
type Frame struct {
	Image       image.Image
	Timestamp   time.Time
	AppName     *string
	WindowTitle *string
	// KeyframePath, if set, is where the caller already persisted a full
	// resolution copy of this frame on disk.
	KeyframePath *string
}

// ResultKind distinguishes the three outcomes of processing one frame.
type ResultKind int

const (
	// ResultExtended means the frame fell within the current state's
	// span; only the state's end timestamp moved.
	ResultExtended ResultKind = iota
	// ResultNewState means the frame opened a new state, completing the
	// previous one if there was one.
	ResultNewState
	// ResultPassThrough means the builder is disabled; the frame was not
	// accumulated at all.
	ResultPassThrough
)

// ProcessResult is the outcome of ProcessFrame.
type ProcessResult struct {
	Kind ResultKind

	// Set for ResultExtended and ResultNewState.
	StateID uuid.UUID
	// Set for ResultExtended: the current state's new end timestamp.
	NewEndTS time.Time
	// Set for ResultNewState when a prior state existed to close out.
	CompletedState *ScreenState
}

// Config tunes state span boundaries.
type Config struct {
	Dedup              dedup.Config
	MinStateDurationMs int64
	MaxStateDurationMs int64
	Enabled            bool
}

// DefaultConfig matches spec §4.2's defaults.
func DefaultConfig() Config {
	return Config{
		Dedup:              dedup.DefaultConfig(),
		MinStateDurationMs: 500,
		MaxStateDurationMs: 60_000,
		Enabled:            true,
	}
}
