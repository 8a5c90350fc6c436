package state

import (
	"sync"

	"github.com/google/uuid"

	"github.com/nofriction/meetings-engine/internal/dedup"
)

// Builder accumulates frames into ScreenState spans for one capture
// stream. Safe for concurrent use; a single builder instance is shared by
// the pipeline's frame-processing goroutine and any status-reporting
// caller.
type Builder struct {
	config Config

	mu              sync.Mutex
	gate            *dedup.Gate
	meetingID       uuid.UUID
	current         *ScreenState
	pendingKeyframe *string
}

// New constructs a builder. Call StartMeeting before feeding it frames.
func New(config Config) *Builder {
	return &Builder{
		config: config,
		gate:   dedup.New(config.Dedup),
	}
}

// StartMeeting resets accumulator state for a new meeting.
func (b *Builder) StartMeeting(meetingID uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.meetingID = meetingID
	b.current = nil
	b.pendingKeyframe = nil
	b.gate.Reset()
}

// EndMeeting finalizes and returns any in-progress state, leaving the
// builder with no current state.
func (b *Builder) EndMeeting() *ScreenState {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.finalizeCurrentLocked()
}

func (b *Builder) finalizeCurrentLocked() *ScreenState {
	if b.current == nil {
		return nil
	}
	completed := *b.current
	b.current = nil
	return &completed
}

// ProcessFrame folds one frame into the accumulator, returning whether it
// extended the current state, opened a new one, or (when the builder is
// disabled) passed through untouched.
func (b *Builder) ProcessFrame(frame Frame) ProcessResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.config.Enabled {
		return ProcessResult{Kind: ResultPassThrough}
	}

	dedupResult := b.gate.Check(frame.Image)

	if b.current == nil {
		stateID := b.openNewStateLocked(frame, dedupResult)
		return ProcessResult{Kind: ResultNewState, StateID: stateID}
	}

	currentDuration := frame.Timestamp.Sub(b.current.StartTS).Milliseconds()
	forceBoundary := currentDuration >= b.config.MaxStateDurationMs
	suppressBoundary := currentDuration < b.config.MinStateDurationMs

	var isBoundary bool
	switch {
	case forceBoundary:
		isBoundary = true
	case suppressBoundary:
		isBoundary = false
	default:
		isBoundary = !dedupResult.IsDuplicate
	}

	if isBoundary {
		completed := b.finalizeCurrentLocked()
		stateID := b.openNewStateLocked(frame, dedupResult)
		return ProcessResult{Kind: ResultNewState, StateID: stateID, CompletedState: completed}
	}

	b.current.EndTS = frame.Timestamp
	if dedupResult.Reason == dedup.ReasonMotionNoise {
		b.current.Flags.HighMotion = true
	}
	return ProcessResult{Kind: ResultExtended, StateID: b.current.StateID, NewEndTS: b.current.EndTS}
}

func (b *Builder) openNewStateLocked(frame Frame, dedupResult dedup.Result) uuid.UUID {
	stateID := uuid.New()
	b.current = &ScreenState{
		StateID:     stateID,
		MeetingID:   b.meetingID,
		StartTS:     frame.Timestamp,
		EndTS:       frame.Timestamp,
		AppName:     frame.AppName,
		WindowTitle: frame.WindowTitle,
		PHash:       dedupResult.Hash.ToBase64(),
		DeltaScore:  dedupResult.DeltaScore,
		StateType:   TypeOther,
	}
	if frame.KeyframePath != nil {
		b.pendingKeyframe = frame.KeyframePath
	}
	return stateID
}

// TakePendingKeyframe returns and clears the keyframe path recorded when
// the current state was opened, if any. The pipeline uses this to attach
// a persisted thumbnail to the state record once it's durably written.
func (b *Builder) TakePendingKeyframe() *string {
	b.mu.Lock()
	defer b.mu.Unlock()

	kf := b.pendingKeyframe
	b.pendingKeyframe = nil
	return kf
}

// CurrentStateID returns the in-progress state's ID, if any.
func (b *Builder) CurrentStateID() (uuid.UUID, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current == nil {
		return uuid.UUID{}, false
	}
	return b.current.StateID, true
}

