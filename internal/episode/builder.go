package episode

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Builder accumulates screen states into document episodes for one
// meeting. Safe for concurrent use.
type Builder struct {
	config Config

	mu          sync.Mutex
	meetingID   uuid.UUID
	hasMeeting  bool
	current     *DocumentEpisode
	sequenceNum int
}

// New constructs a builder with the given config.
func New(config Config) *Builder {
	return &Builder{config: config}
}

// StartMeeting resets accumulator state for a new meeting.
func (b *Builder) StartMeeting(meetingID uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.meetingID = meetingID
	b.hasMeeting = true
	b.current = nil
	b.sequenceNum = 0
}

// EndMeeting finalizes any in-progress episode.
func (b *Builder) EndMeeting() *DocumentEpisode {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.hasMeeting = false
	return b.finalizeCurrentLocked()
}

func (b *Builder) finalizeCurrentLocked() *DocumentEpisode {
	if b.current == nil {
		return nil
	}
	completed := *b.current
	b.current = nil
	return &completed
}

// ProcessState folds one completed screen state into the accumulator.
func (b *Builder) ProcessState(state State) ProcessResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.hasMeeting {
		return ProcessResult{Kind: ResultInactive}
	}

	if b.shouldStartNewLocked(state) {
		completed := b.finalizeCurrentLocked()
		episodeID := b.openNewEpisodeLocked(state)
		return ProcessResult{Kind: ResultNewEpisode, EpisodeID: episodeID, CompletedEpisode: completed}
	}

	b.addStateToCurrentLocked(state)
	return ProcessResult{Kind: ResultExtended, EpisodeID: b.current.EpisodeID}
}

func (b *Builder) shouldStartNewLocked(state State) bool {
	if b.current == nil {
		return true
	}
	if appChanged(b.current.AppName, state.AppName) {
		return true
	}
	if b.config.TitleChangeIsBoundary && titleChanged(b.current.WindowTitle, state.WindowTitle, b.config.TitleSimilarityThreshold) {
		return true
	}
	return b.maxDurationExceededLocked(state)
}

func (b *Builder) maxDurationExceededLocked(state State) bool {
	elapsed := state.EndTS.Sub(b.current.StartTS).Milliseconds()
	return elapsed >= b.config.MaxEpisodeDurationMs
}

func (b *Builder) openNewEpisodeLocked(state State) uuid.UUID {
	episodeID := uuid.New()
	var fingerprint *string
	if state.PHash != "" {
		fp := state.PHash
		fingerprint = &fp
	}
	b.current = &DocumentEpisode{
		EpisodeID:           episodeID,
		MeetingID:           b.meetingID,
		StartTS:             state.StartTS,
		EndTS:               state.EndTS,
		AppName:             state.AppName,
		WindowTitle:         state.WindowTitle,
		DocumentFingerprint: fingerprint,
		StateIDs:            []uuid.UUID{state.StateID},
		StateCount:          1,
	}
	b.sequenceNum++
	return episodeID
}

func (b *Builder) addStateToCurrentLocked(state State) {
	b.current.StateIDs = append(b.current.StateIDs, state.StateID)
	b.current.StateCount++
	b.current.EndTS = state.EndTS
}

// appChanged reports whether the app identity changed between two
// states. A nil on one side and a value on the other always counts as
// changed; two nils never do.
func appChanged(old, current *string) bool {
	if old == nil && current == nil {
		return false
	}
	if old == nil || current == nil {
		return true
	}
	return *old != *current
}

// titleChanged reports whether the window title drifted far enough to
// count as a new document. Missing titles on either side are never
// treated as a boundary by themselves.
func titleChanged(old, current *string, threshold float64) bool {
	if old == nil || current == nil {
		return false
	}
	return titleSimilarity(*old, *current) < threshold
}

// titleSimilarity is a word-set Jaccard similarity between two titles.
func titleSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}

	wordsA := wordSet(a)
	wordsB := wordSet(b)
	if len(wordsA) == 0 && len(wordsB) == 0 {
		return 1.0
	}
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0.0
	}

	intersection := 0
	for w := range wordsA {
		if wordsB[w] {
			intersection++
		}
	}
	union := len(wordsA) + len(wordsB) - intersection
	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]bool {
	words := strings.Fields(s)
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
