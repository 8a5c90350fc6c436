// Package timeline implements the Timeline Builder (spec §4.6): it turns
// episodes and diffs into a human-readable event timeline, plus a running
// set of topic clusters inferred from app/window context.
package timeline

import (
	"time"

	"github.com/google/uuid"
)

// EventType classifies one timeline entry.
type EventType int

const (
	EventDocumentOpened EventType = iota
	EventDocumentClosed
	EventAppSwitch
	EventContentEdit
	EventNavigation
	EventMeetingStart
	EventMeetingEnd
	EventTopicChange
	EventActivityGap
)

func (e EventType) String() string {
	switch e {
	case EventDocumentOpened:
		return "document_opened"
	case EventDocumentClosed:
		return "document_closed"
	case EventAppSwitch:
		return "app_switch"
	case EventContentEdit:
		return "content_edit"
	case EventNavigation:
		return "navigation"
	case EventMeetingStart:
		return "meeting_start"
	case EventMeetingEnd:
		return "meeting_end"
	case EventTopicChange:
		return "topic_change"
	default:
		return "activity_gap"
	}
}

// Label is the human-facing name for the event type.
func (e EventType) Label() string {
	switch e {
	case EventDocumentOpened:
		return "Document Opened"
	case EventDocumentClosed:
		return "Document Closed"
	case EventAppSwitch:
		return "Switched App"
	case EventContentEdit:
		return "Content Edit"
	case EventNavigation:
		return "Navigated"
	case EventMeetingStart:
		return "Meeting Started"
	case EventMeetingEnd:
		return "Meeting Ended"
	case EventTopicChange:
		return "Topic Changed"
	default:
		return "Activity Gap"
	}
}

// Event is one entry on the meeting's activity timeline.
type Event struct {
	EventID     uuid.UUID
	MeetingID   uuid.UUID
	Timestamp   time.Time
	EventType   EventType
	Title       string
	Description *string
	AppName     *string
	WindowTitle *string
	DurationMs  *int64
	EpisodeID   *uuid.UUID
	StateID     *uuid.UUID
	Topic       *string
	Importance  float64
}

func (e *Event) WithDescription(d string) *Event { e.Description = &d; return e }
func (e *Event) WithApp(a string) *Event          { e.AppName = &a; return e }
func (e *Event) WithWindow(w string) *Event       { e.WindowTitle = &w; return e }
func (e *Event) WithDuration(ms int64) *Event     { e.DurationMs = &ms; return e }
func (e *Event) WithEpisode(id uuid.UUID) *Event  { e.EpisodeID = &id; return e }
func (e *Event) WithState(id uuid.UUID) *Event    { e.StateID = &id; return e }
func (e *Event) WithTopic(t string) *Event        { e.Topic = &t; return e }

// WithImportance clamps to [0,1] before storing.
func (e *Event) WithImportance(v float64) *Event {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	e.Importance = v
	return e
}

// TopicCluster groups episodes judged to share a topic.
type TopicCluster struct {
	TopicID         string
	Name            string
	Description     *string
	StartTS         time.Time
	EndTS           *time.Time
	EpisodeIDs      []uuid.UUID
	EventCount      int
	TotalDurationMs int64
}

// Episode is the subset of episode.DocumentEpisode the timeline builder
// needs, kept narrow to avoid an import cycle with internal/episode.
type Episode struct {
	EpisodeID   uuid.UUID
	StartTS     time.Time
	EndTS       time.Time
	AppName     *string
	WindowTitle *string
	StateCount  int
}

// DurationMs returns the episode's length in milliseconds.
func (e Episode) DurationMs() int64 {
	return e.EndTS.Sub(e.StartTS).Milliseconds()
}

// Config tunes timeline event generation.
type Config struct {
	MinEpisodeDurationMs  int64
	SegmentGapThresholdMs int64
	IncludeFileEvents     bool
	IncludeAppSwitches    bool
	IncludeContentChanges bool
}

// DefaultConfig matches spec §4.6's defaults.
func DefaultConfig() Config {
	return Config{
		MinEpisodeDurationMs:  5_000,
		SegmentGapThresholdMs: 60_000,
		IncludeFileEvents:     true,
		IncludeAppSwitches:    true,
		IncludeContentChanges: true,
	}
}
