package timeline

import (
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nofriction/meetings-engine/internal/diffbuilder"
)

var topicKeywords = []struct {
	keywords []string
	topic    string
}{
	{[]string{"Code", "IDE", ".rs", ".ts", ".py", ".js"}, "Coding"},
	{[]string{"Notion", "Confluence", "README", "Docs"}, "Documentation"},
	{[]string{"Slack", "Teams", "Discord", "Messages"}, "Communication"},
	{[]string{"Chrome", "Safari", "Firefox", "Arc"}, "Research"},
	{[]string{"Terminal", "iTerm", "Warp"}, "Terminal"},
}

var codeExtensions = []string{".rs", ".ts", ".tsx", ".py", ".js", ".jsx", ".go", ".java", ".cpp", ".c", ".rb"}

// Builder accumulates episodes and diffs into a timeline for one meeting.
// Safe for concurrent use.
type Builder struct {
	config Config

	mu          sync.Mutex
	meetingID   uuid.UUID
	events      []Event
	topics      map[string]*TopicCluster
	lastApp     *string
	lastEventTS *time.Time
}

// New constructs a builder with the given config.
func New(config Config) *Builder {
	return &Builder{config: config, topics: make(map[string]*TopicCluster)}
}

// StartMeeting resets accumulator state and records the meeting-start
// event.
func (b *Builder) StartMeeting(meetingID uuid.UUID, ts time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.meetingID = meetingID
	b.events = nil
	b.topics = make(map[string]*TopicCluster)
	b.lastApp = nil
	b.lastEventTS = nil

	event := b.newEventLocked(ts, EventMeetingStart, "Meeting started")
	event.WithImportance(1.0)
	b.events = append(b.events, *event)
}

// EndMeeting records the meeting-end event and returns every event
// accumulated during the meeting.
func (b *Builder) EndMeeting(ts time.Time) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	event := b.newEventLocked(ts, EventMeetingEnd, "Meeting ended")
	event.WithImportance(1.0)
	b.events = append(b.events, *event)

	out := make([]Event, len(b.events))
	copy(out, b.events)
	return out
}

// ProcessEpisode folds a completed episode into the timeline: activity
// gaps, app switches, and a document-opened event with inferred topic.
func (b *Builder) ProcessEpisode(ep Episode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ep.DurationMs() < b.config.MinEpisodeDurationMs {
		return
	}

	if b.lastEventTS != nil {
		gap := ep.StartTS.Sub(*b.lastEventTS).Milliseconds()
		if gap >= b.config.SegmentGapThresholdMs {
			event := b.newEventLocked(ep.StartTS, EventActivityGap, "Activity gap")
			event.WithImportance(0.3).WithDuration(gap)
			b.appendEventLocked(event)
		}
	}

	if b.config.IncludeAppSwitches && appChanged(b.lastApp, ep.AppName) {
		event := b.newEventLocked(ep.StartTS, EventAppSwitch, "Switched app")
		event.WithImportance(0.6)
		if ep.AppName != nil {
			event.WithApp(*ep.AppName)
		}
		b.appendEventLocked(event)
	}
	b.lastApp = ep.AppName

	topic := inferTopic(ep.AppName, ep.WindowTitle)
	importance := calculateImportance(ep)

	title := "Opened document"
	if ep.WindowTitle != nil {
		title = extractDocumentName(*ep.WindowTitle)
	}

	event := b.newEventLocked(ep.StartTS, EventDocumentOpened, title)
	event.WithImportance(importance).WithEpisode(ep.EpisodeID).WithDuration(ep.DurationMs())
	if ep.AppName != nil {
		event.WithApp(*ep.AppName)
	}
	if ep.WindowTitle != nil {
		event.WithWindow(*ep.WindowTitle)
	}
	if topic != "" {
		event.WithTopic(topic)
		b.updateTopicClusterLocked(topic, ep)
	}
	b.appendEventLocked(event)
}

// ProcessChange folds a text diff into the timeline as a content-edit or
// navigation event.
func (b *Builder) ProcessChange(changeType diffbuilder.ChangeType, linesAdded, linesRemoved int, episodeID uuid.UUID, ts time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.config.IncludeContentChanges {
		return
	}
	if linesAdded == 0 && linesRemoved == 0 {
		return
	}

	eventType, title, importance := classifyChangeEvent(changeType, linesAdded, linesRemoved)
	event := b.newEventLocked(ts, eventType, title)
	event.WithImportance(importance).WithEpisode(episodeID)
	b.appendEventLocked(event)
}

func (b *Builder) appendEventLocked(event *Event) {
	b.events = append(b.events, *event)
	ts := event.Timestamp
	b.lastEventTS = &ts
}

func (b *Builder) newEventLocked(ts time.Time, eventType EventType, title string) *Event {
	return &Event{
		EventID:   uuid.New(),
		MeetingID: b.meetingID,
		Timestamp: ts,
		EventType: eventType,
		Title:     title,
	}
}

func classifyChangeEvent(changeType diffbuilder.ChangeType, added, removed int) (EventType, string, float64) {
	switch changeType {
	case diffbuilder.ChangeContentAdded:
		return EventContentEdit, formatLineCount("Added", added), 0.7
	case diffbuilder.ChangeContentRemoved:
		return EventContentEdit, formatLineCount("Removed", removed), 0.6
	case diffbuilder.ChangeContentChanged:
		return EventContentEdit, formatAddRemove(added, removed), 0.5
	case diffbuilder.ChangeScrollOnly, diffbuilder.ChangeCursorOnly:
		return EventNavigation, "Navigated", 0.2
	case diffbuilder.ChangeNewDocument:
		return EventDocumentOpened, "Opened document", 0.8
	default:
		return EventContentEdit, "Made changes", 0.4
	}
}

func formatLineCount(verb string, n int) string {
	if n == 1 {
		return verb + " 1 line"
	}
	return verb + " " + strconv.Itoa(n) + " lines"
}

func formatAddRemove(added, removed int) string {
	return "+" + strconv.Itoa(added) + " -" + strconv.Itoa(removed) + " lines"
}

func appChanged(old, current *string) bool {
	if old == nil && current == nil {
		return false
	}
	if old == nil || current == nil {
		return true
	}
	return *old != *current
}

// extractDocumentName pulls the most specific half out of a
// "document - application" style window title.
func extractDocumentName(title string) string {
	parts := strings.SplitN(title, " - ", 2)
	if len(parts) != 2 {
		return title
	}
	left, right := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	if strings.Contains(left, ".") {
		return left
	}
	if strings.Contains(right, ".") {
		return right
	}
	if len(left) <= len(right) {
		return left
	}
	return right
}

func inferTopic(appName, windowTitle *string) string {
	haystack := ""
	if appName != nil {
		haystack += *appName + " "
	}
	if windowTitle != nil {
		haystack += *windowTitle
	}
	if haystack == "" {
		return ""
	}

	for _, entry := range topicKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(haystack, kw) {
				return entry.topic
			}
		}
	}
	return ""
}

func calculateImportance(ep Episode) float64 {
	importance := 0.5

	durationMin := float64(ep.DurationMs()) / 60_000.0
	importance += min(durationMin/10.0, 0.3)

	if ep.StateCount > 5 {
		importance += 0.1
	}

	if ep.WindowTitle != nil && hasCodeExtension(*ep.WindowTitle) {
		importance += 0.1
	}

	return min(importance, 1.0)
}

func hasCodeExtension(title string) bool {
	ext := path.Ext(title)
	for _, codeExt := range codeExtensions {
		if ext == codeExt {
			return true
		}
	}
	return false
}

func (b *Builder) updateTopicClusterLocked(topic string, ep Episode) {
	cluster, ok := b.topics[topic]
	if !ok {
		cluster = &TopicCluster{
			TopicID: uuid.New().String(),
			Name:    topic,
			StartTS: ep.StartTS,
		}
		b.topics[topic] = cluster
	}
	endTS := ep.EndTS
	cluster.EndTS = &endTS
	cluster.EpisodeIDs = append(cluster.EpisodeIDs, ep.EpisodeID)
	cluster.EventCount++
	cluster.TotalDurationMs += ep.DurationMs()
}

// Events returns a snapshot of every event recorded so far, in the order
// recorded. Callers use this to discover newly appended events since
// their last read (e.g. to fan them out to persistence and the UI).
func (b *Builder) Events() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Event, len(b.events))
	copy(out, b.events)
	return out
}

// Topics returns a snapshot of the current topic clusters.
func (b *Builder) Topics() []TopicCluster {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]TopicCluster, 0, len(b.topics))
	for _, c := range b.topics {
		out = append(out, *c)
	}
	return out
}

