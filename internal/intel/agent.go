package intel

import (
	"fmt"
	"strings"
	"sync"
)

// Agent maintains a rolling transcript window and turns matched phrases
// into structured insight events. Safe for concurrent use.
type Agent struct {
	mu sync.Mutex

	window         []Segment
	state          ConversationState
	insightCounter int
}

// New constructs an agent with an empty window.
func New() *Agent {
	return &Agent{
		state: ConversationState{SpeakerTalkTime: make(map[string]int)},
	}
}

// Reset clears all accumulated state; the engine calls it on meeting start.
func (a *Agent) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.window = nil
	a.state = ConversationState{SpeakerTalkTime: make(map[string]int)}
	a.insightCounter = 0
}

// ProcessSegment folds one transcript segment into the rolling window and
// returns every insight event it triggered, in category order.
func (a *Agent) ProcessSegment(segment Segment) []Event {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.window = append(a.window, segment)
	if len(a.window) > MaxContextWindow {
		a.window = a.window[len(a.window)-MaxContextWindow:]
	}

	if segment.Speaker != nil {
		a.state.SpeakerTalkTime[*segment.Speaker] += len(segment.Text)
	}

	lower := strings.ToLower(segment.Text)

	var events []Event
	for _, detect := range []func(string, Segment) *Event{
		a.detectActionItem,
		a.detectDecision,
		a.detectCommitment,
		a.detectRiskSignal,
		a.detectTopicShift,
		a.detectQuestionSuggestion,
	} {
		if e := detect(lower, segment); e != nil {
			events = append(events, *e)
		}
	}
	return events
}

func (a *Agent) detectActionItem(lower string, segment Segment) *Event {
	for _, phrase := range actionItemPhrases {
		if strings.Contains(lower, phrase) {
			return a.newEvent(KindActionItem, segment)
		}
	}
	for _, phrase := range actionItemSpeakerPhrases {
		if strings.Contains(lower, phrase) {
			e := a.newEvent(KindActionItem, segment)
			e.Assignee = segment.Speaker
			return e
		}
	}
	return nil
}

func (a *Agent) detectDecision(lower string, segment Segment) *Event {
	for _, phrase := range decisionPhrases {
		if strings.Contains(lower, phrase) {
			return a.newEvent(KindDecision, segment)
		}
	}
	return nil
}

func (a *Agent) detectCommitment(lower string, segment Segment) *Event {
	for _, phrase := range commitmentPhrases {
		if strings.Contains(lower, phrase) {
			e := a.newEvent(KindCommitment, segment)
			if phrase == "i'll get it done by" {
				if idx := strings.LastIndex(lower, phrase); idx >= 0 {
					rest := strings.TrimSpace(segment.Text[idx+len(phrase):])
					if rest != "" {
						e.By = &rest
					}
				}
			}
			return e
		}
	}
	return nil
}

func (a *Agent) detectRiskSignal(lower string, segment Segment) *Event {
	for _, rp := range riskPhrases {
		if strings.Contains(lower, rp.phrase) {
			e := a.newEvent(KindRiskSignal, segment)
			e.Severity = rp.severity
			return e
		}
	}
	return nil
}

func (a *Agent) detectTopicShift(lower string, segment Segment) *Event {
	for _, phrase := range topicShiftPhrases {
		if !strings.Contains(lower, phrase) {
			continue
		}
		e := a.newEvent(KindTopicShift, segment)
		e.FromTopic = a.state.CurrentTopic
		e.ToTopic = extractTopic(segment.Text)
		a.state.CurrentTopic = e.ToTopic
		return e
	}
	return nil
}

func (a *Agent) detectQuestionSuggestion(lower string, segment Segment) *Event {
	for _, qp := range questionSuggestionPrompts {
		if strings.Contains(lower, qp.phrase) {
			e := a.newEvent(KindQuestionSuggestion, segment)
			e.Text = qp.prompt
			e.Reason = fmt.Sprintf("Based on: %q", truncate(segment.Text, 50))
			return e
		}
	}
	return nil
}

func (a *Agent) newEvent(kind Kind, segment Segment) *Event {
	a.insightCounter++
	return &Event{
		ID:          fmt.Sprintf("%s_%d", kind.String(), a.insightCounter),
		Kind:        kind,
		Text:        segment.Text,
		TimestampMs: segment.TimestampMs,
	}
}

// extractTopic pulls the new topic out of a topic-shift utterance by
// looking for one of a few common transition markers.
func extractTopic(text string) string {
	lower := strings.ToLower(text)
	for _, marker := range []string{"about ", "to discuss ", "discuss "} {
		idx := strings.Index(lower, marker)
		if idx < 0 {
			continue
		}
		rest := text[idx+len(marker):]
		for i, r := range rest {
			if r == '.' || r == ',' || r == '?' {
				rest = rest[:i]
				break
			}
		}
		return truncate(strings.TrimSpace(rest), 50)
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// RecentContext joins the text of the last n segments in the window,
// most useful for building a catch-up prompt for a newly joined
// participant.
func (a *Agent) RecentContext(n int) string {
	a.mu.Lock()
	defer a.mu.Unlock()

	if n > len(a.window) {
		n = len(a.window)
	}
	recent := a.window[len(a.window)-n:]
	texts := make([]string, len(recent))
	for i, s := range recent {
		texts[i] = s.Text
	}
	return strings.Join(texts, " ")
}

// SpeakerTalkTime returns a snapshot of accumulated character counts per
// speaker.
func (a *Agent) SpeakerTalkTime() map[string]int {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(map[string]int, len(a.state.SpeakerTalkTime))
	for k, v := range a.state.SpeakerTalkTime {
		out[k] = v
	}
	return out
}
