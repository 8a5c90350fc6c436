package intel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgent_ActionItemDetection(t *testing.T) {
	a := New()
	events := a.ProcessSegment(Segment{Text: "Can you send the report by Friday?", TimestampMs: 1000})

	require.Len(t, events, 1)
	assert.Equal(t, KindActionItem, events[0].Kind)
	assert.Nil(t, events[0].Assignee)
}

func TestAgent_ActionItemWithAssignee(t *testing.T) {
	a := New()
	speaker := "alice"
	events := a.ProcessSegment(Segment{Text: "I'll take care of the deployment.", Speaker: &speaker, TimestampMs: 2000})

	require.Len(t, events, 1)
	require.NotNil(t, events[0].Assignee)
	assert.Equal(t, "alice", *events[0].Assignee)
}

func TestAgent_DecisionDetection(t *testing.T) {
	a := New()
	events := a.ProcessSegment(Segment{Text: "We decided to ship on Tuesday.", TimestampMs: 3000})

	require.Len(t, events, 1)
	assert.Equal(t, KindDecision, events[0].Kind)
}

func TestAgent_RiskSignalSeverity(t *testing.T) {
	a := New()
	events := a.ProcessSegment(Segment{Text: "I'm worried this is going to be a blocker for us.", TimestampMs: 4000})

	require.Len(t, events, 1)
	assert.Equal(t, KindRiskSignal, events[0].Kind)
	assert.Greater(t, events[0].Severity, 0.0)
}

func TestAgent_TopicShiftExtractsNewTopic(t *testing.T) {
	a := New()
	events := a.ProcessSegment(Segment{Text: "Let's move on to discuss the budget for next quarter.", TimestampMs: 5000})

	require.Len(t, events, 1)
	assert.Equal(t, KindTopicShift, events[0].Kind)
	assert.NotEmpty(t, events[0].ToTopic)
}

func TestAgent_QuestionSuggestionMapsToPrompt(t *testing.T) {
	a := New()
	events := a.ProcessSegment(Segment{Text: "Maybe we can revisit this later.", TimestampMs: 6000})

	require.Len(t, events, 1)
	assert.Equal(t, KindQuestionSuggestion, events[0].Kind)
	assert.Equal(t, "What would help you decide?", events[0].Text)
}

func TestAgent_NoMatchProducesNoEvents(t *testing.T) {
	a := New()
	events := a.ProcessSegment(Segment{Text: "The weather is nice today.", TimestampMs: 7000})

	assert.Empty(t, events)
}

func TestAgent_MultipleCategoriesCanFireOnOneSegment(t *testing.T) {
	a := New()
	events := a.ProcessSegment(Segment{Text: "Can you help? I'm worried we decided too fast.", TimestampMs: 8000})

	kinds := map[Kind]bool{}
	for _, e := range events {
		kinds[e.Kind] = true
	}
	assert.True(t, kinds[KindActionItem])
	assert.True(t, kinds[KindRiskSignal])
	assert.True(t, kinds[KindDecision])
}

func TestAgent_WindowIsBoundedAt50(t *testing.T) {
	a := New()
	for i := 0; i < 60; i++ {
		a.ProcessSegment(Segment{Text: "filler segment text", TimestampMs: int64(i)})
	}
	assert.Len(t, a.window, MaxContextWindow)
}

func TestAgent_SpeakerTalkTimeAccumulates(t *testing.T) {
	a := New()
	alice := "alice"
	a.ProcessSegment(Segment{Text: "hello there", Speaker: &alice, TimestampMs: 1})
	a.ProcessSegment(Segment{Text: "more words here", Speaker: &alice, TimestampMs: 2})

	talk := a.SpeakerTalkTime()
	assert.Equal(t, len("hello there")+len("more words here"), talk["alice"])
}

func TestAgent_ResetClearsState(t *testing.T) {
	a := New()
	a.ProcessSegment(Segment{Text: "We decided to go with plan A.", TimestampMs: 1})
	a.Reset()

	assert.Empty(t, a.window)
	assert.Equal(t, 0, a.insightCounter)
}

func TestAgent_RecentContextJoinsLastNSegments(t *testing.T) {
	a := New()
	a.ProcessSegment(Segment{Text: "first", TimestampMs: 1})
	a.ProcessSegment(Segment{Text: "second", TimestampMs: 2})
	a.ProcessSegment(Segment{Text: "third", TimestampMs: 3})

	assert.Equal(t, "second third", a.RecentContext(2))
}
