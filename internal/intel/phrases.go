package intel

// actionItemPhrases trigger an action_item event with no assignee.
var actionItemPhrases = []string{
	"can you", "could you", "please", "need to", "should", "will you",
	"action item", "follow up", "let's make sure",
}

// actionItemSpeakerPhrases trigger an action_item event whose assignee is
// the segment's own speaker.
var actionItemSpeakerPhrases = []string{
	"i'll take care of", "i will", "i can do",
}

var decisionPhrases = []string{
	"we decided", "we agreed", "let's go with", "the decision is",
	"we're going to", "we'll do", "that's the plan", "sounds good, let's",
	"approved", "settled on",
}

var commitmentPhrases = []string{
	"i commit", "i promise", "you have my word", "i guarantee",
	"i'll make sure", "count on me", "i'll get it done by",
}

type riskPhrase struct {
	phrase   string
	severity float64
}

var riskPhrases = []riskPhrase{
	{"concern", 0.5},
	{"worried", 0.6},
	{"problem", 0.5},
	{"issue", 0.4},
	{"risk", 0.6},
	{"blocker", 0.7},
	{"blocked", 0.6},
	{"disagree", 0.5},
	{"frustrated", 0.7},
	{"deadline", 0.5},
	{"delayed", 0.6},
	{"not going to make it", 0.8},
	{"pushback", 0.5},
}

var topicShiftPhrases = []string{
	"let's move on to", "moving on", "next topic", "switching gears",
	"let's talk about", "onto the next", "can we discuss",
}

type questionPrompt struct {
	phrase string
	prompt string
}

var questionSuggestionPrompts = []questionPrompt{
	{"i'm not sure", "Can you clarify what you mean?"},
	{"maybe", "What would help you decide?"},
	{"we should probably", "What's the specific timeline?"},
	{"at some point", "When specifically should this happen?"},
	{"someone should", "Who specifically will own this?"},
}
