package diffbuilder

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClassifier struct {
	result SemanticClassification
	err    error
	calls  int
}

func (f *fakeClassifier) Classify(ctx context.Context, cacheKey, from, to string, heuristic ChangeType) (SemanticClassification, error) {
	f.calls++
	if f.err != nil {
		return SemanticClassification{ChangeType: heuristic}, f.err
	}
	return f.result, nil
}

func TestComputeDiff_IdenticalTextIsCursorOnly(t *testing.T) {
	b := New(DefaultConfig())
	diff := b.ComputeDiff("Line 1\nLine 2", "Line 1\nLine 2", uuid.New(), time.Now())

	assert.Equal(t, ChangeCursorOnly, diff.ChangeType)
	assert.Equal(t, 0, diff.LinesAdded)
	assert.Equal(t, 0, diff.LinesRemoved)
	assert.Equal(t, diff.FromTextHash, diff.ToTextHash)
}

func TestComputeDiff_AppendedLinesAreContentAdded(t *testing.T) {
	b := New(DefaultConfig())
	diff := b.ComputeDiff("Line 1", "Line 1\nLine 2\nLine 3", uuid.New(), time.Now())

	assert.Equal(t, ChangeContentAdded, diff.ChangeType)
	assert.Equal(t, 2, diff.LinesAdded)
	assert.Equal(t, 0, diff.LinesRemoved)
}

func TestComputeDiff_EmptyFromIsNewDocument(t *testing.T) {
	b := New(DefaultConfig())
	diff := b.ComputeDiff("", "First line of a fresh document", uuid.New(), time.Now())

	assert.Equal(t, ChangeNewDocument, diff.ChangeType)
}

func TestComputeDiff_EmptyToIsContentRemoved(t *testing.T) {
	b := New(DefaultConfig())
	diff := b.ComputeDiff("Some text that existed", "", uuid.New(), time.Now())

	assert.Equal(t, ChangeContentRemoved, diff.ChangeType)
}

// Reformatting keeps the word set identical, so the scroll check, which
// runs before the format-only check, claims the change first.
func TestComputeDiff_ReformattedTextIsScrollOnly(t *testing.T) {
	b := New(DefaultConfig())
	diff := b.ComputeDiff("hello   world\nfoo", "hello world foo", uuid.New(), time.Now())

	assert.Equal(t, ChangeScrollOnly, diff.ChangeType)
}

func TestComputeDiff_ScrollDetection(t *testing.T) {
	b := New(DefaultConfig())
	words := make([]string, 40)
	for i := range words {
		words[i] = "w" + string(rune('a'+(i%26))) + string(rune('a'+(i/26)))
	}
	from := joinWithIndex(words, 0, "alpha")
	to := joinWithIndex(words, 0, "beta")

	diff := b.ComputeDiff(from, to, uuid.New(), time.Now())
	assert.Equal(t, ChangeScrollOnly, diff.ChangeType)
}

func joinWithIndex(words []string, idx int, replacement string) string {
	cp := append([]string(nil), words...)
	cp[idx] = replacement
	out := ""
	for i, w := range cp {
		if i > 0 {
			out += " "
		}
		out += w
	}
	return out
}

func TestComputeDiff_MixedChangeIsContentChanged(t *testing.T) {
	b := New(DefaultConfig())
	diff := b.ComputeDiff("Line 1\nLine 2\nLine 3", "Line 1\nLine X\nLine 3\nLine 4", uuid.New(), time.Now())

	assert.Equal(t, ChangeContentChanged, diff.ChangeType)
	assert.Greater(t, diff.LinesAdded, 0)
	assert.Greater(t, diff.LinesRemoved, 0)
}

func TestComputeDiff_RespectsMaxDiffLines(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxDiffLines = 2
	b := New(cfg)
	diff := b.ComputeDiff("a", "a\nb\nc\nd\ne", uuid.New(), time.Now())

	lines := 0
	for _, r := range diff.UnifiedDiff {
		if r == '\n' {
			lines++
		}
	}
	assert.LessOrEqual(t, lines+1, cfg.MaxDiffLines)
}

func TestRefine_AppliesClassifierResult(t *testing.T) {
	classifier := &fakeClassifier{result: SemanticClassification{
		ChangeType:       ChangeReworded,
		Confidence:       0.8,
		Reasoning:        "paraphrased",
		AffectedEntities: []string{"budget"},
	}}
	b := New(DefaultConfig()).WithClassifier(classifier)
	diff := b.ComputeDiff("We will ship it", "It will be shipped", uuid.New(), time.Now())

	b.Refine(context.Background(), &diff, "We will ship it", "It will be shipped")

	assert.Equal(t, ChangeReworded, diff.ChangeType)
	require.NotNil(t, diff.ClassifierConfidence)
	assert.Equal(t, 0.8, *diff.ClassifierConfidence)
	require.NotNil(t, diff.ClassifierReasoning)
	assert.Equal(t, "paraphrased", *diff.ClassifierReasoning)
	assert.Equal(t, []string{"budget"}, diff.AffectedEntities)
}

func TestRefine_NoClassifierIsNoop(t *testing.T) {
	b := New(DefaultConfig())
	diff := b.ComputeDiff("a", "a\nb", uuid.New(), time.Now())
	original := diff.ChangeType

	b.Refine(context.Background(), &diff, "a", "a\nb")

	assert.Equal(t, original, diff.ChangeType)
	assert.Nil(t, diff.ClassifierConfidence)
}

func TestRefine_ClassifierErrorKeepsHeuristicTag(t *testing.T) {
	classifier := &fakeClassifier{err: assert.AnError}
	b := New(DefaultConfig()).WithClassifier(classifier)
	diff := b.ComputeDiff("a", "a\nb", uuid.New(), time.Now())
	original := diff.ChangeType

	b.Refine(context.Background(), &diff, "a", "a\nb")

	assert.Equal(t, original, diff.ChangeType)
	assert.Nil(t, diff.ClassifierConfidence)
}

func TestRefine_CursorOnlyDiffSkipsClassifier(t *testing.T) {
	classifier := &fakeClassifier{}
	b := New(DefaultConfig()).WithClassifier(classifier)
	diff := b.ComputeDiff("same", "same", uuid.New(), time.Now())

	b.Refine(context.Background(), &diff, "same", "same")

	assert.Equal(t, 0, classifier.calls)
}
