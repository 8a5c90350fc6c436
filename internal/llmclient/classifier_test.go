package llmclient

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nofriction/meetings-engine/internal/diffbuilder"
)

type fakeClient struct {
	reply string
	err   error
	calls int
}

func (f *fakeClient) Complete(ctx context.Context, prompt string) (string, error) {
	return f.Chat(ctx, "", []Message{{Role: "user", Content: prompt}})
}

func (f *fakeClient) Chat(ctx context.Context, model string, messages []Message) (string, error) {
	f.calls++
	return f.reply, f.err
}

func TestClassifier_ParsesRefinedClassification(t *testing.T) {
	client := &fakeClient{reply: "```json\n{\"change_type\": \"reworded\", \"confidence\": 0.9, \"reasoning\": \"same meaning, different words\", \"affected_entities\": [\"Q3 plan\"]}\n```"}
	c, err := NewClassifier(client, "gpt-4o", 16)
	require.NoError(t, err)

	result, err := c.Classify(context.Background(), "key1", "old text", "new text", diffbuilder.ChangeContentChanged)
	require.NoError(t, err)
	assert.Equal(t, diffbuilder.ChangeReworded, result.ChangeType)
	assert.Equal(t, 0.9, result.Confidence)
	assert.Equal(t, []string{"Q3 plan"}, result.AffectedEntities)
}

func TestClassifier_FallsBackToHeuristicOnBackendError(t *testing.T) {
	client := &fakeClient{err: errors.New("backend unavailable")}
	c, err := NewClassifier(client, "gpt-4o", 16)
	require.NoError(t, err)

	result, err := c.Classify(context.Background(), "key1", "old", "new", diffbuilder.ChangeContentAdded)
	require.Error(t, err)
	assert.Equal(t, diffbuilder.ChangeContentAdded, result.ChangeType)
}

func TestClassifier_CachesByKey(t *testing.T) {
	client := &fakeClient{reply: `{"change_type": "navigation", "confidence": 0.5, "reasoning": "r", "affected_entities": []}`}
	c, err := NewClassifier(client, "gpt-4o", 16)
	require.NoError(t, err)

	_, err = c.Classify(context.Background(), "same-key", "a", "b", diffbuilder.ChangeContentChanged)
	require.NoError(t, err)
	_, err = c.Classify(context.Background(), "same-key", "a", "b", diffbuilder.ChangeContentChanged)
	require.NoError(t, err)

	assert.Equal(t, 1, client.calls)
}

func TestClassifier_UnknownChangeTypeStringFallsBackToHeuristic(t *testing.T) {
	client := &fakeClient{reply: `{"change_type": "nonsense", "confidence": 0.1, "reasoning": "r"}`}
	c, err := NewClassifier(client, "gpt-4o", 16)
	require.NoError(t, err)

	result, err := c.Classify(context.Background(), "key2", "a", "b", diffbuilder.ChangeScrollOnly)
	require.NoError(t, err)
	assert.Equal(t, diffbuilder.ChangeScrollOnly, result.ChangeType)
}
