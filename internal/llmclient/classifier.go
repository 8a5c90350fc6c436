package llmclient

import (
	"context"
	"encoding/json"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/nofriction/meetings-engine/internal/diffbuilder"
)

// Classifier implements diffbuilder.SemanticClassifier by asking the
// LLM to refine a heuristic ChangeType and name the entities it
// affected (spec §4.4: "may refine this tag and add affected
// entities... must include a confidence and reasoning"). Results are
// cached by diff hash, since the spec explicitly allows this.
type Classifier struct {
	client Client
	model  string
	cache  *lru.Cache[string, diffbuilder.SemanticClassification]
}

// NewClassifier wraps client for diff classification refinement.
// cacheSize bounds the number of distinct diffs remembered.
func NewClassifier(client Client, model string, cacheSize int) (*Classifier, error) {
	cache, err := lru.New[string, diffbuilder.SemanticClassification](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("llmclient: create classifier cache: %w", err)
	}
	return &Classifier{client: client, model: model, cache: cache}, nil
}

type classifyResponse struct {
	ChangeType       string   `json:"change_type"`
	Confidence       float64  `json:"confidence"`
	Reasoning        string   `json:"reasoning"`
	AffectedEntities []string `json:"affected_entities"`
}

// Classify implements diffbuilder.SemanticClassifier. cacheKey should
// be a hash of the diff (e.g. FromTextHash+ToTextHash); on any backend
// error the heuristic classification is returned unchanged, so callers
// never have to special-case a failed refinement.
func (c *Classifier) Classify(ctx context.Context, cacheKey, from, to string, heuristic diffbuilder.ChangeType) (diffbuilder.SemanticClassification, error) {
	fallback := diffbuilder.SemanticClassification{ChangeType: heuristic, Confidence: 0, Reasoning: ""}

	if cached, ok := c.cache.Get(cacheKey); ok {
		return cached, nil
	}

	ctx, cancel := context.WithTimeout(ctx, ClassifierTimeout)
	defer cancel()

	prompt := buildClassifyPrompt(from, to, heuristic.String())
	reply, err := c.client.Chat(ctx, c.model, []Message{{Role: "user", Content: prompt}})
	if err != nil {
		return fallback, fmt.Errorf("llmclient: classify: %w", err)
	}

	jsonStr, err := extractJSON(reply)
	if err != nil {
		return fallback, fmt.Errorf("llmclient: classify: %w", err)
	}

	var parsed classifyResponse
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		return fallback, fmt.Errorf("llmclient: classify: parse response: %w", err)
	}

	result := diffbuilder.SemanticClassification{
		ChangeType:       changeTypeFromString(parsed.ChangeType, heuristic),
		Confidence:       parsed.Confidence,
		Reasoning:        parsed.Reasoning,
		AffectedEntities: parsed.AffectedEntities,
	}
	c.cache.Add(cacheKey, result)
	return result, nil
}

func buildClassifyPrompt(from, to, heuristicTag string) string {
	return fmt.Sprintf(`A text-editing diff was classified heuristically as %q.

BEFORE:
%s

AFTER:
%s

Refine the classification if the heuristic tag is wrong, and name any
named entities (people, projects, documents) the change affects.

Return ONLY JSON in this exact shape:
{
  "change_type": "one of: content_changed, content_added, content_removed, reworded, format_only, cursor_only, scroll_only, navigation, new_document",
  "confidence": 0.0,
  "reasoning": "one short sentence",
  "affected_entities": []
}`, heuristicTag, from, to)
}

func changeTypeFromString(s string, fallback diffbuilder.ChangeType) diffbuilder.ChangeType {
	switch s {
	case "content_changed":
		return diffbuilder.ChangeContentChanged
	case "content_added":
		return diffbuilder.ChangeContentAdded
	case "content_removed":
		return diffbuilder.ChangeContentRemoved
	case "reworded":
		return diffbuilder.ChangeReworded
	case "format_only":
		return diffbuilder.ChangeFormatOnly
	case "cursor_only":
		return diffbuilder.ChangeCursorOnly
	case "scroll_only":
		return diffbuilder.ChangeScrollOnly
	case "navigation":
		return diffbuilder.ChangeNavigation
	case "new_document":
		return diffbuilder.ChangeNewDocument
	default:
		return fallback
	}
}
