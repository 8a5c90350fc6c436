// Package diffbuilder implements the Diff Builder (spec §4.4): it compares
// consecutive text snapshots within an episode, produces a unified diff,
// and classifies the kind of change that occurred.
package diffbuilder

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ChangeType classifies the semantic nature of a text change between two
// snapshots.
type ChangeType int

const (
	ChangeContentChanged ChangeType = iota // zero value: the catch-all default
	ChangeContentAdded
	ChangeContentRemoved
	ChangeReworded
	ChangeFormatOnly
	ChangeCursorOnly
	ChangeScrollOnly
	ChangeNavigation
	ChangeNewDocument
)

func (c ChangeType) String() string {
	switch c {
	case ChangeContentAdded:
		return "content_added"
	case ChangeContentRemoved:
		return "content_removed"
	case ChangeReworded:
		return "reworded"
	case ChangeFormatOnly:
		return "format_only"
	case ChangeCursorOnly:
		return "cursor_only"
	case ChangeScrollOnly:
		return "scroll_only"
	case ChangeNavigation:
		return "navigation"
	case ChangeNewDocument:
		return "new_document"
	default:
		return "content_changed"
	}
}

// TextDiff is the comparison between two consecutive text snapshots in the
// same episode.
type TextDiff struct {
	PatchID       uuid.UUID
	EpisodeID     uuid.UUID
	FromTextHash  string
	ToTextHash    string
	Timestamp     time.Time
	UnifiedDiff   string
	LinesAdded    int
	LinesRemoved  int
	ChangeType    ChangeType
	ChangeSummary *string

	// Set only when a SemanticClassifier refined the heuristic tag.
	ClassifierConfidence *float64
	ClassifierReasoning  *string
	AffectedEntities     []string
}

// SemanticClassification is the optional LLM refinement of a
// heuristic ChangeType (spec §4.4: "may refine this tag and add
// affected entities"). Confidence and Reasoning are required fields of
// any refinement per spec.
type SemanticClassification struct {
	ChangeType       ChangeType
	Confidence       float64
	Reasoning        string
	AffectedEntities []string
}

// SemanticClassifier optionally refines a heuristic classification via
// an external LLM call (spec §4.4/§6.7). cacheKey identifies the diff
// so implementations may cache by a hash of it, as the spec allows.
// Implementations must enforce their own timeout and return the
// heuristic ChangeType unchanged (with a non-nil error) on failure.
type SemanticClassifier interface {
	Classify(ctx context.Context, cacheKey, from, to string, heuristic ChangeType) (SemanticClassification, error)
}

// Config tunes diff generation.
type Config struct {
	MaxDiffLines      int
	ContextLines      int
	GenerateSummaries bool
}

// DefaultConfig matches spec §4.4's defaults.
func DefaultConfig() Config {
	return Config{
		MaxDiffLines:      500,
		ContextLines:      3,
		GenerateSummaries: true,
	}
}
