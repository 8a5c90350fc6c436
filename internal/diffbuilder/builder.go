package diffbuilder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Builder computes diffs between consecutive text snapshots. Stateless
// aside from the optional classifier, so a single instance is shared
// freely across goroutines.
type Builder struct {
	config     Config
	classifier SemanticClassifier
}

// New constructs a builder with the given config and no semantic
// classifier; ComputeDiff then relies solely on the heuristic tag.
func New(config Config) *Builder {
	return &Builder{config: config}
}

// WithClassifier attaches an optional LLM-backed classifier (spec
// §4.4) that Refine will consult. Returns b for chaining.
func (b *Builder) WithClassifier(classifier SemanticClassifier) *Builder {
	b.classifier = classifier
	return b
}

// ComputeDiff compares from -> to, producing a TextDiff. episodeID ties the
// diff back to the episode it occurred within.
func (b *Builder) ComputeDiff(from, to string, episodeID uuid.UUID, ts time.Time) TextDiff {
	fromHash := hashText(from)
	toHash := hashText(to)

	diff := TextDiff{
		PatchID:      uuid.New(),
		EpisodeID:    episodeID,
		FromTextHash: fromHash,
		ToTextHash:   toHash,
		Timestamp:    ts,
	}

	if fromHash == toHash {
		diff.ChangeType = ChangeCursorOnly
		diff.ChangeSummary = summaryFor(ChangeCursorOnly, 0, 0)
		return diff
	}

	fromLines := splitLines(from)
	toLines := splitLines(to)

	unified, added, removed := b.generateUnifiedDiff(fromLines, toLines)
	diff.UnifiedDiff = unified
	diff.LinesAdded = added
	diff.LinesRemoved = removed
	diff.ChangeType = classifyChange(from, to, added, removed)
	if b.config.GenerateSummaries {
		diff.ChangeSummary = summaryFor(diff.ChangeType, added, removed)
	}
	return diff
}

// Refine asks the attached classifier (if any) to refine diff's
// heuristic ChangeType in place. A no-op when no classifier is
// attached or a cursor-only diff was produced (nothing to refine). Any
// classifier error is swallowed: the heuristic tag stands, matching
// spec §7's "degrades gracefully on error".
func (b *Builder) Refine(ctx context.Context, diff *TextDiff, from, to string) {
	if b.classifier == nil || diff.ChangeType == ChangeCursorOnly {
		return
	}

	cacheKey := diff.FromTextHash + diff.ToTextHash
	result, err := b.classifier.Classify(ctx, cacheKey, from, to, diff.ChangeType)
	if err != nil {
		return
	}

	diff.ChangeType = result.ChangeType
	diff.ClassifierConfidence = &result.Confidence
	diff.ClassifierReasoning = &result.Reasoning
	diff.AffectedEntities = result.AffectedEntities
	if b.config.GenerateSummaries {
		diff.ChangeSummary = summaryFor(diff.ChangeType, diff.LinesAdded, diff.LinesRemoved)
	}
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func lineSet(lines []string) map[string]bool {
	set := make(map[string]bool, len(lines))
	for _, l := range lines {
		set[l] = true
	}
	return set
}

// generateUnifiedDiff builds a naive unified diff: lines present only in
// `to` are additions, lines present only in `from` are removals, with up
// to ContextLines unchanged lines from the start of `to` prepended for
// readability. The whole thing is capped at MaxDiffLines.
func (b *Builder) generateUnifiedDiff(fromLines, toLines []string) (string, int, int) {
	fromSet := lineSet(fromLines)
	toSet := lineSet(toLines)

	var removed, added []string
	for _, l := range fromLines {
		if !toSet[l] {
			removed = append(removed, "-"+l)
		}
	}
	for _, l := range toLines {
		if !fromSet[l] {
			added = append(added, "+"+l)
		}
	}

	var context []string
	for _, l := range toLines {
		if len(context) >= b.config.ContextLines {
			break
		}
		if fromSet[l] {
			context = append(context, " "+l)
		}
	}

	lines := append(context, removed...)
	lines = append(lines, added...)
	if len(lines) > b.config.MaxDiffLines {
		lines = lines[:b.config.MaxDiffLines]
	}
	return strings.Join(lines, "\n"), len(added), len(removed)
}

func classifyChange(from, to string, added, removed int) ChangeType {
	switch {
	case from == "":
		return ChangeNewDocument
	case to == "":
		return ChangeContentRemoved
	case isScrollLike(from, to):
		return ChangeScrollOnly
	case normalizeForComparison(from) == normalizeForComparison(to):
		return ChangeFormatOnly
	case added > 0 && removed == 0:
		return ChangeContentAdded
	case removed > 0 && added == 0:
		return ChangeContentRemoved
	default:
		return ChangeContentChanged
	}
}

// isScrollLike detects a view that scrolled rather than actually changed:
// the word sets of the two texts overlap almost entirely.
func isScrollLike(from, to string) bool {
	fromWords := wordSet(from)
	toWords := wordSet(to)
	if len(fromWords) == 0 || len(toWords) == 0 {
		return false
	}

	intersection := 0
	for w := range fromWords {
		if toWords[w] {
			intersection++
		}
	}
	union := len(fromWords) + len(toWords) - intersection
	if union == 0 {
		return false
	}
	return float64(intersection)/float64(union) >= 0.95
}

func wordSet(text string) map[string]bool {
	words := strings.Fields(text)
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// normalizeForComparison collapses all whitespace runs so purely
// cosmetic reformatting (re-indentation, line wrapping) reads as equal.
func normalizeForComparison(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func summaryFor(changeType ChangeType, added, removed int) *string {
	var s string
	switch changeType {
	case ChangeNewDocument:
		s = "Opened new document"
	case ChangeContentAdded:
		s = fmt.Sprintf("Added %d lines", added)
	case ChangeContentRemoved:
		s = fmt.Sprintf("Removed %d lines", removed)
	case ChangeReworded:
		s = "Reworded text"
	case ChangeFormatOnly:
		s = "Formatting changed"
	case ChangeCursorOnly:
		s = "No text changes detected"
	case ChangeScrollOnly:
		s = "Scrolled view"
	case ChangeNavigation:
		s = "Navigated"
	default:
		s = fmt.Sprintf("Changed text (+%d -%d lines)", added, removed)
	}
	return &s
}
