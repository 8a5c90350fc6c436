package vectorstore

import "context"

// NoopIndex is used when no vector-store DSN is configured (spec §4.11:
// "degrades to a no-op when unconfigured"). Upsert silently discards;
// Query always returns an empty result set rather than an error, so
// callers that fold semantic search into a larger result set don't need
// a special case for "no vector store configured".
type NoopIndex struct{}

func (NoopIndex) Upsert(context.Context, Chunk) error { return nil }

func (NoopIndex) Query(context.Context, []float32, string, int) ([]Result, error) {
	return []Result{}, nil
}
