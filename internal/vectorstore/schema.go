package vectorstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ddl returns the schema DDL with the embedding dimension baked into
// the vector column type, matching pgvector's fixed-width column
// requirement.
func ddl(embeddingDimensions int) string {
	return fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS semantic_chunks (
    id         TEXT        PRIMARY KEY,
    meeting_id TEXT        NOT NULL,
    kind       TEXT        NOT NULL,
    source_id  TEXT        NOT NULL DEFAULT '',
    text       TEXT        NOT NULL,
    embedding  vector(%d)
);

CREATE INDEX IF NOT EXISTS idx_semantic_chunks_meeting
    ON semantic_chunks (meeting_id);

CREATE INDEX IF NOT EXISTS idx_semantic_chunks_embedding
    ON semantic_chunks USING hnsw (embedding vector_cosine_ops);
`, embeddingDimensions)
}

// Migrate creates the pgvector extension and semantic_chunks table if
// they don't already exist. embeddingDimensions must match the
// configured embedding model's output size; changing it later requires
// a manual schema change.
func Migrate(ctx context.Context, pool *pgxpool.Pool, embeddingDimensions int) error {
	if _, err := pool.Exec(ctx, ddl(embeddingDimensions)); err != nil {
		return fmt.Errorf("vectorstore: migrate: %w", err)
	}
	return nil
}
