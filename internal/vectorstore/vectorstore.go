// Package vectorstore implements the vector-store collaborator (spec
// §4.11/§6.9): semantic indexing of timeline-event and transcript text
// for similarity search. Backed by PostgreSQL + pgvector; degrades to a
// no-op when no database URL is configured, since this is an optional
// component (spec §6.9, "optional").
package vectorstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

// Chunk is one piece of text indexed for semantic search, tagged with
// the meeting and source entity it came from.
type Chunk struct {
	ID         string
	MeetingID  string
	Kind       string // "timeline_event" or "transcript_segment"
	SourceID   string
	Text       string
	Embedding  []float32
}

// Result is one nearest-neighbour hit, ordered by ascending cosine
// distance (most similar first).
type Result struct {
	Chunk    Chunk
	Distance float64
}

// Index upserts and queries embedded text chunks.
type Index interface {
	Upsert(ctx context.Context, chunk Chunk) error
	Query(ctx context.Context, embedding []float32, meetingID string, topK int) ([]Result, error)
}

// Store is the pgvector-backed Index implementation.
type Store struct {
	pool *pgxpool.Pool
}

// New opens a pool against dsn, registers pgvector's codec on every
// connection, and runs Migrate for the given embedding dimension.
func New(ctx context.Context, dsn string, embeddingDimensions int) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: parse dsn: %w", err)
	}

	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("vectorstore: ping: %w", err)
	}

	if err := Migrate(ctx, pool, embeddingDimensions); err != nil {
		pool.Close()
		return nil, fmt.Errorf("vectorstore: migrate: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Upsert indexes chunk, replacing any existing row with the same ID.
func (s *Store) Upsert(ctx context.Context, chunk Chunk) error {
	const q = `
		INSERT INTO semantic_chunks (id, meeting_id, kind, source_id, text, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			meeting_id = EXCLUDED.meeting_id,
			kind       = EXCLUDED.kind,
			source_id  = EXCLUDED.source_id,
			text       = EXCLUDED.text,
			embedding  = EXCLUDED.embedding`

	vec := pgvector.NewVector(chunk.Embedding)
	_, err := s.pool.Exec(ctx, q, chunk.ID, chunk.MeetingID, chunk.Kind, chunk.SourceID, chunk.Text, vec)
	if err != nil {
		return fmt.Errorf("vectorstore: upsert: %w", err)
	}
	return nil
}

// Query finds the topK chunks within meetingID closest to embedding by
// cosine distance.
func (s *Store) Query(ctx context.Context, embedding []float32, meetingID string, topK int) ([]Result, error) {
	const q = `
		SELECT id, meeting_id, kind, source_id, text, embedding,
		       embedding <=> $1 AS distance
		FROM   semantic_chunks
		WHERE  meeting_id = $2
		ORDER BY distance
		LIMIT $3`

	rows, err := s.pool.Query(ctx, q, pgvector.NewVector(embedding), meetingID, topK)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: query: %w", err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Result, error) {
		var r Result
		var vec pgvector.Vector
		if err := row.Scan(&r.Chunk.ID, &r.Chunk.MeetingID, &r.Chunk.Kind, &r.Chunk.SourceID, &r.Chunk.Text, &vec, &r.Distance); err != nil {
			return Result{}, err
		}
		r.Chunk.Embedding = vec.Slice()
		return r, nil
	})
	if err != nil {
		return nil, fmt.Errorf("vectorstore: scan rows: %w", err)
	}
	if results == nil {
		results = []Result{}
	}
	return results, nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}
