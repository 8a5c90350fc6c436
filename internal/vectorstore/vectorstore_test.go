package vectorstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestNoopIndex_UpsertAndQueryAreInert(t *testing.T) {
	var idx NoopIndex
	require.NoError(t, idx.Upsert(context.Background(), Chunk{ID: "1"}))

	results, err := idx.Query(context.Background(), []float32{0.1, 0.2}, "meeting-1", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

var (
	sharedConnStr string
	containerOnce sync.Once
	containerErr  error
)

func testStore(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping testcontainers-backed vectorstore test in -short mode")
	}

	containerOnce.Do(func() {
		ctx := context.Background()
		pgContainer, err := postgres.Run(ctx,
			"pgvector/pgvector:pg17",
			postgres.WithDatabase("meetings"),
			postgres.WithUsername("test"),
			postgres.WithPassword("test"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second)),
		)
		if err != nil {
			containerErr = err
			return
		}
		connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			containerErr = err
			return
		}
		sharedConnStr = connStr
	})
	if containerErr != nil {
		t.Skipf("pgvector testcontainer unavailable: %v", containerErr)
	}

	s, err := New(context.Background(), sharedConnStr, 3)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestStore_UpsertAndQueryOrdersByCosineDistance(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, Chunk{ID: "a", MeetingID: "m1", Kind: "transcript_segment", Text: "near", Embedding: []float32{1, 0, 0}}))
	require.NoError(t, s.Upsert(ctx, Chunk{ID: "b", MeetingID: "m1", Kind: "transcript_segment", Text: "far", Embedding: []float32{0, 1, 0}}))

	results, err := s.Query(ctx, []float32{1, 0, 0}, "m1", 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Chunk.ID)
}
