package transcript

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextHash_NormalizesCaseAndWhitespace(t *testing.T) {
	assert.Equal(t, TextHash("  Hello World  "), TextHash("hello world"))
}

func TestDeduper_FirstOccurrenceIsFresh(t *testing.T) {
	d := NewDeduper(DedupWindow)
	id, fresh := d.CheckAndRecord(uuid.New(), "let's get started", time.Now())
	assert.True(t, fresh)
	assert.NotEqual(t, uuid.UUID{}, id)
}

func TestDeduper_DuplicateWithinWindowReturnsExistingID(t *testing.T) {
	d := NewDeduper(DedupWindow)
	now := time.Now()
	first, _ := d.CheckAndRecord(uuid.New(), "let's get started", now)

	second, fresh := d.CheckAndRecord(uuid.New(), "Let's Get Started", now.Add(5*time.Second))
	assert.False(t, fresh)
	assert.Equal(t, first, second)
}

func TestDeduper_OutsideWindowIsFreshAgain(t *testing.T) {
	d := NewDeduper(30 * time.Second)
	now := time.Now()
	d.CheckAndRecord(uuid.New(), "let's get started", now)

	_, fresh := d.CheckAndRecord(uuid.New(), "let's get started", now.Add(31*time.Second))
	assert.True(t, fresh)
}

func TestDeduper_EvictsStaleEntries(t *testing.T) {
	d := NewDeduper(10 * time.Second)
	now := time.Now()
	d.CheckAndRecord(uuid.New(), "first", now)
	d.CheckAndRecord(uuid.New(), "second", now.Add(20*time.Second))

	require.Len(t, d.entries, 1)
	assert.Equal(t, TextHash("second"), d.entries[0].hash)
}
