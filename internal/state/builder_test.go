package state

import (
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidFrame(gray uint8) image.Image {
	img := image.NewGray(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.SetGray(x, y, color.Gray{Y: gray})
		}
	}
	return img
}

func TestBuilder_FirstFrameOpensState(t *testing.T) {
	b := New(DefaultConfig())
	b.StartMeeting(uuid.New())

	result := b.ProcessFrame(Frame{Image: solidFrame(100), Timestamp: time.Now()})

	assert.Equal(t, ResultNewState, result.Kind)
	assert.Nil(t, result.CompletedState)
}

func TestBuilder_DuplicateFrameExtendsState(t *testing.T) {
	b := New(DefaultConfig())
	b.StartMeeting(uuid.New())

	start := time.Now()
	first := b.ProcessFrame(Frame{Image: solidFrame(100), Timestamp: start})
	second := b.ProcessFrame(Frame{Image: solidFrame(100), Timestamp: start.Add(600 * time.Millisecond)})

	require.Equal(t, ResultNewState, first.Kind)
	assert.Equal(t, ResultExtended, second.Kind)
	assert.Equal(t, first.StateID, second.StateID)
}

func TestBuilder_MinDurationSuppressesBoundary(t *testing.T) {
	cfg := DefaultConfig()
	b := New(cfg)
	b.StartMeeting(uuid.New())

	start := time.Now()
	b.ProcessFrame(Frame{Image: solidFrame(10), Timestamp: start})
	// A genuinely different frame arrives before MinStateDurationMs has
	// elapsed: the boundary must be suppressed and the state extended.
	result := b.ProcessFrame(Frame{Image: solidFrame(250), Timestamp: start.Add(100 * time.Millisecond)})

	assert.Equal(t, ResultExtended, result.Kind)
}

func TestBuilder_MaxDurationForcesBoundary(t *testing.T) {
	cfg := DefaultConfig()
	b := New(cfg)
	b.StartMeeting(uuid.New())

	start := time.Now()
	first := b.ProcessFrame(Frame{Image: solidFrame(100), Timestamp: start})
	require.Equal(t, ResultNewState, first.Kind)

	// Identical frame, but past MaxStateDurationMs: must force a new
	// state even though the dedup gate would otherwise call it a dup.
	result := b.ProcessFrame(Frame{
		Image:     solidFrame(100),
		Timestamp: start.Add(time.Duration(cfg.MaxStateDurationMs+1) * time.Millisecond),
	})

	assert.Equal(t, ResultNewState, result.Kind)
	require.NotNil(t, result.CompletedState)
	assert.Equal(t, first.StateID, result.CompletedState.StateID)
}

func TestBuilder_EndMeetingFinalizesCurrentState(t *testing.T) {
	b := New(DefaultConfig())
	b.StartMeeting(uuid.New())
	b.ProcessFrame(Frame{Image: solidFrame(100), Timestamp: time.Now()})

	completed := b.EndMeeting()

	require.NotNil(t, completed)
	_, ok := b.CurrentStateID()
	assert.False(t, ok)
}

func TestBuilder_PendingKeyframeIsConsumedOnce(t *testing.T) {
	b := New(DefaultConfig())
	b.StartMeeting(uuid.New())
	path := "/tmp/frame-0001.png"
	b.ProcessFrame(Frame{Image: solidFrame(100), Timestamp: time.Now(), KeyframePath: &path})

	first := b.TakePendingKeyframe()
	require.NotNil(t, first)
	assert.Equal(t, path, *first)

	second := b.TakePendingKeyframe()
	assert.Nil(t, second)
}

func TestBuilder_DisabledPassesThrough(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false
	b := New(cfg)
	b.StartMeeting(uuid.New())

	result := b.ProcessFrame(Frame{Image: solidFrame(100), Timestamp: time.Now()})

	assert.Equal(t, ResultPassThrough, result.Kind)
}
