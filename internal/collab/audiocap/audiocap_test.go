package audiocap

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nofriction/meetings-engine/internal/transcript"
)

func float32Bytes(v float32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
	return b
}

func TestOnFrames_DownmixesStereoToMono(t *testing.T) {
	c := &Capture{out: make(chan transcript.AudioBuffer, 1)}
	cb := c.onFrames(2)

	// One stereo frame: left=1.0, right=0.0 -> mono average 0.5.
	input := append(float32Bytes(1.0), float32Bytes(0.0)...)
	cb(nil, input, 1)

	select {
	case buf := <-c.out:
		require.Len(t, buf.Samples, 1)
		assert.InDelta(t, 0.5, buf.Samples[0], 0.0001)
		assert.Equal(t, SampleRate, buf.SampleRate)
		assert.Equal(t, 1, buf.Channels)
	default:
		t.Fatal("expected a chunk on the output channel")
	}
}

func TestOnFrames_PassesMicrophoneMonoThrough(t *testing.T) {
	c := &Capture{out: make(chan transcript.AudioBuffer, 1)}
	cb := c.onFrames(1)

	input := float32Bytes(0.25)
	cb(nil, input, 1)

	buf := <-c.out
	require.Len(t, buf.Samples, 1)
	assert.InDelta(t, 0.25, buf.Samples[0], 0.0001)
}

func TestOnFrames_DropsMalformedInput(t *testing.T) {
	c := &Capture{out: make(chan transcript.AudioBuffer, 1)}
	cb := c.onFrames(2)

	cb(nil, []byte{0x01, 0x02}, 1)

	select {
	case <-c.out:
		t.Fatal("expected no chunk for malformed input")
	default:
	}
}

func TestOnFrames_DropsChunkWhenConsumerBehind(t *testing.T) {
	c := &Capture{out: make(chan transcript.AudioBuffer, 1)}
	cb := c.onFrames(1)

	cb(nil, float32Bytes(0.1), 1)
	cb(nil, float32Bytes(0.2), 1) // channel already full; must not block

	buf := <-c.out
	assert.InDelta(t, 0.1, buf.Samples[0], 0.0001)
}

func TestStop_WithoutStartIsNoop(t *testing.T) {
	c := &Capture{out: make(chan transcript.AudioBuffer, 1)}
	require.NoError(t, c.Stop())
}
