// Package transcript implements the Transcript Pipeline (spec §4.7): it
// resamples captured audio, streams it to an external STT service shaped
// like Deepgram, and fans parsed segments out to the UI, persistence, and
// the Live Intel Agent.
package transcript

import "time"

// Segment is one piece of recognized speech from the STT service.
type Segment struct {
	Text         string
	IsFinal      bool
	Confidence   float64
	StartSeconds float64
	Duration     float64
	Speaker      *string
}

// AudioBuffer is one chunk of captured interleaved PCM, tagged with the
// format it arrived in.
type AudioBuffer struct {
	Samples    []float32 // interleaved, one slot per channel per frame
	SampleRate int
	Channels   int
	Timestamp  time.Time
}

// ConnState is the STT connection's lifecycle state (spec §4.7).
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateStreaming
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	default:
		return "disconnected"
	}
}

const (
	// TargetSampleRate is the sample rate every buffer is resampled to
	// before it's sent to the STT service.
	TargetSampleRate = 16_000
	// ChunkSamples is the fixed frame size sent per network write: 320
	// samples at 16kHz is 20ms.
	ChunkSamples = 320
	// BatchChannelCapacity bounds the audio-callback-to-sender channel;
	// beyond this, batches are dropped rather than blocking the capture
	// callback.
	BatchChannelCapacity = 100
	// DedupWindow is how far back persistence looks for a matching final
	// segment hash before treating a new one as a duplicate.
	DedupWindow = 30 * time.Second
)
