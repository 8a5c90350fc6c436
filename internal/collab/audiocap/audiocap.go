// Package audiocap defines the audio-capture collaborator (spec §6.2):
// microphone plus system-loopback audio, downmixed to mono and handed
// to the transcript pipeline as transcript.AudioBuffer chunks.
package audiocap

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/nofriction/meetings-engine/internal/transcript"
)

// SampleRate is the fixed capture rate used throughout this package, so
// every AudioBuffer it emits declares the same SampleRate without
// per-chunk negotiation with the STT service.
const SampleRate = 48000

// Device names one enumerated capture or loopback device.
type Device struct {
	ID       malgo.DeviceID
	Name     string
	IsLoopback bool
}

// Capture streams microphone audio (and, if a system-loopback device is
// configured, that audio too) to the transcript pipeline. Both sources
// are downmixed to mono before being handed off; stereo separation has
// no value for speech-to-text.
type Capture struct {
	ctx *malgo.AllocatedContext

	mu           sync.Mutex
	micDevice    *malgo.Device
	systemDevice *malgo.Device
	systemID     *malgo.DeviceID
	running      bool

	out chan transcript.AudioBuffer
}

// New allocates the malgo audio context. Call Close when done.
func New() (*Capture, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("audiocap: init context: %w", err)
	}
	return &Capture{ctx: ctx, out: make(chan transcript.AudioBuffer, 64)}, nil
}

// ListLoopbackDevices enumerates playback devices that can double as a
// system-audio loopback source (e.g. BlackHole on macOS). This can fail
// independently of microphone capture, which Start never depends on.
func (c *Capture) ListLoopbackDevices() ([]Device, error) {
	infos, err := c.ctx.Devices(malgo.Playback)
	if err != nil {
		return nil, fmt.Errorf("audiocap: list playback devices: %w", err)
	}
	devices := make([]Device, 0, len(infos))
	for _, info := range infos {
		devices = append(devices, Device{ID: info.ID, Name: info.Name(), IsLoopback: true})
	}
	return devices, nil
}

// SetSystemLoopbackDevice selects which playback device's loopback tap
// Start uses for system audio. Call before Start; has no effect while
// running.
func (c *Capture) SetSystemLoopbackDevice(id malgo.DeviceID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.systemID = &id
}

// Chunks returns the channel of captured audio. Each chunk is mono at
// SampleRate; mic and system audio interleave on this single channel in
// arrival order, matching how transcript.Pipeline.IngestAudio expects to
// receive them (it resamples and buffers per call, order-independent
// across sources).
func (c *Capture) Chunks() <-chan transcript.AudioBuffer {
	return c.out
}

// Start begins microphone capture, and system-loopback capture too if a
// device was configured via SetSystemLoopbackDevice. A system-capture
// failure is not fatal: the pipeline still gets microphone audio.
func (c *Capture) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return fmt.Errorf("audiocap: already running")
	}

	if err := c.startMicrophone(); err != nil {
		return fmt.Errorf("audiocap: start microphone: %w", err)
	}

	if c.systemID != nil {
		// Microphone capture keeps running without system audio.
		_ = c.startSystem(*c.systemID)
	}

	c.running = true
	return nil
}

func (c *Capture) startMicrophone() error {
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = SampleRate

	device, err := malgo.InitDevice(c.ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: c.onFrames(1),
	})
	if err != nil {
		return err
	}
	if err := device.Start(); err != nil {
		return err
	}
	c.micDevice = device
	return nil
}

func (c *Capture) startSystem(id malgo.DeviceID) error {
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = 2
	deviceConfig.SampleRate = SampleRate
	deviceConfig.Capture.DeviceID = id.Pointer()

	device, err := malgo.InitDevice(c.ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: c.onFrames(2),
	})
	if err != nil {
		return err
	}
	if err := device.Start(); err != nil {
		return err
	}
	c.systemDevice = device
	return nil
}

// onFrames builds a malgo data callback that downmixes interleaved F32
// PCM to mono and pushes it onto c.out, dropping the chunk rather than
// blocking if the consumer is behind.
func (c *Capture) onFrames(channels int) func([]byte, []byte, uint32) {
	return func(_, input []byte, frameCount uint32) {
		if len(input) != int(frameCount)*channels*4 {
			return
		}

		mono := make([]float32, frameCount)
		for i := 0; i < int(frameCount); i++ {
			var sum float32
			for ch := 0; ch < channels; ch++ {
				idx := (i*channels + ch) * 4
				bits := uint32(input[idx]) | uint32(input[idx+1])<<8 | uint32(input[idx+2])<<16 | uint32(input[idx+3])<<24
				sum += float32frombits(bits)
			}
			mono[i] = sum / float32(channels)
		}

		select {
		case c.out <- transcript.AudioBuffer{Samples: mono, SampleRate: SampleRate, Channels: 1}:
		default:
		}
	}
}

// Stop tears down any running devices. Safe to call when not running.
func (c *Capture) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return nil
	}
	if c.micDevice != nil {
		c.micDevice.Uninit()
		c.micDevice = nil
	}
	if c.systemDevice != nil {
		c.systemDevice.Uninit()
		c.systemDevice = nil
	}
	c.running = false
	return nil
}

// Close releases the malgo context. Call after Stop, when the capture
// will not be restarted.
func (c *Capture) Close() {
	if c.ctx != nil {
		c.ctx.Uninit()
		c.ctx.Free()
	}
}

func float32frombits(b uint32) float32 {
	return math.Float32frombits(b)
}
