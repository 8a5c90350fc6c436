package fsstore

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/braheezy/shine-mp3/pkg/mp3"
	gomp3 "github.com/hajimehoshi/go-mp3"
)

// AudioChunkWriter streams a meeting's microphone audio to an MP3 file
// without shelling out to ffmpeg, matching the teacher's own
// ShineMP3Writer.
type AudioChunkWriter struct {
	file       *os.File
	encoder    *mp3.Encoder
	sampleRate int
	channels   int

	mu             sync.Mutex
	buffer         []int16
	samplesWritten int64
	closed         bool
}

// NewAudioChunkWriter creates path and opens a streaming MP3 encoder over
// it. sampleRate/channels must match the capture format fed to Write.
func NewAudioChunkWriter(path string, sampleRate, channels int) (*AudioChunkWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("fsstore: create audio chunk: %w", err)
	}
	return &AudioChunkWriter{
		file:       file,
		encoder:    mp3.NewEncoder(sampleRate, channels),
		sampleRate: sampleRate,
		channels:   channels,
		buffer:     make([]int16, 0, 8192),
	}, nil
}

// Write appends interleaved float32 samples, encoding complete
// 1152-sample-per-channel blocks as they accumulate.
func (w *AudioChunkWriter) Write(samples []float32) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("fsstore: audio chunk writer closed")
	}

	for _, s := range samples {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		w.buffer = append(w.buffer, int16(s*32767))
	}
	w.samplesWritten += int64(len(samples))

	blockSize := 1152 * w.channels
	flushable := (len(w.buffer) / blockSize) * blockSize
	if flushable > 0 {
		w.encoder.Write(w.file, w.buffer[:flushable])
		w.buffer = w.buffer[flushable:]
	}
	return nil
}

// Duration returns how much audio has been written so far.
func (w *AudioChunkWriter) Duration() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	frames := w.samplesWritten / int64(w.channels)
	return time.Duration(frames) * time.Second / time.Duration(w.sampleRate)
}

// Close flushes any remaining buffered samples (zero-padded to a full
// block) and closes the underlying file.
func (w *AudioChunkWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	if len(w.buffer) > 0 {
		blockSize := 1152 * w.channels
		for len(w.buffer)%blockSize != 0 {
			w.buffer = append(w.buffer, 0)
		}
		w.encoder.Write(w.file, w.buffer)
	}
	return w.file.Close()
}

// ReadAudioChunkMono decodes an archived MP3 chunk back to mono float32
// samples, downmixing go-mp3's fixed stereo output.
func ReadAudioChunkMono(path string) ([]float32, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("fsstore: open audio chunk: %w", err)
	}
	defer file.Close()

	decoder, err := gomp3.NewDecoder(file)
	if err != nil {
		return nil, 0, fmt.Errorf("fsstore: decode audio chunk: %w", err)
	}

	raw := make([]byte, decoder.Length())
	n, err := decoder.Read(raw)
	if err != nil && n == 0 {
		return nil, 0, fmt.Errorf("fsstore: read audio chunk: %w", err)
	}
	raw = raw[:n]

	frameCount := len(raw) / 4
	mono := make([]float32, frameCount)
	for i := 0; i < frameCount; i++ {
		left := int16(uint16(raw[i*4]) | uint16(raw[i*4+1])<<8)
		right := int16(uint16(raw[i*4+2]) | uint16(raw[i*4+3])<<8)
		mono[i] = (float32(left) + float32(right)) / 2 / 32768
	}
	return mono, decoder.SampleRate(), nil
}
