package transcript

import "encoding/binary"

// Downmix averages interleaved multi-channel samples down to mono,
// respecting whatever channel count the buffer actually reports. The
// source implementation this pipeline was ported from hardcoded a
// stereo-pair downmix regardless of the reported channel count; this
// port fixes that and averages across the real channel count instead.
func Downmix(samples []float32, channels int) []float32 {
	if channels <= 1 {
		out := make([]float32, len(samples))
		copy(out, samples)
		return out
	}

	frames := len(samples) / channels
	mono := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		base := i * channels
		for c := 0; c < channels; c++ {
			sum += samples[base+c]
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}

// Resample linearly resamples mono PCM from one sample rate to another.
func Resample(mono []float32, fromRate, toRate int) []float32 {
	if fromRate == toRate || len(mono) == 0 {
		out := make([]float32, len(mono))
		copy(out, mono)
		return out
	}

	ratio := float64(fromRate) / float64(toRate)
	outLen := int(float64(len(mono)) / ratio)
	out := make([]float32, outLen)

	for i := 0; i < outLen; i++ {
		srcPos := float64(i) * ratio
		idx := int(srcPos)
		frac := srcPos - float64(idx)

		if idx+1 < len(mono) {
			out[i] = mono[idx]*float32(1-frac) + mono[idx+1]*float32(frac)
		} else {
			out[i] = mono[len(mono)-1]
		}
	}
	return out
}

// Requantize converts float32 PCM in [-1,1] to signed 16-bit samples,
// clamping out-of-range input rather than wrapping it.
func Requantize(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		out[i] = int16(s * 32767.0)
	}
	return out
}

// EncodeLittleEndian packs s16 samples into little-endian bytes, the
// wire format the STT service expects.
func EncodeLittleEndian(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

// ChunkFrames splits s16 PCM into fixed-size frames, dropping any
// trailing partial frame shorter than size (it's buffered by the caller
// and prepended to the next batch).
func ChunkFrames(samples []int16, size int) ([][]int16, []int16) {
	var chunks [][]int16
	i := 0
	for ; i+size <= len(samples); i += size {
		chunk := make([]int16, size)
		copy(chunk, samples[i:i+size])
		chunks = append(chunks, chunk)
	}
	remainder := make([]int16, len(samples)-i)
	copy(remainder, samples[i:])
	return chunks, remainder
}

// Prepare runs the full ingest pipeline on one captured buffer: downmix,
// resample to TargetSampleRate, requantize to s16le.
func Prepare(buf AudioBuffer) []int16 {
	mono := Downmix(buf.Samples, buf.Channels)
	resampled := Resample(mono, buf.SampleRate, TargetSampleRate)
	return Requantize(resampled)
}
