package screen

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string, fill byte) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetGray(x, y, color.Gray{Y: fill})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestFileReplayCapture_ReplaysFramesInOrder(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a_001.png"), 0)
	writePNG(t, filepath.Join(dir, "a_002.png"), 128)

	capture, err := NewFileReplayCapture(dir, time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	frames, err := capture.Frames(ctx)
	require.NoError(t, err)

	var count int
	for range frames {
		count++
	}
	assert.Equal(t, 2, count)
}

func TestFileReplayCapture_StopEndsReplayEarly(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 5; i++ {
		writePNG(t, filepath.Join(dir, string(rune('a'+i))+".png"), byte(i*10))
	}

	capture, err := NewFileReplayCapture(dir, 50*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	frames, err := capture.Frames(ctx)
	require.NoError(t, err)

	<-frames
	require.NoError(t, capture.Stop())

	var remaining int
	for range frames {
		remaining++
	}
	assert.Less(t, remaining, 4)
}
