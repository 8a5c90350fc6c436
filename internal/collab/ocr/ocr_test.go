package ocr

import (
	"context"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnavailableProvider_AlwaysErrors(t *testing.T) {
	var p UnavailableProvider
	img := image.NewGray(image.Rect(0, 0, 1, 1))

	text, confidence, err := p.ExtractText(context.Background(), img)
	assert.Error(t, err)
	assert.Empty(t, text)
	assert.Zero(t, confidence)
}
