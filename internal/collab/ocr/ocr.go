// Package ocr defines the vision-OCR collaborator (spec §6.4). The OCR
// engine itself is explicitly out of scope for this repo; this package
// holds only the interface snapshot.Extractor consumes plus an
// UnavailableProvider stand-in for deployments with no OCR backend
// configured.
package ocr

import (
	"context"
	"fmt"
	"image"
)

// Provider recognizes text in a captured frame, returning a confidence
// score in [0, 1] alongside the recognized text.
type Provider interface {
	ExtractText(ctx context.Context, img image.Image) (text string, confidence float64, err error)
}

// UnavailableProvider is used when no OCR backend is configured; every
// call fails, which snapshot.Extractor treats as a failed checkpoint
// rather than a crash.
type UnavailableProvider struct{}

func (UnavailableProvider) ExtractText(context.Context, image.Image) (string, float64, error) {
	return "", 0, fmt.Errorf("ocr: no provider configured")
}
