package snapshot

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubOCR struct {
	text       string
	confidence float64
	err        error
}

func (s stubOCR) ExtractText(ctx context.Context, img image.Image) (string, float64, error) {
	return s.text, s.confidence, s.err
}

type stubAccessibility struct {
	text    string
	trusted bool
	err     error
}

func (s stubAccessibility) ExtractText(ctx context.Context) (string, bool, error) {
	return s.text, s.trusted, s.err
}

func TestScoreQuality_LongStructuredTextScoresHigh(t *testing.T) {
	text := "func main() {\n\tfmt.Println(\"hello world\")\n\treturn nil\n}\n"
	score := scoreQuality(text)
	assert.Greater(t, score, 0.3)
}

func TestScoreQuality_EmptyTextScoresZero(t *testing.T) {
	assert.Equal(t, 0.0, scoreQuality(""))
}

func TestExtractor_OCRDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OCREnabled = false
	e := New(cfg, stubOCR{text: "hello world this is good text", confidence: 0.9}, nil)

	result := e.ExtractFromImage(context.Background(), image.NewGray(image.Rect(0, 0, 4, 4)), nil, nil, time.Now())
	assert.Equal(t, ResultDisabled, result.Kind)
}

func TestExtractor_TooShortText(t *testing.T) {
	e := New(DefaultConfig(), stubOCR{text: "hi", confidence: 0.9}, nil)

	result := e.ExtractFromImage(context.Background(), image.NewGray(image.Rect(0, 0, 4, 4)), nil, nil, time.Now())
	assert.Equal(t, ResultTooShort, result.Kind)
}

func TestExtractor_LowQualityText(t *testing.T) {
	// One 50-character token on one line scores about 0.33 on text
	// quality; averaged with zero OCR confidence that is about 0.17,
	// under the 0.3 minimum.
	e := New(DefaultConfig(), stubOCR{text: "xxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx", confidence: 0.0}, nil)

	result := e.ExtractFromImage(context.Background(), image.NewGray(image.Rect(0, 0, 4, 4)), nil, nil, time.Now())
	require.Equal(t, ResultLowQuality, result.Kind)
	assert.Less(t, result.Quality, DefaultConfig().MinQualityScore)
}

func TestExtractor_SuccessProducesSnapshot(t *testing.T) {
	text := "This is a reasonably long paragraph of screen text with several words in it.\nIt spans multiple lines too."
	e := New(DefaultConfig(), stubOCR{text: text, confidence: 0.95}, nil)
	episodeID := uuid.New()

	result := e.ExtractFromImage(context.Background(), image.NewGray(image.Rect(0, 0, 4, 4)), &episodeID, nil, time.Now())

	require.Equal(t, ResultSuccess, result.Kind)
	require.NotNil(t, result.Snapshot)
	assert.Equal(t, SourceOCR, result.Snapshot.Source)
	assert.NotEmpty(t, result.Snapshot.TextHash)
	assert.Equal(t, &episodeID, result.Snapshot.EpisodeID)
}

func TestExtractor_OCRError(t *testing.T) {
	e := New(DefaultConfig(), stubOCR{err: errors.New("ocr engine unavailable")}, nil)

	result := e.ExtractFromImage(context.Background(), image.NewGray(image.Rect(0, 0, 4, 4)), nil, nil, time.Now())
	assert.Equal(t, ResultFailed, result.Kind)
	assert.NotEmpty(t, result.Err)
}

func TestExtractor_AccessibilityNotTrusted(t *testing.T) {
	e := New(DefaultConfig(), nil, stubAccessibility{text: "some text here that is long enough", trusted: false})

	result := e.ExtractFromAccessibility(context.Background(), nil, nil, time.Now())
	assert.Equal(t, ResultFailed, result.Kind)
}

func TestExtractor_ShouldCheckpoint(t *testing.T) {
	e := New(DefaultConfig(), nil, nil)
	episodeA := uuid.New()
	episodeB := uuid.New()

	now := time.Now()
	assert.True(t, e.ShouldCheckpoint(&episodeA, now))

	e.RecordCheckpoint(&episodeA, now)
	assert.False(t, e.ShouldCheckpoint(&episodeA, now.Add(5*time.Second)))
	assert.True(t, e.ShouldCheckpoint(&episodeA, now.Add(31*time.Second)))
	assert.True(t, e.ShouldCheckpoint(&episodeB, now.Add(1*time.Second)))
}
