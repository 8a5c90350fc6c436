// Package screen defines the screen-capture collaborator (spec §6.1).
// The platform screenshot API itself is out of scope; this package holds
// the narrow interface the pipeline consumes plus a file-replay test
// double used by tests and the cmd/replay smoke tool.
package screen

import (
	"context"
	"image"
	"time"
)

// Frame is one captured screen image plus the window context it was
// taken under.
type Frame struct {
	Image       image.Image
	Timestamp   time.Time
	AppName     *string
	WindowTitle *string
}

// Capture produces a sequence of screen frames at its own cadence, which
// the caller adjusts by calling SetInterval as the Mode Controller
// transitions between Ambient and Meeting cadence.
type Capture interface {
	// Frames returns a channel of captured frames. Closed when the
	// capture stops or ctx is canceled.
	Frames(ctx context.Context) (<-chan Frame, error)
	// SetInterval changes the capture cadence. Takes effect on the next
	// capture tick.
	SetInterval(d time.Duration)
	// Stop releases any platform resources the capture holds.
	Stop() error
}
