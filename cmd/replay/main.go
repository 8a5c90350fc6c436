// Command replay drives a pipeline.Engine from a directory of recorded
// screenshot frames instead of a live screen capture backend, for local
// development and smoke-testing the state/episode/timeline chain
// without a display.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nofriction/meetings-engine/internal/collab/screen"
	"github.com/nofriction/meetings-engine/internal/diffbuilder"
	"github.com/nofriction/meetings-engine/internal/episode"
	"github.com/nofriction/meetings-engine/internal/intel"
	"github.com/nofriction/meetings-engine/internal/mode"
	"github.com/nofriction/meetings-engine/internal/pipeline"
	"github.com/nofriction/meetings-engine/internal/snapshot"
	"github.com/nofriction/meetings-engine/internal/state"
	"github.com/nofriction/meetings-engine/internal/timeline"
	"github.com/nofriction/meetings-engine/internal/transcript"
)

func main() {
	dir := flag.String("dir", "", "directory of PNG/JPEG frames to replay, in filename order")
	interval := flag.Duration("interval", 500*time.Millisecond, "pacing between replayed frames")
	flag.Parse()

	if *dir == "" {
		fmt.Fprintln(os.Stderr, "replay: -dir is required")
		os.Exit(1)
	}

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	if err := run(*dir, *interval, logger); err != nil {
		logger.Fatal("replay failed", zap.Error(err))
	}
}

func run(dir string, interval time.Duration, logger *zap.Logger) error {
	capture, err := screen.NewFileReplayCapture(dir, interval)
	if err != nil {
		return fmt.Errorf("open replay directory: %w", err)
	}
	defer capture.Stop()

	engine := pipeline.New(
		pipeline.DefaultConfig(),
		noopStore{},
		noopBus{},
		nil, nil, nil, nil, nil, nil,
		logger,
	)

	ctx := context.Background()
	meetingID := uuid.New()
	if err := engine.StartMeeting(ctx, meetingID); err != nil {
		return fmt.Errorf("start meeting: %w", err)
	}

	frames, err := capture.Frames(ctx)
	if err != nil {
		return fmt.Errorf("start replay: %w", err)
	}

	count := 0
	for f := range frames {
		sf := state.Frame{Image: f.Image, Timestamp: f.Timestamp}
		if err := engine.IngestFrame(ctx, sf); err != nil {
			logger.Warn("ingest frame failed", zap.Error(err))
			continue
		}
		count++
	}
	logger.Info("replay finished", zap.Int("frames", count))

	for _, ev := range engine.Topics() {
		logger.Info("topic cluster", zap.String("name", ev.Name), zap.Int("episodes", len(ev.EpisodeIDs)))
	}

	return engine.EndMeeting(ctx)
}

// noopStore/noopBus satisfy pipeline.Store/pipeline.EventPublisher
// without touching a database or broker, so replay can run against a
// bare frame directory with no other infrastructure running.
type noopStore struct{}

func (noopStore) SaveMeeting(context.Context, uuid.UUID, time.Time) error { return nil }
func (noopStore) EndMeeting(context.Context, uuid.UUID, time.Time) error  { return nil }
func (noopStore) SaveScreenState(context.Context, state.ScreenState) error { return nil }
func (noopStore) SaveTextSnapshot(context.Context, snapshot.TextSnapshot) error { return nil }
func (noopStore) SaveTextDiff(context.Context, diffbuilder.TextDiff) error { return nil }
func (noopStore) SaveEpisode(context.Context, episode.DocumentEpisode) error { return nil }
func (noopStore) SaveTimelineEvent(context.Context, timeline.Event) error { return nil }
func (noopStore) SaveTranscriptSegment(context.Context, uuid.UUID, transcript.Segment) (uuid.UUID, error) {
	return uuid.New(), nil
}

type noopBus struct{}

func (noopBus) PublishTimelineEvent(uuid.UUID, timeline.Event)         {}
func (noopBus) PublishInsight(uuid.UUID, intel.Event)                  {}
func (noopBus) PublishTranscriptSegment(uuid.UUID, transcript.Segment) {}
func (noopBus) PublishModeChange(mode.Mode)                            {}
