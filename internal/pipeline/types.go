// Package pipeline wires the eight core components (spec §2) together
// into one engine that owns, per active meeting, a state builder, snapshot
// extractor, diff builder, episode builder, timeline builder, Live Intel
// Agent, and transcript pipeline — matching the ownership relationship
// `internal/service/recording.go` has over a `session.Manager` and
// `audio.Capture` pair.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nofriction/meetings-engine/internal/diffbuilder"
	"github.com/nofriction/meetings-engine/internal/episode"
	"github.com/nofriction/meetings-engine/internal/intel"
	"github.com/nofriction/meetings-engine/internal/mode"
	"github.com/nofriction/meetings-engine/internal/snapshot"
	"github.com/nofriction/meetings-engine/internal/state"
	"github.com/nofriction/meetings-engine/internal/timeline"
	"github.com/nofriction/meetings-engine/internal/transcript"
)

// Store persists the entities the engine produces. internal/store
// implements this against PostgreSQL; tests use a fake.
type Store interface {
	SaveMeeting(ctx context.Context, meetingID uuid.UUID, startTS time.Time) error
	EndMeeting(ctx context.Context, meetingID uuid.UUID, endTS time.Time) error
	SaveScreenState(ctx context.Context, s state.ScreenState) error
	SaveTextSnapshot(ctx context.Context, s snapshot.TextSnapshot) error
	SaveTextDiff(ctx context.Context, d diffbuilder.TextDiff) error
	SaveEpisode(ctx context.Context, e episode.DocumentEpisode) error
	SaveTimelineEvent(ctx context.Context, e timeline.Event) error
	SaveTranscriptSegment(ctx context.Context, meetingID uuid.UUID, seg transcript.Segment) (uuid.UUID, error)
}

// EventPublisher fans engine output out to UI subscribers. internal/eventbus
// implements this over MQTT; tests use a fake.
type EventPublisher interface {
	PublishTimelineEvent(meetingID uuid.UUID, e timeline.Event)
	PublishInsight(meetingID uuid.UUID, e intel.Event)
	PublishTranscriptSegment(meetingID uuid.UUID, seg transcript.Segment)
	PublishModeChange(m mode.Mode)
}

// Config bundles the per-component configs the engine constructs its
// builders with.
type Config struct {
	State    state.Config
	Snapshot snapshot.Config
	Diff     diffbuilder.Config
	Episode  episode.Config
	Timeline timeline.Config
	Mode     mode.Config
	Power    mode.PowerConfig
	STT      transcript.Config
}

// DefaultConfig composes every component's own defaults.
func DefaultConfig() Config {
	return Config{
		State:    state.DefaultConfig(),
		Snapshot: snapshot.DefaultConfig(),
		Diff:     diffbuilder.DefaultConfig(),
		Episode:  episode.DefaultConfig(),
		Timeline: timeline.DefaultConfig(),
		Mode:     mode.DefaultConfig(),
		Power:    mode.DefaultPowerConfig(),
	}
}
