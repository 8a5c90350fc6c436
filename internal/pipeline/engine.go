package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nofriction/meetings-engine/internal/diffbuilder"
	"github.com/nofriction/meetings-engine/internal/episode"
	"github.com/nofriction/meetings-engine/internal/intel"
	"github.com/nofriction/meetings-engine/internal/metrics"
	"github.com/nofriction/meetings-engine/internal/mode"
	"github.com/nofriction/meetings-engine/internal/snapshot"
	"github.com/nofriction/meetings-engine/internal/state"
	"github.com/nofriction/meetings-engine/internal/timeline"
	"github.com/nofriction/meetings-engine/internal/transcript"
)

// meetingPipeline bundles one meeting's worth of accumulator state. At
// most one is active on an Engine at a time, mirroring
// session.Manager's single-active-session invariant.
type meetingPipeline struct {
	meetingID uuid.UUID

	state    *state.Builder
	snapshot *snapshot.Extractor
	diff     *diffbuilder.Builder
	episode  *episode.Builder
	timeline *timeline.Builder
	intel    *intel.Agent

	client     *transcript.Client
	transcript *transcript.Pipeline

	currentEpisodeID        uuid.UUID
	lastSnapshotText        string
	publishedTimelineEvents int
	pendingKeyframe         *string

	cancel context.CancelFunc
	group  *errgroup.Group
}

// Engine owns the active meeting's pipeline and the app-wide mode state
// machine. Safe for concurrent use.
type Engine struct {
	cfg           Config
	store         Store
	bus           EventPublisher
	ocr           snapshot.OCRProvider
	accessibility snapshot.AccessibilityProvider
	dialer        transcript.Dialer
	classifier    diffbuilder.SemanticClassifier
	logger        *zap.Logger

	mode    *mode.Controller
	power   *mode.PowerManager
	trigger *mode.Trigger

	mu     sync.Mutex
	active *meetingPipeline
}

// New constructs an engine. ocr, accessibility, dialer, classifier,
// idleProbe, and sleepAssertion may be nil where the platform or
// configuration doesn't supply them; the narrower components degrade
// per their own documented behavior (spec §7).
func New(
	cfg Config,
	store Store,
	bus EventPublisher,
	ocr snapshot.OCRProvider,
	accessibility snapshot.AccessibilityProvider,
	dialer transcript.Dialer,
	classifier diffbuilder.SemanticClassifier,
	idleProbe mode.IdleProbe,
	sleepAssertion mode.SleepAssertion,
	logger *zap.Logger,
) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &Engine{
		cfg:           cfg,
		store:         store,
		bus:           bus,
		ocr:           ocr,
		accessibility: accessibility,
		dialer:        dialer,
		classifier:    classifier,
		logger:        logger,
		trigger:       mode.NewTrigger(),
	}
	e.mode = mode.New(cfg.Mode, e)
	e.power = mode.NewPowerManager(cfg.Power, idleProbe, sleepAssertion, e.mode.OnPowerState)
	return e
}

// Mode returns the current top-level capture mode.
func (e *Engine) Mode() mode.Mode {
	return e.mode.Mode()
}

// Power returns the power manager, so callers can drive Poll/NotifySleeping
// /NotifyWaking from the platform's power-event source.
func (e *Engine) Power() *mode.PowerManager {
	return e.power
}

// Trigger returns the meeting trigger, so callers can feed it app-focus
// and calendar signals and surface its suggestions to the user.
func (e *Engine) Trigger() *mode.Trigger {
	return e.trigger
}

// Pause transitions to Paused mode, halting capture without ending the
// active meeting — backs the control plane's "pause" operation (spec
// §6). The active meeting pipeline, if any, keeps running; it is the
// caller's responsibility to call EndMeeting separately if the pause
// should also stop recording.
func (e *Engine) Pause() {
	e.mode.Pause()
}

// Resume transitions back to Ambient mode after a pause.
func (e *Engine) Resume() {
	e.mode.StartAmbient()
}

// StartMeeting opens a new meeting pipeline and transitions to Meeting
// mode. Only one meeting may be active at a time.
func (e *Engine) StartMeeting(ctx context.Context, meetingID uuid.UUID) error {
	e.mu.Lock()
	if e.active != nil {
		existing := e.active.meetingID
		e.mu.Unlock()
		return fmt.Errorf("pipeline: meeting already active: %s", existing)
	}

	now := time.Now()
	mp := e.newMeetingPipeline(meetingID)
	mp.state.StartMeeting(meetingID)
	mp.episode.StartMeeting(meetingID)
	mp.timeline.StartMeeting(meetingID, now)
	mp.snapshot.Reset()
	mp.intel.Reset()

	e.active = mp
	e.mu.Unlock()

	if err := e.store.SaveMeeting(ctx, meetingID, now); err != nil {
		return fmt.Errorf("pipeline: persist meeting: %w", err)
	}
	e.drainTimelineEvents(ctx, mp)

	metrics.ActiveMeetings.Inc()
	e.mode.StartMeeting()
	return nil
}

// EndMeeting finalizes the active meeting: closes any in-progress state
// and episode, flushes the timeline, stops the transcript connection, and
// returns to Paused mode.
func (e *Engine) EndMeeting(ctx context.Context) error {
	e.mu.Lock()
	mp := e.active
	if mp == nil {
		e.mu.Unlock()
		return fmt.Errorf("pipeline: no active meeting")
	}
	e.active = nil
	e.mu.Unlock()

	e.stopTranscriptLoops(mp)

	if completedState := mp.state.EndMeeting(); completedState != nil {
		completed := *completedState
		completed.KeyframePath = mp.pendingKeyframe
		e.finalizeState(ctx, mp, completed)
	}
	if completedEpisode := mp.episode.EndMeeting(); completedEpisode != nil {
		e.finalizeEpisode(ctx, mp, *completedEpisode)
	}

	now := time.Now()
	mp.timeline.EndMeeting(now)
	e.drainTimelineEvents(ctx, mp)

	metrics.ActiveMeetings.Dec()
	if err := e.store.EndMeeting(ctx, mp.meetingID, now); err != nil {
		return fmt.Errorf("pipeline: persist meeting end: %w", err)
	}
	e.mode.Pause()
	return nil
}

// IngestFrame folds one captured screen frame into the active meeting's
// state/episode/snapshot/diff/timeline chain.
func (e *Engine) IngestFrame(ctx context.Context, frame state.Frame) error {
	e.mu.Lock()
	mp := e.active
	e.mu.Unlock()
	if mp == nil {
		return fmt.Errorf("pipeline: no active meeting")
	}

	start := time.Now()
	result := mp.state.ProcessFrame(frame)
	metrics.FramesProcessedTotal.WithLabelValues(mp.meetingID.String()).Inc()

	if result.Kind == state.ResultNewState {
		if result.CompletedState != nil {
			completed := *result.CompletedState
			completed.KeyframePath = mp.pendingKeyframe
			e.finalizeState(ctx, mp, completed)
		}
		mp.pendingKeyframe = mp.state.TakePendingKeyframe()
	}

	e.maybeCheckpointSnapshot(ctx, mp, frame)

	metrics.FrameProcessingDuration.WithLabelValues(mp.meetingID.String()).Observe(time.Since(start).Seconds())
	return nil
}

// IngestAudio hands one captured audio buffer to the active meeting's
// transcript pipeline for downmix/resample/chunk and STT streaming.
func (e *Engine) IngestAudio(buf transcript.AudioBuffer) error {
	e.mu.Lock()
	mp := e.active
	e.mu.Unlock()
	if mp == nil {
		return fmt.Errorf("pipeline: no active meeting")
	}

	mp.transcript.IngestAudio(buf)
	metrics.AudioBatchesDropped.WithLabelValues(mp.meetingID.String()).Set(float64(mp.transcript.DroppedFrames()))
	return nil
}

// Topics returns the active meeting's topic clusters, or nil if no
// meeting is active.
func (e *Engine) Topics() []timeline.TopicCluster {
	e.mu.Lock()
	mp := e.active
	e.mu.Unlock()
	if mp == nil {
		return nil
	}
	return mp.timeline.Topics()
}

func (e *Engine) newMeetingPipeline(meetingID uuid.UUID) *meetingPipeline {
	sink := &engineSink{engine: e, meetingID: meetingID}
	client := transcript.NewClient(e.cfg.STT, e.dialer)
	intelAgent := intel.New()

	return &meetingPipeline{
		meetingID: meetingID,
		state:     state.New(e.cfg.State),
		snapshot:  snapshot.New(e.cfg.Snapshot, e.ocr, e.accessibility),
		diff:      diffbuilder.New(e.cfg.Diff).WithClassifier(e.classifier),
		episode:   episode.New(e.cfg.Episode),
		timeline:  timeline.New(e.cfg.Timeline),
		intel:     intelAgent,
		client:    client,
		transcript: transcript.NewPipeline(
			client,
			transcript.NewDeduper(transcript.DedupWindow),
			intelAgent,
			sink,
			e.logger,
		),
	}
}

func (e *Engine) finalizeState(ctx context.Context, mp *meetingPipeline, s state.ScreenState) {
	if err := e.store.SaveScreenState(ctx, s); err != nil {
		e.logger.Warn("persist screen state failed", zap.Error(err))
	}

	result := mp.episode.ProcessState(episode.State{
		StateID:     s.StateID,
		StartTS:     s.StartTS,
		EndTS:       s.EndTS,
		AppName:     s.AppName,
		WindowTitle: s.WindowTitle,
		PHash:       s.PHash,
	})
	if result.Kind == episode.ResultInactive {
		return
	}

	mp.currentEpisodeID = result.EpisodeID
	if result.CompletedEpisode != nil {
		e.finalizeEpisode(ctx, mp, *result.CompletedEpisode)
	}
}

func (e *Engine) finalizeEpisode(ctx context.Context, mp *meetingPipeline, ep episode.DocumentEpisode) {
	if err := e.store.SaveEpisode(ctx, ep); err != nil {
		e.logger.Warn("persist episode failed", zap.Error(err))
	}

	mp.timeline.ProcessEpisode(timeline.Episode{
		EpisodeID:   ep.EpisodeID,
		StartTS:     ep.StartTS,
		EndTS:       ep.EndTS,
		AppName:     ep.AppName,
		WindowTitle: ep.WindowTitle,
		StateCount:  ep.StateCount,
	})
	e.drainTimelineEvents(ctx, mp)
}

func (e *Engine) maybeCheckpointSnapshot(ctx context.Context, mp *meetingPipeline, frame state.Frame) {
	var episodeID *uuid.UUID
	if mp.currentEpisodeID != uuid.Nil {
		id := mp.currentEpisodeID
		episodeID = &id
	}
	if !mp.snapshot.ShouldCheckpoint(episodeID, frame.Timestamp) {
		return
	}

	var stateIDPtr *uuid.UUID
	if stateID, ok := mp.state.CurrentStateID(); ok {
		stateIDPtr = &stateID
	}

	result := mp.snapshot.ExtractFromImage(ctx, frame.Image, episodeID, stateIDPtr, frame.Timestamp)
	if result.Kind != snapshot.ResultSuccess {
		return
	}
	mp.snapshot.RecordCheckpoint(episodeID, frame.Timestamp)

	if err := e.store.SaveTextSnapshot(ctx, *result.Snapshot); err != nil {
		e.logger.Warn("persist text snapshot failed", zap.Error(err))
	}

	if mp.lastSnapshotText != "" && episodeID != nil {
		diff := mp.diff.ComputeDiff(mp.lastSnapshotText, result.Snapshot.Text, *episodeID, frame.Timestamp)
		mp.diff.Refine(ctx, &diff, mp.lastSnapshotText, result.Snapshot.Text)
		if err := e.store.SaveTextDiff(ctx, diff); err != nil {
			e.logger.Warn("persist text diff failed", zap.Error(err))
		}
		mp.timeline.ProcessChange(diff.ChangeType, diff.LinesAdded, diff.LinesRemoved, *episodeID, frame.Timestamp)
		e.drainTimelineEvents(ctx, mp)
	}
	mp.lastSnapshotText = result.Snapshot.Text
}

func (e *Engine) drainTimelineEvents(ctx context.Context, mp *meetingPipeline) {
	events := mp.timeline.Events()
	for _, ev := range events[mp.publishedTimelineEvents:] {
		if err := e.store.SaveTimelineEvent(ctx, ev); err != nil {
			e.logger.Warn("persist timeline event failed", zap.Error(err))
		}
		e.bus.PublishTimelineEvent(mp.meetingID, ev)
		metrics.TimelineEventsTotal.WithLabelValues(mp.meetingID.String(), ev.EventType.String()).Inc()
	}
	mp.publishedTimelineEvents = len(events)
}

func (e *Engine) startTranscriptLoops(mp *meetingPipeline) {
	if mp.cancel != nil {
		return // already running
	}

	if err := mp.client.StartWithRetry(context.Background()); err != nil {
		e.logger.Warn("stt connect failed after retries", zap.Error(err))
		metrics.STTReconnectAttemptsTotal.WithLabelValues(mp.meetingID.String(), "error").Inc()
		return
	}
	metrics.STTReconnectAttemptsTotal.WithLabelValues(mp.meetingID.String(), "ok").Inc()

	ctx, cancel := context.WithCancel(context.Background())
	group, gctx := errgroup.WithContext(ctx)
	mp.cancel = cancel
	mp.group = group

	group.Go(func() error { return mp.transcript.SendLoop(gctx) })
	group.Go(func() error { return mp.transcript.ReceiveLoop(gctx, mp.meetingID) })
}

func (e *Engine) stopTranscriptLoops(mp *meetingPipeline) {
	if mp.cancel == nil {
		return
	}
	mp.cancel()
	_ = mp.group.Wait()
	_ = mp.client.Stop()
	mp.cancel = nil
	mp.group = nil
}

// OnPaused implements mode.Callbacks: halts the active meeting's
// transcript connection and releases the sleep assertion.
func (e *Engine) OnPaused() {
	e.mu.Lock()
	mp := e.active
	e.mu.Unlock()

	if mp != nil {
		e.stopTranscriptLoops(mp)
	}
	if err := e.power.ReleaseSleepAssertion(); err != nil {
		e.logger.Warn("release sleep assertion failed", zap.Error(err))
	}
	e.bus.PublishModeChange(mode.ModePaused)
}

// OnAmbient implements mode.Callbacks: screen capture continues at a
// lower cadence (driven by the caller); audio transcription does not run
// in Ambient mode.
func (e *Engine) OnAmbient(intervalSecs int) {
	e.mu.Lock()
	mp := e.active
	e.mu.Unlock()

	if mp != nil {
		e.stopTranscriptLoops(mp)
	}
	if err := e.power.ReleaseSleepAssertion(); err != nil {
		e.logger.Warn("release sleep assertion failed", zap.Error(err))
	}
	e.bus.PublishModeChange(mode.ModeAmbient)
}

// OnMeeting implements mode.Callbacks: opens the STT connection for the
// active meeting and holds the OS idle-sleep assertion for its duration.
func (e *Engine) OnMeeting(intervalMs int) {
	e.mu.Lock()
	mp := e.active
	e.mu.Unlock()

	if mp != nil {
		e.startTranscriptLoops(mp)
	}
	if err := e.power.AcquireSleepAssertion(); err != nil {
		e.logger.Warn("acquire sleep assertion failed", zap.Error(err))
	}
	e.bus.PublishModeChange(mode.ModeMeeting)
}

// engineSink adapts the engine's Store/EventPublisher to transcript.Sink
// for one meeting.
type engineSink struct {
	engine    *Engine
	meetingID uuid.UUID
}

func (s *engineSink) PublishSegment(segment transcript.Segment) {
	s.engine.bus.PublishTranscriptSegment(s.meetingID, segment)
}

func (s *engineSink) PersistFinal(ctx context.Context, meetingID uuid.UUID, segment transcript.Segment) (uuid.UUID, error) {
	return s.engine.store.SaveTranscriptSegment(ctx, meetingID, segment)
}

func (s *engineSink) PublishInsight(event intel.Event) {
	s.engine.bus.PublishInsight(s.meetingID, event)
	metrics.LiveIntelEventsTotal.WithLabelValues(s.meetingID.String(), event.Kind.String()).Inc()
}
