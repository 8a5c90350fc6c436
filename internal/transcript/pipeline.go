package transcript

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nofriction/meetings-engine/internal/intel"
)

// Sink is where the pipeline fans parsed segments and insights out to.
// The pipeline implementation (internal/pipeline) wires this to the UI
// event bus and the relational store.
type Sink interface {
	PublishSegment(segment Segment)
	PersistFinal(ctx context.Context, meetingID uuid.UUID, segment Segment) (uuid.UUID, error)
	PublishInsight(event intel.Event)
}

// Pipeline ties audio ingest, the STT client, persistence dedup, and the
// Live Intel Agent together for one meeting's transcript stream.
type Pipeline struct {
	client *Client
	dedup  *Deduper
	intel  *intel.Agent
	sink   Sink
	logger *zap.Logger

	batchCh   chan []int16
	remainder []int16
	dropCount atomic.Int64
}

// NewPipeline constructs a pipeline. logger may be nil, in which case
// drop-counter logging is skipped.
func NewPipeline(client *Client, dedup *Deduper, agent *intel.Agent, sink Sink, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		client:  client,
		dedup:   dedup,
		intel:   agent,
		sink:    sink,
		logger:  logger,
		batchCh: make(chan []int16, BatchChannelCapacity),
	}
}

// IngestAudio prepares one captured buffer (downmix/resample/requantize)
// and enqueues fixed-size frames onto the batch channel. A full channel
// drops the frame rather than blocking the capture callback; every 100th
// drop is logged.
func (p *Pipeline) IngestAudio(buf AudioBuffer) {
	prepared := Prepare(buf)
	combined := append(p.remainder, prepared...)
	chunks, remainder := ChunkFrames(combined, ChunkSamples)
	p.remainder = remainder

	for _, chunk := range chunks {
		select {
		case p.batchCh <- chunk:
		default:
			n := p.dropCount.Add(1)
			if n%100 == 0 {
				p.logger.Warn("transcript audio batch channel full, dropping frame", zap.Int64("dropped_total", n))
			}
		}
	}
}

// DroppedFrames returns the running count of frames dropped due to
// backpressure.
func (p *Pipeline) DroppedFrames() int64 {
	return p.dropCount.Load()
}

// SendLoop drains the batch channel and writes frames to the STT client
// until ctx is canceled or a send fails.
func (p *Pipeline) SendLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case chunk := <-p.batchCh:
			if err := p.client.SendAudio(chunk); err != nil {
				return err
			}
		}
	}
}

// ReceiveLoop reads STT responses, fans them to the UI sink, persists
// final segments with dedup, and runs them through the Live Intel Agent.
// It returns when the client disconnects or ctx is canceled.
func (p *Pipeline) ReceiveLoop(ctx context.Context, meetingID uuid.UUID) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		segment, ok, err := p.client.ReceiveOnce()
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		p.sink.PublishSegment(segment)

		if segment.IsFinal && segment.Text != "" {
			id := uuid.New()
			persistedID, isNew := p.dedup.CheckAndRecord(id, segment.Text, time.Now())
			if isNew {
				if _, err := p.sink.PersistFinal(ctx, meetingID, segment); err != nil {
					p.logger.Warn("failed to persist final transcript segment", zap.Error(err))
				}
			}
			_ = persistedID
		}

		if segment.IsFinal {
			for _, event := range p.intel.ProcessSegment(intel.Segment{
				Text:        segment.Text,
				Speaker:     segment.Speaker,
				TimestampMs: int64(segment.StartSeconds * 1000),
			}) {
				p.sink.PublishInsight(event)
			}
		}
	}
}
