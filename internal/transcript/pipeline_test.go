package transcript

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nofriction/meetings-engine/internal/intel"
)

type fakeSink struct {
	mu        sync.Mutex
	segments  []Segment
	persisted []Segment
	insights  []intel.Event
}

func (f *fakeSink) PublishSegment(segment Segment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.segments = append(f.segments, segment)
}

func (f *fakeSink) PersistFinal(ctx context.Context, meetingID uuid.UUID, segment Segment) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.persisted = append(f.persisted, segment)
	return uuid.New(), nil
}

func (f *fakeSink) PublishInsight(event intel.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insights = append(f.insights, event)
}

func newTestPipeline(t *testing.T, conn Conn) (*Pipeline, *fakeSink) {
	t.Helper()
	client := NewClient(Config{Endpoint: "wss://example.test", APIKey: "key"}, fakeDialer{conn: conn})
	require.NoError(t, client.Start())
	sink := &fakeSink{}
	p := NewPipeline(client, NewDeduper(DedupWindow), intel.New(), sink, nil)
	return p, sink
}

func TestPipeline_IngestAudioChunksOntoBatchChannel(t *testing.T) {
	p, _ := newTestPipeline(t, &fakeConn{})

	p.IngestAudio(AudioBuffer{
		Samples:    make([]float32, ChunkSamples*2),
		SampleRate: TargetSampleRate,
		Channels:   1,
	})

	assert.Len(t, p.batchCh, 2)
	assert.Equal(t, int64(0), p.DroppedFrames())
}

func TestPipeline_IngestAudioDropsWhenChannelFull(t *testing.T) {
	p, _ := newTestPipeline(t, &fakeConn{})
	p.batchCh = make(chan []int16, 1)

	p.IngestAudio(AudioBuffer{
		Samples:    make([]float32, ChunkSamples*200),
		SampleRate: TargetSampleRate,
		Channels:   1,
	})

	assert.Greater(t, p.DroppedFrames(), int64(0))
}

func TestPipeline_ReceiveLoopPublishesAndPersistsFinal(t *testing.T) {
	msg := []byte(`{"channel":{"alternatives":[{"transcript":"we should ship this","confidence":0.9}]},"is_final":true,"start":0.0,"duration":1.0}`)
	conn := &fakeConn{readQueue: [][]byte{msg}}
	p, sink := newTestPipeline(t, conn)

	err := p.ReceiveLoop(context.Background(), uuid.New())
	assert.Error(t, err) // loop exits once the fake connection runs dry

	require.Len(t, sink.segments, 1)
	assert.Equal(t, "we should ship this", sink.segments[0].Text)
	require.Len(t, sink.persisted, 1)
}

func TestPipeline_ReceiveLoopSkipsNonTranscriptFrames(t *testing.T) {
	conn := &fakeConn{readQueue: [][]byte{[]byte(`{"type":"Metadata"}`)}}
	p, sink := newTestPipeline(t, conn)

	_ = p.ReceiveLoop(context.Background(), uuid.New())

	assert.Empty(t, sink.segments)
}

func TestPipeline_ReceiveLoopDeduplicatesRepeatedFinalText(t *testing.T) {
	msg := []byte(`{"channel":{"alternatives":[{"transcript":"let's circle back","confidence":0.9}]},"is_final":true}`)
	conn := &fakeConn{readQueue: [][]byte{msg, msg}}
	p, sink := newTestPipeline(t, conn)

	_ = p.ReceiveLoop(context.Background(), uuid.New())

	assert.Len(t, sink.segments, 2)
	assert.Len(t, sink.persisted, 1)
}

func TestPipeline_ReceiveLoopStopsOnCanceledContext(t *testing.T) {
	p, _ := newTestPipeline(t, &fakeConn{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.ReceiveLoop(ctx, uuid.New())
	assert.ErrorIs(t, err, context.Canceled)
}
