package api

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

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

// fakeStore/fakeBus satisfy pipeline.Store/pipeline.EventPublisher with
// no-ops, the same role engine_test.go's fakes play inside the
// pipeline package itself.
type fakeStore struct{}

func (fakeStore) SaveMeeting(context.Context, uuid.UUID, time.Time) error { return nil }
func (fakeStore) EndMeeting(context.Context, uuid.UUID, time.Time) error  { return nil }
func (fakeStore) SaveScreenState(context.Context, state.ScreenState) error { return nil }
func (fakeStore) SaveTextSnapshot(context.Context, snapshot.TextSnapshot) error { return nil }
func (fakeStore) SaveTextDiff(context.Context, diffbuilder.TextDiff) error { return nil }
func (fakeStore) SaveEpisode(context.Context, episode.DocumentEpisode) error { return nil }
func (fakeStore) SaveTimelineEvent(context.Context, timeline.Event) error { return nil }
func (fakeStore) SaveTranscriptSegment(context.Context, uuid.UUID, transcript.Segment) (uuid.UUID, error) {
	return uuid.New(), nil
}

type fakeBus struct{}

func (fakeBus) PublishTimelineEvent(uuid.UUID, timeline.Event)         {}
func (fakeBus) PublishInsight(uuid.UUID, intel.Event)                  {}
func (fakeBus) PublishTranscriptSegment(uuid.UUID, transcript.Segment) {}
func (fakeBus) PublishModeChange(mode.Mode)                            {}

// jsonClient is a lightweight gRPC JSON client for the Control stream,
// grounded on the teacher's own server_test.go jsonClient.
type jsonClient struct {
	conn   *grpc.ClientConn
	stream grpc.ClientStream
}

func newJSONClient(t *testing.T, addr string) *jsonClient {
	t.Helper()

	conn, err := grpc.NewClient(
		addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(jsonCodec{})),
		grpc.WithContextDialer(func(ctx context.Context, addr string) (net.Conn, error) {
			if len(addr) > 5 && addr[:5] == "unix:" {
				return net.DialTimeout("unix", addr[5:], 3*time.Second)
			}
			return net.DialTimeout("tcp", addr, 3*time.Second)
		}),
	)
	require.NoError(t, err)

	stream, err := conn.NewStream(context.Background(), &_Control_serviceDesc.Streams[0], "/meetings.Control/Stream")
	require.NoError(t, err)

	return &jsonClient{conn: conn, stream: stream}
}

func (c *jsonClient) send(msg Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	var any interface{}
	if err := json.Unmarshal(raw, &any); err != nil {
		return err
	}
	return c.stream.SendMsg(any)
}

func (c *jsonClient) recv(timeout time.Duration) (Message, error) {
	var msg Message
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- c.stream.RecvMsg(&msg) }()
	select {
	case err := <-done:
		return msg, err
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

func (c *jsonClient) close() {
	_ = c.stream.CloseSend()
	_ = c.conn.Close()
}

func startTestServer(t *testing.T, socketPath string) *Server {
	t.Helper()

	engine := pipeline.New(pipeline.DefaultConfig(), fakeStore{}, fakeBus{}, nil, nil, nil, nil, nil, nil, nil)
	s := NewServer(Config{GRPCAddr: "unix:" + socketPath}, engine, nil, nil, nil, nil)

	go s.startGRPCServer()
	time.Sleep(300 * time.Millisecond)
	return s
}

func TestControlStream_StartMeetingAndPause(t *testing.T) {
	socket := t.TempDir() + "/meetings-engine-test.sock"
	s := startTestServer(t, socket)

	client := newJSONClient(t, s.cfg.GRPCAddr)
	defer client.close()

	require.NoError(t, client.send(Message{Type: "start_meeting"}))
	msg, err := client.recv(2 * time.Second)
	require.NoError(t, err)
	require.Equal(t, "meeting_started", msg.Type)
	require.NotEqual(t, uuid.Nil, msg.MeetingID)

	require.NoError(t, client.send(Message{Type: "pause"}))
	msg, err = client.recv(2 * time.Second)
	require.NoError(t, err)
	require.Equal(t, "mode_changed", msg.Type)
	require.Equal(t, "paused", msg.Mode)
}

func TestControlStream_UnknownOperation(t *testing.T) {
	socket := t.TempDir() + "/meetings-engine-test-unknown.sock"
	s := startTestServer(t, socket)

	client := newJSONClient(t, s.cfg.GRPCAddr)
	defer client.close()

	require.NoError(t, client.send(Message{Type: "do_a_barrel_roll"}))
	msg, err := client.recv(2 * time.Second)
	require.NoError(t, err)
	require.Equal(t, "error", msg.Type)
}
