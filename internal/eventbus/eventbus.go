// Package eventbus implements the UI event bus (spec §4.7/§4.13): an
// embedded MQTT broker the engine publishes timeline events, Live
// Intel insights, transcript segments, and mode transitions to, under
// topics scoped by meeting ID. The UI/command layer subscribes over
// the same broker rather than coupling directly to the pipeline's
// internal callbacks — the teacher's own `sendFunc`/`transportClient`
// abstraction in its websocket/gRPC control plane, generalized to a
// third transport.
package eventbus

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	mqtt "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"go.uber.org/zap"

	"github.com/nofriction/meetings-engine/internal/intel"
	"github.com/nofriction/meetings-engine/internal/mode"
	"github.com/nofriction/meetings-engine/internal/timeline"
	"github.com/nofriction/meetings-engine/internal/transcript"
)

// Bus embeds an MQTT broker and publishes engine output to it,
// implementing pipeline.EventPublisher. A UI or command-layer process
// subscribes over MQTT (TCP or websocket listener) rather than calling
// into the engine directly.
type Bus struct {
	server *mqtt.Server
	logger *zap.Logger
}

// New starts an embedded MQTT broker listening on addr (e.g.
// ":1883") and, if wsAddr is non-empty, a second websocket listener
// for browser-based subscribers.
func New(addr, wsAddr string, logger *zap.Logger) (*Bus, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	server := mqtt.New(nil)
	if err := server.AddHook(new(auth.AllowHook), nil); err != nil {
		return nil, fmt.Errorf("eventbus: install auth hook: %w", err)
	}

	tcp := listeners.NewTCP(listeners.Config{ID: "tcp", Address: addr})
	if err := server.AddListener(tcp); err != nil {
		return nil, fmt.Errorf("eventbus: add tcp listener: %w", err)
	}

	if wsAddr != "" {
		ws := listeners.NewWebsocket(listeners.Config{ID: "ws", Address: wsAddr})
		if err := server.AddListener(ws); err != nil {
			return nil, fmt.Errorf("eventbus: add websocket listener: %w", err)
		}
	}

	go func() {
		if err := server.Serve(); err != nil {
			logger.Error("mqtt broker stopped", zap.Error(err))
		}
	}()

	return &Bus{server: server, logger: logger}, nil
}

// Close stops the broker and disconnects every client.
func (b *Bus) Close() error {
	return b.server.Close()
}

func (b *Bus) publish(topic string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		b.logger.Warn("eventbus: marshal payload failed", zap.String("topic", topic), zap.Error(err))
		return
	}
	if err := b.server.Publish(topic, data, false, 0); err != nil {
		b.logger.Warn("eventbus: publish failed", zap.String("topic", topic), zap.Error(err))
	}
}

// PublishTimelineEvent implements pipeline.EventPublisher.
func (b *Bus) PublishTimelineEvent(meetingID uuid.UUID, e timeline.Event) {
	b.publish(topic(meetingID, "timeline"), e)
}

// PublishInsight implements pipeline.EventPublisher.
func (b *Bus) PublishInsight(meetingID uuid.UUID, e intel.Event) {
	b.publish(topic(meetingID, "intel"), e)
}

// PublishTranscriptSegment implements pipeline.EventPublisher.
func (b *Bus) PublishTranscriptSegment(meetingID uuid.UUID, seg transcript.Segment) {
	b.publish(topic(meetingID, "transcript"), seg)
}

// PublishModeChange implements pipeline.EventPublisher.
func (b *Bus) PublishModeChange(m mode.Mode) {
	b.publish("meeting/mode", map[string]string{"mode": m.String()})
}

func topic(meetingID uuid.UUID, suffix string) string {
	return fmt.Sprintf("meeting/%s/%s", meetingID, suffix)
}
