package eventbus

import (
	"fmt"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// MessageHandler receives one published event: the topic it arrived
// on and the raw JSON payload Bus.publish marshaled.
type MessageHandler func(topic string, payload []byte)

// Subscriber is a paho client consuming Bus's published events,
// grounded on LumenPrima-tr-engine's internal/mqttclient.Client: the
// UI/command layer's half of the "one more transportClient" pairing
// named in spec §4.13, kept separate from Bus (the broker side) since
// the two run in different processes in production.
type Subscriber struct {
	conn      paho.Client
	connected atomic.Bool
	logger    *zap.Logger
	handler   MessageHandler
}

// SubscriberOptions configures a Subscriber connection.
type SubscriberOptions struct {
	BrokerURL string
	ClientID  string
	Topics    []string
}

// NewSubscriber connects to a broker (typically Bus's own TCP
// listener) and subscribes to opts.Topics, invoking handler for every
// message. If opts.Topics is empty, it subscribes to "meeting/#".
func NewSubscriber(opts SubscriberOptions, handler MessageHandler, logger *zap.Logger) (*Subscriber, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	topics := opts.Topics
	if len(topics) == 0 {
		topics = []string{"meeting/#"}
	}

	s := &Subscriber{logger: logger, handler: handler}

	clientOpts := paho.NewClientOptions().
		AddBroker(opts.BrokerURL).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOrderMatters(false).
		SetOnConnectHandler(s.onConnect(topics)).
		SetConnectionLostHandler(s.onConnectionLost).
		SetDefaultPublishHandler(s.onMessage)

	s.conn = paho.NewClient(clientOpts)
	token := s.conn.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("eventbus: subscriber connect: %w", err)
	}
	return s, nil
}

func (s *Subscriber) onConnect(topics []string) paho.OnConnectHandler {
	return func(client paho.Client) {
		s.connected.Store(true)
		filters := make(map[string]byte, len(topics))
		for _, t := range topics {
			filters[t] = 0
		}
		token := client.SubscribeMultiple(filters, nil)
		token.Wait()
		if err := token.Error(); err != nil {
			s.logger.Error("eventbus: subscribe failed", zap.Error(err))
		}
	}
}

func (s *Subscriber) onConnectionLost(_ paho.Client, err error) {
	s.connected.Store(false)
	s.logger.Warn("eventbus: subscriber connection lost, reconnecting", zap.Error(err))
}

func (s *Subscriber) onMessage(_ paho.Client, msg paho.Message) {
	if s.handler != nil {
		s.handler(msg.Topic(), msg.Payload())
	}
}

// IsConnected reports whether the subscriber currently holds a live
// connection to the broker.
func (s *Subscriber) IsConnected() bool {
	return s.connected.Load()
}

// Close disconnects from the broker.
func (s *Subscriber) Close() {
	s.conn.Disconnect(1000)
}
