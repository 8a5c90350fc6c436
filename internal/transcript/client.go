package transcript

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"
)

// Conn is the subset of *websocket.Conn the client needs; narrowed to an
// interface so tests can substitute a fake transport.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// Dialer opens a Conn to a streaming STT endpoint.
type Dialer interface {
	Dial(url string, header http.Header) (Conn, error)
}

// WebsocketDialer is the production Dialer, backed by gorilla/websocket.
type WebsocketDialer struct{}

func (WebsocketDialer) Dial(url string, header http.Header) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Config points the client at an STT endpoint shaped like Deepgram's
// streaming API: query-string model parameters, bearer-style API key
// header, JSON response frames.
type Config struct {
	Endpoint string
	APIKey   string
}

// Client streams audio to an STT service and parses its responses. The
// connection lifecycle is the explicit Disconnected/Connecting/Streaming
// state machine from spec §4.7: transitions only ever move forward via
// Start, or back to Disconnected via Stop, a handshake failure, or a
// read/write error.
type Client struct {
	config Config
	dialer Dialer

	mu    sync.Mutex
	state ConnState
	conn  Conn
}

// NewClient constructs a disconnected client.
func NewClient(config Config, dialer Dialer) *Client {
	if dialer == nil {
		dialer = WebsocketDialer{}
	}
	return &Client{config: config, dialer: dialer, state: StateDisconnected}
}

// State returns the current connection state.
func (c *Client) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start dials the STT endpoint. A valid key and endpoint move the
// connection Connecting -> Streaming; any dial error leaves it
// Disconnected. Reconnection is never automatic: callers retry by
// calling Start again.
func (c *Client) Start() error {
	c.mu.Lock()
	if c.config.APIKey == "" || c.config.Endpoint == "" {
		c.mu.Unlock()
		return fmt.Errorf("transcript: missing endpoint or api key")
	}
	c.state = StateConnecting
	c.mu.Unlock()

	header := http.Header{}
	header.Set("Authorization", "Token "+c.config.APIKey)

	conn, err := c.dialer.Dial(c.config.Endpoint, header)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state = StateDisconnected
		return fmt.Errorf("transcript: handshake failed: %w", err)
	}
	c.conn = conn
	c.state = StateStreaming
	return nil
}

// StartWithRetry calls Start up to 3 times with a jittered 50-500ms
// exponential backoff between attempts (spec §5/§7's transient-network
// retry policy), stopping early on the first success or if ctx is
// cancelled.
func (c *Client) StartWithRetry(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 50 * time.Millisecond
	bo.MaxInterval = 500 * time.Millisecond

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, c.Start()
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(3))
	return err
}

// Stop closes the connection and returns to Disconnected.
func (c *Client) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		c.state = StateDisconnected
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.state = StateDisconnected
	return err
}

// SendAudio writes one PCM frame to the socket. Only valid while
// Streaming.
func (c *Client) SendAudio(frame []int16) error {
	c.mu.Lock()
	conn := c.conn
	streaming := c.state == StateStreaming
	c.mu.Unlock()

	if !streaming || conn == nil {
		return fmt.Errorf("transcript: not streaming")
	}

	if err := conn.WriteMessage(websocket.BinaryMessage, EncodeLittleEndian(frame)); err != nil {
		c.mu.Lock()
		c.state = StateDisconnected
		c.conn = nil
		c.mu.Unlock()
		return fmt.Errorf("transcript: send failed: %w", err)
	}
	return nil
}

// ReceiveOnce reads and parses a single response frame. It returns
// ok=false for frames that don't carry a transcript (metadata frames,
// keepalives). A read error drops the connection to Disconnected.
func (c *Client) ReceiveOnce() (Segment, bool, error) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return Segment{}, false, fmt.Errorf("transcript: not connected")
	}

	_, data, err := conn.ReadMessage()
	if err != nil {
		c.mu.Lock()
		c.state = StateDisconnected
		c.conn = nil
		c.mu.Unlock()
		return Segment{}, false, err
	}

	return parseResponse(data)
}

type wireResponse struct {
	Channel  *wireChannel `json:"channel"`
	IsFinal  *bool        `json:"is_final"`
	Start    *float64     `json:"start"`
	Duration *float64     `json:"duration"`
}

type wireChannel struct {
	Alternatives []wireAlternative `json:"alternatives"`
}

type wireAlternative struct {
	Transcript string     `json:"transcript"`
	Confidence float64    `json:"confidence"`
	Words      []wireWord `json:"words"`
}

type wireWord struct {
	Word       string  `json:"word"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
	Speaker    *int    `json:"speaker"`
}

func parseResponse(data []byte) (Segment, bool, error) {
	var resp wireResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return Segment{}, false, fmt.Errorf("transcript: malformed response: %w", err)
	}

	if resp.Channel == nil || len(resp.Channel.Alternatives) == 0 {
		return Segment{}, false, nil
	}
	alt := resp.Channel.Alternatives[0]
	if alt.Transcript == "" {
		return Segment{}, false, nil
	}

	segment := Segment{
		Text:       alt.Transcript,
		Confidence: alt.Confidence,
	}
	if resp.IsFinal != nil {
		segment.IsFinal = *resp.IsFinal
	}
	if resp.Start != nil {
		segment.StartSeconds = *resp.Start
	}
	if resp.Duration != nil {
		segment.Duration = *resp.Duration
	}
	if len(alt.Words) > 0 && alt.Words[0].Speaker != nil {
		speaker := fmt.Sprintf("%d", *alt.Words[0].Speaker)
		segment.Speaker = &speaker
	}
	return segment, true, nil
}
