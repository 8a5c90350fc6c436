// Package api implements the dual-transport control plane spec §6
// names: a websocket JSON transport and a gRPC transport carrying the
// same Message envelope, both dispatching to the same handful of
// pipeline operations, plus an HTTP admin surface for health and
// Prometheus metrics.
//
// Grounded on the teacher's internal/api/server.go: the
// transportClient/wsClient/grpcClient abstraction that lets one
// processMessage switch serve both transports is kept almost verbatim,
// narrowed from dozens of session/model/voiceprint operations down to
// the nine operations handled in processMessage.
package api

import (
	"context"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nofriction/meetings-engine/internal/collab/fsstore"
	"github.com/nofriction/meetings-engine/internal/pipeline"
	"github.com/nofriction/meetings-engine/internal/store"
	"github.com/nofriction/meetings-engine/internal/vectorstore"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type sendFunc func(Message) error

type transportClient interface {
	Send(Message) error
	Close() error
}

type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(msg)
}

func (c *wsClient) Close() error {
	return c.conn.Close()
}

type grpcClient struct {
	stream Control_StreamServer
	mu     sync.Mutex
}

func (c *grpcClient) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stream.Send(&msg)
}

func (c *grpcClient) Close() error {
	return nil
}

// Config holds the control plane's listen addresses, filled in from
// config.AppConfig.Server.
type Config struct {
	WebsocketAddr string
	GRPCAddr      string
	HTTPAddr      string
}

// Server owns the engine and the persistence/filesystem layers the
// control plane's operations read from, and fans every operation out
// to however many transport clients (websocket or gRPC) are attached.
type Server struct {
	UnimplementedControlServer

	cfg     Config
	engine  *pipeline.Engine
	store   *store.Store
	fs      *fsstore.Store
	vectors vectorstore.Index
	logger  *zap.Logger

	clients map[transportClient]bool
	mu      sync.Mutex
}

// NewServer wires the control plane to its engine and persistence
// layers. store and fs may be nil in configurations that run without a
// database or filesystem layout (tests, or a pure in-memory replay);
// vectors defaults to vectorstore.NoopIndex when nil.
func NewServer(cfg Config, engine *pipeline.Engine, st *store.Store, fs *fsstore.Store, vectors vectorstore.Index, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if vectors == nil {
		vectors = vectorstore.NoopIndex{}
	}
	return &Server{
		cfg:     cfg,
		engine:  engine,
		store:   st,
		fs:      fs,
		vectors: vectors,
		logger:  logger,
		clients: make(map[transportClient]bool),
	}
}

// Start runs the websocket listener, the gRPC listener, and the HTTP
// admin surface. It blocks on the websocket/HTTP listener; callers
// that want it backgrounded should run it in a goroutine.
func (s *Server) Start() error {
	go s.startGRPCServer()
	go s.startAdminServer()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)

	addr := s.cfg.WebsocketAddr
	if addr == "" {
		addr = ":8080"
	}
	s.logger.Info("websocket control plane listening", zap.String("addr", addr))
	return http.ListenAndServe(addr, mux)
}

// startAdminServer serves /healthz and /metrics over gin, per spec §6's
// "HTTP admin endpoints (health, metrics)".
func (s *Server) startAdminServer() {
	addr := s.cfg.HTTPAddr
	if addr == "" {
		addr = ":8081"
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		if s.store != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := s.store.HealthCheck(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "mode": s.engine.Mode().String()})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.logger.Info("admin HTTP listening", zap.String("addr", addr))
	if err := router.Run(addr); err != nil {
		s.logger.Warn("admin HTTP server stopped", zap.Error(err))
	}
}

// broadcast sends msg to every attached client, including the one whose
// request produced it, so that client receives the reply exactly once.
func (s *Server) broadcast(msg Message) {
	s.mu.Lock()
	targets := make([]transportClient, 0, len(s.clients))
	for c := range s.clients {
		targets = append(targets, c)
	}
	s.mu.Unlock()

	for _, c := range targets {
		if err := c.Send(msg); err != nil {
			s.logger.Warn("client send failed, dropping", zap.Error(err))
			s.removeClient(c)
		}
	}
}

func (s *Server) addClient(c transportClient) {
	s.mu.Lock()
	s.clients[c] = true
	s.mu.Unlock()
}

func (s *Server) removeClient(c transportClient) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
	_ = c.Close()
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &wsClient{conn: conn}
	s.addClient(client)
	defer s.removeClient(client)

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		s.processMessage(r.Context(), client.Send, msg)
	}
}

// Stream implements the gRPC bidirectional stream, mirroring the
// websocket handler's read/dispatch loop.
func (s *Server) Stream(stream Control_StreamServer) error {
	client := &grpcClient{stream: stream}
	s.addClient(client)
	defer s.removeClient(client)

	for {
		msg, err := stream.Recv()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if msg == nil {
			continue
		}
		s.processMessage(stream.Context(), client.Send, *msg)
	}
}

func (s *Server) processMessage(ctx context.Context, send sendFunc, msg Message) {
	switch msg.Type {

	case "start_meeting":
		meetingID := msg.MeetingID
		if meetingID == uuid.Nil {
			meetingID = uuid.New()
		}
		if err := s.engine.StartMeeting(ctx, meetingID); err != nil {
			send(Message{Type: "error", Error: err.Error()})
			return
		}
		now := time.Now()
		reply := Message{Type: "meeting_started", MeetingID: meetingID, StartedAt: &now}
		s.broadcast(reply)

	case "stop_recording":
		if err := s.engine.EndMeeting(ctx); err != nil {
			send(Message{Type: "error", Error: err.Error()})
			return
		}
		reply := Message{Type: "meeting_ended"}
		s.broadcast(reply)

	case "pause":
		s.engine.Pause()
		reply := Message{Type: "mode_changed", Mode: s.engine.Mode().String()}
		s.broadcast(reply)

	case "resume":
		s.engine.Resume()
		reply := Message{Type: "mode_changed", Mode: s.engine.Mode().String()}
		s.broadcast(reply)

	case "get_timeline_events":
		if s.store == nil {
			send(Message{Type: "error", Error: "relational store not configured"})
			return
		}
		events, err := s.store.ListTimelineEvents(ctx, msg.MeetingID)
		if err != nil {
			send(Message{Type: "error", Error: err.Error()})
			return
		}
		send(Message{Type: "timeline_events", MeetingID: msg.MeetingID, Events: events})

	case "search_transcripts":
		if s.store == nil {
			send(Message{Type: "error", Error: "relational store not configured"})
			return
		}
		limit := msg.Limit
		if limit <= 0 {
			limit = 50
		}
		results, err := s.store.Search(ctx, msg.MeetingID, msg.Query, limit)
		if err != nil {
			send(Message{Type: "error", Error: err.Error()})
			return
		}
		send(Message{Type: "search_results", Query: msg.Query, Results: results})

	case "preview_delete":
		if s.store == nil {
			send(Message{Type: "error", Error: "relational store not configured"})
			return
		}
		previews, err := s.store.PreviewDelete(ctx, msg.MeetingIDs)
		if err != nil {
			send(Message{Type: "error", Error: err.Error()})
			return
		}
		send(Message{Type: "delete_preview", Previews: previews})

	case "delete_meetings":
		if s.store == nil {
			send(Message{Type: "error", Error: "relational store not configured"})
			return
		}
		deleted := make([]uuid.UUID, 0, len(msg.MeetingIDs))
		for _, id := range msg.MeetingIDs {
			if s.fs != nil {
				p := s.fs.AudioPath(id)
				if err := s.fs.ValidateForDelete(p); err == nil {
					_ = os.RemoveAll(p)
				}
			}
			if err := s.store.DeleteMeeting(ctx, id); err != nil {
				send(Message{Type: "error", Error: err.Error()})
				continue
			}
			deleted = append(deleted, id)
		}
		send(Message{Type: "deleted", Deleted: deleted})

	case "semantic_search":
		topK := msg.TopK
		if topK <= 0 {
			topK = 10
		}
		results, err := s.vectors.Query(ctx, msg.QueryEmbedding, msg.MeetingID.String(), topK)
		if err != nil {
			send(Message{Type: "error", Error: err.Error()})
			return
		}
		send(Message{Type: "semantic_results", VectorResults: results})

	default:
		send(Message{Type: "error", Error: "unknown operation: " + msg.Type})
	}
}
