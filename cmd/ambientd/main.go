// Command ambientd runs the ambient meeting intelligence capture
// engine: it wires the relational store, the optional vector store and
// LLM adapter, the embedded MQTT event bus, and the dual-transport
// control plane into one pipeline.Engine and serves it until
// terminated.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/nofriction/meetings-engine/internal/api"
	"github.com/nofriction/meetings-engine/internal/collab/audiocap"
	"github.com/nofriction/meetings-engine/internal/collab/fsstore"
	"github.com/nofriction/meetings-engine/internal/config"
	"github.com/nofriction/meetings-engine/internal/diffbuilder"
	"github.com/nofriction/meetings-engine/internal/eventbus"
	"github.com/nofriction/meetings-engine/internal/llmclient"
	"github.com/nofriction/meetings-engine/internal/pipeline"
	"github.com/nofriction/meetings-engine/internal/store"
	"github.com/nofriction/meetings-engine/internal/transcript"
	"github.com/nofriction/meetings-engine/internal/vectorstore"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (optional; env vars and defaults apply otherwise)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ambientd: config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ambientd: logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, cfg, logger); err != nil {
		logger.Fatal("ambientd exited with error", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.Set(level); err != nil {
		lvl = zapcore.InfoLevel
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

func run(ctx context.Context, configPath string, cfg *config.AppConfig, logger *zap.Logger) error {
	st, err := store.Connect(ctx, cfg.Store.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("connect store: %w", err)
	}
	defer st.Close()
	if err := st.Migrate(cfg.Store.DatabaseURL); err != nil {
		return fmt.Errorf("migrate store: %w", err)
	}

	var vecIndex vectorstore.Index = vectorstore.NoopIndex{}
	if cfg.VectorStore.DatabaseURL != "" {
		vs, err := vectorstore.New(ctx, cfg.VectorStore.DatabaseURL, cfg.VectorStore.EmbeddingDimensions)
		if err != nil {
			return fmt.Errorf("connect vector store: %w", err)
		}
		defer vs.Close()
		vecIndex = vs
	}

	var classifier diffbuilder.SemanticClassifier
	if cfg.LLM.Backend != "" {
		var opts []anyllmlib.Option
		if cfg.LLM.APIKey != "" {
			opts = append(opts, anyllmlib.WithAPIKey(cfg.LLM.APIKey))
		}
		if cfg.LLM.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(cfg.LLM.BaseURL))
		}
		provider, err := llmclient.New(cfg.LLM.Backend, cfg.LLM.Model, opts...)
		if err != nil {
			return fmt.Errorf("create llm client: %w", err)
		}
		classifier, err = llmclient.NewClassifier(provider, cfg.LLM.Model, cfg.LLM.ClassifierCache)
		if err != nil {
			return fmt.Errorf("create diff classifier: %w", err)
		}
	}

	bus, err := eventbus.New(cfg.EventBus.ListenAddr, cfg.EventBus.WebsocketAddr, logger)
	if err != nil {
		return fmt.Errorf("start event bus: %w", err)
	}
	defer bus.Close()

	fs, err := fsstore.New(cfg.FSStore.DataDir)
	if err != nil {
		return fmt.Errorf("create filesystem store: %w", err)
	}

	engine := pipeline.New(
		cfg.Pipeline,
		st,
		bus,
		nil, // ocr: no OS implementation wired in this build
		nil, // accessibility: no OS implementation wired in this build
		transcript.WebsocketDialer{},
		classifier,
		nil, // idleProbe: platform-specific, not wired in this build
		nil, // sleepAssertion: platform-specific, not wired in this build
		logger,
	)

	dismissedToday, err := st.LoadDismissalsForDay(ctx, time.Now())
	if err != nil {
		logger.Warn("loading dismissed suggestions failed, starting with none", zap.Error(err))
	} else {
		engine.Trigger().LoadDismissed(dismissedToday, time.Now())
	}
	engine.Trigger().SetPersister(st)

	mic, err := audiocap.New()
	if err != nil {
		logger.Warn("microphone capture unavailable", zap.Error(err))
	} else {
		defer mic.Close()
		if err := mic.Start(ctx); err != nil {
			logger.Warn("microphone capture failed to start", zap.Error(err))
		} else {
			go func() {
				for buf := range mic.Chunks() {
					if err := engine.IngestAudio(buf); err != nil {
						logger.Debug("audio ingest dropped", zap.Error(err))
					}
				}
			}()
		}
	}

	if configPath != "" {
		watcher, err := config.Watch(configPath, logger)
		if err != nil {
			logger.Warn("config hot-reload disabled", zap.Error(err))
		} else {
			defer watcher.Close()
		}
	}

	server := api.NewServer(api.Config{
		WebsocketAddr: cfg.Server.WebsocketAddr,
		GRPCAddr:      cfg.Server.GRPCAddr,
		HTTPAddr:      cfg.Server.HTTPAddr,
	}, engine, st, fs, vecIndex, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if engine.Mode().String() == "meeting" {
			_ = engine.EndMeeting(shutdownCtx)
		}
		return nil
	case err := <-errCh:
		return err
	}
}
