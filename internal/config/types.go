package config

import "github.com/nofriction/meetings-engine/internal/pipeline"

// AppConfig is the top-level configuration (spec §9, SPEC_FULL.md §9):
// the pipeline's own per-component config plus the ambient stack
// (store DSNs, the LLM/event-bus backends, filesystem layout, and the
// control-plane listen addresses).
type AppConfig struct {
	Pipeline pipeline.Config `mapstructure:"pipeline"`

	Store       StoreConfig       `mapstructure:"store"`
	VectorStore VectorStoreConfig `mapstructure:"vector_store"`
	LLM         LLMConfig         `mapstructure:"llm"`
	EventBus    EventBusConfig    `mapstructure:"event_bus"`
	FSStore     FSStoreConfig     `mapstructure:"fs_store"`
	Server      ServerConfig      `mapstructure:"server"`
	LogLevel    string            `mapstructure:"log_level"`
}

// StoreConfig configures the PostgreSQL relational store (spec §4.10).
type StoreConfig struct {
	DatabaseURL string `mapstructure:"database_url"`
}

// VectorStoreConfig configures the optional pgvector semantic index
// (spec §4.11). DatabaseURL empty means "unconfigured": the engine
// wires in vectorstore.NoopIndex instead.
type VectorStoreConfig struct {
	DatabaseURL         string `mapstructure:"database_url"`
	EmbeddingDimensions int    `mapstructure:"embedding_dimensions"`
}

// LLMConfig configures the optional LLM adapter (spec §4.12). Backend
// empty means "unconfigured": no LLM client or semantic classifier is
// created, and diff classification falls back to the heuristic tag.
type LLMConfig struct {
	Backend          string `mapstructure:"backend"` // "openai", "anthropic", "gemini", "ollama"
	Model            string `mapstructure:"model"`
	APIKey           string `mapstructure:"api_key"`
	BaseURL          string `mapstructure:"base_url"`
	ClassifierCache  int    `mapstructure:"classifier_cache_size"`
}

// EventBusConfig configures the embedded MQTT broker (spec §4.13).
type EventBusConfig struct {
	ListenAddr   string `mapstructure:"listen_addr"`
	WebsocketAddr string `mapstructure:"websocket_addr"`
}

// FSStoreConfig configures the keyframe/audio/video filesystem layout
// (spec §6.10).
type FSStoreConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

// ServerConfig configures the dual-transport control plane (spec §6):
// websocket + gRPC + HTTP admin endpoints.
type ServerConfig struct {
	WebsocketAddr string `mapstructure:"websocket_addr"`
	GRPCAddr      string `mapstructure:"grpc_addr"`
	HTTPAddr      string `mapstructure:"http_addr"`
}

// DefaultConfig composes every component's own defaults, matching
// pipeline.DefaultConfig plus sane out-of-the-box ambient settings.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Pipeline: pipeline.DefaultConfig(),
		Store: StoreConfig{
			DatabaseURL: "postgres://localhost:5432/meetings?sslmode=disable",
		},
		VectorStore: VectorStoreConfig{
			EmbeddingDimensions: 1536,
		},
		LLM: LLMConfig{
			ClassifierCache: 256,
		},
		EventBus: EventBusConfig{
			ListenAddr: ":1883",
		},
		FSStore: FSStoreConfig{
			DataDir: "data",
		},
		Server: ServerConfig{
			WebsocketAddr: ":8080",
			GRPCAddr:      defaultGRPCAddress(),
			HTTPAddr:      ":8081",
		},
		LogLevel: "info",
	}
}
