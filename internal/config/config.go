// Package config loads AppConfig from a YAML file plus environment
// variable overrides, and optionally hot-reloads the subset of settings
// that are safe to change on a live engine (capture intervals and
// thresholds) — spec §9 (SPEC_FULL.md).
package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/spf13/viper"
)

const envPrefix = "MEETINGS"

var current atomic.Pointer[AppConfig]

// Get returns the most recently loaded config, or DefaultConfig if
// Load has never been called.
func Get() *AppConfig {
	if c := current.Load(); c != nil {
		return c
	}
	d := DefaultConfig()
	current.Store(d)
	return d
}

// Load reads configPath (a config.yaml) if present, overlays
// MEETINGS_-prefixed environment variables, and falls back to
// DefaultConfig's values for anything unset. The result is stored in
// the package-level atomic pointer and returned.
func Load(configPath string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	applyDefaults(v, DefaultConfig())

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", configPath, err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("config: reading config.yaml: %w", err)
			}
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	current.Store(cfg)
	return cfg, nil
}

// applyDefaults registers every ambient-stack leaf with viper so
// AutomaticEnv binds even when no config file is present, matching
// tokenman's setViperDefaults. The per-component capture thresholds
// nested under Pipeline come from each component's own DefaultConfig
// and are left to struct-tag unmarshalling rather than being
// individually registered here.
func applyDefaults(v *viper.Viper, d *AppConfig) {
	v.SetDefault("store.database_url", d.Store.DatabaseURL)

	v.SetDefault("vector_store.database_url", d.VectorStore.DatabaseURL)
	v.SetDefault("vector_store.embedding_dimensions", d.VectorStore.EmbeddingDimensions)

	v.SetDefault("llm.backend", d.LLM.Backend)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.api_key", d.LLM.APIKey)
	v.SetDefault("llm.base_url", d.LLM.BaseURL)
	v.SetDefault("llm.classifier_cache_size", d.LLM.ClassifierCache)

	v.SetDefault("event_bus.listen_addr", d.EventBus.ListenAddr)
	v.SetDefault("event_bus.websocket_addr", d.EventBus.WebsocketAddr)

	v.SetDefault("fs_store.data_dir", d.FSStore.DataDir)

	v.SetDefault("server.websocket_addr", d.Server.WebsocketAddr)
	v.SetDefault("server.grpc_addr", d.Server.GRPCAddr)
	v.SetDefault("server.http_addr", d.Server.HTTPAddr)

	v.SetDefault("log_level", d.LogLevel)
}

func defaultGRPCAddress() string {
	if runtime.GOOS == "windows" {
		return `npipe:\\.\pipe\meetings-engine-grpc`
	}
	return fmt.Sprintf("unix:%s/meetings-engine-grpc.sock", os.TempDir())
}
