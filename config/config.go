// Package config parses and validates PluginConfig, the initialization
// record every plugin handle is built from.
package config

import (
	"encoding/json"
	"runtime"
	"time"

	"github.com/jrobhoward/rustbridge/rberr"
)

// LogLevel is the recognized set of log_level values.
type LogLevel string

const (
	LogLevelTrace LogLevel = "trace"
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
	LogLevelOff   LogLevel = "off"
)

func (l LogLevel) valid() bool {
	switch l {
	case LogLevelTrace, LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError, LogLevelOff, "":
		return true
	default:
		return false
	}
}

// PluginConfig is the recognized set of initialization options. Data and
// InitParams are deliberately kept as raw JSON and carried to the plugin
// author; the only part the core interprets is the optional "schemas"
// key of Data (see SchemaDocs).
type PluginConfig struct {
	WorkerThreads     *int            `json:"worker_threads,omitempty"`
	LogLevel          LogLevel        `json:"log_level,omitempty"`
	MaxConcurrentOps  int             `json:"max_concurrent_ops,omitempty"`
	ShutdownTimeoutMs int             `json:"shutdown_timeout_ms,omitempty"`
	Data              json.RawMessage `json:"data,omitempty"`
	InitParams        json.RawMessage `json:"init_params,omitempty"`
}

// defaultShutdownTimeoutMs is used when the host omits shutdown_timeout_ms.
// Five seconds matches a typical server shutdown grace period. See
// DESIGN.md for the reasoning.
const defaultShutdownTimeoutMs = 5000

// Default returns the configuration used when the host passes no bytes.
func Default() *PluginConfig {
	return &PluginConfig{
		LogLevel:          LogLevelInfo,
		MaxConcurrentOps:  0,
		ShutdownTimeoutMs: defaultShutdownTimeoutMs,
	}
}

// Parse decodes PluginConfig from the bytes plugin_init received. An empty
// or nil slice yields Default(). Malformed JSON or a rejected field value
// produces ConfigError(4).
func Parse(b []byte) (*PluginConfig, *rberr.Error) {
	if len(b) == 0 {
		return Default(), nil
	}

	cfg := Default()
	cfg.Data = nil
	cfg.InitParams = nil
	if err := json.Unmarshal(b, cfg); err != nil {
		return nil, rberr.Wrap(rberr.CodeConfigError, "malformed plugin config", err)
	}

	if !cfg.LogLevel.valid() {
		return nil, rberr.Newf(rberr.CodeConfigError, "unrecognized log_level %q", cfg.LogLevel)
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = LogLevelInfo
	}
	if cfg.MaxConcurrentOps < 0 {
		return nil, rberr.Newf(rberr.CodeConfigError, "max_concurrent_ops must be non-negative, got %d", cfg.MaxConcurrentOps)
	}
	if cfg.ShutdownTimeoutMs < 0 {
		return nil, rberr.Newf(rberr.CodeConfigError, "shutdown_timeout_ms must be non-negative, got %d", cfg.ShutdownTimeoutMs)
	}
	if cfg.WorkerThreads != nil && *cfg.WorkerThreads <= 0 {
		return nil, rberr.Newf(rberr.CodeConfigError, "worker_threads must be a positive integer, got %d", *cfg.WorkerThreads)
	}

	return cfg, nil
}

// WorkerCount resolves worker_threads to a concrete pool size: one per
// hardware thread when the host did not specify a value.
func (c *PluginConfig) WorkerCount() int {
	if c.WorkerThreads != nil {
		return *c.WorkerThreads
	}
	return runtime.NumCPU()
}

// ShutdownTimeout converts shutdown_timeout_ms to a time.Duration.
func (c *PluginConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutMs) * time.Millisecond
}

// Unbounded reports whether max_concurrent_ops disables the concurrency gate.
func (c *PluginConfig) Unbounded() bool {
	return c.MaxConcurrentOps == 0
}

// SchemaDocs extracts the per-tag JSON Schema documents a host may embed
// in the data block under a "schemas" key, mirroring the manifest API
// block's schema references:
//
//	{"data": {"schemas": {"echo": {"type": "object", ...}}}}
//
// The rest of data stays free-form and uninterpreted; a data block that
// is not a JSON object, or has no "schemas" key, simply yields no
// schemas. A "schemas" key that is present but not an object of
// documents is ConfigError(4).
func (c *PluginConfig) SchemaDocs() (map[string]string, *rberr.Error) {
	if len(c.Data) == 0 {
		return nil, nil
	}
	var outer map[string]json.RawMessage
	if err := json.Unmarshal(c.Data, &outer); err != nil {
		return nil, nil
	}
	raw, ok := outer["schemas"]
	if !ok {
		return nil, nil
	}
	var schemas map[string]json.RawMessage
	if err := json.Unmarshal(raw, &schemas); err != nil {
		return nil, rberr.Wrap(rberr.CodeConfigError, "data.schemas must map type tags to schema documents", err)
	}
	docs := make(map[string]string, len(schemas))
	for tag, doc := range schemas {
		docs[tag] = string(doc)
	}
	return docs, nil
}
