// Package config loads the kiosk configuration from YAML and validates
// it against an embedded CUE schema before any component starts.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// Config is the fully resolved kiosk configuration.
type Config struct {
	Gateway      GatewayConfig      `yaml:"gateway"`
	Database     DatabaseConfig     `yaml:"database"`
	Auth         AuthConfig         `yaml:"auth"`
	Sync         SyncConfig         `yaml:"sync"`
	Keepalive    KeepaliveConfig    `yaml:"keepalive"`
	Session      SessionConfig      `yaml:"session"`
	Connectivity ConnectivityConfig `yaml:"connectivity"`
	Heartbeat    HeartbeatConfig    `yaml:"heartbeat"`
	Status       StatusConfig       `yaml:"status"`
}

// GatewayConfig locates the remote action gateway.
type GatewayConfig struct {
	URL     string `yaml:"url"`
	EventID string `yaml:"event_id"`
}

// DatabaseConfig locates the durable queue database.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig locates the provisioned credential the keepalive refresher
// re-reads on each cycle.
type AuthConfig struct {
	TokenFile string `yaml:"token_file"`
}

// SyncConfig tunes the sync engine.
type SyncConfig struct {
	Interval Duration `yaml:"interval"`
}

// KeepaliveConfig tunes the credential refresher.
type KeepaliveConfig struct {
	Interval Duration `yaml:"interval"`
}

// SessionConfig tunes the worker session.
type SessionConfig struct {
	InactivityTimeout Duration `yaml:"inactivity_timeout"`
}

// ConnectivityConfig tunes the reachability prober. An empty ProbeURL
// defaults to the gateway health endpoint.
type ConnectivityConfig struct {
	ProbeURL      string   `yaml:"probe_url"`
	ProbeInterval Duration `yaml:"probe_interval"`
}

// HeartbeatConfig tunes the presence heartbeat.
type HeartbeatConfig struct {
	Interval Duration `yaml:"interval"`
}

// StatusConfig enables the read-only status endpoint when ListenAddr is
// non-empty.
type StatusConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// Duration is a time.Duration that unmarshals from YAML strings like
// "30s" or "5m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Load reads, validates, and resolves the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse validates raw YAML against the CUE schema and decodes it.
// Schema defaults are applied before decoding, so optional sections may
// be omitted entirely.
func Parse(data []byte) (*Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	resolved, err := validate(raw)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(resolved, &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.Connectivity.ProbeURL == "" {
		cfg.Connectivity.ProbeURL = cfg.Gateway.URL + "/api/kiosk/health"
	}

	return &cfg, nil
}

// validate unifies the raw document with the embedded schema, checks it,
// and re-serializes the result so schema defaults are materialized.
func validate(raw map[string]any) ([]byte, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE)
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile config schema: %w", err)
	}

	doc := ctx.Encode(raw)
	if err := doc.Err(); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}

	merged := schema.Unify(doc)
	if err := merged.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %s", cueerrors.Details(err, nil))
	}

	var resolved map[string]any
	if err := merged.Decode(&resolved); err != nil {
		return nil, fmt.Errorf("resolve config defaults: %w", err)
	}

	out, err := yaml.Marshal(resolved)
	if err != nil {
		return nil, fmt.Errorf("serialize resolved config: %w", err)
	}
	return out, nil
}
