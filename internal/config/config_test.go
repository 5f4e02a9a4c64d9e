package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
gateway:
  url: https://gateway.example.com
database:
  path: /var/lib/kiosk/queue.db
auth:
  token_file: /etc/kiosk/token
`

func TestParse_MinimalWithDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "https://gateway.example.com", cfg.Gateway.URL)
	assert.Equal(t, "/var/lib/kiosk/queue.db", cfg.Database.Path)
	assert.Equal(t, "/etc/kiosk/token", cfg.Auth.TokenFile)

	// Schema defaults fill every omitted section.
	assert.Equal(t, 30*time.Second, cfg.Sync.Interval.Std())
	assert.Equal(t, 5*time.Minute, cfg.Keepalive.Interval.Std())
	assert.Equal(t, 90*time.Second, cfg.Session.InactivityTimeout.Std())
	assert.Equal(t, 15*time.Second, cfg.Connectivity.ProbeInterval.Std())
	assert.Equal(t, 60*time.Second, cfg.Heartbeat.Interval.Std())
	assert.Empty(t, cfg.Status.ListenAddr)
	assert.Empty(t, cfg.Gateway.EventID)
}

func TestParse_ProbeURLDefaultsToGatewayHealth(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)
	assert.Equal(t, "https://gateway.example.com/api/kiosk/health", cfg.Connectivity.ProbeURL)
}

func TestParse_FullOverrides(t *testing.T) {
	cfg, err := Parse([]byte(`
gateway:
  url: http://localhost:8080
  event_id: evt-7
database:
  path: ./queue.db
auth:
  token_file: ./token
sync:
  interval: 10s
keepalive:
  interval: 2m
session:
  inactivity_timeout: 45s
connectivity:
  probe_url: http://localhost:8080/ping
  probe_interval: 5s
heartbeat:
  interval: 30s
status:
  listen_addr: 127.0.0.1:9090
`))
	require.NoError(t, err)

	assert.Equal(t, "evt-7", cfg.Gateway.EventID)
	assert.Equal(t, 10*time.Second, cfg.Sync.Interval.Std())
	assert.Equal(t, 2*time.Minute, cfg.Keepalive.Interval.Std())
	assert.Equal(t, 45*time.Second, cfg.Session.InactivityTimeout.Std())
	assert.Equal(t, "http://localhost:8080/ping", cfg.Connectivity.ProbeURL)
	assert.Equal(t, 5*time.Second, cfg.Connectivity.ProbeInterval.Std())
	assert.Equal(t, "127.0.0.1:9090", cfg.Status.ListenAddr)
}

func TestParse_RejectsBadGatewayURL(t *testing.T) {
	_, err := Parse([]byte(`
gateway:
  url: not-a-url
database:
  path: ./queue.db
auth:
  token_file: ./token
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}

func TestParse_RejectsMissingDatabasePath(t *testing.T) {
	_, err := Parse([]byte(`
gateway:
  url: https://gateway.example.com
database:
  path: ""
auth:
  token_file: ./token
`))
	require.Error(t, err)
}

func TestParse_RejectsMalformedYAML(t *testing.T) {
	_, err := Parse([]byte("gateway: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestParse_RejectsBadDuration(t *testing.T) {
	_, err := Parse([]byte(`
gateway:
  url: https://gateway.example.com
database:
  path: ./queue.db
auth:
  token_file: ./token
sync:
  interval: soon
`))
	require.Error(t, err)
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kiosk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalYAML), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://gateway.example.com", cfg.Gateway.URL)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}
