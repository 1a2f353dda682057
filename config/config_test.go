package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
pipeline:
  name: companion-dev
  log_level: debug
server:
  addr: ":9090"
services:
  face:
    url: http://face:8001
  speech:
    url: http://speech:8002
audio:
  enabled: false
  detection_interval: 2000
video:
  detection_interval: 500
  snapshot_url: http://cam/snapshot.jpg
  keep_frames: true
fusion:
  sync_interval: 250
  retention: 600
  time_window: 10
  overlap: 20
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadFile(t *testing.T) {
	cfg, err := Load(nil, filepath.Join(t.TempDir(), "absent.yaml"), writeConfig(t, sample))
	require.NoError(t, err)

	assert.Equal(t, "companion-dev", cfg.Pipeline.Name)
	assert.Equal(t, "debug", cfg.Pipeline.LogLvl)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "http://face:8001", cfg.Services.Face.URL)
	assert.False(t, cfg.Audio.Enabled)
	assert.Equal(t, 2000, cfg.Audio.DetectionInterval)
	assert.Equal(t, 2000, cfg.Audio.ClipLength, "clip follows the detection interval")
	assert.True(t, cfg.Video.Enabled, "unset keys keep their defaults")
	assert.True(t, cfg.Video.KeepFrames)
	assert.Equal(t, "http://cam/snapshot.jpg", cfg.Video.SnapshotURL)
	assert.Equal(t, 250, cfg.Fusion.SyncInterval)
	assert.Equal(t, 0, cfg.Fusion.Overlap, "overlap must be shorter than the window")
	assert.Equal(t, "GROQ_API_KEY", cfg.Completion.APIKeyEnv)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil, filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 1000, cfg.Audio.MaxSamples)
	assert.Equal(t, 1000, cfg.Video.MaxSamples)
	assert.True(t, cfg.Fusion.Enabled)
}

func TestLoadBadYAML(t *testing.T) {
	_, err := Load(nil, writeConfig(t, "server: [unclosed"))
	assert.Error(t, err)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("COMPANION_SERVER_ADDR", "127.0.0.1:7000")
	t.Setenv("COMPANION_VIDEO_ENABLED", "false")
	v := NewViper()
	v.Set("services.sentiment.url", "http://nlp:8003")

	cfg, err := Load(v, writeConfig(t, sample))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7000", cfg.Server.Addr)
	assert.False(t, cfg.Video.Enabled)
	assert.Equal(t, "http://nlp:8003", cfg.Services.Sentiment.URL)
	assert.Equal(t, "http://face:8001", cfg.Services.Face.URL, "file values survive overrides")
	assert.Equal(t, 500, cfg.Video.DetectionInterval)
}

func TestAPIKey(t *testing.T) {
	t.Setenv("MY_KEY", "secret")
	cfg := Default()
	cfg.Completion.APIKeyEnv = "MY_KEY"
	assert.Equal(t, "secret", cfg.APIKey())
}

func TestPaths(t *testing.T) {
	t.Setenv("CONFIG_ENV", "prod")
	assert.Equal(t, filepath.Join("config", "prod", "config.yaml"), Paths()[0])
}

func TestDurations(t *testing.T) {
	assert.Equal(t, 3*time.Second, DurSeconds(3))
	assert.Equal(t, 250*time.Millisecond, DurMillis(250))
}
