package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	// A named config file that does not exist is an error; load with
	// search paths instead by pointing at an empty temp dir.
	require.Error(t, err)

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	defer func() { _ = os.Chdir(wd) }()

	cfg, err = Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "clippa.db", cfg.Database.DSN)
	assert.Equal(t, "./data", cfg.Storage.BaseDir)
	assert.Equal(t, 24*time.Hour, cfg.Storage.Retention.Std())
	assert.Equal(t, int64(50*1024*1024), cfg.Storage.MaxInlineSize.Bytes())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 10*time.Minute, cfg.YtDlp.DownloadTimeout)
	assert.Equal(t, "en", cfg.YtDlp.SubtitleLang)
	assert.Equal(t, 2, cfg.Pipeline.Workers)
	assert.Equal(t, 16, cfg.Pipeline.QueueSize)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
  public_base_url: "https://clips.example.com"
database:
  driver: memory
storage:
  base_dir: /var/lib/clippa
  retention: 3d
  max_inline_size: 100MB
pipeline:
  workers: 4
  queue_size: 32
ytdlp:
  subtitle_lang: de
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "https://clips.example.com", cfg.Server.PublicBaseURL)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, "/var/lib/clippa", cfg.Storage.BaseDir)
	assert.Equal(t, 3*24*time.Hour, cfg.Storage.Retention.Std())
	assert.Equal(t, int64(100*1024*1024), cfg.Storage.MaxInlineSize.Bytes())
	assert.Equal(t, 4, cfg.Pipeline.Workers)
	assert.Equal(t, 32, cfg.Pipeline.QueueSize)
	assert.Equal(t, "de", cfg.YtDlp.SubtitleLang)
}

func TestLoad_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0o644))

	t.Setenv("CLIPPA_SERVER_PORT", "7070")
	t.Setenv("CLIPPA_LOGGING_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestConfig_Validate(t *testing.T) {
	base := func(t *testing.T) *Config {
		t.Helper()
		wd, err := os.Getwd()
		require.NoError(t, err)
		require.NoError(t, os.Chdir(t.TempDir()))
		t.Cleanup(func() { _ = os.Chdir(wd) })

		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "invalid server port"},
		{"bad driver", func(c *Config) { c.Database.Driver = "oracle" }, "invalid database driver"},
		{"missing dsn", func(c *Config) { c.Database.DSN = "" }, "database dsn is required"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "invalid logging level"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "invalid logging format"},
		{"missing base dir", func(c *Config) { c.Storage.BaseDir = "" }, "base_dir is required"},
		{"zero workers", func(c *Config) { c.Pipeline.Workers = 0 }, "workers must be at least 1"},
		{"negative queue", func(c *Config) { c.Pipeline.QueueSize = -1 }, "queue_size must be non-negative"},
		{"zero download timeout", func(c *Config) { c.YtDlp.DownloadTimeout = 0 }, "download_timeout must be positive"},
		{"zero transcode timeout", func(c *Config) { c.FFmpeg.TranscodeTimeout = 0 }, "transcode_timeout must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("memory driver needs no dsn", func(t *testing.T) {
		cfg := base(t)
		cfg.Database.Driver = "memory"
		cfg.Database.DSN = ""
		assert.NoError(t, cfg.Validate())
	})
}
