// Package config provides configuration management for clippa using Viper.
// It supports configuration from files, environment variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Default configuration values.
const (
	defaultServerPort       = 8080
	defaultServerTimeout    = 30 * time.Second
	defaultShutdownTimeout  = 10 * time.Second
	defaultMaxOpenConns     = 25
	defaultMaxIdleConns     = 10
	defaultConnMaxIdleTime  = 30 * time.Minute
	defaultDownloadTimeout  = 10 * time.Minute
	defaultTranscodeTimeout = 8 * time.Minute
	defaultFormatsTimeout   = 45 * time.Second
	defaultMetadataTimeout  = 15 * time.Second
	defaultWorkers          = 2
	defaultQueueSize        = 16
	defaultRetention        = 24 * time.Hour
	defaultMaxInlineSize    = 50 * 1024 * 1024 // 50MB
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	YtDlp    YtDlpConfig    `mapstructure:"ytdlp"`
	FFmpeg   FFmpegConfig   `mapstructure:"ffmpeg"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Metadata MetadataConfig `mapstructure:"metadata"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	// PublicBaseURL is the externally reachable base URL used when issuing
	// artifact download links (empty = relative links).
	PublicBaseURL string `mapstructure:"public_base_url"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite, postgres, memory
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	LogLevel        string        `mapstructure:"log_level"` // silent, error, warn, info
}

// StorageConfig holds file storage configuration.
type StorageConfig struct {
	BaseDir   string `mapstructure:"base_dir"`
	WorkDir   string `mapstructure:"work_dir"`
	OutputDir string `mapstructure:"output_dir"`
	// MaxInlineSize is the largest artifact the store will issue a direct
	// public URL for; larger files are only reachable through the
	// range-capable file endpoint.
	// Supports human-readable values like "50MB", "1GB", or raw byte counts.
	MaxInlineSize ByteSize `mapstructure:"max_inline_size"`
	// Retention is how long finished jobs and their artifacts are kept
	// before the sweeper removes them.
	Retention Duration `mapstructure:"retention"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// YtDlpConfig holds yt-dlp binary configuration.
type YtDlpConfig struct {
	BinaryPath string `mapstructure:"binary_path"` // Path to yt-dlp binary (empty = use PATH)
	// CookiesFile is passed to yt-dlp when the file exists; used to get past
	// bot detection on some source sites.
	CookiesFile     string        `mapstructure:"cookies_file"`
	DownloadTimeout time.Duration `mapstructure:"download_timeout"`
	FormatsTimeout  time.Duration `mapstructure:"formats_timeout"`
	SubtitleLang    string        `mapstructure:"subtitle_lang"`
}

// FFmpegConfig holds ffmpeg binary configuration.
type FFmpegConfig struct {
	BinaryPath       string        `mapstructure:"binary_path"` // Path to ffmpeg binary (empty = use PATH)
	TranscodeTimeout time.Duration `mapstructure:"transcode_timeout"`
}

// PipelineConfig holds clip pipeline configuration.
type PipelineConfig struct {
	// Workers is the number of clip jobs processed concurrently.
	Workers int `mapstructure:"workers"`
	// QueueSize bounds the number of accepted-but-unstarted jobs; requests
	// beyond it are rejected with a backpressure error.
	QueueSize int `mapstructure:"queue_size"`
}

// MetadataConfig holds page metadata fetch configuration.
type MetadataConfig struct {
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration.
// Environment variables are prefixed with CLIPPA_ and use underscores for nesting.
// Example: CLIPPA_SERVER_PORT=8080.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/clippa")
		v.AddConfigPath("$HOME/.clippa")
	}

	v.SetEnvPrefix("CLIPPA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Config file not found is OK - we'll use defaults and env vars
	}

	var cfg Config
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, decodeHook); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults configures default values for all configuration options.
// This should be called before reading the config file to ensure defaults are in place.
func SetDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", defaultServerPort)
	v.SetDefault("server.read_timeout", defaultServerTimeout)
	// Zero write timeout: artifact downloads can legitimately take minutes.
	v.SetDefault("server.write_timeout", time.Duration(0))
	v.SetDefault("server.shutdown_timeout", defaultShutdownTimeout)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.public_base_url", "")

	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "clippa.db")
	v.SetDefault("database.max_open_conns", defaultMaxOpenConns)
	v.SetDefault("database.max_idle_conns", defaultMaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.conn_max_idle_time", defaultConnMaxIdleTime)
	v.SetDefault("database.log_level", "warn")

	// Storage defaults
	v.SetDefault("storage.base_dir", "./data")
	v.SetDefault("storage.work_dir", "work")
	v.SetDefault("storage.output_dir", "clips")
	v.SetDefault("storage.max_inline_size", defaultMaxInlineSize)
	v.SetDefault("storage.retention", defaultRetention)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// yt-dlp defaults
	v.SetDefault("ytdlp.binary_path", "")
	v.SetDefault("ytdlp.cookies_file", "")
	v.SetDefault("ytdlp.download_timeout", defaultDownloadTimeout)
	v.SetDefault("ytdlp.formats_timeout", defaultFormatsTimeout)
	v.SetDefault("ytdlp.subtitle_lang", "en")

	// ffmpeg defaults
	v.SetDefault("ffmpeg.binary_path", "")
	v.SetDefault("ffmpeg.transcode_timeout", defaultTranscodeTimeout)

	// Pipeline defaults
	v.SetDefault("pipeline.workers", defaultWorkers)
	v.SetDefault("pipeline.queue_size", defaultQueueSize)

	// Metadata defaults
	v.SetDefault("metadata.http_timeout", defaultMetadataTimeout)
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Database.Driver {
	case "sqlite", "postgres", "memory":
	default:
		return fmt.Errorf("invalid database driver: %s", c.Database.Driver)
	}
	if c.Database.Driver != "memory" && c.Database.DSN == "" {
		return fmt.Errorf("database dsn is required for driver %s", c.Database.Driver)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level: %s", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid logging format: %s", c.Logging.Format)
	}

	if c.Storage.BaseDir == "" {
		return errors.New("storage base_dir is required")
	}
	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("pipeline workers must be at least 1, got %d", c.Pipeline.Workers)
	}
	if c.Pipeline.QueueSize < 0 {
		return fmt.Errorf("pipeline queue_size must be non-negative, got %d", c.Pipeline.QueueSize)
	}
	if c.YtDlp.DownloadTimeout <= 0 {
		return errors.New("ytdlp download_timeout must be positive")
	}
	if c.FFmpeg.TranscodeTimeout <= 0 {
		return errors.New("ffmpeg transcode_timeout must be positive")
	}

	return nil
}
