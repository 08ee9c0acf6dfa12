package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/clippa-dev/clippa/internal/config"
	"github.com/clippa-dev/clippa/internal/database"
	"github.com/clippa-dev/clippa/internal/ffmpeg"
	internalhttp "github.com/clippa-dev/clippa/internal/http"
	"github.com/clippa-dev/clippa/internal/http/handlers"
	"github.com/clippa-dev/clippa/internal/httpclient"
	"github.com/clippa-dev/clippa/internal/pipeline"
	"github.com/clippa-dev/clippa/internal/repository"
	"github.com/clippa-dev/clippa/internal/runner"
	"github.com/clippa-dev/clippa/internal/service"
	"github.com/clippa-dev/clippa/internal/startup"
	"github.com/clippa-dev/clippa/internal/storage"
	"github.com/clippa-dev/clippa/internal/version"
	"github.com/clippa-dev/clippa/internal/ytdlp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the clippa server",
	Long: `Start the clippa HTTP server and clip pipeline.

The server provides:
- REST API for creating, polling, and downloading clips
- Source format and page metadata probing
- Health check endpoint
- OpenAPI documentation at /docs`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	// These flags override the config file and environment when explicitly set.
	serveCmd.Flags().String("host", "", "Host to bind to")
	serveCmd.Flags().Int("port", 0, "Port to listen on")
	serveCmd.Flags().String("data-dir", "", "Base directory for clip storage")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	applyServeFlags(cmd, cfg)

	logger := slog.Default()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// External binaries are required; fail fast if they are missing.
	run := runner.New(logger)
	ffmpegInfo, err := ffmpeg.DetectBinary(ctx, cfg.FFmpeg.BinaryPath)
	if err != nil {
		return fmt.Errorf("detecting ffmpeg: %w", err)
	}
	logger.Info("detected ffmpeg",
		slog.String("path", ffmpegInfo.Path),
		slog.String("version", ffmpegInfo.Version),
	)

	// Repository backend
	var (
		repo repository.ClipJobRepository
		db   *database.DB
	)
	if cfg.Database.Driver == "memory" {
		repo = repository.NewMemoryClipJobRepository()
		logger.Warn("using in-memory job store; jobs will not survive restarts")
	} else {
		db, err = database.New(cfg.Database, logger)
		if err != nil {
			return fmt.Errorf("initializing database: %w", err)
		}
		defer db.Close()

		if err := db.Migrate(); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		repo = repository.NewClipJobRepository(db.DB)
	}

	// Storage layout: <base>/<work> for scratch space, <base>/<output> for
	// finished artifacts.
	store, err := storage.NewLocalStore(filepath.Join(cfg.Storage.BaseDir, cfg.Storage.OutputDir))
	if err != nil {
		return fmt.Errorf("initializing clip store: %w", err)
	}
	workspaces, err := storage.NewWorkspaceManager(filepath.Join(cfg.Storage.BaseDir, cfg.Storage.WorkDir), logger)
	if err != nil {
		return fmt.Errorf("initializing work directories: %w", err)
	}

	// Recover from a previous unclean shutdown before accepting new work.
	if recovered, err := startup.RecoverStaleJobs(ctx, logger, repo); err != nil {
		logger.Warn("failed to recover stale jobs", slog.String("error", err.Error()))
	} else if recovered > 0 {
		logger.Info("recovered stale jobs on startup", slog.Int("recovered_count", recovered))
	}
	if removed, err := startup.CleanupOrphanedWorkDirs(ctx, logger, workspaces, repo); err != nil {
		logger.Warn("failed to clean orphaned work directories", slog.String("error", err.Error()))
	} else if removed > 0 {
		logger.Info("cleaned orphaned work directories on startup", slog.Int("removed_count", removed))
	}

	// Pipeline
	downloader := ytdlp.NewDownloader(cfg.YtDlp, run, logger)
	transcoder := ffmpeg.NewTranscoder(cfg.FFmpeg, run, logger)
	pipe := pipeline.New(repo, downloader, transcoder, store, workspaces, cfg.Server.PublicBaseURL, logger)
	pool := pipeline.NewPool(cfg.Pipeline.Workers, cfg.Pipeline.QueueSize, logger)
	pool.Start(ctx)
	defer pool.Stop()

	clipService := service.NewClipService(repo, pipe, pool, store, downloader, cfg.Storage.Retention.Std(), logger)
	if err := clipService.StartSweeper(ctx); err != nil {
		return fmt.Errorf("starting retention sweeper: %w", err)
	}
	defer clipService.StopSweeper()

	metadataHTTPConfig := httpclient.DefaultConfig()
	metadataHTTPConfig.Timeout = cfg.Metadata.HTTPTimeout
	metadataHTTPConfig.Logger = logger
	metadataService := service.NewMetadataService(httpclient.New(metadataHTTPConfig), logger)

	// HTTP server
	serverConfig := internalhttp.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     internalhttp.DefaultServerConfig().IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		CORSOrigins:     cfg.Server.CORSOrigins,
	}
	server := internalhttp.NewServer(serverConfig, logger, version.Version)

	healthHandler := handlers.NewHealthHandler(version.Version).WithQueueDepth(pool.QueueDepth)
	if db != nil {
		healthHandler = healthHandler.WithDB(db)
	}
	healthHandler.Register(server.API())

	clipHandler := handlers.NewClipHandler(clipService).
		WithMaxInlineSize(cfg.Storage.MaxInlineSize.Bytes())
	clipHandler.Register(server.API())
	clipHandler.RegisterFileRoute(server.Router())

	formatsHandler := handlers.NewFormatsHandler(clipService)
	formatsHandler.Register(server.API())

	metadataHandler := handlers.NewMetadataHandler(metadataService)
	metadataHandler.Register(server.API())

	// Graceful shutdown on SIGINT/SIGTERM
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
		cancel()
	}()

	logger.Info("starting clippa server",
		slog.String("host", serverConfig.Host),
		slog.Int("port", serverConfig.Port),
		slog.String("version", version.Version),
		slog.Int("workers", cfg.Pipeline.Workers),
	)

	return server.ListenAndServe(ctx)
}

// applyServeFlags overrides config values with explicitly set CLI flags.
// Priority: CLI flag > env var > config file > default.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("host") {
		cfg.Server.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("data-dir") {
		cfg.Storage.BaseDir, _ = cmd.Flags().GetString("data-dir")
	}
}
