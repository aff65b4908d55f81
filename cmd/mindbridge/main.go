package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ysakai/mindbridge/internal/api"
	"github.com/ysakai/mindbridge/internal/bot"
	"github.com/ysakai/mindbridge/internal/config"
	"github.com/ysakai/mindbridge/internal/notes"
	"github.com/ysakai/mindbridge/internal/speech"
	"github.com/ysakai/mindbridge/internal/storage/sqlite"
	"github.com/ysakai/mindbridge/internal/vault"
	"github.com/ysakai/mindbridge/internal/websocket"
	"github.com/ysakai/mindbridge/pkg/logger"
)

var (
	// Version is injected at build time
	Version = "dev"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file (optional - will search in configs/ and root directory)")
	flag.Parse()

	// Load configuration with fallback logic
	cfg, err := config.LoadWithFallback(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Create logger
	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting MindBridge",
		logger.String("version", Version),
		logger.String("config_path", *configPath),
	)

	// Open today's SQLite database
	db, dbPath, err := sqlite.Open(cfg.Storage.SQLiteBasePath, time.Now(), log)
	if err != nil {
		log.Error("Failed to open SQLite storage", logger.Error(err))
		os.Exit(1)
	}
	defer db.Close()
	log.Info("Using daily database", logger.String("path", dbPath))

	transcriptionStorage := sqlite.NewTranscriptionStorage(db, log)
	usageStorage := sqlite.NewUsageStorage(db, log)

	// Create WebSocket server; dashboards can pull recent transcriptions
	// over the same connection
	wsServer := websocket.NewServer(log)
	wsServer.SetMessageHandler(api.NewHistoryHandler(transcriptionStorage, log))
	go wsServer.Run()

	// Assemble the speech pipeline. Counters are seeded from the last
	// persisted snapshot so a restart does not reset the monthly quota.
	usageTracker := speech.NewUsageTracker(cfg.Speech.MonthlyLimitMinutes)
	if snap, err := usageStorage.GetLatestSnapshot(); err != nil {
		log.Error("Failed to load usage snapshot", logger.Error(err))
	} else if snap != nil {
		usageTracker.Restore(speech.APIUsage{
			MonthlyUsageMinutes: snap.MonthlyUsageMinutes,
			DailyUsageMinutes:   snap.DailyUsageMinutes,
			TotalRequests:       snap.TotalRequests,
			SuccessfulRequests:  snap.SuccessfulRequests,
			FailedRequests:      snap.FailedRequests,
		})
		log.Info("Restored usage counters from snapshot",
			logger.Float64("monthly_minutes", snap.MonthlyUsageMinutes),
			logger.String("snapshot_time", snap.CreatedAt.Format(time.RFC3339)))
	}

	var engines []speech.Engine
	if cfg.Speech.GoogleAPIKey != "" {
		engines = append(engines, speech.NewGoogleEngine(speech.GoogleEngineConfig{
			APIKey:                cfg.Speech.GoogleAPIKey,
			BaseURL:               cfg.Speech.GoogleBaseURL,
			Model:                 cfg.Speech.Model,
			Language:              cfg.Speech.Language,
			TimeoutSeconds:        cfg.Speech.TimeoutSeconds,
			RetryMaxAttempts:      cfg.Speech.RetryMaxAttempts,
			RetryInitialBackoffMs: cfg.Speech.RetryInitialBackoffMs,
			RetryMaxBackoffMs:     cfg.Speech.RetryMaxBackoffMs,
		}, log))
	}
	if cfg.Speech.EnableMockEngine {
		engines = append(engines, speech.NewMockEngine())
	}
	if len(engines) == 0 {
		log.Warn("No speech engines configured; audio will be saved without transcription")
	}

	validator := speech.NewQualityValidator(speech.QualityThresholds{
		MinDurationSecs: cfg.Speech.MinDurationSecs,
		MaxDurationSecs: cfg.Speech.MaxDurationSecs,
		MinLoudnessDBFS: cfg.Speech.MinLoudnessDBFS,
		MinSampleRateHz: cfg.Speech.MinSampleRateHz,
	}, log)

	// Vault storage for notes and fallback audio
	vaultStore := vault.NewStore(cfg.Vault.Root, cfg.Vault.AudioSubfolder, cfg.Vault.NotesSubfolder, log)

	processor := speech.NewProcessor(engines, usageTracker, validator, vaultStore, log)

	// AI summarizer (optional)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var summarizer notes.Summarizer
	switch cfg.Notes.Provider {
	case "openai":
		summarizer = notes.NewOpenAISummarizer(cfg.Notes.OpenAIAPIKey, cfg.Notes.Model,
			time.Duration(cfg.Notes.TimeoutSeconds)*time.Second, log)
	case "gemini":
		summarizer, err = notes.NewGeminiSummarizer(ctx, cfg.Notes.GeminiAPIKey, cfg.Notes.Model,
			time.Duration(cfg.Notes.TimeoutSeconds)*time.Second, log)
		if err != nil {
			log.Error("Failed to create Gemini summarizer", logger.Error(err))
			// Continue without summarization rather than failing
			summarizer = nil
		}
	default:
		log.Info("AI summarization disabled in configuration")
	}

	noteBuilder := notes.NewBuilder(vaultStore, summarizer, wsServer, log)

	// Discord wiring
	recorder := bot.NewRecorder(transcriptionStorage, usageTracker, wsServer, log)
	deduper := bot.NewDeduper(cfg.Discord.DedupWindowMessages)
	downloader := bot.NewDownloader(bot.DownloaderConfig{
		AllowedHosts: cfg.Discord.AllowedDownloadHosts,
		MaxBytes:     int64(cfg.Discord.MaxDownloadSizeMB) * 1024 * 1024,
		Timeout:      time.Duration(cfg.Discord.DownloadTimeoutSecs) * time.Second,
		MaxIdleConns: cfg.Discord.MaxIdleConns,
		MaxPerHost:   cfg.Discord.MaxIdleConnsPerHost,
	}, log)

	discord, err := bot.NewDiscord(cfg.Discord.Token, nil, log)
	if err != nil {
		log.Error("Failed to create Discord client", logger.Error(err))
		os.Exit(1)
	}

	handler := bot.NewAudioHandler(deduper, downloader, processor, discord, recorder, noteBuilder, log)
	discord.SetHandler(handler)

	if err := discord.Start(); err != nil {
		log.Error("Failed to start Discord gateway", logger.Error(err))
		os.Exit(1)
	}

	// Periodic usage snapshots so counters survive restarts
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				snap := usageTracker.Snapshot()
				if _, err := usageStorage.StoreSnapshot(&sqlite.UsageSnapshot{
					CreatedAt:           time.Now().UTC(),
					MonthlyUsageMinutes: snap.MonthlyUsageMinutes,
					DailyUsageMinutes:   snap.DailyUsageMinutes,
					MonthlyLimitMinutes: snap.MonthlyLimitMinutes,
					TotalRequests:       snap.TotalRequests,
					SuccessfulRequests:  snap.SuccessfulRequests,
					FailedRequests:      snap.FailedRequests,
				}); err != nil {
					log.Error("Failed to store usage snapshot", logger.Error(err))
				}
			}
		}
	}()

	// Create API router and HTTP server
	apiHandler := api.NewHandler(usageTracker, cfg, log, wsServer, transcriptionStorage)
	router := api.NewRouter(apiHandler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSecs) * time.Second,
	}

	go func() {
		log.Info("Starting HTTP server", logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error on startup", logger.String("addr", server.Addr), logger.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutting down...")

	// Stop the gateway first so no new work arrives
	log.Info("Stopping Discord gateway...")
	if err := discord.Stop(); err != nil {
		log.Error("Error closing Discord gateway", logger.Error(err))
	}
	log.Info("Discord gateway stopped.")

	// Cancel the main context
	cancel()

	// Final usage snapshot before closing the database
	snap := usageTracker.Snapshot()
	if _, err := usageStorage.StoreSnapshot(&sqlite.UsageSnapshot{
		CreatedAt:           time.Now().UTC(),
		MonthlyUsageMinutes: snap.MonthlyUsageMinutes,
		DailyUsageMinutes:   snap.DailyUsageMinutes,
		MonthlyLimitMinutes: snap.MonthlyLimitMinutes,
		TotalRequests:       snap.TotalRequests,
		SuccessfulRequests:  snap.SuccessfulRequests,
		FailedRequests:      snap.FailedRequests,
	}); err != nil {
		log.Error("Failed to store final usage snapshot", logger.Error(err))
	}

	// Shutdown HTTP server
	log.Info("Shutting down HTTP server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", logger.Error(err))
	}

	log.Info("Server fully stopped")
}
