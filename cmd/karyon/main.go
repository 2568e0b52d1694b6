package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/karyon-ai/karyon/internal/answer"
	"github.com/karyon-ai/karyon/internal/api"
	"github.com/karyon-ai/karyon/internal/chunker"
	"github.com/karyon-ai/karyon/internal/config"
	"github.com/karyon-ai/karyon/internal/events"
	"github.com/karyon-ai/karyon/internal/keyframe"
	"github.com/karyon-ai/karyon/internal/media"
	"github.com/karyon-ai/karyon/internal/openai"
	"github.com/karyon-ai/karyon/internal/processor"
	"github.com/karyon-ai/karyon/internal/retrieval"
	"github.com/karyon-ai/karyon/internal/store"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("karyon starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database connected")

	// OpenAI client
	if cfg.OpenAIAPIKey == "" {
		slog.Error("OPENAI_API_KEY is required")
		os.Exit(1)
	}
	ai := openai.NewClient(openai.Config{
		APIKey:         cfg.OpenAIAPIKey,
		BaseURL:        cfg.OpenAIBaseURL,
		ChatModel:      cfg.ChatModel,
		EmbeddingModel: cfg.EmbeddingModel,
		EmbeddingDim:   cfg.EmbeddingDim,
		WhisperModel:   cfg.WhisperModel,
	})
	slog.Info("openai client ready", "chat_model", cfg.ChatModel, "embedding_model", cfg.EmbeddingModel)

	// NATS
	nc, err := events.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
	if err != nil {
		slog.Error("failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer nc.Close()
	slog.Info("NATS connected", "url", cfg.NatsURL)

	// Media tooling and analysis pipeline
	toolbox := media.Toolbox{Dir: cfg.MediaDir}
	chunkParams := chunker.Params{
		MinDuration:         cfg.ChunkMinDuration,
		MaxDuration:         cfg.ChunkMaxDuration,
		SimilarityThreshold: cfg.SimilarityThreshold,
	}
	proc := processor.New(
		db,
		ai,
		chunker.New(ai, slog.Default()),
		keyframe.NewExtractor(cfg.FrameChangeThreshold, cfg.FrameMinInterval, slog.Default()),
		toolbox,
		nc,
		chunkParams,
		slog.Default(),
	)

	if err := nc.Subscribe(events.SubjectVideoUploaded, proc.HandleVideoUploaded); err != nil {
		slog.Error("failed to subscribe to upload events", "error", err)
		os.Exit(1)
	}

	// Answer service
	answers := answer.NewService(ai, ai, db, answer.Params{
		MaxDistance: cfg.MaxDistance,
		TopK:        cfg.TopK,
		Bounds:      retrieval.Bounds{High: cfg.ConfidenceHigh, Medium: cfg.ConfidenceMedium},
		MaxTokens:   cfg.AnswerMaxTokens,
	}, slog.Default())

	// HTTP API
	srv := api.NewServer(
		cfg.Port,
		cfg.APIToken,
		db,
		answers,
		nc,
		media.FetchYouTubeMetadata,
		toolbox.VideoDir(),
		slog.Default(),
	)
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("karyon ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("karyon stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
