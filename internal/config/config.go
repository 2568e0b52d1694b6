package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port        int
	NatsURL     string
	NatsToken   string
	DatabaseURL string
	LogLevel    string
	APIToken    string
	MediaDir    string

	OpenAIAPIKey   string
	OpenAIBaseURL  string
	ChatModel      string
	EmbeddingModel string
	EmbeddingDim   int
	WhisperModel   string

	// Semantic chunker gates (seconds / cosine similarity).
	ChunkMinDuration    float64
	ChunkMaxDuration    float64
	SimilarityThreshold float64

	// Retrieval: default distance cutoff and confidence boundaries. The
	// boundaries are tied to the embedding model's distance distribution,
	// so they move with the model rather than living in code.
	MaxDistance      float64
	TopK             int
	ConfidenceHigh   float64
	ConfidenceMedium float64

	// Keyframe scan.
	FrameChangeThreshold float64
	FrameMinInterval     float64

	AnswerMaxTokens int
}

func Load() Config {
	return Config{
		Port:        envInt("KARYON_PORT", 8460),
		NatsURL:     envStr("NATS_URL", "nats://localhost:4222"),
		NatsToken:   envStr("NATS_TOKEN", ""),
		DatabaseURL: envStr("DATABASE_URL", ""),
		LogLevel:    envStr("LOG_LEVEL", "info"),
		APIToken:    envStr("KARYON_API_TOKEN", ""),
		MediaDir:    envStr("MEDIA_DIR", "media"),

		OpenAIAPIKey:   envStr("OPENAI_API_KEY", ""),
		OpenAIBaseURL:  envStr("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		ChatModel:      envStr("KARYON_CHAT_MODEL", "gpt-4o"),
		EmbeddingModel: envStr("KARYON_EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingDim:   envInt("KARYON_EMBEDDING_DIM", 1536),
		WhisperModel:   envStr("KARYON_WHISPER_MODEL", "whisper-1"),

		ChunkMinDuration:    envFloat("CHUNK_MIN_DURATION", 15),
		ChunkMaxDuration:    envFloat("CHUNK_MAX_DURATION", 90),
		SimilarityThreshold: envFloat("CHUNK_SIMILARITY_THRESHOLD", 0.70),

		MaxDistance:      envFloat("RETRIEVAL_MAX_DISTANCE", 1.5),
		TopK:             envInt("RETRIEVAL_TOP_K", 5),
		ConfidenceHigh:   envFloat("CONFIDENCE_HIGH_DISTANCE", 0.8),
		ConfidenceMedium: envFloat("CONFIDENCE_MEDIUM_DISTANCE", 1.2),

		FrameChangeThreshold: envFloat("FRAME_CHANGE_THRESHOLD", 15.0),
		FrameMinInterval:     envFloat("FRAME_MIN_INTERVAL", 10.0),

		AnswerMaxTokens: envInt("ANSWER_MAX_TOKENS", 600),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
