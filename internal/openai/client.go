// Package openai holds the HTTP clients for the external OpenAI services
// karyon depends on: chat completions (answer generation and frame
// analysis), embeddings, and Whisper transcription.
package openai

import (
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.openai.com/v1"

type Config struct {
	APIKey         string
	BaseURL        string // override for tests or compatible APIs
	ChatModel      string
	EmbeddingModel string
	EmbeddingDim   int
	WhisperModel   string
}

type Client struct {
	apiKey         string
	baseURL        string
	chatModel      string
	embeddingModel string
	embeddingDim   int
	whisperModel   string
	client         *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = "gpt-4o"
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = "text-embedding-3-small"
	}
	if cfg.EmbeddingDim == 0 {
		cfg.EmbeddingDim = 1536
	}
	if cfg.WhisperModel == "" {
		cfg.WhisperModel = "whisper-1"
	}
	return &Client{
		apiKey:         cfg.APIKey,
		baseURL:        cfg.BaseURL,
		chatModel:      cfg.ChatModel,
		embeddingModel: cfg.EmbeddingModel,
		embeddingDim:   cfg.EmbeddingDim,
		whisperModel:   cfg.WhisperModel,
		client:         &http.Client{Timeout: 120 * time.Second},
	}
}

// Dimensions returns the embedding vector size this client is configured for.
func (c *Client) Dimensions() int {
	return c.embeddingDim
}

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}
