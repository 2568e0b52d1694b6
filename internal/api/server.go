// Package api exposes the HTTP surface: video management, question
// answering, and chat history.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/karyon-ai/karyon/internal/answer"
	"github.com/karyon-ai/karyon/internal/media"
	"github.com/karyon-ai/karyon/internal/model"
)

// VideoStore is the persistence surface the handlers use.
type VideoStore interface {
	CreateVideo(ctx context.Context, v *model.Video) error
	VideoByID(ctx context.Context, id uuid.UUID) (*model.Video, error)
	ListVideos(ctx context.Context) ([]model.Video, error)
	DeleteVideo(ctx context.Context, id uuid.UUID) error
	SessionFor(ctx context.Context, videoID uuid.UUID, userRef string) (*model.ChatSession, error)
	History(ctx context.Context, sessionID uuid.UUID) ([]model.ChatMessage, error)
	AppendExchange(ctx context.Context, sessionID uuid.UUID, question, answer string, sources []byte) error
}

// Answerer produces an answer for one question about one video.
type Answerer interface {
	Ask(ctx context.Context, video model.Video, question string, history []model.ChatMessage) (*answer.Answer, error)
}

// Publisher emits lifecycle events.
type Publisher interface {
	Publish(subject string, data any) error
}

// MetadataFetcher resolves YouTube metadata without downloading.
type MetadataFetcher func(ctx context.Context, url string) (media.YouTubeMetadata, error)

type Server struct {
	router    *chi.Mux
	port      int
	store     VideoStore
	answerer  Answerer
	publisher Publisher
	metadata  MetadataFetcher
	uploadDir string
	logger    *slog.Logger
}

func NewServer(port int, apiToken string, store VideoStore, answerer Answerer, publisher Publisher, metadata MetadataFetcher, uploadDir string, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:    router,
		port:      port,
		store:     store,
		answerer:  answerer,
		publisher: publisher,
		metadata:  metadata,
		uploadDir: uploadDir,
		logger:    logger,
	}

	router.Get("/health", s.health)

	router.Route("/api", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(apiToken))
		r.Route("/videos", func(r chi.Router) {
			r.Get("/", s.listVideos)
			r.Post("/", s.createVideo)
			r.Route("/{videoID}", func(r chi.Router) {
				r.Get("/", s.getVideo)
				r.Delete("/", s.deleteVideo)
				r.Get("/status", s.videoStatus)
				r.Post("/ask", s.askVideo)
				r.Get("/chat", s.chatHistory)
			})
		})
		r.Post("/fetch-youtube-metadata", s.fetchYouTubeMetadata)
	})

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

// BearerAuthMiddleware rejects requests without the expected bearer
// token. An empty token disables the check.
func BearerAuthMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token != "" {
				auth := r.Header.Get("Authorization")
				if auth != "Bearer "+token {
					writeError(w, http.StatusUnauthorized, "missing or invalid bearer token")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func videoID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "videoID"))
}

// userRef identifies the caller for chat session purposes. Single-token
// deployments share one session per video.
func userRef(r *http.Request) string {
	if ref := strings.TrimSpace(r.Header.Get("X-User-Ref")); ref != "" {
		return ref
	}
	return "default"
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, map[string]string{"error": fmt.Sprintf(format, args...)})
}
