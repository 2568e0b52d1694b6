package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/karyon-ai/karyon/internal/answer"
	"github.com/karyon-ai/karyon/internal/events"
	"github.com/karyon-ai/karyon/internal/media"
	"github.com/karyon-ai/karyon/internal/model"
)

type fakeStore struct {
	videos    map[uuid.UUID]*model.Video
	sessions  map[uuid.UUID]*model.ChatSession
	history   []model.ChatMessage
	exchanges int
	deleted   []uuid.UUID
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		videos:   make(map[uuid.UUID]*model.Video),
		sessions: make(map[uuid.UUID]*model.ChatSession),
	}
}

func (f *fakeStore) CreateVideo(_ context.Context, v *model.Video) error {
	v.CreatedAt = time.Now()
	f.videos[v.ID] = v
	return nil
}

func (f *fakeStore) VideoByID(_ context.Context, id uuid.UUID) (*model.Video, error) {
	v, ok := f.videos[id]
	if !ok {
		return nil, model.ErrVideoNotFound
	}
	return v, nil
}

func (f *fakeStore) ListVideos(context.Context) ([]model.Video, error) {
	var out []model.Video
	for _, v := range f.videos {
		out = append(out, *v)
	}
	return out, nil
}

func (f *fakeStore) DeleteVideo(_ context.Context, id uuid.UUID) error {
	if _, ok := f.videos[id]; !ok {
		return model.ErrVideoNotFound
	}
	delete(f.videos, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeStore) SessionFor(_ context.Context, videoID uuid.UUID, userRef string) (*model.ChatSession, error) {
	if sess, ok := f.sessions[videoID]; ok {
		return sess, nil
	}
	sess := &model.ChatSession{ID: uuid.New(), VideoID: videoID, UserRef: userRef}
	f.sessions[videoID] = sess
	return sess, nil
}

func (f *fakeStore) History(context.Context, uuid.UUID) ([]model.ChatMessage, error) {
	return f.history, nil
}

func (f *fakeStore) AppendExchange(_ context.Context, _ uuid.UUID, question, answer string, _ []byte) error {
	f.exchanges++
	f.history = append(f.history,
		model.ChatMessage{Role: model.RoleUser, Content: question},
		model.ChatMessage{Role: model.RoleAssistant, Content: answer},
	)
	return nil
}

type fakeAnswerer struct {
	answer *answer.Answer
	err    error

	gotQuestion string
	gotHistory  []model.ChatMessage
}

func (f *fakeAnswerer) Ask(_ context.Context, _ model.Video, question string, history []model.ChatMessage) (*answer.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, model.ErrEmptyQuestion
	}
	f.gotQuestion = question
	f.gotHistory = history
	return f.answer, f.err
}

type fakePublisher struct {
	subjects []string
}

func (f *fakePublisher) Publish(subject string, _ any) error {
	f.subjects = append(f.subjects, subject)
	return nil
}

const testToken = "secret"

func newTestServer(t *testing.T, store *fakeStore, answerer *fakeAnswerer, pub *fakePublisher) *Server {
	t.Helper()
	metadata := func(_ context.Context, url string) (media.YouTubeMetadata, error) {
		return media.YouTubeMetadata{Title: "Fetched Title", Duration: 120}, nil
	}
	return NewServer(8460, testToken, store, answerer, pub, metadata, t.TempDir(), slog.New(slog.DiscardHandler))
}

func doRequest(srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+testToken)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, newFakeStore(), &fakeAnswerer{}, &fakePublisher{})

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestBearerAuthRequired(t *testing.T) {
	srv := newTestServer(t, newFakeStore(), &fakeAnswerer{}, &fakePublisher{})

	req := httptest.NewRequest("GET", "/api/videos", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", w.Code)
	}

	req = httptest.NewRequest("GET", "/api/videos", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with bad token, got %d", w.Code)
	}
}

func TestCreateVideoFromYouTube(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{}
	srv := newTestServer(t, store, &fakeAnswerer{}, pub)

	w := doRequest(srv, "POST", "/api/videos", map[string]string{
		"youtube_url":     "https://youtube.com/watch?v=abc",
		"processing_mode": "audio",
	})

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp videoResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "processing" {
		t.Errorf("status = %q, want processing", resp.Status)
	}
	if resp.Mode != "audio" {
		t.Errorf("mode = %q, want audio", resp.Mode)
	}
	if len(store.videos) != 1 {
		t.Fatalf("stored %d videos, want 1", len(store.videos))
	}
	if len(pub.subjects) != 1 || pub.subjects[0] != events.SubjectVideoUploaded {
		t.Errorf("published %v, want uploaded event", pub.subjects)
	}
}

func TestCreateVideoInvalidMode(t *testing.T) {
	srv := newTestServer(t, newFakeStore(), &fakeAnswerer{}, &fakePublisher{})

	w := doRequest(srv, "POST", "/api/videos", map[string]string{
		"youtube_url":     "https://youtube.com/watch?v=abc",
		"processing_mode": "telepathy",
	})

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestCreateVideoMissingURL(t *testing.T) {
	srv := newTestServer(t, newFakeStore(), &fakeAnswerer{}, &fakePublisher{})

	w := doRequest(srv, "POST", "/api/videos", map[string]string{"title": "no source"})

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestGetVideoNormalizesStatus(t *testing.T) {
	store := newFakeStore()
	id := uuid.New()
	store.videos[id] = &model.Video{ID: id, Title: "t", Mode: model.ModeBoth, Status: model.StatusTranscribing}
	srv := newTestServer(t, store, &fakeAnswerer{}, &fakePublisher{})

	w := doRequest(srv, "GET", "/api/videos/"+id.String(), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp videoResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Status != "processing" {
		t.Errorf("status = %q, want processing", resp.Status)
	}
}

func TestVideoStatusIsRaw(t *testing.T) {
	store := newFakeStore()
	id := uuid.New()
	store.videos[id] = &model.Video{ID: id, Status: model.StatusTranscribing}
	srv := newTestServer(t, store, &fakeAnswerer{}, &fakePublisher{})

	w := doRequest(srv, "GET", "/api/videos/"+id.String()+"/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp map[string]string
	json.NewDecoder(w.Body).Decode(&resp)
	if resp["status"] != "transcribing" {
		t.Errorf("status = %q, want transcribing", resp["status"])
	}
}

func TestGetVideoNotFound(t *testing.T) {
	srv := newTestServer(t, newFakeStore(), &fakeAnswerer{}, &fakePublisher{})

	w := doRequest(srv, "GET", "/api/videos/"+uuid.NewString(), nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestAskVideoNotReady(t *testing.T) {
	store := newFakeStore()
	id := uuid.New()
	store.videos[id] = &model.Video{ID: id, Status: model.StatusAnalyzing}
	srv := newTestServer(t, store, &fakeAnswerer{}, &fakePublisher{})

	w := doRequest(srv, "POST", "/api/videos/"+id.String()+"/ask", map[string]string{"question": "hi"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestAskVideoEmptyQuestion(t *testing.T) {
	store := newFakeStore()
	id := uuid.New()
	store.videos[id] = &model.Video{ID: id, Status: model.StatusReady}
	srv := newTestServer(t, store, &fakeAnswerer{}, &fakePublisher{})

	w := doRequest(srv, "POST", "/api/videos/"+id.String()+"/ask", map[string]string{"question": "  "})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestAskVideo(t *testing.T) {
	store := newFakeStore()
	id := uuid.New()
	store.videos[id] = &model.Video{ID: id, Status: model.StatusReady, Mode: model.ModeBoth}
	ts := 12.5
	answerer := &fakeAnswerer{answer: &answer.Answer{
		Answer:     "it covers eigenvalues",
		Confidence: "high",
		Timestamp:  &ts,
		HasAnswer:  true,
	}}
	srv := newTestServer(t, store, answerer, &fakePublisher{})

	w := doRequest(srv, "POST", "/api/videos/"+id.String()+"/ask", map[string]string{"question": "what is covered?"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp answer.Answer
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Answer != "it covers eigenvalues" || !resp.HasAnswer {
		t.Errorf("unexpected answer payload: %+v", resp)
	}
	if store.exchanges != 1 {
		t.Errorf("exchanges = %d, want 1", store.exchanges)
	}
	if answerer.gotQuestion != "what is covered?" {
		t.Errorf("question = %q", answerer.gotQuestion)
	}
}

func TestAskVideoFailureIsLogged(t *testing.T) {
	store := newFakeStore()
	id := uuid.New()
	store.videos[id] = &model.Video{ID: id, Status: model.StatusReady}
	answerer := &fakeAnswerer{err: errors.New("generation timed out")}
	srv := newTestServer(t, store, answerer, &fakePublisher{})

	w := doRequest(srv, "POST", "/api/videos/"+id.String()+"/ask", map[string]string{"question": "hello?"})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if store.exchanges != 1 {
		t.Fatalf("exchanges = %d, want the failure logged", store.exchanges)
	}
	last := store.history[len(store.history)-1]
	if last.Role != model.RoleAssistant || !strings.Contains(last.Content, "generation timed out") {
		t.Errorf("assistant reply = %+v, want the failure message", last)
	}
}

func TestChatHistory(t *testing.T) {
	store := newFakeStore()
	id := uuid.New()
	store.videos[id] = &model.Video{ID: id, Status: model.StatusReady}
	store.history = []model.ChatMessage{
		{Role: model.RoleUser, Content: "q1"},
		{Role: model.RoleAssistant, Content: "a1"},
	}
	srv := newTestServer(t, store, &fakeAnswerer{}, &fakePublisher{})

	w := doRequest(srv, "GET", "/api/videos/"+id.String()+"/chat", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp []model.ChatMessage
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp) != 2 {
		t.Errorf("len(history) = %d, want 2", len(resp))
	}
}

func TestDeleteVideo(t *testing.T) {
	store := newFakeStore()
	id := uuid.New()
	store.videos[id] = &model.Video{ID: id, Status: model.StatusReady}
	srv := newTestServer(t, store, &fakeAnswerer{}, &fakePublisher{})

	w := doRequest(srv, "DELETE", "/api/videos/"+id.String(), nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", w.Code)
	}
	if len(store.deleted) != 1 {
		t.Errorf("deleted %d videos, want 1", len(store.deleted))
	}
}

func TestFetchYouTubeMetadata(t *testing.T) {
	srv := newTestServer(t, newFakeStore(), &fakeAnswerer{}, &fakePublisher{})

	w := doRequest(srv, "POST", "/api/fetch-youtube-metadata", map[string]string{"url": "https://youtube.com/watch?v=abc"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var meta media.YouTubeMetadata
	if err := json.NewDecoder(w.Body).Decode(&meta); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if meta.Title != "Fetched Title" {
		t.Errorf("title = %q", meta.Title)
	}
}
