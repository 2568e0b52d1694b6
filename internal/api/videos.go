package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/karyon-ai/karyon/internal/events"
	"github.com/karyon-ai/karyon/internal/model"
)

// maxUploadBytes caps direct video uploads at 2GB.
const maxUploadBytes = 2 << 30

// videoResponse is the outward-facing video shape. Non-terminal
// statuses collapse to "processing" so clients only see four states.
type videoResponse struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	File         string `json:"file,omitempty"`
	AudioFile    string `json:"audio_file,omitempty"`
	YouTubeURL   string `json:"youtube_url,omitempty"`
	Mode         string `json:"processing_mode"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
	CreatedAt    string `json:"created_at"`
}

func toVideoResponse(v model.Video) videoResponse {
	status := string(v.Status)
	if !v.Status.Terminal() {
		status = "processing"
	}
	return videoResponse{
		ID:           v.ID.String(),
		Title:        v.Title,
		File:         v.FilePath,
		AudioFile:    v.AudioPath,
		YouTubeURL:   v.YouTubeURL,
		Mode:         string(v.Mode),
		Status:       status,
		ErrorMessage: v.ErrorMessage,
		CreatedAt:    v.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func (s *Server) listVideos(w http.ResponseWriter, r *http.Request) {
	videos, err := s.store.ListVideos(r.Context())
	if err != nil {
		s.logger.Error("list videos failed", "error", err)
		writeError(w, http.StatusInternalServerError, "list videos failed")
		return
	}
	out := make([]videoResponse, len(videos))
	for i, v := range videos {
		out[i] = toVideoResponse(v)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getVideo(w http.ResponseWriter, r *http.Request) {
	v, ok := s.loadVideo(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toVideoResponse(*v))
}

// videoStatus returns the raw processing status for pipeline polling.
func (s *Server) videoStatus(w http.ResponseWriter, r *http.Request) {
	v, ok := s.loadVideo(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(v.Status)})
}

type createVideoRequest struct {
	Title      string `json:"title"`
	YouTubeURL string `json:"youtube_url"`
	Mode       string `json:"processing_mode"`
}

// createVideo accepts either a multipart upload (file + fields) or a
// JSON body carrying a youtube_url. Both paths register the video and
// publish an uploaded event for the processor.
func (s *Server) createVideo(w http.ResponseWriter, r *http.Request) {
	v := model.Video{
		ID:     uuid.New(),
		Mode:   model.ModeBoth,
		Status: model.StatusUploaded,
	}

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := s.acceptUpload(r, &v); err != nil {
			writeError(w, http.StatusBadRequest, "upload failed: %v", err)
			return
		}
	} else {
		var req createVideoRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON: %v", err)
			return
		}
		if req.YouTubeURL == "" {
			writeError(w, http.StatusBadRequest, "youtube_url is required")
			return
		}
		v.YouTubeURL = req.YouTubeURL
		v.Title = req.Title
		if v.Title == "" {
			v.Title = req.YouTubeURL
		}
		if req.Mode != "" {
			mode := model.ProcessingMode(req.Mode)
			if !mode.Valid() {
				writeError(w, http.StatusBadRequest, "invalid processing_mode %q", req.Mode)
				return
			}
			v.Mode = mode
		}
	}

	if err := s.store.CreateVideo(r.Context(), &v); err != nil {
		s.logger.Error("create video failed", "error", err)
		writeError(w, http.StatusInternalServerError, "create video failed")
		return
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(events.SubjectVideoUploaded, events.VideoUploaded{VideoID: v.ID.String()}); err != nil {
			s.logger.Error("publish upload event failed", "video_id", v.ID, "error", err)
		}
	}

	writeJSON(w, http.StatusCreated, toVideoResponse(v))
}

func (s *Server) acceptUpload(r *http.Request, v *model.Video) error {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return fmt.Errorf("parse form: %w", err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return fmt.Errorf("missing file field: %w", err)
	}
	defer file.Close()

	if header.Size > maxUploadBytes {
		return fmt.Errorf("file too large: %d bytes", header.Size)
	}

	if mode := r.FormValue("processing_mode"); mode != "" {
		m := model.ProcessingMode(mode)
		if !m.Valid() {
			return fmt.Errorf("invalid processing_mode %q", mode)
		}
		v.Mode = m
	}
	v.Title = r.FormValue("title")
	if v.Title == "" {
		v.Title = header.Filename
	}

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}
	path := filepath.Join(s.uploadDir, fmt.Sprintf("%s_%s", v.ID, filepath.Base(header.Filename)))
	dst, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, file); err != nil {
		os.Remove(path)
		return fmt.Errorf("write file: %w", err)
	}

	v.FilePath = path
	return nil
}

// deleteVideo removes the record along with its media files on disk.
func (s *Server) deleteVideo(w http.ResponseWriter, r *http.Request) {
	v, ok := s.loadVideo(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteVideo(r.Context(), v.ID); err != nil {
		s.logger.Error("delete video failed", "video_id", v.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "delete video failed")
		return
	}
	for _, path := range []string{v.FilePath, v.AudioPath} {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove media file", "path", path, "error", err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) fetchYouTubeMetadata(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: %v", err)
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	meta, err := s.metadata(r.Context(), req.URL)
	if err != nil {
		s.logger.Error("metadata fetch failed", "url", req.URL, "error", err)
		writeError(w, http.StatusBadGateway, "metadata fetch failed")
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

func (s *Server) loadVideo(w http.ResponseWriter, r *http.Request) (*model.Video, bool) {
	id, err := videoID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid video id")
		return nil, false
	}
	v, err := s.store.VideoByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, model.ErrVideoNotFound) {
			writeError(w, http.StatusNotFound, "video not found")
		} else {
			s.logger.Error("load video failed", "video_id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "load video failed")
		}
		return nil, false
	}
	return v, true
}
